package memory

import (
	"context"
	"fmt"

	"github.com/rbaliyan/messages/store"
)

// Create persists a new message.
func (s *Store) Create(ctx context.Context, msg *store.MessageData) error {
	return s.CreateMessages(ctx, []*store.MessageData{msg})
}

// CreateMessages persists a batch atomically. Either every message is
// stored or none is.
func (s *Store) CreateMessages(ctx context.Context, msgs []*store.MessageData) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(msgs))
	for _, msg := range msgs {
		if msg == nil || msg.ID == "" {
			return fmt.Errorf("%w: message without id", store.ErrInvalidID)
		}
		if seen[msg.ID] {
			return fmt.Errorf("%w: duplicate id %s in batch", store.ErrTransactionFailed, msg.ID)
		}
		seen[msg.ID] = true
		if _, exists := s.messages.Load(msg.ID); exists {
			return fmt.Errorf("%w: id %s already exists", store.ErrTransactionFailed, msg.ID)
		}
	}
	for _, msg := range msgs {
		s.messages.Store(msg.ID, msg.Clone())
	}
	return nil
}
