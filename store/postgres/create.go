package postgres

import (
	"context"
	"fmt"

	"github.com/rbaliyan/messages/store"
)

// Create persists a new message.
func (s *Store) Create(ctx context.Context, msg *store.MessageData) error {
	return s.CreateMessages(ctx, []*store.MessageData{msg})
}

// CreateMessages persists a batch in a single transaction.
func (s *Store) CreateMessages(ctx context.Context, msgs []*store.MessageData) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	for _, msg := range msgs {
		if msg == nil || msg.ID == "" {
			return fmt.Errorf("%w: message without id", store.ErrInvalidID)
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", store.ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	insert := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.opts.table, messageColumns)
	for _, msg := range msgs {
		_, err := tx.ExecContext(ctx, insert,
			msg.ID,
			msg.SenderID,
			nullString(msg.RecipientID),
			nullString(msg.ParentID),
			msg.Subject,
			msg.Body,
			msg.SentAt,
			nullTimePtr(msg.ReadAt),
			nullTimePtr(msg.RepliedAt),
			nullTimePtr(msg.SenderDeletedAt),
			nullTimePtr(msg.RecipientDeletedAt),
		)
		if err != nil {
			return fmt.Errorf("%w: insert %s: %v", store.ErrTransactionFailed, msg.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", store.ErrTransactionFailed, err)
	}
	return nil
}
