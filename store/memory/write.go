package memory

import (
	"context"
	"sort"
	"time"

	"github.com/rbaliyan/messages/store"
)

// MarkRead sets the read timestamp if it is not already set.
func (s *Store) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := s.checkConnected(); err != nil {
		return false, err
	}
	changed := false
	err := s.mutate(id, func(msg *store.MessageData) error {
		if msg.ReadAt != nil {
			return nil
		}
		t := at
		msg.ReadAt = &t
		changed = true
		return nil
	})
	return changed, err
}

// MarkReplied sets the replied timestamp.
func (s *Store) MarkReplied(ctx context.Context, id string, at time.Time) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	return s.mutate(id, func(msg *store.MessageData) error {
		t := at
		msg.RepliedAt = &t
		return nil
	})
}

// SetDeleted sets or clears one side's trash timestamp.
func (s *Store) SetDeleted(ctx context.Context, id string, side store.Side, at *time.Time) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	return s.mutate(id, func(msg *store.MessageData) error {
		var t *time.Time
		if at != nil {
			c := *at
			t = &c
		}
		if side == store.SideSender {
			msg.SenderDeletedAt = t
		} else {
			msg.RecipientDeletedAt = t
		}
		return nil
	})
}

// DetachRecipient clears the recipient reference.
func (s *Store) DetachRecipient(ctx context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	return s.mutate(id, func(msg *store.MessageData) error {
		msg.RecipientID = ""
		return nil
	})
}

// HardDelete permanently removes a message.
func (s *Store) HardDelete(ctx context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if id == "" {
		return store.ErrInvalidID
	}
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()
	if _, ok := s.messages.Load(id); !ok {
		return store.ErrNotFound
	}
	s.messages.Delete(id)
	return nil
}

// DeleteExpired permanently removes messages both of whose trash
// timestamps are at or before cutoff, oldest first, up to limit.
func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	var expired []*store.MessageData
	s.messages.Range(func(_, v any) bool {
		msg := v.(*store.MessageData)
		if msg.SenderDeletedAt != nil && msg.RecipientDeletedAt != nil &&
			!msg.SenderDeletedAt.After(cutoff) && !msg.RecipientDeletedAt.After(cutoff) {
			expired = append(expired, msg)
		}
		return true
	})
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].SentAt.Before(expired[j].SentAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}

	var deleted int64
	for _, msg := range expired {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		s.messages.Delete(msg.ID)
		deleted++
	}
	return deleted, nil
}
