package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/rbaliyan/messages/store"
)

// Create persists a new message.
func (s *Store) Create(ctx context.Context, msg *store.MessageData) error {
	return s.CreateMessages(ctx, []*store.MessageData{msg})
}

// CreateMessages persists a batch. On a mid-batch failure the already
// inserted documents are removed before returning, so the batch is
// all-or-nothing without requiring a replica set transaction.
func (s *Store) CreateMessages(ctx context.Context, msgs []*store.MessageData) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	docs := make([]any, 0, len(msgs))
	ids := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil || msg.ID == "" {
			return fmt.Errorf("%w: message without id", store.ErrInvalidID)
		}
		docs = append(docs, msg)
		ids = append(ids, msg.ID)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		// Roll back partial inserts. Best effort: a failure here leaves
		// orphans that DeleteExpired will never claim, so report it.
		if _, delErr := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); delErr != nil {
			return fmt.Errorf("%w: insert failed (%v) and rollback failed: %v",
				store.ErrTransactionFailed, err, delErr)
		}
		return fmt.Errorf("%w: %v", store.ErrTransactionFailed, err)
	}
	return nil
}
