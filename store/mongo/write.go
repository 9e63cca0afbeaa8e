package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/rbaliyan/messages/store"
)

// MarkRead sets the read timestamp if it is not already set.
// The filter includes the null check so concurrent views race on the
// server: exactly one caller observes changed=true.
func (s *Store) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := s.checkConnected(); err != nil {
		return false, err
	}
	if id == "" {
		return false, store.ErrInvalidID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "read_at": nil},
		bson.M{"$set": bson.M{"read_at": at}})
	if err != nil {
		return false, fmt.Errorf("mongo: mark read: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	count, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("mongo: mark read: %w", err)
	}
	if count == 0 {
		return false, store.ErrNotFound
	}
	return false, nil
}

// MarkReplied sets the replied timestamp.
func (s *Store) MarkReplied(ctx context.Context, id string, at time.Time) error {
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{"replied_at": at}})
}

// SetDeleted sets or clears one side's trash timestamp.
func (s *Store) SetDeleted(ctx context.Context, id string, side store.Side, at *time.Time) error {
	field := "recipient_deleted_at"
	if side == store.SideSender {
		field = "sender_deleted_at"
	}
	if at == nil {
		return s.updateOne(ctx, id, bson.M{"$unset": bson.M{field: ""}})
	}
	return s.updateOne(ctx, id, bson.M{"$set": bson.M{field: *at}})
}

// DetachRecipient clears the recipient reference.
func (s *Store) DetachRecipient(ctx context.Context, id string) error {
	return s.updateOne(ctx, id, bson.M{"$unset": bson.M{"recipient_id": ""}})
}

func (s *Store) updateOne(ctx context.Context, id string, update bson.M) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if id == "" {
		return store.ErrInvalidID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("mongo: update: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// HardDelete permanently removes a message.
func (s *Store) HardDelete(ctx context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if id == "" {
		return store.ErrInvalidID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongo: delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteExpired permanently removes messages both of whose trash
// timestamps are at or before cutoff, oldest first, up to limit.
func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// Type bracketing keeps $lte from matching null or absent fields.
	expired := bson.M{
		"sender_deleted_at":    bson.M{"$lte": cutoff},
		"recipient_deleted_at": bson.M{"$lte": cutoff},
	}

	if limit <= 0 {
		res, err := s.coll.DeleteMany(ctx, expired)
		if err != nil {
			return 0, fmt.Errorf("mongo: delete expired: %w", err)
		}
		return res.DeletedCount, nil
	}

	list, err := s.Find(ctx, []store.Filter{
		store.Where(store.FieldSenderDeletedAt, store.OpLessOrEqual, cutoff),
		store.Where(store.FieldRecipientDeletedAt, store.OpLessOrEqual, cutoff),
	}, store.ListOptions{
		Limit:     limit,
		SortBy:    store.FieldSentAt,
		SortOrder: store.SortAsc,
	})
	if err != nil {
		return 0, err
	}
	if len(list.Messages) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(list.Messages))
	for _, msg := range list.Messages {
		ids = append(ids, msg.GetID())
	}
	res, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("mongo: delete expired: %w", err)
	}
	return res.DeletedCount, nil
}
