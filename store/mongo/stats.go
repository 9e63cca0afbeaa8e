package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/rbaliyan/messages/store"
)

// MailboxStats computes folder counters with a single aggregation over
// the user's messages.
func (s *Store) MailboxStats(ctx context.Context, userID string) (*store.MailboxStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	isRecipient := bson.M{"$eq": []any{"$recipient_id", userID}}
	isSender := bson.M{"$eq": []any{"$sender_id", userID}}
	recipientDeleted := bson.M{"$gt": []any{"$recipient_deleted_at", nil}}
	senderDeleted := bson.M{"$gt": []any{"$sender_deleted_at", nil}}
	unread := bson.M{"$lte": []any{"$read_at", nil}}

	pipeline := []bson.M{
		{"$match": bson.M{"$or": []bson.M{
			{"recipient_id": userID},
			{"sender_id": userID},
		}}},
		{"$group": bson.M{
			"_id": nil,
			"inbox": bson.M{"$sum": bson.M{"$cond": []any{
				bson.M{"$and": []bson.M{isRecipient, {"$not": []any{recipientDeleted}}}}, 1, 0}}},
			"unread": bson.M{"$sum": bson.M{"$cond": []any{
				bson.M{"$and": []bson.M{isRecipient, {"$not": []any{recipientDeleted}}, unread}}, 1, 0}}},
			"outbox": bson.M{"$sum": bson.M{"$cond": []any{
				bson.M{"$and": []bson.M{isSender, {"$not": []any{senderDeleted}}}}, 1, 0}}},
			"trash": bson.M{"$sum": bson.M{"$cond": []any{
				bson.M{"$or": []bson.M{
					{"$and": []bson.M{isSender, senderDeleted}},
					{"$and": []bson.M{isRecipient, recipientDeleted}},
				}}, 1, 0}}},
		}},
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo: mailbox stats: %w", err)
	}
	defer cur.Close(ctx)

	stats := &store.MailboxStats{}
	if cur.Next(ctx) {
		var row struct {
			Inbox  int64 `bson:"inbox"`
			Unread int64 `bson:"unread"`
			Outbox int64 `bson:"outbox"`
			Trash  int64 `bson:"trash"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("mongo: mailbox stats: %w", err)
		}
		stats.Inbox = row.Inbox
		stats.Unread = row.Unread
		stats.Outbox = row.Outbox
		stats.Trash = row.Trash
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: mailbox stats: %w", err)
	}
	return stats, nil
}
