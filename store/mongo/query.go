package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rbaliyan/messages/store"
)

// fieldFor maps filter field keys to document field names.
var fieldFor = map[string]string{
	store.FieldID:                 "_id",
	store.FieldSenderID:           "sender_id",
	store.FieldRecipientID:        "recipient_id",
	store.FieldParentID:           "parent_id",
	store.FieldSubject:            "subject",
	store.FieldSentAt:             "sent_at",
	store.FieldReadAt:             "read_at",
	store.FieldRepliedAt:          "replied_at",
	store.FieldSenderDeletedAt:    "sender_deleted_at",
	store.FieldRecipientDeletedAt: "recipient_deleted_at",
}

// buildFilter translates filters into a MongoDB query document.
func buildFilter(filters []store.Filter) (bson.M, error) {
	if len(filters) == 0 {
		return bson.M{}, nil
	}
	conds := make([]bson.M, 0, len(filters))
	for _, f := range filters {
		cond, err := buildCondition(f)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return bson.M{"$and": conds}, nil
}

func buildCondition(f store.Filter) (bson.M, error) {
	switch f.Operator {
	case store.OpAny, store.OpAll:
		op := "$or"
		if f.Operator == store.OpAll {
			op = "$and"
		}
		nested := f.Nested()
		conds := make([]bson.M, 0, len(nested))
		for _, n := range nested {
			cond, err := buildCondition(n)
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		}
		return bson.M{op: conds}, nil
	}

	field, ok := fieldFor[f.Key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", store.ErrFilterInvalid, f.Key)
	}
	switch f.Operator {
	case store.OpEqual:
		return bson.M{field: f.Value}, nil
	case store.OpNotEqual:
		return bson.M{field: bson.M{"$ne": f.Value}}, nil
	case store.OpGreaterThan:
		return bson.M{field: bson.M{"$gt": f.Value}}, nil
	case store.OpGreaterOrEqual:
		return bson.M{field: bson.M{"$gte": f.Value}}, nil
	case store.OpLessThan:
		return bson.M{field: bson.M{"$lt": f.Value}}, nil
	case store.OpLessOrEqual:
		return bson.M{field: bson.M{"$lte": f.Value}}, nil
	case store.OpIn:
		ids, ok := f.Value.([]string)
		if !ok {
			return nil, fmt.Errorf("%w: in requires []string", store.ErrFilterInvalid)
		}
		return bson.M{field: bson.M{"$in": ids}}, nil
	case store.OpExists:
		want, _ := f.Value.(bool)
		if want {
			// Covers both absent and explicit-null fields.
			return bson.M{field: bson.M{"$ne": nil}}, nil
		}
		return bson.M{field: nil}, nil
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", store.ErrFilterInvalid, f.Operator)
	}
}

// Get returns the message with the given ID.
func (s *Store) Get(ctx context.Context, id string) (store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var msg store.MessageData
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("mongo: get: %w", err)
	}
	return &msg, nil
}

// Find returns messages matching all filters, paginated per opts.
// Total is not computed (always -1); use Count for totals.
func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := store.ValidateFilters(filters); err != nil {
		return nil, err
	}
	query, err := buildFilter(filters)
	if err != nil {
		return nil, err
	}
	sortField, dir, err := sortSpec(opts)
	if err != nil {
		return nil, err
	}

	if opts.StartAfter != "" {
		cursor, err := s.Get(ctx, opts.StartAfter)
		if err != nil {
			return nil, err
		}
		query = keysetFilter(query, sortField, dir, cursor)
	}

	findOpts := mongooptions.Find().
		SetSort(bson.D{{Key: sortField, Value: dir}, {Key: "_id", Value: dir}})
	limit := opts.Limit
	if limit > 0 {
		// Fetch one extra document to detect another page.
		findOpts = findOpts.SetLimit(int64(limit + 1))
	}
	if opts.StartAfter == "" && opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.coll.Find(ctx, query, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find: %w", err)
	}
	defer cur.Close(ctx)

	list := &store.MessageList{Total: -1}
	for cur.Next(ctx) {
		var msg store.MessageData
		if err := cur.Decode(&msg); err != nil {
			return nil, fmt.Errorf("mongo: decode: %w", err)
		}
		list.Messages = append(list.Messages, &msg)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo: find: %w", err)
	}
	if limit > 0 && len(list.Messages) > limit {
		list.Messages = list.Messages[:limit]
		list.HasMore = true
		list.NextCursor = list.Messages[limit-1].GetID()
	}
	return list, nil
}

// keysetFilter narrows query to documents strictly after the cursor
// message in (sortField, _id) order.
func keysetFilter(query bson.M, sortField string, dir int, cursor store.Message) bson.M {
	op := "$lt"
	if dir > 0 {
		op = "$gt"
	}
	var sortVal any
	if sortField == "sent_at" {
		sortVal = cursor.GetSentAt()
	} else {
		sortVal = cursor.GetID()
	}
	after := bson.M{"$or": []bson.M{
		{sortField: bson.M{op: sortVal}},
		{sortField: sortVal, "_id": bson.M{op: cursor.GetID()}},
	}}
	if len(query) == 0 {
		return after
	}
	return bson.M{"$and": []bson.M{query, after}}
}

// Count returns the number of messages matching all filters.
func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	if err := store.ValidateFilters(filters); err != nil {
		return 0, err
	}
	query, err := buildFilter(filters)
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	count, err := s.coll.CountDocuments(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("mongo: count: %w", err)
	}
	return count, nil
}

func sortSpec(opts store.ListOptions) (field string, dir int, err error) {
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = store.FieldSentAt
	}
	field, ok := fieldFor[sortBy]
	if !ok {
		return "", 0, fmt.Errorf("%w: unknown sort field %q", store.ErrFilterInvalid, sortBy)
	}
	dir = -1
	if opts.SortOrder == store.SortAsc {
		dir = 1
	}
	return field, dir, nil
}
