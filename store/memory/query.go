package memory

import (
	"context"
	"sort"
	"time"

	"github.com/rbaliyan/messages/store"
)

// Get returns the message with the given ID.
func (s *Store) Get(ctx context.Context, id string) (store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}
	msg := s.load(id)
	if msg == nil {
		return nil, store.ErrNotFound
	}
	return msg, nil
}

// Find returns messages matching all filters, paginated per opts.
func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := store.ValidateFilters(filters); err != nil {
		return nil, err
	}

	matched := s.collect(filters)
	sortMessages(matched, opts.SortBy, opts.SortOrder)

	total := int64(len(matched))
	start := 0
	if opts.StartAfter != "" {
		// A cursor whose row is gone yields an empty page, same as the
		// SQL keyset subquery. Restarting from the top would re-yield
		// messages the caller already saw.
		start = len(matched)
		for i, msg := range matched {
			if msg.ID == opts.StartAfter {
				start = i + 1
				break
			}
		}
	} else if opts.Offset > 0 {
		start = opts.Offset
	}
	if start > len(matched) {
		start = len(matched)
	}

	end := len(matched)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	page := matched[start:end]
	list := &store.MessageList{
		Messages: make([]store.Message, 0, len(page)),
		Total:    total,
		HasMore:  end < len(matched),
	}
	for _, msg := range page {
		list.Messages = append(list.Messages, msg)
	}
	if list.HasMore && len(page) > 0 {
		list.NextCursor = page[len(page)-1].ID
	}
	return list, nil
}

// Count returns the number of messages matching all filters.
func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	if err := store.ValidateFilters(filters); err != nil {
		return 0, err
	}
	return int64(len(s.collect(filters))), nil
}

// collect snapshots all messages matching the filters.
func (s *Store) collect(filters []store.Filter) []*store.MessageData {
	var matched []*store.MessageData
	s.messages.Range(func(_, v any) bool {
		msg := v.(*store.MessageData)
		if matchAll(msg, filters) {
			matched = append(matched, msg.Clone())
		}
		return true
	})
	return matched
}

func matchAll(msg *store.MessageData, filters []store.Filter) bool {
	for _, f := range filters {
		if !match(msg, f) {
			return false
		}
	}
	return true
}

func match(msg *store.MessageData, f store.Filter) bool {
	switch f.Operator {
	case store.OpAny:
		for _, n := range f.Nested() {
			if match(msg, n) {
				return true
			}
		}
		return false
	case store.OpAll:
		return matchAll(msg, f.Nested())
	case store.OpExists:
		want, _ := f.Value.(bool)
		return fieldSet(msg, f.Key) == want
	case store.OpEqual:
		return fieldString(msg, f.Key) == f.Value
	case store.OpNotEqual:
		return fieldString(msg, f.Key) != f.Value
	case store.OpIn:
		ids, ok := f.Value.([]string)
		if !ok {
			return false
		}
		val := fieldString(msg, f.Key)
		for _, id := range ids {
			if val == id {
				return true
			}
		}
		return false
	case store.OpGreaterThan, store.OpGreaterOrEqual, store.OpLessThan, store.OpLessOrEqual:
		return matchTime(msg, f)
	default:
		return false
	}
}

func matchTime(msg *store.MessageData, f store.Filter) bool {
	val, ok := fieldTime(msg, f.Key)
	if !ok {
		return false
	}
	ref, ok := f.Value.(time.Time)
	if !ok {
		return false
	}
	switch f.Operator {
	case store.OpGreaterThan:
		return val.After(ref)
	case store.OpGreaterOrEqual:
		return !val.Before(ref)
	case store.OpLessThan:
		return val.Before(ref)
	case store.OpLessOrEqual:
		return !val.After(ref)
	}
	return false
}

func fieldString(msg *store.MessageData, key string) string {
	switch key {
	case store.FieldID:
		return msg.ID
	case store.FieldSenderID:
		return msg.SenderID
	case store.FieldRecipientID:
		return msg.RecipientID
	case store.FieldParentID:
		return msg.ParentID
	case store.FieldSubject:
		return msg.Subject
	default:
		return ""
	}
}

func fieldTime(msg *store.MessageData, key string) (time.Time, bool) {
	switch key {
	case store.FieldSentAt:
		return msg.SentAt, true
	case store.FieldReadAt:
		return deref(msg.ReadAt)
	case store.FieldRepliedAt:
		return deref(msg.RepliedAt)
	case store.FieldSenderDeletedAt:
		return deref(msg.SenderDeletedAt)
	case store.FieldRecipientDeletedAt:
		return deref(msg.RecipientDeletedAt)
	default:
		return time.Time{}, false
	}
}

func deref(t *time.Time) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

func fieldSet(msg *store.MessageData, key string) bool {
	switch key {
	case store.FieldReadAt:
		return msg.ReadAt != nil
	case store.FieldRepliedAt:
		return msg.RepliedAt != nil
	case store.FieldSenderDeletedAt:
		return msg.SenderDeletedAt != nil
	case store.FieldRecipientDeletedAt:
		return msg.RecipientDeletedAt != nil
	case store.FieldRecipientID:
		return msg.RecipientID != ""
	case store.FieldParentID:
		return msg.ParentID != ""
	default:
		return false
	}
}

// sortMessages orders by the sort field with message ID as tiebreak,
// both in the same direction. Defaults to sent_at descending.
func sortMessages(msgs []*store.MessageData, sortBy, order string) {
	if sortBy == "" {
		sortBy = store.FieldSentAt
	}
	desc := order != store.SortAsc
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if desc {
			a, b = b, a
		}
		at, aok := fieldTime(a, sortBy)
		bt, bok := fieldTime(b, sortBy)
		if aok && bok && !at.Equal(bt) {
			return at.Before(bt)
		}
		if aok != bok {
			// Unset sorts before set.
			return !aok
		}
		return a.ID < b.ID
	})
}
