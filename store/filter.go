package store

import "fmt"

// Query operators supported by filters.
const (
	OpEqual          = "eq"
	OpNotEqual       = "ne"
	OpGreaterThan    = "gt"
	OpGreaterOrEqual = "gte"
	OpLessThan       = "lt"
	OpLessOrEqual    = "lte"
	OpIn             = "in"
	OpExists         = "exists"

	// OpAny matches when any nested filter matches. Value must be a
	// []Filter. Nested filters may use OpAll but not another OpAny.
	OpAny = "any"
	// OpAll matches when every nested filter matches. Value must be a
	// []Filter of plain (non-combinator) filters.
	OpAll = "all"
)

var validOperators = map[string]bool{
	OpEqual:          true,
	OpNotEqual:       true,
	OpGreaterThan:    true,
	OpGreaterOrEqual: true,
	OpLessThan:       true,
	OpLessOrEqual:    true,
	OpIn:             true,
	OpExists:         true,
	OpAny:            true,
	OpAll:            true,
}

// Message field keys usable in filters. Stores map these to their
// native column or document field names.
const (
	FieldID                 = "id"
	FieldSenderID           = "sender_id"
	FieldRecipientID        = "recipient_id"
	FieldParentID           = "parent_id"
	FieldSubject            = "subject"
	FieldSentAt             = "sent_at"
	FieldReadAt             = "read_at"
	FieldRepliedAt          = "replied_at"
	FieldSenderDeletedAt    = "sender_deleted_at"
	FieldRecipientDeletedAt = "recipient_deleted_at"
)

var validFields = map[string]bool{
	FieldID:                 true,
	FieldSenderID:           true,
	FieldRecipientID:        true,
	FieldParentID:           true,
	FieldSubject:            true,
	FieldSentAt:             true,
	FieldReadAt:             true,
	FieldRepliedAt:          true,
	FieldSenderDeletedAt:    true,
	FieldRecipientDeletedAt: true,
}

// Filter is a single query predicate. Multiple filters passed to a store
// combine with AND; use AnyOf for OR semantics.
type Filter struct {
	Key      string
	Value    interface{}
	Operator string
}

// IsCombinator reports whether the filter nests other filters.
func (f Filter) IsCombinator() bool {
	return f.Operator == OpAny || f.Operator == OpAll
}

// Nested returns the nested filters of a combinator, or nil.
func (f Filter) Nested() []Filter {
	if !f.IsCombinator() {
		return nil
	}
	nested, _ := f.Value.([]Filter)
	return nested
}

// Validate checks that the filter references a known field and operator.
func (f Filter) Validate() error {
	return f.validate(true)
}

func (f Filter) validate(allowAny bool) error {
	if !validOperators[f.Operator] {
		return fmt.Errorf("%w: unknown operator %q", ErrFilterInvalid, f.Operator)
	}
	if f.IsCombinator() {
		if f.Operator == OpAny && !allowAny {
			return fmt.Errorf("%w: nested %q is not supported", ErrFilterInvalid, OpAny)
		}
		nested := f.Nested()
		if len(nested) == 0 {
			return fmt.Errorf("%w: %q requires nested filters", ErrFilterInvalid, f.Operator)
		}
		for _, n := range nested {
			if f.Operator == OpAll && n.IsCombinator() {
				return fmt.Errorf("%w: %q cannot nest combinators", ErrFilterInvalid, OpAll)
			}
			if err := n.validate(false); err != nil {
				return err
			}
		}
		return nil
	}
	if !validFields[f.Key] {
		return fmt.Errorf("%w: unknown field %q", ErrFilterInvalid, f.Key)
	}
	return nil
}

// ValidateFilters validates every filter in the slice.
func ValidateFilters(filters []Filter) error {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Where builds a filter for an arbitrary field and operator.
func Where(key string, op string, value interface{}) Filter {
	return Filter{Key: key, Value: value, Operator: op}
}

// AnyOf matches messages satisfying at least one of the given filters.
func AnyOf(filters ...Filter) Filter {
	return Filter{Operator: OpAny, Value: filters}
}

// AllOf matches messages satisfying every one of the given filters.
// Useful for grouping conditions inside AnyOf branches.
func AllOf(filters ...Filter) Filter {
	return Filter{Operator: OpAll, Value: filters}
}

// SenderIs matches messages sent by the given user.
func SenderIs(userID string) Filter {
	return Filter{Key: FieldSenderID, Value: userID, Operator: OpEqual}
}

// RecipientIs matches messages addressed to the given user.
func RecipientIs(userID string) Filter {
	return Filter{Key: FieldRecipientID, Value: userID, Operator: OpEqual}
}

// ParticipantIs matches messages the given user sent or received.
func ParticipantIs(userID string) Filter {
	return AnyOf(SenderIs(userID), RecipientIs(userID))
}

// ParentIs matches direct replies to the given message.
func ParentIs(messageID string) Filter {
	return Filter{Key: FieldParentID, Value: messageID, Operator: OpEqual}
}

// ParentIn matches replies to any of the given messages.
func ParentIn(ids ...string) Filter {
	return Filter{Key: FieldParentID, Value: ids, Operator: OpIn}
}

// IDIn matches messages with any of the given IDs.
func IDIn(ids ...string) Filter {
	return Filter{Key: FieldID, Value: ids, Operator: OpIn}
}

// Unread matches messages the recipient has not viewed yet.
func Unread() Filter {
	return Filter{Key: FieldReadAt, Value: false, Operator: OpExists}
}

// SenderDeleted matches on the presence of the sender-side trash timestamp.
func SenderDeleted(deleted bool) Filter {
	return Filter{Key: FieldSenderDeletedAt, Value: deleted, Operator: OpExists}
}

// RecipientDeleted matches on the presence of the recipient-side trash timestamp.
func RecipientDeleted(deleted bool) Filter {
	return Filter{Key: FieldRecipientDeletedAt, Value: deleted, Operator: OpExists}
}

// SentBefore matches messages sent at or before the given time.
func SentBefore(t interface{}) Filter {
	return Filter{Key: FieldSentAt, Value: t, Operator: OpLessOrEqual}
}

// InboxFilters returns the filters selecting the user's inbox view.
func InboxFilters(userID string) []Filter {
	return []Filter{RecipientIs(userID), RecipientDeleted(false)}
}

// OutboxFilters returns the filters selecting the user's outbox view.
func OutboxFilters(userID string) []Filter {
	return []Filter{SenderIs(userID), SenderDeleted(false)}
}

// TrashFilters returns the filters selecting the user's trash view:
// the user's own side of the message is deleted, regardless of what the
// other participant did with their copy.
func TrashFilters(userID string) []Filter {
	return []Filter{AnyOf(
		AllOf(SenderIs(userID), SenderDeleted(true)),
		AllOf(RecipientIs(userID), RecipientDeleted(true)),
	)}
}
