// Package store defines the persistence contract for user-to-user messages
// and the filter DSL shared by its implementations.
//
// # Concurrency Model
//
// Stores use no distributed locks. Every mutation is a single atomic
// operation with an explicit precondition (set-if-nil, match-then-update),
// and every read returns an isolated snapshot. Two processes racing on the
// same message both succeed or one observes ErrConflict; neither blocks.
// This keeps the implementations portable across the in-memory, PostgreSQL
// and MongoDB backends without coordination infrastructure.
//
// # Soft Delete
//
// A message carries two independent trash timestamps, one per participant.
// Stores never interpret them beyond storage and filtering; visibility
// rules live with the caller. Hard removal happens only through
// HardDelete and DeleteExpired.
package store

import (
	"context"
	"time"
)

// SortOrder directions for ListOptions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListOptions controls pagination and ordering of Find results.
type ListOptions struct {
	// Limit caps the page size. Zero means store default.
	Limit int
	// Offset skips the first N results. Ignored when StartAfter is set.
	Offset int
	// SortBy is the field key to order by. Defaults to FieldSentAt.
	SortBy string
	// SortOrder is SortAsc or SortDesc. Defaults to SortDesc.
	SortOrder string
	// StartAfter resumes after the message with this ID (keyset pagination).
	StartAfter string
}

// Connector manages the store lifecycle.
type Connector interface {
	// Connect establishes the backing connection and prepares schema.
	Connect(ctx context.Context) error
	// Close releases the backing connection.
	Close(ctx context.Context) error
	// Connected reports whether the store is usable.
	Connected() bool
}

// Reader provides message lookups.
type Reader interface {
	// Get returns the message with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (Message, error)
	// Find returns messages matching all filters, paginated per opts.
	Find(ctx context.Context, filters []Filter, opts ListOptions) (*MessageList, error)
	// Count returns the number of messages matching all filters.
	Count(ctx context.Context, filters []Filter) (int64, error)
}

// Writer provides message creation and permanent removal.
type Writer interface {
	// Create persists a new message. The caller assigns the ID.
	Create(ctx context.Context, msg *MessageData) error
	// CreateMessages persists a batch atomically: either every message
	// is stored or none is, with ErrTransactionFailed on failure.
	CreateMessages(ctx context.Context, msgs []*MessageData) error
	// HardDelete permanently removes a message, or ErrNotFound.
	HardDelete(ctx context.Context, id string) error
	// DeleteExpired permanently removes messages both of whose trash
	// timestamps are at or before cutoff, up to limit messages, and
	// returns the number removed. limit <= 0 means no limit.
	DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// Mutator provides the per-field conditional updates the message
// lifecycle is built on.
type Mutator interface {
	// MarkRead sets the read timestamp if it is not already set.
	// Returns true when this call set it, false when it was already set.
	// ErrNotFound when no such message exists.
	MarkRead(ctx context.Context, id string, at time.Time) (bool, error)
	// MarkReplied sets the replied timestamp unconditionally.
	MarkReplied(ctx context.Context, id string, at time.Time) error
	// SetDeleted sets (non-nil at) or clears (nil at) one side's trash
	// timestamp.
	SetDeleted(ctx context.Context, id string, side Side, at *time.Time) error
	// DetachRecipient clears the recipient reference, keeping the
	// message visible to the sender. Used when an account is removed.
	DetachRecipient(ctx context.Context, id string) error
}

// StatsProvider computes per-user mailbox counters in the store when the
// backend can do it cheaper than four separate counts.
type StatsProvider interface {
	// MailboxStats returns the user's folder and unread counters.
	MailboxStats(ctx context.Context, userID string) (*MailboxStats, error)
}

// Store is the full persistence contract required by the messages service.
type Store interface {
	Connector
	Reader
	Writer
	Mutator
	StatsProvider
}
