package store

import "errors"

// Sentinel errors for store implementations.
// Use errors.Is() to check for these errors.
var (
	// ErrNotFound is returned when a message cannot be found.
	ErrNotFound = errors.New("store: message not found")

	// ErrInvalidID is returned when a message ID is malformed.
	ErrInvalidID = errors.New("store: invalid id")

	// ErrNotConnected is returned when operations are attempted before Connect().
	ErrNotConnected = errors.New("store: not connected")

	// ErrAlreadyConnected is returned when Connect() is called twice.
	ErrAlreadyConnected = errors.New("store: already connected")

	// ErrFilterInvalid is returned when a filter cannot be translated to a query.
	ErrFilterInvalid = errors.New("store: invalid filter")

	// ErrConflict is returned when a conditional update lost a race with a
	// concurrent writer. Callers may retry.
	ErrConflict = errors.New("store: conflict")

	// ErrTransactionFailed is returned when a batch write cannot be committed.
	// No messages from the batch are persisted when this is returned.
	ErrTransactionFailed = errors.New("store: transaction failed")
)

// IsNotFound checks if the error indicates a missing message.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidID checks if the error indicates a malformed ID.
func IsInvalidID(err error) bool {
	return errors.Is(err, ErrInvalidID)
}

// IsNotConnected checks if the error indicates a disconnected store.
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

// IsConflict checks if the error indicates a lost write race.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
