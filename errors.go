package messages

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rbaliyan/messages/store"
)

// Sentinel errors for the messages package.
// Use errors.Is() to check for these errors.
//
// Errors wrap their store-level counterparts where applicable, so
// errors.Is(err, messages.ErrNotFound) matches both package-level and
// store-level "not found" errors.
var (
	// ErrNotFound is returned when a message cannot be found, or when the
	// caller is not a participant of an existing message. Unrelated users
	// cannot distinguish "does not exist" from "not yours".
	// Wraps store.ErrNotFound for consistent error checking.
	ErrNotFound = fmt.Errorf("messages: %w", store.ErrNotFound)

	// ErrForbidden is returned when a participant attempts an operation
	// their role does not allow.
	ErrForbidden = errors.New("messages: forbidden")

	// ErrInvalidMessage is returned for message validation failures.
	ErrInvalidMessage = errors.New("messages: invalid message")

	// ErrEmptyRecipients is returned when no recipients are provided.
	ErrEmptyRecipients = errors.New("messages: empty recipients")

	// ErrEmptySubject is returned when the message subject is empty.
	ErrEmptySubject = errors.New("messages: empty subject")

	// ErrEmptyBody is returned when the message body is empty.
	ErrEmptyBody = errors.New("messages: empty body")

	// ErrSubjectTooLong is returned when subject exceeds the limit.
	ErrSubjectTooLong = errors.New("messages: subject too long")

	// ErrBodyTooLarge is returned when body exceeds the limit.
	ErrBodyTooLarge = errors.New("messages: body too large")

	// ErrInvalidContent is returned when subject or body contains invalid
	// characters.
	ErrInvalidContent = errors.New("messages: invalid content")

	// ErrTooManyRecipients is returned when recipient count exceeds the limit.
	ErrTooManyRecipients = errors.New("messages: too many recipients")

	// ErrUnknownRecipient is returned when a recipient name does not resolve.
	ErrUnknownRecipient = errors.New("messages: unknown recipient")

	// ErrInvalidRecipient is returned when a recipient ID is invalid.
	ErrInvalidRecipient = errors.New("messages: invalid recipient")

	// ErrInvalidUserID is returned when a user ID contains invalid characters.
	ErrInvalidUserID = errors.New("messages: invalid user id")

	// ErrAlreadyDeleted is returned when deleting a message already in
	// the caller's trash.
	ErrAlreadyDeleted = errors.New("messages: already deleted")

	// ErrNotDeleted is returned when restoring a message not in the
	// caller's trash.
	ErrNotDeleted = errors.New("messages: not deleted")

	// ErrStoreRequired is returned when no store is configured.
	ErrStoreRequired = errors.New("messages: store is required")

	// ErrResolverRequired is returned when sending by name without a
	// configured resolver.
	ErrResolverRequired = errors.New("messages: resolver is required")

	// ErrDirectoryRequired is returned when broadcasting without a
	// configured directory.
	ErrDirectoryRequired = errors.New("messages: directory is required")

	// ErrInvalidBroadcast is returned when a broadcast request names
	// neither or both of a group and all users.
	ErrInvalidBroadcast = errors.New("messages: invalid broadcast request")

	// ErrNotConnected is returned when operations are attempted before Connect().
	// Wraps store.ErrNotConnected for consistent error checking.
	ErrNotConnected = fmt.Errorf("messages: %w", store.ErrNotConnected)

	// ErrAlreadyConnected is returned when Connect() is called twice.
	// Wraps store.ErrAlreadyConnected for consistent error checking.
	ErrAlreadyConnected = fmt.Errorf("messages: %w", store.ErrAlreadyConnected)

	// ErrInvalidID is returned when an invalid message ID is provided.
	// Wraps store.ErrInvalidID for consistent error checking.
	ErrInvalidID = fmt.Errorf("messages: %w", store.ErrInvalidID)

	// ErrConflict is returned when an update lost a race with a concurrent
	// writer and retries were exhausted.
	// Wraps store.ErrConflict for consistent error checking.
	ErrConflict = fmt.Errorf("messages: %w", store.ErrConflict)

	// ErrIteratorDone is returned by Iterator.Next after the last message.
	ErrIteratorDone = errors.New("messages: iterator done")
)

// ValidationError provides details about a validation failure.
type ValidationError struct {
	Field   string // The field that failed validation
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("messages: validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidMessage
}

// UnknownRecipientsError lists every recipient name that did not resolve.
// Sending is all-or-nothing: one bad name fails the whole request, and
// the sender sees the complete list in a single round trip.
type UnknownRecipientsError struct {
	// Names holds the unresolvable recipient names in input order.
	Names []string
}

func (e *UnknownRecipientsError) Error() string {
	return fmt.Sprintf("messages: unknown recipients: %s", strings.Join(e.Names, ", "))
}

func (e *UnknownRecipientsError) Unwrap() error {
	return ErrUnknownRecipient
}

// IsUnknownRecipients checks if the error reports unresolvable
// recipients and returns the details.
func IsUnknownRecipients(err error) (*UnknownRecipientsError, bool) {
	var ure *UnknownRecipientsError
	if errors.As(err, &ure) {
		return ure, true
	}
	return nil, false
}

// EventPublishError is returned when event publishing fails but the
// operation succeeded. The message was sent/read/deleted; only the
// notification failed.
type EventPublishError struct {
	Event     string // The event name (e.g., "message.sent")
	MessageID string // The message ID the event was for
	Err       error  // The underlying publish error
}

func (e *EventPublishError) Error() string {
	return fmt.Sprintf("messages: event %s publish failed for message %s: %v", e.Event, e.MessageID, e.Err)
}

func (e *EventPublishError) Unwrap() error {
	return e.Err
}

// IsEventPublishError checks if the error is an event publish error and
// returns details. Useful when event errors are fatal but the caller
// still needs to know the operation itself succeeded.
func IsEventPublishError(err error) (*EventPublishError, bool) {
	var epe *EventPublishError
	if errors.As(err, &epe) {
		return epe, true
	}
	return nil, false
}

// IsRetryableError determines if an error is retryable.
// Returns true for transient errors, false for permanent ones.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	permanent := []error{
		ErrNotFound,
		ErrForbidden,
		ErrInvalidMessage,
		ErrEmptyRecipients,
		ErrEmptySubject,
		ErrEmptyBody,
		ErrSubjectTooLong,
		ErrBodyTooLarge,
		ErrInvalidContent,
		ErrTooManyRecipients,
		ErrUnknownRecipient,
		ErrInvalidRecipient,
		ErrInvalidUserID,
		ErrAlreadyDeleted,
		ErrNotDeleted,
		ErrInvalidBroadcast,
		ErrInvalidID,
		store.ErrFilterInvalid,
	}
	for _, perm := range permanent {
		if errors.Is(err, perm) {
			return false
		}
	}

	retryable := []error{
		ErrConflict,
		ErrNotConnected,
		store.ErrTransactionFailed,
	}
	for _, r := range retryable {
		if errors.Is(err, r) {
			return true
		}
	}

	// Unknown errors default to retryable: they are most likely
	// transient network or timeout failures.
	return true
}
