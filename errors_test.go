package messages

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rbaliyan/messages/store"
)

func TestErrorWrapping(t *testing.T) {
	// Package-level sentinels match their store-level counterparts.
	if !errors.Is(ErrNotFound, store.ErrNotFound) {
		t.Error("ErrNotFound must wrap store.ErrNotFound")
	}
	if !errors.Is(ErrNotConnected, store.ErrNotConnected) {
		t.Error("ErrNotConnected must wrap store.ErrNotConnected")
	}
	if !errors.Is(ErrInvalidID, store.ErrInvalidID) {
		t.Error("ErrInvalidID must wrap store.ErrInvalidID")
	}
	if !errors.Is(ErrConflict, store.ErrConflict) {
		t.Error("ErrConflict must wrap store.ErrConflict")
	}

	// Wrapping with context keeps the chain intact.
	wrapped := fmt.Errorf("operation failed: %w", ErrNotFound)
	if !errors.Is(wrapped, ErrNotFound) || !errors.Is(wrapped, store.ErrNotFound) {
		t.Error("wrapped error lost its chain")
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "subject", Message: "too long"}
	if !errors.Is(err, ErrInvalidMessage) {
		t.Error("ValidationError must unwrap to ErrInvalidMessage")
	}
	var ve *ValidationError
	wrapped := fmt.Errorf("send: %w", err)
	if !errors.As(wrapped, &ve) || ve.Field != "subject" {
		t.Errorf("errors.As failed: %+v", ve)
	}
}

func TestUnknownRecipientsError(t *testing.T) {
	err := &UnknownRecipientsError{Names: []string{"ghost", "phantom"}}
	if !errors.Is(err, ErrUnknownRecipient) {
		t.Error("must unwrap to ErrUnknownRecipient")
	}

	wrapped := fmt.Errorf("send: %w", err)
	ure, ok := IsUnknownRecipients(wrapped)
	if !ok {
		t.Fatal("IsUnknownRecipients did not match")
	}
	if len(ure.Names) != 2 || ure.Names[0] != "ghost" {
		t.Errorf("names = %v", ure.Names)
	}
	if _, ok := IsUnknownRecipients(ErrNotFound); ok {
		t.Error("IsUnknownRecipients matched an unrelated error")
	}
}

func TestEventPublishError(t *testing.T) {
	cause := errors.New("transport down")
	err := &EventPublishError{Event: EventMessageSent, MessageID: "m1", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("must unwrap to the publish cause")
	}
	epe, ok := IsEventPublishError(fmt.Errorf("send: %w", err))
	if !ok || epe.Event != EventMessageSent || epe.MessageID != "m1" {
		t.Errorf("IsEventPublishError = %+v, %v", epe, ok)
	}
}

func TestIsRetryableError(t *testing.T) {
	permanent := []error{
		ErrNotFound,
		ErrForbidden,
		ErrAlreadyDeleted,
		ErrNotDeleted,
		ErrInvalidBroadcast,
		&UnknownRecipientsError{Names: []string{"x"}},
		&ValidationError{Field: "body", Message: "empty"},
		fmt.Errorf("wrapped: %w", ErrSubjectTooLong),
	}
	for _, err := range permanent {
		if IsRetryableError(err) {
			t.Errorf("IsRetryableError(%v) = true, want false", err)
		}
	}

	retryable := []error{
		ErrConflict,
		ErrNotConnected,
		store.ErrTransactionFailed,
		errors.New("connection reset by peer"),
	}
	for _, err := range retryable {
		if !IsRetryableError(err) {
			t.Errorf("IsRetryableError(%v) = false, want true", err)
		}
	}

	if IsRetryableError(nil) {
		t.Error("IsRetryableError(nil) must be false")
	}
}
