package messages

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Default content limits.
const (
	// DefaultMaxSubjectLength bounds the subject in characters.
	DefaultMaxSubjectLength = 140
	// DefaultMaxBodySize bounds the body in bytes.
	DefaultMaxBodySize = 64 * 1024
	// DefaultMaxRecipients bounds the recipient count per send.
	DefaultMaxRecipients = 100
)

// MessageLimits bounds message content. The zero value of a field means
// the default for that field.
type MessageLimits struct {
	// MaxSubjectLength is the maximum subject length in characters.
	MaxSubjectLength int
	// MaxBodySize is the maximum body size in bytes.
	MaxBodySize int
	// MaxRecipients is the maximum number of recipients per send.
	MaxRecipients int
}

// DefaultLimits returns the default content limits.
func DefaultLimits() MessageLimits {
	return MessageLimits{
		MaxSubjectLength: DefaultMaxSubjectLength,
		MaxBodySize:      DefaultMaxBodySize,
		MaxRecipients:    DefaultMaxRecipients,
	}
}

func (l MessageLimits) withDefaults() MessageLimits {
	d := DefaultLimits()
	if l.MaxSubjectLength <= 0 {
		l.MaxSubjectLength = d.MaxSubjectLength
	}
	if l.MaxBodySize <= 0 {
		l.MaxBodySize = d.MaxBodySize
	}
	if l.MaxRecipients <= 0 {
		l.MaxRecipients = d.MaxRecipients
	}
	return l
}

// ValidateSubject checks the subject against the default limits.
func ValidateSubject(subject string) error {
	return ValidateSubjectWithLimits(subject, DefaultLimits())
}

// ValidateSubjectWithLimits checks presence, length and content of a
// subject.
func ValidateSubjectWithLimits(subject string, limits MessageLimits) error {
	limits = limits.withDefaults()
	if strings.TrimSpace(subject) == "" {
		return ErrEmptySubject
	}
	if utf8.RuneCountInString(subject) > limits.MaxSubjectLength {
		return fmt.Errorf("%w: %d characters exceeds limit of %d",
			ErrSubjectTooLong, utf8.RuneCountInString(subject), limits.MaxSubjectLength)
	}
	if !utf8.ValidString(subject) {
		return fmt.Errorf("%w: subject is not valid UTF-8", ErrInvalidContent)
	}
	for _, r := range subject {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: subject contains control characters", ErrInvalidContent)
		}
	}
	return nil
}

// ValidateBody checks the body against the default limits.
func ValidateBody(body string) error {
	return ValidateBodyWithLimits(body, DefaultLimits())
}

// ValidateBodyWithLimits checks size and content of a body.
// Bodies allow newlines and tabs but no other control characters.
func ValidateBodyWithLimits(body string, limits MessageLimits) error {
	limits = limits.withDefaults()
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	if len(body) > limits.MaxBodySize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d",
			ErrBodyTooLarge, len(body), limits.MaxBodySize)
	}
	if !utf8.ValidString(body) {
		return fmt.Errorf("%w: body is not valid UTF-8", ErrInvalidContent)
	}
	for _, r := range body {
		if r == 0 {
			return fmt.Errorf("%w: body contains null bytes", ErrInvalidContent)
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return fmt.Errorf("%w: body contains control characters", ErrInvalidContent)
		}
	}
	return nil
}

// ValidateRecipientIDs checks a resolved, deduplicated recipient list.
func ValidateRecipientIDs(ids []string, limits MessageLimits) error {
	limits = limits.withDefaults()
	if len(ids) == 0 {
		return ErrEmptyRecipients
	}
	if len(ids) > limits.MaxRecipients {
		return fmt.Errorf("%w: %d recipients exceeds limit of %d",
			ErrTooManyRecipients, len(ids), limits.MaxRecipients)
	}
	for _, id := range ids {
		if !isValidUserID(id) {
			return fmt.Errorf("%w: %q", ErrInvalidRecipient, id)
		}
	}
	return nil
}

// isValidUserID rejects IDs that would break filters or event routing:
// empty strings, whitespace, control characters, and the separator
// characters used by storage backends.
func isValidUserID(id string) bool {
	if id == "" {
		return false
	}
	if strings.ContainsAny(id, "*:/\\ \t\n\r") {
		return false
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return utf8.ValidString(id)
}
