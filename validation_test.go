package messages

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		wantErr error
	}{
		{"empty", "", ErrEmptySubject},
		{"whitespace only", "  \t ", ErrEmptySubject},
		{"plain", "hello there", nil},
		{"unicode", "héllo wörld", nil},
		{"max length", strings.Repeat("a", DefaultMaxSubjectLength), nil},
		{"too long", strings.Repeat("a", DefaultMaxSubjectLength+1), ErrSubjectTooLong},
		{"multibyte counts runes", strings.Repeat("é", DefaultMaxSubjectLength), nil},
		{"control char", "hello\x00there", ErrInvalidContent},
		{"newline rejected", "hello\nthere", ErrInvalidContent},
		{"invalid utf8", "hello\xffthere", ErrInvalidContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSubject(tt.subject)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateSubject(%q) = %v, want %v", tt.subject, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"plain", "hello", nil},
		{"multiline", "hello\nthere\r\n\ttabbed", nil},
		{"empty", "", ErrEmptyBody},
		{"whitespace only", "   \n\t ", ErrEmptyBody},
		{"null byte", "hel\x00lo", ErrInvalidContent},
		{"control char", "hel\x01lo", ErrInvalidContent},
		{"invalid utf8", "hel\xfflo", ErrInvalidContent},
		{"too large", strings.Repeat("a", DefaultMaxBodySize+1), ErrBodyTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBody(tt.body)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateBody = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateWithCustomLimits(t *testing.T) {
	limits := MessageLimits{MaxSubjectLength: 5, MaxBodySize: 10, MaxRecipients: 2}

	if err := ValidateSubjectWithLimits("hello", limits); err != nil {
		t.Fatalf("subject at limit: %v", err)
	}
	if err := ValidateSubjectWithLimits("hello!", limits); !errors.Is(err, ErrSubjectTooLong) {
		t.Fatalf("subject over limit: %v", err)
	}
	if err := ValidateBodyWithLimits("0123456789x", limits); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("body over limit: %v", err)
	}
	if err := ValidateRecipientIDs([]string{"a", "b", "c"}, limits); !errors.Is(err, ErrTooManyRecipients) {
		t.Fatalf("recipients over limit: %v", err)
	}
}

func TestValidateRecipientIDs(t *testing.T) {
	limits := DefaultLimits()

	if err := ValidateRecipientIDs(nil, limits); !errors.Is(err, ErrEmptyRecipients) {
		t.Fatalf("empty: %v", err)
	}
	if err := ValidateRecipientIDs([]string{"u-alice", "u-bob"}, limits); err != nil {
		t.Fatalf("valid: %v", err)
	}
	for _, bad := range []string{"", "has space", "star*", "colon:sep", "slash/sep", "back\\slash", "ctrl\x01"} {
		if err := ValidateRecipientIDs([]string{bad}, limits); !errors.Is(err, ErrInvalidRecipient) {
			t.Fatalf("ValidateRecipientIDs(%q) = %v, want ErrInvalidRecipient", bad, err)
		}
	}
}
