package store

import (
	"errors"
	"testing"
)

func TestFilterValidate(t *testing.T) {
	valid := []Filter{
		SenderIs("u1"),
		RecipientIs("u1"),
		ParticipantIs("u1"),
		ParentIs("m1"),
		IDIn("m1", "m2"),
		Unread(),
		SenderDeleted(true),
		RecipientDeleted(false),
		Where(FieldSubject, OpNotEqual, "x"),
		AnyOf(AllOf(SenderIs("u1"), SenderDeleted(true)), RecipientIs("u1")),
	}
	for _, f := range valid {
		if err := f.Validate(); err != nil {
			t.Errorf("Validate(%+v) = %v", f, err)
		}
	}

	invalid := []Filter{
		Where("no_such_field", OpEqual, "x"),
		Where(FieldID, "between", "x"),
		AnyOf(),
		AllOf(),
		AnyOf(AnyOf(SenderIs("u1"))),
		AllOf(AnyOf(SenderIs("u1"))),
		AllOf(AllOf(SenderIs("u1"))),
		AnyOf(Where("bogus", OpEqual, "x")),
	}
	for _, f := range invalid {
		if err := f.Validate(); !errors.Is(err, ErrFilterInvalid) {
			t.Errorf("Validate(%+v) = %v, want ErrFilterInvalid", f, err)
		}
	}
}

func TestValidateFilters(t *testing.T) {
	if err := ValidateFilters(InboxFilters("u1")); err != nil {
		t.Errorf("inbox filters: %v", err)
	}
	if err := ValidateFilters(OutboxFilters("u1")); err != nil {
		t.Errorf("outbox filters: %v", err)
	}
	if err := ValidateFilters(TrashFilters("u1")); err != nil {
		t.Errorf("trash filters: %v", err)
	}
	bad := []Filter{SenderIs("u1"), Where("bogus", OpEqual, 1)}
	if err := ValidateFilters(bad); !errors.Is(err, ErrFilterInvalid) {
		t.Errorf("ValidateFilters = %v, want ErrFilterInvalid", err)
	}
}

func TestFilterNested(t *testing.T) {
	plain := SenderIs("u1")
	if plain.IsCombinator() || plain.Nested() != nil {
		t.Error("plain filter must not report nesting")
	}

	combined := AnyOf(SenderIs("u1"), RecipientIs("u1"))
	if !combined.IsCombinator() {
		t.Error("AnyOf must be a combinator")
	}
	if got := len(combined.Nested()); got != 2 {
		t.Errorf("nested = %d, want 2", got)
	}
}
