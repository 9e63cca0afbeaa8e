package store

import (
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestVisibility(t *testing.T) {
	now := time.Now().UTC()
	msg := &MessageData{
		ID:          "m1",
		SenderID:    "alice",
		RecipientID: "bob",
		SentAt:      now,
	}

	if !IsParticipant(msg, "alice") || !IsParticipant(msg, "bob") || IsParticipant(msg, "carol") {
		t.Error("participant check failed")
	}
	if !VisibleInInbox(msg, "bob") || VisibleInInbox(msg, "alice") {
		t.Error("inbox visibility failed")
	}
	if !VisibleInOutbox(msg, "alice") || VisibleInOutbox(msg, "bob") {
		t.Error("outbox visibility failed")
	}
	if VisibleInTrash(msg, "alice") || VisibleInTrash(msg, "bob") {
		t.Error("fresh message must not be in trash")
	}

	msg.RecipientDeletedAt = timePtr(now)
	if VisibleInInbox(msg, "bob") {
		t.Error("deleted message still visible in inbox")
	}
	if !VisibleInTrash(msg, "bob") {
		t.Error("deleted message missing from recipient trash")
	}
	if VisibleInTrash(msg, "alice") {
		t.Error("recipient delete leaked into sender trash")
	}
	if !VisibleInOutbox(msg, "alice") {
		t.Error("recipient delete must not hide the outbox copy")
	}
}

func TestPurgeEligible(t *testing.T) {
	now := time.Now().UTC()
	retention := 30 * 24 * time.Hour
	old := now.Add(-retention - time.Hour)
	fresh := now.Add(-time.Hour)

	tests := []struct {
		name      string
		sender    *time.Time
		recipient *time.Time
		want      bool
	}{
		{"both old", timePtr(old), timePtr(old), true},
		{"sender only", timePtr(old), nil, false},
		{"recipient only", nil, timePtr(old), false},
		{"one side fresh", timePtr(old), timePtr(fresh), false},
		{"both fresh", timePtr(fresh), timePtr(fresh), false},
		{"neither", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &MessageData{
				ID:                 "m1",
				SenderID:           "alice",
				RecipientID:        "bob",
				SentAt:             old,
				SenderDeletedAt:    tt.sender,
				RecipientDeletedAt: tt.recipient,
			}
			if got := PurgeEligible(msg, now, retention); got != tt.want {
				t.Errorf("PurgeEligible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessageClone(t *testing.T) {
	now := time.Now().UTC()
	orig := &MessageData{
		ID:          "m1",
		SenderID:    "alice",
		RecipientID: "bob",
		Subject:     "s",
		Body:        "b",
		SentAt:      now,
		ReadAt:      timePtr(now),
	}
	clone := orig.Clone()
	clone.ReadAt = nil
	clone.Subject = "changed"
	if orig.ReadAt == nil || orig.Subject != "s" {
		t.Error("Clone must not share state with the original")
	}

	// Getters hand out copies of timestamp pointers.
	got := orig.GetReadAt()
	*got = got.Add(time.Hour)
	if !orig.ReadAt.Equal(now) {
		t.Error("GetReadAt leaked internal state")
	}
}

func TestDeletedAt(t *testing.T) {
	now := time.Now().UTC()
	msg := &MessageData{SenderDeletedAt: timePtr(now)}
	if msg.DeletedAt(SideSender) == nil {
		t.Error("sender side should report deleted")
	}
	if msg.DeletedAt(SideRecipient) != nil {
		t.Error("recipient side should report nil")
	}
	if SideSender.String() != "sender" || SideRecipient.String() != "recipient" {
		t.Error("side names wrong")
	}
}
