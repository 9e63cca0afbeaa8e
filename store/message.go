package store

import "time"

// Side identifies which participant of a message an operation applies to.
// Sender and recipient delete state are tracked independently, so every
// per-side mutation names the side it touches.
type Side int

const (
	// SideSender addresses the sender's copy of the delete state.
	SideSender Side = iota
	// SideRecipient addresses the recipient's copy of the delete state.
	SideRecipient
)

// String returns the side name for logs and errors.
func (s Side) String() string {
	switch s {
	case SideSender:
		return "sender"
	case SideRecipient:
		return "recipient"
	default:
		return "unknown"
	}
}

// Message provides read-only access to a stored message.
// Implementations must return defensive copies of mutable state;
// callers never observe later store writes through a Message.
type Message interface {
	// GetID returns the unique message ID.
	GetID() string
	// GetSenderID returns the user ID of the sender.
	GetSenderID() string
	// GetRecipientID returns the user ID of the recipient, or empty if the
	// recipient was detached (account removal).
	GetRecipientID() string
	// GetParentID returns the ID of the message this one replies to, or empty.
	GetParentID() string
	// GetSubject returns the message subject.
	GetSubject() string
	// GetBody returns the message body.
	GetBody() string
	// GetSentAt returns the send timestamp.
	GetSentAt() time.Time
	// GetReadAt returns when the recipient first viewed the message, or nil.
	GetReadAt() *time.Time
	// GetRepliedAt returns when the recipient last replied, or nil.
	GetRepliedAt() *time.Time
	// GetSenderDeletedAt returns when the sender moved the message to trash, or nil.
	GetSenderDeletedAt() *time.Time
	// GetRecipientDeletedAt returns when the recipient moved the message to trash, or nil.
	GetRecipientDeletedAt() *time.Time
}

// MessageData is the concrete message record stores persist.
type MessageData struct {
	ID                 string     `json:"id" db:"id" bson:"_id"`
	SenderID           string     `json:"sender_id" db:"sender_id" bson:"sender_id"`
	RecipientID        string     `json:"recipient_id,omitempty" db:"recipient_id" bson:"recipient_id,omitempty"`
	ParentID           string     `json:"parent_id,omitempty" db:"parent_id" bson:"parent_id,omitempty"`
	Subject            string     `json:"subject" db:"subject" bson:"subject"`
	Body               string     `json:"body" db:"body" bson:"body"`
	SentAt             time.Time  `json:"sent_at" db:"sent_at" bson:"sent_at"`
	ReadAt             *time.Time `json:"read_at,omitempty" db:"read_at" bson:"read_at,omitempty"`
	RepliedAt          *time.Time `json:"replied_at,omitempty" db:"replied_at" bson:"replied_at,omitempty"`
	SenderDeletedAt    *time.Time `json:"sender_deleted_at,omitempty" db:"sender_deleted_at" bson:"sender_deleted_at,omitempty"`
	RecipientDeletedAt *time.Time `json:"recipient_deleted_at,omitempty" db:"recipient_deleted_at" bson:"recipient_deleted_at,omitempty"`
}

// GetID returns the unique message ID.
func (m *MessageData) GetID() string { return m.ID }

// GetSenderID returns the user ID of the sender.
func (m *MessageData) GetSenderID() string { return m.SenderID }

// GetRecipientID returns the user ID of the recipient, or empty if detached.
func (m *MessageData) GetRecipientID() string { return m.RecipientID }

// GetParentID returns the parent message ID, or empty.
func (m *MessageData) GetParentID() string { return m.ParentID }

// GetSubject returns the message subject.
func (m *MessageData) GetSubject() string { return m.Subject }

// GetBody returns the message body.
func (m *MessageData) GetBody() string { return m.Body }

// GetSentAt returns the send timestamp.
func (m *MessageData) GetSentAt() time.Time { return m.SentAt }

// GetReadAt returns the first-view timestamp, or nil.
func (m *MessageData) GetReadAt() *time.Time { return cloneTime(m.ReadAt) }

// GetRepliedAt returns the last-reply timestamp, or nil.
func (m *MessageData) GetRepliedAt() *time.Time { return cloneTime(m.RepliedAt) }

// GetSenderDeletedAt returns the sender-side trash timestamp, or nil.
func (m *MessageData) GetSenderDeletedAt() *time.Time { return cloneTime(m.SenderDeletedAt) }

// GetRecipientDeletedAt returns the recipient-side trash timestamp, or nil.
func (m *MessageData) GetRecipientDeletedAt() *time.Time { return cloneTime(m.RecipientDeletedAt) }

// Clone returns a deep copy of the message data.
func (m *MessageData) Clone() *MessageData {
	if m == nil {
		return nil
	}
	c := *m
	c.ReadAt = cloneTime(m.ReadAt)
	c.RepliedAt = cloneTime(m.RepliedAt)
	c.SenderDeletedAt = cloneTime(m.SenderDeletedAt)
	c.RecipientDeletedAt = cloneTime(m.RecipientDeletedAt)
	return &c
}

// DeletedAt returns the trash timestamp for the given side, or nil.
func (m *MessageData) DeletedAt(side Side) *time.Time {
	if side == SideSender {
		return cloneTime(m.SenderDeletedAt)
	}
	return cloneTime(m.RecipientDeletedAt)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// MessageList is a page of messages with pagination metadata.
type MessageList struct {
	// Messages holds the page contents in query order.
	Messages []Message
	// Total is the number of matching messages across all pages,
	// or -1 when the store did not compute it.
	Total int64
	// HasMore reports whether another page exists after this one.
	HasMore bool
	// NextCursor is the ID of the last message on this page, usable
	// as ListOptions.StartAfter for the next page. Empty when HasMore
	// is false.
	NextCursor string
}

// IsParticipant reports whether userID is the sender or recipient of msg.
func IsParticipant(msg Message, userID string) bool {
	if userID == "" {
		return false
	}
	return msg.GetSenderID() == userID || msg.GetRecipientID() == userID
}

// VisibleInInbox reports whether msg appears in the recipient's inbox:
// the user is the recipient and has not moved the message to trash.
func VisibleInInbox(msg Message, userID string) bool {
	return msg.GetRecipientID() == userID && msg.GetRecipientDeletedAt() == nil
}

// VisibleInOutbox reports whether msg appears in the sender's outbox:
// the user is the sender and has not moved the message to trash.
func VisibleInOutbox(msg Message, userID string) bool {
	return msg.GetSenderID() == userID && msg.GetSenderDeletedAt() == nil
}

// VisibleInTrash reports whether msg appears in the user's trash:
// the user's own side of the message is deleted. A message deleted only
// by the other participant stays out of this user's trash.
func VisibleInTrash(msg Message, userID string) bool {
	if msg.GetSenderID() == userID && msg.GetSenderDeletedAt() != nil {
		return true
	}
	if msg.GetRecipientID() == userID && msg.GetRecipientDeletedAt() != nil {
		return true
	}
	return false
}

// PurgeEligible reports whether msg can be permanently removed: both
// participants deleted their side, and both deletions are at least
// retention old at the given reference time.
func PurgeEligible(msg Message, now time.Time, retention time.Duration) bool {
	sd := msg.GetSenderDeletedAt()
	rd := msg.GetRecipientDeletedAt()
	if sd == nil || rd == nil {
		return false
	}
	cutoff := now.Add(-retention)
	return !sd.After(cutoff) && !rd.After(cutoff)
}
