package messages

import (
	"context"
	"errors"
	"time"

	"github.com/rbaliyan/event/v3"

	"github.com/rbaliyan/messages/store"
)

// Event names published by the service.
const (
	EventMessageSent      = "message.sent"
	EventMessageRead      = "message.read"
	EventMessageReplied   = "message.replied"
	EventMessageDeleted   = "message.deleted"
	EventMessageUndeleted = "message.undeleted"
	EventMessagesPurged   = "messages.purged"
)

// MessageEvent is the payload for per-message lifecycle events.
type MessageEvent struct {
	// MessageID is the affected message.
	MessageID string `json:"message_id"`
	// SenderID is the message sender.
	SenderID string `json:"sender_id"`
	// RecipientID is the message recipient, empty when detached.
	RecipientID string `json:"recipient_id,omitempty"`
	// ParentID is set on reply events.
	ParentID string `json:"parent_id,omitempty"`
	// ActorID is the user whose action triggered the event.
	ActorID string `json:"actor_id,omitempty"`
	// Side is "sender" or "recipient" on delete and undelete events.
	Side string `json:"side,omitempty"`
	// At is when the action happened.
	At time.Time `json:"at"`
}

// PurgeEvent is the payload for purge completion events.
type PurgeEvent struct {
	// Deleted is the number of messages permanently removed.
	Deleted int64 `json:"deleted"`
	// Cutoff is the retention cutoff the purge used.
	Cutoff time.Time `json:"cutoff"`
	// Interrupted reports whether the purge stopped early.
	Interrupted bool `json:"interrupted"`
	// At is when the purge finished.
	At time.Time `json:"at"`
}

// ServiceEvents holds the typed events a service publishes.
// Subscribe to receive notifications; payloads are snapshots taken
// after the triggering operation committed.
type ServiceEvents struct {
	// MessageSent fires once per delivered message copy.
	MessageSent event.Event[MessageEvent]
	// MessageRead fires when a recipient first views a message.
	MessageRead event.Event[MessageEvent]
	// MessageReplied fires on the parent when a reply is sent.
	MessageReplied event.Event[MessageEvent]
	// MessageDeleted fires when a participant trashes their side.
	MessageDeleted event.Event[MessageEvent]
	// MessageUndeleted fires when a participant restores their side.
	MessageUndeleted event.Event[MessageEvent]
	// MessagesPurged fires after a purge run.
	MessagesPurged event.Event[PurgeEvent]
}

func newServiceEvents() *ServiceEvents {
	return &ServiceEvents{
		MessageSent:      event.New[MessageEvent](EventMessageSent),
		MessageRead:      event.New[MessageEvent](EventMessageRead),
		MessageReplied:   event.New[MessageEvent](EventMessageReplied),
		MessageDeleted:   event.New[MessageEvent](EventMessageDeleted),
		MessageUndeleted: event.New[MessageEvent](EventMessageUndeleted),
		MessagesPurged:   event.New[PurgeEvent](EventMessagesPurged),
	}
}

// register binds every event to the bus. Events already bound are
// left as-is so Connect stays idempotent after a partial failure.
func (e *ServiceEvents) register(ctx context.Context, bus *event.Bus) error {
	events := []func() error{
		func() error { return event.Register(ctx, bus, e.MessageSent) },
		func() error { return event.Register(ctx, bus, e.MessageRead) },
		func() error { return event.Register(ctx, bus, e.MessageReplied) },
		func() error { return event.Register(ctx, bus, e.MessageDeleted) },
		func() error { return event.Register(ctx, bus, e.MessageUndeleted) },
		func() error { return event.Register(ctx, bus, e.MessagesPurged) },
	}
	for _, reg := range events {
		if err := reg(); err != nil && !errors.Is(err, event.ErrAlreadyBound) {
			return err
		}
	}
	return nil
}

// messageEvent builds a lifecycle payload from a message snapshot.
func messageEvent(msg store.Message, actorID string, at time.Time) MessageEvent {
	return MessageEvent{
		MessageID:   msg.GetID(),
		SenderID:    msg.GetSenderID(),
		RecipientID: msg.GetRecipientID(),
		ParentID:    msg.GetParentID(),
		ActorID:     actorID,
		At:          at,
	}
}
