package messages

import (
	"context"
	"strings"

	"github.com/rbaliyan/messages/store"
)

// MessageActions are the operations a message handle can perform on
// behalf of the mailbox it was read through.
type MessageActions interface {
	// Delete moves the owner's side of this message to trash.
	Delete(ctx context.Context) (Message, error)
	// Undelete restores the owner's side of this message from trash.
	Undelete(ctx context.Context) (Message, error)
	// Reply sends a response to the message sender and threads it
	// under this message.
	Reply(ctx context.Context, body string) (Message, error)
}

// Message is a store message bound to the mailbox that read it.
type Message interface {
	store.Message
	MessageActions
}

// message binds a snapshot to the owning user's mailbox.
type message struct {
	store.Message
	mbox *userMailbox
}

func (m *message) Delete(ctx context.Context) (Message, error) {
	return m.mbox.Delete(ctx, m.GetID())
}

func (m *message) Undelete(ctx context.Context) (Message, error) {
	return m.mbox.Undelete(ctx, m.GetID())
}

func (m *message) Reply(ctx context.Context, body string) (Message, error) {
	sent, err := m.mbox.Send(ctx, &SendRequest{
		RecipientIDs: []string{m.GetSenderID()},
		Subject:      replySubject(m.GetSubject()),
		Body:         body,
		ParentID:     m.GetID(),
	})
	if err != nil {
		return nil, err
	}
	return sent[0], nil
}

// replySubject prefixes the subject once, leaving existing "Re: "
// prefixes alone.
func replySubject(subject string) string {
	const prefix = "Re: "
	if strings.HasPrefix(subject, prefix) {
		return subject
	}
	return prefix + subject
}

func (u *userMailbox) wrap(msg store.Message) Message {
	return &message{Message: msg, mbox: u}
}

func (u *userMailbox) wrapAll(msgs []store.Message) []Message {
	wrapped := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		wrapped = append(wrapped, u.wrap(msg))
	}
	return wrapped
}

func (u *userMailbox) wrapList(list *store.MessageList) *MessageList {
	return &MessageList{
		Messages:   u.wrapAll(list.Messages),
		Total:      list.Total,
		HasMore:    list.HasMore,
		NextCursor: list.NextCursor,
	}
}
