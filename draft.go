package messages

import "context"

// Draft builds a send request fluently. Drafts are transient: nothing
// is persisted until Send.
type Draft struct {
	mbox *userMailbox
	req  SendRequest
}

// Compose starts a draft bound to this mailbox.
func (u *userMailbox) Compose() *Draft {
	return &Draft{mbox: u}
}

// To adds recipient names resolved at send time.
func (d *Draft) To(names ...string) *Draft {
	d.req.Recipients = append(d.req.Recipients, names...)
	return d
}

// ToIDs adds already-resolved recipient user IDs.
func (d *Draft) ToIDs(ids ...string) *Draft {
	d.req.RecipientIDs = append(d.req.RecipientIDs, ids...)
	return d
}

// Subject sets the subject.
func (d *Draft) Subject(subject string) *Draft {
	d.req.Subject = subject
	return d
}

// Body sets the body.
func (d *Draft) Body(body string) *Draft {
	d.req.Body = body
	return d
}

// InReplyTo threads the draft under the given message.
func (d *Draft) InReplyTo(parentID string) *Draft {
	d.req.ParentID = parentID
	return d
}

// Send validates and delivers the draft.
func (d *Draft) Send(ctx context.Context) ([]Message, error) {
	req := d.req
	return d.mbox.Send(ctx, &req)
}
