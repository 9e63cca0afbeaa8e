package messages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rbaliyan/messages/resolver"
	"github.com/rbaliyan/messages/store"
)

// Send delivers one message copy per recipient.
//
// The pipeline is all-or-nothing up to persistence: recipient names are
// resolved first and every unresolvable name fails the request in one
// UnknownRecipientsError; content is validated next; then all copies
// are created in a single atomic batch. When the send is a reply, the
// parent's replied timestamp is set before the copies are created, so a
// parent never shows replied without its reply existing. Event publish
// failures after persistence never undo the send.
func (u *userMailbox) Send(ctx context.Context, req *SendRequest) (msgs []Message, retErr error) {
	if err := u.checkAccess(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidMessage)
	}

	ctx, end := u.svc.otel.startOp(ctx, "send")
	defer func() { end(retErr) }()

	recipientIDs, err := u.resolveRecipients(ctx, req)
	if err != nil {
		return nil, err
	}
	limits := u.svc.opts.limits
	if err := ValidateRecipientIDs(recipientIDs, limits); err != nil {
		return nil, err
	}
	if err := ValidateSubjectWithLimits(req.Subject, limits); err != nil {
		return nil, err
	}
	if err := ValidateBodyWithLimits(req.Body, limits); err != nil {
		return nil, err
	}

	if err := u.svc.sendSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("messages: send: %w", err)
	}
	defer u.svc.sendSem.Release(1)

	hooks := u.svc.plugins.sendHooks()
	for _, h := range hooks {
		if err := h.BeforeSend(ctx, req); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()

	// Reply threading: stamp the parent first. If creating the copies
	// fails afterwards the parent briefly shows replied without a reply,
	// which the next successful retry makes true again.
	var parent store.Message
	if req.ParentID != "" {
		parent, err = u.getOwned(ctx, req.ParentID)
		if err != nil {
			return nil, err
		}
		if err := u.svc.store.MarkReplied(ctx, req.ParentID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("messages: mark replied: %w", err)
		}
	}

	batch := make([]*store.MessageData, 0, len(recipientIDs))
	for _, recipientID := range recipientIDs {
		batch = append(batch, &store.MessageData{
			ID:          uuid.NewString(),
			SenderID:    u.userID,
			RecipientID: recipientID,
			ParentID:    req.ParentID,
			Subject:     req.Subject,
			Body:        req.Body,
			SentAt:      now,
		})
	}
	if err := u.svc.store.CreateMessages(ctx, batch); err != nil {
		return nil, fmt.Errorf("messages: send: %w", err)
	}

	u.svc.stats.invalidate(u.userID)
	for _, recipientID := range recipientIDs {
		u.svc.stats.invalidate(recipientID)
	}

	// Persistence is done; from here only reporting can fail.
	var eventErr error
	for _, data := range batch {
		ev := messageEvent(data, u.userID, now)
		if err := publish(ctx, u.svc, u.svc.events.MessageSent, EventMessageSent, data.ID, ev); err != nil && eventErr == nil {
			eventErr = err
		}
	}
	if parent != nil {
		ev := messageEvent(parent, u.userID, now)
		if err := publish(ctx, u.svc, u.svc.events.MessageReplied, EventMessageReplied, parent.GetID(), ev); err != nil && eventErr == nil {
			eventErr = err
		}
	}

	sent := make([]Message, 0, len(batch))
	for _, data := range batch {
		sent = append(sent, u.wrap(data))
	}
	for _, h := range hooks {
		h.AfterSend(ctx, req, sent)
	}
	if eventErr != nil {
		return sent, eventErr
	}
	return sent, nil
}

// resolveRecipients maps request names through the resolver, merges in
// direct IDs, and removes duplicates while keeping input order.
func (u *userMailbox) resolveRecipients(ctx context.Context, req *SendRequest) ([]string, error) {
	var ids []string
	if len(req.Recipients) > 0 {
		if u.svc.opts.resolver == nil {
			return nil, ErrResolverRequired
		}
		found, unknown, err := u.svc.opts.resolver.Resolve(ctx, req.Recipients)
		if err != nil {
			return nil, fmt.Errorf("messages: resolve recipients: %w", err)
		}
		if len(unknown) > 0 {
			return nil, &UnknownRecipientsError{Names: unknown}
		}
		for _, user := range found {
			ids = append(ids, user.ID)
		}
	}
	ids = append(ids, req.RecipientIDs...)

	seen := make(map[string]bool, len(ids))
	deduped := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			deduped = append(deduped, id)
		}
	}
	return deduped, nil
}

// SendBroadcast delivers an announcement to a group or to every user.
// The primary recipient, when named, leads the fan-out; other members
// receive their own copies. The sender and the primary recipient are
// excluded from the member fan-out so nobody gets the message twice.
func (u *userMailbox) SendBroadcast(ctx context.Context, req *BroadcastRequest) (msgs []Message, retErr error) {
	if err := u.checkAccess(); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidMessage)
	}
	hasGroup := req.Group != ""
	if hasGroup == req.AllUsers {
		return nil, ErrInvalidBroadcast
	}
	if u.svc.opts.directory == nil {
		return nil, ErrDirectoryRequired
	}

	ctx, end := u.svc.otel.startOp(ctx, "broadcast")
	defer func() { end(retErr) }()

	var primaryID string
	if req.PrimaryRecipient != "" {
		if u.svc.opts.resolver == nil {
			return nil, ErrResolverRequired
		}
		found, unknown, err := u.svc.opts.resolver.Resolve(ctx, []string{req.PrimaryRecipient})
		if err != nil {
			return nil, fmt.Errorf("messages: resolve primary recipient: %w", err)
		}
		if len(unknown) > 0 {
			return nil, &UnknownRecipientsError{Names: unknown}
		}
		primaryID = found[0].ID
	}

	var members []resolver.User
	var err error
	if req.AllUsers {
		members, err = u.svc.opts.directory.AllUsers(ctx)
	} else {
		members, err = u.svc.opts.directory.GroupMembers(ctx, req.Group)
	}
	if err != nil {
		return nil, fmt.Errorf("messages: list broadcast members: %w", err)
	}

	var recipientIDs []string
	if primaryID != "" {
		recipientIDs = append(recipientIDs, primaryID)
	}
	for _, member := range members {
		if member.ID == primaryID || member.ID == u.userID {
			continue
		}
		recipientIDs = append(recipientIDs, member.ID)
	}
	if len(recipientIDs) == 0 {
		return nil, ErrEmptyRecipients
	}

	return u.Send(ctx, &SendRequest{
		RecipientIDs: recipientIDs,
		Subject:      req.Subject,
		Body:         req.Body,
	})
}
