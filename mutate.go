package messages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbaliyan/messages/retry"
	"github.com/rbaliyan/messages/store"
)

// viewRetry bounds retries of the read-marking write when the store
// reports transient failures.
var viewRetry = retry.Config{
	Attempts: 3,
	Backoff:  25 * time.Millisecond,
	Classify: IsRetryableError,
}

// View returns a message like Get and marks it read on the first view
// by its recipient. Repeat views and sender views leave the read
// timestamp alone. Viewing a message from one's own trash is refused.
func (u *userMailbox) View(ctx context.Context, id string) (Message, error) {
	if err := u.checkAccess(); err != nil {
		return nil, err
	}
	ctx, end := u.svc.otel.startOp(ctx, "view")
	msg, err := u.view(ctx, id)
	end(err)
	return msg, err
}

func (u *userMailbox) view(ctx context.Context, id string) (Message, error) {
	msg, err := u.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.ownSideDeleted(msg) {
		return nil, fmt.Errorf("%w: message is in trash", ErrForbidden)
	}
	if msg.GetRecipientID() != u.userID || msg.GetReadAt() != nil {
		return u.wrap(msg), nil
	}

	now := time.Now().UTC()
	changed, err := retry.DoValue(ctx, viewRetry, func(ctx context.Context) (bool, error) {
		return u.svc.store.MarkRead(ctx, id, now)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("messages: mark read: %w", err)
	}

	fresh, err := u.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed {
		ev := messageEvent(fresh, u.userID, now)
		if err := publish(ctx, u.svc, u.svc.events.MessageRead, EventMessageRead, id, ev); err != nil {
			return u.wrap(fresh), err
		}
	}
	return u.wrap(fresh), nil
}

// ownedSides returns the sides of msg the user controls. A message sent
// to oneself yields both sides.
func (u *userMailbox) ownedSides(msg store.Message) []store.Side {
	var sides []store.Side
	if msg.GetSenderID() == u.userID {
		sides = append(sides, store.SideSender)
	}
	if msg.GetRecipientID() == u.userID {
		sides = append(sides, store.SideRecipient)
	}
	return sides
}

func (u *userMailbox) ownSideDeleted(msg store.Message) bool {
	if msg.GetSenderID() == u.userID && msg.GetSenderDeletedAt() != nil {
		return true
	}
	if msg.GetRecipientID() == u.userID && msg.GetRecipientDeletedAt() != nil {
		return true
	}
	return false
}

func sideDeletedAt(msg store.Message, side store.Side) *time.Time {
	if side == store.SideSender {
		return msg.GetSenderDeletedAt()
	}
	return msg.GetRecipientDeletedAt()
}

// Delete moves the caller's side of a message to trash. The other
// participant's view is unaffected. For a self-sent message both sides
// are trashed together.
func (u *userMailbox) Delete(ctx context.Context, id string) (Message, error) {
	return u.setDeleted(ctx, id, true)
}

// Undelete restores the caller's side of a message from trash.
func (u *userMailbox) Undelete(ctx context.Context, id string) (Message, error) {
	return u.setDeleted(ctx, id, false)
}

func (u *userMailbox) setDeleted(ctx context.Context, id string, deleted bool) (msg Message, retErr error) {
	if err := u.checkAccess(); err != nil {
		return nil, err
	}
	op := "delete"
	if !deleted {
		op = "undelete"
	}
	ctx, end := u.svc.otel.startOp(ctx, op)
	defer func() { end(retErr) }()

	current, err := u.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	sides := u.ownedSides(current)

	// Only sides in the wrong state are touched, so repeating the call
	// reports the no-op instead of silently rewriting timestamps.
	var pending []store.Side
	for _, side := range sides {
		if (sideDeletedAt(current, side) != nil) != deleted {
			pending = append(pending, side)
		}
	}
	if len(pending) == 0 {
		if deleted {
			return nil, ErrAlreadyDeleted
		}
		return nil, ErrNotDeleted
	}

	now := time.Now().UTC()
	var at *time.Time
	if deleted {
		at = &now
	}
	for _, side := range pending {
		if err := u.svc.store.SetDeleted(ctx, id, side, at); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("messages: %s: %w", op, err)
		}
	}
	u.svc.stats.invalidate(u.userID)

	fresh, err := u.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	ev := messageEvent(fresh, u.userID, now)
	ev.Side = pending[0].String()
	target := u.svc.events.MessageDeleted
	name := EventMessageDeleted
	if !deleted {
		target = u.svc.events.MessageUndeleted
		name = EventMessageUndeleted
	}
	if err := publish(ctx, u.svc, target, name, id, ev); err != nil {
		return u.wrap(fresh), err
	}
	return u.wrap(fresh), nil
}
