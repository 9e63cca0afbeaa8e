package messages

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rbaliyan/messages/store"
)

// userMailbox implements Mailbox for one user. It is a stateless handle
// over the service; all state lives in the store and caches.
type userMailbox struct {
	userID      string
	svc         *Service
	validUserID bool
}

// UserID returns the user this mailbox belongs to.
func (u *userMailbox) UserID() string {
	return u.userID
}

// checkAccess gates every operation on connection state and a sane
// user ID.
func (u *userMailbox) checkAccess() error {
	if !u.svc.Connected() {
		return ErrNotConnected
	}
	if !u.validUserID {
		return ErrInvalidUserID
	}
	return nil
}

// Get returns a message the user participates in. A message that exists
// but belongs to other users is reported as ErrNotFound, so callers
// cannot probe for message existence.
func (u *userMailbox) Get(ctx context.Context, id string) (Message, error) {
	if err := u.checkAccess(); err != nil {
		return nil, err
	}
	msg, err := u.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.wrap(msg), nil
}

// getOwned fetches a raw message and hides it from non-participants.
func (u *userMailbox) getOwned(ctx context.Context, id string) (store.Message, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	msg, err := u.svc.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("messages: get: %w", err)
	}
	if !store.IsParticipant(msg, u.userID) {
		return nil, ErrNotFound
	}
	return msg, nil
}

// folderFilters maps a folder to its store filters.
func (u *userMailbox) folderFilters(folder Folder) ([]store.Filter, error) {
	switch folder {
	case FolderInbox:
		return store.InboxFilters(u.userID), nil
	case FolderOutbox:
		return store.OutboxFilters(u.userID), nil
	case FolderTrash:
		return store.TrashFilters(u.userID), nil
	default:
		return nil, fmt.Errorf("%w: unknown folder %q", ErrInvalidMessage, folder)
	}
}

// Inbox lists received messages, newest first.
func (u *userMailbox) Inbox(ctx context.Context, opts ...QueryOption) (*MessageList, error) {
	return u.Folder(ctx, FolderInbox, opts...)
}

// Outbox lists sent messages, newest first.
func (u *userMailbox) Outbox(ctx context.Context, opts ...QueryOption) (*MessageList, error) {
	return u.Folder(ctx, FolderOutbox, opts...)
}

// Trash lists messages whose own side the user deleted, newest first.
func (u *userMailbox) Trash(ctx context.Context, opts ...QueryOption) (*MessageList, error) {
	return u.Folder(ctx, FolderTrash, opts...)
}

// Folder lists the named folder.
func (u *userMailbox) Folder(ctx context.Context, folder Folder, opts ...QueryOption) (*MessageList, error) {
	if err := u.checkAccess(); err != nil {
		return nil, err
	}
	filters, err := u.folderFilters(folder)
	if err != nil {
		return nil, err
	}

	ctx, end := u.svc.otel.startOp(ctx, "list."+string(folder))
	list, err := u.list(ctx, filters, opts...)
	end(err)
	return list, err
}

// list runs a paginated query with service limits applied.
func (u *userMailbox) list(ctx context.Context, filters []store.Filter, opts ...QueryOption) (*MessageList, error) {
	q := &queryOptions{limit: u.svc.opts.defaultQueryLimit}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	if q.limit > u.svc.opts.maxQueryLimit {
		q.limit = u.svc.opts.maxQueryLimit
	}
	order := store.SortDesc
	if q.ascending {
		order = store.SortAsc
	}
	list, err := u.svc.store.Find(ctx, filters, store.ListOptions{
		Limit:      q.limit,
		Offset:     q.offset,
		SortBy:     store.FieldSentAt,
		SortOrder:  order,
		StartAfter: q.after,
	})
	if err != nil {
		return nil, fmt.Errorf("messages: list: %w", err)
	}
	return u.wrapList(list), nil
}

// Replies lists direct replies to a message, oldest first. The caller
// must participate in the parent; replies they do not participate in
// are filtered out.
func (u *userMailbox) Replies(ctx context.Context, id string) ([]Message, error) {
	if err := u.checkAccess(); err != nil {
		return nil, err
	}
	if _, err := u.getOwned(ctx, id); err != nil {
		return nil, err
	}
	filters := []store.Filter{store.ParentIs(id), store.ParticipantIs(u.userID)}
	list, err := u.svc.store.Find(ctx, filters, store.ListOptions{
		SortBy:    store.FieldSentAt,
		SortOrder: store.SortAsc,
	})
	if err != nil {
		return nil, fmt.Errorf("messages: replies: %w", err)
	}
	return u.wrapAll(list.Messages), nil
}

// Conversation lists the thread containing a message, oldest first:
// the thread root followed by every reply the user participates in.
func (u *userMailbox) Conversation(ctx context.Context, id string) ([]Message, error) {
	if err := u.checkAccess(); err != nil {
		return nil, err
	}
	msg, err := u.getOwned(ctx, id)
	if err != nil {
		return nil, err
	}

	// Walk up to the thread root. Depth is bounded to tolerate cycles
	// from corrupted data.
	root := msg
	for depth := 0; root.GetParentID() != "" && depth < 100; depth++ {
		parent, err := u.getOwned(ctx, root.GetParentID())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				break
			}
			return nil, err
		}
		root = parent
	}

	// Collect descendants level by level so nested replies surface too.
	// Traversal ignores participation; replies routed through other
	// users still connect the thread, but only messages the caller
	// participates in end up in the result.
	seen := map[string]bool{root.GetID(): true}
	thread := []store.Message{root}
	frontier := []string{root.GetID()}
	for depth := 0; len(frontier) > 0 && depth < 100; depth++ {
		list, err := u.svc.store.Find(ctx, []store.Filter{store.ParentIn(frontier...)}, store.ListOptions{
			SortBy:    store.FieldSentAt,
			SortOrder: store.SortAsc,
		})
		if err != nil {
			return nil, fmt.Errorf("messages: conversation: %w", err)
		}
		frontier = frontier[:0]
		for _, m := range list.Messages {
			if seen[m.GetID()] {
				continue
			}
			seen[m.GetID()] = true
			thread = append(thread, m)
			frontier = append(frontier, m.GetID())
		}
	}

	sort.SliceStable(thread, func(i, j int) bool {
		ti, tj := thread[i].GetSentAt(), thread[j].GetSentAt()
		if ti.Equal(tj) {
			return thread[i].GetID() < thread[j].GetID()
		}
		return ti.Before(tj)
	})

	visible := make([]store.Message, 0, len(thread))
	for _, m := range thread {
		if store.IsParticipant(m, u.userID) {
			visible = append(visible, m)
		}
	}
	return u.wrapAll(visible), nil
}

// UnreadCount returns the number of unread inbox messages.
func (u *userMailbox) UnreadCount(ctx context.Context) (int64, error) {
	if err := u.checkAccess(); err != nil {
		return 0, err
	}
	filters := append(store.InboxFilters(u.userID), store.Unread())
	count, err := u.svc.store.Count(ctx, filters)
	if err != nil {
		return 0, fmt.Errorf("messages: unread count: %w", err)
	}
	return count, nil
}

// Stats returns the user's folder counters, served from a short-lived
// cache refreshed from the store.
func (u *userMailbox) Stats(ctx context.Context) (*store.MailboxStats, error) {
	if err := u.checkAccess(); err != nil {
		return nil, err
	}
	ctx, end := u.svc.otel.startOp(ctx, "stats")
	stats, err := u.svc.statsFor(ctx, u.userID)
	end(err)
	return stats, err
}
