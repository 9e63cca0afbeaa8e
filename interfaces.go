package messages

import (
	"context"

	"github.com/rbaliyan/messages/store"
)

// Folder names the three mailbox views.
type Folder string

const (
	// FolderInbox holds messages received and not trashed by the user.
	FolderInbox Folder = "inbox"
	// FolderOutbox holds messages sent and not trashed by the user.
	FolderOutbox Folder = "outbox"
	// FolderTrash holds messages whose own side the user deleted.
	FolderTrash Folder = "trash"
)

// SendRequest describes a message to deliver. One message copy is
// created per recipient; all copies share subject, body and timestamp.
type SendRequest struct {
	// Recipients holds recipient names resolved through the configured
	// resolver. Any name failing to resolve fails the whole request
	// with UnknownRecipientsError listing every bad name.
	Recipients []string
	// RecipientIDs holds already-resolved user IDs delivered as-is.
	// Combined with Recipients after resolution, duplicates removed.
	RecipientIDs []string
	// Subject is the message subject. Required.
	Subject string
	// Body is the message body. Required.
	Body string
	// ParentID threads this send as a reply: the parent's replied
	// timestamp is set before the new messages are created.
	ParentID string
}

// BroadcastRequest describes a group-wide announcement. Exactly one of
// Group or AllUsers must be set.
type BroadcastRequest struct {
	// Group names the directory group to deliver to.
	Group string
	// AllUsers delivers to every user in the directory.
	AllUsers bool
	// PrimaryRecipient names the user the announcement is addressed to
	// directly. The fan-out skips this user so they receive exactly one
	// copy. Optional.
	PrimaryRecipient string
	// Subject is the message subject.
	Subject string
	// Body is the message body. Required.
	Body string
}

// MessageList is a page of messages with pagination metadata.
type MessageList struct {
	// Messages holds the page contents in query order.
	Messages []Message
	// Total is the matching count across pages, or -1 when unknown.
	Total int64
	// HasMore reports whether another page exists.
	HasMore bool
	// NextCursor resumes the next page via WithAfter. Empty when
	// HasMore is false.
	NextCursor string
}

// queryOptions carries pagination settings for list operations.
type queryOptions struct {
	limit     int
	offset    int
	after     string
	ascending bool
}

// QueryOption adjusts pagination of list operations.
type QueryOption func(*queryOptions)

// WithLimit caps the page size. Values above the service maximum are
// clamped to it.
func WithLimit(n int) QueryOption {
	return func(o *queryOptions) {
		if n > 0 {
			o.limit = n
		}
	}
}

// WithOffset skips the first n results. Ignored when WithAfter is set.
func WithOffset(n int) QueryOption {
	return func(o *queryOptions) {
		if n > 0 {
			o.offset = n
		}
	}
}

// WithAfter resumes listing after the message with the given ID.
func WithAfter(cursor string) QueryOption {
	return func(o *queryOptions) {
		o.after = cursor
	}
}

// WithOldestFirst lists oldest messages first instead of newest first.
func WithOldestFirst() QueryOption {
	return func(o *queryOptions) {
		o.ascending = true
	}
}

// MailboxReader provides the per-user read operations.
type MailboxReader interface {
	// Get returns a message the user participates in. Unrelated and
	// missing messages are both ErrNotFound.
	Get(ctx context.Context, id string) (Message, error)
	// View returns a message like Get and, when the caller is the
	// recipient, marks it read on first view. Repeat views are no-ops.
	View(ctx context.Context, id string) (Message, error)
	// Inbox lists received messages, newest first.
	Inbox(ctx context.Context, opts ...QueryOption) (*MessageList, error)
	// Outbox lists sent messages, newest first.
	Outbox(ctx context.Context, opts ...QueryOption) (*MessageList, error)
	// Trash lists messages whose own side the user deleted, newest first.
	Trash(ctx context.Context, opts ...QueryOption) (*MessageList, error)
	// Folder lists the named folder.
	Folder(ctx context.Context, folder Folder, opts ...QueryOption) (*MessageList, error)
	// Replies lists direct replies to a message, oldest first.
	Replies(ctx context.Context, id string) ([]Message, error)
	// Conversation lists the thread containing a message, oldest first.
	Conversation(ctx context.Context, id string) ([]Message, error)
	// UnreadCount returns the number of unread inbox messages.
	UnreadCount(ctx context.Context) (int64, error)
	// Stats returns the user's folder counters, cached briefly.
	Stats(ctx context.Context) (*store.MailboxStats, error)
	// Stream iterates a folder batch by batch without a page cursor.
	Stream(ctx context.Context, folder Folder, opts ...QueryOption) *Iterator
}

// MailboxMutator provides the per-user lifecycle operations.
type MailboxMutator interface {
	// Delete moves the caller's side of a message to trash. The other
	// participant's view is unaffected.
	Delete(ctx context.Context, id string) (Message, error)
	// Undelete restores the caller's side of a message from trash.
	Undelete(ctx context.Context, id string) (Message, error)
}

// MessageSender provides the per-user send operations.
type MessageSender interface {
	// Send delivers one message copy per recipient, all-or-nothing.
	// Returned messages follow recipient order.
	Send(ctx context.Context, req *SendRequest) ([]Message, error)
	// SendBroadcast fans an announcement out to a group or all users,
	// excluding the sender and the primary recipient from the fan-out.
	SendBroadcast(ctx context.Context, req *BroadcastRequest) ([]Message, error)
	// Compose starts a fluent draft bound to this mailbox.
	Compose() *Draft
}

// BulkOperator provides multi-message operations. Bulk operations are
// not atomic: each message succeeds or fails on its own.
type BulkOperator interface {
	// DeleteAll trashes the caller's side of each message.
	DeleteAll(ctx context.Context, ids ...string) (*BulkResult, error)
	// UndeleteAll restores the caller's side of each message.
	UndeleteAll(ctx context.Context, ids ...string) (*BulkResult, error)
	// MarkAllRead marks every unread inbox message read and returns
	// how many changed.
	MarkAllRead(ctx context.Context) (int64, error)
}

// Mailbox is the complete per-user API returned by Service.Client.
type Mailbox interface {
	MailboxReader
	MailboxMutator
	MessageSender
	BulkOperator
	// UserID returns the user this mailbox belongs to.
	UserID() string
}
