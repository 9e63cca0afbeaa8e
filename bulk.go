package messages

import (
	"context"
	"errors"
	"fmt"
)

// OperationResult is the outcome for one message in a bulk operation.
type OperationResult struct {
	// ID is the message the operation targeted.
	ID string
	// Err is nil on success.
	Err error
}

// BulkResult collects per-message outcomes of a bulk operation.
// Bulk operations are not atomic: some messages may succeed while
// others fail.
type BulkResult struct {
	// Results holds one entry per requested message, in request order.
	Results []OperationResult
}

// Succeeded returns the IDs that completed without error.
func (r *BulkResult) Succeeded() []string {
	if r == nil {
		return nil
	}
	var ids []string
	for _, res := range r.Results {
		if res.Err == nil {
			ids = append(ids, res.ID)
		}
	}
	return ids
}

// Failed returns the results that carry errors.
func (r *BulkResult) Failed() []OperationResult {
	if r == nil {
		return nil
	}
	var failed []OperationResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// AllSucceeded reports whether every message completed without error.
func (r *BulkResult) AllSucceeded() bool {
	return r != nil && len(r.Failed()) == 0
}

// Err returns nil when everything succeeded, otherwise a
// BulkOperationError describing the failures.
func (r *BulkResult) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &BulkOperationError{Failed: failed}
}

// BulkOperationError reports the failed subset of a bulk operation.
type BulkOperationError struct {
	Failed []OperationResult
}

func (e *BulkOperationError) Error() string {
	return fmt.Sprintf("messages: bulk operation failed for %d messages", len(e.Failed))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *BulkOperationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, res := range e.Failed {
		errs = append(errs, res.Err)
	}
	return errs
}

// DeleteAll trashes the caller's side of each message. Messages already
// in trash fail with ErrAlreadyDeleted in their result entry.
func (u *userMailbox) DeleteAll(ctx context.Context, ids ...string) (*BulkResult, error) {
	return u.bulkSetDeleted(ctx, ids, true)
}

// UndeleteAll restores the caller's side of each message.
func (u *userMailbox) UndeleteAll(ctx context.Context, ids ...string) (*BulkResult, error) {
	return u.bulkSetDeleted(ctx, ids, false)
}

func (u *userMailbox) bulkSetDeleted(ctx context.Context, ids []string, deleted bool) (*BulkResult, error) {
	if err := u.checkAccess(); err != nil {
		return nil, err
	}
	result := &BulkResult{Results: make([]OperationResult, 0, len(ids))}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, err := u.setDeleted(ctx, id, deleted)
		result.Results = append(result.Results, OperationResult{ID: id, Err: err})
	}
	return result, nil
}

// MarkAllRead marks every unread inbox message read and returns how
// many changed.
func (u *userMailbox) MarkAllRead(ctx context.Context) (int64, error) {
	if err := u.checkAccess(); err != nil {
		return 0, err
	}
	ctx, end := u.svc.otel.startOp(ctx, "mark_all_read")
	var marked int64
	var retErr error
	defer func() { end(retErr) }()

	it := u.Stream(ctx, FolderInbox)
	for {
		msg, err := it.Next(ctx)
		if errors.Is(err, ErrIteratorDone) {
			break
		}
		if err != nil {
			retErr = err
			return marked, err
		}
		if msg.GetReadAt() != nil {
			continue
		}
		if _, err := u.View(ctx, msg.GetID()); err != nil {
			retErr = err
			return marked, err
		}
		marked++
	}
	if marked > 0 {
		u.svc.stats.invalidate(u.userID)
	}
	return marked, nil
}
