package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/messages/store"
)

// MarkRead sets the read timestamp if it is not already set.
// The set-if-null condition makes concurrent views race-free: exactly
// one caller observes changed=true.
func (s *Store) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := s.checkConnected(); err != nil {
		return false, err
	}
	if id == "" {
		return false, store.ErrInvalidID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`UPDATE %s SET read_at = $1 WHERE id = $2 AND read_at IS NULL`, s.opts.table)
	res, err := s.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("postgres: mark read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: mark read: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	// No update either because the message is missing or already read.
	var exists bool
	check := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, s.opts.table)
	if err := s.db.QueryRowContext(ctx, check, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: mark read: %w", err)
	}
	if !exists {
		return false, store.ErrNotFound
	}
	return false, nil
}

// MarkReplied sets the replied timestamp.
func (s *Store) MarkReplied(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET replied_at = $1 WHERE id = $2`, s.opts.table)
	return s.exec(ctx, query, at, id)
}

// SetDeleted sets or clears one side's trash timestamp.
func (s *Store) SetDeleted(ctx context.Context, id string, side store.Side, at *time.Time) error {
	col := "recipient_deleted_at"
	if side == store.SideSender {
		col = "sender_deleted_at"
	}
	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE id = $2`, s.opts.table, col)
	return s.exec(ctx, query, nullTimePtr(at), id)
}

// DetachRecipient clears the recipient reference.
func (s *Store) DetachRecipient(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET recipient_id = NULL WHERE id = $1`, s.opts.table)
	return s.exec(ctx, query, id)
}

// HardDelete permanently removes a message.
func (s *Store) HardDelete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.opts.table)
	return s.exec(ctx, query, id)
}

// exec runs a single-row statement and maps zero affected rows to
// ErrNotFound. The last argument must be the message ID.
func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if id, ok := args[len(args)-1].(string); !ok || id == "" {
		return store.ErrInvalidID
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteExpired permanently removes messages both of whose trash
// timestamps are at or before cutoff, oldest first, up to limit.
func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		DELETE FROM %[1]s WHERE id IN (
			SELECT id FROM %[1]s
			WHERE sender_deleted_at <= $1 AND recipient_deleted_at <= $1
			ORDER BY sent_at ASC`, s.opts.table)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	query += ")"

	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: delete expired: %w", err)
	}
	return n, nil
}
