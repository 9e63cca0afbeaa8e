package postgres

import (
	"context"
	"fmt"

	"github.com/rbaliyan/messages/store"
)

// MailboxStats computes folder counters with a single conditional
// aggregation over the user's messages.
func (s *Store) MailboxStats(ctx context.Context, userID string) (*store.MailboxStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE recipient_id = $1 AND recipient_deleted_at IS NULL) AS inbox,
			COUNT(*) FILTER (WHERE recipient_id = $1 AND recipient_deleted_at IS NULL AND read_at IS NULL) AS unread,
			COUNT(*) FILTER (WHERE sender_id = $1 AND sender_deleted_at IS NULL) AS outbox,
			COUNT(*) FILTER (WHERE (sender_id = $1 AND sender_deleted_at IS NOT NULL)
				OR (recipient_id = $1 AND recipient_deleted_at IS NOT NULL)) AS trash
		FROM %s
		WHERE sender_id = $1 OR recipient_id = $1`, s.opts.table)

	stats := &store.MailboxStats{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.Inbox, &stats.Unread, &stats.Outbox, &stats.Trash)
	if err != nil {
		return nil, fmt.Errorf("postgres: mailbox stats: %w", err)
	}
	return stats, nil
}
