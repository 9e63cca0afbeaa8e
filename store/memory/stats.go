package memory

import (
	"context"

	"github.com/rbaliyan/messages/store"
)

// MailboxStats computes folder counters in a single pass.
func (s *Store) MailboxStats(ctx context.Context, userID string) (*store.MailboxStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	stats := &store.MailboxStats{}
	s.messages.Range(func(_, v any) bool {
		msg := v.(*store.MessageData)
		if store.VisibleInInbox(msg, userID) {
			stats.Inbox++
			if msg.ReadAt == nil {
				stats.Unread++
			}
		}
		if store.VisibleInOutbox(msg, userID) {
			stats.Outbox++
		}
		if store.VisibleInTrash(msg, userID) {
			stats.Trash++
		}
		return true
	})
	return stats, nil
}
