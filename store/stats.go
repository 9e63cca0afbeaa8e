package store

// MailboxStats holds per-user folder counters.
type MailboxStats struct {
	// Inbox is the number of messages visible in the user's inbox.
	Inbox int64 `json:"inbox"`
	// Outbox is the number of messages visible in the user's outbox.
	Outbox int64 `json:"outbox"`
	// Trash is the number of messages visible in the user's trash.
	Trash int64 `json:"trash"`
	// Unread is the number of inbox messages without a read timestamp.
	Unread int64 `json:"unread"`
}

// Clone returns a copy of the stats.
func (s *MailboxStats) Clone() *MailboxStats {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
