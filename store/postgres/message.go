package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rbaliyan/messages/store"
)

// messageColumns is the canonical column list for SELECTs, matching the
// scan order in scanMessage.
const messageColumns = `id, sender_id, recipient_id, parent_id, subject, body,
	sent_at, read_at, replied_at, sender_deleted_at, recipient_deleted_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.MessageData, error) {
	var (
		msg                store.MessageData
		recipientID        sql.NullString
		parentID           sql.NullString
		readAt             sql.NullTime
		repliedAt          sql.NullTime
		senderDeletedAt    sql.NullTime
		recipientDeletedAt sql.NullTime
	)
	err := row.Scan(
		&msg.ID,
		&msg.SenderID,
		&recipientID,
		&parentID,
		&msg.Subject,
		&msg.Body,
		&msg.SentAt,
		&readAt,
		&repliedAt,
		&senderDeletedAt,
		&recipientDeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan: %w", err)
	}
	msg.RecipientID = recipientID.String
	msg.ParentID = parentID.String
	msg.ReadAt = nullableTime(readAt)
	msg.RepliedAt = nullableTime(repliedAt)
	msg.SenderDeletedAt = nullableTime(senderDeletedAt)
	msg.RecipientDeletedAt = nullableTime(recipientDeletedAt)
	return &msg, nil
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// nullString maps the empty string to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullTimePtr maps a nil pointer to SQL NULL.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
