package messages

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rbaliyan/messages/store"
)

func seedInbox(t *testing.T, svc *Service, n int) []string {
	t.Helper()
	base := time.Now().UTC().Add(-time.Duration(n) * time.Minute)
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id := uuid.NewString()
		seedMessage(t, svc, &store.MessageData{
			ID:          id,
			SenderID:    "u-alice",
			RecipientID: "u-bob",
			Subject:     fmt.Sprintf("message %d", i),
			Body:        "body",
			SentAt:      base.Add(time.Duration(i) * time.Minute),
		})
		ids[i] = id
	}
	return ids
}

func TestInboxOrdering(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	ids := seedInbox(t, svc, 3)

	list, err := svc.Client("u-bob").Inbox(ctx)
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(list.Messages) != 3 {
		t.Fatalf("inbox = %d, want 3", len(list.Messages))
	}
	// Newest first.
	for i, msg := range list.Messages {
		if want := ids[len(ids)-1-i]; msg.GetID() != want {
			t.Fatalf("position %d: got %s, want %s", i, msg.GetID(), want)
		}
	}

	asc, err := svc.Client("u-bob").Inbox(ctx, WithOldestFirst())
	if err != nil {
		t.Fatalf("Inbox asc: %v", err)
	}
	if asc.Messages[0].GetID() != ids[0] {
		t.Fatal("oldest-first order not honored")
	}
}

func TestInboxPagination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	ids := seedInbox(t, svc, 5)
	bob := svc.Client("u-bob")

	page, err := bob.Inbox(ctx, WithLimit(2))
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(page.Messages) != 2 || !page.HasMore {
		t.Fatalf("page = %d messages, hasMore=%v", len(page.Messages), page.HasMore)
	}
	if page.Messages[0].GetID() != ids[4] || page.Messages[1].GetID() != ids[3] {
		t.Fatal("first page out of order")
	}

	next, err := bob.Inbox(ctx, WithLimit(2), WithAfter(page.NextCursor))
	if err != nil {
		t.Fatalf("Inbox after cursor: %v", err)
	}
	if len(next.Messages) != 2 || !next.HasMore {
		t.Fatalf("second page = %d messages, hasMore=%v", len(next.Messages), next.HasMore)
	}
	if next.Messages[0].GetID() != ids[2] || next.Messages[1].GetID() != ids[1] {
		t.Fatal("second page out of order")
	}

	last, err := bob.Inbox(ctx, WithLimit(2), WithAfter(next.NextCursor))
	if err != nil {
		t.Fatalf("Inbox last page: %v", err)
	}
	if len(last.Messages) != 1 || last.HasMore {
		t.Fatalf("last page = %d messages, hasMore=%v", len(last.Messages), last.HasMore)
	}
	if last.Messages[0].GetID() != ids[0] {
		t.Fatal("last page out of order")
	}
}

func TestInboxOffset(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	ids := seedInbox(t, svc, 4)

	page, err := svc.Client("u-bob").Inbox(ctx, WithLimit(2), WithOffset(2))
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(page.Messages) != 2 {
		t.Fatalf("page = %d, want 2", len(page.Messages))
	}
	if page.Messages[0].GetID() != ids[1] || page.Messages[1].GetID() != ids[0] {
		t.Fatal("offset page out of order")
	}
}

func TestQueryLimitClamped(t *testing.T) {
	svc := newTestService(t, WithQueryLimits(5, 10))
	ctx := context.Background()
	seedInbox(t, svc, 12)
	bob := svc.Client("u-bob")

	list, err := bob.Inbox(ctx)
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(list.Messages) != 5 {
		t.Fatalf("default page = %d, want 5", len(list.Messages))
	}

	list, err = bob.Inbox(ctx, WithLimit(100))
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(list.Messages) != 10 {
		t.Fatalf("clamped page = %d, want 10", len(list.Messages))
	}
}

func TestFolderViews(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	bob := svc.Client("u-bob")
	alice := svc.Client("u-alice")
	msg := sendOne(t, svc, "u-alice", "bob")

	inbox, err := bob.Folder(ctx, FolderInbox)
	if err != nil || len(inbox.Messages) != 1 {
		t.Fatalf("inbox folder: %v, %d messages", err, len(inbox.Messages))
	}
	outbox, err := alice.Folder(ctx, FolderOutbox)
	if err != nil || len(outbox.Messages) != 1 {
		t.Fatalf("outbox folder: %v, %d messages", err, len(outbox.Messages))
	}
	if _, err := bob.Delete(ctx, msg.GetID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	trash, err := bob.Folder(ctx, FolderTrash)
	if err != nil || len(trash.Messages) != 1 {
		t.Fatalf("trash folder: %v, %d messages", err, len(trash.Messages))
	}
	if _, err := bob.Folder(ctx, Folder("spam")); err == nil {
		t.Fatal("unknown folder should fail")
	}
}

func TestStream(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	ids := seedInbox(t, svc, 7)

	it := svc.Client("u-bob").Stream(ctx, FolderInbox, WithLimit(3))
	var seen []string
	for {
		msg, err := it.Next(ctx)
		if errors.Is(err, ErrIteratorDone) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		seen = append(seen, msg.GetID())
	}
	if len(seen) != len(ids) {
		t.Fatalf("streamed %d messages, want %d", len(seen), len(ids))
	}
	for i, id := range seen {
		if want := ids[len(ids)-1-i]; id != want {
			t.Fatalf("position %d: got %s, want %s", i, id, want)
		}
	}
	// Exhausted iterators stay done.
	if _, err := it.Next(ctx); !errors.Is(err, ErrIteratorDone) {
		t.Fatalf("Next after done: %v", err)
	}
}
