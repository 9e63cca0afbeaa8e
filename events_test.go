package messages

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rbaliyan/event/v3"
	"github.com/redis/go-redis/v9"
)

// newEventService builds a service whose event bus runs over a real
// delivering transport. The default noop transport drops publishes, so
// tests asserting delivery need this.
func newEventService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return newTestService(t, append(opts, WithRedisEvents(client))...)
}

func collectEvents(t *testing.T, ev event.Event[MessageEvent]) <-chan MessageEvent {
	t.Helper()
	ch := make(chan MessageEvent, 16)
	err := ev.Subscribe(context.Background(), func(_ context.Context, _ event.Event[MessageEvent], data MessageEvent) error {
		ch <- data
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	return ch
}

func waitEvent(t *testing.T, ch <-chan MessageEvent) MessageEvent {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return MessageEvent{}
	}
}

func TestMessageLifecycleEvents(t *testing.T) {
	svc := newEventService(t)
	ctx := context.Background()

	sentCh := collectEvents(t, svc.Events().MessageSent)
	readCh := collectEvents(t, svc.Events().MessageRead)
	deletedCh := collectEvents(t, svc.Events().MessageDeleted)
	undeletedCh := collectEvents(t, svc.Events().MessageUndeleted)

	msg := sendOne(t, svc, "u-alice", "bob")
	sent := waitEvent(t, sentCh)
	if sent.MessageID != msg.GetID() || sent.SenderID != "u-alice" || sent.RecipientID != "u-bob" {
		t.Fatalf("sent event = %+v", sent)
	}

	bob := svc.Client("u-bob")
	if _, err := bob.View(ctx, msg.GetID()); err != nil {
		t.Fatalf("View: %v", err)
	}
	read := waitEvent(t, readCh)
	if read.MessageID != msg.GetID() || read.ActorID != "u-bob" {
		t.Fatalf("read event = %+v", read)
	}

	// A second view is a no-op and must not publish again.
	if _, err := bob.View(ctx, msg.GetID()); err != nil {
		t.Fatalf("second View: %v", err)
	}

	if _, err := bob.Delete(ctx, msg.GetID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	deleted := waitEvent(t, deletedCh)
	if deleted.MessageID != msg.GetID() || deleted.Side != "recipient" {
		t.Fatalf("deleted event = %+v", deleted)
	}

	if _, err := bob.Undelete(ctx, msg.GetID()); err != nil {
		t.Fatalf("Undelete: %v", err)
	}
	undeleted := waitEvent(t, undeletedCh)
	if undeleted.Side != "recipient" {
		t.Fatalf("undeleted event = %+v", undeleted)
	}

	select {
	case data := <-readCh:
		t.Fatalf("unexpected read event: %+v", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReplyPublishesRepliedEvent(t *testing.T) {
	svc := newEventService(t)
	ctx := context.Background()

	repliedCh := collectEvents(t, svc.Events().MessageReplied)
	msg := sendOne(t, svc, "u-alice", "bob")

	bobCopy, err := svc.Client("u-bob").Get(ctx, msg.GetID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	reply, err := bobCopy.Reply(ctx, "got it")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}

	replied := waitEvent(t, repliedCh)
	if replied.MessageID != msg.GetID() {
		t.Fatalf("replied event targets %s, want parent %s", replied.MessageID, msg.GetID())
	}
	if replied.ActorID != "u-bob" {
		t.Fatalf("replied actor = %s", replied.ActorID)
	}
	if reply.GetParentID() != msg.GetID() {
		t.Fatalf("reply parent = %s", reply.GetParentID())
	}
}

func TestPurgeEvent(t *testing.T) {
	svc := newEventService(t)
	ctx := context.Background()

	ch := make(chan PurgeEvent, 1)
	err := svc.Events().MessagesPurged.Subscribe(ctx, func(_ context.Context, _ event.Event[PurgeEvent], data PurgeEvent) error {
		ch <- data
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	msg := sendOne(t, svc, "u-alice", "bob")
	if _, err := svc.Client("u-alice").Delete(ctx, msg.GetID()); err != nil {
		t.Fatalf("sender Delete: %v", err)
	}
	if _, err := svc.Client("u-bob").Delete(ctx, msg.GetID()); err != nil {
		t.Fatalf("recipient Delete: %v", err)
	}

	result, err := svc.PurgeDeletedBefore(ctx, time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("PurgeDeletedBefore: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("purged %d, want 1", result.Deleted)
	}

	select {
	case data := <-ch:
		if data.Deleted != 1 || data.Interrupted {
			t.Fatalf("purge event = %+v", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for purge event")
	}
}

func TestRedisEventTransport(t *testing.T) {
	svc := newEventService(t)
	sentCh := collectEvents(t, svc.Events().MessageSent)

	msg := sendOne(t, svc, "u-alice", "bob")
	sent := waitEvent(t, sentCh)
	if sent.MessageID != msg.GetID() {
		t.Fatalf("sent event = %+v", sent)
	}
}

func TestNotificationsDisabled(t *testing.T) {
	svc := newEventService(t, WithNotifications(false))
	sentCh := collectEvents(t, svc.Events().MessageSent)

	sendOne(t, svc, "u-alice", "bob")
	select {
	case data := <-sentCh:
		t.Fatalf("unexpected event with notifications disabled: %+v", data)
	case <-time.After(100 * time.Millisecond):
	}
}
