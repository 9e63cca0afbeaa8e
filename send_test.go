package messages

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSendFanOut(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := svc.Client("u-alice")

	sent, err := alice.Send(ctx, &SendRequest{
		Recipients: []string{"bob", "carol"},
		Subject:    "team update",
		Body:       "hello both",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("len(sent) = %d, want 2", len(sent))
	}
	if sent[0].GetRecipientID() != "u-bob" || sent[1].GetRecipientID() != "u-carol" {
		t.Fatalf("recipient order = %s, %s; want u-bob, u-carol",
			sent[0].GetRecipientID(), sent[1].GetRecipientID())
	}
	if sent[0].GetID() == sent[1].GetID() {
		t.Fatal("copies share an ID")
	}
	if !sent[0].GetSentAt().Equal(sent[1].GetSentAt()) {
		t.Fatal("copies should share a send timestamp")
	}

	for _, userID := range []string{"u-bob", "u-carol"} {
		inbox, err := svc.Client(userID).Inbox(ctx)
		if err != nil {
			t.Fatalf("Inbox(%s): %v", userID, err)
		}
		if len(inbox.Messages) != 1 {
			t.Fatalf("%s inbox = %d messages, want 1", userID, len(inbox.Messages))
		}
	}
	outbox, err := alice.Outbox(ctx)
	if err != nil {
		t.Fatalf("Outbox: %v", err)
	}
	if len(outbox.Messages) != 2 {
		t.Fatalf("alice outbox = %d messages, want 2", len(outbox.Messages))
	}
}

func TestSendUnknownRecipientsListsAll(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := svc.Client("u-alice")

	_, err := alice.Send(ctx, &SendRequest{
		Recipients: []string{"bob", "nosuch", "ghost"},
		Subject:    "s",
		Body:       "b",
	})
	ure, ok := IsUnknownRecipients(err)
	if !ok {
		t.Fatalf("expected UnknownRecipientsError, got %v", err)
	}
	if len(ure.Names) != 2 || ure.Names[0] != "nosuch" || ure.Names[1] != "ghost" {
		t.Fatalf("Names = %v, want [nosuch ghost]", ure.Names)
	}
	if !errors.Is(err, ErrUnknownRecipient) {
		t.Fatal("error should unwrap to ErrUnknownRecipient")
	}

	// All-or-nothing: the resolvable recipient got nothing.
	inbox, err := svc.Client("u-bob").Inbox(ctx)
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(inbox.Messages) != 0 {
		t.Fatalf("bob inbox = %d messages, want 0", len(inbox.Messages))
	}
}

func TestSendValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := svc.Client("u-alice")

	tests := []struct {
		name string
		req  *SendRequest
		want error
	}{
		{"no recipients", &SendRequest{Subject: "s", Body: "b"}, ErrEmptyRecipients},
		{"empty subject", &SendRequest{Recipients: []string{"bob"}, Body: "b"}, ErrEmptySubject},
		{"empty body", &SendRequest{Recipients: []string{"bob"}, Subject: "s"}, ErrEmptyBody},
		{"long subject", &SendRequest{
			Recipients: []string{"bob"},
			Subject:    strings.Repeat("x", DefaultMaxSubjectLength+1),
			Body:       "b",
		}, ErrSubjectTooLong},
		{"null byte body", &SendRequest{
			Recipients: []string{"bob"}, Subject: "s", Body: "a\x00b",
		}, ErrInvalidContent},
		{"bad recipient id", &SendRequest{
			RecipientIDs: []string{"has space"}, Subject: "s", Body: "b",
		}, ErrInvalidRecipient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := alice.Send(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSendDeduplicatesRecipients(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := svc.Client("u-alice")

	sent, err := alice.Send(ctx, &SendRequest{
		Recipients:   []string{"bob", "bob"},
		RecipientIDs: []string{"u-bob"},
		Subject:      "s",
		Body:         "b",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("len(sent) = %d, want 1", len(sent))
	}
}

func TestSendTooManyRecipients(t *testing.T) {
	svc := newTestService(t, WithLimits(MessageLimits{MaxRecipients: 2}))
	ctx := context.Background()
	alice := svc.Client("u-alice")

	_, err := alice.Send(ctx, &SendRequest{
		RecipientIDs: []string{"u-bob", "u-carol", "u-dave"},
		Subject:      "s",
		Body:         "b",
	})
	if !errors.Is(err, ErrTooManyRecipients) {
		t.Fatalf("error = %v, want ErrTooManyRecipients", err)
	}
}

func TestReplyThreading(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := svc.Client("u-alice")
	bob := svc.Client("u-bob")

	sent, err := alice.Send(ctx, &SendRequest{Recipients: []string{"bob"}, Subject: "hello", Body: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	parentID := sent[0].GetID()

	parent, err := bob.View(ctx, parentID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	reply, err := parent.Reply(ctx, "hi back")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply.GetParentID() != parentID {
		t.Fatalf("reply parent = %q, want %q", reply.GetParentID(), parentID)
	}
	if reply.GetSubject() != "Re: hello" {
		t.Fatalf("reply subject = %q, want %q", reply.GetSubject(), "Re: hello")
	}
	if reply.GetRecipientID() != "u-alice" {
		t.Fatalf("reply recipient = %q, want u-alice", reply.GetRecipientID())
	}

	// The parent now shows replied.
	refreshed, err := bob.Get(ctx, parentID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if refreshed.GetRepliedAt() == nil {
		t.Fatal("parent replied timestamp not set")
	}

	// Replying to the reply keeps a single prefix.
	aliceReply, err := alice.View(ctx, reply.GetID())
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	second, err := aliceReply.Reply(ctx, "and again")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if second.GetSubject() != "Re: hello" {
		t.Fatalf("second reply subject = %q, want %q", second.GetSubject(), "Re: hello")
	}

	replies, err := bob.Replies(ctx, parentID)
	if err != nil {
		t.Fatalf("Replies: %v", err)
	}
	if len(replies) != 1 {
		t.Fatalf("len(replies) = %d, want 1", len(replies))
	}

	conv, err := bob.Conversation(ctx, reply.GetID())
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(conv) < 2 || conv[0].GetID() != parentID {
		t.Fatalf("conversation should start at the root, got %d messages", len(conv))
	}
}

func TestConversationIncludesNestedReplies(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := svc.Client("u-alice")
	bob := svc.Client("u-bob")

	sent, err := alice.Send(ctx, &SendRequest{Recipients: []string{"bob"}, Subject: "thread", Body: "root"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	root := sent[0]

	bobCopy, err := bob.View(ctx, root.GetID())
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	first, err := bobCopy.Reply(ctx, "first")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	aliceCopy, err := alice.View(ctx, first.GetID())
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	second, err := aliceCopy.Reply(ctx, "second")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}

	// Asking from any point in the thread returns the whole thread,
	// including replies nested below the asked-about message.
	for _, start := range []string{root.GetID(), first.GetID(), second.GetID()} {
		conv, err := bob.Conversation(ctx, start)
		if err != nil {
			t.Fatalf("Conversation(%s): %v", start, err)
		}
		if len(conv) != 3 {
			t.Fatalf("Conversation(%s) returned %d messages, want 3", start, len(conv))
		}
		want := []string{root.GetID(), first.GetID(), second.GetID()}
		for i, id := range want {
			if conv[i].GetID() != id {
				t.Fatalf("conv[%d] = %s, want %s", i, conv[i].GetID(), id)
			}
		}
	}
}

func TestComposeDraft(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := svc.Client("u-alice")

	sent, err := alice.Compose().
		To("bob").
		Subject("draft").
		Body("composed").
		Send(ctx)
	if err != nil {
		t.Fatalf("draft Send: %v", err)
	}
	if len(sent) != 1 || sent[0].GetSubject() != "draft" {
		t.Fatalf("unexpected draft result: %+v", sent)
	}
}

func TestSendBroadcastGroup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := svc.Client("u-alice")

	sent, err := alice.SendBroadcast(ctx, &BroadcastRequest{
		Group:            "team",
		PrimaryRecipient: "bob",
		Subject:          "announcement",
		Body:             "all hands",
	})
	if err != nil {
		t.Fatalf("SendBroadcast: %v", err)
	}
	// Primary first, then members minus sender and primary.
	if len(sent) != 2 {
		t.Fatalf("len(sent) = %d, want 2", len(sent))
	}
	if sent[0].GetRecipientID() != "u-bob" {
		t.Fatalf("first copy to %q, want primary u-bob", sent[0].GetRecipientID())
	}
	if sent[1].GetRecipientID() != "u-carol" {
		t.Fatalf("second copy to %q, want u-carol", sent[1].GetRecipientID())
	}
}

func TestSendBroadcastAllUsers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	carol := svc.Client("u-carol")

	sent, err := carol.SendBroadcast(ctx, &BroadcastRequest{
		AllUsers: true,
		Subject:  "s",
		Body:     "b",
	})
	if err != nil {
		t.Fatalf("SendBroadcast: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("len(sent) = %d, want 2 (everyone but the sender)", len(sent))
	}
	for _, msg := range sent {
		if msg.GetRecipientID() == "u-carol" {
			t.Fatal("sender received their own broadcast")
		}
	}
}

func TestSendBroadcastValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	alice := svc.Client("u-alice")

	if _, err := alice.SendBroadcast(ctx, &BroadcastRequest{Subject: "s", Body: "b"}); !errors.Is(err, ErrInvalidBroadcast) {
		t.Fatalf("neither target: %v, want ErrInvalidBroadcast", err)
	}
	if _, err := alice.SendBroadcast(ctx, &BroadcastRequest{Group: "team", AllUsers: true, Subject: "s", Body: "b"}); !errors.Is(err, ErrInvalidBroadcast) {
		t.Fatalf("both targets: %v, want ErrInvalidBroadcast", err)
	}
	if _, err := alice.SendBroadcast(ctx, &BroadcastRequest{Group: "team", PrimaryRecipient: "nosuch", Subject: "s", Body: "b"}); !errors.Is(err, ErrUnknownRecipient) {
		t.Fatalf("unknown primary: %v, want ErrUnknownRecipient", err)
	}
}

type vetoPlugin struct {
	calls int
}

func (p *vetoPlugin) Name() string                                 { return "veto" }
func (p *vetoPlugin) Init(ctx context.Context, svc *Service) error { return nil }
func (p *vetoPlugin) Close(ctx context.Context) error              { return nil }

func (p *vetoPlugin) BeforeSend(ctx context.Context, req *SendRequest) error {
	p.calls++
	if strings.Contains(req.Body, "forbidden") {
		return errors.New("vetoed")
	}
	return nil
}

func (p *vetoPlugin) AfterSend(ctx context.Context, req *SendRequest, sent []Message) {}

func TestSendHooks(t *testing.T) {
	veto := &vetoPlugin{}
	svc := newTestService(t, WithPlugin(veto))
	ctx := context.Background()
	alice := svc.Client("u-alice")

	if _, err := alice.Send(ctx, &SendRequest{Recipients: []string{"bob"}, Subject: "s", Body: "forbidden text"}); err == nil {
		t.Fatal("vetoed send should fail")
	}
	if _, err := alice.Send(ctx, &SendRequest{Recipients: []string{"bob"}, Subject: "s", Body: "fine"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if veto.calls != 2 {
		t.Fatalf("BeforeSend calls = %d, want 2", veto.calls)
	}

	inbox, err := svc.Client("u-bob").Inbox(ctx)
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(inbox.Messages) != 1 {
		t.Fatalf("bob inbox = %d, want 1 (vetoed send must not deliver)", len(inbox.Messages))
	}
}
