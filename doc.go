// Package messages implements private user-to-user messaging with
// per-participant soft delete, threaded replies, and idempotent read
// tracking.
//
// A Service owns the store, event bus and shared policy; per-user
// mailboxes are cheap handles created with Client:
//
//	svc, err := messages.New(
//		messages.WithStore(memory.New()),
//		messages.WithResolver(directory),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := svc.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	alice := svc.Client("alice")
//	sent, err := alice.Send(ctx, &messages.SendRequest{
//		Recipients: []string{"bob"},
//		Subject:    "hello",
//		Body:       "hi bob",
//	})
//
// Every message has exactly one sender and one recipient; sending to
// several recipients creates an independent copy per recipient. Each
// participant deletes and restores their own copy without affecting
// the other side, and messages both sides deleted are permanently
// removed by PurgeDeleted after the retention period.
//
// Stores are pluggable: memory for tests, postgres and mongo for
// production. Lifecycle events publish through an in-process bus by
// default, or over Redis with WithRedisEvents for multi-instance
// deployments.
package messages
