// Package mongo provides a MongoDB-backed message store using the
// official v2 driver. Message IDs are stored as string _id values so
// pagination cursors stay portable across store backends.
package mongo

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/rbaliyan/messages/store"
)

// Store is a MongoDB implementation of store.Store.
type Store struct {
	uri         string
	client      *mongo.Client
	ownedClient bool
	coll        *mongo.Collection
	opts        options

	connected int32
}

// New creates a store that opens its own client on Connect.
func New(uri string, opts ...Option) *Store {
	return &Store{
		uri:         uri,
		ownedClient: true,
		opts:        newOptions(opts...),
	}
}

// NewWithClient creates a store on an existing client. Close does not
// disconnect the client.
func NewWithClient(client *mongo.Client, opts ...Option) *Store {
	return &Store{
		client: client,
		opts:   newOptions(opts...),
	}
}

// Connect verifies the connection and creates indexes.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	ok := false
	defer func() {
		if !ok {
			atomic.StoreInt32(&s.connected, 0)
		}
	}()

	if s.client == nil {
		client, err := mongo.Connect(mongooptions.Client().ApplyURI(s.uri))
		if err != nil {
			return fmt.Errorf("mongo: connect: %w", err)
		}
		s.client = client
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo: ping: %w", err)
	}
	s.coll = s.client.Database(s.opts.database).Collection(s.opts.collection)
	if err := s.ensureIndexes(ctx); err != nil {
		return err
	}
	ok = true
	return nil
}

// Close disconnects the client when owned by the store.
func (s *Store) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 1, 0) {
		return store.ErrNotConnected
	}
	if s.ownedClient && s.client != nil {
		return s.client.Disconnect(ctx)
	}
	return nil
}

// Connected reports whether the store is usable.
func (s *Store) Connected() bool {
	return atomic.LoadInt32(&s.connected) == 1
}

func (s *Store) checkConnected() error {
	if !s.Connected() {
		return store.ErrNotConnected
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.timeout)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "sent_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "sent_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "parent_id", Value: 1}}},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("mongo: create indexes: %w", err)
	}
	return nil
}
