// Package postgres provides a PostgreSQL-backed message store using
// database/sql via sqlx and the lib/pq driver.
package postgres

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/rbaliyan/messages/store"
)

// Store is a PostgreSQL implementation of store.Store.
type Store struct {
	dsn     string
	db      *sqlx.DB
	ownedDB bool
	opts    options

	connected int32
}

// New creates a store that opens its own connection pool on Connect.
func New(dsn string, opts ...Option) *Store {
	return &Store{
		dsn:     dsn,
		ownedDB: true,
		opts:    newOptions(opts...),
	}
}

// NewWithDB creates a store on an existing connection pool. Close does
// not close the pool.
func NewWithDB(db *sqlx.DB, opts ...Option) *Store {
	return &Store{
		db:   db,
		opts: newOptions(opts...),
	}
}

// Connect verifies the connection and creates the schema if needed.
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

	if s.db == nil {
		db, err := sqlx.Open("postgres", s.dsn)
		if err != nil {
			return fmt.Errorf("postgres: open: %w", err)
		}
		s.db = db
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	ok = true
	return nil
}

// Close releases the connection pool when owned by the store.
func (s *Store) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 1, 0) {
		return store.ErrNotConnected
	}
	if s.ownedDB && s.db != nil {
		return s.db.Close()
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

func (s *Store) ensureSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			sender_id TEXT NOT NULL,
			recipient_id TEXT,
			parent_id UUID,
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL,
			read_at TIMESTAMPTZ,
			replied_at TIMESTAMPTZ,
			sender_deleted_at TIMESTAMPTZ,
			recipient_deleted_at TIMESTAMPTZ
		)`, s.opts.table)
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: create table: %w", err)
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_recipient_sent_idx ON %[1]s (recipient_id, sent_at DESC, id DESC)`, s.opts.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_sender_sent_idx ON %[1]s (sender_id, sent_at DESC, id DESC)`, s.opts.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_parent_idx ON %[1]s (parent_id) WHERE parent_id IS NOT NULL`, s.opts.table),
	}
	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("postgres: create index: %w", err)
		}
	}
	return nil
}
