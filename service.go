package messages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
	"golang.org/x/sync/semaphore"

	"github.com/rbaliyan/messages/store"
)

// Service connection states.
const (
	stateDisconnected int32 = iota
	stateConnecting
	stateConnected
)

// busCounter makes event bus names unique across service instances in
// the same process.
var busCounter int64

// Service owns the store, event bus and shared policy. Create one per
// process, Connect it, and hand out per-user mailboxes via Client.
type Service struct {
	store   store.Store
	opts    *options
	logger  *slog.Logger
	plugins *pluginRegistry
	otel    *otelInstrumentation
	sendSem *semaphore.Weighted
	stats   *statsCache

	eventBus *event.Bus
	events   *ServiceEvents

	state int32
}

// New creates a service. The store option is required; everything else
// has defaults. Call Connect before use.
func New(opts ...Option) (*Service, error) {
	o := newOptions(opts...)
	if o.store == nil {
		return nil, ErrStoreRequired
	}
	otelInst, err := newOTelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("messages: init telemetry: %w", err)
	}
	return &Service{
		store:   o.store,
		opts:    o,
		logger:  o.logger,
		plugins: &pluginRegistry{plugins: o.plugins},
		otel:    otelInst,
		sendSem: semaphore.NewWeighted(int64(o.maxConcurrentSends)),
		stats:   newStatsCache(o.statsTTL),
		events:  newServiceEvents(),
	}, nil
}

// Connect brings up the store, event bus and plugins. Safe to call from
// one goroutine while others call Connected; a second Connect returns
// ErrAlreadyConnected.
func (s *Service) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}
	ok := false
	defer func() {
		if ok {
			atomic.StoreInt32(&s.state, stateConnected)
		} else {
			atomic.StoreInt32(&s.state, stateDisconnected)
		}
	}()

	if err := s.store.Connect(ctx); err != nil && !errors.Is(err, store.ErrAlreadyConnected) {
		return fmt.Errorf("messages: connect store: %w", err)
	}
	if err := s.initEvents(ctx); err != nil {
		return err
	}
	if err := s.plugins.initAll(ctx, s); err != nil {
		return err
	}
	ok = true
	s.logger.Info("messages service connected", "service", s.opts.serviceName)
	return nil
}

// initEvents creates the bus, binds events, and subscribes the internal
// stats invalidation handlers.
func (s *Service) initEvents(ctx context.Context) error {
	var tr transport.Transport
	switch {
	case s.opts.eventTransport != nil:
		tr = s.opts.eventTransport
	case s.opts.redisClient != nil:
		redisTr, err := eventredis.New(s.opts.redisClient)
		if err != nil {
			return fmt.Errorf("messages: create redis transport: %w", err)
		}
		tr = redisTr
	default:
		tr = noop.New()
	}

	busName := fmt.Sprintf("%s-%d", s.opts.serviceName, atomic.AddInt64(&busCounter, 1))
	bus, err := event.NewBus(busName, event.WithTransport(tr))
	if err != nil {
		return fmt.Errorf("messages: create event bus: %w", err)
	}
	s.eventBus = bus

	if err := s.events.register(ctx, bus); err != nil {
		return fmt.Errorf("messages: register events: %w", err)
	}
	return s.subscribeStatsHandlers(ctx)
}

// Close waits for in-flight sends, then tears down plugins, event bus
// and store. In-flight sends past the shutdown timeout are abandoned.
func (s *Service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateConnected, stateDisconnected) {
		return ErrNotConnected
	}

	drainCtx, cancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
	defer cancel()
	if err := s.sendSem.Acquire(drainCtx, int64(s.opts.maxConcurrentSends)); err != nil {
		s.logger.Warn("shutdown timeout with sends in flight", "error", err)
	} else {
		s.sendSem.Release(int64(s.opts.maxConcurrentSends))
	}

	var firstErr error
	if err := s.plugins.closeAll(ctx); err != nil {
		firstErr = err
	}
	if s.eventBus != nil {
		if err := s.eventBus.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("messages: close event bus: %w", err)
		}
	}
	if err := s.store.Close(ctx); err != nil && !errors.Is(err, store.ErrNotConnected) && firstErr == nil {
		firstErr = fmt.Errorf("messages: close store: %w", err)
	}
	return firstErr
}

// Connected reports whether the service is usable.
func (s *Service) Connected() bool {
	return atomic.LoadInt32(&s.state) == stateConnected
}

// Events exposes the service events for subscription.
func (s *Service) Events() *ServiceEvents {
	return s.events
}

// Store exposes the underlying store, mainly for plugins.
func (s *Service) Store() store.Store {
	return s.store
}

// Client returns the mailbox of the given user. The mailbox is a cheap
// stateless handle; create one per request if convenient.
func (s *Service) Client(userID string) Mailbox {
	return &userMailbox{
		userID:      userID,
		svc:         s,
		validUserID: isValidUserID(userID),
	}
}

// DetachUser clears the recipient reference on every message addressed
// to the user, keeping sender copies intact. Used when an account is
// removed. Returns how many messages were detached.
func (s *Service) DetachUser(ctx context.Context, userID string) (int64, error) {
	if !s.Connected() {
		return 0, ErrNotConnected
	}
	if !isValidUserID(userID) {
		return 0, ErrInvalidUserID
	}
	ctx, end := s.otel.startOp(ctx, "detach_user")
	var detached int64
	var retErr error
	defer func() { end(retErr) }()

	filters := []store.Filter{store.RecipientIs(userID)}
	for {
		if err := ctx.Err(); err != nil {
			retErr = err
			return detached, err
		}
		list, err := s.store.Find(ctx, filters, store.ListOptions{Limit: s.opts.purgeBatchSize})
		if err != nil {
			retErr = err
			return detached, err
		}
		if len(list.Messages) == 0 {
			return detached, nil
		}
		for _, msg := range list.Messages {
			if err := s.store.DetachRecipient(ctx, msg.GetID()); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				retErr = err
				return detached, err
			}
			detached++
		}
	}
}

// publish sends an event payload, honoring the notifications flag and
// the configured failure policy. The returned error is non-nil only
// when event errors are fatal.
func publish[T any](ctx context.Context, s *Service, ev event.Event[T], name, messageID string, data T) error {
	if !s.opts.notifications {
		return nil
	}
	err := safePublish(ctx, ev, data)
	if err == nil {
		return nil
	}
	if s.opts.eventErrorsFatal {
		return &EventPublishError{Event: name, MessageID: messageID, Err: err}
	}
	s.opts.eventPublishFailure(name, messageID, err)
	return nil
}

// safePublish isolates the caller from panics in event transports.
func safePublish[T any](ctx context.Context, ev event.Event[T], data T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("messages: event publish panic: %v", r)
		}
	}()
	return ev.Publish(ctx, data)
}
