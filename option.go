package messages

import (
	"log/slog"
	"time"

	"github.com/rbaliyan/event/v3/transport"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rbaliyan/messages/resolver"
	"github.com/rbaliyan/messages/store"
)

// Defaults and floors for service options.
const (
	// DefaultServiceName is used for event bus and telemetry naming.
	DefaultServiceName = "messages"
	// DefaultTrashRetention is how long both-sides-deleted messages
	// survive before a purge may remove them.
	DefaultTrashRetention = 30 * 24 * time.Hour
	// MinTrashRetention is the shortest configurable retention.
	MinTrashRetention = time.Hour
	// DefaultShutdownTimeout bounds Close waiting for in-flight sends.
	DefaultShutdownTimeout = 30 * time.Second
	// MinShutdownTimeout is the shortest configurable shutdown timeout.
	MinShutdownTimeout = time.Second
	// DefaultQueryLimit is the page size when the caller sets none.
	DefaultQueryLimit = 20
	// DefaultMaxQueryLimit caps caller-requested page sizes.
	DefaultMaxQueryLimit = 100
	// DefaultMaxConcurrentSends bounds parallel send operations.
	DefaultMaxConcurrentSends = 10
	// DefaultStatsTTL is how long cached mailbox stats stay fresh.
	DefaultStatsTTL = 30 * time.Second
	// DefaultPurgeBatchSize is how many messages one purge round removes.
	DefaultPurgeBatchSize = 500
)

// EventPublishFailureFunc is called when a non-fatal event publish fails.
type EventPublishFailureFunc func(eventName, messageID string, err error)

type options struct {
	store     store.Store
	resolver  resolver.Resolver
	directory resolver.Directory
	logger    *slog.Logger

	serviceName string
	limits      MessageLimits

	trashRetention  time.Duration
	shutdownTimeout time.Duration
	purgeBatchSize  int

	defaultQueryLimit  int
	maxQueryLimit      int
	maxConcurrentSends int
	statsTTL           time.Duration

	redisClient         redis.UniversalClient
	eventTransport      transport.Transport
	notifications       bool
	eventErrorsFatal    bool
	eventPublishFailure EventPublishFailureFunc

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	plugins []Plugin
}

// Option configures the service.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		logger:             slog.Default(),
		serviceName:        DefaultServiceName,
		limits:             DefaultLimits(),
		trashRetention:     DefaultTrashRetention,
		shutdownTimeout:    DefaultShutdownTimeout,
		purgeBatchSize:     DefaultPurgeBatchSize,
		defaultQueryLimit:  DefaultQueryLimit,
		maxQueryLimit:      DefaultMaxQueryLimit,
		maxConcurrentSends: DefaultMaxConcurrentSends,
		statsTTL:           DefaultStatsTTL,
		notifications:      true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.defaultQueryLimit > o.maxQueryLimit {
		o.defaultQueryLimit = o.maxQueryLimit
	}
	if o.eventPublishFailure == nil {
		logger := o.logger
		o.eventPublishFailure = func(eventName, messageID string, err error) {
			logger.Error("event publish failed",
				"event", eventName,
				"message_id", messageID,
				"error", err)
		}
	}
	return o
}

// WithStore sets the message store. Required.
func WithStore(s store.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithResolver sets the recipient name resolver. Required for sending
// by name; sends addressed by user ID work without one.
func WithResolver(r resolver.Resolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

// WithDirectory sets the user directory used for broadcasts.
func WithDirectory(d resolver.Directory) Option {
	return func(o *options) {
		if d != nil {
			o.directory = d
		}
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithServiceName sets the name used for event bus and telemetry naming.
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithLimits sets content limits. Zero fields keep their defaults.
func WithLimits(limits MessageLimits) Option {
	return func(o *options) {
		o.limits = limits.withDefaults()
	}
}

// WithTrashRetention sets how long both-sides-deleted messages survive
// before purge. Values below MinTrashRetention are raised to it.
func WithTrashRetention(d time.Duration) Option {
	return func(o *options) {
		if d <= 0 {
			return
		}
		if d < MinTrashRetention {
			d = MinTrashRetention
		}
		o.trashRetention = d
	}
}

// WithShutdownTimeout bounds how long Close waits for in-flight sends.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d <= 0 {
			return
		}
		if d < MinShutdownTimeout {
			d = MinShutdownTimeout
		}
		o.shutdownTimeout = d
	}
}

// WithPurgeBatchSize sets how many messages each purge round removes.
func WithPurgeBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.purgeBatchSize = n
		}
	}
}

// WithQueryLimits sets the default and maximum page sizes for listing.
func WithQueryLimits(defaultLimit, maxLimit int) Option {
	return func(o *options) {
		if defaultLimit > 0 {
			o.defaultQueryLimit = defaultLimit
		}
		if maxLimit > 0 {
			o.maxQueryLimit = maxLimit
		}
	}
}

// WithMaxConcurrentSends bounds parallel send operations.
func WithMaxConcurrentSends(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrentSends = n
		}
	}
}

// WithStatsTTL sets how long cached mailbox stats stay fresh.
func WithStatsTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.statsTTL = d
		}
	}
}

// WithRedisEvents publishes events over Redis using the given client.
func WithRedisEvents(client redis.UniversalClient) Option {
	return func(o *options) {
		if client != nil {
			o.redisClient = client
		}
	}
}

// WithEventTransport sets a custom event transport. Takes precedence
// over WithRedisEvents.
func WithEventTransport(t transport.Transport) Option {
	return func(o *options) {
		if t != nil {
			o.eventTransport = t
		}
	}
}

// WithNotifications enables or disables event publishing entirely.
// Enabled by default.
func WithNotifications(enabled bool) Option {
	return func(o *options) {
		o.notifications = enabled
	}
}

// WithEventErrorsFatal makes event publish failures surface to callers
// as EventPublishError. The triggering operation still commits; only
// its result reporting changes.
func WithEventErrorsFatal(fatal bool) Option {
	return func(o *options) {
		o.eventErrorsFatal = fatal
	}
}

// WithEventPublishFailureHandler sets the callback for non-fatal event
// publish failures. Defaults to logging at error level.
func WithEventPublishFailureHandler(fn EventPublishFailureFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.eventPublishFailure = fn
		}
	}
}

// WithMeterProvider enables metrics with the given provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// WithTracerProvider enables tracing with the given provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithPlugin registers a plugin initialized on Connect.
func WithPlugin(p Plugin) Option {
	return func(o *options) {
		if p != nil {
			o.plugins = append(o.plugins, p)
		}
	}
}
