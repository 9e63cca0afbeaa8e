package mongo

import "time"

const (
	// DefaultDatabase is the database name used when none is configured.
	DefaultDatabase = "messages"
	// DefaultCollection is the collection name used when none is configured.
	DefaultCollection = "messages"
	// DefaultTimeout bounds individual operations.
	DefaultTimeout = 5 * time.Second
)

type options struct {
	database   string
	collection string
	timeout    time.Duration
}

// Option configures the MongoDB store.
type Option func(*options)

func newOptions(opts ...Option) options {
	o := options{
		database:   DefaultDatabase,
		collection: DefaultCollection,
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithDatabase sets the database name.
func WithDatabase(name string) Option {
	return func(o *options) {
		if name != "" {
			o.database = name
		}
	}
}

// WithCollection sets the collection name.
func WithCollection(name string) Option {
	return func(o *options) {
		if name != "" {
			o.collection = name
		}
	}
}

// WithTimeout bounds the duration of individual operations.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}
