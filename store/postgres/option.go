package postgres

import "time"

const (
	// DefaultTable is the table name used when none is configured.
	DefaultTable = "messages"
	// DefaultTimeout bounds individual queries.
	DefaultTimeout = 5 * time.Second
)

type options struct {
	table   string
	timeout time.Duration
}

// Option configures the PostgreSQL store.
type Option func(*options)

func newOptions(opts ...Option) options {
	o := options{
		table:   DefaultTable,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithTable sets the table name. The name is interpolated into queries,
// so it must come from configuration, never from user input.
func WithTable(table string) Option {
	return func(o *options) {
		if table != "" {
			o.table = table
		}
	}
}

// WithTimeout bounds the duration of individual queries.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}
