package collector

import "go.uber.org/zap"

// DefaultMaxBodyBytes bounds a single export request
const DefaultMaxBodyBytes = 16 << 20

type options struct {
	logger       *zap.Logger
	metrics      *Metrics
	maxBodyBytes int64
}

// Option configures a Server or GRPCServer
type Option func(*options)

// WithLogger sets the logger for request and transport errors
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records export metrics into m. Servers sharing a store should
// share m as well.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithMaxBodyBytes bounds the size of one export request
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) { o.maxBodyBytes = n }
}

func buildOptions(store *Store, opts []Option) options {
	o := options{
		logger:       zap.NewNop(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(store)
	}
	if o.maxBodyBytes <= 0 {
		o.maxBodyBytes = DefaultMaxBodyBytes
	}
	return o
}
