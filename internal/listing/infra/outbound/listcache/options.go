package listcache

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	maxEntries   int
	fetchTimeout time.Duration
	clock        Clock
	log          *zap.Logger
	metrics      *Metrics
}

// Option configura una Cache.
type Option func(*options)

// WithMaxEntries acota la caché con expulsión LRU. n <= 0 = sin límite.
// Las entradas con un fetch en vuelo nunca se expulsan.
func WithMaxEntries(n int) Option {
	return func(o *options) { o.maxEntries = n }
}

// WithFetchTimeout limita cada llamada al fetcher.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) { o.fetchTimeout = d }
}

func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func defaultOptions() options {
	return options{
		clock:   SystemClock{},
		log:     zap.NewNop(),
		metrics: NewMetrics(nil),
	}
}
