package budget

import (
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// IDGenerator returns a fresh opaque identifier.
type IDGenerator func() string

// NewUUID is the default IDGenerator.
func NewUUID() string { return uuid.NewString() }

type options struct {
	clock  Clock
	ids    IDGenerator
	logger *slog.Logger
}

// Option configures an Engine or Registry.
type Option func(*options)

// WithClock sets the timestamp source. It is wrapped in a MonotonicClock
// unless it already is one.
func WithClock(c Clock) Option { return func(o *options) { o.clock = c } }

func WithIDGenerator(g IDGenerator) Option { return func(o *options) { o.ids = g } }

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if _, ok := o.clock.(*MonotonicClock); !ok {
		o.clock = NewMonotonicClock(o.clock)
	}
	if o.ids == nil {
		o.ids = NewUUID
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}
