package decoder

import (
	"log/slog"

	"github.com/roach88/spinql/internal/stats"
)

// TailPolicy decides what the second element of a two-element search
// argument list means.
type TailPolicy int

const (
	// TailThreshold reads (term threshold). This is the default.
	TailThreshold TailPolicy = iota

	// TailLimit reads (term limit).
	TailLimit

	// TailInfer reads an integer literal as a limit and any other numeric
	// literal as a threshold.
	TailInfer
)

func (p TailPolicy) String() string {
	switch p {
	case TailThreshold:
		return "threshold"
	case TailLimit:
		return "limit"
	case TailInfer:
		return "infer"
	}
	return "unknown"
}

// ParseTailPolicy parses the String form of a policy.
func ParseTailPolicy(s string) (TailPolicy, bool) {
	for _, p := range []TailPolicy{TailThreshold, TailLimit, TailInfer} {
		if p.String() == s {
			return p, true
		}
	}
	return TailThreshold, false
}

type config struct {
	tail     TailPolicy
	stats    *stats.Manager
	logger   *slog.Logger
	tempVars TempVarGenerator
}

// Option configures decoding.
type Option func(*config)

// WithTailPolicy sets how two-element search argument lists are read.
func WithTailPolicy(p TailPolicy) Option {
	return func(c *config) {
		c.tail = p
	}
}

// WithStats records decode and expansion timings in m.
func WithStats(m *stats.Manager) Option {
	return func(c *config) {
		c.stats = m
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithTempVars sets the generator for unbound template variables.
// Default: UUIDTempVars.
func WithTempVars(g TempVarGenerator) Option {
	return func(c *config) {
		c.tempVars = g
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		tail:     TailThreshold,
		logger:   slog.Default(),
		tempVars: UUIDTempVars{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// timer starts a stats measurement when a manager is configured.
func (c *config) timer(label, context string) func() {
	if c.stats == nil {
		return func() {}
	}
	return c.stats.Start(label, context)
}
