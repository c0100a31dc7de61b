package migrate

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Defaults for the retry envelope.
const (
	DefaultStartupTimeout = 20 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = time.Second
)

// Hook runs once per Run, outside the retry loop.
type Hook func(ctx context.Context) error

type options struct {
	strict                 bool
	deleteExtraFields      bool
	recreateModifiedFields bool
	production             bool
	startupTimeout         time.Duration
	maxRetries             int
	retryDelay             time.Duration
	beforeMigration        Hook
	afterMigration         Hook
	logger                 *slog.Logger
	ids                    IDGenerator
}

func defaultOptions() options {
	return options{
		startupTimeout: DefaultStartupTimeout,
		maxRetries:     DefaultMaxRetries,
		retryDelay:     DefaultRetryDelay,
		logger:         slog.Default(),
		ids:            UUIDv7Generator{},
	}
}

// Option configures a Reconciler.
type Option func(*options)

// WithStrict enables warnings for undeclared classes, extra fields and
// indexes, and type changes that are not applied.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithDeleteExtraFields lets the reconciler delete live fields and indexes
// that are not declared. Without it they are only reported in strict mode.
func WithDeleteExtraFields(enabled bool) Option {
	return func(o *options) { o.deleteExtraFields = enabled }
}

// WithRecreateModifiedFields lets the reconciler delete and re-add fields
// whose type changed. Without it they are only reported in strict mode.
func WithRecreateModifiedFields(enabled bool) Option {
	return func(o *options) { o.recreateModifiedFields = enabled }
}

// WithProduction arms the startup timeout around bootstrap and
// enumeration.
func WithProduction(production bool) Option {
	return func(o *options) { o.production = production }
}

// WithStartupTimeout overrides the 20s startup window.
func WithStartupTimeout(d time.Duration) Option {
	return func(o *options) { o.startupTimeout = d }
}

// WithMaxRetries sets how many times a failed pass is retried.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = max(n, 0) }
}

// WithRetryDelay sets the base delay; retry n waits n times this delay.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.retryDelay = d }
}

// WithBeforeMigration sets a hook awaited before the first pass.
func WithBeforeMigration(h Hook) Option {
	return func(o *options) { o.beforeMigration = h }
}

// WithAfterMigration sets a hook run after a successful pass.
func WithAfterMigration(h Hook) Option {
	return func(o *options) { o.afterMigration = h }
}

// WithLogger sets the logger. nil discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		o.logger = l
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) { o.ids = g }
}
