package application

import (
	"log/slog"
	"time"
)

type options struct {
	logger       *slog.Logger
	excludePaths []string
	fileWorkers  int
	repoWorkers  int
	audit        bool
	tree         bool
	now          func() time.Time
	newID        func(time.Time) string
}

// Option configures the application services. Each service reads only the
// settings that apply to it.
type Option func(*options)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithExcludePaths adds scanner exclude patterns.
func WithExcludePaths(patterns ...string) Option {
	return func(o *options) { o.excludePaths = append(o.excludePaths, patterns...) }
}

// WithFileConcurrency bounds parallel file parsing per repository.
func WithFileConcurrency(n int) Option { return func(o *options) { o.fileWorkers = n } }

// WithRepositoryConcurrency bounds parallel repository collection.
func WithRepositoryConcurrency(n int) Option { return func(o *options) { o.repoWorkers = n } }

// WithAudit toggles vulnerability audits during inventory.
func WithAudit(enabled bool) Option { return func(o *options) { o.audit = enabled } }

// WithTree toggles dependency tree resolution during inventory.
func WithTree(enabled bool) Option { return func(o *options) { o.tree = enabled } }

// WithClock replaces time.Now, for deterministic result ids in tests.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithIDGenerator replaces the result id scheme.
func WithIDGenerator(gen func(time.Time) string) Option { return func(o *options) { o.newID = gen } }

func buildOptions(opts []Option) options {
	o := options{
		logger:      slog.Default(),
		fileWorkers: 8,
		repoWorkers: 4,
		audit:       true,
		tree:        true,
		now:         time.Now,
		newID:       NewResultID,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fileWorkers < 1 {
		o.fileWorkers = 1
	}
	if o.repoWorkers < 1 {
		o.repoWorkers = 1
	}
	return o
}
