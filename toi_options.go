package toi

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/toi-lang/toi/loader"
	"github.com/toi-lang/toi/vm"
)

// Option configures loading or running a toi program.
type Option func(*options)

type options struct {
	output               io.Writer
	observer             vm.Observer
	logger               *zerolog.Logger
	maxCallDepth         int
	contextCheckInterval *int
	skipValidation       bool
}

func collectOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) loaderOpts() []loader.Option {
	var opts []loader.Option
	if o.skipValidation {
		opts = append(opts, loader.WithoutValidation())
	}
	return opts
}

func (o *options) vmOpts() []vm.Option {
	var opts []vm.Option
	if o.output != nil {
		opts = append(opts, vm.WithOutput(o.output))
	}
	if o.observer != nil {
		opts = append(opts, vm.WithObserver(o.observer))
	}
	if o.logger != nil {
		opts = append(opts, vm.WithLogger(*o.logger))
	}
	if o.maxCallDepth > 0 {
		opts = append(opts, vm.WithMaxCallDepth(o.maxCallDepth))
	}
	if o.contextCheckInterval != nil {
		opts = append(opts, vm.WithContextCheckInterval(*o.contextCheckInterval))
	}
	return opts
}

// WithOutput sets the writer that receives PRINTLN output. The default is
// os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithObserver sets an observer for VM execution events.
// The observer receives callbacks for instruction steps, function calls,
// and function returns.
func WithObserver(observer vm.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithLogger sets the logger for run lifecycle messages.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithMaxCallDepth limits how deeply function calls may nest.
func WithMaxCallDepth(depth int) Option {
	return func(o *options) {
		o.maxCallDepth = depth
	}
}

// WithContextCheckInterval sets how many instructions run between checks
// of ctx.Done().
func WithContextCheckInterval(interval int) Option {
	return func(o *options) {
		o.contextCheckInterval = &interval
	}
}

// WithoutValidation skips eager validation when loading. Problems are then
// reported when the faulty instruction executes.
func WithoutValidation() Option {
	return func(o *options) {
		o.skipValidation = true
	}
}
