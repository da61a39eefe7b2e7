package sqlmap

import "log/slog"

type options struct {
	log         *slog.Logger
	strict      bool
	placeholder Placeholder
	phSet       bool
}

// Option configures a Dispatcher or Factory.
type Option func(*options)

// WithLogger sets the logger used for swallowed failures and debug tracing.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithStrict makes every call-time failure an error. By default execution
// and connection failures are logged and the call returns a nil result.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithPlaceholder overrides the placeholder style derived from the driver name.
func WithPlaceholder(ph Placeholder) Option {
	return func(o *options) { o.placeholder, o.phSet = ph, true }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = Logger()
	}
	return o
}
