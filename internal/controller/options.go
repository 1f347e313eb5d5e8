package controller

import "github.com/rs/zerolog"

type options struct {
	logger zerolog.Logger
	mock   bool
}

// Option configures a controller.
type Option func(*options)

// WithLogger sets the controller's logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMockMode marks the backend as the in-process fixture backend.
func WithMockMode(mock bool) Option {
	return func(o *options) { o.mock = mock }
}

func buildOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
