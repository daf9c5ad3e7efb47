package client

import (
	"time"

	"github.com/mcnet-go/mcnet"
)

type options struct {
	pollInterval time.Duration
	tickInterval time.Duration
	onTick       func(delta time.Duration)
	connOptions  []mcnet.Option
}

type Option func(*options)

func defaultOptions() options {
	return options{
		pollInterval: 20 * time.Millisecond,
		tickInterval: 50 * time.Millisecond,
	}
}

// WithPollInterval sets how often the connection is pumped.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithTick installs a periodic callback. It runs on the same goroutine
// as the pump, so it may send packets through the connection.
func WithTick(interval time.Duration, fn func(delta time.Duration)) Option {
	return func(o *options) {
		o.tickInterval = interval
		o.onTick = fn
	}
}

// WithConnectionOptions forwards options to the owned connection.
func WithConnectionOptions(opts ...mcnet.Option) Option {
	return func(o *options) {
		o.connOptions = append(o.connOptions, opts...)
	}
}
