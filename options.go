// Copyright 2019 Andy Pan. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reactorcore

import "github.com/loopthread/reactorcore/pkg/logging"

// Option configures a Loop at construction time.
type Option func(*Options)

// Options holds the knobs a Loop's construction can be tuned with. The
// zero value matches the spec's defaults.
type Options struct {
	// UsePoll selects the Multiplexer backend: PollForcePoll and
	// PollForceEpoll override the MUDUO_USE_POLL environment variable,
	// PollUnset leaves the environment variable in charge.
	UsePoll PollMode

	// Logger overrides the package-default logger (pkg/logging's
	// zap-backed default) for this Loop's diagnostics.
	Logger logging.Logger

	// PollTimeoutMs overrides the Multiplexer poll bound. Zero means the
	// spec default of 10 seconds.
	PollTimeoutMs int

	// InitialEventBufferCap overrides the Multiplexer's starting
	// ready-event buffer capacity. Zero means the spec default of 16.
	InitialEventBufferCap int
}

// PollMode selects how a Loop's Multiplexer backend is chosen.
type PollMode int

const (
	// PollUnset defers to the MUDUO_USE_POLL environment variable.
	PollUnset PollMode = iota
	// PollForceEpoll always uses the epoll backend.
	PollForceEpoll
	// PollForcePoll always uses the poll(2) backend.
	PollForcePoll
)

func initOptions(opts ...Option) *Options {
	o := &Options{
		PollTimeoutMs:         pollTimeoutMs,
		InitialEventBufferCap: defaultInitialEventBufferCap,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithPollMode overrides backend selection, bypassing MUDUO_USE_POLL.
func WithPollMode(mode PollMode) Option {
	return func(o *Options) { o.UsePoll = mode }
}

// WithLogger injects a logger for this Loop's diagnostics.
func WithLogger(logger logging.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithPollTimeoutMs overrides the Multiplexer's poll bound.
func WithPollTimeoutMs(ms int) Option {
	return func(o *Options) { o.PollTimeoutMs = ms }
}

// WithInitialEventBufferCap overrides the Multiplexer's starting
// ready-event buffer capacity.
func WithInitialEventBufferCap(cap int) Option {
	return func(o *Options) { o.InitialEventBufferCap = cap }
}
