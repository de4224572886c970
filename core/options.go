package core

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/searchktools/pulsation/core/observability"
)

// Option configures an Engine.
type Option func(*Engine)

// ListenOnPort sets the TCP port. Port 0 picks a free port; see Engine.Port.
func ListenOnPort(port int) Option {
	return func(e *Engine) {
		e.port = port
	}
}

// Reactors sets the number of reactor threads.
func Reactors(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.reactors = n
		}
	}
}

// Workers sets the number of worker threads.
func Workers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// MaxEvents bounds the readiness events returned by one poll.
func MaxEvents(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxEvents = n
		}
	}
}

// PollTimeout bounds each readiness wait, and so the idle scan cadence.
func PollTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollTimeout = d
		}
	}
}

// IdleTimeout sets how long a connection may stay silent before eviction.
func IdleTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.idleTimeout = d
		}
	}
}

// WriteTimeout bounds how long a worker waits for a slow client to accept
// its response.
func WriteTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.writeTimeout = d
		}
	}
}

// Backlog sets the listen backlog.
func Backlog(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.backlog = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics sets the metrics the engine records into.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func defaultEngine() *Engine {
	return &Engine{
		reactors:     DefaultReactors,
		workers:      runtime.NumCPU(),
		maxEvents:    DefaultMaxEvents,
		pollTimeout:  DefaultPollTimeout,
		idleTimeout:  DefaultIdleTimeout,
		writeTimeout: DefaultWriteTimeout,
		backlog:      DefaultBacklog,
		log:          zap.NewNop(),
		listenFd:     -1,
	}
}

func (e *Engine) ensureMetrics() {
	if e.metrics == nil {
		e.metrics = observability.NewMetrics(prometheus.NewRegistry())
	}
}
