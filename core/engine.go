package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
	"github.com/searchktools/pulsation/core/observability"
	"github.com/searchktools/pulsation/core/pools"
	"github.com/searchktools/pulsation/core/queue"
)

// Engine is the server. Reactors accept connections and assemble requests,
// workers run each request through the filter chain.
type Engine struct {
	port         int
	reactors     int
	workers      int
	maxEvents    int
	pollTimeout  time.Duration
	idleTimeout  time.Duration
	writeTimeout time.Duration
	backlog      int

	log     *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu        sync.Mutex
	listenFd  int
	boundPort int
	serving   bool

	// acceptMu arbitrates which reactor watches the listening socket.
	acceptMu sync.Mutex

	chain *filter.Chain
	queue *queue.Queue[*http.Request]
	pool  *pools.WorkerPool[*http.Request]

	accepted   atomic.Uint64
	closed     atomic.Uint64
	open       atomic.Int64
	dispatched atomic.Uint64
	processed  atomic.Uint64
	uncaught   atomic.Uint64
}

// NewEngine creates an engine. Register filters with Use, then call Run.
func NewEngine(opts ...Option) *Engine {
	e := defaultEngine()
	for _, opt := range opts {
		opt(e)
	}
	e.ensureMetrics()
	if e.now == nil {
		e.now = time.Now
	}

	e.chain = filter.NewChain()
	e.queue = queue.New[*http.Request](DefaultQueueSize)
	e.pool = pools.NewWorkerPool(e.workers, e.queue, e.handle,
		pools.PollInterval(e.pollTimeout),
		pools.Logger(e.log.Named("worker")),
	)
	return e
}

// Use appends a filter with no props.
func (e *Engine) Use(cb filter.Callback) *Engine {
	return e.UseFilter(filter.New(cb))
}

// UseInit appends a filter whose props are filled in by init.
func (e *Engine) UseInit(init filter.Init, cb filter.Callback) *Engine {
	return e.UseFilter(filter.NewWithInit(init, cb))
}

// UseFilter appends f to the chain. Filters run in registration order and
// must all be registered before Serve.
func (e *Engine) UseFilter(f *filter.Filter) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.serving {
		panic("core: filter registered while serving")
	}
	e.chain.Append(f)
	return e
}

// Chain returns the filter chain.
func (e *Engine) Chain() *filter.Chain {
	return e.chain
}

// Listen binds the listening socket.
func (e *Engine) Listen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listenFd >= 0 {
		return ErrAlreadyListening
	}

	fd, port, err := listenTCP(e.port, e.backlog)
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", e.port, err)
	}
	e.listenFd = fd
	e.boundPort = port
	e.log.Info("listening", zap.Int("port", port), zap.Int("fd", fd))
	return nil
}

// Port returns the bound port, or 0 before Listen.
func (e *Engine) Port() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.boundPort
}

// Serve runs the reactors and the workers until ctx is done or a reactor
// fails, then closes the listening socket.
func (e *Engine) Serve(ctx context.Context) error {
	e.mu.Lock()
	if e.listenFd < 0 {
		e.mu.Unlock()
		return ErrNotListening
	}
	if e.serving {
		e.mu.Unlock()
		return ErrAlreadyServing
	}
	e.serving = true
	e.mu.Unlock()

	e.log.Info("serving",
		zap.Int("reactors", e.reactors),
		zap.Int("workers", e.workers),
		zap.Int("filters", e.chain.Len()),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.reactors; i++ {
		r := newReactor(i, e)
		g.Go(func() error {
			return r.run(gctx)
		})
	}
	g.Go(func() error {
		return e.pool.Run(gctx)
	})

	err := g.Wait()
	e.drain()
	err = multierr.Append(err, e.Close())

	e.log.Info("stopped",
		zap.Uint64("accepted", e.accepted.Load()),
		zap.Uint64("processed", e.processed.Load()),
	)
	return err
}

// Run listens, unless already listening, and serves until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	listening := e.listenFd >= 0
	e.mu.Unlock()

	if !listening {
		if err := e.Listen(); err != nil {
			return err
		}
	}
	return e.Serve(ctx)
}

// Close closes the listening socket. Serve calls it on return.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listenFd < 0 {
		return nil
	}
	err := unix.Close(e.listenFd)
	e.listenFd = -1
	if err != nil {
		return fmt.Errorf("close listener: %w", err)
	}
	return nil
}

// handle runs on a worker: one request through the whole chain.
func (e *Engine) handle(req *http.Request) {
	start := e.now()
	ctx := http.NewContext(req)

	defer func() {
		if s := req.Socket(); s != nil {
			if err := s.Release(); err != nil {
				e.log.Debug("failed to close client socket", zap.Int("fd", req.Fd), zap.Error(err))
			}
		}
	}()
	defer func() {
		if v := recover(); v != nil {
			e.metrics.WorkerPanics.Inc()
			panic(v)
		}
	}()

	if err := e.chain.Execute(ctx); err != nil {
		e.uncaught.Add(1)
		e.log.Warn("uncaught filter error",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Int("fd", req.Fd),
			zap.Error(err),
		)
	}

	e.processed.Add(1)
	e.metrics.ObserveRequest(req.Method, ctx.Response.Status, e.now().Sub(start))
	e.metrics.QueueDepth.Set(float64(e.queue.Len()))
}

// drain releases requests still queued once the workers are gone.
func (e *Engine) drain() {
	for {
		req, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		if s := req.Socket(); s != nil {
			_ = s.Release()
		}
	}
}

func (e *Engine) connAccepted() {
	e.accepted.Add(1)
	e.open.Add(1)
	e.metrics.ConnectionsAccepted.Inc()
	e.metrics.ConnectionsOpen.Inc()
}

func (e *Engine) connClosed(reason string) {
	e.closed.Add(1)
	e.open.Add(-1)
	e.metrics.ConnectionClosed(reason)
}

func (e *Engine) requestDispatched() {
	e.dispatched.Add(1)
	e.metrics.RequestsDispatched.Inc()
}
