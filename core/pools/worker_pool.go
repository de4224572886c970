package pools

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/searchktools/pulsation/core/queue"
)

// Handler processes one item taken from the queue.
type Handler[T any] func(T)

// WorkerPool runs a fixed number of workers, each pulling one item at a time
// from a shared queue and handling it synchronously.
type WorkerPool[T any] struct {
	numWorkers   int
	source       *queue.Queue[T]
	handle       Handler[T]
	pollInterval time.Duration
	log          *zap.Logger

	// Statistics
	stats struct {
		tasksCompleted atomic.Uint64
		tasksPanicked  atomic.Uint64
		busy           atomic.Int64
	}
}

// Option configures a WorkerPool.
type Option func(*options)

type options struct {
	pollInterval time.Duration
	log          *zap.Logger
}

// PollInterval bounds how long an idle worker waits on the queue before
// checking for shutdown.
func PollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// Logger sets the logger used to report handler panics.
func Logger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// NewWorkerPool creates a pool of numWorkers workers draining source.
func NewWorkerPool[T any](numWorkers int, source *queue.Queue[T], handle Handler[T], opts ...Option) *WorkerPool[T] {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	o := options{
		pollInterval: 100 * time.Millisecond,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &WorkerPool[T]{
		numWorkers:   numWorkers,
		source:       source,
		handle:       handle,
		pollInterval: o.pollInterval,
		log:          o.log,
	}
}

// Run starts the workers and blocks until ctx is done and every worker has
// finished the item it was handling.
func (p *WorkerPool[T]) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(ctx, id)
		}(i)
	}
	wg.Wait()
	return nil
}

// work is the main loop for a worker goroutine
func (p *WorkerPool[T]) work(ctx context.Context, id int) {
	// Workers model OS threads: a handler that blocks holds its thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	log := p.log.With(zap.Int("worker", id))
	for {
		item, ok := p.source.DequeueWait(ctx, p.pollInterval)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		p.process(log, item)
	}
}

func (p *WorkerPool[T]) process(log *zap.Logger, item T) {
	p.stats.busy.Add(1)
	defer func() {
		p.stats.busy.Add(-1)
		if r := recover(); r != nil {
			p.stats.tasksPanicked.Add(1)
			log.Error("worker recovered from panic", zap.String("panic", fmt.Sprint(r)), zap.Stack("stack"))
			return
		}
		p.stats.tasksCompleted.Add(1)
	}()

	p.handle(item)
}

// Stats returns pool statistics
func (p *WorkerPool[T]) Stats() WorkerPoolStats {
	return WorkerPoolStats{
		NumWorkers:     p.numWorkers,
		Busy:           int(p.stats.busy.Load()),
		TasksCompleted: p.stats.tasksCompleted.Load(),
		TasksPanicked:  p.stats.tasksPanicked.Load(),
	}
}

// WorkerPoolStats contains pool statistics
type WorkerPoolStats struct {
	NumWorkers     int
	Busy           int
	TasksCompleted uint64
	TasksPanicked  uint64
}
