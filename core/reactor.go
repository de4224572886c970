package core

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/searchktools/pulsation/core/http"
	"github.com/searchktools/pulsation/core/observability"
	"github.com/searchktools/pulsation/core/poller"
)

// reactor owns one poller and every connection it accepts. All of its state
// is touched only from its own goroutine.
type reactor struct {
	id     int
	engine *Engine
	log    *zap.Logger

	poller    poller.Poller
	conns     map[int]*connection
	listening bool
	buf       []byte
	lastScan  time.Time
	now       func() time.Time
}

func newReactor(id int, e *Engine) *reactor {
	return &reactor{
		id:     id,
		engine: e,
		log:    e.log.With(zap.Int("reactor", id)),
		conns:  make(map[int]*connection),
		buf:    make([]byte, readChunkSize),
		now:    e.now,
	}
}

func (r *reactor) run(ctx context.Context) error {
	// One poller per OS thread, like the workers.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	p, err := poller.NewPoller(r.engine.maxEvents)
	if err != nil {
		return fmt.Errorf("reactor %d: create poller: %w", r.id, err)
	}
	r.poller = p
	defer r.shutdown()

	if err := p.Add(r.engine.listenFd); err != nil {
		return fmt.Errorf("reactor %d: register listener: %w", r.id, err)
	}
	r.listening = true
	r.lastScan = r.now()

	timeout := int(r.engine.pollTimeout / time.Millisecond)
	r.log.Debug("reactor started", zap.Int("poller_fd", p.Fd()))

	for ctx.Err() == nil {
		r.arbitrateAccept()

		events, err := p.Wait(timeout)
		if err != nil {
			return fmt.Errorf("reactor %d: wait: %w", r.id, err)
		}

		for _, ev := range events {
			if ev.Fd == r.engine.listenFd {
				r.accept()
				continue
			}
			r.readable(ev.Fd, ev.Hangup)
		}

		now := r.now()
		if len(events) == 0 || now.Sub(r.lastScan) >= idleScanInterval {
			r.evictIdle(now)
		}
	}
	return nil
}

// arbitrateAccept keeps the listening socket in this poller only while the
// reactor wins the accept lock, so a new connection wakes one reactor rather
// than all of them.
func (r *reactor) arbitrateAccept() {
	e := r.engine
	if e.acceptMu.TryLock() {
		if !r.listening {
			if err := r.poller.Add(e.listenFd); err != nil {
				r.log.Warn("failed to register listener", zap.Error(err))
			} else {
				r.listening = true
			}
		}
		e.acceptMu.Unlock()
		e.metrics.AcceptArbitration.WithLabelValues("kept").Inc()
		return
	}

	if r.listening {
		if err := r.poller.Remove(e.listenFd); err != nil {
			r.log.Warn("failed to unregister listener", zap.Error(err))
		}
		r.listening = false
	}
	e.metrics.AcceptArbitration.WithLabelValues("yielded").Inc()
}

func (r *reactor) accept() {
	for {
		fd, sa, err := unix.Accept(r.engine.listenFd)
		if err != nil {
			switch {
			case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			case errors.Is(err, unix.EINTR), errors.Is(err, unix.ECONNABORTED):
				continue
			default:
				r.log.Warn("accept failed", zap.Error(err))
			}
			return
		}

		remote := sockaddrString(sa)
		if err := prepareClient(fd); err != nil {
			r.log.Warn("failed to configure client socket", zap.Int("fd", fd), zap.String("remote", remote), zap.Error(err))
			unix.Close(fd)
			continue
		}
		if err := r.poller.Add(fd); err != nil {
			r.log.Warn("failed to register client socket", zap.Int("fd", fd), zap.String("remote", remote), zap.Error(err))
			unix.Close(fd)
			continue
		}

		r.conns[fd] = newConnection(fd, r.poller.Fd(), remote, r.engine.writeTimeout, r.now())
		r.engine.connAccepted()
		r.log.Debug("connection accepted", zap.Int("fd", fd), zap.String("remote", remote))
	}
}

// readable drains fd until it would block, dispatching every request that
// completes along the way. A hangup with nothing left to read ends the
// connection.
func (r *reactor) readable(fd int, hangup bool) {
	c, ok := r.conns[fd]
	if !ok {
		// Closed earlier in the same batch.
		return
	}
	c.lastActive = r.now()

	for {
		n, err := unix.Read(fd, r.buf)
		switch {
		case n > 0:
			r.dispatch(c, c.asm.Feed(r.buf[:n]))
		case errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			if hangup {
				r.closeConn(c, observability.CloseEOF)
			}
			return
		case err != nil:
			r.log.Debug("read failed", zap.Int("fd", fd), zap.Error(err))
			r.closeConn(c, observability.CloseError)
			return
		default:
			r.closeConn(c, observability.CloseEOF)
			return
		}
	}
}

func (r *reactor) dispatch(c *connection, reqs []*http.Request) {
	e := r.engine
	for _, req := range reqs {
		req.BindSocket(c.socket)
		c.socket.Acquire()
		e.queue.Enqueue(req)
		e.requestDispatched()
	}
	if len(reqs) > 0 {
		e.metrics.QueueDepth.Set(float64(e.queue.Len()))
	}
}

func (r *reactor) closeConn(c *connection, reason string) {
	if err := r.poller.Remove(c.fd); err != nil {
		r.log.Debug("failed to unregister client socket", zap.Int("fd", c.fd), zap.Error(err))
	}
	delete(r.conns, c.fd)
	if err := c.socket.Close(); err != nil {
		r.log.Debug("failed to close client socket", zap.Int("fd", c.fd), zap.Error(err))
	}
	r.engine.connClosed(reason)
	r.log.Debug("connection closed", zap.Int("fd", c.fd), zap.String("remote", c.remote), zap.String("reason", reason))
}

func (r *reactor) evictIdle(now time.Time) {
	r.lastScan = now
	for _, c := range r.conns {
		if c.idle(now, r.engine.idleTimeout) {
			r.closeConn(c, observability.CloseIdle)
		}
	}
}

func (r *reactor) shutdown() {
	for _, c := range r.conns {
		r.closeConn(c, observability.CloseShutdown)
	}
	if r.listening {
		if err := r.poller.Remove(r.engine.listenFd); err != nil {
			r.log.Debug("failed to unregister listener", zap.Error(err))
		}
		r.listening = false
	}
	if err := r.poller.Close(); err != nil {
		r.log.Warn("failed to close poller", zap.Error(err))
	}
	r.log.Debug("reactor stopped")
}
