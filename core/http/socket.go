package http

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrSocketClosed is returned when writing to a socket whose descriptor
	// has already been released.
	ErrSocketClosed = errors.New("socket closed")
	// ErrWriteTimeout is returned when the peer does not drain the socket
	// within the write timeout.
	ErrWriteTimeout = errors.New("socket write timeout")
)

// Socket is a non-blocking client descriptor shared by the reactor that owns
// the connection and the workers answering its requests.
//
// The reactor calls Acquire for every request it dispatches and Close when
// the connection ends; workers call Release once the response is written.
// The descriptor itself is closed only when the connection has ended and no
// request is in flight, so its number cannot be reused by a new connection
// while a worker may still write to it.
type Socket struct {
	fd           int
	pollerFd     int
	writeTimeout time.Duration

	mu       sync.Mutex
	inflight int
	closed   bool
	released bool

	// writeMu keeps each response contiguous on the wire when several
	// workers answer pipelined requests of the same connection.
	writeMu sync.Mutex
}

// NewSocket wraps fd, registered with the poller pollerFd.
func NewSocket(fd, pollerFd int, writeTimeout time.Duration) *Socket {
	return &Socket{
		fd:           fd,
		pollerFd:     pollerFd,
		writeTimeout: writeTimeout,
	}
}

// Fd returns the socket descriptor.
func (s *Socket) Fd() int { return s.fd }

// PollerFd returns the descriptor of the poller the socket is registered with.
func (s *Socket) PollerFd() int { return s.pollerFd }

// Acquire records a request in flight on this socket.
func (s *Socket) Acquire() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

// Release marks one in-flight request as answered.
func (s *Socket) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight > 0 {
		s.inflight--
	}
	if s.closed && s.inflight == 0 {
		return s.releaseLocked()
	}
	return nil
}

// InFlight returns the number of requests dispatched but not yet released.
func (s *Socket) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight
}

// Close ends the connection. The descriptor is closed now if no request is
// in flight, otherwise by the last Release.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.inflight == 0 {
		return s.releaseLocked()
	}
	return nil
}

func (s *Socket) releaseLocked() error {
	if s.released {
		return nil
	}
	s.released = true
	return unix.Close(s.fd)
}

// Write writes all of p, waiting for the socket to become writable when the
// kernel buffer is full. Concurrent writes are serialized, never interleaved.
func (s *Socket) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return 0, ErrSocketClosed
	}

	var deadline time.Time
	if s.writeTimeout > 0 {
		deadline = time.Now().Add(s.writeTimeout)
	}

	written := 0
	for written < len(p) {
		n, err := unix.Write(s.fd, p[written:])
		if n > 0 {
			written += n
		}
		switch err {
		case nil:
		case unix.EINTR:
		case unix.EAGAIN:
			if err := s.waitWritable(deadline); err != nil {
				return written, err
			}
		default:
			return written, err
		}
	}
	return written, nil
}

func (s *Socket) waitWritable(deadline time.Time) error {
	timeout := -1
	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrWriteTimeout
		}
		timeout = int(remaining / time.Millisecond)
		if timeout == 0 {
			timeout = 1
		}
	}

	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLOUT}}
	n, err := unix.Poll(fds, timeout)
	if err != nil && err != unix.EINTR {
		return err
	}
	if n == 0 && err == nil {
		return ErrWriteTimeout
	}
	return nil
}
