package core

import (
	"time"

	"github.com/searchktools/pulsation/core/http"
)

// connection tracks one client socket. It is owned by the reactor that
// accepted it for its whole life.
type connection struct {
	fd         int
	remote     string
	socket     *http.Socket
	asm        *http.Assembler
	lastActive time.Time
}

func newConnection(fd, pollerFd int, remote string, writeTimeout time.Duration, now time.Time) *connection {
	return &connection{
		fd:         fd,
		remote:     remote,
		socket:     http.NewSocket(fd, pollerFd, writeTimeout),
		asm:        http.NewAssembler(4096),
		lastActive: now,
	}
}

// idle reports whether the connection has been silent longer than timeout
// with no request awaiting its response.
func (c *connection) idle(now time.Time, timeout time.Duration) bool {
	return now.Sub(c.lastActive) > timeout && c.socket.InFlight() == 0
}
