package poller

// Event is a single readiness notification returned by Wait.
type Event struct {
	Fd int
	// Hangup is set when the peer shut down its side or the descriptor
	// reported an error condition. Readable data may still be pending.
	Hangup bool
}

// Poller is the I/O multiplexing interface. A Poller is owned by exactly one
// goroutine; it is not safe for concurrent use.
type Poller interface {
	Add(fd int) error
	Remove(fd int) error
	// Wait blocks for at most timeout milliseconds. A negative timeout
	// blocks indefinitely. An interrupted wait returns no events and no error.
	Wait(timeout int) ([]Event, error)
	// Fd returns the multiplexer's own descriptor.
	Fd() int
	Close() error
}
