package core

import (
	"errors"
	"time"
)

// Defaults for the operational parameters.
const (
	DefaultReactors     = 4
	DefaultMaxEvents    = 1024
	DefaultPollTimeout  = 100 * time.Millisecond
	DefaultIdleTimeout  = 60 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultBacklog      = 128
	DefaultQueueSize    = 2048

	readChunkSize = 16 * 1024

	// Busy reactors rarely see an empty poll; they still scan for idle
	// connections at least this often.
	idleScanInterval = time.Second
)

// Error definitions
var (
	ErrNotListening     = errors.New("engine is not listening")
	ErrAlreadyListening = errors.New("engine is already listening")
	ErrAlreadyServing   = errors.New("engine is already serving")
)
