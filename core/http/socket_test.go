//go:build linux || darwin

package http

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func socketPair(t *testing.T) (local, peer int) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.SetNonblock(fds[0], true))
	t.Cleanup(func() { unix.Close(fds[1]) })
	return fds[0], fds[1]
}

func isClosed(fd int) bool {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == unix.EBADF
}

func TestSocket_Write(t *testing.T) {
	local, peer := socketPair(t)
	s := NewSocket(local, -1, time.Second)
	defer s.Close()

	n, err := s.Write([]byte("response"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	buf := make([]byte, 16)
	n, err = unix.Read(peer, buf)
	require.NoError(t, err)
	assert.Equal(t, "response", string(buf[:n]))
}

func TestSocket_ConcurrentWrites(t *testing.T) {
	local, peer := socketPair(t)
	s := NewSocket(local, -1, 5*time.Second)
	defer s.Close()

	// Each payload is far larger than the socket buffer, so every Write has
	// to wait for the reader several times before it completes.
	const size = 1 << 20
	payloads := [][]byte{bytes.Repeat([]byte("a"), size), bytes.Repeat([]byte("b"), size)}

	received := make(chan []byte, 1)
	go func() {
		var out []byte
		buf := make([]byte, 64*1024)
		for len(out) < 2*size {
			n, err := unix.Read(peer, buf)
			if err != nil || n == 0 {
				break
			}
			out = append(out, buf[:n]...)
		}
		received <- out
	}()

	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func(p []byte) {
			defer wg.Done()
			n, err := s.Write(p)
			assert.NoError(t, err)
			assert.Equal(t, len(p), n)
		}(p)
	}
	wg.Wait()

	var out []byte
	select {
	case out = <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("peer did not receive both payloads")
	}
	require.Len(t, out, 2*size)

	first, second := out[:size], out[size:]
	assert.Equal(t, size, bytes.Count(first, first[:1]), "first payload interleaved")
	assert.Equal(t, size, bytes.Count(second, second[:1]), "second payload interleaved")
	assert.NotEqual(t, first[0], second[0])
}

func TestSocket_WriteTimeout(t *testing.T) {
	local, _ := socketPair(t)
	s := NewSocket(local, -1, 20*time.Millisecond)
	defer s.Close()

	// Nobody reads the peer, so the buffer eventually fills.
	chunk := make([]byte, 64*1024)
	var err error
	for i := 0; i < 1024 && err == nil; i++ {
		_, err = s.Write(chunk)
	}
	assert.ErrorIs(t, err, ErrWriteTimeout)
}

func TestSocket_Close(t *testing.T) {
	t.Run("closes immediately when idle", func(t *testing.T) {
		local, _ := socketPair(t)
		s := NewSocket(local, -1, time.Second)

		require.NoError(t, s.Close())
		assert.True(t, isClosed(local))

		_, err := s.Write([]byte("x"))
		assert.ErrorIs(t, err, ErrSocketClosed)
	})

	t.Run("defers the close until in-flight requests are released", func(t *testing.T) {
		local, _ := socketPair(t)
		s := NewSocket(local, -1, time.Second)
		s.Acquire()
		s.Acquire()

		require.NoError(t, s.Close())
		assert.False(t, isClosed(local))
		assert.Equal(t, 2, s.InFlight())

		_, err := s.Write([]byte("late response"))
		require.NoError(t, err)

		require.NoError(t, s.Release())
		assert.False(t, isClosed(local))
		require.NoError(t, s.Release())
		assert.True(t, isClosed(local))
	})
}
