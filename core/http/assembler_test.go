package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postMessage = "POST /submit?id=7 HTTP/1.1\r\n" +
	"Host: example.com\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Length: 11\r\n" +
	"\r\n" +
	"hello world"

func TestAssembler_Feed(t *testing.T) {
	t.Run("parses a complete message", func(t *testing.T) {
		a := NewAssembler(64)

		reqs := a.Feed([]byte(postMessage))
		require.Len(t, reqs, 1)

		req := reqs[0]
		assert.Equal(t, "POST", req.Method)
		assert.Equal(t, "/submit", req.Path)
		assert.Equal(t, "id=7", req.RawQuery)
		assert.Equal(t, "7", req.Query("id"))
		assert.Equal(t, "HTTP/1.1", req.Proto)
		assert.Equal(t, "example.com", req.Header.Get("host"))
		assert.Equal(t, "text/plain", req.Header.Get("CONTENT-TYPE"))
		assert.Equal(t, []byte("hello world"), req.Body)
		assert.Zero(t, a.Len())
	})

	t.Run("yields the same request whatever the chunking", func(t *testing.T) {
		whole := NewAssembler(64).Feed([]byte(postMessage))
		require.Len(t, whole, 1)

		for _, size := range []int{1, 2, 3, 7, 16, 40} {
			a := NewAssembler(8)
			var got []*Request
			msg := []byte(postMessage)
			for len(msg) > 0 {
				n := size
				if n > len(msg) {
					n = len(msg)
				}
				got = append(got, a.Feed(msg[:n])...)
				msg = msg[n:]
			}

			require.Len(t, got, 1, "chunk size %d", size)
			assert.Equal(t, whole[0], got[0], "chunk size %d", size)
			assert.Zero(t, a.Len(), "chunk size %d", size)
		}
	})

	t.Run("yields pipelined requests in arrival order", func(t *testing.T) {
		a := NewAssembler(64)

		reqs := a.Feed([]byte("GET /first HTTP/1.1\r\nHost: x\r\n\r\n" + postMessage))
		require.Len(t, reqs, 2)
		assert.Equal(t, "/first", reqs[0].Path)
		assert.Empty(t, reqs[0].Body)
		assert.Equal(t, "/submit", reqs[1].Path)
		assert.Zero(t, a.Len())
	})

	t.Run("keeps a partial body buffered", func(t *testing.T) {
		a := NewAssembler(64)
		partial := "PUT /x HTTP/1.1\r\ncontent-length: 10\r\n\r\n12345"

		reqs := a.Feed([]byte(partial))
		assert.Empty(t, reqs)
		assert.Equal(t, []byte(partial), a.Buffered())
		assert.Equal(t, 5, a.BodyRemaining())

		reqs = a.Feed([]byte("67890"))
		require.Len(t, reqs, 1)
		assert.Equal(t, []byte("1234567890"), reqs[0].Body)
		assert.Zero(t, a.BodyRemaining())
	})

	t.Run("waits for the header terminator", func(t *testing.T) {
		a := NewAssembler(64)

		assert.Empty(t, a.Feed([]byte("GET / HTTP/1.1\r\nHost: x\r\n")))
		assert.Equal(t, 25, a.Len())

		reqs := a.Feed([]byte("\r\n"))
		require.Len(t, reqs, 1)
		assert.Equal(t, "/", reqs[0].Path)
	})

	t.Run("leaves a trailing partial message after complete ones", func(t *testing.T) {
		a := NewAssembler(64)

		reqs := a.Feed([]byte("GET /a HTTP/1.1\r\n\r\nGET /b HTT"))
		require.Len(t, reqs, 1)
		assert.Equal(t, []byte("GET /b HTT"), a.Buffered())
	})

	t.Run("is best-effort about malformed input", func(t *testing.T) {
		a := NewAssembler(64)

		reqs := a.Feed([]byte("BROKEN\r\nno colon here\r\nx-len: abc\r\ncontent-length: nope\r\n\r\n"))
		require.Len(t, reqs, 1)
		assert.Equal(t, "BROKEN", reqs[0].Method)
		assert.Empty(t, reqs[0].Path)
		assert.Empty(t, reqs[0].Proto)
		assert.Equal(t, "abc", reqs[0].Header.Get("X-Len"))
		assert.Len(t, reqs[0].Header, 2)
		assert.Empty(t, reqs[0].Body)
	})

	t.Run("skips blank lines between messages", func(t *testing.T) {
		a := NewAssembler(64)

		reqs := a.Feed([]byte("\r\n\r\nGET /a HTTP/1.1\r\n\r\n\r\nGET /b HTTP/1.1\r\n\r\n"))
		require.Len(t, reqs, 2)
		assert.Equal(t, "/a", reqs[0].Path)
		assert.Equal(t, "/b", reqs[1].Path)
	})
}

func TestAssembler_Reset(t *testing.T) {
	a := NewAssembler(16)
	a.Feed([]byte("POST / HTTP/1.1\r\ncontent-length: 4\r\n\r\nab"))
	require.NotZero(t, a.Len())

	a.Reset()
	assert.Zero(t, a.Len())
	assert.Zero(t, a.BodyRemaining())
}
