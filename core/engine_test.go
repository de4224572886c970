//go:build linux || darwin

package core

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

// respond writes whatever the inner filters left in the response.
func respond(_ filter.Props, ctx *http.Context, next filter.Next) error {
	if err := next(); err != nil {
		return err
	}
	wire, err := ctx.Response.AppendWire(nil)
	if err != nil {
		return err
	}
	return ctx.Write(wire)
}

func echoPath(_ filter.Props, ctx *http.Context, _ filter.Next) error {
	ctx.String(http.StatusOK, ctx.Request.Path)
	return nil
}

func startEngine(t *testing.T, opts []Option, filters ...filter.Callback) (*Engine, func()) {
	t.Helper()

	opts = append([]Option{
		ListenOnPort(0),
		Reactors(2),
		Workers(2),
		PollTimeout(10 * time.Millisecond),
		WithLogger(zaptest.NewLogger(t)),
	}, opts...)
	e := NewEngine(opts...)
	e.Use(respond)
	for _, cb := range filters {
		e.Use(cb)
	}
	require.NoError(t, e.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Serve(ctx)
	}()

	return e, func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("engine did not stop")
		}
	}
}

func dial(t *testing.T, e *Engine) net.Conn {
	t.Helper()

	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", e.Port()), time.Second)
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readResponse(t *testing.T, r *bufio.Reader) (int, string) {
	t.Helper()

	resp, err := nethttp.ReadResponse(r, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestEngine_ServesRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, stop := startEngine(t, nil, func(_ filter.Props, ctx *http.Context, _ filter.Next) error {
		ctx.String(http.StatusOK, "hi")
		return nil
	})
	defer stop()

	conn := dial(t, e)
	_, err := io.WriteString(conn, "GET /hello HTTP/1.1\r\nhost: localhost\r\n\r\n")
	require.NoError(t, err)

	want := "HTTP/1.1 200 OK\r\ncontent-type: text/plain\r\ncontent-length: 2\r\n\r\nhi"
	got := make([]byte, len(want))
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestEngine_Pipelining(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, stop := startEngine(t, []Option{Workers(1)}, echoPath)
	defer stop()

	conn := dial(t, e)
	_, err := io.WriteString(conn,
		"GET /one HTTP/1.1\r\n\r\nGET /two HTTP/1.1\r\n\r\nGET /three HTTP/1.1\r\n\r\n")
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	for _, path := range []string{"/one", "/two", "/three"} {
		status, body := readResponse(t, r)
		assert.Equal(t, 200, status)
		assert.Equal(t, path, body)
	}
}

func TestEngine_PipeliningLargeResponses(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Several workers answer requests of the same connection concurrently;
	// each response must still reach the client whole.
	const size = 4 << 20
	e, stop := startEngine(t, []Option{Workers(4)}, func(_ filter.Props, ctx *http.Context, _ filter.Next) error {
		fill := []byte(ctx.Request.Path[1:2])
		ctx.Data(http.StatusOK, "application/octet-stream", bytes.Repeat(fill, size))
		return nil
	})
	defer stop()

	conn := dial(t, e)
	_, err := io.WriteString(conn, "GET /a HTTP/1.1\r\n\r\nGET /b HTTP/1.1\r\n\r\n")
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	seen := make(map[byte]bool)
	for i := 0; i < 2; i++ {
		status, body := readResponse(t, r)
		assert.Equal(t, 200, status)
		require.Len(t, body, size)
		assert.Equal(t, size, strings.Count(body, body[:1]), "response %d interleaved", i)
		seen[body[0]] = true
	}
	assert.Equal(t, map[byte]bool{'a': true, 'b': true}, seen)
}

func TestEngine_FragmentedRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, stop := startEngine(t, nil, func(_ filter.Props, ctx *http.Context, _ filter.Next) error {
		ctx.String(http.StatusOK, string(ctx.Request.Body))
		return nil
	})
	defer stop()

	conn := dial(t, e)
	raw := "POST /submit HTTP/1.1\r\ncontent-length: 11\r\n\r\nhello world"
	for _, part := range []string{raw[:7], raw[7:30], raw[30:44], raw[44:]} {
		_, err := io.WriteString(conn, part)
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
	}

	status, body := readResponse(t, bufio.NewReader(conn))
	assert.Equal(t, 200, status)
	assert.Equal(t, "hello world", body)
}

func TestEngine_ManyConnections(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, stop := startEngine(t, []Option{Reactors(4), Workers(4)}, echoPath)
	defer stop()

	const clients = 16
	errs := make(chan error, clients)
	for i := 0; i < clients; i++ {
		go func(i int) {
			conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", e.Port()), time.Second)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			conn.SetDeadline(time.Now().Add(5 * time.Second))

			path := fmt.Sprintf("/client/%d", i)
			if _, err := fmt.Fprintf(conn, "GET %s HTTP/1.1\r\n\r\n", path); err != nil {
				errs <- err
				return
			}
			resp, err := nethttp.ReadResponse(bufio.NewReader(conn), nil)
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err == nil && string(body) != path {
				err = fmt.Errorf("got body %q, want %q", body, path)
			}
			errs <- err
		}(i)
	}

	for i := 0; i < clients; i++ {
		assert.NoError(t, <-errs)
	}
	require.Eventually(t, func() bool {
		return e.Stats().RequestsProcessed == clients
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_IdleEviction(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, stop := startEngine(t, []Option{IdleTimeout(200 * time.Millisecond)}, echoPath)
	defer stop()

	t.Run("will close a silent connection", func(t *testing.T) {
		conn := dial(t, e)
		start := time.Now()

		_, err := conn.Read(make([]byte, 1))
		assert.ErrorIs(t, err, io.EOF)
		assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	})

	t.Run("will keep a connection that keeps talking", func(t *testing.T) {
		conn := dial(t, e)
		r := bufio.NewReader(conn)

		for i := 0; i < 5; i++ {
			_, err := io.WriteString(conn, "GET /ping HTTP/1.1\r\n\r\n")
			require.NoError(t, err)
			status, body := readResponse(t, r)
			assert.Equal(t, 200, status)
			assert.Equal(t, "/ping", body)
			time.Sleep(100 * time.Millisecond)
		}
	})
}

func TestEngine_PeerCloseAfterRequest(t *testing.T) {
	defer goleak.VerifyNone(t)

	e, stop := startEngine(t, nil, echoPath)
	defer stop()

	conn := dial(t, e)
	_, err := io.WriteString(conn, "GET /bye HTTP/1.1\r\n\r\n")
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	status, body := readResponse(t, bufio.NewReader(conn))
	assert.Equal(t, 200, status)
	assert.Equal(t, "/bye", body)

	require.Eventually(t, func() bool {
		return e.Stats().ConnectionsOpen == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("will refuse to serve before listening", func(t *testing.T) {
		e := NewEngine(ListenOnPort(0))
		assert.ErrorIs(t, e.Serve(context.Background()), ErrNotListening)
	})

	t.Run("will refuse to listen twice", func(t *testing.T) {
		e := NewEngine(ListenOnPort(0))
		require.NoError(t, e.Listen())
		defer e.Close()

		assert.NotZero(t, e.Port())
		assert.ErrorIs(t, e.Listen(), ErrAlreadyListening)
	})

	t.Run("will stop when the context is cancelled", func(t *testing.T) {
		e := NewEngine(ListenOnPort(0), Reactors(1), Workers(1), PollTimeout(10*time.Millisecond))
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		assert.NoError(t, e.Run(ctx))
		assert.ErrorIs(t, e.Serve(context.Background()), ErrNotListening)
	})

	t.Run("will panic on registration while serving", func(t *testing.T) {
		e := NewEngine()
		e.serving = true
		assert.Panics(t, func() { e.Use(echoPath) })
	})
}

func TestEngine_NoResponseWithoutResponder(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewEngine(ListenOnPort(0), Reactors(1), Workers(1), PollTimeout(10*time.Millisecond))
	e.Use(echoPath)
	require.NoError(t, e.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Serve(ctx) }()

	conn := dial(t, e)
	_, err := io.WriteString(conn, "GET /quiet HTTP/1.1\r\n\r\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return e.Stats().RequestsProcessed == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, err = conn.Read(make([]byte, 1))
	var nerr net.Error
	require.ErrorAs(t, err, &nerr)
	assert.True(t, nerr.Timeout())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, uint64(1), e.Stats().ConnectionsClosed)
}
