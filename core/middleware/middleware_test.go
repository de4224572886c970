package middleware

import (
	"bufio"
	"bytes"
	"io"
	nethttp "net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

type header map[string]string

func newRequest(method, path string, h header) *http.Request {
	req := &http.Request{Method: method, Path: path, Proto: "HTTP/1.1", Header: http.Header{}}
	for k, v := range h {
		req.Header.Set(k, v)
	}
	return req
}

// run executes filters for req and returns the context with what was
// written to the connection.
func run(t *testing.T, req *http.Request, filters ...*filter.Filter) (*http.Context, *bytes.Buffer, error) {
	t.Helper()

	var out bytes.Buffer
	ctx := http.NewContextWriter(req, &out)
	err := filter.NewChain(filters...).Execute(ctx)
	return ctx, &out, err
}

func handler(cb func(ctx *http.Context) error) *filter.Filter {
	return filter.New(func(_ filter.Props, ctx *http.Context, _ filter.Next) error {
		return cb(ctx)
	})
}

func reply(status int, body string) *filter.Filter {
	return handler(func(ctx *http.Context) error {
		ctx.String(status, body)
		return nil
	})
}

func parseWire(t *testing.T, wire *bytes.Buffer) (*nethttp.Response, string) {
	t.Helper()

	resp, err := nethttp.ReadResponse(bufio.NewReader(wire), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}
