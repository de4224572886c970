package http

import (
	"net/url"
	"strconv"
)

// Request is a parsed HTTP/1.1 request. It is immutable once dispatched and
// consumed by exactly one worker.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Proto    string
	Header   Header
	Body     []byte

	// Originating socket and the poller that owns it.
	Fd       int
	PollerFd int

	socket *Socket
	query  url.Values
}

// Target returns the request target as received on the request line.
func (r *Request) Target() string {
	if r.RawQuery == "" {
		return r.Path
	}
	return r.Path + "?" + r.RawQuery
}

// Query returns the first value of the query parameter key.
func (r *Request) Query(key string) string {
	if r.query == nil {
		// Malformed pairs are skipped; validation belongs to filters.
		r.query, _ = url.ParseQuery(r.RawQuery)
	}
	return r.query.Get(key)
}

// ContentLength returns the declared body length, or 0 when the header is
// absent or unparsable.
func (r *Request) ContentLength() int {
	return parseContentLength(r.Header.Get("content-length"))
}

// Socket returns the connection handle the request arrived on. It is nil for
// requests that were not produced by a reactor.
func (r *Request) Socket() *Socket {
	return r.socket
}

// BindSocket attaches the connection handle the response must be written to.
func (r *Request) BindSocket(s *Socket) {
	r.socket = s
	if s != nil {
		r.Fd = s.Fd()
		r.PollerFd = s.PollerFd()
	}
}

func parseContentLength(v string) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
