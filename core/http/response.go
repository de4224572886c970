package http

import (
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/net/http/httpguts"
)

// ErrUnknownStatus is returned when serializing a response whose status has
// no reason phrase.
var ErrUnknownStatus = errors.New("unknown response status")

// Response is built up by the filter chain and serialized once at the end.
type Response struct {
	// Status is 0 until a filter sets it.
	Status int
	Header Header
	Body   []byte
}

// NewResponse returns an empty response with no status set.
func NewResponse() *Response {
	return &Response{Header: make(Header, 8)}
}

// SetBody replaces the body with s.
func (r *Response) SetBody(s string) {
	r.Body = []byte(s)
}

// AppendWire appends the HTTP/1.1 wire form of r to dst: status line,
// headers in key order, content-length and the body. Header fields that are
// not valid on the wire are dropped, as is any content-length set by a filter.
func (r *Response) AppendWire(dst []byte) ([]byte, error) {
	reason, ok := StatusText(r.Status)
	if !ok {
		return dst, fmt.Errorf("%w: %d", ErrUnknownStatus, r.Status)
	}

	dst = append(dst, "HTTP/1.1 "...)
	dst = strconv.AppendInt(dst, int64(r.Status), 10)
	dst = append(dst, ' ')
	dst = append(dst, reason...)
	dst = append(dst, "\r\n"...)

	for _, k := range r.Header.Keys() {
		v := r.Header[k]
		if k == "content-length" || !httpguts.ValidHeaderFieldName(k) || !httpguts.ValidHeaderFieldValue(v) {
			continue
		}
		dst = append(dst, k...)
		dst = append(dst, ": "...)
		dst = append(dst, v...)
		dst = append(dst, "\r\n"...)
	}

	dst = append(dst, "content-length: "...)
	dst = strconv.AppendInt(dst, int64(len(r.Body)), 10)
	dst = append(dst, "\r\n\r\n"...)

	return append(dst, r.Body...), nil
}
