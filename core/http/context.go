package http

import (
	"encoding/json"
	"errors"
	"io"
)

// ErrNoConnection is returned by Context.Write when the context has no
// destination to write to.
var ErrNoConnection = errors.New("context has no connection")

// Context binds one request to its response and to the connection it
// arrived on. It lives for a single request and is owned by the worker
// processing it.
type Context struct {
	Fd       int
	PollerFd int

	Request  *Request
	Response *Response

	// Extra carries values between filters, e.g. a controller telling a
	// later view filter which template to render.
	Extra map[string]any

	// Params holds path parameters captured by the router.
	Params map[string]string

	out io.Writer
}

// NewContext creates a context for req writing to the socket req arrived on.
func NewContext(req *Request) *Context {
	var out io.Writer
	if s := req.Socket(); s != nil {
		out = s
	}
	return NewContextWriter(req, out)
}

// NewContextWriter creates a context for req whose response is written to w.
func NewContextWriter(req *Request, w io.Writer) *Context {
	return &Context{
		Fd:       req.Fd,
		PollerFd: req.PollerFd,
		Request:  req,
		Response: NewResponse(),
		Extra:    make(map[string]any),
		out:      w,
	}
}

// Write sends raw bytes to the client.
func (c *Context) Write(p []byte) error {
	if c.out == nil {
		return ErrNoConnection
	}
	_, err := c.out.Write(p)
	return err
}

// Set stores a value for later filters.
func (c *Context) Set(key string, v any) {
	c.Extra[key] = v
}

// Get returns a value stored by an earlier filter.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.Extra[key]
	return v, ok
}

// Param returns a path parameter captured by the router.
func (c *Context) Param(key string) string {
	return c.Params[key]
}

// SetParam records a path parameter.
func (c *Context) SetParam(key, value string) {
	if c.Params == nil {
		c.Params = make(map[string]string, 4)
	}
	c.Params[key] = value
}

// String sets a plain text response.
func (c *Context) String(code int, s string) {
	c.Data(code, "text/plain", []byte(s))
}

// Data sets a response with a custom content type.
func (c *Context) Data(code int, contentType string, data []byte) {
	c.Response.Status = code
	c.Response.Header.Set("content-type", contentType)
	c.Response.Body = data
}

// JSON sets a JSON response.
func (c *Context) JSON(code int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Data(code, "application/json", data)
	return nil
}
