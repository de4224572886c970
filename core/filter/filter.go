// Package filter implements the ordered middleware chain every request runs
// through.
//
// A Filter pairs a callback with a private property bag. The bag is
// populated once at registration and then shared by every invocation of the
// filter on every worker; the engine does not lock it. A filter that keeps
// mutable runtime state in its bag (a session table, a counter) must
// synchronize that state itself.
package filter

import (
	"errors"
	"fmt"

	"github.com/searchktools/pulsation/core/http"
)

// ErrContinuedTwice is returned by a Next that has already been called.
var ErrContinuedTwice = errors.New("filter: continuation called more than once")

// Props is a filter's private property bag.
type Props map[string]any

// Lookup returns props[key] as a T.
func Lookup[T any](p Props, key string) (T, bool) {
	v, ok := p[key].(T)
	return v, ok
}

// LookupOr returns props[key] as a T, or def when absent or of another type.
func LookupOr[T any](p Props, key string, def T) T {
	if v, ok := p[key].(T); ok {
		return v
	}
	return def
}

// Next passes control to the rest of the chain and returns once it has
// finished, with the error the downstream filters produced.
type Next func() error

// Callback is the body of a filter. It may run logic before and after
// calling next, skip next to short-circuit the chain, or return an error to
// abort processing.
type Callback func(props Props, ctx *http.Context, next Next) error

// Init populates a filter's property bag at registration.
type Init func(props Props)

// Filter is one unit of middleware.
type Filter struct {
	name     string
	props    Props
	callback Callback
}

// New creates a filter with an empty property bag.
func New(cb Callback) *Filter {
	return &Filter{props: make(Props), callback: cb}
}

// NewWithInit creates a filter and runs init once on its property bag.
func NewWithInit(init Init, cb Callback) *Filter {
	f := New(cb)
	if init != nil {
		init(f.props)
	}
	return f
}

// Named sets the name the filter is reported under in logs.
func (f *Filter) Named(name string) *Filter {
	f.name = name
	return f
}

// Name returns the filter name, if any.
func (f *Filter) Name() string {
	return f.name
}

// Props returns the filter's property bag.
func (f *Filter) Props() Props {
	return f.props
}

// Error aborts the chain with a status and message. Filters return it
// (possibly wrapped) and the outermost filter turns it into a response.
type Error struct {
	Status  int
	Message string
}

// Abort returns an *Error for status and message.
func Abort(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("filter aborted with status %d: %s", e.Status, e.Message)
}

// AsError reports whether err carries a filter *Error.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
