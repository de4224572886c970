// Package middleware provides ready-made filters for the engine: response
// writing, logging, tracing, metrics, CORS, compression, static files,
// sessions, templates and routing.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/searchktools/pulsation/core/filter"
)

// Keys of values filters exchange through Context.Extra.
const (
	// ExtraRequestID holds the request id assigned by RequestID.
	ExtraRequestID = "request_id"
	// ExtraUserDetails holds the user name of an authenticated session.
	ExtraUserDetails = "user_details"
	// ExtraTemplatePath names the template View renders, relative to its dir.
	ExtraTemplatePath = "tpl_path"
	// ExtraTemplateParams holds the map[string]string View substitutes.
	ExtraTemplateParams = "tpl_params"
	// ExtraTraceContext holds the context.Context carrying the request span.
	ExtraTraceContext = "trace_ctx"
)

// ServerName is sent in the server header of every response.
const ServerName = "pulsation"

// callNext runs next, turning a panic downstream into an error.
func callNext(next filter.Next) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return next()
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
