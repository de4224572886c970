package middleware

import (
	"github.com/google/uuid"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "x-request-id"

// RequestID keeps the client's x-request-id or assigns a new UUID, and
// echoes it on the response.
func RequestID() *filter.Filter {
	return filter.New(func(_ filter.Props, ctx *http.Context, next filter.Next) error {
		id := ctx.Request.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Set(ExtraRequestID, id)
		ctx.Response.Header.Set(RequestIDHeader, id)
		return next()
	}).Named("request_id")
}
