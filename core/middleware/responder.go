package middleware

import (
	"errors"

	"go.uber.org/zap"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

const (
	// NotFoundBody is the body sent when no filter produced a response.
	NotFoundBody = "404 - Not Found.(From Server pulsation)"
	// InternalErrorBody is the body sent for errors that are not aborts.
	InternalErrorBody = "500 - Internal Server Error.(From Server pulsation)"
)

// Responder finalizes and writes the response. Register it first so it
// wraps every other filter:
//   - an abort returned downstream becomes its status and message
//   - any other error or panic becomes a 500
//   - an unset or unknown status becomes a 404
func Responder(log *zap.Logger) *filter.Filter {
	if log == nil {
		log = zap.NewNop()
	}

	return filter.New(func(_ filter.Props, ctx *http.Context, next filter.Next) error {
		res := ctx.Response

		if err := callNext(next); err != nil {
			if fe, ok := filter.AsError(err); ok {
				res.Status = fe.Status
				res.SetBody(fe.Message)
			} else {
				fields := []zap.Field{
					zap.String("method", ctx.Request.Method),
					zap.String("path", ctx.Request.Path),
					zap.Error(err),
				}
				var pe *panicError
				if errors.As(err, &pe) {
					fields = append(fields, zap.ByteString("stack", pe.stack))
				}
				log.Error("filter failed", fields...)

				res.Status = http.StatusInternalServerError
				res.SetBody(InternalErrorBody)
			}
		}

		if _, ok := http.StatusText(res.Status); !ok {
			res.Status = http.StatusNotFound
			res.SetBody(NotFoundBody)
		}

		res.Header.SetDefault("content-type", "text/plain")
		res.Header.Set("server", ServerName)

		wire, err := res.AppendWire(nil)
		if err != nil {
			return err
		}
		return ctx.Write(wire)
	}).Named("responder")
}
