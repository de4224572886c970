package middleware

import (
	"time"

	"go.uber.org/zap"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

// Logger logs one line per request once the filters after it are done.
func Logger(log *zap.Logger) *filter.Filter {
	return filter.New(func(_ filter.Props, ctx *http.Context, next filter.Next) error {
		start := time.Now()
		err := next()

		fields := []zap.Field{
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.Path),
			zap.Int("status", ctx.Response.Status),
			zap.Duration("duration", time.Since(start)),
			zap.Int("fd", ctx.Fd),
		}
		if id, ok := ctx.Get(ExtraRequestID); ok {
			fields = append(fields, zap.Any("request_id", id))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		log.Info("request", fields...)

		return err
	}).Named("logger")
}
