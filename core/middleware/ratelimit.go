package middleware

import (
	"golang.org/x/time/rate"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

// RateLimit aborts with 429 once requests exceed rps, allowing bursts of
// up to burst requests. The limit is shared by every connection.
func RateLimit(rps float64, burst int) *filter.Filter {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return filter.New(func(_ filter.Props, ctx *http.Context, next filter.Next) error {
		if !limiter.Allow() {
			ctx.Response.Header.Set("retry-after", "1")
			return filter.Abort(http.StatusTooManyRequests, "429 - Too Many Requests.")
		}
		return next()
	}).Named("rate_limit")
}
