package middleware

import (
	"strings"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
	"github.com/searchktools/pulsation/core/router"
)

// Router dispatches to the route matching the request. Matched handlers end
// the chain; requests no route knows go on to the next filter, and a path
// known only for other methods is answered with 405.
func Router(r *router.Router) *filter.Filter {
	return filter.New(func(_ filter.Props, ctx *http.Context, next filter.Next) error {
		req := ctx.Request
		h, params := r.Find(req.Method, req.Path)
		if h == nil {
			if allowed := r.Allowed(req.Path); len(allowed) > 0 {
				ctx.Response.Header.Set("allow", strings.Join(allowed, ", "))
				return filter.Abort(http.StatusMethodNotAllowed, "405 - Method Not Allowed.")
			}
			return next()
		}

		for k, v := range params {
			ctx.SetParam(k, v)
		}
		return h(ctx)
	}).Named("router")
}
