package middleware

import (
	"strconv"
	"strings"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

// CORSConfig configures the CORS filter.
type CORSConfig struct {
	// Origin is sent as access-control-allow-origin. Empty echoes the
	// request's origin.
	Origin           string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds; 0 omits the header.
	MaxAge int
}

// DefaultCORSConfig allows any origin for the common methods.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		Origin:           "*",
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept"},
		AllowCredentials: true,
		MaxAge:           5,
	}
}

// CORS answers preflight requests itself with a 204 and decorates every
// other cross-origin response.
func CORS(cfg CORSConfig) *filter.Filter {
	init := func(p filter.Props) {
		p["origin"] = cfg.Origin
		p["allow_methods"] = cfg.AllowMethods
		p["allow_headers"] = cfg.AllowHeaders
		p["expose_headers"] = cfg.ExposeHeaders
		p["credentials"] = cfg.AllowCredentials
		p["max_age"] = cfg.MaxAge
	}
	return filter.NewWithInit(init, corsFilter).Named("cors")
}

func corsFilter(props filter.Props, ctx *http.Context, next filter.Next) error {
	req := ctx.Request
	origin, ok := req.Header.Lookup("origin")
	if !ok {
		return next()
	}
	if o := filter.LookupOr(props, "origin", ""); o != "" {
		origin = o
	}

	h := ctx.Response.Header
	if req.Method != "OPTIONS" {
		h.Set("access-control-allow-origin", origin)
		if filter.LookupOr(props, "credentials", false) {
			h.Set("access-control-allow-credentials", "true")
		}
		if expose := filter.LookupOr[[]string](props, "expose_headers", nil); len(expose) > 0 {
			h.Set("access-control-expose-headers", strings.Join(expose, ","))
		}
		return next()
	}

	if !req.Header.Has("access-control-request-method") {
		return next()
	}

	h.Set("access-control-allow-origin", origin)
	if filter.LookupOr(props, "credentials", false) {
		h.Set("access-control-allow-credentials", "true")
	}
	if maxAge := filter.LookupOr(props, "max_age", 0); maxAge > 0 {
		h.Set("access-control-max-age", strconv.Itoa(maxAge))
	}
	if methods := filter.LookupOr[[]string](props, "allow_methods", nil); len(methods) > 0 {
		h.Set("access-control-allow-methods", strings.Join(methods, ","))
	}
	if headers := filter.LookupOr[[]string](props, "allow_headers", nil); len(headers) > 0 {
		h.Set("access-control-allow-headers", strings.Join(headers, ","))
	} else if requested, ok := req.Header.Lookup("access-control-request-headers"); ok {
		h.Set("access-control-allow-headers", requested)
	}
	ctx.Response.Status = http.StatusNoContent
	return nil
}
