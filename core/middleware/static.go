package middleware

import (
	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

const (
	notFoundPage    = "/404.html"
	serverErrorPage = "/50x.html"

	fileCacheEntries = 256
	fileCacheMaxSize = 1 << 20
)

// Static serves GET requests from files under dir. Requests it cannot serve
// go down the chain.
//
// With errorPages set, a request nobody answered (or answered with 404) is
// redirected to /404.html, and a 5xx answer gets the body of /50x.html,
// provided those pages exist under dir.
func Static(dir string, errorPages bool) *filter.Filter {
	init := func(p filter.Props) {
		p["dir"] = dir
		p["error_handle_page"] = errorPages
		p["cache"] = newFileCache(fileCacheEntries, fileCacheMaxSize)
	}
	return filter.NewWithInit(init, staticFilter).Named("static")
}

func staticFilter(props filter.Props, ctx *http.Context, next filter.Next) error {
	if ctx.Request.Method != "GET" {
		return next()
	}

	dir := filter.LookupOr(props, "dir", "")
	cache := filter.LookupOr[*fileCache](props, "cache", nil)
	if name, ok := resolve(dir, ctx.Request.Path); ok {
		return serveFile(ctx, cache, name)
	}

	err := next()
	if !filter.LookupOr(props, "error_handle_page", false) {
		return err
	}

	status := ctx.Response.Status
	if err != nil {
		status = http.StatusInternalServerError
		if fe, ok := filter.AsError(err); ok {
			status = fe.Status
		}
	}

	switch {
	case status == 0 || status == http.StatusNotFound:
		if ctx.Request.Path == notFoundPage {
			return err
		}
		if _, ok := resolve(dir, notFoundPage); ok {
			ctx.Response.Status = http.StatusFound
			ctx.Response.Body = nil
			ctx.Response.Header.Set("location", notFoundPage)
			return nil
		}
	case status >= 500 && status < 600:
		if name, ok := resolve(dir, serverErrorPage); ok {
			if ferr := serveFile(ctx, cache, name); ferr != nil {
				return err
			}
			ctx.Response.Status = status
			return nil
		}
	}
	return err
}

func serveFile(ctx *http.Context, cache *fileCache, name string) error {
	data, err := cache.Read(name)
	if err != nil {
		return err
	}
	ctx.Data(http.StatusOK, contentType(name), data)
	return nil
}
