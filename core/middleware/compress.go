package middleware

import (
	"bytes"
	"compress/gzip"
	"mime"
	"strings"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

// DefaultCompressTypes are the media types Compress handles when none are
// given.
var DefaultCompressTypes = []string{
	"text/html",
	"text/css",
	"text/plain",
	"application/javascript",
	"application/x-javascript",
	"application/json",
	"image/svg+xml",
}

// Compress gzips response bodies whose content-type is one of types when
// the client accepts gzip.
func Compress(types ...string) *filter.Filter {
	if len(types) == 0 {
		types = DefaultCompressTypes
	}
	init := func(p filter.Props) {
		set := make(map[string]struct{}, len(types))
		for _, t := range types {
			set[strings.ToLower(t)] = struct{}{}
		}
		p["mime_types"] = set
	}
	return filter.NewWithInit(init, compressFilter).Named("compress")
}

func compressFilter(props filter.Props, ctx *http.Context, next filter.Next) error {
	if err := next(); err != nil {
		return err
	}

	res := ctx.Response
	if len(res.Body) == 0 || res.Header.Has("content-encoding") || !acceptsGzip(ctx.Request.Header.Get("accept-encoding")) {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(res.Header.Get("content-type"))
	if err != nil {
		return nil
	}
	types := filter.LookupOr[map[string]struct{}](props, "mime_types", nil)
	if _, ok := types[mediaType]; !ok {
		return nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(res.Body); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	res.Body = buf.Bytes()
	res.Header.Set("content-encoding", "gzip")
	res.Header.Set("vary", "accept-encoding")
	return nil
}

func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(part, ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding != "gzip" && coding != "*" {
			continue
		}
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok && strings.Trim(q, "0.") == "" {
			continue
		}
		return true
	}
	return false
}
