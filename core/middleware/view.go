package middleware

import (
	"strings"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

// View renders templates from dir. A later filter selects one by setting
// ExtraTemplatePath and ExtraTemplateParams; every "${name}" in the template
// is replaced by the matching parameter.
func View(dir string) *filter.Filter {
	init := func(p filter.Props) {
		p["dir"] = dir
		p["cache"] = newFileCache(fileCacheEntries, fileCacheMaxSize)
	}
	return filter.NewWithInit(init, viewFilter).Named("view")
}

func viewFilter(props filter.Props, ctx *http.Context, next filter.Next) error {
	if err := next(); err != nil {
		return err
	}
	if ctx.Request.Method != "GET" {
		return nil
	}

	tplPath, ok := lookupExtra[string](ctx, ExtraTemplatePath)
	if !ok {
		return nil
	}
	params, ok := lookupExtra[map[string]string](ctx, ExtraTemplateParams)
	if !ok {
		return nil
	}
	name, ok := resolve(filter.LookupOr(props, "dir", ""), tplPath)
	if !ok {
		return nil
	}

	tpl, err := filter.LookupOr[*fileCache](props, "cache", nil).Read(name)
	if err != nil {
		return err
	}
	ctx.Data(http.StatusOK, contentType(name), []byte(Render(string(tpl), params)))
	return nil
}

// Render replaces each "${name}" in tpl with params[name]. Unknown
// placeholders are left as they are.
func Render(tpl string, params map[string]string) string {
	if len(params) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		pairs = append(pairs, "${"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

func lookupExtra[T any](ctx *http.Context, key string) (T, bool) {
	var zero T
	v, ok := ctx.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
