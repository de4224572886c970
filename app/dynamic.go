package app

import (
	"strconv"
	"time"

	"github.com/searchktools/pulsation/core/http"
	"github.com/searchktools/pulsation/core/middleware"
)

// DynamicTemplate is the template DynamicPage renders.
const DynamicTemplate = "/dynamic.html"

// DynamicPage is a controller that asks the view filter to render
// DynamicTemplate with details of the request.
func DynamicPage(ctx *http.Context) error {
	req := ctx.Request
	ctx.Set(middleware.ExtraTemplatePath, DynamicTemplate)
	ctx.Set(middleware.ExtraTemplateParams, map[string]string{
		"now":      time.Now().Format(time.DateTime),
		"fd":       strconv.Itoa(ctx.Fd),
		"method":   req.Method,
		"path":     req.Path,
		"protocol": req.Proto,
	})
	return nil
}
