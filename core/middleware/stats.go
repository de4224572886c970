package middleware

import (
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/searchktools/pulsation/core/codec"
	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

// Stats answers GET requests for path with the values source returns,
// encoded as JSON or protobuf depending on the accept header.
func Stats(path string, source func() map[string]any) *filter.Filter {
	return filter.New(func(_ filter.Props, ctx *http.Context, next filter.Next) error {
		if ctx.Request.Method != "GET" || ctx.Request.Path != path {
			return next()
		}

		msg, err := structpb.NewStruct(source())
		if err != nil {
			return err
		}
		c := codec.Negotiate(ctx.Request.Header.Get("accept"))
		data, err := c.Encode(msg)
		if err != nil {
			return err
		}
		ctx.Data(http.StatusOK, c.ContentType(), data)
		return nil
	}).Named("stats")
}
