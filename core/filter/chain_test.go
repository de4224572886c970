package filter

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/pulsation/core/http"
)

func newContext() *http.Context {
	return http.NewContext(&http.Request{Method: "GET", Path: "/", Header: http.Header{}})
}

func recorder(order *[]string, name string, proceed bool) *Filter {
	return New(func(_ Props, _ *http.Context, next Next) error {
		*order = append(*order, name+":before")
		if proceed {
			if err := next(); err != nil {
				return err
			}
		}
		*order = append(*order, name+":after")
		return nil
	})
}

func TestChain_Execute(t *testing.T) {
	t.Run("wraps each filter around the next", func(t *testing.T) {
		var order []string
		c := NewChain(recorder(&order, "A", true), recorder(&order, "B", true))

		require.NoError(t, c.Execute(newContext()))
		assert.Equal(t, []string{"A:before", "B:before", "B:after", "A:after"}, order)
	})

	t.Run("stops when a filter does not continue", func(t *testing.T) {
		var order []string
		c := NewChain(
			recorder(&order, "A", false),
			recorder(&order, "B", true),
			recorder(&order, "C", true),
		)

		require.NoError(t, c.Execute(newContext()))
		assert.Equal(t, []string{"A:before", "A:after"}, order)
	})

	t.Run("propagates an abort through entered filters", func(t *testing.T) {
		var order []string
		var caught *Error

		outer := New(func(_ Props, ctx *http.Context, next Next) error {
			err := next()
			if fe, ok := AsError(err); ok {
				caught = fe
				ctx.Response.Status = fe.Status
				return nil
			}
			return err
		})
		thrower := New(func(_ Props, _ *http.Context, _ Next) error {
			return fmt.Errorf("loading user: %w", Abort(http.StatusForbidden, "no access"))
		})

		ctx := newContext()
		c := NewChain(outer, recorder(&order, "mid", true), thrower, recorder(&order, "never", true))

		require.NoError(t, c.Execute(ctx))
		require.NotNil(t, caught)
		assert.Equal(t, http.StatusForbidden, caught.Status)
		assert.Equal(t, "no access", caught.Message)
		assert.Equal(t, http.StatusForbidden, ctx.Response.Status)
		assert.Equal(t, []string{"mid:before"}, order)
	})

	t.Run("returns an uncaught error to the caller", func(t *testing.T) {
		boom := errors.New("boom")
		c := NewChain(New(func(_ Props, _ *http.Context, _ Next) error { return boom }))

		assert.ErrorIs(t, c.Execute(newContext()), boom)
	})

	t.Run("refuses a second continuation", func(t *testing.T) {
		calls := 0
		c := NewChain(
			New(func(_ Props, _ *http.Context, next Next) error {
				require.NoError(t, next())
				return next()
			}),
			New(func(_ Props, _ *http.Context, _ Next) error {
				calls++
				return nil
			}),
		)

		assert.ErrorIs(t, c.Execute(newContext()), ErrContinuedTwice)
		assert.Equal(t, 1, calls)
	})

	t.Run("runs nothing for an empty chain", func(t *testing.T) {
		assert.NoError(t, NewChain().Execute(newContext()))
	})
}

func TestChain_ConcurrentRequests(t *testing.T) {
	// Each request must see its own continuation even though filters are shared.
	c := NewChain(
		New(func(_ Props, ctx *http.Context, next Next) error {
			ctx.Set("trail", ctx.Request.Path)
			return next()
		}),
		New(func(_ Props, ctx *http.Context, _ Next) error {
			v, _ := ctx.Get("trail")
			ctx.Response.SetBody(v.(string))
			return nil
		}),
	)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("/req/%d", i)
			ctx := http.NewContext(&http.Request{Method: "GET", Path: path, Header: http.Header{}})
			assert.NoError(t, c.Execute(ctx))
			assert.Equal(t, path, string(ctx.Response.Body))
		}(i)
	}
	wg.Wait()
}

func TestNewWithInit(t *testing.T) {
	f := NewWithInit(func(p Props) {
		p["origin"] = "*"
		p["max_age"] = 5
	}, func(p Props, ctx *http.Context, next Next) error {
		ctx.Response.Header.Set("origin", LookupOr(p, "origin", ""))
		return next()
	})

	origin, ok := Lookup[string](f.Props(), "origin")
	assert.True(t, ok)
	assert.Equal(t, "*", origin)
	assert.Equal(t, 5, LookupOr(f.Props(), "max_age", 0))
	assert.Equal(t, "fallback", LookupOr(f.Props(), "missing", "fallback"))

	_, ok = Lookup[int](f.Props(), "origin")
	assert.False(t, ok)
}
