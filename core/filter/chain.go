package filter

import (
	"github.com/searchktools/pulsation/core/http"
)

// Chain is an ordered list of filters; registration order is execution order.
// Append before the chain is shared; Execute is safe for concurrent use
// because every request gets its own continuations.
type Chain struct {
	filters []*Filter
}

// NewChain creates a chain from filters.
func NewChain(filters ...*Filter) *Chain {
	return &Chain{filters: append([]*Filter(nil), filters...)}
}

// Append adds f to the end of the chain.
func (c *Chain) Append(f *Filter) *Chain {
	c.filters = append(c.filters, f)
	return c
}

// Len returns the number of filters.
func (c *Chain) Len() int {
	return len(c.filters)
}

// Filters returns a copy of the registered filters.
func (c *Chain) Filters() []*Filter {
	return append([]*Filter(nil), c.filters...)
}

// Execute runs the chain for one request. Each filter receives a
// continuation that invokes the next filter; the last filter's continuation
// does nothing. The error returned is whatever escaped the first filter.
func (c *Chain) Execute(ctx *http.Context) error {
	return c.invoke(0, ctx)
}

func (c *Chain) invoke(i int, ctx *http.Context) error {
	if i >= len(c.filters) {
		return nil
	}

	f := c.filters[i]
	called := false
	next := func() error {
		if called {
			return ErrContinuedTwice
		}
		called = true
		return c.invoke(i+1, ctx)
	}
	return f.callback(f.props, ctx, next)
}
