package router

import (
	"sort"
	"strings"

	"github.com/searchktools/pulsation/core/http"
)

// HandlerFunc handles a routed request.
type HandlerFunc func(ctx *http.Context) error

// Router is a per-method segment tree with parameter support.
//
// Patterns are made of '/'-separated segments. A segment is static, a named
// parameter (":id") matching one segment, or a trailing catch-all ("*path")
// matching the rest of the path. On lookup static segments win over
// parameters, which win over catch-alls.
type Router struct {
	trees map[string]*node
}

type nodeType uint8

const (
	static   nodeType = iota // default
	param                    // :param
	catchAll                 // *param
)

type node struct {
	segment   string
	nType     nodeType
	paramName string
	children  []*node // static children, then at most one param and one catch-all
	handler   HandlerFunc
}

// New creates an empty router.
func New() *Router {
	return &Router{trees: make(map[string]*node)}
}

// Add registers handler for method and pattern. It panics on malformed or
// conflicting patterns.
func (r *Router) Add(method, pattern string, handler HandlerFunc) {
	if pattern == "" || pattern[0] != '/' {
		panic("router: path must begin with '/'")
	}
	if handler == nil {
		panic("router: nil handler for " + method + " " + pattern)
	}

	root, ok := r.trees[method]
	if !ok {
		root = &node{}
		r.trees[method] = root
	}

	n := root
	segments := splitPath(pattern)
	for i, seg := range segments {
		child := &node{segment: seg}
		switch {
		case strings.HasPrefix(seg, ":"):
			child.nType = param
			child.paramName = seg[1:]
		case strings.HasPrefix(seg, "*"):
			if i != len(segments)-1 {
				panic("router: catch-all is only allowed at the end of " + pattern)
			}
			child.nType = catchAll
			child.paramName = seg[1:]
		}
		if child.nType != static && child.paramName == "" {
			panic("router: wildcards must be named in " + pattern)
		}
		n = n.insert(child, pattern)
	}

	if n.handler != nil {
		panic("router: duplicate route " + method + " " + pattern)
	}
	n.handler = handler
}

func (n *node) insert(child *node, pattern string) *node {
	for _, c := range n.children {
		if c.nType != child.nType {
			continue
		}
		switch {
		case c.nType == static && c.segment == child.segment:
			return c
		case c.nType != static && c.paramName == child.paramName:
			return c
		case c.nType != static:
			panic("router: wildcard " + child.segment + " conflicts with " + c.segment + " in " + pattern)
		}
	}
	n.children = append(n.children, child)
	sort.SliceStable(n.children, func(i, j int) bool {
		return n.children[i].nType < n.children[j].nType
	})
	return child
}

// Find returns the handler registered for method and path along with the
// captured parameters.
func (r *Router) Find(method, path string) (HandlerFunc, map[string]string) {
	root, ok := r.trees[method]
	if !ok {
		return nil, nil
	}
	params := make(map[string]string)
	if n := root.match(splitPath(path), params); n != nil {
		return n.handler, params
	}
	return nil, nil
}

// Allowed returns the methods with a route matching path, sorted.
func (r *Router) Allowed(path string) []string {
	var methods []string
	segments := splitPath(path)
	for method, root := range r.trees {
		if root.match(segments, make(map[string]string)) != nil {
			methods = append(methods, method)
		}
	}
	sort.Strings(methods)
	return methods
}

func (n *node) match(segments []string, params map[string]string) *node {
	if len(segments) == 0 {
		if n.handler != nil {
			return n
		}
		// "/files/*path" also matches "/files/".
		for _, c := range n.children {
			if c.nType == catchAll && c.handler != nil {
				params[c.paramName] = ""
				return c
			}
		}
		return nil
	}

	seg := segments[0]
	for _, c := range n.children {
		switch c.nType {
		case static:
			if c.segment != seg {
				continue
			}
			if found := c.match(segments[1:], params); found != nil {
				return found
			}
		case param:
			if seg == "" {
				continue
			}
			if found := c.match(segments[1:], params); found != nil {
				params[c.paramName] = seg
				return found
			}
		case catchAll:
			if c.handler != nil {
				params[c.paramName] = strings.Join(segments, "/")
				return c
			}
		}
	}
	return nil
}

// splitPath splits a path into segments. The root path has none.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
