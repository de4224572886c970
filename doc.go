/*
Package pulsation is an embeddable HTTP/1.1 server built on readiness-based
I/O instead of a goroutine per connection.

A fixed set of reactors, each pinned to an OS thread with its own poller
(epoll on Linux, kqueue on BSD/macOS), accept connections and reassemble
requests from partial reads. Complete requests go onto a shared queue that a
worker pool drains. Every request then runs through an onion filter chain:
each filter may act before and after calling the next one, and the first
filter registered is the outermost.

Quick Start

	package main

	import (
		"context"

		"go.uber.org/zap"

		"github.com/searchktools/pulsation/core"
		"github.com/searchktools/pulsation/core/filter"
		"github.com/searchktools/pulsation/core/http"
		"github.com/searchktools/pulsation/core/middleware"
	)

	func main() {
		log := zap.NewExample()
		e := core.NewEngine(core.ListenOnPort(8080), core.WithLogger(log))
		e.Use(middleware.Responder(log))
		e.Use(func(_ filter.Props, ctx *http.Context, next filter.Next) error {
			if ctx.Request.Path != "/hello" {
				return next()
			}
			ctx.String(200, "Hello, World!")
			return nil
		})
		_ = e.Run(context.Background())
	}

The app package wires the full stack from configuration: response writing,
request ids, access logs, tracing, Prometheus metrics, rate limiting, CORS,
gzip, static files, sessions, templates and a method router.

Modules

  - app: assembles an engine and its filters from config.Config
  - config: viper-backed configuration with validation
  - core: engine, reactors, listener and connection lifecycle
  - core/http: request assembler, parser, response and socket
  - core/filter: onion filter chain
  - core/queue: multi-producer multi-consumer request queue
  - core/pools: worker pool
  - core/poller: epoll and kqueue wrappers
  - core/middleware: stock filters
  - core/router: method and path router
  - core/codec: JSON and protobuf body codecs
  - core/observability: Prometheus metrics for the engine
  - cmd/pulsation: command line entry point
*/
package pulsation
