package middleware

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"

	"github.com/searchktools/pulsation/core/filter"
	"github.com/searchktools/pulsation/core/http"
)

// Metrics tracks requests in flight through the filters after it and the
// size of the responses they produce.
func Metrics(reg prometheus.Registerer) *filter.Filter {
	inFlight := promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Namespace: "pulsation",
		Subsystem: "filter",
		Name:      "requests_in_flight",
		Help:      "Requests currently inside the filter chain",
	})
	size := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pulsation",
		Subsystem: "filter",
		Name:      "response_size_bytes",
		Help:      "Response body size in bytes",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
	}, []string{"method"})

	return filter.New(func(_ filter.Props, ctx *http.Context, next filter.Next) error {
		inFlight.Inc()
		defer inFlight.Dec()

		err := next()
		size.WithLabelValues(ctx.Request.Method).Observe(float64(len(ctx.Response.Body)))
		return err
	}).Named("metrics")
}

// MetricsEndpoint answers GET requests for path with the gathered metrics
// in the Prometheus text format.
func MetricsEndpoint(path string, g prometheus.Gatherer) *filter.Filter {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)

	return filter.New(func(_ filter.Props, ctx *http.Context, next filter.Next) error {
		if ctx.Request.Method != "GET" || ctx.Request.Path != path {
			return next()
		}

		families, err := g.Gather()
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		enc := expfmt.NewEncoder(&buf, format)
		for _, mf := range families {
			if err := enc.Encode(mf); err != nil {
				return err
			}
		}
		ctx.Data(http.StatusOK, string(format), buf.Bytes())
		return nil
	}).Named("metrics_endpoint")
}
