// Package metrics exposes search and HTTP measurements in the prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robert-malhotra/inpe-stac-search/internal/backend"
	"github.com/robert-malhotra/inpe-stac-search/internal/search"
	"github.com/robert-malhotra/inpe-stac-search/internal/stac"
	"github.com/robert-malhotra/inpe-stac-search/internal/translate"
)

const namespace = "stac"

// Label names.
const (
	StageLabel   = "stage"
	OutcomeLabel = "outcome"
	CodeLabel    = "code"
	MethodLabel  = "method"
	RouteLabel   = "route"
)

// Outcomes of a search stage.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeNotFound    = "not_found"
	OutcomeTimeout     = "timeout"
	OutcomeCanceled    = "canceled"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Metrics holds the collectors of one server. Each instance owns its registry, so
// tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration   *prometheus.HistogramVec
	stageCount      *prometheus.CounterVec
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_stage_duration_seconds",
				Help:      "A histogram of search stage latencies.",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5, 10, 30},
			},
			[]string{StageLabel},
		),
		stageCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_stage_total",
				Help:      "The total number of search stages run, by outcome.",
			},
			[]string{StageLabel, OutcomeLabel},
		),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "server_request_count",
				Help:      "total incoming HTTP requests",
			},
			[]string{CodeLabel, MethodLabel, RouteLabel},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "server_request_duration_seconds",
				Help:      "tracks incoming request durations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{CodeLabel, MethodLabel, RouteLabel},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "server_requests_in_flight",
				Help:      "tracks the current number of incoming requests being processed",
			},
		),
	}

	m.registry.MustRegister(
		m.stageDuration,
		m.stageCount,
		m.requestCount,
		m.requestDuration,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveStage implements search.Instrumenter.
func (m *Metrics) ObserveStage(_ context.Context, stage search.Stage, elapsed time.Duration, err error) {
	m.stageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
	m.stageCount.WithLabelValues(string(stage), Outcome(err)).Inc()
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts and times requests by their chi route pattern. Requests that
// match no route share the "unmatched" route label.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		labels := []string{strconv.Itoa(status), r.Method, route}
		m.requestCount.WithLabelValues(labels...).Inc()
		m.requestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}

// Outcome classifies a stage error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.Is(err, backend.ErrRepositoryTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	case errors.Is(err, backend.ErrRepositoryUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, backend.ErrCollectionNotFound), errors.Is(err, backend.ErrItemNotFound):
		return OutcomeNotFound
	case errors.Is(err, stac.ErrInvalidRequest),
		errors.Is(err, translate.ErrInvalidBoundingBox),
		errors.Is(err, translate.ErrInvalidTimeExpression),
		errors.Is(err, translate.ErrUnknownField),
		errors.Is(err, translate.ErrInvalidQuery),
		errors.Is(err, translate.ErrInvalidParameter):
		return OutcomeInvalid
	}
	return OutcomeError
}
