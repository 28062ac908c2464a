// Package metrics exposes the dashboard client's Prometheus collectors.
//
// Collectors register on the default registry at init, the way the worker
// binaries do it. Serve them with Serve when a metrics address is set.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pqdash_api_requests_total",
		Help: "Dashboard API requests by method, route and status code",
	}, []string{"method", "route", "code"})

	apiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pqdash_api_request_duration_seconds",
		Help:    "Dashboard API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pqdash_cache_fetches_total",
		Help: "Cache fetch settlements by resource and outcome (ok, unavailable, failed)",
	}, []string{"resource", "outcome"})

	coalesced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pqdash_cache_coalesced_total",
		Help: "Fetch requests satisfied by a fetch already in flight",
	}, []string{"resource"})

	inflight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pqdash_cache_inflight",
		Help: "Fetches currently in flight",
	}, []string{"resource"})

	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pqdash_mutations_total",
		Help: "Mutations by operation and outcome",
	}, []string{"op", "outcome"})

	refreshTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pqdash_refresh_ticks_total",
		Help: "Refresh scheduler ticks",
	})
)

// ObserveRequest records one HTTP round trip. code is 0 for transport errors.
func ObserveRequest(method, route string, code int, took time.Duration) {
	apiRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	apiDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// FetchStarted marks a fetch for resource as in flight.
func FetchStarted(resource string) {
	inflight.WithLabelValues(resource).Inc()
}

// FetchSettled records a fetch outcome and clears its in-flight mark.
func FetchSettled(resource, outcome string) {
	inflight.WithLabelValues(resource).Dec()
	fetches.WithLabelValues(resource, outcome).Inc()
}

// FetchCoalesced records a request that joined an in-flight fetch.
func FetchCoalesced(resource string) {
	coalesced.WithLabelValues(resource).Inc()
}

// Mutation records a mutation outcome.
func Mutation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	mutations.WithLabelValues(op, outcome).Inc()
}

// RefreshTick records a scheduler tick.
func RefreshTick() {
	refreshTicks.Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("metrics listener started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
