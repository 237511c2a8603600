package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	IngestOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "ingest_total", Help: "Review fetches by outcome."},
		[]string{"outcome", "error"}, // outcome: ok|failed|superseded; error: LabelErr of the cause
	)
	RejectedRecords = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "reviews", Name: "rejected_records_total", Help: "Reviews rejected for an invalid score."},
	)
	Recomputes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "recompute_duration_seconds",
			Help:    "Stats recompute duration seconds.",
			Buckets: []float64{.00001, .0001, .001, .01, .1},
		},
	)
	TotalReviews = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "reviews", Name: "total", Help: "Reviews in the last published stats."},
	)
	AverageRating = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "reviews", Name: "average_rating", Help: "Average rating in the last published stats."},
	)
)

// Serve starts a standalone metrics server on addr; empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		IngestOutcomes, RejectedRecords, Recomputes, TotalReviews, AverageRating,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveIngest(outcome string, err error) {
	IngestOutcomes.WithLabelValues(outcome, LabelErr(err)).Inc()
}

func ObserveRejected(n int) { RejectedRecords.Add(float64(n)) }

func ObserveRecompute(total int, avg float64, dur time.Duration) {
	Recomputes.Observe(dur.Seconds())
	TotalReviews.Set(float64(total))
	AverageRating.Set(avg)
}

// LabelErr is a low-cardinality label for err: its dynamic type.
func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
