package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "recommender",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recommender",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	recommendations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "engine",
			Name:      "recommendations_total",
			Help:      "Total number of recommendation responses served.",
		},
		[]string{"source"},
	)

	modelTrainings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "cf",
			Name:      "trainings_total",
			Help:      "Total number of collaborative filtering model trainings.",
		},
	)

	modelTrainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "recommender",
			Subsystem: "cf",
			Name:      "training_duration_seconds",
			Help:      "Duration of model trainings.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	geocodeCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recommender",
			Subsystem: "geocode",
			Name:      "lookups_total",
			Help:      "Total number of geocoder lookups by outcome.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		recommendations,
		modelTrainings,
		modelTrainingDuration,
		geocodeCalls,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// The mux route template is used as the path label so ids do not explode the
// cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if template, err := route.GetPathTemplate(); err == nil {
				path = template
			}
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordRecommendation counts a served recommendation response. source is
// either "computed" or "cache".
func RecordRecommendation(source string) {
	recommendations.WithLabelValues(source).Inc()
}

// RecordModelTraining records a completed model training.
func RecordModelTraining(duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	modelTrainings.Inc()
	modelTrainingDuration.Observe(duration.Seconds())
}

// RecordGeocodeCall counts a geocoder lookup by outcome.
func RecordGeocodeCall(status string) {
	geocodeCalls.WithLabelValues(status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
