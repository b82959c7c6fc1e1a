package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "prepaid_meter",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prepaid_meter",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ReadingConflictsTotal counts duplicate (day, period) submissions
	// rejected pending a user decision.
	ReadingConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "prepaid_meter",
			Name:      "reading_conflicts_total",
			Help:      "Duplicate reading submissions rejected with a conflict",
		},
	)

	// AnomaliesTotal counts soft data anomalies by kind
	// (unexplained_increase, usage_spike).
	AnomaliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prepaid_meter",
			Name:      "data_anomalies_total",
			Help:      "Soft data anomalies absorbed during reconciliation",
		},
		[]string{"kind"},
	)

	// AssistantRequestsTotal counts AI assistant calls by outcome.
	AssistantRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "prepaid_meter",
			Name:      "assistant_requests_total",
			Help:      "AI assistant chat requests",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(ReadingConflictsTotal)
	prometheus.MustRegister(AnomaliesTotal)
	prometheus.MustRegister(AssistantRequestsTotal)
}

// Middleware records HTTP request duration and count.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(ww.status)

			// Use chi route pattern to keep label cardinality bounded
			path := chi.RouteContext(r.Context()).RoutePattern()
			if path == "" {
				path = "unknown"
			}

			httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		})
	}
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b)
}
