package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// UnmatchedRoute labels requests for paths outside the known route set, so
// scanners cannot blow up label cardinality.
const UnmatchedRoute = "unmatched"

// HTTPMetrics holds the per-route request collectors.
type HTTPMetrics struct {
	routes   map[string]struct{}
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics registers the HTTP collectors on reg. routes are the paths
// that get their own label value.
func NewHTTPMetrics(reg prometheus.Registerer, routes ...string) *HTTPMetrics {
	factory := promauto.With(reg)
	m := &HTTPMetrics{
		routes: make(map[string]struct{}, len(routes)),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served, by route and status code.",
		}, []string{"route", "status"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"route"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
	}
	for _, r := range routes {
		m.routes[r] = struct{}{}
	}
	return m
}

func (m *HTTPMetrics) route(path string) string {
	if _, ok := m.routes[path]; ok {
		return path
	}
	return UnmatchedRoute
}

// statusCapture records the status code written by the wrapped handler.
type statusCapture struct {
	http.ResponseWriter
	statusCode int
	wrote      bool
}

func (sc *statusCapture) WriteHeader(code int) {
	if sc.wrote {
		return
	}
	sc.statusCode = code
	sc.wrote = true
	sc.ResponseWriter.WriteHeader(code)
}

func (sc *statusCapture) Write(b []byte) (int, error) {
	if !sc.wrote {
		sc.WriteHeader(http.StatusOK)
	}
	return sc.ResponseWriter.Write(b)
}

func (sc *statusCapture) Unwrap() http.ResponseWriter {
	return sc.ResponseWriter
}

func capture(w http.ResponseWriter) *statusCapture {
	if sc, ok := w.(*statusCapture); ok {
		return sc
	}
	return &statusCapture{ResponseWriter: w, statusCode: http.StatusOK}
}

// Metrics counts requests, observes their latency and tracks how many are
// in flight.
func (m *HTTPMetrics) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		sc := capture(w)
		next.ServeHTTP(sc, r)

		route := m.route(r.URL.Path)
		m.requests.WithLabelValues(route, strconv.Itoa(sc.statusCode)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
