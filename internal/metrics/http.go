package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routeLabels identify a request by method and normalized route pattern.
var routeLabels = []string{"method", "path"}

// sizeBuckets span 100B to 10MB.
var sizeBuckets = prometheus.ExponentialBuckets(100, 10, 6)

var (
	HTTPRequestsTotal = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests by route and status code",
	}, append(routeLabels, "status"))

	HTTPRequestDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, routeLabels)

	HTTPRequestsInFlight = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served",
	})

	HTTPRequestSize = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_size_bytes",
		Help:      "Declared HTTP request body size in bytes",
		Buckets:   sizeBuckets,
	}, routeLabels)

	HTTPResponseSize = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response body size in bytes",
		Buckets:   sizeBuckets,
	}, routeLabels)
)

// Handler serves the registry in the Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// unmatchedPath labels requests no route pattern claimed.
const unmatchedPath = "unmatched"

// normalizePath replaces every wildcard segment with {param}.
func normalizePath(pattern string) string {
	if !strings.HasPrefix(pattern, "/") {
		return pattern
	}
	segments := strings.Split(pattern, "/")
	for i, segment := range segments {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			segments[i] = "{param}"
		}
	}
	return strings.Join(segments, "/")
}

// routeLabel turns the ServeMux pattern that served r into a path label,
// dropping the method and host qualifiers ("GET example.com/x" becomes "/x").
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedPath
	}
	pattern := r.Pattern
	if _, rest, ok := strings.Cut(pattern, " "); ok {
		pattern = strings.TrimSpace(rest)
	}
	if slash := strings.IndexByte(pattern, '/'); slash > 0 {
		pattern = pattern[slash:]
	}
	return normalizePath(pattern)
}

// HTTPMiddleware records request metrics. It must wrap the ServeMux directly
// so the matched pattern is set on r by the time the handler returns.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		mw := &measuredWriter{ResponseWriter: w}
		began := time.Now()
		next.ServeHTTP(mw, r)
		elapsed := time.Since(began)

		method, path := r.Method, routeLabel(r)
		HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(mw.statusOrOK())).Inc()
		HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(mw.size))
		if r.ContentLength > 0 {
			HTTPRequestSize.WithLabelValues(method, path).Observe(float64(r.ContentLength))
		}
	})
}

// measuredWriter remembers the status code and counts body bytes.
type measuredWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *measuredWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *measuredWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func (w *measuredWriter) statusOrOK() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
