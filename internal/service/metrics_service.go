package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the token lifecycle.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	tokensIssued     *prometheus.CounterVec
	tokensDenylisted prometheus.Counter
	sessionsRotated  prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	tokensIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "session_tokens_issued_total",
		Help: "Tokens issued, by class",
	}, []string{"class"})

	tokensDenylisted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_tokens_denylisted_total",
		Help: "Tokens added to the denylist",
	})

	sessionsRotated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_refresh_rotations_total",
		Help: "Refresh tokens silently replaced before expiry",
	})

	registry.MustRegister(requestDuration, requestTotal, tokensIssued, tokensDenylisted, sessionsRotated)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		tokensIssued:     tokensIssued,
		tokensDenylisted: tokensDenylisted,
		sessionsRotated:  sessionsRotated,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one completed request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if s == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// TokenIssued counts a freshly signed token.
func (s *MetricsService) TokenIssued(class string) {
	if s == nil {
		return
	}
	s.tokensIssued.WithLabelValues(class).Inc()
}

// TokenDenylisted counts a revocation write.
func (s *MetricsService) TokenDenylisted() {
	if s == nil {
		return
	}
	s.tokensDenylisted.Inc()
}

// SessionRotated counts a silent refresh-token replacement.
func (s *MetricsService) SessionRotated() {
	if s == nil {
		return
	}
	s.sessionsRotated.Inc()
}
