package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the auth domain.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	loginFailures   prometheus.Counter
	accountLockouts prometheus.Counter
	tokenRejections *prometheus.CounterVec
	blacklistHits   prometheus.Counter
	storeLatency    prometheus.Histogram
}

// NewMetricsService registers the core collectors.
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

	loginFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_login_failures_total",
		Help: "Total failed login attempts",
	})

	accountLockouts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_account_lockouts_total",
		Help: "Total accounts locked by the brute-force guard",
	})

	tokenRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_token_rejections_total",
		Help: "Total rejected tokens by reason",
	}, []string{"reason"})

	blacklistHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_blacklist_hits_total",
		Help: "Total requests rejected because the token was revoked",
	})

	storeLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "auth_revocation_lookup_seconds",
		Help:    "Latency of revocation store lookups",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, loginFailures, accountLockouts, tokenRejections, blacklistHits, storeLatency, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		loginFailures:   loginFailures,
		accountLockouts: accountLockouts,
		tokenRejections: tokenRejections,
		blacklistHits:   blacklistHits,
		storeLatency:    storeLatency,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordLoginFailure counts one failed login attempt.
func (m *MetricsService) RecordLoginFailure() {
	if m == nil {
		return
	}
	m.loginFailures.Inc()
}

// RecordAccountLockout counts one lockout transition.
func (m *MetricsService) RecordAccountLockout() {
	if m == nil {
		return
	}
	m.accountLockouts.Inc()
}

// RecordTokenRejection counts a rejected token by reason.
func (m *MetricsService) RecordTokenRejection(reason string) {
	if m == nil {
		return
	}
	m.tokenRejections.WithLabelValues(reason).Inc()
}

// RecordBlacklistHit counts a request rejected by the revocation store.
func (m *MetricsService) RecordBlacklistHit() {
	if m == nil {
		return
	}
	m.blacklistHits.Inc()
}

// ObserveStoreLookup records the latency of one revocation store lookup.
func (m *MetricsService) ObserveStoreLookup(duration time.Duration) {
	if m == nil {
		return
	}
	m.storeLatency.Observe(duration.Seconds())
}
