package api

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *metrics
	metricsOnce   sync.Once
)

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	otpRequests     *prometheus.CounterVec
}

// newMetrics registers the collectors once per process so several servers (e.g. in tests) can share them
func newMetrics() *metrics {
	metricsOnce.Do(func() {
		globalMetrics = &metrics{
			requestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "crm_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "route", "status"},
			),
			requestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "crm_http_request_duration_seconds",
					Help:    "HTTP request latency",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "route"},
			),
			otpRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "crm_otp_requests_total",
					Help: "OTP requests by outcome",
				},
				[]string{"result"}, // "sent", "logged", "invalid", "rate_limited", "error"
			),
		}
	})
	return globalMetrics
}
