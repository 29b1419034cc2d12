package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RideRequestsSent     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sts_transport", Name: "ride_requests_sent_total", Help: "Ride requests sent by employees"})
	RideRequestsAccepted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sts_transport", Name: "ride_requests_accepted_total", Help: "Ride requests accepted by drivers"})
	RideRequestsDenied   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sts_transport", Name: "ride_requests_denied_total", Help: "Ride requests denied by drivers"})
	RideRequestsCanceled = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sts_transport", Name: "ride_requests_canceled_total", Help: "Ride requests canceled by employees"})
	PassengersRemoved    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sts_transport", Name: "passengers_removed_total", Help: "Passengers removed by drivers"})
	ValidationFailures   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sts_transport", Name: "validation_failures_total", Help: "Mutations rejected before reaching the record store"})
	ResolverFallbacks    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sts_transport", Name: "resolver_fallbacks_total", Help: "Link resolutions that fell back to the canonical map URL"})
	LoginFailures        = promauto.NewCounter(prometheus.CounterOpts{Namespace: "sts_transport", Name: "login_failures_total", Help: "Failed login attempts"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sts_transport", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sts_transport",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
