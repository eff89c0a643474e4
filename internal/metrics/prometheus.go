// Package metrics defines the Prometheus collectors for the HTTP
// surface and mail delivery. Queue collectors live with the queue
// package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Delivery metrics
var (
	MailDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_deliveries_total",
			Help: "Total number of messages handed to the mail sink",
		},
		[]string{"mailer", "outcome"}, // outcome: delivered, failed
	)

	AttachmentFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attachment_fetches_total",
			Help: "Total number of attachment fetches from object storage",
		},
		[]string{"outcome"}, // outcome: ok, failed
	)
)
