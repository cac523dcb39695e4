package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studentpay_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studentpay_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ReceiptsIssued counts receipt issuance attempts by outcome
	// (generated, cached, upstream_error, generation_error, storage_error)
	ReceiptsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studentpay_receipts_issued_total",
			Help: "Receipt issuance attempts by outcome",
		},
		[]string{"outcome"},
	)

	ReceiptRenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "studentpay_receipt_render_duration_seconds",
			Help:    "Time spent composing a receipt PDF, including image fetches",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	ReceiptVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studentpay_receipt_verifications_total",
			Help: "Receipt hash lookups by result (valid, invalid, missing)",
		},
		[]string{"result"},
	)

	AssetLoadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studentpay_receipt_asset_load_failures_total",
			Help: "Optional receipt images that could not be loaded, by slot",
		},
		[]string{"slot"},
	)

	MailDispatch = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studentpay_mail_dispatch_total",
			Help: "Outbound mail by status (sent, failed, dropped)",
		},
		[]string{"status"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studentpay_cache_lookups_total",
			Help: "Redis cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)
)
