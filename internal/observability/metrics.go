package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scancore",
		Name:      "frames_processed_total",
		Help:      "Total number of frames processed by the scan pipeline",
	}, []string{"session_id"})

	CandidatesConfirmed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scancore",
		Name:      "candidates_confirmed_total",
		Help:      "Total number of tracked candidates that reached the confirmed frame count",
	}, []string{"session_id"})

	LocksCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scancore",
		Name:      "locks_committed_total",
		Help:      "Total number of scan-guidance locks that dwelled long enough to commit",
	}, []string{"session_id"})

	GuidanceState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "scancore",
		Name:      "guidance_state",
		Help:      "Current scan-guidance state (1 for the active state, 0 otherwise) per session",
	}, []string{"session_id", "state"})

	DetectorInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scancore",
		Name:      "detector_invocations_total",
		Help:      "Total number of object-detector backend invocations by kind",
	}, []string{"kind"})

	DetectorThrottled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scancore",
		Name:      "detector_throttled_total",
		Help:      "Total number of frames skipped because a detector kind was still within its interval",
	}, []string{"kind"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scancore",
		Name:      "inference_duration_seconds",
		Help:      "Duration of scan-pipeline stages (convert/motion/sharpness/detect/track/guidance)",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"stage"})

	AdapterLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scancore",
		Name:      "adapter_latency_seconds",
		Help:      "Latency of marketplace adapter fetches",
		Buckets:   prometheus.DefBuckets,
	}, []string{"adapter"})

	AdapterResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scancore",
		Name:      "adapter_results_total",
		Help:      "Marketplace adapter fetch outcomes",
	}, []string{"adapter", "outcome"})

	PricingCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scancore",
		Name:      "pricing_cache_hits_total",
		Help:      "Pricing cache lookups that hit",
	}, []string{"version"})

	PricingCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scancore",
		Name:      "pricing_cache_misses_total",
		Help:      "Pricing cache lookups that missed",
	}, []string{"version"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scancore",
		Name:      "queue_depth",
		Help:      "Number of pending frame tasks in the work queue",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scancore",
		Name:      "active_sessions",
		Help:      "Number of currently active scan sessions",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scancore",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scancore",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
