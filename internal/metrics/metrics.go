package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moviestream",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moviestream",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moviestream",
		Name:      "active_sessions",
		Help:      "Number of currently live streaming sessions.",
	})

	DownloadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moviestream",
		Name:      "download_speed_bytes",
		Help:      "Current aggregate download speed in bytes per second.",
	})

	UploadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moviestream",
		Name:      "upload_speed_bytes",
		Help:      "Current aggregate upload speed in bytes per second.",
	})

	PeersConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moviestream",
		Name:      "peers_connected",
		Help:      "Total number of peers connected across all sessions.",
	})

	SessionsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moviestream",
		Name:      "sessions_started_total",
		Help:      "Total number of streaming sessions created.",
	})

	SessionsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moviestream",
		Name:      "sessions_failed_total",
		Help:      "Total number of sessions that ended in an error status.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveSessions,
		DownloadSpeedBytes,
		UploadSpeedBytes,
		PeersConnected,
		SessionsStartedTotal,
		SessionsFailedTotal,
	)
}
