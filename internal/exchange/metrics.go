package exchange

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// МЕТРИКИ БИРЖЕВОГО СЛОЯ
// ============================================================

var (
	restLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sniper",
		Subsystem: "exchange",
		Name:      "rest_latency_seconds",
		Help:      "REST API request latency by endpoint",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"endpoint"})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "exchange",
		Name:      "ws_messages_total",
		Help:      "WebSocket messages received by channel",
	}, []string{"channel"})

	wsReconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "exchange",
		Name:      "ws_reconnects_total",
		Help:      "WebSocket reconnection attempts by connection",
	}, []string{"conn"})

	wsParseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "exchange",
		Name:      "ws_parse_errors_total",
		Help:      "WebSocket messages that failed to parse",
	})
)

func observeRESTLatency(endpoint string, d time.Duration) {
	restLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}
