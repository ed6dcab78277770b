package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// scansTotal - количество выполненных сканирований
var scansTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "scanner",
		Name:      "scans_total",
		Help:      "Total number of completed universe scans",
	},
)

// scanErrors - количество неудачных сканирований
var scanErrors = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "sniper",
		Subsystem: "scanner",
		Name:      "scan_errors_total",
		Help:      "Total number of failed universe scans",
	},
)

// universeSize - размер отобранного universe после фильтров
var universeSize = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "sniper",
		Subsystem: "scanner",
		Name:      "universe_size",
		Help:      "Number of instruments selected by the last scan",
	},
)

// scanDuration - длительность сканирования
var scanDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "sniper",
		Subsystem: "scanner",
		Name:      "scan_duration_seconds",
		Help:      "Universe scan duration in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
)
