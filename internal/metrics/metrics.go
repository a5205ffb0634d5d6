package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SymbolsScanned = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candlescan_symbols_scanned_total", Help: "Symbols scanned, by outcome"},
		[]string{"outcome"},
	)
	WindowsEvaluated = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "candlescan_windows_evaluated_total", Help: "Rule windows evaluated"},
	)
	PatternMatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candlescan_pattern_matches_total", Help: "Pattern matches found"},
		[]string{"rule", "kind"},
	)
	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "candlescan_scan_duration_seconds",
			Help:    "Duration of universe scans",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(SymbolsScanned, WindowsEvaluated, PatternMatches, ScanDuration)
}

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
