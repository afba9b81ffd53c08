// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellyplay_session_reports_total",
		Help: "Session reports by kind (start, progress, stop) and result (sent, failed, dropped, breaker_open)",
	}, []string{"kind", "result"})

	reportQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jellyplay_session_report_queue_depth",
		Help: "Reports waiting in the ordered send queue",
	})
)

// RecordReport counts one session report outcome.
func RecordReport(kind, result string) {
	reportTotal.WithLabelValues(kind, result).Inc()
}

// SetReportQueueDepth publishes the number of queued reports.
func SetReportQueueDepth(n int) {
	reportQueueDepth.Set(float64(n))
}
