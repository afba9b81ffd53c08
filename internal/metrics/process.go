// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var processSignals = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "jellyplay_engine_signals_total",
	Help: "Signals sent to media engine process groups",
}, []string{"signal", "result"})

// RecordProcessSignal counts one signal delivery attempt.
func RecordProcessSignal(signal, result string) {
	processSignals.WithLabelValues(signal, result).Inc()
}
