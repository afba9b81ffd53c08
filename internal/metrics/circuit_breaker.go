// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jellyplay_breaker_state",
		Help: "Breaker state per upstream call site (0=closed, 1=half-open, 2=open)",
	}, []string{"breaker"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellyplay_breaker_trips_total",
		Help: "Transitions into the open state",
	}, []string{"breaker", "reason"})

	breakerRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellyplay_breaker_rejected_total",
		Help: "Calls refused without reaching the server",
	}, []string{"breaker"})
)

// SetBreakerState publishes state as 0 (closed), 1 (half-open) or 2 (open).
// Unknown states are ignored.
func SetBreakerState(breaker, state string) {
	var v float64
	switch state {
	case "closed":
		v = 0
	case "half-open":
		v = 1
	case "open":
		v = 2
	default:
		return
	}
	breakerState.WithLabelValues(breaker).Set(v)
}

// RecordBreakerTrip counts a transition to open.
func RecordBreakerTrip(breaker, reason string) {
	breakerTrips.WithLabelValues(breaker, reason).Inc()
}

// RecordBreakerRejected counts a call short-circuited by an open breaker.
func RecordBreakerRejected(breaker string) {
	breakerRejected.WithLabelValues(breaker).Inc()
}
