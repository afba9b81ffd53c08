// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellyplay_player_transitions_total",
		Help: "Player state machine transitions",
	}, []string{"from", "to"})

	playerSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellyplay_player_sessions_total",
		Help: "Playback sessions by terminal state",
	}, []string{"terminal"})
)

// RecordPlayerTransition counts a state change of the player state machine.
func RecordPlayerTransition(from, to string) {
	playerTransitions.WithLabelValues(from, to).Inc()
}

// RecordSessionEnd counts a session reaching a terminal state.
func RecordSessionEnd(terminal string) {
	playerSessions.WithLabelValues(terminal).Inc()
}
