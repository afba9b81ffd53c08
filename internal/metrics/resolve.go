// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jellyplay_resolve_total",
		Help: "Stream resolutions by winning tier and outcome",
	}, []string{"tier", "outcome"})

	negotiationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jellyplay_negotiation_duration_seconds",
		Help:    "Latency of PlaybackInfo negotiation calls",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})
)

// RecordResolve records one resolution attempt. tier is the selection tier
// ("hls_direct_stream", "http_direct_stream", "http_direct_play", "manual_hls")
// or "none" when the resolution failed before a URL existed.
func RecordResolve(tier, outcome string) {
	resolveTotal.WithLabelValues(normalizeTierLabel(tier), normalizeOutcomeLabel(outcome)).Inc()
}

// ObserveNegotiation records the duration of a PlaybackInfo call.
func ObserveNegotiation(outcome string, d time.Duration) {
	negotiationDuration.WithLabelValues(normalizeOutcomeLabel(outcome)).Observe(d.Seconds())
}

func normalizeTierLabel(tier string) string {
	switch t := strings.ToLower(strings.TrimSpace(tier)); t {
	case "hls_direct_stream", "http_direct_stream", "http_direct_play", "manual_hls", "none":
		return t
	default:
		return "unknown"
	}
}

func normalizeOutcomeLabel(outcome string) string {
	switch o := strings.ToLower(strings.TrimSpace(outcome)); o {
	case "success", "not_authenticated", "invalid_url", "network_error", "server_error", "decoding_error", "no_playable_source", "canceled":
		return o
	default:
		return "error"
	}
}
