// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics holds the Prometheus collectors for playback resolution,
// session reporting and the player state machine.
package metrics
