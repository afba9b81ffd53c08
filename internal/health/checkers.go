// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/jellyplay/internal/player"
	"github.com/ManuGH/jellyplay/internal/playback"
	"github.com/ManuGH/jellyplay/internal/resilience"
)

// Pinger reaches the media server without credentials.
type Pinger interface {
	Ping(ctx context.Context) (string, error)
}

// ServerChecker reports whether the Jellyfin server answers. An unreachable
// server makes the daemon unready: nothing can be resolved.
type ServerChecker struct {
	pinger  Pinger
	timeout time.Duration
}

// NewServerChecker creates a checker bounded by timeout (3s when unset).
func NewServerChecker(p Pinger, timeout time.Duration) *ServerChecker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ServerChecker{pinger: p, timeout: timeout}
}

func (c *ServerChecker) Name() string { return "jellyfin" }

func (c *ServerChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	version, err := c.pinger.Ping(ctx)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: "server unreachable"}
	}
	return CheckResult{Status: StatusHealthy, Message: "server " + version}
}

// BreakerChecker degrades while a breaker is not closed. The calls it guards
// are best-effort, so it never makes the daemon unready.
type BreakerChecker struct {
	breaker *resilience.CircuitBreaker
}

func NewBreakerChecker(cb *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{breaker: cb}
}

func (c *BreakerChecker) Name() string { return c.breaker.Name() }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	st := c.breaker.Stats()
	switch st.State {
	case resilience.StateClosed:
		return CheckResult{Status: StatusHealthy, Message: string(st.State)}
	case resilience.StateOpen:
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("circuit open after %d failures, retry in %s", st.Failures, st.RetryIn.Round(time.Second)),
		}
	default:
		return CheckResult{Status: StatusDegraded, Message: "circuit " + string(st.State)}
	}
}

// Snapshotter exposes the player's current state.
type Snapshotter interface {
	Snapshot() player.Snapshot
}

// PlayerChecker surfaces the player state. A failed item degrades health
// until the next open; the daemon itself stays ready.
type PlayerChecker struct {
	player Snapshotter
}

func NewPlayerChecker(p Snapshotter) *PlayerChecker {
	return &PlayerChecker{player: p}
}

func (c *PlayerChecker) Name() string { return "player" }

func (c *PlayerChecker) Check(context.Context) CheckResult {
	snap := c.player.Snapshot()
	res := CheckResult{Status: StatusHealthy, Message: snap.State.String()}
	if snap.ItemID != "" {
		res.Message += " " + snap.ItemID
	}
	if snap.State == player.StateError {
		res.Status = StatusDegraded
		if snap.Err != nil {
			res.Error = playback.UserMessage(snap.Err)
		}
	}
	return res
}
