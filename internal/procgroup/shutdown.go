// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package procgroup

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/jellyplay/internal/metrics"
)

// Terminate sends SIGTERM to the group of cmd, waits up to grace for waitCh
// (the result of cmd.Wait) and escalates to SIGKILL. It always drains waitCh
// and returns its error. Safe on a nil or unstarted cmd.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	metrics.RecordProcessSignal("SIGTERM", signalResult(Kill(cmd, syscall.SIGTERM)))

	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
	}

	metrics.RecordProcessSignal("SIGKILL", signalResult(Kill(cmd, syscall.SIGKILL)))
	return <-waitCh
}

func signalResult(err error) string {
	if err != nil {
		return "error"
	}
	return "sent"
}
