// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build unix

package procgroup

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminateReapsGroup(t *testing.T) {
	cmd := exec.Command("sh", "-c", "sleep 30 & sleep 30")
	Set(cmd)
	require.NoError(t, cmd.Start())

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	require.Equal(t, cmd.Process.Pid, pgid, "process leads its own group")

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	_ = Terminate(cmd, waitCh, time.Second)

	require.Eventually(t, func() bool {
		return syscall.Kill(-pgid, 0) == syscall.ESRCH
	}, 2*time.Second, 20*time.Millisecond, "group must be gone")
}

func TestTerminateEscalates(t *testing.T) {
	cmd := exec.Command("sh", "-c", "trap '' TERM; sleep 30")
	Set(cmd)
	require.NoError(t, cmd.Start())

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	start := time.Now()
	err := Terminate(cmd, waitCh, 100*time.Millisecond)
	assert.Error(t, err, "killed process exits non-zero")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestTerminateNil(t *testing.T) {
	assert.NoError(t, Terminate(nil, nil, time.Second))
	assert.NoError(t, Terminate(exec.Command("true"), nil, time.Second))
	assert.NoError(t, Kill(nil, syscall.SIGTERM))
}
