// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_ReloadNotifiesListeners(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	ch := make(chan AppConfig, 1)
	h.Subscribe(ch)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))
	require.NoError(t, h.Reload())

	select {
	case cfg := <-ch:
		assert.Equal(t, "debug", cfg.Log.Level)
	default:
		t.Fatal("listener not notified")
	}
	assert.Equal(t, "debug", h.Get().Log.Level)
}

func TestHolder_ReloadFailureKeepsPrevious(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("playback:\n  progress_interval: 1ms\n"), 0o600))
	require.Error(t, h.Reload())
	assert.Equal(t, "warn", h.Get().Log.Level)
}

func TestHolder_WatchPicksUpFileChange(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	loader := NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))

	assert.Eventually(t, func() bool {
		return h.Get().Log.Level == "error"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestHolder_WatchWithoutFileIsNoop(t *testing.T) {
	h := NewHolder(Defaults(), NewLoader("", ""))
	assert.NoError(t, h.Watch(context.Background()))
}
