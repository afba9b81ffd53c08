// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/jellyplay/internal/config"
	"github.com/ManuGH/jellyplay/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
}

func waitForAddr(t *testing.T, m Manager) string {
	t.Helper()
	var addr string
	require.Eventually(t, func() bool {
		addr = m.Addr()
		return addr != ""
	}, 2*time.Second, 10*time.Millisecond)
	return addr
}

func TestNewManager_RequiresHandler(t *testing.T) {
	_, err := NewManager(ServerConfig{}, nil, log.WithComponent("test"))
	require.ErrorIs(t, err, ErrMissingHandler)
}

func TestManager_ServesAndRunsHooksInReverse(t *testing.T) {
	m, err := NewManager(ServerConfig{ListenAddr: "127.0.0.1:0", ShutdownTimeout: 2 * time.Second}, okHandler(), log.WithComponent("test"))
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"first", "second", "third"} {
		m.RegisterShutdownHook(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	addr := waitForAddr(t, m)
	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop")
	}
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestManager_HookErrorsAreJoined(t *testing.T) {
	m, err := NewManager(ServerConfig{ListenAddr: "127.0.0.1:0"}, okHandler(), log.WithComponent("test"))
	require.NoError(t, err)
	boom := errors.New("boom")
	m.RegisterShutdownHook("broken", func(context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()
	waitForAddr(t, m)
	cancel()

	err = <-done
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "hook broken")
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	m, err := NewManager(ServerConfig{}, okHandler(), log.WithComponent("test"))
	require.NoError(t, err)
	require.ErrorIs(t, m.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestManager_ListenFailure(t *testing.T) {
	m, err := NewManager(ServerConfig{ListenAddr: "256.0.0.1:bad"}, okHandler(), log.WithComponent("test"))
	require.NoError(t, err)
	require.Error(t, m.Start(context.Background()))
}

type orderLog struct {
	mu      sync.Mutex
	entries []string
}

func (o *orderLog) add(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, s)
}

func (o *orderLog) get() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.entries...)
}

type fakeRunner struct{ log *orderLog }

func (r fakeRunner) Run(ctx context.Context) error {
	<-ctx.Done()
	r.log.add("reporter-stopped")
	return nil
}

type fakeTuner struct{ ch chan time.Duration }

func (f fakeTuner) SetProgressInterval(d time.Duration) { f.ch <- d }

func TestApp_AppliesReloadAndStopsReporterLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("playback:\n  progress_interval: 5s\n"), 0o600))
	loader := config.NewLoader(path, "")
	initial, err := loader.Load()
	require.NoError(t, err)
	holder := config.NewHolder(initial, loader)

	order := &orderLog{}
	m, err := NewManager(ServerConfig{ListenAddr: "127.0.0.1:0"}, okHandler(), log.WithComponent("test"))
	require.NoError(t, err)
	m.RegisterShutdownHook("controller", func(context.Context) error {
		order.add("controller-closed")
		return nil
	})

	tuner := fakeTuner{ch: make(chan time.Duration, 4)}
	app := NewApp(log.WithComponent("test"), m, holder, fakeRunner{log: order}, tuner)
	app.reloadSignal = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	waitForAddr(t, m)

	require.NoError(t, os.WriteFile(path, []byte("playback:\n  progress_interval: 3s\n"), 0o600))
	require.NoError(t, holder.Reload())

	select {
	case d := <-tuner.ch:
		assert.Equal(t, 3*time.Second, d)
	case <-time.After(2 * time.Second):
		t.Fatal("progress interval not applied")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, []string{"controller-closed", "reporter-stopped"}, order.get())
}

func TestApp_RequiresManager(t *testing.T) {
	app := NewApp(log.WithComponent("test"), nil, nil, nil, nil)
	require.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}
