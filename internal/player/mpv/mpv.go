// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package mpv drives an mpv process over its JSON IPC socket.
package mpv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ManuGH/jellyplay/internal/core/urlutil"
	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/ManuGH/jellyplay/internal/player"
	"github.com/ManuGH/jellyplay/internal/procgroup"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config controls how mpv is launched.
type Config struct {
	Binary       string
	Args         []string // extra mpv flags, e.g. --fs
	SocketDir    string   // defaults to os.TempDir()
	StartTimeout time.Duration
	StopGrace    time.Duration
}

// Opener launches one mpv process per opened stream.
type Opener struct {
	cfg    Config
	logger zerolog.Logger
}

// NewOpener fills defaults into cfg.
func NewOpener(cfg Config) *Opener {
	if cfg.Binary == "" {
		cfg.Binary = "mpv"
	}
	if cfg.SocketDir == "" {
		cfg.SocketDir = os.TempDir()
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 10 * time.Second
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 2 * time.Second
	}
	return &Opener{cfg: cfg, logger: xglog.WithComponent("mpv")}
}

// Open starts mpv paused on streamURL and connects to its IPC socket. The
// returned player starts when Play is called.
func (o *Opener) Open(ctx context.Context, streamURL string) (player.Player, error) {
	sock := filepath.Join(o.cfg.SocketDir, "jellyplay-mpv-"+uuid.NewString()+".sock")

	args := []string{
		"--no-terminal",
		"--idle=no",
		"--keep-open=no",
		"--pause",
		"--input-ipc-server=" + sock,
	}
	args = append(args, o.cfg.Args...)
	args = append(args, "--", streamURL)

	// Not CommandContext: ctx bounds startup only, the process lives until Close.
	cmd := exec.Command(o.cfg.Binary, args...)
	procgroup.Set(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", o.cfg.Binary, err)
	}
	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	logger := o.logger.With().Int("pid", cmd.Process.Pid).Logger()
	logger.Info().
		Str(xglog.FieldEvent, "mpv.started").
		Str(xglog.FieldURL, urlutil.SanitizeURL(streamURL)).
		Msg("media engine started")

	conn, err := dialSocket(ctx, sock, o.cfg.StartTimeout, waitCh)
	if err != nil {
		if !errors.Is(err, errExited) {
			_ = procgroup.Terminate(cmd, waitCh, o.cfg.StopGrace)
		}
		_ = os.Remove(sock)
		return nil, err
	}

	p := newPlayer(conn, logger)
	p.shutdown = func() error {
		err := procgroup.Terminate(cmd, waitCh, o.cfg.StopGrace)
		_ = os.Remove(sock)
		return err
	}
	if err := p.observe(); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

var errExited = errors.New("mpv exited before its ipc socket came up")

func dialSocket(ctx context.Context, sock string, timeout time.Duration, waitCh <-chan error) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", sock)
		if err == nil {
			return conn, nil
		}
		select {
		case werr := <-waitCh:
			return nil, fmt.Errorf("%w: %v", errExited, werr)
		case <-ctx.Done():
			return nil, fmt.Errorf("connect mpv ipc %s: %w", sock, ctx.Err())
		case <-time.After(50 * time.Millisecond):
		}
	}
}
