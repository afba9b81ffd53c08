// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/jellyplay/internal/api"
	"github.com/ManuGH/jellyplay/internal/daemon"
	"github.com/ManuGH/jellyplay/internal/health"
	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/ManuGH/jellyplay/internal/playback"
	"github.com/ManuGH/jellyplay/internal/playback/report"
	"github.com/ManuGH/jellyplay/internal/player"
	"github.com/ManuGH/jellyplay/internal/player/mpv"
	"github.com/ManuGH/jellyplay/internal/resilience"
	"github.com/ManuGH/jellyplay/internal/version"
)

func runServeCLI(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	listen := fs.String("listen", "", "control API listen address (overrides api.listen_addr)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return serve(*configPath, *listen, "", stderr)
}

func runPlayCLI(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	listen := fs.String("listen", "", "control API listen address (overrides api.listen_addr)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "play: exactly one item id is required")
		return 2
	}
	return serve(*configPath, *listen, fs.Arg(0), stderr)
}

// serve runs the control API until a signal arrives. With itemID set it
// opens that item first and returns once its session ends.
func serve(configPath, listen, itemID string, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, configPath, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "jellyplay: %v\n", err)
		return 1
	}
	defer rt.close()

	if listen == "" {
		listen = rt.cfg.API.ListenAddr
	}

	breaker := resilience.NewCircuitBreaker("session_reports", 5, 30*time.Second,
		resilience.WithIgnoredErrors(func(err error) bool { return errors.Is(err, context.Canceled) }))
	reporter := report.New(rt.api,
		report.WithQueueSize(rt.cfg.Playback.ReportQueueSize),
		report.WithRequestTimeout(rt.cfg.Playback.RequestTimeout),
		report.WithBreaker(breaker),
		report.WithRateLimit(rt.cfg.Playback.ReportRate, max(1, int(math.Ceil(rt.cfg.Playback.ReportRate)))),
	)
	opener := mpv.NewOpener(mpv.Config{
		Binary: rt.cfg.Player.MPVBinary,
		Args:   rt.cfg.Player.MPVArgs,
	})
	ctrl := player.NewController(opener, reporter,
		player.WithProgressInterval(rt.cfg.Playback.ProgressInterval))
	resolver := rt.resolver()

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.NewServerChecker(rt.api, 3*time.Second))
	hm.RegisterChecker(health.NewBreakerChecker(breaker))
	hm.RegisterChecker(health.NewPlayerChecker(ctrl))

	apiCfg := api.Config{RateLimit: rt.cfg.API.RateLimit}
	if rt.cfg.Telemetry.Enabled {
		apiCfg.ServiceName = rt.cfg.Log.Service
	}
	srv := api.New(apiCfg, resolver, ctrl, hm)

	mgr, err := daemon.NewManager(daemon.ServerConfig{ListenAddr: listen}, srv.Handler(), rt.logger)
	if err != nil {
		fmt.Fprintf(stderr, "jellyplay: %v\n", err)
		return 1
	}
	mgr.RegisterShutdownHook("player", func(context.Context) error { return ctrl.Close() })

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	failed := make(chan bool, 1)
	if itemID != "" {
		go func() { failed <- playOnce(runCtx, cancel, resolver, ctrl, itemID, stderr) }()
	}

	app := daemon.NewApp(rt.logger, mgr, rt.holder, reporter, ctrl)
	if err := app.Run(runCtx); err != nil {
		rt.logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.failed").Msg("daemon stopped with error")
		return 1
	}

	if itemID != "" {
		cancel()
		if <-failed {
			return 1
		}
	}
	return 0
}

// playOnce opens itemID and cancels the daemon once that session ends. It
// reports whether playback failed.
func playOnce(ctx context.Context, cancel context.CancelFunc, resolver *playback.Resolver, ctrl *player.Controller, itemID string, stderr io.Writer) bool {
	defer cancel()

	target, err := resolver.Resolve(ctx, itemID)
	if err != nil {
		fmt.Fprintln(stderr, playback.UserMessage(err))
		return true
	}

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	if err := ctrl.Configure(ctx, target); err != nil {
		if errors.Is(err, player.ErrSuperseded) {
			return false
		}
		fmt.Fprintln(stderr, playback.UserMessage(err))
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-updates:
			if !ok {
				return false
			}
			if snap.SessionID != target.SessionID || !snap.State.Terminal() {
				continue
			}
			if snap.State == player.StateError {
				fmt.Fprintln(stderr, playback.UserMessage(snap.Err))
				return true
			}
			return false
		}
	}
}
