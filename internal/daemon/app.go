// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ManuGH/jellyplay/internal/config"
	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Runner is a background worker that stops when its context ends.
type Runner interface {
	Run(ctx context.Context) error
}

// ProgressTuner accepts a new progress report interval at runtime.
type ProgressTuner interface {
	SetProgressInterval(d time.Duration)
}

// App owns the long-lived runtime: config watching and reload, the session
// reporter, and the HTTP server managed by Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.Holder
	reporter     Runner
	tuner        ProgressTuner
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator. cfgHolder, reporter and tuner are
// optional.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.Holder, reporter Runner, tuner ProgressTuner) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		reporter:     reporter,
		tuner:        tuner,
		reloadSignal: syscall.SIGHUP,
	}
}

// Run blocks until ctx is cancelled or a fatal error occurs. The reporter
// outlives the server so reports queued by shutdown hooks are still sent.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		if err := a.cfgHolder.Watch(gctx); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.Subscribe(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case cfg := <-applyCh:
					a.apply(cfg)
				}
			}
		})

		if a.reloadSignal != nil {
			g.Go(func() error {
				hupChan := make(chan os.Signal, 1)
				signal.Notify(hupChan, a.reloadSignal)
				defer signal.Stop(hupChan)

				for {
					select {
					case <-gctx.Done():
						return nil
					case <-hupChan:
						a.logger.Info().
							Str(xglog.FieldEvent, "config.reload_signal").
							Str("signal", a.reloadSignal.String()).
							Msg("received reload signal, reloading config")
						_ = a.cfgHolder.Reload()
					}
				}
			})
		}
	}

	reporterCtx, stopReporter := context.WithCancel(context.WithoutCancel(gctx))
	defer stopReporter()
	if a.reporter != nil {
		g.Go(func() error { return a.reporter.Run(reporterCtx) })
	}

	g.Go(func() error {
		defer stopReporter()
		return a.manager.Start(gctx)
	})

	return g.Wait()
}

// apply pushes the reloadable settings into the running components.
func (a *App) apply(cfg config.AppConfig) {
	xglog.SetLevel(cfg.Log.Level)
	if a.tuner != nil && cfg.Playback.ProgressInterval > 0 {
		a.tuner.SetProgressInterval(cfg.Playback.ProgressInterval)
	}
	a.logger.Debug().
		Str(xglog.FieldEvent, "config.applied").
		Str("log_level", cfg.Log.Level).
		Dur("progress_interval", cfg.Playback.ProgressInterval).
		Msg("applied reloaded configuration")
}
