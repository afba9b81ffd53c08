// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ManuGH/jellyplay/internal/config"
	"github.com/ManuGH/jellyplay/internal/deviceid"
	"github.com/ManuGH/jellyplay/internal/jellyfin"
	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/ManuGH/jellyplay/internal/platform/httpx"
	"github.com/ManuGH/jellyplay/internal/playback"
	"github.com/ManuGH/jellyplay/internal/playback/catalog"
	"github.com/ManuGH/jellyplay/internal/telemetry"
	"github.com/ManuGH/jellyplay/internal/version"
	"github.com/rs/zerolog"
)

var errNoCredentials = errors.New("no server credentials: set JELLYPLAY_SERVER_URL and either JELLYPLAY_TOKEN with JELLYPLAY_USER_ID or JELLYPLAY_USERNAME with JELLYPLAY_PASSWORD")

// runtime is everything a command needs once configuration and the server
// session are established.
type runtime struct {
	cfg        config.AppConfig
	holder     *config.Holder
	telemetry  *telemetry.Provider
	httpClient *http.Client
	api        *jellyfin.Client
	logger     zerolog.Logger
}

// bootstrap loads configuration, configures logging and tracing, and signs
// in. Logs go to logOut so stdout stays free for command output.
func bootstrap(ctx context.Context, configPath string, logOut io.Writer) (*runtime, error) {
	xglog.Configure(xglog.Config{Level: "info", Output: logOut, Service: "jellyplay", Version: version.Version})
	logger := xglog.WithComponent("cli")

	loader := config.NewLoader(configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	xglog.SetLevel(cfg.Log.Level)

	source := "env+defaults"
	if configPath != "" {
		source = "file"
	}
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("source", source).
		Str(xglog.FieldPath, configPath).
		Msg("configuration loaded")

	if !cfg.Server.HasCredentials() {
		return nil, errNoCredentials
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Log.Service,
		ServiceVersion: version.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "telemetry.init_failed").
			Msg("telemetry initialization failed, continuing without tracing")
		tp, _ = telemetry.NewProvider(ctx, telemetry.Config{})
	}

	deviceID, err := deviceid.LoadOrCreate(cfg.Device.IDFile)
	if err != nil {
		return nil, fmt.Errorf("device id: %w", err)
	}

	httpClient := httpx.NewClient(cfg.Playback.RequestTimeout)
	client := jellyfin.New(jellyfin.Session{
		BaseURL:     cfg.Server.URL,
		AccessToken: cfg.Server.Token,
		UserID:      cfg.Server.UserID,
		DeviceID:    deviceID,
		DeviceName:  cfg.Device.Name,
		ClientName:  cfg.Client.Name,
		Version:     cfg.Client.Version,
	}, httpClient)

	if cfg.Server.Token == "" {
		client, err = client.AuthenticateByName(ctx, cfg.Server.Username, cfg.Server.Password)
		if err != nil {
			return nil, fmt.Errorf("sign in: %w", err)
		}
	}

	return &runtime{
		cfg:        cfg,
		holder:     config.NewHolder(cfg, loader),
		telemetry:  tp,
		httpClient: httpClient,
		api:        client,
		logger:     logger,
	}, nil
}

func (rt *runtime) resolver() *playback.Resolver {
	cat := catalog.New(rt.api, catalog.WithMaxStreamingBitrate(rt.cfg.Playback.MaxStreamingBitrate))
	return playback.NewResolver(cat, rt.api.Session())
}

// close flushes traces.
func (rt *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.telemetry.Shutdown(ctx); err != nil {
		rt.logger.Warn().Err(err).Msg("telemetry shutdown error")
	}
}
