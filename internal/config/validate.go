// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	xnet "github.com/ManuGH/jellyplay/internal/platform/net"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks cross-field constraints. It does not require credentials:
// commands that need a session check that themselves.
func Validate(cfg AppConfig) error {
	var errs []error
	if cfg.Server.URL != "" {
		if _, err := xnet.ParseServerURL(cfg.Server.URL); err != nil {
			errs = append(errs, fmt.Errorf("server.url: %w", err))
		}
	}
	if cfg.Server.Token != "" && cfg.Server.UserID == "" {
		errs = append(errs, errors.New("server.user_id is required when server.token is set"))
	}
	if cfg.Playback.ProgressInterval < time.Second {
		errs = append(errs, fmt.Errorf("playback.progress_interval %s must be at least 1s", cfg.Playback.ProgressInterval))
	}
	if cfg.Playback.RequestTimeout <= 0 {
		errs = append(errs, errors.New("playback.request_timeout must be positive"))
	}
	if cfg.Playback.ReportQueueSize <= 0 {
		errs = append(errs, errors.New("playback.report_queue_size must be positive"))
	}
	if cfg.Playback.ReportRate <= 0 {
		errs = append(errs, errors.New("playback.report_rate must be positive"))
	}
	if cfg.API.RateLimit <= 0 {
		errs = append(errs, errors.New("api.rate_limit must be positive"))
	}
	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Exporter {
		case "grpc", "http":
		default:
			errs = append(errs, fmt.Errorf("telemetry.exporter %q must be grpc or http", cfg.Telemetry.Exporter))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// HasCredentials reports whether the config can produce an authenticated session.
func (c ServerConfig) HasCredentials() bool {
	if c.URL == "" {
		return false
	}
	if c.Token != "" && c.UserID != "" {
		return true
	}
	return strings.TrimSpace(c.Username) != ""
}
