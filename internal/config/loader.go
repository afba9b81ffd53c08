// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	xnet "github.com/ManuGH/jellyplay/internal/platform/net"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader. An empty path means ENV-only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Path returns the config file path (may be empty).
func (l *Loader) Path() string { return l.configPath }

// Load loads configuration with precedence: ENV > File > Defaults, then validates it.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	if l.version != "" {
		cfg.Client.Version = l.version
	}

	if l.configPath != "" {
		if err := loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	mergeEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	if cfg.Server.URL != "" {
		u, _ := xnet.ParseServerURL(cfg.Server.URL)
		cfg.Server.URL = u.String()
	}
	return cfg, nil
}

// loadFile decodes the YAML file over cfg. Unknown keys are rejected.
func loadFile(path string, cfg *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func mergeEnv(cfg *AppConfig) {
	cfg.Server.URL = ParseString(EnvPrefix+"SERVER_URL", cfg.Server.URL)
	cfg.Server.Token = ParseString(EnvPrefix+"TOKEN", cfg.Server.Token)
	cfg.Server.UserID = ParseString(EnvPrefix+"USER_ID", cfg.Server.UserID)
	cfg.Server.Username = ParseString(EnvPrefix+"USERNAME", cfg.Server.Username)
	cfg.Server.Password = ParseString(EnvPrefix+"PASSWORD", cfg.Server.Password)

	cfg.Device.Name = ParseString(EnvPrefix+"DEVICE_NAME", cfg.Device.Name)
	cfg.Device.IDFile = ParseString(EnvPrefix+"DEVICE_ID_FILE", cfg.Device.IDFile)

	cfg.Client.Name = ParseString(EnvPrefix+"CLIENT_NAME", cfg.Client.Name)

	cfg.Playback.ProgressInterval = ParseDuration(EnvPrefix+"PROGRESS_INTERVAL", cfg.Playback.ProgressInterval)
	cfg.Playback.RequestTimeout = ParseDuration(EnvPrefix+"REQUEST_TIMEOUT", cfg.Playback.RequestTimeout)
	cfg.Playback.MaxStreamingBitrate = ParseInt(EnvPrefix+"MAX_STREAMING_BITRATE", cfg.Playback.MaxStreamingBitrate)
	cfg.Playback.ReportQueueSize = ParseInt(EnvPrefix+"REPORT_QUEUE_SIZE", cfg.Playback.ReportQueueSize)
	cfg.Playback.ReportRate = ParseFloat(EnvPrefix+"REPORT_RATE", cfg.Playback.ReportRate)

	cfg.Player.MPVBinary = ParseString(EnvPrefix+"MPV_BINARY", cfg.Player.MPVBinary)
	cfg.Player.MPVArgs = ParseList(EnvPrefix+"MPV_ARGS", cfg.Player.MPVArgs)

	cfg.API.ListenAddr = ParseString(EnvPrefix+"LISTEN_ADDR", cfg.API.ListenAddr)
	cfg.API.RateLimit = ParseInt(EnvPrefix+"RATE_LIMIT", cfg.API.RateLimit)

	cfg.Log.Level = ParseString(EnvPrefix+"LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = ParseString(EnvPrefix+"LOG_SERVICE", cfg.Log.Service)

	cfg.Telemetry.Enabled = ParseBool(EnvPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(EnvPrefix+"TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(EnvPrefix+"TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(EnvPrefix+"TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}
