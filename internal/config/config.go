// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Device    DeviceConfig    `yaml:"device"`
	Client    ClientConfig    `yaml:"client"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Player    PlayerConfig    `yaml:"player"`
	API       APIConfig       `yaml:"api"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig locates and authenticates against the Jellyfin server.
// Either Token (with UserID) or Username/Password must be set.
type ServerConfig struct {
	URL      string `yaml:"url"`
	Token    string `yaml:"token"`
	UserID   string `yaml:"user_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type DeviceConfig struct {
	Name   string `yaml:"name"`
	IDFile string `yaml:"id_file"`
}

type ClientConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type PlaybackConfig struct {
	ProgressInterval    time.Duration `yaml:"progress_interval"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	MaxStreamingBitrate int           `yaml:"max_streaming_bitrate"`
	ReportQueueSize     int           `yaml:"report_queue_size"`
	ReportRate          float64       `yaml:"report_rate"`
}

type PlayerConfig struct {
	MPVBinary string   `yaml:"mpv_binary"`
	MPVArgs   []string `yaml:"mpv_args"`
}

type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// RateLimit is the number of control requests allowed per minute and client.
	RateLimit int `yaml:"rate_limit"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Defaults returns the configuration used before file and env are applied.
func Defaults() AppConfig {
	return AppConfig{
		Device: DeviceConfig{
			Name:   "jellyplay",
			IDFile: defaultDeviceIDFile(),
		},
		Client: ClientConfig{
			Name:    "jellyplay",
			Version: "dev",
		},
		Playback: PlaybackConfig{
			ProgressInterval:    10 * time.Second,
			RequestTimeout:      15 * time.Second,
			MaxStreamingBitrate: 120_000_000,
			ReportQueueSize:     64,
			ReportRate:          10,
		},
		Player: PlayerConfig{
			MPVBinary: "mpv",
		},
		API: APIConfig{
			ListenAddr: "127.0.0.1:8787",
			RateLimit:  120,
		},
		Log: LogConfig{
			Level:   "info",
			Service: "jellyplay",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
