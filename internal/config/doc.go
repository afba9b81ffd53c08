// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config provides configuration management for jellyplay.
//
// Precedence is ENV > YAML file > defaults. The file is decoded strictly so
// that typos in keys fail loudly instead of silently falling back to defaults.
package config
