// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package deviceid provides the stable per-install device identifier sent to
// the media server with every authenticated request and stream URL.
package deviceid

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
)

// LoadOrCreate returns the device id stored at path, creating and atomically
// persisting a fresh one when the file is missing or empty. An empty path
// yields an ephemeral id.
func LoadOrCreate(path string) (string, error) {
	logger := xglog.WithComponent("deviceid")
	if path == "" {
		id := uuid.NewString()
		logger.Warn().
			Str(xglog.FieldEvent, "deviceid.ephemeral").
			Msg("no device id file configured; using an ephemeral device id")
		return id, nil
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(raw)); id != "" {
			if _, perr := uuid.Parse(id); perr != nil {
				return "", fmt.Errorf("device id file %s: %w", path, perr)
			}
			return id, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("read device id: %w", err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create device id dir: %w", err)
	}
	if err := renameio.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	logger.Info().
		Str(xglog.FieldEvent, "deviceid.created").
		Str(xglog.FieldPath, path).
		Str(xglog.FieldDeviceID, id).
		Msg("generated new device id")
	return id, nil
}
