// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/jellyplay/internal/jellyfin"
)

// ErrNoPlayableSource means every resolution tier was exhausted, which in
// practice means the server address or the access token is unknown.
var ErrNoPlayableSource = errors.New("playback: no playable source")

// Classify extends jellyfin.Classify with the resolution outcome.
func Classify(err error) string {
	if errors.Is(err, ErrNoPlayableSource) {
		return "no_playable_source"
	}
	return jellyfin.Classify(err)
}

// UserMessage converts a setup failure into the single message shown to the
// user. It returns "" for a nil error.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "Playback was canceled."
	case errors.Is(err, ErrNoPlayableSource):
		return "This item cannot be played: the server offered no playable stream."
	case errors.Is(err, jellyfin.ErrNotAuthenticated):
		return "You are not signed in to the Jellyfin server."
	case errors.Is(err, jellyfin.ErrInvalidURL):
		return "The Jellyfin server address is invalid. Check the configuration."
	case errors.Is(err, jellyfin.ErrServer):
		if code, ok := jellyfin.StatusCode(err); ok {
			return fmt.Sprintf("The Jellyfin server could not prepare this item (HTTP %d).", code)
		}
		return "The Jellyfin server could not prepare this item."
	case errors.Is(err, jellyfin.ErrDecoding):
		return "The Jellyfin server sent a response that could not be read."
	case errors.Is(err, jellyfin.ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return "Could not reach the Jellyfin server. Check the connection and try again."
	default:
		return "Playback failed."
	}
}
