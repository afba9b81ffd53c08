// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/jellyplay/internal/jellyfin"
	"github.com/ManuGH/jellyplay/internal/log"
	"github.com/ManuGH/jellyplay/internal/playback"
	"github.com/ManuGH/jellyplay/internal/player"
)

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeBadRequest rejects a malformed control request.
func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:     "bad_request",
		Message:   message,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

// writeError maps a playback or player failure onto a status code and a
// message suitable for display.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := statusFor(err)
	message := playback.UserMessage(err)
	switch kind {
	case "not_configured":
		message = "Nothing is playing."
	case "superseded":
		message = "Another item was opened before this one started."
	}
	writeJSON(w, code, errorResponse{
		Error:     kind,
		Message:   message,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, player.ErrNotConfigured):
		return http.StatusConflict, "not_configured"
	case errors.Is(err, player.ErrSuperseded):
		return http.StatusConflict, "superseded"
	case errors.Is(err, playback.ErrNoPlayableSource):
		return http.StatusUnprocessableEntity, playback.Classify(err)
	case errors.Is(err, jellyfin.ErrNotAuthenticated):
		return http.StatusUnauthorized, playback.Classify(err)
	case errors.Is(err, jellyfin.ErrServer),
		errors.Is(err, jellyfin.ErrNetwork),
		errors.Is(err, jellyfin.ErrDecoding):
		return http.StatusBadGateway, playback.Classify(err)
	case errors.Is(err, jellyfin.ErrInvalidURL):
		return http.StatusBadRequest, playback.Classify(err)
	case errors.Is(err, player.ErrPlayback):
		return http.StatusBadGateway, "playback_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
