// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/ManuGH/jellyplay/internal/log"
	"github.com/ManuGH/jellyplay/internal/playback"
	"github.com/ManuGH/jellyplay/internal/player"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 4 << 10

type openRequest struct {
	ItemID string `json:"itemId"`
}

type seekRequest struct {
	Seconds *float64 `json:"seconds"`
}

// PlayerState is the JSON view of a controller snapshot.
type PlayerState struct {
	State                string  `json:"state"`
	ItemID               string  `json:"itemId,omitempty"`
	SessionID            string  `json:"sessionId,omitempty"`
	PlayMethod           string  `json:"playMethod,omitempty"`
	CurrentTimeSeconds   float64 `json:"currentTimeSeconds"`
	TotalDurationSeconds float64 `json:"totalDurationSeconds"`
	Finished             bool    `json:"finished"`
	Error                string  `json:"error,omitempty"`
}

// StreamInfo describes a resolved target.
type StreamInfo struct {
	ItemID         string  `json:"itemId"`
	URL            string  `json:"url"`
	Tier           string  `json:"tier"`
	PlayMethod     string  `json:"playMethod"`
	SessionID      string  `json:"sessionId"`
	MediaSourceID  string  `json:"mediaSourceId"`
	RunTimeSeconds float64 `json:"runTimeSeconds,omitempty"`
}

func stateFromSnapshot(s player.Snapshot) PlayerState {
	return PlayerState{
		State:                s.State.String(),
		ItemID:               s.ItemID,
		SessionID:            s.SessionID,
		PlayMethod:           string(s.PlayMethod),
		CurrentTimeSeconds:   s.CurrentTimeSeconds,
		TotalDurationSeconds: s.TotalDurationSeconds,
		Finished:             s.Finished,
		Error:                playback.UserMessage(s.Err),
	}
}

func streamInfo(t playback.Target) StreamInfo {
	return StreamInfo{
		ItemID:         t.ItemID,
		URL:            t.String(),
		Tier:           t.Tier.String(),
		PlayMethod:     string(t.PlayMethod),
		SessionID:      t.SessionID,
		MediaSourceID:  t.MediaSourceID,
		RunTimeSeconds: playback.TicksToSeconds(t.RunTimeTicks),
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, stateFromSnapshot(s.controller.Snapshot()))
}

// handleOpen resolves an item and hands the target to the controller. The
// resolution and the engine start both run under the request context.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.ItemID == "" {
		writeBadRequest(w, r, "itemId is required")
		return
	}

	ctx := log.ContextWithItemID(r.Context(), req.ItemID)
	target, err := s.resolver.Resolve(ctx, req.ItemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.controller.Configure(ctx, target); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, stateFromSnapshot(s.controller.Snapshot()))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.TogglePlayPause(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateFromSnapshot(s.controller.Snapshot()))
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	if req.Seconds == nil || math.IsNaN(*req.Seconds) || math.IsInf(*req.Seconds, 0) {
		writeBadRequest(w, r, "seconds must be a finite number")
		return
	}
	if err := s.controller.Seek(*req.Seconds); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateFromSnapshot(s.controller.Snapshot()))
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := s.controller.Close(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateFromSnapshot(s.controller.Snapshot()))
}

// handlePlayerEvents streams snapshots as server-sent events, starting with
// the current one, until the client goes away. Intermediate snapshots may be
// skipped; the latest always arrives.
func (s *Server) handlePlayerEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "streaming_unsupported", Message: "Streaming is not supported."})
		return
	}
	updates, cancel := s.controller.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	send := func(snap player.Snapshot) bool {
		raw, err := json.Marshal(stateFromSnapshot(snap))
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", raw); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok || !send(snap) {
				return
			}
		}
	}
}

func (s *Server) handleResolveStream(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	ctx := log.ContextWithItemID(r.Context(), itemID)
	target, err := s.resolver.Resolve(ctx, itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, streamInfo(target))
}
