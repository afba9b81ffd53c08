// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package jellyfintest provides a configurable in-process Jellyfin server for tests.
package jellyfintest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/ManuGH/jellyplay/internal/jellyfin"
)

const (
	Token  = "test-token"
	UserID = "user-1"
)

// Report is one session report as received by the mock.
type Report struct {
	Kind string // "start", "progress", "stop"
	Body jellyfin.PlaybackReport
	Auth string
}

// MockServer provides a configurable Jellyfin mock server for testing.
type MockServer struct {
	*httptest.Server

	mu           sync.Mutex
	playbackInfo map[string]jellyfin.PlaybackInfoResponse
	infoStatus   map[string]int
	rawInfo      map[string]string
	infoRequests []jellyfin.PlaybackInfoRequest
	infoAuth     []string
	reports      []Report
	reportStatus int
	playlists    map[string]string
	credentials  map[string]string
	reportHook   func(Report)
}

// NewMockServer starts a mock server. Callers must Close it.
func NewMockServer() *MockServer {
	m := &MockServer{
		playbackInfo: make(map[string]jellyfin.PlaybackInfoResponse),
		infoStatus:   make(map[string]int),
		rawInfo:      make(map[string]string),
		playlists:    make(map[string]string),
		credentials:  map[string]string{"alice": "secret"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /Items/{id}/PlaybackInfo", m.handlePlaybackInfo)
	mux.HandleFunc("POST /Sessions/Playing", m.handleReport("start"))
	mux.HandleFunc("POST /Sessions/Playing/Progress", m.handleReport("progress"))
	mux.HandleFunc("POST /Sessions/Playing/Stopped", m.handleReport("stop"))
	mux.HandleFunc("POST /Users/AuthenticateByName", m.handleAuthenticate)
	mux.HandleFunc("GET /System/Info/Public", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jellyfin.PublicSystemInfo{ServerName: "mock", Version: "10.10.3", ID: "srv"})
	})
	mux.HandleFunc("GET /", m.handleStatic)

	m.Server = httptest.NewServer(mux)
	return m
}

// Session returns an authenticated session pointing at the mock.
func (m *MockServer) Session() jellyfin.Session {
	return jellyfin.Session{
		BaseURL:     m.URL,
		AccessToken: Token,
		UserID:      UserID,
		DeviceID:    "device-1",
		DeviceName:  "test",
		ClientName:  "jellyplay-test",
		Version:     "0.0.0",
	}
}

// SetPlaybackInfo configures the negotiation response for an item.
func (m *MockServer) SetPlaybackInfo(itemID string, resp jellyfin.PlaybackInfoResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playbackInfo[itemID] = resp
}

// FailPlaybackInfo makes negotiation for itemID answer with status.
func (m *MockServer) FailPlaybackInfo(itemID string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoStatus[itemID] = status
}

// SetRawPlaybackInfo makes negotiation for itemID answer 200 with body verbatim.
func (m *MockServer) SetRawPlaybackInfo(itemID, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rawInfo[itemID] = body
}

// FailReports makes every session report answer with status (0 restores 204).
func (m *MockServer) FailReports(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reportStatus = status
}

// OnReport installs a hook called synchronously for each received report.
func (m *MockServer) OnReport(fn func(Report)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reportHook = fn
}

// SetPlaylist serves body at path (GET) with an HLS content type.
func (m *MockServer) SetPlaylist(path, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playlists[path] = body
}

// PlaybackInfoRequests returns the decoded negotiation bodies received so far.
func (m *MockServer) PlaybackInfoRequests() []jellyfin.PlaybackInfoRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]jellyfin.PlaybackInfoRequest(nil), m.infoRequests...)
}

// PlaybackInfoAuth returns the Authorization headers of negotiation calls.
func (m *MockServer) PlaybackInfoAuth() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.infoAuth...)
}

// Reports returns the session reports received so far, in arrival order.
func (m *MockServer) Reports() []Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Report(nil), m.reports...)
}

func (m *MockServer) authorized(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Authorization"), `Token="`+Token+`"`)
}

func (m *MockServer) handlePlaybackInfo(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := r.PathValue("id")

	var body jellyfin.PlaybackInfoRequest
	_ = json.NewDecoder(r.Body).Decode(&body)

	m.mu.Lock()
	m.infoRequests = append(m.infoRequests, body)
	m.infoAuth = append(m.infoAuth, r.Header.Get("Authorization"))
	status, failing := m.infoStatus[id]
	raw, hasRaw := m.rawInfo[id]
	resp, ok := m.playbackInfo[id]
	m.mu.Unlock()

	switch {
	case failing:
		http.Error(w, "negotiation failed", status)
	case hasRaw:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(raw))
	case !ok:
		http.Error(w, "item not found", http.StatusNotFound)
	default:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (m *MockServer) handleReport(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body jellyfin.PlaybackReport
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		rep := Report{Kind: kind, Body: body, Auth: r.Header.Get("Authorization")}

		m.mu.Lock()
		m.reports = append(m.reports, rep)
		status := m.reportStatus
		hook := m.reportHook
		m.mu.Unlock()

		if hook != nil {
			hook(rep)
		}
		if status != 0 {
			http.Error(w, "report rejected", status)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (m *MockServer) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"Username"`
		Pw       string `json:"Pw"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}
	m.mu.Lock()
	want, ok := m.credentials[body.Username]
	m.mu.Unlock()
	if !ok || want != body.Pw {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"AccessToken": Token,
		"User":        map[string]string{"Id": UserID, "Name": body.Username},
	})
}

func (m *MockServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	body, ok := m.playlists[r.URL.Path]
	m.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	_, _ = w.Write([]byte(body))
}
