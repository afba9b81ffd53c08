// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/ManuGH/jellyplay/internal/health"
	"github.com/ManuGH/jellyplay/internal/jellyfin"
	"github.com/ManuGH/jellyplay/internal/playback"
	"github.com/ManuGH/jellyplay/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	targets map[string]playback.Target
	err     error
}

func (f *fakeResolver) Resolve(_ context.Context, itemID string) (playback.Target, error) {
	if f.err != nil {
		return playback.Target{}, f.err
	}
	t, ok := f.targets[itemID]
	if !ok {
		return playback.Target{}, fmt.Errorf("resolve item %s: %w", itemID, playback.ErrNoPlayableSource)
	}
	return t, nil
}

type fakeController struct {
	mu         sync.Mutex
	snap       player.Snapshot
	configured []playback.Target
	seeks      []float64
	toggles    int
	closes     int
	err        error
	updates    chan player.Snapshot
}

func (f *fakeController) Configure(_ context.Context, t playback.Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.configured = append(f.configured, t)
	f.snap = player.Snapshot{State: player.StateOpening, ItemID: t.ItemID, SessionID: t.SessionID, PlayMethod: t.PlayMethod}
	return nil
}

func (f *fakeController) TogglePlayPause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.toggles++
	return nil
}

func (f *fakeController) Seek(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.seeks = append(f.seeks, seconds)
	return nil
}

func (f *fakeController) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	f.snap.State = player.StateStopped
	return nil
}

func (f *fakeController) Snapshot() player.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeController) Subscribe() (<-chan player.Snapshot, func()) {
	return f.updates, func() {}
}

type controllerCalls struct {
	configured []playback.Target
	seeks      []float64
	toggles    int
	closes     int
}

func (f *fakeController) calls() controllerCalls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return controllerCalls{
		configured: append([]playback.Target(nil), f.configured...),
		seeks:      append([]float64(nil), f.seeks...),
		toggles:    f.toggles,
		closes:     f.closes,
	}
}

func newTestServer(t *testing.T, res *fakeResolver, ctrl *fakeController) *httptest.Server {
	t.Helper()
	hm := health.NewManager("test")
	srv := httptest.NewServer(New(Config{RateLimit: 1000}, res, ctrl, hm).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func sampleTarget(itemID string) playback.Target {
	u, _ := url.Parse("https://jf.example.com/Videos/" + itemID + "/master.m3u8?api_key=tok")
	return playback.Target{
		URL:           u,
		ItemID:        itemID,
		SessionID:     "sess-" + itemID,
		MediaSourceID: "src-" + itemID,
		PlayMethod:    playback.PlayMethodDirectStream,
		Tier:          playback.TierHLSDirectStream,
		RunTimeTicks:  90 * playback.TicksPerSecond,
	}
}

func postJSON(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := srv.Client().Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestOpen_ResolvesAndConfigures(t *testing.T) {
	ctrl := &fakeController{}
	srv := newTestServer(t, &fakeResolver{targets: map[string]playback.Target{"55": sampleTarget("55")}}, ctrl)

	resp, body := postJSON(t, srv, "/api/v1/player/open", `{"itemId":"55"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "opening", body["state"])
	assert.Equal(t, "sess-55", body["sessionId"])

	calls := ctrl.calls()
	require.Len(t, calls.configured, 1)
	assert.Equal(t, "55", calls.configured[0].ItemID)
}

func TestOpen_Validation(t *testing.T) {
	srv := newTestServer(t, &fakeResolver{}, &fakeController{})

	for _, body := range []string{`{}`, `{"itemId":"  "}`, `not json`, `{"itemId":"1","extra":true}`} {
		resp, out := postJSON(t, srv, "/api/v1/player/open", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "bad_request", out["error"], body)
	}
}

func TestOpen_ResolveFailureUsesUserMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		kind    string
		message string
	}{
		{
			name:    "no source",
			err:     fmt.Errorf("resolve item 1: %w", playback.ErrNoPlayableSource),
			status:  http.StatusUnprocessableEntity,
			kind:    "no_playable_source",
			message: "This item cannot be played: the server offered no playable stream.",
		},
		{
			name:    "not authenticated",
			err:     fmt.Errorf("resolve item 1: %w", jellyfin.ErrNotAuthenticated),
			status:  http.StatusUnauthorized,
			kind:    "not_authenticated",
			message: "You are not signed in to the Jellyfin server.",
		},
		{
			name:    "network",
			err:     &jellyfin.APIError{Sentinel: jellyfin.ErrNetwork, Operation: "playback info"},
			status:  http.StatusBadGateway,
			kind:    "network_error",
			message: "Could not reach the Jellyfin server. Check the connection and try again.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{}
			srv := newTestServer(t, &fakeResolver{err: tt.err}, ctrl)

			resp, out := postJSON(t, srv, "/api/v1/player/open", `{"itemId":"1"}`)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.kind, out["error"])
			assert.Equal(t, tt.message, out["message"])
			assert.NotEmpty(t, out["requestId"])
			assert.Empty(t, ctrl.calls().configured)
		})
	}
}

func TestControls(t *testing.T) {
	ctrl := &fakeController{snap: player.Snapshot{State: player.StatePlaying, ItemID: "7"}}
	srv := newTestServer(t, &fakeResolver{}, ctrl)

	resp, _ := postJSON(t, srv, "/api/v1/player/toggle", ``)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, srv, "/api/v1/player/seek", `{"seconds":42.5}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = postJSON(t, srv, "/api/v1/player/seek", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := postJSON(t, srv, "/api/v1/player/close", ``)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "stopped", body["state"])

	calls := ctrl.calls()
	assert.Equal(t, 1, calls.toggles)
	assert.Equal(t, []float64{42.5}, calls.seeks)
	assert.Equal(t, 1, calls.closes)
}

func TestControls_NotConfigured(t *testing.T) {
	ctrl := &fakeController{err: player.ErrNotConfigured}
	srv := newTestServer(t, &fakeResolver{}, ctrl)

	resp, out := postJSON(t, srv, "/api/v1/player/toggle", ``)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "not_configured", out["error"])
	assert.Equal(t, "Nothing is playing.", out["message"])
}

func TestGetPlayer_RendersPlaybackError(t *testing.T) {
	ctrl := &fakeController{snap: player.Snapshot{
		State: player.StateError,
		Err:   fmt.Errorf("%w: %w", player.ErrPlayback, jellyfin.ErrNetwork),
	}}
	srv := newTestServer(t, &fakeResolver{}, ctrl)

	resp, err := srv.Client().Get(srv.URL + "/api/v1/player")
	require.NoError(t, err)
	defer resp.Body.Close()

	var state PlayerState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, "error", state.State)
	assert.Equal(t, "Could not reach the Jellyfin server. Check the connection and try again.", state.Error)
}

func TestResolveStream(t *testing.T) {
	srv := newTestServer(t, &fakeResolver{targets: map[string]playback.Target{"55": sampleTarget("55")}}, &fakeController{})

	resp, err := srv.Client().Get(srv.URL + "/api/v1/items/55/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info StreamInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, StreamInfo{
		ItemID:         "55",
		URL:            "https://jf.example.com/Videos/55/master.m3u8?api_key=tok",
		Tier:           "hls_direct_stream",
		PlayMethod:     "DirectStream",
		SessionID:      "sess-55",
		MediaSourceID:  "src-55",
		RunTimeSeconds: 90,
	}, info)
}

func TestPlayerEvents_StreamsSnapshots(t *testing.T) {
	updates := make(chan player.Snapshot, 2)
	updates <- player.Snapshot{State: player.StateOpening, ItemID: "9"}
	updates <- player.Snapshot{State: player.StatePlaying, ItemID: "9", CurrentTimeSeconds: 1.5}
	close(updates)
	srv := newTestServer(t, &fakeResolver{}, &fakeController{updates: updates})

	resp, err := srv.Client().Get(srv.URL + "/api/v1/player/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var states []PlayerState
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var st PlayerState
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &st))
		states = append(states, st)
	}
	require.Len(t, states, 2)
	assert.Equal(t, "opening", states[0].State)
	assert.Equal(t, "playing", states[1].State)
	assert.Equal(t, 1.5, states[1].CurrentTimeSeconds)
}

func TestProbeEndpoints(t *testing.T) {
	srv := newTestServer(t, &fakeResolver{}, &fakeController{})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestControlRateLimit(t *testing.T) {
	ctrl := &fakeController{}
	srv := httptest.NewServer(New(Config{RateLimit: 2}, &fakeResolver{}, ctrl, nil).Handler())
	defer srv.Close()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := srv.Client().Get(srv.URL + "/api/v1/player")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
