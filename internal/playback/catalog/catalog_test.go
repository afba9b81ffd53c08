// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ManuGH/jellyplay/internal/jellyfin"
	"github.com/ManuGH/jellyplay/internal/jellyfin/jellyfintest"
	"github.com/ManuGH/jellyplay/internal/platform/httpx"
	"github.com/ManuGH/jellyplay/internal/playback"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newClient(t *testing.T, mock *jellyfintest.MockServer, opts ...Option) *Client {
	t.Helper()
	return New(jellyfin.New(mock.Session(), httpx.NewClient(2*time.Second)), opts...)
}

func TestFetchPlaybackInfo_MapsSources(t *testing.T) {
	mock := jellyfintest.NewMockServer()
	defer mock.Close()

	mock.SetPlaybackInfo("55", jellyfin.PlaybackInfoResponse{
		PlaySessionID: ptr("srv-session"),
		MediaSources: []jellyfin.MediaSourceInfo{
			{
				ID:                   ptr("src-a"),
				Path:                 "/Videos/55/master.m3u8",
				Protocol:             "Http",
				Container:            ptr("hls"),
				RunTimeTicks:         ptr(int64(36_000_000_000)),
				SupportsDirectStream: true,
			},
			{
				ID:                 ptr("src-b"),
				Path:               "/media/movies/55.mkv",
				Protocol:           "File",
				Container:          ptr("MKV"),
				SupportsDirectPlay: true,
			},
		},
	})

	res, err := newClient(t, mock).FetchPlaybackInfo(context.Background(), "55")
	require.NoError(t, err)

	want := playback.PlaybackInfoResult{
		PlaySessionID: "srv-session",
		Sources: []playback.MediaSource{
			{
				ID:                   "src-a",
				Protocol:             playback.ProtocolHLS,
				Path:                 "/Videos/55/master.m3u8",
				Container:            "hls",
				SupportsDirectStream: true,
				RunTimeTicks:         36_000_000_000,
			},
			{
				ID:                 "src-b",
				Protocol:           playback.ProtocolOther,
				Path:               "/media/movies/55.mkv",
				Container:          "mkv",
				SupportsDirectPlay: true,
			},
		},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchPlaybackInfo_SendsProfile(t *testing.T) {
	mock := jellyfintest.NewMockServer()
	defer mock.Close()
	mock.SetPlaybackInfo("7", jellyfin.PlaybackInfoResponse{})

	_, err := newClient(t, mock, WithMaxStreamingBitrate(40_000_000)).FetchPlaybackInfo(context.Background(), "7")
	require.NoError(t, err)

	reqs := mock.PlaybackInfoRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, jellyfintest.UserID, reqs[0].UserID)
	assert.Equal(t, 40_000_000, reqs[0].MaxStreamingBitrate)
	assert.True(t, reqs[0].EnableDirectStream)
	require.NotNil(t, reqs[0].DeviceProfile)
	assert.Equal(t, 40_000_000, reqs[0].DeviceProfile.MaxStreamingBitrate)
	assert.NotEmpty(t, reqs[0].DeviceProfile.TranscodingProfiles)
	assert.Contains(t, mock.PlaybackInfoAuth()[0], `Token="`+jellyfintest.Token+`"`)
}

func TestFetchPlaybackInfo_Errors(t *testing.T) {
	mock := jellyfintest.NewMockServer()
	defer mock.Close()
	mock.FailPlaybackInfo("500", http.StatusInternalServerError)
	mock.SetRawPlaybackInfo("bad", `{"MediaSources": "nope"}`)

	c := newClient(t, mock)

	_, err := c.FetchPlaybackInfo(context.Background(), "500")
	require.ErrorIs(t, err, jellyfin.ErrServer)
	code, _ := jellyfin.StatusCode(err)
	assert.Equal(t, 500, code)

	_, err = c.FetchPlaybackInfo(context.Background(), "bad")
	require.ErrorIs(t, err, jellyfin.ErrDecoding)

	_, err = c.FetchPlaybackInfo(context.Background(), " ")
	require.ErrorIs(t, err, jellyfin.ErrInvalidURL)

	anon := jellyfin.New(jellyfin.Session{BaseURL: mock.URL}, httpx.NewClient(time.Second))
	_, err = New(anon).FetchPlaybackInfo(context.Background(), "1")
	require.ErrorIs(t, err, jellyfin.ErrNotAuthenticated)
	assert.Empty(t, mock.PlaybackInfoRequests()[2:], "unauthenticated call never reaches the server")
}

func TestMapProtocol(t *testing.T) {
	tests := []struct {
		name string
		info jellyfin.MediaSourceInfo
		want playback.Protocol
	}{
		{"plain http", jellyfin.MediaSourceInfo{Protocol: "Http", Path: "/Videos/1/stream.mp4"}, playback.ProtocolHTTP},
		{"https by path", jellyfin.MediaSourceInfo{Protocol: "Http", Path: "https://cdn/x.mp4"}, playback.ProtocolHTTPS},
		{"hls container", jellyfin.MediaSourceInfo{Protocol: "Http", Container: ptr("m3u8")}, playback.ProtocolHLS},
		{"hls path with query", jellyfin.MediaSourceInfo{Protocol: "Http", Path: "/live/a.m3u8?x=1"}, playback.ProtocolHLS},
		{"explicit hls", jellyfin.MediaSourceInfo{Protocol: "Hls"}, playback.ProtocolHLS},
		{"file", jellyfin.MediaSourceInfo{Protocol: "File", Path: "/media/a.m3u8"}, playback.ProtocolOther},
		{"rtsp", jellyfin.MediaSourceInfo{Protocol: "Rtsp"}, playback.ProtocolOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapProtocol(tt.info))
		})
	}
}
