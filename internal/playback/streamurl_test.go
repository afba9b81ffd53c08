// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"testing"

	"github.com/ManuGH/jellyplay/internal/jellyfin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSession = jellyfin.Session{
	BaseURL:     "https://jf.example.com/",
	AccessToken: "tok123",
	UserID:      "user",
	DeviceID:    "dev-9",
}

func TestBuildDirectURL_AbsolutePassthrough(t *testing.T) {
	src := MediaSource{Protocol: ProtocolHTTPS, Path: "https://cdn.example/video.mp4"}
	u, ok := BuildDirectURL(src, testSession)
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example/video.mp4", u.String())

	// absolute HLS paths are not touched either
	src = MediaSource{Protocol: ProtocolHLS, Path: "http://live.example/a.m3u8?sig=1"}
	u, ok = BuildDirectURL(src, testSession)
	require.True(t, ok)
	assert.Equal(t, "http://live.example/a.m3u8?sig=1", u.String())
}

func TestBuildDirectURL_UppercaseSchemeIsAbsolute(t *testing.T) {
	src := MediaSource{Protocol: ProtocolHLS, Path: "HTTPS://Live.Example/a.m3u8"}
	u, ok := BuildDirectURL(src, testSession)
	require.True(t, ok)
	assert.Equal(t, "https", u.Scheme)
	assert.Empty(t, u.Query().Get("api_key"))
}

func TestBuildDirectURL_RelativeHLSGetsAuth(t *testing.T) {
	src := MediaSource{Protocol: ProtocolHLS, Path: "/Videos/42/stream"}
	u, ok := BuildDirectURL(src, testSession)
	require.True(t, ok)
	assert.Equal(t, "https://jf.example.com/Videos/42/stream?api_key=tok123&deviceId=dev-9", u.String())
}

func TestBuildDirectURL_InfiniteStreamGetsAuth(t *testing.T) {
	src := MediaSource{Protocol: ProtocolHTTP, Path: "/LiveTv/LiveStreamFiles/abc/stream.ts", IsInfiniteStream: true}
	u, ok := BuildDirectURL(src, testSession)
	require.True(t, ok)
	assert.Equal(t, "tok123", u.Query().Get("api_key"))
	assert.Equal(t, "dev-9", u.Query().Get("deviceId"))
}

func TestBuildDirectURL_RelativeHTTPNoAuth(t *testing.T) {
	src := MediaSource{Protocol: ProtocolHTTP, Path: "/Videos/42/stream.mp4?static=true", Container: "mp4"}
	u, ok := BuildDirectURL(src, testSession)
	require.True(t, ok)
	assert.Equal(t, "https://jf.example.com/Videos/42/stream.mp4?static=true", u.String())
}

func TestBuildDirectURL_PreservesQueryAndExistingToken(t *testing.T) {
	src := MediaSource{Protocol: ProtocolHLS, Path: "/Videos/42/master.m3u8?MediaSourceId=abc&api_key=server"}
	u, ok := BuildDirectURL(src, testSession)
	require.True(t, ok)
	assert.Equal(t, "https://jf.example.com/Videos/42/master.m3u8?MediaSourceId=abc&api_key=server&deviceId=dev-9", u.String())
	assert.Equal(t, []string{"server"}, u.Query()["api_key"])
}

func TestBuildDirectURL_MissingTokenFailsSoft(t *testing.T) {
	s := testSession
	s.AccessToken = ""
	src := MediaSource{Protocol: ProtocolHLS, Path: "/Videos/42/master.m3u8"}
	u, ok := BuildDirectURL(src, s)
	require.True(t, ok)
	assert.Equal(t, "https://jf.example.com/Videos/42/master.m3u8?deviceId=dev-9", u.String())
}

func TestBuildDirectURL_UnrecognizedPath(t *testing.T) {
	for _, path := range []string{`C:\local\file.mkv`, "", "media/file.mp4", "rtsp://cam/1", "smb://nas/x.mp4"} {
		u, ok := BuildDirectURL(MediaSource{Protocol: ProtocolHTTP, Path: path}, testSession)
		assert.False(t, ok, path)
		assert.Nil(t, u, path)
	}
}

func TestBuildDirectURL_RelativeWithoutBase(t *testing.T) {
	u, ok := BuildDirectURL(MediaSource{Protocol: ProtocolHLS, Path: "/Videos/1/master.m3u8"}, jellyfin.Session{AccessToken: "t"})
	assert.False(t, ok)
	assert.Nil(t, u)
}

func TestBuildManualHLSURL(t *testing.T) {
	old := newPlaySessionID
	newPlaySessionID = func() string { return "fresh-session" }
	t.Cleanup(func() { newPlaySessionID = old })

	u, ok := BuildManualHLSURL("99", testSession)
	require.True(t, ok)
	assert.Equal(t, "https", u.Scheme)
	assert.Equal(t, "jf.example.com", u.Host)
	assert.Equal(t, "/Videos/99/master.m3u8", u.Path)

	q := u.Query()
	want := map[string]string{
		"container":          "ts",
		"videoCodec":         "h264",
		"audioCodec":         "aac",
		"maxWidth":           "1920",
		"maxHeight":          "1080",
		"videoBitRate":       "8000000",
		"audioBitRate":       "192000",
		"audioChannels":      "2",
		"subtitleMethod":     "Encode",
		"enableDirectPlay":   "false",
		"enableDirectStream": "false",
		"api_key":            "tok123",
		"deviceId":           "dev-9",
		"PlaySessionId":      "fresh-session",
		"MediaSourceId":      "99",
	}
	for k, v := range want {
		assert.Equal(t, v, q.Get(k), k)
	}
	assert.Len(t, q, len(want))
}

func TestBuildManualHLSURL_IndependentOfItem(t *testing.T) {
	for _, id := range []string{"1", "", "a b/c", "e3b0c44298fc1c149afbf4c8996fb924"} {
		u, ok := BuildManualHLSURL(id, testSession)
		require.True(t, ok, id)
		assert.Equal(t, "false", u.Query().Get("enableDirectPlay"))
		assert.Equal(t, "false", u.Query().Get("enableDirectStream"))
		assert.Equal(t, id, u.Query().Get("MediaSourceId"))
	}
}

func TestBuildManualHLSURL_FreshSessionPerCall(t *testing.T) {
	a, _ := BuildManualHLSURL("1", testSession)
	b, _ := BuildManualHLSURL("1", testSession)
	assert.NotEmpty(t, a.Query().Get("PlaySessionId"))
	assert.NotEqual(t, a.Query().Get("PlaySessionId"), b.Query().Get("PlaySessionId"))
}

func TestBuildManualHLSURL_RequiresBaseAndToken(t *testing.T) {
	s := testSession
	s.AccessToken = ""
	_, ok := BuildManualHLSURL("1", s)
	assert.False(t, ok)

	s = testSession
	s.BaseURL = ""
	_, ok = BuildManualHLSURL("1", s)
	assert.False(t, ok)
}
