// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"net/url"
	"strings"

	"github.com/ManuGH/jellyplay/internal/core/urlutil"
	"github.com/ManuGH/jellyplay/internal/jellyfin"
	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/google/uuid"
)

// Query parameter names understood by the Jellyfin streaming endpoints.
const (
	ParamAPIKey        = "api_key"
	ParamDeviceID      = "deviceId"
	ParamPlaySessionID = "PlaySessionId"
	ParamMediaSourceID = "MediaSourceId"
)

// manualHLSParams is the fixed transcode profile of the last-resort URL. It
// must play everywhere, so nothing here depends on what the server reported.
var manualHLSParams = [][2]string{
	{"container", "ts"},
	{"videoCodec", "h264"},
	{"audioCodec", "aac"},
	{"maxWidth", "1920"},
	{"maxHeight", "1080"},
	{"videoBitRate", "8000000"},
	{"audioBitRate", "192000"},
	{"audioChannels", "2"},
	{"subtitleMethod", "Encode"},
	{"enableDirectPlay", "false"},
	{"enableDirectStream", "false"},
}

var newPlaySessionID = uuid.NewString

// BuildDirectURL turns a selected source into a player URL.
//
// Absolute http(s) paths get no parameters added; the returned URL is only
// their parsed form, so callers that need the server's exact text keep the
// path itself (ResolveTarget stores it in Target.Raw). Server-relative paths are
// joined to the session's base URL; HLS and infinite (live) sources also get
// api_key and deviceId because players fetch their segments without our
// Authorization header. Without a token the URL is returned tokenless and a
// warning is logged. Any other path shape yields ok=false, which tells the
// caller to fall back rather than fail.
func BuildDirectURL(src MediaSource, s jellyfin.Session) (*url.URL, bool) {
	path := src.Path

	switch {
	case isAbsoluteHTTP(path):
		u, err := url.Parse(path)
		if err != nil {
			return nil, false
		}
		return u, true

	case strings.HasPrefix(path, "/"):
		base := s.ServerURL()
		if base == "" {
			return nil, false
		}
		u, err := url.Parse(base + path)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, false
		}
		if src.Protocol == ProtocolHLS || src.IsInfiniteStream {
			appendStreamAuth(u, s, src)
		}
		return u, true

	default:
		return nil, false
	}
}

// appendStreamAuth adds api_key and deviceId without disturbing an existing
// query string and without duplicating a token the server already embedded.
func appendStreamAuth(u *url.URL, s jellyfin.Session, src MediaSource) {
	existing := u.Query()
	extra := url.Values{}

	if !hasParam(existing, ParamAPIKey) {
		if s.AccessToken == "" {
			logger := xglog.WithComponent("playback")
			logger.Warn().
				Str(xglog.FieldEvent, "playback.url.missing_token").
				Str(xglog.FieldSourceID, src.ID).
				Str(xglog.FieldURL, urlutil.SanitizeURL(u.String())).
				Msg("no access token available, stream url will be unauthenticated")
		} else {
			extra.Set(ParamAPIKey, s.AccessToken)
		}
	}
	if s.DeviceID != "" && !hasParam(existing, ParamDeviceID) {
		extra.Set(ParamDeviceID, s.DeviceID)
	}
	if len(extra) == 0 {
		return
	}
	if u.RawQuery == "" {
		u.RawQuery = extra.Encode()
	} else {
		u.RawQuery += "&" + extra.Encode()
	}
}

func hasParam(q url.Values, name string) bool {
	for k := range q {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func isAbsoluteHTTP(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// BuildManualHLSURL builds the forced-transcode HLS URL for itemID with a
// fresh PlaySessionId. It fails only when the base URL or the token is
// missing; it never consults server-reported capabilities.
func BuildManualHLSURL(itemID string, s jellyfin.Session) (*url.URL, bool) {
	base := s.ServerURL()
	if base == "" || s.AccessToken == "" {
		return nil, false
	}
	// HLS flavor of /Videos/{itemId}/stream: Jellyfin serves the transcoding
	// playlist from its dynamic HLS controller at /Videos/{itemId}/master.m3u8.
	// The progressive /stream endpoint would hand the player a single
	// non-seekable transcode instead of a segmented playlist.
	u, err := url.Parse(base + "/Videos/" + url.PathEscape(itemID) + "/master.m3u8")
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, false
	}

	q := url.Values{}
	for _, kv := range manualHLSParams {
		q.Set(kv[0], kv[1])
	}
	q.Set(ParamAPIKey, s.AccessToken)
	if s.DeviceID != "" {
		q.Set(ParamDeviceID, s.DeviceID)
	}
	q.Set(ParamPlaySessionID, newPlaySessionID())
	q.Set(ParamMediaSourceID, itemID)
	u.RawQuery = q.Encode()
	return u, true
}
