// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package catalog negotiates playback sources with the Jellyfin server.
package catalog

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/jellyplay/internal/jellyfin"
	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/ManuGH/jellyplay/internal/metrics"
	"github.com/ManuGH/jellyplay/internal/playback"
	"github.com/rs/zerolog"
)

// Client fetches PlaybackInfo for items.
type Client struct {
	api        *jellyfin.Client
	profile    jellyfin.DeviceProfile
	maxBitrate int
	logger     zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithMaxStreamingBitrate overrides the negotiated bitrate ceiling.
func WithMaxStreamingBitrate(bps int) Option {
	return func(c *Client) {
		if bps > 0 {
			c.maxBitrate = bps
		}
	}
}

// WithDeviceProfile replaces DefaultDeviceProfile.
func WithDeviceProfile(p jellyfin.DeviceProfile) Option {
	return func(c *Client) { c.profile = p }
}

// New creates a catalog client on top of an authenticated API client.
func New(api *jellyfin.Client, opts ...Option) *Client {
	c := &Client{
		api:        api,
		profile:    DefaultDeviceProfile(),
		maxBitrate: DefaultMaxStreamingBitrate,
		logger:     xglog.WithComponent("catalog"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPlaybackInfo issues one POST /Items/{id}/PlaybackInfo and maps the
// returned sources. Errors carry the jellyfin sentinels (ErrNotAuthenticated,
// ErrNetwork, ErrServer, ErrDecoding, ErrInvalidURL).
func (c *Client) FetchPlaybackInfo(ctx context.Context, itemID string) (playback.PlaybackInfoResult, error) {
	start := time.Now()
	res, err := c.fetch(ctx, itemID)
	metrics.ObserveNegotiation(jellyfin.Classify(err), time.Since(start))
	return res, err
}

func (c *Client) fetch(ctx context.Context, itemID string) (playback.PlaybackInfoResult, error) {
	if strings.TrimSpace(itemID) == "" {
		return playback.PlaybackInfoResult{}, &jellyfin.APIError{
			Sentinel:  jellyfin.ErrInvalidURL,
			Operation: "POST /Items/{id}/PlaybackInfo",
			Err:       errors.New("empty item id"),
		}
	}

	session := c.api.Session()
	profile := c.profile
	profile.MaxStreamingBitrate = c.maxBitrate

	endpoint := "/Items/" + url.PathEscape(itemID) + "/PlaybackInfo"
	params := url.Values{}
	if session.UserID != "" {
		params.Set("UserId", session.UserID)
	}
	body := jellyfin.PlaybackInfoRequest{
		UserID:              session.UserID,
		MaxStreamingBitrate: c.maxBitrate,
		AutoOpenLiveStream:  true,
		EnableDirectPlay:    true,
		EnableDirectStream:  true,
		EnableTranscoding:   true,
		DeviceProfile:       &profile,
	}

	var resp jellyfin.PlaybackInfoResponse
	if err := c.api.PostJSON(ctx, endpoint, params, body, &resp); err != nil {
		return playback.PlaybackInfoResult{}, err
	}

	result := playback.PlaybackInfoResult{
		Sources: make([]playback.MediaSource, 0, len(resp.MediaSources)),
	}
	if resp.PlaySessionID != nil {
		result.PlaySessionID = *resp.PlaySessionID
	}
	for _, info := range resp.MediaSources {
		result.Sources = append(result.Sources, ToMediaSource(info))
	}

	logger := c.logger.With().Str(xglog.FieldItemID, itemID).Logger()
	if resp.ErrorCode != nil && *resp.ErrorCode != "" {
		logger.Warn().
			Str(xglog.FieldEvent, "catalog.playback_info.error_code").
			Str("error_code", *resp.ErrorCode).
			Msg("server attached an error code to playback info")
	}
	logger.Debug().
		Str(xglog.FieldEvent, "catalog.playback_info").
		Int("sources", len(result.Sources)).
		Bool("has_play_session", result.PlaySessionID != "").
		Msg("playback info negotiated")
	return result, nil
}

// ToMediaSource maps a wire source to the domain type.
func ToMediaSource(info jellyfin.MediaSourceInfo) playback.MediaSource {
	src := playback.MediaSource{
		Path:                 info.Path,
		Protocol:             mapProtocol(info),
		SupportsDirectPlay:   info.SupportsDirectPlay,
		SupportsDirectStream: info.SupportsDirectStream,
		SupportsTranscoding:  info.SupportsTranscoding,
		IsInfiniteStream:     info.IsInfiniteStream,
	}
	if info.ID != nil {
		src.ID = *info.ID
	}
	if info.Container != nil {
		src.Container = strings.ToLower(*info.Container)
	}
	if info.RunTimeTicks != nil {
		src.RunTimeTicks = *info.RunTimeTicks
	}
	return src
}

// mapProtocol folds Jellyfin's MediaProtocol plus container hints into the
// four delivery kinds selection cares about. Http sources whose container or
// path is an HLS playlist count as HLS.
func mapProtocol(info jellyfin.MediaSourceInfo) playback.Protocol {
	proto := strings.ToLower(info.Protocol)
	switch proto {
	case "hls":
		return playback.ProtocolHLS
	case "http", "https":
	default:
		return playback.ProtocolOther
	}

	if info.Container != nil {
		switch strings.ToLower(*info.Container) {
		case "hls", "m3u8":
			return playback.ProtocolHLS
		}
	}
	path := info.Path
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if strings.HasSuffix(strings.ToLower(path), ".m3u8") {
		return playback.ProtocolHLS
	}
	if proto == "https" || strings.HasPrefix(strings.ToLower(info.Path), "https://") {
		return playback.ProtocolHTTPS
	}
	return playback.ProtocolHTTP
}
