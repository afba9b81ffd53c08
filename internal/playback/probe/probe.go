// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package probe fetches a resolved stream URL once and reports what the
// server actually returned, decoding HLS playlists when present.
package probe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ManuGH/jellyplay/internal/core/urlutil"
	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/ManuGH/jellyplay/internal/playback"
	"github.com/grafov/m3u8"
)

// Kind describes the body served at a target URL.
type Kind string

const (
	KindMaster Kind = "master"
	KindMedia  Kind = "media"
	KindDirect Kind = "direct"
)

var (
	ErrStatus   = errors.New("probe: unexpected status")
	ErrPlaylist = errors.New("probe: invalid playlist")
)

// Variant is one rendition advertised by a master playlist.
type Variant struct {
	URI        string `json:"uri"`
	Bandwidth  uint32 `json:"bandwidth"`
	Resolution string `json:"resolution,omitempty"`
	Codecs     string `json:"codecs,omitempty"`
}

// Result summarizes a probe.
type Result struct {
	StatusCode     int       `json:"statusCode"`
	ContentType    string    `json:"contentType,omitempty"`
	Kind           Kind      `json:"kind"`
	Variants       []Variant `json:"variants,omitempty"`
	Segments       int       `json:"segments,omitempty"`
	TargetDuration float64   `json:"targetDuration,omitempty"`
	Live           bool      `json:"live,omitempty"`
}

// directPeek bounds how much of a progressive body is read.
const directPeek = 64 << 10

// Probe issues a GET for target and inspects the response. Non-2xx responses
// are returned as ErrStatus. HLS bodies must decode as a playlist.
func Probe(ctx context.Context, client *http.Client, target playback.Target) (Result, error) {
	if target.IsZero() {
		return Result{}, fmt.Errorf("probe: %w", playback.ErrNoPlayableSource)
	}
	logger := xglog.WithComponentFromContext(ctx, "probe")
	safeURL := urlutil.SanitizeURL(target.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("probe: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("probe %s: %w", safeURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	res := Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn().
			Str(xglog.FieldURL, safeURL).
			Int(xglog.FieldStatus, resp.StatusCode).
			Msg("stream probe rejected")
		return res, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	if !isPlaylist(target, res.ContentType) {
		res.Kind = KindDirect
		_, _ = io.CopyN(io.Discard, resp.Body, directPeek)
		return res, nil
	}

	playlist, listType, err := m3u8.DecodeFrom(bufio.NewReader(resp.Body), true)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrPlaylist, err)
	}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		res.Kind = KindMaster
		for _, v := range master.Variants {
			if v == nil {
				break
			}
			res.Variants = append(res.Variants, Variant{
				URI:        v.URI,
				Bandwidth:  v.Bandwidth,
				Resolution: v.Resolution,
				Codecs:     v.Codecs,
			})
		}
	case m3u8.MEDIA:
		media := playlist.(*m3u8.MediaPlaylist)
		res.Kind = KindMedia
		res.Segments = int(media.Count())
		res.TargetDuration = media.TargetDuration
		res.Live = !media.Closed
	}

	logger.Debug().
		Str(xglog.FieldURL, safeURL).
		Str("kind", string(res.Kind)).
		Int("variants", len(res.Variants)).
		Int("segments", res.Segments).
		Msg("stream probed")
	return res, nil
}

func isPlaylist(target playback.Target, contentType string) bool {
	switch target.Tier {
	case playback.TierHLSDirectStream, playback.TierManualHLS:
		return true
	}
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "mpegurl") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(target.URL.Path), ".m3u8")
}
