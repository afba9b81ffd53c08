// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import (
	"net/url"
	"time"
)

// TicksPerSecond is the Jellyfin tick rate (100ns units).
const TicksPerSecond = 10_000_000

// Protocol is how a media source is delivered.
type Protocol int

const (
	ProtocolOther Protocol = iota
	ProtocolHTTP
	ProtocolHTTPS
	ProtocolHLS
)

func (p Protocol) String() string {
	switch p {
	case ProtocolHTTP:
		return "http"
	case ProtocolHTTPS:
		return "https"
	case ProtocolHLS:
		return "hls"
	default:
		return "other"
	}
}

// MediaSource is one server-declared way to deliver an item. Values are
// immutable once built from a negotiation response.
type MediaSource struct {
	ID        string
	Protocol  Protocol
	Path      string
	Container string

	SupportsDirectPlay   bool
	SupportsDirectStream bool
	SupportsTranscoding  bool
	IsInfiniteStream     bool

	RunTimeTicks int64
}

// PlaybackInfoResult is the outcome of one negotiation call.
type PlaybackInfoResult struct {
	Sources       []MediaSource
	PlaySessionID string // empty when the server did not assign one
}

// Tier identifies which resolution step produced a target.
type Tier int

const (
	TierNone Tier = iota
	TierHLSDirectStream
	TierHTTPDirectStream
	TierHTTPDirectPlay
	TierManualHLS
)

// String returns the metric label for t.
func (t Tier) String() string {
	switch t {
	case TierHLSDirectStream:
		return "hls_direct_stream"
	case TierHTTPDirectStream:
		return "http_direct_stream"
	case TierHTTPDirectPlay:
		return "http_direct_play"
	case TierManualHLS:
		return "manual_hls"
	default:
		return "none"
	}
}

// PlayMethod is the value Jellyfin expects in session reports.
type PlayMethod string

const (
	PlayMethodDirectPlay   PlayMethod = "DirectPlay"
	PlayMethodDirectStream PlayMethod = "DirectStream"
	PlayMethodTranscode    PlayMethod = "Transcode"
)

// PlayMethod maps a tier to the report play method.
func (t Tier) PlayMethod() PlayMethod {
	switch t {
	case TierHTTPDirectPlay:
		return PlayMethodDirectPlay
	case TierManualHLS:
		return PlayMethodTranscode
	default:
		return PlayMethodDirectStream
	}
}

// Target is a fully qualified, authenticated stream for one item. A new
// Target replaces the previous one wholesale; it is never mutated.
type Target struct {
	URL           *url.URL
	// Raw is the server's own text for an absolute source path. String
	// returns it verbatim so the player gets exactly what the server sent.
	Raw           string
	ItemID        string
	SessionID     string
	MediaSourceID string
	PlayMethod    PlayMethod
	Tier          Tier
	RunTimeTicks  int64
}

// IsZero reports whether t carries no stream.
func (t Target) IsZero() bool { return t.URL == nil }

// String returns the stream URL.
func (t Target) String() string {
	if t.URL == nil {
		return ""
	}
	if t.Raw != "" {
		return t.Raw
	}
	return t.URL.String()
}

// TicksToSeconds converts server ticks to seconds.
func TicksToSeconds(ticks int64) float64 {
	return float64(ticks) / TicksPerSecond
}

// SecondsToTicks converts seconds to server ticks.
func SecondsToTicks(seconds float64) int64 {
	return int64(seconds * TicksPerSecond)
}

// DurationToTicks converts d to server ticks.
func DurationToTicks(d time.Duration) int64 {
	return int64(d / 100)
}
