// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jellyfin

// Wire DTOs for the PlaybackInfo and session reporting endpoints. Field names
// follow the Jellyfin API; everything above this package works on the
// playback domain types instead.

type PlaybackInfoRequest struct {
	UserID              string         `json:"UserId,omitempty"`
	MaxStreamingBitrate int            `json:"MaxStreamingBitrate,omitempty"`
	StartTimeTicks      int64          `json:"StartTimeTicks,omitempty"`
	AutoOpenLiveStream  bool           `json:"AutoOpenLiveStream"`
	EnableDirectPlay    bool           `json:"EnableDirectPlay"`
	EnableDirectStream  bool           `json:"EnableDirectStream"`
	EnableTranscoding   bool           `json:"EnableTranscoding"`
	DeviceProfile       *DeviceProfile `json:"DeviceProfile,omitempty"`
}

type DeviceProfile struct {
	Name                string               `json:"Name,omitempty"`
	MaxStreamingBitrate int                  `json:"MaxStreamingBitrate,omitempty"`
	DirectPlayProfiles  []DirectPlayProfile  `json:"DirectPlayProfiles,omitempty"`
	TranscodingProfiles []TranscodingProfile `json:"TranscodingProfiles,omitempty"`
	SubtitleProfiles    []SubtitleProfile    `json:"SubtitleProfiles,omitempty"`
}

type DirectPlayProfile struct {
	Type       string `json:"Type,omitempty"`       // commonly "Video"
	Container  string `json:"Container,omitempty"`  // e.g. "mp4,m4v"
	VideoCodec string `json:"VideoCodec,omitempty"` // e.g. "h264,hevc"
	AudioCodec string `json:"AudioCodec,omitempty"` // e.g. "aac,ac3"
}

type TranscodingProfile struct {
	Type                string `json:"Type,omitempty"`
	Container           string `json:"Container,omitempty"`
	Protocol            string `json:"Protocol,omitempty"` // "hls" or "http"
	VideoCodec          string `json:"VideoCodec,omitempty"`
	AudioCodec          string `json:"AudioCodec,omitempty"`
	Context             string `json:"Context,omitempty"` // "Streaming" or "Static"
	MaxAudioChannels    string `json:"MaxAudioChannels,omitempty"`
	BreakOnNonKeyFrames bool   `json:"BreakOnNonKeyFrames,omitempty"`
}

type SubtitleProfile struct {
	Format string `json:"Format"`
	Method string `json:"Method"` // "Encode", "Embed", "External", "Hls"
}

type PlaybackInfoResponse struct {
	MediaSources  []MediaSourceInfo `json:"MediaSources"`
	PlaySessionID *string           `json:"PlaySessionId,omitempty"`
	ErrorCode     *string           `json:"ErrorCode,omitempty"`
}

type MediaSourceInfo struct {
	ID        *string `json:"Id,omitempty"`
	Path      string  `json:"Path"`
	Protocol  string  `json:"Protocol"`            // "File", "Http", "Rtmp", "Rtsp", "Udp", "Rtp", "Ftp"
	Container *string `json:"Container,omitempty"` // "mp4" etc.

	// Runtime ticks: 10,000,000 ticks per second.
	RunTimeTicks *int64 `json:"RunTimeTicks,omitempty"`

	SupportsDirectPlay   bool `json:"SupportsDirectPlay"`
	SupportsDirectStream bool `json:"SupportsDirectStream"`
	SupportsTranscoding  bool `json:"SupportsTranscoding"`
	IsInfiniteStream     bool `json:"IsInfiniteStream"`

	TranscodingURL         *string `json:"TranscodingUrl,omitempty"`
	TranscodingContainer   *string `json:"TranscodingContainer,omitempty"`   // e.g. "ts"
	TranscodingSubProtocol *string `json:"TranscodingSubProtocol,omitempty"` // e.g. "hls"
}

// PlaybackReport is the body shared by the Playing, Progress and Stopped
// session endpoints.
type PlaybackReport struct {
	ItemID        string `json:"ItemId"`
	MediaSourceID string `json:"MediaSourceId,omitempty"`
	PlaySessionID string `json:"PlaySessionId"`
	PositionTicks int64  `json:"PositionTicks"`
	IsPaused      bool   `json:"IsPaused"`
	PlayMethod    string `json:"PlayMethod,omitempty"`
	CanSeek       bool   `json:"CanSeek"`
	EventName     string `json:"EventName,omitempty"`
	Failed        bool   `json:"Failed,omitempty"`
}
