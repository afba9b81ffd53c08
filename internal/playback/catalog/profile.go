// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package catalog

import "github.com/ManuGH/jellyplay/internal/jellyfin"

// DefaultMaxStreamingBitrate caps negotiation when no explicit limit is configured.
const DefaultMaxStreamingBitrate = 120_000_000

// DefaultDeviceProfile is the static capability profile sent with every
// negotiation. It is configuration, not computed from the player.
func DefaultDeviceProfile() jellyfin.DeviceProfile {
	return jellyfin.DeviceProfile{
		Name:                "jellyplay",
		MaxStreamingBitrate: DefaultMaxStreamingBitrate,
		DirectPlayProfiles: []jellyfin.DirectPlayProfile{
			{Type: "Video", Container: "mp4,m4v,mov", VideoCodec: "h264,hevc", AudioCodec: "aac,ac3,eac3,mp3"},
			{Type: "Audio", Container: "mp3,aac,m4a,flac"},
		},
		TranscodingProfiles: []jellyfin.TranscodingProfile{
			{
				Type:                "Video",
				Container:           "ts",
				Protocol:            "hls",
				VideoCodec:          "h264",
				AudioCodec:          "aac",
				Context:             "Streaming",
				MaxAudioChannels:    "2",
				BreakOnNonKeyFrames: true,
			},
			{Type: "Audio", Container: "aac", Protocol: "http", AudioCodec: "aac", Context: "Streaming"},
		},
		SubtitleProfiles: []jellyfin.SubtitleProfile{
			{Format: "vtt", Method: "Hls"},
			{Format: "srt", Method: "External"},
			{Format: "ass", Method: "Encode"},
			{Format: "pgssub", Method: "Encode"},
		},
	}
}
