// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package playback

import "strings"

// nativeContainers play without server-side repackaging on every player we
// target.
var nativeContainers = map[string]bool{
	"mp4": true,
	"mov": true,
	"m4v": true,
}

// SelectBestSource picks one source under a fixed preference order:
//
//  1. HLS offered as a direct stream.
//  2. HTTP(S) direct stream of a native container with a usable path.
//  3. HTTP(S) direct play of a native container with a usable path.
//
// Within a tier the first source in server order wins. ok is false when no
// tier matches; callers then fall back to BuildManualHLSURL.
func SelectBestSource(sources []MediaSource) (src MediaSource, tier Tier, ok bool) {
	for _, s := range sources {
		if s.Protocol == ProtocolHLS && s.SupportsDirectStream {
			return s, TierHLSDirectStream, true
		}
	}
	for _, s := range sources {
		if isNativeHTTP(s) && s.SupportsDirectStream {
			return s, TierHTTPDirectStream, true
		}
	}
	for _, s := range sources {
		if isNativeHTTP(s) && s.SupportsDirectPlay {
			return s, TierHTTPDirectPlay, true
		}
	}
	return MediaSource{}, TierNone, false
}

func isNativeHTTP(s MediaSource) bool {
	if s.Protocol != ProtocolHTTP && s.Protocol != ProtocolHTTPS {
		return false
	}
	if !nativeContainers[strings.ToLower(s.Container)] {
		return false
	}
	return strings.HasPrefix(s.Path, "/") || strings.HasPrefix(s.Path, "http")
}
