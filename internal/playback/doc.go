// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package playback turns a Jellyfin item id into a player-ready stream URL.
//
// Resolution is three-tiered: negotiate media sources with the server, pick
// the best directly playable one (SelectBestSource), build its URL
// (BuildDirectURL), and when either step comes up empty fall back to a forced
// transcode over HLS (BuildManualHLSURL). Only when the server address or
// the access token is unknown does resolution fail with ErrNoPlayableSource.
package playback
