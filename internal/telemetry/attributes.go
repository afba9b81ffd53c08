// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by playback spans.
const (
	ItemIDKey        = "jellyfin.item_id"
	MediaSourceIDKey = "jellyfin.media_source_id"
	SessionIDKey     = "jellyfin.play_session_id"
	SourceCountKey   = "playback.source_count"
	TierKey          = "playback.tier"
	PlayMethodKey    = "playback.play_method"
	ErrorTypeKey     = "error.type"
)

// ResolveAttributes describes the outcome of one stream resolution.
func ResolveAttributes(itemID, tier, playMethod string, sourceCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ItemIDKey, itemID),
		attribute.String(TierKey, tier),
		attribute.String(PlayMethodKey, playMethod),
		attribute.Int(SourceCountKey, sourceCount),
	}
}

// ErrorAttributes classifies a failed span.
func ErrorAttributes(errType string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(ErrorTypeKey, errType)}
}
