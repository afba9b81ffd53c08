// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldItemID    = "item_id"
	FieldSourceID  = "media_source_id"
	FieldDeviceID  = "device_id"

	FieldEvent     = "event"
	FieldComponent = "component"

	// Playback fields
	FieldTier       = "tier"
	FieldPlayMethod = "play_method"
	FieldProtocol   = "protocol"
	FieldContainer  = "container"
	FieldPosition   = "position_ticks"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldURL     = "url"
	FieldBaseURL = "base_url"
	FieldPath    = "path"
	FieldStatus  = "status"
)
