// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package player

import (
	"context"
	"time"
)

// EventKind distinguishes player callbacks.
type EventKind int

const (
	EventTime EventKind = iota + 1
	EventState
	// EventDuration carries only DurationTicks; position is left alone.
	EventDuration
)

// RawState is what the media engine says it is doing.
type RawState int

const (
	RawUnknown RawState = iota
	RawOpening
	RawBuffering
	RawPlaying
	RawPaused
	RawStopped
	RawEnded
	RawError
)

// Event is one callback from the media engine, in Jellyfin ticks. For
// EventTime PositionTicks is the playhead and zero is the start of the item.
// For EventState a zero PositionTicks and, everywhere, a zero DurationTicks
// mean "not reported".
type Event struct {
	Kind          EventKind
	State         RawState
	PositionTicks int64
	DurationTicks int64
	Err           error
}

// Listener receives player events. It may be called from any goroutine.
type Listener func(Event)

// Player is an opened media engine handle.
type Player interface {
	Play() error
	Pause() error
	Seek(position time.Duration) error
	Stop() error
	// Subscribe registers l and returns a function that removes it. After
	// the returned function returns, l is not called again.
	Subscribe(l Listener) (unsubscribe func())
	Close() error
}

// Opener loads a stream URL into a new Player.
type Opener interface {
	Open(ctx context.Context, streamURL string) (Player, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, streamURL string) (Player, error)

func (f OpenerFunc) Open(ctx context.Context, streamURL string) (Player, error) {
	return f(ctx, streamURL)
}
