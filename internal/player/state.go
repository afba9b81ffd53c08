// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package player

// State is the closed set of playback states exposed to the UI.
type State int

const (
	StateOpening State = iota
	StateBuffering
	StatePlaying
	StatePaused
	StateStopped
	StateEnded
	StateError
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateBuffering:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends the session.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateEnded || s == StateError
}

var transitions = map[State][]State{
	StateOpening:   {StateBuffering, StatePlaying, StatePaused, StateStopped, StateEnded, StateError},
	StateBuffering: {StatePlaying, StatePaused, StateStopped, StateEnded, StateError},
	StatePlaying:   {StateBuffering, StatePaused, StateStopped, StateEnded, StateError},
	StatePaused:    {StatePlaying, StateBuffering, StateStopped, StateEnded, StateError},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func fromRaw(raw RawState) (State, bool) {
	switch raw {
	case RawOpening:
		return StateOpening, true
	case RawBuffering:
		return StateBuffering, true
	case RawPlaying:
		return StatePlaying, true
	case RawPaused:
		return StatePaused, true
	case RawStopped:
		return StateStopped, true
	case RawEnded:
		return StateEnded, true
	case RawError:
		return StateError, true
	default:
		return 0, false
	}
}
