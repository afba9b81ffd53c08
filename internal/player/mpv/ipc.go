// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/ManuGH/jellyplay/internal/player"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by commands after Close.
var ErrClosed = errors.New("mpv: player closed")

const ticksPerSecond = 10_000_000

// observed properties, by observe id
var observed = []string{"time-pos", "duration", "pause", "paused-for-cache"}

type message struct {
	Event     string          `json:"event"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
}

// Player implements player.Player on an mpv IPC connection.
type Player struct {
	conn   net.Conn
	logger zerolog.Logger

	writeMu   sync.Mutex
	requestID int64

	dispatchMu sync.Mutex
	listeners  map[int]player.Listener
	nextID     int

	// reader-goroutine state
	loaded    bool
	paused    bool
	buffering bool
	last      player.RawState
	terminal  bool

	shutdown  func() error
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

func newPlayer(conn net.Conn, logger zerolog.Logger) *Player {
	p := &Player{
		conn:      conn,
		logger:    logger,
		listeners: make(map[int]player.Listener),
		paused:    true,
		last:      player.RawOpening,
		done:      make(chan struct{}),
	}
	go p.readLoop()
	return p
}

func (p *Player) observe() error {
	for i, name := range observed {
		if err := p.command("observe_property", i+1, name); err != nil {
			return err
		}
	}
	return nil
}

func (p *Player) Play() error  { return p.command("set_property", "pause", false) }
func (p *Player) Pause() error { return p.command("set_property", "pause", true) }
func (p *Player) Stop() error  { return p.command("stop") }

func (p *Player) Seek(position time.Duration) error {
	return p.command("seek", position.Seconds(), "absolute")
}

// Subscribe registers l. Once the returned function returns, l is not called again.
func (p *Player) Subscribe(l player.Listener) func() {
	p.dispatchMu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = l
	p.dispatchMu.Unlock()

	return func() {
		p.dispatchMu.Lock()
		delete(p.listeners, id)
		p.dispatchMu.Unlock()
	}
}

// Close quits mpv, reaps its process group and waits for the reader.
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		_ = p.command("quit")
		_ = p.conn.Close()
		if p.shutdown != nil {
			p.closeErr = p.shutdown()
		}
		<-p.done
	})
	return p.closeErr
}

func (p *Player) command(args ...any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	p.requestID++
	raw, err := json.Marshal(map[string]any{"command": args, "request_id": p.requestID})
	if err != nil {
		return fmt.Errorf("encode mpv command: %w", err)
	}
	_ = p.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if _, err := p.conn.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("mpv %v: %w", args[0], err)
	}
	return nil
}

func (p *Player) readLoop() {
	defer close(p.done)

	scanner := bufio.NewScanner(p.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			p.logger.Debug().Err(err).Msg("skipping undecodable ipc line")
			continue
		}
		p.handle(msg)
	}
	// Socket gone: mpv quit or crashed.
	p.finish(player.RawStopped, nil)
}

func (p *Player) handle(msg message) {
	switch msg.Event {
	case "":
		if msg.Error != "" && msg.Error != "success" {
			p.logger.Debug().
				Int64("request_id", msg.RequestID).
				Str("error", msg.Error).
				Msg("mpv rejected command")
		}
	case "property-change":
		p.property(msg.Name, msg.Data)
	case "playback-restart":
		p.loaded = true
		p.emitState()
	case "end-file":
		switch msg.Reason {
		case "eof":
			p.finish(player.RawEnded, nil)
		case "error":
			p.finish(player.RawError, fmt.Errorf("mpv: %s", msg.FileError))
		default:
			p.finish(player.RawStopped, nil)
		}
	}
}

func (p *Player) property(name string, data json.RawMessage) {
	switch name {
	case "time-pos", "duration":
		var seconds *float64
		if err := json.Unmarshal(data, &seconds); err != nil || seconds == nil {
			return
		}
		ticks := int64(*seconds * ticksPerSecond)
		ev := player.Event{Kind: player.EventTime, PositionTicks: ticks}
		if name == "duration" {
			ev = player.Event{Kind: player.EventDuration, DurationTicks: ticks}
		}
		p.dispatch(ev)
	case "pause", "paused-for-cache":
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return
		}
		if name == "pause" {
			p.paused = v
		} else {
			p.buffering = v
		}
		p.emitState()
	}
}

func (p *Player) current() player.RawState {
	switch {
	case !p.loaded:
		return player.RawOpening
	case p.paused:
		return player.RawPaused
	case p.buffering:
		return player.RawBuffering
	default:
		return player.RawPlaying
	}
}

func (p *Player) emitState() {
	if p.terminal {
		return
	}
	next := p.current()
	if next == p.last {
		return
	}
	p.last = next
	p.dispatch(player.Event{Kind: player.EventState, State: next})
}

func (p *Player) finish(state player.RawState, err error) {
	if p.terminal {
		return
	}
	p.terminal = true
	p.last = state
	p.logger.Debug().Str(xglog.FieldEvent, "mpv.finished").Int("state", int(state)).Msg("engine session ended")
	p.dispatch(player.Event{Kind: player.EventState, State: state, Err: err})
}

func (p *Player) dispatch(ev player.Event) {
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()
	for _, l := range p.listeners {
		l(ev)
	}
}
