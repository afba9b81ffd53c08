// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package player owns the media engine for one playback session at a time
// and turns its callbacks into the PlayerState machine.
//
// The Controller is the only writer of playback state. Engine callbacks and
// progress ticks are tagged with the generation of the session that created
// them; anything arriving for an older generation is dropped, so a replaced
// session can never report after its successor. Engine methods are never
// called while the controller lock is held.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/ManuGH/jellyplay/internal/metrics"
	"github.com/ManuGH/jellyplay/internal/playback"
	"github.com/ManuGH/jellyplay/internal/playback/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNotConfigured is returned by controls when no session is active.
	ErrNotConfigured = errors.New("player: no active playback session")
	// ErrPlayback wraps errors reported by the media engine.
	ErrPlayback = errors.New("player: playback failed")
	// ErrSuperseded is returned by Configure when a newer Configure or Close
	// replaced the session while the engine was still opening.
	ErrSuperseded = errors.New("player: session superseded")
)

// DefaultProgressInterval is how often progress is reported while playing.
const DefaultProgressInterval = 10 * time.Second

// Reporter receives session reports. Calls must not block.
type Reporter interface {
	ReportStart(s report.Session)
	ReportProgress(s report.Session, positionTicks int64, isPlaying bool)
	ReportUnpause(s report.Session, positionTicks int64)
	ReportStop(s report.Session, positionTicks int64, reason string)
}

// Ticker is the subset of time.Ticker the controller needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

// Snapshot is the UI-visible view of the controller.
type Snapshot struct {
	State                State
	ItemID               string
	SessionID            string
	PlayMethod           playback.PlayMethod
	CurrentTimeSeconds   float64
	TotalDurationSeconds float64
	Finished             bool
	Err                  error
}

type session struct {
	gen    uint64
	target playback.Target
	report report.Session

	player      Player
	unsubscribe func()

	started      bool
	progressStop chan struct{}
	progressSeq  uint64
}

// Controller drives one Player per configured target.
type Controller struct {
	opener    Opener
	reporter  Reporter
	newTicker func(time.Duration) Ticker
	logger    zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	sess     *session
	interval time.Duration
	state    State
	position int64
	duration int64
	finished bool
	err      error

	observers map[*observer]struct{}
	wg        sync.WaitGroup
}

// Option customizes a Controller.
type Option func(*Controller)

// WithProgressInterval sets the progress report interval.
func WithProgressInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithTicker replaces the interval ticker (tests).
func WithTicker(fn func(time.Duration) Ticker) Option {
	return func(c *Controller) { c.newTicker = fn }
}

// NewController creates an idle controller. Its state is Stopped until the
// first Configure.
func NewController(opener Opener, reporter Reporter, opts ...Option) *Controller {
	c := &Controller{
		opener:    opener,
		reporter:  reporter,
		newTicker: newTimeTicker,
		logger:    xglog.WithComponent("player"),
		interval:  DefaultProgressInterval,
		state:     StateStopped,
		observers: make(map[*observer]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetProgressInterval changes the interval for intervals started from now on.
func (c *Controller) SetProgressInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()
}

// Configure tears down the current session, if any, and starts playing
// target. The previous session's timer, observers and engine are released
// before the new engine is opened. An engine that fails to open moves the
// new session to Error.
func (c *Controller) Configure(ctx context.Context, target playback.Target) error {
	if target.IsZero() {
		return fmt.Errorf("configure: %w", playback.ErrNoPlayableSource)
	}
	sessionID := target.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
		target.SessionID = sessionID
	}

	c.mu.Lock()
	old := c.detachLocked(report.ReasonStopped)
	c.gen++
	sess := &session{
		gen:    c.gen,
		target: target,
		report: report.Session{
			ItemID:        target.ItemID,
			SessionID:     sessionID,
			MediaSourceID: target.MediaSourceID,
			PlayMethod:    string(target.PlayMethod),
			CanSeek:       true,
		},
	}
	c.sess = sess
	c.state = StateOpening
	c.position = 0
	c.duration = 0
	c.finished = false
	c.err = nil
	c.publishLocked()
	c.mu.Unlock()

	c.release(old)

	logger := c.sessionLogger(sess)
	logger.Info().Str(xglog.FieldEvent, "player.configure").
		Str(xglog.FieldTier, target.Tier.String()).
		Msg("opening stream")

	p, err := c.opener.Open(ctx, target.String())
	if err != nil {
		c.fail(sess.gen, err)
		return fmt.Errorf("open stream: %w", err)
	}

	c.mu.Lock()
	if c.gen != sess.gen {
		c.mu.Unlock()
		_ = p.Close()
		return ErrSuperseded
	}
	sess.player = p
	c.mu.Unlock()

	gen := sess.gen
	unsubscribe := p.Subscribe(func(ev Event) { c.handleEvent(gen, ev) })

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		// The superseding call found no subscription to remove yet.
		unsubscribe()
		_ = p.Stop()
		_ = p.Close()
		return ErrSuperseded
	}
	sess.unsubscribe = unsubscribe
	c.mu.Unlock()

	if err := p.Play(); err != nil {
		c.fail(gen, err)
		return fmt.Errorf("start playback: %w", err)
	}
	return nil
}

// TogglePlayPause pauses a playing session and resumes a paused one.
func (c *Controller) TogglePlayPause() error {
	p, state := c.activePlayer()
	if p == nil || state.Terminal() {
		return ErrNotConfigured
	}
	if state == StatePlaying || state == StateBuffering {
		return p.Pause()
	}
	return p.Play()
}

// Seek moves to seconds, clamped to [0, duration] once the duration is known.
func (c *Controller) Seek(seconds float64) error {
	c.mu.Lock()
	duration := c.duration
	c.mu.Unlock()
	p, state := c.activePlayer()
	if p == nil || state.Terminal() {
		return ErrNotConfigured
	}
	if seconds < 0 {
		seconds = 0
	}
	if limit := playback.TicksToSeconds(duration); duration > 0 && seconds > limit {
		seconds = limit
	}
	return p.Seek(time.Duration(seconds * float64(time.Second)))
}

// activePlayer returns the engine of the current session, or nil while none
// is attached. Configure sets the engine under c.mu, so it is read there too.
func (c *Controller) activePlayer() (Player, State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return nil, c.state
	}
	return c.sess.player, c.state
}

// Close stops the current session and waits for its timers to exit.
func (c *Controller) Close() error {
	c.mu.Lock()
	old := c.detachLocked(report.ReasonStopped)
	c.gen++
	c.publishLocked()
	c.mu.Unlock()

	c.release(old)
	c.wg.Wait()
	return nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// detachLocked ends the current session: the interval stops, a session that
// is not yet terminal moves to Stopped and reports it. The returned session
// still holds the engine, which the caller releases after unlocking.
func (c *Controller) detachLocked(reason string) *session {
	sess := c.sess
	if sess == nil {
		return nil
	}
	c.stopProgressLocked(sess)
	if !c.state.Terminal() {
		from := c.state
		c.state = StateStopped
		metrics.RecordPlayerTransition(from.String(), StateStopped.String())
		metrics.RecordSessionEnd(StateStopped.String())
		c.reporter.ReportStop(sess.report, c.position, reason)
		logger := c.sessionLogger(sess)
		logger.Info().
			Str(xglog.FieldEvent, "player.transition").
			Str(xglog.FieldOldState, from.String()).
			Str(xglog.FieldNewState, StateStopped.String()).
			Msg("session torn down")
	}
	c.sess = nil
	return sess
}

// release unsubscribes and shuts down the engine of a detached session.
func (c *Controller) release(sess *session) {
	if sess == nil {
		return
	}
	if sess.unsubscribe != nil {
		sess.unsubscribe()
	}
	if sess.player != nil {
		logger := c.sessionLogger(sess)
		if err := sess.player.Stop(); err != nil {
			logger.Debug().Err(err).Msg("engine stop failed")
		}
		if err := sess.player.Close(); err != nil {
			logger.Debug().Err(err).Msg("engine close failed")
		}
	}
}

func (c *Controller) fail(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil || c.sess.gen != gen {
		return
	}
	c.transitionLocked(StateError, err)
}

func (c *Controller) handleEvent(gen uint64, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess := c.sess
	if sess == nil || sess.gen != gen {
		return
	}

	changed := false
	if ev.DurationTicks > 0 && c.duration == 0 {
		c.duration = ev.DurationTicks
		changed = true
	}

	switch ev.Kind {
	case EventTime:
		if ev.PositionTicks >= 0 && ev.PositionTicks != c.position {
			c.position = ev.PositionTicks
			changed = true
		}
	case EventState:
		if ev.PositionTicks > 0 {
			c.position = ev.PositionTicks
		}
		if next, ok := fromRaw(ev.State); ok && c.transitionLocked(next, ev.Err) {
			return
		}
	}
	if changed {
		c.publishLocked()
	}
}

// transitionLocked applies one state change and its side effects. It
// reports whether the state changed (and was published).
func (c *Controller) transitionLocked(next State, cause error) bool {
	from := c.state
	sess := c.sess
	if from == next || !canTransition(from, next) {
		if from != next {
			logger := c.sessionLogger(sess)
			logger.Debug().
				Str(xglog.FieldOldState, from.String()).
				Str(xglog.FieldNewState, next.String()).
				Msg("ignoring invalid transition")
		}
		return false
	}

	if from == StatePlaying {
		c.stopProgressLocked(sess)
	}
	c.state = next
	metrics.RecordPlayerTransition(from.String(), next.String())

	switch next {
	case StatePlaying:
		switch {
		case !sess.started:
			sess.started = true
			c.reporter.ReportStart(sess.report)
		case from == StatePaused:
			c.reporter.ReportUnpause(sess.report, c.position)
		}
		c.startProgressLocked(sess)
	case StatePaused:
		if sess.started {
			c.reporter.ReportProgress(sess.report, c.position, false)
		}
	case StateStopped:
		c.reporter.ReportStop(sess.report, c.position, report.ReasonStopped)
	case StateEnded:
		c.finished = true
		c.reporter.ReportStop(sess.report, c.position, report.ReasonEnded)
	case StateError:
		if cause == nil {
			cause = errors.New("engine reported an error")
		}
		c.err = fmt.Errorf("%w: %w", ErrPlayback, cause)
		c.reporter.ReportStop(sess.report, c.position, report.ReasonPlaybackError)
	}
	if next.Terminal() {
		metrics.RecordSessionEnd(next.String())
	}

	logger := c.sessionLogger(sess)
	var event *zerolog.Event
	if next == StateError {
		event = logger.Error().Err(c.err)
	} else {
		event = logger.Info()
	}
	event.Str(xglog.FieldEvent, "player.transition").
		Str(xglog.FieldOldState, from.String()).
		Str(xglog.FieldNewState, next.String()).
		Int64(xglog.FieldPosition, c.position).
		Msg("state changed")

	c.publishLocked()
	return true
}

func (c *Controller) startProgressLocked(sess *session) {
	c.stopProgressLocked(sess)
	stop := make(chan struct{})
	sess.progressStop = stop
	sess.progressSeq++
	seq, gen := sess.progressSeq, sess.gen
	t := c.newTicker(c.interval)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C():
				c.progressTick(gen, seq)
			}
		}
	}()
}

func (c *Controller) stopProgressLocked(sess *session) {
	if sess.progressStop != nil {
		close(sess.progressStop)
		sess.progressStop = nil
	}
}

func (c *Controller) progressTick(gen, seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess := c.sess
	if sess == nil || sess.gen != gen || sess.progressSeq != seq || sess.progressStop == nil || c.state != StatePlaying {
		return
	}
	c.reporter.ReportProgress(sess.report, c.position, true)
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:                c.state,
		CurrentTimeSeconds:   playback.TicksToSeconds(c.position),
		TotalDurationSeconds: playback.TicksToSeconds(c.duration),
		Finished:             c.finished,
		Err:                  c.err,
	}
	if c.sess != nil {
		s.ItemID = c.sess.target.ItemID
		s.SessionID = c.sess.report.SessionID
		s.PlayMethod = c.sess.target.PlayMethod
	}
	return s
}

func (c *Controller) sessionLogger(sess *session) zerolog.Logger {
	if sess == nil {
		return c.logger
	}
	return c.logger.With().
		Str(xglog.FieldItemID, sess.target.ItemID).
		Str(xglog.FieldSessionID, sess.report.SessionID).
		Logger()
}
