// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package report sends best-effort playback session reports to Jellyfin.
//
// Reports are queued and sent by a single worker, so for one session the
// server always sees start before progress before stop, and a superseded
// session's stop before its successor's start. Failures are logged and
// counted, never returned: reporting must not influence playback.
package report

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/jellyplay/internal/jellyfin"
	xglog "github.com/ManuGH/jellyplay/internal/log"
	"github.com/ManuGH/jellyplay/internal/metrics"
	"github.com/ManuGH/jellyplay/internal/resilience"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Kind is the report endpoint.
type Kind string

const (
	KindStart    Kind = "start"
	KindProgress Kind = "progress"
	KindStop     Kind = "stop"
)

func (k Kind) endpoint() string {
	switch k {
	case KindStart:
		return "/Sessions/Playing"
	case KindProgress:
		return "/Sessions/Playing/Progress"
	default:
		return "/Sessions/Playing/Stopped"
	}
}

// Jellyfin progress event names.
const (
	EventTimeUpdate = "TimeUpdate"
	EventPause      = "Pause"
	EventUnpause    = "Unpause"
)

// Stop reasons.
const (
	ReasonStopped       = "Stopped"
	ReasonEnded         = "Ended"
	ReasonPlaybackError = "PlaybackError"
)

// Session identifies what a report is about.
type Session struct {
	ItemID        string
	SessionID     string
	MediaSourceID string
	PlayMethod    string
	CanSeek       bool
}

type job struct {
	kind   Kind
	reason string
	body   jellyfin.PlaybackReport
}

const (
	defaultQueueSize = 64
	defaultTimeout   = 5 * time.Second
	flushTimeout     = 2 * time.Second

	// Seeks and pause toggles can burst; the server sees at most this many
	// reports per second once the burst is spent.
	defaultRate  rate.Limit = 10
	defaultBurst            = 10
)

// Reporter queues session reports and sends them from Run.
type Reporter struct {
	api     *jellyfin.Client
	queue   chan job
	breaker *resilience.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
	logger  zerolog.Logger

	// orphaned holds sessions whose start was dropped. Their later reports
	// are dropped too, until their stop clears the entry.
	mu       sync.Mutex
	orphaned map[string]struct{}
}

// Option customizes a Reporter.
type Option func(*Reporter)

// WithQueueSize bounds the number of unsent reports; further reports are dropped.
func WithQueueSize(n int) Option {
	return func(r *Reporter) {
		if n > 0 {
			r.queue = make(chan job, n)
		}
	}
}

// WithRequestTimeout bounds each report call.
func WithRequestTimeout(d time.Duration) Option {
	return func(r *Reporter) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(r *Reporter) { r.breaker = cb }
}

// WithRateLimit paces sends to perSecond with the given burst. The final flush
// on shutdown is not paced.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(r *Reporter) {
		if perSecond > 0 && burst > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// New creates a reporter. Nothing is sent until Run is started.
func New(api *jellyfin.Client, opts ...Option) *Reporter {
	r := &Reporter{
		api:      api,
		queue:    make(chan job, defaultQueueSize),
		limiter:  rate.NewLimiter(defaultRate, defaultBurst),
		orphaned: make(map[string]struct{}),
		timeout:  defaultTimeout,
		logger:   xglog.WithComponent("report"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = resilience.NewCircuitBreaker("session_reports", 5, 30*time.Second,
			resilience.WithIgnoredErrors(func(err error) bool { return errors.Is(err, context.Canceled) }))
	}
	return r
}

// ReportStart announces a new playback session.
func (r *Reporter) ReportStart(s Session) {
	r.enqueue(job{kind: KindStart, body: s.body(0, false)})
}

// ReportProgress sends the current position. isPlaying=false marks a pause.
func (r *Reporter) ReportProgress(s Session, positionTicks int64, isPlaying bool) {
	body := s.body(positionTicks, !isPlaying)
	body.EventName = EventTimeUpdate
	if !isPlaying {
		body.EventName = EventPause
	}
	r.enqueue(job{kind: KindProgress, body: body})
}

// ReportUnpause sends the progress report for resuming from pause.
func (r *Reporter) ReportUnpause(s Session, positionTicks int64) {
	body := s.body(positionTicks, false)
	body.EventName = EventUnpause
	r.enqueue(job{kind: KindProgress, body: body})
}

// ReportStop ends the session. ReasonPlaybackError marks it failed.
func (r *Reporter) ReportStop(s Session, positionTicks int64, reason string) {
	body := s.body(positionTicks, false)
	body.Failed = reason == ReasonPlaybackError
	r.enqueue(job{kind: KindStop, reason: reason, body: body})
}

func (s Session) body(positionTicks int64, paused bool) jellyfin.PlaybackReport {
	return jellyfin.PlaybackReport{
		ItemID:        s.ItemID,
		MediaSourceID: s.MediaSourceID,
		PlaySessionID: s.SessionID,
		PositionTicks: positionTicks,
		IsPaused:      paused,
		PlayMethod:    s.PlayMethod,
		CanSeek:       s.CanSeek,
	}
}

func (r *Reporter) enqueue(j job) {
	sid := j.body.PlaySessionID

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orphaned[sid]; ok {
		if j.kind == KindStop {
			delete(r.orphaned, sid)
		}
		metrics.RecordReport(string(j.kind), "dropped")
		r.logger.Debug().
			Str(xglog.FieldEvent, "report.dropped").
			Str("kind", string(j.kind)).
			Str(xglog.FieldSessionID, sid).
			Msg("session start was never queued, dropping report")
		return
	}

	select {
	case r.queue <- j:
		metrics.SetReportQueueDepth(len(r.queue))
	default:
		if j.kind == KindStart {
			r.orphaned[sid] = struct{}{}
		}
		metrics.RecordReport(string(j.kind), "dropped")
		r.logger.Warn().
			Str(xglog.FieldEvent, "report.dropped").
			Str("kind", string(j.kind)).
			Str(xglog.FieldSessionID, sid).
			Msg("report queue full, dropping report")
	}
}

// Run sends queued reports in order until ctx is done, then makes one
// bounded attempt to flush what is left. A report already being sent when
// ctx ends still completes within the request timeout. It always returns nil.
func (r *Reporter) Run(ctx context.Context) error {
	sendCtx := context.WithoutCancel(ctx)
	for {
		select {
		case j := <-r.queue:
			metrics.SetReportQueueDepth(len(r.queue))
			// Wait only fails once ctx is done; the job is still sent.
			_ = r.limiter.Wait(ctx)
			r.send(sendCtx, j)
		case <-ctx.Done():
			r.flush(sendCtx)
			return nil
		}
	}
}

func (r *Reporter) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	for {
		select {
		case j := <-r.queue:
			r.send(ctx, j)
		default:
			metrics.SetReportQueueDepth(0)
			return
		}
	}
}

func (r *Reporter) send(ctx context.Context, j job) {
	kind := string(j.kind)
	logger := r.logger.With().
		Str("kind", kind).
		Str(xglog.FieldItemID, j.body.ItemID).
		Str(xglog.FieldSessionID, j.body.PlaySessionID).
		Int64(xglog.FieldPosition, j.body.PositionTicks).
		Logger()

	if ctx.Err() != nil {
		metrics.RecordReport(kind, "dropped")
		logger.Debug().Str(xglog.FieldEvent, "report.dropped").Msg("flush deadline passed")
		return
	}

	err := r.breaker.Execute(func() error {
		reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.api.PostJSON(reqCtx, j.kind.endpoint(), nil, j.body, nil)
	})

	switch {
	case err == nil:
		metrics.RecordReport(kind, "sent")
		e := logger.Debug().Str(xglog.FieldEvent, "report.sent")
		if j.reason != "" {
			e = e.Str("reason", j.reason)
		}
		e.Msg("session report sent")
	case errors.Is(err, resilience.ErrCircuitOpen):
		metrics.RecordReport(kind, "breaker_open")
		logger.Debug().Str(xglog.FieldEvent, "report.skipped").Msg("server unhealthy, report skipped")
	default:
		metrics.RecordReport(kind, "failed")
		logger.Warn().Err(err).Str(xglog.FieldEvent, "report.failed").Msg("session report failed")
	}
}
