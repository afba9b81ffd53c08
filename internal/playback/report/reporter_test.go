// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package report

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ManuGH/jellyplay/internal/jellyfin"
	"github.com/ManuGH/jellyplay/internal/jellyfin/jellyfintest"
	"github.com/ManuGH/jellyplay/internal/platform/httpx"
	"github.com/ManuGH/jellyplay/internal/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// idle keep-alive connections of the shared transport outlive single tests
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"))
}

func newReporter(mock *jellyfintest.MockServer, opts ...Option) *Reporter {
	return New(jellyfin.New(mock.Session(), httpx.NewClient(2*time.Second)), opts...)
}

func startRun(t *testing.T, r *Reporter) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func kinds(reports []jellyfintest.Report) []string {
	out := make([]string, 0, len(reports))
	for _, rep := range reports {
		out = append(out, rep.Kind+":"+rep.Body.PlaySessionID)
	}
	return out
}

func TestReporter_OrderAcrossSessions(t *testing.T) {
	mock := jellyfintest.NewMockServer()
	defer mock.Close()

	r := newReporter(mock)
	startRun(t, r)

	a := Session{ItemID: "1", SessionID: "A", MediaSourceID: "src", PlayMethod: "DirectStream", CanSeek: true}
	b := Session{ItemID: "2", SessionID: "B", PlayMethod: "Transcode"}

	r.ReportStart(a)
	r.ReportProgress(a, 100, true)
	r.ReportProgress(a, 200, false)
	r.ReportUnpause(a, 200)
	r.ReportStop(a, 300, ReasonStopped)
	r.ReportStart(b)

	require.Eventually(t, func() bool { return len(mock.Reports()) == 6 }, 2*time.Second, 10*time.Millisecond)

	reports := mock.Reports()
	assert.Equal(t, []string{
		"start:A", "progress:A", "progress:A", "progress:A", "stop:A", "start:B",
	}, kinds(reports))

	assert.Equal(t, "src", reports[0].Body.MediaSourceID)
	assert.Equal(t, "DirectStream", reports[0].Body.PlayMethod)
	assert.True(t, reports[0].Body.CanSeek)

	assert.Equal(t, EventTimeUpdate, reports[1].Body.EventName)
	assert.False(t, reports[1].Body.IsPaused)
	assert.Equal(t, int64(100), reports[1].Body.PositionTicks)

	assert.Equal(t, EventPause, reports[2].Body.EventName)
	assert.True(t, reports[2].Body.IsPaused)

	assert.Equal(t, EventUnpause, reports[3].Body.EventName)
	assert.False(t, reports[3].Body.IsPaused)

	assert.Equal(t, int64(300), reports[4].Body.PositionTicks)
	assert.False(t, reports[4].Body.Failed)
	assert.Contains(t, reports[4].Auth, jellyfintest.Token)
}

func TestReporter_PlaybackErrorMarksFailed(t *testing.T) {
	mock := jellyfintest.NewMockServer()
	defer mock.Close()

	r := newReporter(mock)
	startRun(t, r)
	r.ReportStop(Session{ItemID: "1", SessionID: "A"}, 5, ReasonPlaybackError)

	require.Eventually(t, func() bool { return len(mock.Reports()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, mock.Reports()[0].Body.Failed)
}

func TestReporter_FailuresOpenBreaker(t *testing.T) {
	mock := jellyfintest.NewMockServer()
	defer mock.Close()
	mock.FailReports(http.StatusServiceUnavailable)

	cb := resilience.NewCircuitBreaker("test_reports", 2, time.Hour)
	r := newReporter(mock, WithBreaker(cb))

	s := Session{ItemID: "1", SessionID: "A"}
	for i := 0; i < 5; i++ {
		r.ReportProgress(s, int64(i), true)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))

	assert.Len(t, mock.Reports(), 2, "breaker stops traffic after two failures")
	assert.Equal(t, resilience.StateOpen, cb.State())
}

func TestReporter_DropsWhenQueueFull(t *testing.T) {
	mock := jellyfintest.NewMockServer()
	defer mock.Close()

	r := newReporter(mock, WithQueueSize(2))
	s := Session{ItemID: "1", SessionID: "A"}
	r.ReportStart(s)
	r.ReportProgress(s, 1, true)
	r.ReportProgress(s, 2, true) // dropped

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))

	assert.Equal(t, []string{"start:A", "progress:A"}, kinds(mock.Reports()))
}

func TestReporter_DroppedStartSuppressesSession(t *testing.T) {
	mock := jellyfintest.NewMockServer()
	defer mock.Close()

	r := newReporter(mock, WithQueueSize(1))
	a := Session{ItemID: "1", SessionID: "A"}
	b := Session{ItemID: "2", SessionID: "B"}
	r.ReportStart(a)
	r.ReportStart(b) // queue full: B never starts

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))

	// room again, but B's progress must not reach the server without its start
	r.ReportProgress(b, 10, true)
	r.ReportStop(b, 20, ReasonStopped)
	// A was started normally and keeps reporting
	r.ReportProgress(a, 30, true)

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))

	assert.Equal(t, []string{"start:A", "progress:A"}, kinds(mock.Reports()))
	r.mu.Lock()
	assert.Empty(t, r.orphaned)
	r.mu.Unlock()
}

func TestReporter_UnreachableServerIsSilent(t *testing.T) {
	mock := jellyfintest.NewMockServer()
	session := mock.Session()
	mock.Close()

	r := New(jellyfin.New(session, httpx.NewClient(time.Second)))
	r.ReportStart(Session{ItemID: "1", SessionID: "A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { _ = r.Run(ctx) })
}

func TestReporter_RateLimitPacesSends(t *testing.T) {
	mock := jellyfintest.NewMockServer()
	defer mock.Close()

	r := newReporter(mock, WithRateLimit(5, 1))
	s := Session{ItemID: "1", SessionID: "A"}

	start := time.Now()
	startRun(t, r)
	r.ReportStart(s)
	r.ReportProgress(s, 10, true)
	r.ReportProgress(s, 20, true)

	require.Eventually(t, func() bool { return len(mock.Reports()) == 3 }, 3*time.Second, 10*time.Millisecond)
	// one token up front, then one every 200ms
	assert.GreaterOrEqual(t, time.Since(start), 350*time.Millisecond)
	assert.Equal(t, []string{"start:A", "progress:A", "progress:A"}, kinds(mock.Reports()))
}
