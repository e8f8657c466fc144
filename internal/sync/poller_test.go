package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingFetch struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (f *countingFetch) fetch(ctx context.Context) error {
	f.calls.Add(1)
	if f.fail.Load() {
		return errors.New("upstream unavailable")
	}
	return nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func startPoller(t *testing.T, p *Poller) (cancel context.CancelFunc, done chan struct{}) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	doneCh := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(doneCh)
	}()
	return cancelCtx, doneCh
}

func TestPoller_FetchesImmediatelyAndOnTick(t *testing.T) {
	f := &countingFetch{}
	tick := make(chan time.Time, 1)
	p, err := New(Config{Name: "consultations", Fetch: f.fetch, Tick: tick, Stop: func() {}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cancel, done := startPoller(t, p)
	defer cancel()

	waitFor(t, 250*time.Millisecond, func() bool { return f.calls.Load() >= 1 })

	tick <- time.Now()
	waitFor(t, 250*time.Millisecond, func() bool { return f.calls.Load() >= 2 })

	cancel()
	<-done
}

func TestPoller_NoFetchAfterStop(t *testing.T) {
	f := &countingFetch{}
	tick := make(chan time.Time, 4)
	stopped := make(chan struct{})
	p, err := New(Config{Name: "consultations", Fetch: f.fetch, Tick: tick, Stop: func() { close(stopped) }})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cancel, done := startPoller(t, p)
	waitFor(t, 250*time.Millisecond, func() bool { return f.calls.Load() == 1 })

	cancel()
	<-done
	<-stopped

	calls := f.calls.Load()
	tick <- time.Now()
	tick <- time.Now()
	time.Sleep(30 * time.Millisecond)
	if f.calls.Load() != calls {
		t.Fatalf("fetch issued after stop: %d -> %d", calls, f.calls.Load())
	}
}

func TestPoller_InitialFailureSurfaced(t *testing.T) {
	f := &countingFetch{}
	f.fail.Store(true)
	tick := make(chan time.Time, 1)
	p, err := New(Config{Name: "prescriptions", Fetch: f.fetch, Tick: tick, Stop: func() {}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cancel, done := startPoller(t, p)
	defer cancel()

	waitFor(t, 250*time.Millisecond, func() bool { return f.calls.Load() >= 1 })
	waitFor(t, 250*time.Millisecond, func() bool { return p.Health().InitialError != "" })

	h := p.Health()
	if h.Healthy {
		t.Fatalf("expected degraded health after initial failure: %+v", h)
	}

	// Recovery clears the surfaced error.
	f.fail.Store(false)
	tick <- time.Now()
	waitFor(t, 250*time.Millisecond, func() bool { return p.Health().InitialError == "" })

	cancel()
	<-done
}

func TestPoller_BackgroundFailureKeepsErrorStateQuiet(t *testing.T) {
	f := &countingFetch{}
	tick := make(chan time.Time, 1)
	p, err := New(Config{Name: "dashboard", Fetch: f.fetch, Tick: tick, Stop: func() {}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cancel, done := startPoller(t, p)
	defer cancel()

	waitFor(t, 250*time.Millisecond, func() bool { return f.calls.Load() >= 1 })
	if h := p.Health(); !h.Healthy || h.InitialError != "" {
		t.Fatalf("expected healthy start: %+v", h)
	}

	f.fail.Store(true)
	tick <- time.Now()
	waitFor(t, 250*time.Millisecond, func() bool { return f.calls.Load() >= 2 })

	h := p.Health()
	if h.InitialError != "" {
		t.Fatalf("background failure must not surface an initial error: %+v", h)
	}
	if h.ConsecutiveFailures != 1 {
		t.Fatalf("expected one recorded failure: %+v", h)
	}

	cancel()
	<-done
}

func TestPoller_BackoffSkipsTicksAfterRepeatedFailures(t *testing.T) {
	f := &countingFetch{}
	f.fail.Store(true)
	tick := make(chan time.Time)
	p, err := New(Config{
		Name:                 "admin_users",
		Fetch:                f.fetch,
		Tick:                 tick,
		Stop:                 func() {},
		BackoffAfter:         2,
		MaxBackoffMultiplier: 4,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cancel, done := startPoller(t, p)
	defer cancel()

	// Initial cycle fails (1 consecutive).
	waitFor(t, 250*time.Millisecond, func() bool { return f.calls.Load() == 1 })

	// Second failure hits the threshold, so one tick is skipped afterwards.
	tick <- time.Now()
	waitFor(t, 250*time.Millisecond, func() bool { return f.calls.Load() == 2 })

	tick <- time.Now() // skipped
	tick <- time.Now() // attempted
	waitFor(t, 250*time.Millisecond, func() bool { return f.calls.Load() == 3 })

	h := p.Health()
	if h.ConsecutiveFailures != 3 {
		t.Fatalf("expected 3 consecutive failures, got %+v", h)
	}

	cancel()
	<-done
}

func TestPoller_PauseSuppressesCycles(t *testing.T) {
	f := &countingFetch{}
	tick := make(chan time.Time, 2)
	p, err := New(Config{Name: "messages", Fetch: f.fetch, Tick: tick, Stop: func() {}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cancel, done := startPoller(t, p)
	defer cancel()

	waitFor(t, 250*time.Millisecond, func() bool { return f.calls.Load() == 1 })

	p.Pause()
	tick <- time.Now()
	time.Sleep(30 * time.Millisecond)
	if f.calls.Load() != 1 {
		t.Fatalf("paused poller must not fetch, got %d calls", f.calls.Load())
	}

	p.Resume()
	tick <- time.Now()
	waitFor(t, 250*time.Millisecond, func() bool { return f.calls.Load() == 2 })

	cancel()
	<-done
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Fetch: func(context.Context) error { return nil }}); err == nil {
		t.Fatalf("expected name validation error")
	}
	if _, err := New(Config{Name: "x"}); err == nil {
		t.Fatalf("expected fetch validation error")
	}
}
