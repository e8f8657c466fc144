package sync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/careloop/telehealth-client/internal/observability/metrics"
	"github.com/careloop/telehealth-client/pkg/logging"
)

var syncTracer = otel.Tracer("telehealth.internal.sync")

// Fetch refreshes one collection: hit the API, apply the result to the
// store. Errors are reported per the poller's surface rules.
type Fetch func(ctx context.Context) error

// Config configures one polling synchronizer.
type Config struct {
	Name     string
	Fetch    Fetch
	Interval time.Duration

	// BackoffAfter is the consecutive-failure count after which the poller
	// stretches its effective interval; MaxBackoffMultiplier caps the
	// stretch. Polling never stops on its own.
	BackoffAfter         int
	MaxBackoffMultiplier int

	// Tick/Stop inject a tick source for tests; when Tick is nil a ticker
	// at Interval is used.
	Tick <-chan time.Time
	Stop func()

	Logger  *logging.Logger
	Metrics *metrics.SyncMetrics
	Now     func() time.Time
}

// Health is a point-in-time snapshot of one poller, served on the ops
// status endpoint.
type Health struct {
	Name                string    `json:"name"`
	Healthy             bool      `json:"healthy"`
	Paused              bool      `json:"paused"`
	InitialError        string    `json:"initial_error,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Cycles              uint64    `json:"cycles"`
}

// Poller runs one fetch loop: an immediate fetch on start, then one per
// tick until the context is cancelled. A failed initial fetch is surfaced
// through Health; background failures are logged at debug level and leave
// the last-known-good state untouched.
type Poller struct {
	name          string
	fetch         Fetch
	interval      time.Duration
	backoffAfter  int
	maxMultiplier int

	tick <-chan time.Time
	stop func()

	logger  *logging.Logger
	metrics *metrics.SyncMetrics
	now     func() time.Time

	paused atomic.Bool

	mu          sync.Mutex
	initialErr  error
	lastErr     error
	lastSuccess time.Time
	consecutive int
	skip        int
	cycles      uint64
}

// New creates a poller. Name and Fetch are required.
func New(cfg Config) (*Poller, error) {
	if cfg.Name == "" {
		return nil, errors.New("sync: poller requires a name")
	}
	if cfg.Fetch == nil {
		return nil, errors.New("sync: poller requires a fetch function")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	backoffAfter := cfg.BackoffAfter
	if backoffAfter <= 0 {
		backoffAfter = 3
	}
	maxMultiplier := cfg.MaxBackoffMultiplier
	if maxMultiplier <= 0 {
		maxMultiplier = 8
	}

	tick := cfg.Tick
	stop := cfg.Stop
	if tick == nil {
		ticker := time.NewTicker(interval)
		tick = ticker.C
		stop = ticker.Stop
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Poller{
		name:          cfg.Name,
		fetch:         cfg.Fetch,
		interval:      interval,
		backoffAfter:  backoffAfter,
		maxMultiplier: maxMultiplier,
		tick:          tick,
		stop:          stop,
		logger:        logger.Component("poller." + cfg.Name),
		metrics:       cfg.Metrics,
		now:           now,
	}, nil
}

// Name returns the poller's slice name.
func (p *Poller) Name() string { return p.name }

// Start runs the loop until ctx is cancelled. After cancellation no further
// fetch is issued.
func (p *Poller) Start(ctx context.Context) {
	if p == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if p.stop != nil {
			p.stop()
		}
	}()

	p.runCycle(ctx, true)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.tick:
			if ctx.Err() != nil {
				return
			}
			if p.paused.Load() {
				continue
			}
			if p.skipTick() {
				continue
			}
			p.runCycle(ctx, false)
		}
	}
}

// RunOnce forces an immediate cycle, used after mutations to reconcile
// local state with server truth without waiting for the next tick.
func (p *Poller) RunOnce(ctx context.Context) error {
	return p.runCycle(ctx, false)
}

// Pause suspends background cycles, e.g. while a push channel is healthy.
func (p *Poller) Pause() { p.paused.Store(true) }

// Resume re-enables background cycles.
func (p *Poller) Resume() { p.paused.Store(false) }

// Paused reports whether background cycles are suspended.
func (p *Poller) Paused() bool { return p.paused.Load() }

func (p *Poller) skipTick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.skip > 0 {
		p.skip--
		return true
	}
	return false
}

func (p *Poller) runCycle(ctx context.Context, initial bool) error {
	ctx, span := syncTracer.Start(ctx, "sync.cycle")
	span.SetAttributes(attribute.String("sync.slice", p.name))
	defer span.End()

	start := p.now()
	err := p.fetch(ctx)
	elapsed := p.now().Sub(start).Seconds()

	p.mu.Lock()
	p.cycles++
	if err != nil {
		p.lastErr = err
		p.consecutive++
		if initial {
			p.initialErr = err
		}
		p.skip = p.backoffSkipLocked()
		consecutive := p.consecutive
		p.mu.Unlock()

		span.SetAttributes(attribute.String("sync.status", "error"))
		p.metrics.ObserveCycle(p.name, "error", elapsed)
		p.metrics.SetConsecutiveFailures(p.name, consecutive)

		if initial {
			p.logger.Warn("initial fetch failed", "error", err)
		} else {
			// Background failures stay quiet; state keeps last-known-good.
			p.logger.Debug("background fetch failed", "error", err, "consecutive", consecutive)
		}
		return err
	}

	p.initialErr = nil
	p.lastErr = nil
	p.consecutive = 0
	p.skip = 0
	p.lastSuccess = p.now()
	p.mu.Unlock()

	span.SetAttributes(attribute.String("sync.status", "ok"))
	p.metrics.ObserveCycle(p.name, "ok", elapsed)
	p.metrics.SetConsecutiveFailures(p.name, 0)
	return nil
}

// backoffSkipLocked returns how many upcoming ticks to skip. The effective
// interval doubles per failure past the threshold, capped at the configured
// multiplier of the base interval.
func (p *Poller) backoffSkipLocked() int {
	over := p.consecutive - p.backoffAfter
	if over < 0 {
		return 0
	}
	multiplier := 1 << (over + 1)
	if multiplier > p.maxMultiplier {
		multiplier = p.maxMultiplier
	}
	return multiplier - 1
}

// Health reports the poller's current state.
func (p *Poller) Health() Health {
	p.mu.Lock()
	defer p.mu.Unlock()
	h := Health{
		Name:                p.name,
		Healthy:             p.initialErr == nil && p.consecutive < p.backoffAfter,
		Paused:              p.paused.Load(),
		LastSuccess:         p.lastSuccess,
		ConsecutiveFailures: p.consecutive,
		Cycles:              p.cycles,
	}
	if p.initialErr != nil {
		h.InitialError = p.initialErr.Error()
	}
	if p.lastErr != nil {
		h.LastError = p.lastErr.Error()
	}
	return h
}
