package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/careloop/telehealth-client/pkg/logging"
)

// Engine owns the named pollers. Every view-level refresh loop in the
// product runs through here; there are no bespoke timers elsewhere.
type Engine struct {
	logger *logging.Logger

	mu      sync.Mutex
	pollers map[string]*Poller
	order   []string
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewEngine creates an empty engine.
func NewEngine(logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		logger:  logger.Component("sync"),
		pollers: make(map[string]*Poller),
	}
}

// Add registers a poller. Names are unique; adding after Start is an error.
func (e *Engine) Add(p *Poller) error {
	if p == nil {
		return fmt.Errorf("sync: nil poller")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return fmt.Errorf("sync: engine already started")
	}
	if _, ok := e.pollers[p.Name()]; ok {
		return fmt.Errorf("sync: duplicate poller %q", p.Name())
	}
	e.pollers[p.Name()] = p
	e.order = append(e.order, p.Name())
	return nil
}

// Start launches every poller in its own goroutine.
func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("sync: engine already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	pollers := make([]*Poller, 0, len(e.order))
	for _, name := range e.order {
		pollers = append(pollers, e.pollers[name])
	}
	e.mu.Unlock()

	for _, p := range pollers {
		e.wg.Add(1)
		go func(p *Poller) {
			defer e.wg.Done()
			p.Start(runCtx)
		}(p)
	}
	e.logger.Info("sync engine started", "pollers", len(pollers))
	return nil
}

// Stop cancels all pollers and waits for them to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// Refresh forces an immediate cycle on one poller, typically right after a
// mutation succeeded.
func (e *Engine) Refresh(ctx context.Context, name string) error {
	e.mu.Lock()
	p, ok := e.pollers[name]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("sync: unknown poller %q", name)
	}
	return p.RunOnce(ctx)
}

// Pause suspends the named pollers; unknown names are ignored.
func (e *Engine) Pause(names ...string) {
	e.each(names, (*Poller).Pause)
}

// Resume re-enables the named pollers.
func (e *Engine) Resume(names ...string) {
	e.each(names, (*Poller).Resume)
}

// PauseAll suspends every poller, used while a push channel is healthy.
func (e *Engine) PauseAll() {
	e.mu.Lock()
	names := append([]string(nil), e.order...)
	e.mu.Unlock()
	e.Pause(names...)
}

// ResumeAll re-enables every poller after stream loss.
func (e *Engine) ResumeAll() {
	e.mu.Lock()
	names := append([]string(nil), e.order...)
	e.mu.Unlock()
	e.Resume(names...)
}

func (e *Engine) each(names []string, fn func(*Poller)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, name := range names {
		if p, ok := e.pollers[name]; ok {
			fn(p)
		}
	}
}

// Health reports every poller in registration order.
func (e *Engine) Health() []Health {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Health, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.pollers[name].Health())
	}
	return out
}
