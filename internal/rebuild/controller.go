// Package rebuild runs the debounced rebuild loop. Column edits are
// coalesced over a debounce window so a burst of operator changes
// triggers one rebuild; edits arriving while a rebuild is in flight fold
// into exactly one follow-up rebuild.
package rebuild

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// State is the controller's lifecycle position.
type State int

const (
	StateIdle State = iota
	StatePending
	StateRebuilding
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending_rebuild"
	case StateRebuilding:
		return "rebuilding"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BuildFunc performs one full rebuild of the master dataset.
type BuildFunc func(ctx context.Context) error

// Config wires a Controller. Clock defaults to the real clock.
type Config struct {
	Build    BuildFunc
	Debounce time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
	OnState  func(State)
}

// Controller owns the rebuild state machine. A failed rebuild leaves the
// previous artifact and the column configuration untouched; the next
// edit or manual trigger retries.
type Controller struct {
	build    BuildFunc
	debounce time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	onState  func(State)

	edits  chan struct{}
	manual chan struct{}

	mu      sync.Mutex
	state   State
	lastErr error
}

func New(cfg Config) *Controller {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		build:    cfg.Build,
		debounce: cfg.Debounce,
		clock:    clock,
		logger:   logger,
		onState:  cfg.OnState,
		edits:    make(chan struct{}, 1),
		manual:   make(chan struct{}, 1),
	}
}

// NotifyChange records a column configuration edit. Never blocks; edits
// beyond the buffered one coalesce.
func (c *Controller) NotifyChange() {
	select {
	case c.edits <- struct{}{}:
	default:
	}
}

// RebuildNow requests an immediate rebuild, bypassing the debounce
// window. Never blocks.
func (c *Controller) RebuildNow() {
	select {
	case c.manual <- struct{}{}:
	default:
	}
}

// State reports the current lifecycle position.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError reports the most recent rebuild failure, nil after a
// successful rebuild.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Run drives the state machine until ctx is cancelled. Rebuilds run on
// this goroutine, so edits arriving mid-rebuild wait in the buffered
// channel and trigger at most one follow-up.
func (c *Controller) Run(ctx context.Context) error {
	var (
		timer  clockwork.Timer
		timerC <-chan time.Time
	)
	stopTimer := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timerC:
			default:
			}
		}
	}
	defer stopTimer()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.edits:
			if timer == nil {
				timer = c.clock.NewTimer(c.debounce)
				timerC = timer.Chan()
			} else {
				stopTimer()
				timer.Reset(c.debounce)
			}
			c.setState(StatePending)
			c.logger.Debug("rebuild pending", "debounce", c.debounce)
		case <-c.manual:
			stopTimer()
			c.rebuild(ctx, "manual")
		case <-timerC:
			c.rebuild(ctx, "debounce")
		}
	}
}

func (c *Controller) rebuild(ctx context.Context, trigger string) {
	c.setState(StateRebuilding)
	c.logger.Info("rebuild started", "trigger", trigger)

	err := c.build(ctx)

	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	if err != nil {
		c.setState(StateFailed)
		c.logger.Error("rebuild failed, previous artifact kept", "trigger", trigger, "error", err)
		return
	}
	c.setState(StateIdle)
	c.logger.Info("rebuild complete", "trigger", trigger)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.onState != nil {
		c.onState(s)
	}
}
