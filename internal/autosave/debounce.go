// Package autosave schedules debounced persistence writes.
//
// Each edit calls Schedule, which (re)arms a timer; the save function runs
// only once the timer expires with no further edits in between. A failed
// save is reported to the error handler and is otherwise ignored: the
// in-memory workspace stays the source of truth.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ocv/internal/clock"
)

// DefaultDelay is the idle period used when none is configured.
const DefaultDelay = 750 * time.Millisecond

// SaveFunc persists the current state.
type SaveFunc func(ctx context.Context) error

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithErrorHandler replaces the default handler, which logs a warning.
func WithErrorHandler(fn func(error)) Option {
	return func(d *Debouncer) {
		if fn != nil {
			d.onError = fn
		}
	}
}

// WithLogger sets the logger used by the default error handler.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Debouncer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Debouncer coalesces bursts of Schedule calls into a single save.
type Debouncer struct {
	clock   clock.Clock
	delay   time.Duration
	save    SaveFunc
	onError func(error)
	logger  *slog.Logger

	mu         sync.Mutex
	timer      *clock.Timer
	pending    bool
	generation uint64

	runMu sync.Mutex
}

// New creates a Debouncer that calls save after delay of inactivity.
// A non-positive delay falls back to DefaultDelay.
func New(clk clock.Clock, delay time.Duration, save SaveFunc, opts ...Option) *Debouncer {
	if clk == nil {
		clk = clock.Real()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	d := &Debouncer{
		clock:  clk,
		delay:  delay,
		save:   save,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.onError == nil {
		d.onError = func(err error) {
			d.logger.Warn("autosave failed", "error", err)
		}
	}
	return d
}

// Delay returns the idle period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule arms the timer, cancelling any save armed earlier.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = true
	d.generation++
	generation := d.generation
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(generation) })
}

// Pending reports whether a save is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush runs an armed save now and returns its error. It does nothing when
// no save is pending.
func (d *Debouncer) Flush(ctx context.Context) error {
	if !d.disarm() {
		return nil
	}
	return d.run(ctx)
}

// Stop cancels an armed save without running it.
func (d *Debouncer) Stop() {
	d.disarm()
}

func (d *Debouncer) fire(generation uint64) {
	d.mu.Lock()
	if !d.pending || generation != d.generation {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	if err := d.run(context.Background()); err != nil {
		d.onError(err)
	}
}

func (d *Debouncer) disarm() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pending {
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
	d.generation++
	return true
}

func (d *Debouncer) run(ctx context.Context) error {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.save == nil {
		return nil
	}
	return d.save(ctx)
}
