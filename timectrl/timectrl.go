package timectrl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/signalsfoundry/orrery/moment"
)

// ErrInvalidTick is returned for a non-positive tick.
var ErrInvalidTick = errors.New("tick must be positive")

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime waits one wall-clock Tick between steps.
	RealTime Mode = iota
	// Accelerated steps as quickly as the loop can run while still stepping by Tick.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// TimeController drives simulation time and notifies registered listeners.
// Each step advances the simulated moment by Tick scaled by the current
// scale factor.
type TimeController struct {
	mu sync.RWMutex

	StartTime moment.Moment
	Tick      time.Duration
	Mode      Mode

	scale       float64
	currentTime moment.Moment
	steps       uint64

	listeners []func(moment.Moment)
	err       error
}

// NewTimeController constructs a controller running at scale 1.
func NewTimeController(start moment.Moment, tick time.Duration, mode Mode) (*TimeController, error) {
	if tick <= 0 {
		return nil, fmt.Errorf("%w, got %v", ErrInvalidTick, tick)
	}
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		scale:       1,
		currentTime: start,
	}, nil
}

// Now returns the current simulation time.
func (tc *TimeController) Now() moment.Moment {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// SetTime jumps the simulation to t.
func (tc *TimeController) SetTime(t moment.Moment) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.currentTime = t
}

// Scale returns simulated seconds per tick second.
func (tc *TimeController) Scale() float64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.scale
}

// SetScale changes the speed-up factor. Negative scales run time backwards.
func (tc *TimeController) SetScale(s float64) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.scale = s
}

// Steps returns the number of ticks taken so far.
func (tc *TimeController) Steps() uint64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.steps
}

// AddListener registers a callback invoked on every tick.
func (tc *TimeController) AddListener(fn func(moment.Moment)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Err reports why the last Start loop stopped early, or nil.
func (tc *TimeController) Err() error {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.err
}

// Step advances time by one tick and notifies listeners synchronously. When
// the advanced time would leave the moment range the clock stays put and no
// listener runs.
func (tc *TimeController) Step() (moment.Moment, error) {
	tc.mu.Lock()
	next, err := tc.currentTime.AddSeconds(tc.Tick.Seconds() * tc.scale)
	if err != nil {
		tc.mu.Unlock()
		return moment.Moment{}, fmt.Errorf("step %d: %w", tc.steps+1, err)
	}
	tc.currentTime = next
	tc.steps++
	listeners := append([]func(moment.Moment){}, tc.listeners...)
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next, nil
}

func (tc *TimeController) fail(err error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.err = err
}

// Start resets the clock to StartTime and steps it in a separate goroutine
// until the summed ticks reach duration, or until ctx is done. A zero
// duration runs until cancellation. The returned channel is closed when the
// controller finishes; Err then reports a non-positive Tick or a step that
// left the moment range.
func (tc *TimeController) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		tc.mu.Lock()
		tc.currentTime = tc.StartTime
		tc.err = nil
		tick := tc.Tick
		tc.mu.Unlock()
		if tick <= 0 {
			tc.fail(fmt.Errorf("%w, got %v", ErrInvalidTick, tick))
			return
		}

		var ticks <-chan time.Time
		if tc.Mode == RealTime {
			ticker := time.NewTicker(tick)
			defer ticker.Stop()
			ticks = ticker.C
		}

		elapsed := time.Duration(0)
		for {
			if duration > 0 && elapsed >= duration {
				return
			}
			if ticks != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticks:
				}
			} else if ctx.Err() != nil {
				return
			}

			if _, err := tc.Step(); err != nil {
				tc.fail(err)
				return
			}
			elapsed += tick
		}
	}()
	return done
}
