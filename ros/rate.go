package ros

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Rate sleeps so that a loop runs at a fixed frequency.
type Rate struct {
	clock             clock.Clock
	actualCycleTime   time.Duration
	expectedCycleTime time.Duration
	start             time.Time
}

func NewRate(clk clock.Clock, frequency float64) *Rate {
	return CycleTime(clk, time.Duration(float64(time.Second)/frequency))
}

func CycleTime(clk clock.Clock, d time.Duration) *Rate {
	return &Rate{clock: clk, expectedCycleTime: d, start: clk.Now()}
}

// CycleTime returns how long the last cycle actually took.
func (r *Rate) CycleTime() time.Duration {
	return r.actualCycleTime
}

func (r *Rate) ExpectedCycleTime() time.Duration {
	return r.expectedCycleTime
}

func (r *Rate) Reset() {
	r.actualCycleTime = 0
	r.start = r.clock.Now()
}

// Remaining is the time left in the current cycle.
func (r *Rate) Remaining() time.Duration {
	elapsed := r.clock.Now().Sub(r.start)
	if elapsed >= r.expectedCycleTime {
		return 0
	}
	return r.expectedCycleTime - elapsed
}

// Sleep blocks until the end of the current cycle. A loop that overran
// its cycle restarts timing from now instead of trying to catch up.
func (r *Rate) Sleep() {
	if remaining := r.Remaining(); remaining > 0 {
		r.clock.Sleep(remaining)
	}
	now := r.clock.Now()
	r.actualCycleTime = now.Sub(r.start)
	r.start = r.start.Add(r.expectedCycleTime)
	if now.Sub(r.start) > r.expectedCycleTime {
		r.start = now
	}
}
