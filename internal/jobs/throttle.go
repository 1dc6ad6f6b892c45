package jobs

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Throttle defaults. Watermarks are per-core 1-minute load averages.
const (
	throttleMin  = 100 * time.Millisecond
	throttleMax  = 5 * time.Second
	throttleStep = 250 * time.Millisecond

	loadHighWater = 0.85
	loadLowWater  = 0.40
)

// Throttle is the per-worker self-throttle. Each worker samples system load
// after a sub-batch and sleeps for the current delay, which rises toward
// max under pressure and decays toward min otherwise. This is the workers'
// backpressure against the database.
type Throttle struct {
	min, max, step time.Duration
	high, low      float64
	delay          time.Duration

	// readLoad returns the normalized 1-minute load average (load / cores).
	// Injectable for tests.
	readLoad func() (float64, error)
}

func NewThrottle() *Throttle {
	return &Throttle{
		min:      throttleMin,
		max:      throttleMax,
		step:     throttleStep,
		high:     loadHighWater,
		low:      loadLowWater,
		delay:    throttleMin,
		readLoad: readLoadAvg,
	}
}

// Adjust samples the load and moves the delay one step. Unreadable load
// (non-Linux, restricted /proc) leaves the delay where it is.
func (t *Throttle) Adjust() time.Duration {
	load, err := t.readLoad()
	if err != nil {
		return t.delay
	}

	switch {
	case load > t.high:
		t.delay += t.step
		if t.delay > t.max {
			t.delay = t.max
		}
	case load < t.low:
		t.delay -= t.step
		if t.delay < t.min {
			t.delay = t.min
		}
	default:
		// Between the watermarks: decay slowly toward the minimum.
		t.delay -= t.step / 4
		if t.delay < t.min {
			t.delay = t.min
		}
	}
	return t.delay
}

// Delay returns the current delay without sampling.
func (t *Throttle) Delay() time.Duration {
	return t.delay
}

// readLoadAvg reads the 1-minute load average from /proc/loadavg and
// normalizes it by core count.
func readLoadAvg() (float64, error) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, err
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, os.ErrInvalid
	}

	load, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, err
	}
	return load / float64(runtime.NumCPU()), nil
}
