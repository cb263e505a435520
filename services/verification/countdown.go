package verification

import (
	"math"
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Countdown is the resend cooldown. The remaining time is derived from the
// clock, the optional ticker only reports it.
type Countdown struct {
	mu        sync.Mutex
	duration  time.Duration
	interval  time.Duration
	clock     Clock
	startedAt time.Time
	running   bool
	stop      chan struct{}
}

func NewCountdown(duration, interval time.Duration, clock Clock) *Countdown {
	if clock == nil {
		clock = SystemClock{}
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{duration: duration, interval: interval, clock: clock}
}

// Start restarts the countdown from its full duration. A running ticker is
// replaced; onTick, if set, receives the remaining seconds on every tick
// until zero.
func (c *Countdown) Start(onTick func(remaining int)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.startedAt = c.clock.Now()
	c.running = true

	if onTick == nil {
		return
	}
	stop := make(chan struct{})
	c.stop = stop
	go c.tick(stop, onTick)
}

func (c *Countdown) tick(stop chan struct{}, onTick func(int)) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			remaining := c.Remaining()
			select {
			case <-stop:
				return
			default:
			}
			onTick(remaining)
			if remaining == 0 {
				return
			}
		}
	}
}

// Stop cancels the ticker and zeroes the countdown.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.running = false
}

func (c *Countdown) stopLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// Remaining returns the whole seconds left, rounded up.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return 0
	}
	left := c.duration - c.clock.Now().Sub(c.startedAt)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}
