package system

import (
	"time"

	"github.com/l1jgo/horde/internal/core/event"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"go.uber.org/zap"
)

// DayClock advances the game day every dayLength of simulated time and hands
// the new day to its listeners before the Update phase runs. A zero
// dayLength freezes the clock on day 0.
// Phase 1 (PreUpdate).
type DayClock struct {
	dayLength time.Duration
	acc       time.Duration
	day       int
	listeners []func(day int)
	bus       *event.Bus
	log       *zap.Logger
}

func NewDayClock(dayLength time.Duration, bus *event.Bus, log *zap.Logger) *DayClock {
	if log == nil {
		log = zap.NewNop()
	}
	return &DayClock{dayLength: dayLength, bus: bus, log: log.Named("dayclock")}
}

func (c *DayClock) Phase() coresys.Phase { return coresys.PhasePreUpdate }

// OnDay registers fn to run on every day change.
func (c *DayClock) OnDay(fn func(day int)) { c.listeners = append(c.listeners, fn) }

func (c *DayClock) Day() int { return c.day }

// Remaining is the simulated time left in the current day.
func (c *DayClock) Remaining() time.Duration {
	if c.dayLength <= 0 {
		return 0
	}
	return c.dayLength - c.acc
}

// SetDay jumps straight to day n.
func (c *DayClock) SetDay(n int) {
	if n < 0 || n == c.day {
		return
	}
	c.day = n
	c.acc = 0
	c.notify()
}

func (c *DayClock) Update(dt time.Duration) {
	if c.dayLength <= 0 {
		return
	}
	c.acc += dt
	if c.acc < c.dayLength {
		return
	}
	// a long stall still moves one day per tick
	c.acc -= c.dayLength
	if c.acc >= c.dayLength {
		c.acc = c.dayLength - 1
	}
	c.day++
	c.notify()
}

func (c *DayClock) notify() {
	c.log.Info("new day", zap.Int("day", c.day))
	for _, fn := range c.listeners {
		fn(c.day)
	}
	if c.bus != nil {
		event.Emit(c.bus, event.DayChanged{Day: c.day})
	}
}
