package system

import (
	"time"

	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/telemetry"
	"go.uber.org/zap"
)

// RowWriter receives one telemetry row per window. *telemetry.Output
// implements it.
type RowWriter interface {
	Write(r telemetry.Row) error
}

// TelemetrySampler writes scheduler and population counters once per window.
// Counters are reported as deltas over the window. Phase 5 (Cleanup).
type TelemetrySampler struct {
	sched     *Scheduler
	spawner   *Spawner
	observers func() int
	out       RowWriter
	window    time.Duration
	elapsed   time.Duration
	ticks     uint64

	last     SchedulerStats
	lastSpwn uint64
	lastDead uint64

	log *zap.Logger
}

func NewTelemetrySampler(sched *Scheduler, spawner *Spawner, observers func() int, out RowWriter, window time.Duration, log *zap.Logger) *TelemetrySampler {
	if log == nil {
		log = zap.NewNop()
	}
	if observers == nil {
		observers = func() int { return 0 }
	}
	return &TelemetrySampler{
		sched:     sched,
		spawner:   spawner,
		observers: observers,
		out:       out,
		window:    window,
		log:       log.Named("telemetry"),
	}
}

func (t *TelemetrySampler) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (t *TelemetrySampler) Update(dt time.Duration) {
	t.ticks++
	t.elapsed += dt
	if t.elapsed < t.window {
		return
	}
	t.elapsed -= t.window
	if err := t.out.Write(t.Sample()); err != nil {
		t.log.Warn("telemetry write failed", zap.Error(err))
	}
}

// Sample builds the row for the window ending now and starts a new window.
func (t *TelemetrySampler) Sample() telemetry.Row {
	st := t.sched.Stats()
	row := telemetry.Row{
		Time:       time.Now().UTC().Format(time.RFC3339),
		Tick:       t.ticks,
		Population: t.sched.Len(),
		Advanced:   st.Advanced - t.last.Advanced,
		Recomputed: st.Recomputed - t.last.Recomputed,
		Skipped:    st.Skipped - t.last.Skipped,
		Flushed:    st.Flushed - t.last.Flushed,
		Observers:  t.observers(),
	}
	t.last = st
	if t.spawner != nil {
		row.Day = t.spawner.Day()
		row.Spawned = t.spawner.Spawned() - t.lastSpwn
		row.Deaths = t.spawner.Deaths() - t.lastDead
		t.lastSpwn = t.spawner.Spawned()
		t.lastDead = t.spawner.Deaths()
	}
	return row
}
