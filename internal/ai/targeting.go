package ai

import (
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/geom"
	"go.uber.org/zap"
)

// TargetListener receives target transitions from a TargetAcquisition.
type TargetListener interface {
	OnTargetAcquired(target ecs.EntityID)
	OnTargetLost(target ecs.EntityID)
	OnTargetInRange(target ecs.EntityID)
	OnTargetOutOfRange(target ecs.EntityID)
}

// ScanResult is the outcome of one target scan.
type ScanResult struct {
	Target   ecs.EntityID
	Distance float64
	Found    bool
}

// TargetAcquisition periodically picks the nearest valid, reachable target
// and checks the held target's range every tick.
type TargetAcquisition struct {
	agent   *Agent
	spatial SpatialQuery
	nav     Navigation
	health  Health
	log     *zap.Logger

	held      ecs.EntityID
	scanTimer time.Duration // 0 = scan on next update
	listeners []TargetListener
	stopped   bool
}

func newTargetAcquisition(a *Agent, spatial SpatialQuery, nav Navigation, health Health, log *zap.Logger) *TargetAcquisition {
	return &TargetAcquisition{agent: a, spatial: spatial, nav: nav, health: health, log: log}
}

// Subscribe adds l. Subscribing the same listener twice keeps one entry; the
// returned func removes it.
func (t *TargetAcquisition) Subscribe(l TargetListener) (unsubscribe func()) {
	for _, existing := range t.listeners {
		if existing == l {
			return func() { t.unsubscribe(l) }
		}
	}
	t.listeners = append(t.listeners, l)
	return func() { t.unsubscribe(l) }
}

func (t *TargetAcquisition) unsubscribe(l TargetListener) {
	for i, existing := range t.listeners {
		if existing == l {
			t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
			return
		}
	}
}

func (t *TargetAcquisition) Listeners() int { return len(t.listeners) }

// Held returns the current target, or the zero handle.
func (t *TargetAcquisition) Held() ecs.EntityID { return t.held }

// Stop silences the component for good. No event fires afterwards.
func (t *TargetAcquisition) Stop() {
	t.stopped = true
	t.held = 0
}

func (t *TargetAcquisition) Update(dt time.Duration) {
	if t.stopped {
		return
	}
	t.scanTimer -= dt
	if t.scanTimer <= 0 {
		t.scanTimer += t.agent.Tuning.ScanInterval
		if t.scanTimer < 0 {
			t.scanTimer = 0
		}
		if r := t.Scan(); r.Found && r.Target != t.held {
			t.held = r.Target
			t.emit(func(l TargetListener) { l.OnTargetAcquired(r.Target) })
		}
	}
	t.checkRange()
}

// Scan returns the nearest candidate within detection range that is alive,
// not incapacitated and reachable over the walkable surface. Exact ties keep
// the first candidate in query order.
func (t *TargetAcquisition) Scan() ScanResult {
	a := t.agent
	var best ScanResult
	for _, c := range t.spatial.QueryNearby(a.Position, a.Tuning.DetectionRange, a.Tuning.TargetLayer) {
		if c == a.ID || t.health.IsDead(c) || t.health.IsIncapacitated(c) {
			continue
		}
		pos, ok := t.spatial.Position(c)
		if !ok {
			continue
		}
		d := geom.Distance(a.Position, pos)
		if d > a.Tuning.DetectionRange {
			continue
		}
		if best.Found && d >= best.Distance {
			continue
		}
		sample, ok := t.nav.SampleOnSurface(pos, a.Tuning.SampleTolerance)
		if !ok {
			t.log.Debug("candidate off navigable surface", zap.Stringer("candidate", c))
			continue
		}
		if !t.nav.IsPathFeasible(a.Position, sample) {
			t.log.Debug("no path to candidate", zap.Stringer("candidate", c))
			continue
		}
		best = ScanResult{Target: c, Distance: d, Found: true}
	}
	return best
}

func (t *TargetAcquisition) checkRange() {
	if t.held == 0 {
		return
	}
	target := t.held
	pos, ok := t.spatial.Position(target)
	if !ok || t.health.IsDead(target) || t.health.IsIncapacitated(target) {
		t.lose(target)
		return
	}
	d := geom.Distance(t.agent.Position, pos)
	switch {
	case d > t.agent.Tuning.DetectionRange:
		t.lose(target)
	case d <= t.agent.Tuning.InRangeThreshold:
		t.emit(func(l TargetListener) { l.OnTargetInRange(target) })
	default:
		t.emit(func(l TargetListener) { l.OnTargetOutOfRange(target) })
	}
}

func (t *TargetAcquisition) lose(target ecs.EntityID) {
	t.held = 0
	t.emit(func(l TargetListener) { l.OnTargetLost(target) })
}

// emit iterates a copy: listeners may unsubscribe from inside a callback.
func (t *TargetAcquisition) emit(fn func(TargetListener)) {
	if len(t.listeners) == 0 {
		return
	}
	ls := make([]TargetListener, len(t.listeners))
	copy(ls, t.listeners)
	for _, l := range ls {
		if t.stopped {
			return
		}
		fn(l)
	}
}
