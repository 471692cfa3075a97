package system

import (
	"time"

	"github.com/l1jgo/horde/internal/ai"
	"github.com/l1jgo/horde/internal/core/ecs"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/replication"
)

// TransformReplication sends AgentTransform for live agents whose position or
// facing changed, at most once per interval. Phase 4 (Output).
type TransformReplication struct {
	sched    *Scheduler
	out      ai.Replicator
	interval time.Duration
	timer    time.Duration
	sent     uint64
}

func NewTransformReplication(sched *Scheduler, out ai.Replicator, interval time.Duration) *TransformReplication {
	return &TransformReplication{sched: sched, out: out, interval: interval}
}

func (s *TransformReplication) Phase() coresys.Phase { return coresys.PhaseOutput }

// Sent is the number of transform messages emitted since start.
func (s *TransformReplication) Sent() uint64 { return s.sent }

func (s *TransformReplication) Update(dt time.Duration) {
	due := s.timer <= 0
	s.timer -= dt
	if !due {
		return
	}
	s.timer += s.interval
	if s.timer < 0 {
		s.timer = 0
	}
	s.sched.Each(func(_ ecs.EntityID, m Member) {
		a, ok := m.(*ai.Agent)
		if !ok || !a.Alive() || !a.TakeTransformDirty() {
			return
		}
		s.out.Replicate(replication.AgentTransform(a.ID, a.Position, a.Facing))
		s.sent++
	})
}
