package ai

import (
	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/replication"
	"go.uber.org/zap"
)

// DeathListener is told once that an agent died.
type DeathListener func(a *Agent, killer ecs.EntityID)

// LifecycleController owns the one-way Alive -> Dead transition.
type LifecycleController struct {
	agent *Agent
	svc   Services

	dead        bool
	bound       bool
	cancelDeath func()
	listeners   []DeathListener
}

func newLifecycleController(a *Agent, svc Services) *LifecycleController {
	return &LifecycleController{agent: a, svc: svc}
}

func (l *LifecycleController) Dead() bool { return l.dead }

// Bind subscribes to the health service's death callback for this agent.
func (l *LifecycleController) Bind() {
	if l.bound || l.dead {
		return
	}
	l.bound = true
	l.cancelDeath = l.svc.Health.OnDeath(l.agent.ID, func(killer ecs.EntityID) {
		l.Kill(killer)
	})
}

// AddDeathListener registers fn; listeners run in registration order.
func (l *LifecycleController) AddDeathListener(fn DeathListener) {
	l.listeners = append(l.listeners, fn)
}

// Kill moves the agent to Dead. Only the first call has any effect; it
// reports whether this call performed the transition.
func (l *LifecycleController) Kill(killer ecs.EntityID) bool {
	if l.dead {
		return false
	}
	l.dead = true
	a := l.agent

	if l.cancelDeath != nil {
		l.cancelDeath()
		l.cancelDeath = nil
	}
	a.Coordinator.Deactivate()
	a.Targeting.Stop()
	a.Attack.Stop()
	a.Movement.Stop()
	l.svc.Spatial.SetCollidable(a.ID, false)

	l.svc.Rewards.Reward(Kill{
		Agent:     a.ID,
		Archetype: a.Archetype,
		SpawnID:   a.SpawnID,
		Killer:    killer,
		Position:  a.Position,
		RewardExp: a.Tuning.RewardExp,
		DropTable: a.Tuning.DropTable,
	})
	l.svc.Replicator.Replicate(replication.DeathTriggered(a.ID, a.Position))
	for _, fn := range l.listeners {
		fn(a, killer)
	}
	l.svc.Removals.ScheduleRemoval(a, l.svc.RemovalGrace)

	l.svc.Log.Debug("agent died",
		zap.Stringer("agent", a.ID),
		zap.String("archetype", a.Archetype),
		zap.Stringer("killer", killer),
	)
	return true
}
