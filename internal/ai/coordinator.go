package ai

import "github.com/l1jgo/horde/internal/core/ecs"

// Coordinator forwards target events of one agent into its movement and
// attack controllers. It only wires on the authoritative side.
type Coordinator struct {
	agent         *Agent
	authoritative bool
	unsubscribe   func()
}

func newCoordinator(a *Agent, authoritative bool) *Coordinator {
	return &Coordinator{agent: a, authoritative: authoritative}
}

// Activate subscribes to the agent's TargetAcquisition. Re-activation is a
// no-op.
func (c *Coordinator) Activate() {
	if !c.authoritative || c.unsubscribe != nil || c.agent.Lifecycle.Dead() {
		return
	}
	c.unsubscribe = c.agent.Targeting.Subscribe(c)
}

func (c *Coordinator) Deactivate() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Coordinator) Active() bool { return c.unsubscribe != nil }

func (c *Coordinator) OnTargetAcquired(target ecs.EntityID) {
	c.agent.Movement.SetTarget(target)
	c.agent.Attack.SetTarget(target)
}

func (c *Coordinator) OnTargetLost(ecs.EntityID) {
	c.agent.Movement.ClearTarget()
	c.agent.Attack.ClearTarget()
}

func (c *Coordinator) OnTargetInRange(ecs.EntityID) {
	c.agent.Attack.TryEnterAttack()
}

func (c *Coordinator) OnTargetOutOfRange(ecs.EntityID) {}
