package ai

import (
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/geom"
	"github.com/l1jgo/horde/internal/replication"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

type attackState uint8

const (
	attackIdle attackState = iota
	attackActive
	attackDead
)

// AttackController runs the cooldown-gated attack cycle
// Idle -> Attacking -> Idle, plus the terminal Dead state.
type AttackController struct {
	agent     *Agent
	svc       Services
	presenter Presenter
	log       *zap.Logger

	state    attackState
	target   ecs.EntityID
	cooldown time.Duration // counts down only; reset when an attack starts
	seq      uint32

	// completion timer handle; cleared when the presentation completes first
	timer      time.Duration
	timerArmed bool

	hitResolved bool
}

func newAttackController(a *Agent, svc Services, presenter Presenter) *AttackController {
	return &AttackController{
		agent:     a,
		svc:       svc,
		presenter: presenter,
		log:       svc.Log.With(zap.Stringer("agent", a.ID)),
		cooldown:  a.Tuning.AttackCooldown,
	}
}

func (c *AttackController) SetTarget(target ecs.EntityID) {
	if c.state != attackDead {
		c.target = target
	}
}

func (c *AttackController) ClearTarget() { c.target = 0 }

func (c *AttackController) Target() ecs.EntityID             { return c.target }
func (c *AttackController) Attacking() bool                  { return c.state == attackActive }
func (c *AttackController) CooldownRemaining() time.Duration { return c.cooldown }

// Seq is the sequence number of the current (or last) attack. Presentation
// callbacks carrying any other value are ignored.
func (c *AttackController) Seq() uint32 { return c.seq }

// Stop enters the terminal state and drops any pending completion.
func (c *AttackController) Stop() {
	c.state = attackDead
	c.target = 0
	c.timerArmed = false
}

// Update counts down the cooldown and the completion timer and turns the
// agent toward its target while attacking.
func (c *AttackController) Update(dt time.Duration) {
	if c.state == attackDead {
		return
	}
	c.cooldown -= dt
	if c.cooldown < 0 {
		c.cooldown = 0
	}
	if c.state != attackActive {
		return
	}
	c.faceTarget(dt)
	if c.timerArmed {
		c.timer -= dt
		if c.timer <= 0 {
			c.timerArmed = false
			c.complete()
		}
	}
}

// TryEnterAttack starts an attack when a live target is held within range,
// no attack is running and the cooldown has elapsed.
func (c *AttackController) TryEnterAttack() bool {
	if c.state != attackIdle || c.target == 0 || c.cooldown > 0 {
		return false
	}
	pos, ok := c.liveTarget()
	if !ok {
		return false
	}
	if geom.Distance(c.agent.Position, pos) > c.agent.Tuning.InRangeThreshold {
		return false
	}
	c.enter()
	return true
}

func (c *AttackController) enter() {
	a := c.agent
	c.state = attackActive
	c.seq++
	c.hitResolved = false
	a.Movement.Halt()
	c.cooldown = a.Tuning.AttackCooldown

	if c.presenter.Animated() {
		c.svc.Replicator.Replicate(replication.AttackStarted(a.ID, c.target, a.Position, a.Facing))
		c.presenter.TriggerAttack(a.ID, c.seq)
		c.arm(a.Tuning.AttackCooldown + a.Tuning.FallbackMargin)
		return
	}
	c.tryApplyDamage()
	c.arm(a.Tuning.AttackCooldown)
}

func (c *AttackController) arm(d time.Duration) {
	c.timer = d
	c.timerArmed = true
}

// PresentationHit is called by the presenter at the strike frame.
func (c *AttackController) PresentationHit(seq uint32) bool {
	if c.state != attackActive || seq != c.seq {
		return false
	}
	return c.tryApplyDamage()
}

// PresentationComplete is called by the presenter when the attack animation
// ends. It supersedes the fallback timer.
func (c *AttackController) PresentationComplete(seq uint32) {
	if c.state != attackActive || seq != c.seq {
		return
	}
	c.timerArmed = false
	c.complete()
}

func (c *AttackController) complete() {
	c.state = attackIdle
	if !c.TryEnterAttack() {
		c.agent.Movement.Resume()
	}
}

func (c *AttackController) faceTarget(dt time.Duration) {
	pos, ok := c.liveTarget()
	if !ok {
		return
	}
	dir := geom.Flat(r3.Sub(pos, c.agent.Position))
	if r3.Norm(dir) < 1e-6 {
		return
	}
	step := c.agent.Tuning.TurnSpeed * dt.Seconds()
	c.agent.setFacing(geom.TurnToward(c.agent.Facing, geom.Yaw(dir), step))
}

// liveTarget re-validates the held target. A stale handle or a dead target
// counts as no target.
func (c *AttackController) liveTarget() (r3.Vec, bool) {
	if c.target == 0 || c.svc.Health.IsDead(c.target) {
		return r3.Vec{}, false
	}
	return c.svc.Spatial.Position(c.target)
}

// tryApplyDamage confirms the hit and applies damage. It runs at most once per
// attack. Stage one sweeps a sphere from a point in front of the attacker to
// the target; if the first thing it touches is not the target, stage two
// accepts the hit when an overlap at the target's last known position still
// contains it and a thin ray reaches it unobstructed.
func (c *AttackController) tryApplyDamage() bool {
	if c.hitResolved {
		return false
	}
	c.hitResolved = true

	a := c.agent
	h := a.Tuning.Hit
	target := c.target
	pos, ok := c.liveTarget()
	if !ok {
		c.log.Debug("hit skipped: no live target")
		return false
	}
	if geom.Distance(a.Position, pos) > a.Tuning.InRangeThreshold+h.RangeSlack {
		c.log.Debug("hit skipped: target out of reach", zap.Stringer("target", target))
		return false
	}

	lift := r3.Scale(h.OriginHeight, geom.Up)
	origin := r3.Add(r3.Add(a.Position, lift), r3.Scale(h.ForwardOffset, geom.Forward(a.Facing)))
	aim := r3.Add(pos, lift)
	dir, dist := geom.Direction(origin, aim)

	if a.Tuning.Ranged {
		c.svc.Replicator.Replicate(replication.Effect(a.ID, origin, geom.Forward(a.Facing), h.EffectMuzzle))
	}

	point, normal, confirmed := c.confirmHit(target, origin, aim, dir, dist)
	if !confirmed {
		c.log.Debug("hit not confirmed", zap.Stringer("target", target))
		return false
	}
	c.svc.Replicator.Replicate(replication.Effect(a.ID, point, normal, h.EffectHit))
	c.svc.Health.ApplyDamage(target, c.svc.Damage.Damage(a, target), a.ID)
	return true
}

func (c *AttackController) confirmHit(target ecs.EntityID, origin, aim, dir r3.Vec, dist float64) (r3.Vec, r3.Vec, bool) {
	h := c.agent.Tuning.Hit
	if dist == 0 {
		return aim, geom.Up, true
	}
	back := r3.Scale(-1, dir)

	if hit, ok := c.svc.Spatial.SphereCast(origin, h.CastRadius, dir, dist+h.RangeSlack, c.agent.ID); ok && hit.Entity == target {
		return hit.Point, hit.Normal, true
	}

	if !contains(c.svc.Spatial.Overlap(aim, h.OverlapRadius), target) {
		return r3.Vec{}, r3.Vec{}, false
	}
	hit, ok := c.svc.Spatial.Raycast(origin, dir, dist, c.agent.ID)
	if ok && hit.Entity != target {
		return r3.Vec{}, r3.Vec{}, false
	}
	if ok {
		return hit.Point, hit.Normal, true
	}
	return aim, back, true
}

func contains(ids []ecs.EntityID, id ecs.EntityID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
