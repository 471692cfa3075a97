package ai

import (
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/replication"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Hit is the first object struck by a ray or sphere cast.
type Hit struct {
	Entity   ecs.EntityID // zero when static geometry was hit
	Point    r3.Vec
	Normal   r3.Vec
	Distance float64
}

// SpatialQuery answers proximity and line-of-sight questions about the world.
// Casts never report the ignore entity.
type SpatialQuery interface {
	QueryNearby(point r3.Vec, radius float64, layer uint32) []ecs.EntityID
	Raycast(origin, dir r3.Vec, maxDist float64, ignore ecs.EntityID) (Hit, bool)
	SphereCast(origin r3.Vec, radius float64, dir r3.Vec, maxDist float64, ignore ecs.EntityID) (Hit, bool)
	Overlap(point r3.Vec, radius float64) []ecs.EntityID
	// Position returns false when the entity no longer exists.
	Position(id ecs.EntityID) (r3.Vec, bool)
	SetCollidable(id ecs.EntityID, collidable bool)
}

// Navigation owns the walkable surface and the locomotion primitive.
type Navigation interface {
	SampleOnSurface(point r3.Vec, tolerance float64) (r3.Vec, bool)
	IsPathFeasible(from, to r3.Vec) bool
	// SteerToward moves the entity's body toward destination and returns its
	// new position.
	SteerToward(id ecs.EntityID, destination r3.Vec, speed float64, dt time.Duration) r3.Vec
	Halt(id ecs.EntityID)
}

// Health is the external health/damage service.
type Health interface {
	IsIncapacitated(id ecs.EntityID) bool
	IsDead(id ecs.EntityID) bool
	ApplyDamage(id ecs.EntityID, amount int, source ecs.EntityID)
	// OnDeath registers fn to run when id dies. The returned func cancels it.
	OnDeath(id ecs.EntityID, fn func(killer ecs.EntityID)) (cancel func())
}

// Presenter plays attack animations. The presentation reports back through
// AttackController.PresentationHit and PresentationComplete with the same seq.
type Presenter interface {
	Animated() bool
	TriggerAttack(agent ecs.EntityID, seq uint32)
}

// NopPresenter is the presenter of agents without an attack animation.
type NopPresenter struct{}

func (NopPresenter) Animated() bool                     { return false }
func (NopPresenter) TriggerAttack(ecs.EntityID, uint32) {}

// Replicator forwards messages to observers without waiting for delivery.
type Replicator interface {
	Replicate(m replication.Message)
}

type nopReplicator struct{}

func (nopReplicator) Replicate(replication.Message) {}

// DamageModel decides how much damage a confirmed hit deals.
type DamageModel interface {
	Damage(attacker *Agent, target ecs.EntityID) int
}

type baseDamage struct{}

func (baseDamage) Damage(a *Agent, _ ecs.EntityID) int { return a.Tuning.BaseDamage }

// Kill describes a finished agent for reward and drop processing.
type Kill struct {
	Agent     ecs.EntityID
	Archetype string
	SpawnID   int
	Killer    ecs.EntityID
	Position  r3.Vec
	RewardExp int
	DropTable string
}

// RewardSink grants kill rewards. Called exactly once per agent death.
type RewardSink interface {
	Reward(k Kill)
}

type nopRewards struct{}

func (nopRewards) Reward(Kill) {}

// RemovalScheduler removes a dead agent from observers after a grace delay.
type RemovalScheduler interface {
	ScheduleRemoval(a *Agent, grace time.Duration)
}

type nopRemovals struct{}

func (nopRemovals) ScheduleRemoval(*Agent, time.Duration) {}

// Services bundles the collaborators shared by every agent of a session.
// Spatial, Nav and Health are required; the rest fall back to no-ops.
type Services struct {
	Spatial    SpatialQuery
	Nav        Navigation
	Health     Health
	Replicator Replicator
	Damage     DamageModel
	Rewards    RewardSink
	Removals   RemovalScheduler
	Log        *zap.Logger

	// RemovalGrace is how long a dead agent stays visible to observers.
	RemovalGrace time.Duration

	// Authoritative is false on replicas; coordinators stay unwired there.
	Authoritative bool
}

func (s Services) withDefaults() Services {
	if s.Replicator == nil {
		s.Replicator = nopReplicator{}
	}
	if s.Damage == nil {
		s.Damage = baseDamage{}
	}
	if s.Rewards == nil {
		s.Rewards = nopRewards{}
	}
	if s.Removals == nil {
		s.Removals = nopRemovals{}
	}
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	return s
}
