package ai

import (
	"math/rand"
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// BehaviorState is derived from the controllers; it is never stored.
type BehaviorState uint8

const (
	StateRoaming BehaviorState = iota
	StatePursuing
	StateAttacking
	StateDead
)

func (s BehaviorState) String() string {
	switch s {
	case StateRoaming:
		return "roaming"
	case StatePursuing:
		return "pursuing"
	case StateAttacking:
		return "attacking"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// HitTuning holds the hit-confirmation tolerances.
type HitTuning struct {
	CastRadius    float64
	OverlapRadius float64
	ForwardOffset float64
	OriginHeight  float64
	RangeSlack    float64
	EffectHit     int32
	EffectMuzzle  int32
}

// Tuning is the per-agent parameter set, resolved from config and archetype
// at spawn time.
type Tuning struct {
	DetectionRange   float64
	InRangeThreshold float64
	ScanInterval     time.Duration
	SampleTolerance  float64
	TargetLayer      uint32

	MoveSpeed       float64 // units per second
	RoamRadius      float64
	RoamDelay       time.Duration
	ArriveThreshold float64

	AttackCooldown time.Duration
	FallbackMargin time.Duration
	TurnSpeed      float64 // radians per second
	Ranged         bool
	BaseDamage     int

	RewardExp int
	DropTable string

	Hit HitTuning
}

// Spec describes an agent about to be spawned.
type Spec struct {
	Archetype string
	SpawnID   int
	Position  r3.Vec
	Facing    float64
	Tuning    Tuning
	Seed      int64
	Presenter Presenter // nil means no attack animation
}

// Agent is one simulated hostile entity. Its transform is written only by its
// own movement and attack controllers.
type Agent struct {
	ID        ecs.EntityID
	Archetype string
	SpawnID   int
	Position  r3.Vec
	Facing    float64
	Tuning    Tuning

	Targeting   *TargetAcquisition
	Movement    *MovementController
	Attack      *AttackController
	Lifecycle   *LifecycleController
	Coordinator *Coordinator

	transformDirty bool
}

// NewAgent builds an agent and its controller set. Nothing is wired yet; call
// Activate once the agent is registered.
func NewAgent(id ecs.EntityID, spec Spec, svc Services) *Agent {
	svc = svc.withDefaults()
	presenter := spec.Presenter
	if presenter == nil {
		presenter = NopPresenter{}
	}
	a := &Agent{
		ID:             id,
		Archetype:      spec.Archetype,
		SpawnID:        spec.SpawnID,
		Position:       spec.Position,
		Facing:         spec.Facing,
		Tuning:         spec.Tuning,
		transformDirty: true,
	}
	log := svc.Log.With(zap.Stringer("agent", id))
	a.Targeting = newTargetAcquisition(a, svc.Spatial, svc.Nav, svc.Health, log)
	a.Movement = newMovementController(a, svc.Spatial, svc.Nav, rand.New(rand.NewSource(spec.Seed)), log)
	a.Attack = newAttackController(a, svc, presenter)
	a.Lifecycle = newLifecycleController(a, svc)
	a.Coordinator = newCoordinator(a, svc.Authoritative)
	return a
}

// Activate binds the death callback and wires the coordinator. Safe to call
// more than once.
func (a *Agent) Activate() {
	a.Lifecycle.Bind()
	a.Coordinator.Activate()
}

func (a *Agent) Alive() bool { return !a.Lifecycle.Dead() }

func (a *Agent) State() BehaviorState {
	switch {
	case a.Lifecycle.Dead():
		return StateDead
	case a.Attack.Attacking():
		return StateAttacking
	case a.Movement.Pursuing():
		return StatePursuing
	default:
		return StateRoaming
	}
}

// Update runs the agent-local timers: attack cooldown, facing and completion
// timers first, then the target scan and per-tick range check. It is cheap
// and runs every tick for every live agent.
func (a *Agent) Update(dt time.Duration) {
	if a.Lifecycle.Dead() {
		return
	}
	a.Attack.Update(dt)
	a.Targeting.Update(dt)
}

// Advance is the cheap per-tick locomotion step.
func (a *Agent) Advance(dt time.Duration) {
	if a.Lifecycle.Dead() {
		return
	}
	a.Movement.Advance(dt)
}

// RecomputeDestination is the low-frequency destination step.
func (a *Agent) RecomputeDestination(elapsed time.Duration) {
	if a.Lifecycle.Dead() {
		return
	}
	a.Movement.Recompute(elapsed)
}

// TakeTransformDirty reports whether position or facing changed since the
// last call, and clears the flag.
func (a *Agent) TakeTransformDirty() bool {
	d := a.transformDirty
	a.transformDirty = false
	return d
}

func (a *Agent) setPosition(p r3.Vec) {
	if p != a.Position {
		a.Position = p
		a.transformDirty = true
	}
}

func (a *Agent) setFacing(yaw float64) {
	if yaw != a.Facing {
		a.Facing = yaw
		a.transformDirty = true
	}
}
