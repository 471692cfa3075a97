package ai

import (
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/geom"
	"github.com/l1jgo/horde/internal/replication"
	"gonum.org/v1/gonum/spatial/r3"
)

type fakeBody struct {
	pos           r3.Vec
	layer         uint32
	dead          bool
	incapacitated bool
	collidable    bool
}

type damageCall struct {
	target ecs.EntityID
	amount int
	source ecs.EntityID
}

// fakeWorld implements every service the ai package consumes. Casts are
// scripted per test; overlap is computed from body positions.
type fakeWorld struct {
	bodies  map[ecs.EntityID]*fakeBody
	order   []ecs.EntityID
	nextID  uint32
	deathFn map[ecs.EntityID]func(ecs.EntityID)

	offSurface map[r3.Vec]bool
	noPath     map[r3.Vec]bool
	sampleFail bool

	sphereCast func(origin r3.Vec, radius float64, dir r3.Vec, maxDist float64) (Hit, bool)
	raycast    func(origin, dir r3.Vec, maxDist float64) (Hit, bool)

	damage     []damageCall
	halts      int
	replicated []replication.Message
	rewards    []Kill
	removals   []ecs.EntityID
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		bodies:     make(map[ecs.EntityID]*fakeBody),
		deathFn:    make(map[ecs.EntityID]func(ecs.EntityID)),
		offSurface: make(map[r3.Vec]bool),
		noPath:     make(map[r3.Vec]bool),
	}
}

func (w *fakeWorld) add(pos r3.Vec, layer uint32) ecs.EntityID {
	w.nextID++
	id := ecs.NewEntityID(w.nextID, 1)
	w.bodies[id] = &fakeBody{pos: pos, layer: layer, collidable: true}
	w.order = append(w.order, id)
	return id
}

func (w *fakeWorld) move(id ecs.EntityID, pos r3.Vec) { w.bodies[id].pos = pos }

func (w *fakeWorld) remove(id ecs.EntityID) { delete(w.bodies, id) }

func (w *fakeWorld) services() Services {
	return Services{
		Spatial:       w,
		Nav:           w,
		Health:        w,
		Replicator:    w,
		Rewards:       w,
		Removals:      w,
		RemovalGrace:  3 * time.Second,
		Authoritative: true,
	}
}

func (w *fakeWorld) count(kind replication.Kind) int {
	n := 0
	for _, m := range w.replicated {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

func (w *fakeWorld) QueryNearby(point r3.Vec, radius float64, layer uint32) []ecs.EntityID {
	var out []ecs.EntityID
	for _, id := range w.order {
		b, ok := w.bodies[id]
		if !ok || b.layer != layer {
			continue
		}
		if geom.Distance(point, b.pos) <= radius {
			out = append(out, id)
		}
	}
	return out
}

func (w *fakeWorld) Raycast(origin, dir r3.Vec, maxDist float64, _ ecs.EntityID) (Hit, bool) {
	if w.raycast == nil {
		return Hit{}, false
	}
	return w.raycast(origin, dir, maxDist)
}

func (w *fakeWorld) SphereCast(origin r3.Vec, radius float64, dir r3.Vec, maxDist float64, _ ecs.EntityID) (Hit, bool) {
	if w.sphereCast == nil {
		return Hit{}, false
	}
	return w.sphereCast(origin, radius, dir, maxDist)
}

func (w *fakeWorld) Overlap(point r3.Vec, radius float64) []ecs.EntityID {
	var out []ecs.EntityID
	for _, id := range w.order {
		b, ok := w.bodies[id]
		if !ok || !b.collidable {
			continue
		}
		// bodies are treated as 1 unit tall columns centered one unit up
		center := r3.Add(b.pos, geom.Up)
		if geom.Distance(point, center) <= radius+0.5 {
			out = append(out, id)
		}
	}
	return out
}

func (w *fakeWorld) Position(id ecs.EntityID) (r3.Vec, bool) {
	b, ok := w.bodies[id]
	if !ok {
		return r3.Vec{}, false
	}
	return b.pos, true
}

func (w *fakeWorld) SetCollidable(id ecs.EntityID, collidable bool) {
	if b, ok := w.bodies[id]; ok {
		b.collidable = collidable
	}
}

func (w *fakeWorld) SampleOnSurface(point r3.Vec, _ float64) (r3.Vec, bool) {
	if w.sampleFail || w.offSurface[point] {
		return r3.Vec{}, false
	}
	return point, true
}

func (w *fakeWorld) IsPathFeasible(_, to r3.Vec) bool { return !w.noPath[to] }

func (w *fakeWorld) SteerToward(id ecs.EntityID, dest r3.Vec, speed float64, dt time.Duration) r3.Vec {
	b := w.bodies[id]
	dir, dist := geom.Direction(b.pos, dest)
	step := speed * dt.Seconds()
	if step >= dist {
		b.pos = dest
	} else {
		b.pos = r3.Add(b.pos, r3.Scale(step, dir))
	}
	return b.pos
}

func (w *fakeWorld) Halt(ecs.EntityID) { w.halts++ }

func (w *fakeWorld) IsIncapacitated(id ecs.EntityID) bool {
	b, ok := w.bodies[id]
	return ok && b.incapacitated
}

func (w *fakeWorld) IsDead(id ecs.EntityID) bool {
	b, ok := w.bodies[id]
	return ok && b.dead
}

func (w *fakeWorld) ApplyDamage(id ecs.EntityID, amount int, source ecs.EntityID) {
	w.damage = append(w.damage, damageCall{target: id, amount: amount, source: source})
}

func (w *fakeWorld) OnDeath(id ecs.EntityID, fn func(killer ecs.EntityID)) func() {
	w.deathFn[id] = fn
	return func() { delete(w.deathFn, id) }
}

func (w *fakeWorld) kill(id, killer ecs.EntityID) {
	w.bodies[id].dead = true
	if fn, ok := w.deathFn[id]; ok {
		fn(killer)
	}
}

func (w *fakeWorld) Replicate(m replication.Message) { w.replicated = append(w.replicated, m) }
func (w *fakeWorld) Reward(k Kill)                   { w.rewards = append(w.rewards, k) }

func (w *fakeWorld) ScheduleRemoval(a *Agent, _ time.Duration) {
	w.removals = append(w.removals, a.ID)
}

type fakePresenter struct {
	seqs []uint32
}

func (p *fakePresenter) Animated() bool                           { return true }
func (p *fakePresenter) TriggerAttack(_ ecs.EntityID, seq uint32) { p.seqs = append(p.seqs, seq) }

func testTuning() Tuning {
	return Tuning{
		DetectionRange:   10,
		InRangeThreshold: 2,
		ScanInterval:     0,
		SampleTolerance:  1,
		TargetLayer:      1,
		MoveSpeed:        4,
		RoamRadius:       5,
		RoamDelay:        2 * time.Second,
		ArriveThreshold:  0.5,
		AttackCooldown:   1200 * time.Millisecond,
		FallbackMargin:   500 * time.Millisecond,
		TurnSpeed:        2 * 3.141592653589793,
		BaseDamage:       7,
		RewardExp:        15,
		DropTable:        "grunt",
		Hit: HitTuning{
			CastRadius:    0.35,
			OverlapRadius: 0.75,
			ForwardOffset: 0.5,
			OriginHeight:  1,
			RangeSlack:    0.5,
			EffectHit:     1,
			EffectMuzzle:  2,
		},
	}
}

// spawnAgent adds a body for the agent at pos and activates it.
func spawnAgent(w *fakeWorld, pos r3.Vec, tuning Tuning, presenter Presenter) *Agent {
	id := w.add(pos, 2)
	a := NewAgent(id, Spec{Archetype: "grunt", Position: pos, Tuning: tuning, Seed: 42, Presenter: presenter}, w.services())
	a.Activate()
	return a
}

type recordingListener struct {
	acquired, lost, inRange, outOfRange []ecs.EntityID
}

func (r *recordingListener) OnTargetAcquired(t ecs.EntityID)   { r.acquired = append(r.acquired, t) }
func (r *recordingListener) OnTargetLost(t ecs.EntityID)       { r.lost = append(r.lost, t) }
func (r *recordingListener) OnTargetInRange(t ecs.EntityID)    { r.inRange = append(r.inRange, t) }
func (r *recordingListener) OnTargetOutOfRange(t ecs.EntityID) { r.outOfRange = append(r.outOfRange, t) }
