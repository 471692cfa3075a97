package world

import (
	"math"
	"time"

	"github.com/l1jgo/horde/internal/ai"
	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/geom"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Collision layers.
const (
	LayerTarget uint32 = 1 // players and map targets agents may hunt
	LayerAgent  uint32 = 2
)

// WallHeight is the height of blocked layout cells for casts.
const WallHeight = 3.0

// Body is the physical and health state of one entity in the world.
// Position is the feet point; the collision sphere sits at half height.
type Body struct {
	ID         ecs.EntityID
	Name       string
	Position   r3.Vec
	Radius     float64
	Height     float64
	Layer      uint32
	Collidable bool
	Moving     bool

	HP            int
	MaxHP         int
	Dead          bool
	Incapacitated bool // downed: alive but not a valid target
	// Downable bodies are incapacitated at 0 HP instead of dying.
	Downable bool
}

func (b *Body) center() r3.Vec {
	return r3.Add(b.Position, r3.Vec{Y: b.Height / 2})
}

type deathSub struct {
	token uint64
	fn    func(killer ecs.EntityID)
}

// State is the in-memory reference world: it implements ai.SpatialQuery,
// ai.Navigation and ai.Health over an arena map.
// Accessed only from the game loop goroutine, no locks.
type State struct {
	arena  *data.Arena
	nav    *NavGrid
	aoi    *AOIGrid
	bodies *ecs.Store[Body]

	maxBodyRadius float64
	deathSubs     map[ecs.EntityID][]deathSub
	nextToken     uint64

	log *zap.Logger
}

var (
	_ ai.SpatialQuery = (*State)(nil)
	_ ai.Navigation   = (*State)(nil)
	_ ai.Health       = (*State)(nil)
)

func NewState(arena *data.Arena, log *zap.Logger) *State {
	if log == nil {
		log = zap.NewNop()
	}
	return &State{
		arena:     arena,
		nav:       NewNavGrid(arena),
		aoi:       NewAOIGrid(4 * arena.CellSize),
		bodies:    ecs.NewStore[Body](),
		deathSubs: make(map[ecs.EntityID][]deathSub),
		log:       log.Named("world"),
	}
}

func (s *State) Arena() *data.Arena { return s.arena }
func (s *State) Nav() *NavGrid      { return s.nav }
func (s *State) BodyCount() int     { return s.bodies.Len() }

// Spawn places a body. The position is snapped to the floor.
func (s *State) Spawn(b Body) *Body {
	b.Position.Y = s.arena.Floor()
	b.Collidable = true
	if b.HP == 0 {
		b.HP = b.MaxHP
	}
	if b.Height == 0 {
		b.Height = 2 * math.Max(b.Radius, 0.5)
	}
	body := &b
	s.bodies.Set(b.ID, body)
	s.aoi.Add(b.ID, b.Position)
	if b.Radius > s.maxBodyRadius {
		s.maxBodyRadius = b.Radius
	}
	return body
}

// Despawn removes a body and drops its death subscriptions.
func (s *State) Despawn(id ecs.EntityID) {
	b, ok := s.bodies.Get(id)
	if !ok {
		return
	}
	s.aoi.Remove(id, b.Position)
	s.bodies.Remove(id)
	delete(s.deathSubs, id)
}

func (s *State) Body(id ecs.EntityID) (*Body, bool) { return s.bodies.Get(id) }

// Move teleports a body, used for externally driven targets.
func (s *State) Move(id ecs.EntityID, p r3.Vec) {
	b, ok := s.bodies.Get(id)
	if !ok {
		return
	}
	p.Y = s.arena.Floor()
	s.aoi.Move(id, b.Position, p)
	b.Position = p
}

// ---------- SpatialQuery ----------

func (s *State) QueryNearby(point r3.Vec, radius float64, layer uint32) []ecs.EntityID {
	var out []ecs.EntityID
	for _, id := range s.aoi.Nearby(point, radius) {
		b, ok := s.bodies.Get(id)
		if !ok || b.Layer&layer == 0 {
			continue
		}
		if geom.Distance(point, b.Position) <= radius {
			out = append(out, id)
		}
	}
	return out
}

func (s *State) Raycast(origin, dir r3.Vec, maxDist float64, ignore ecs.EntityID) (ai.Hit, bool) {
	return s.cast(origin, 0, dir, maxDist, ignore)
}

func (s *State) SphereCast(origin r3.Vec, radius float64, dir r3.Vec, maxDist float64, ignore ecs.EntityID) (ai.Hit, bool) {
	return s.cast(origin, radius, dir, maxDist, ignore)
}

// cast sweeps a sphere of radius r (0 for a ray) and returns the closest
// body, obstacle or wall it touches.
func (s *State) cast(origin r3.Vec, r float64, dir r3.Vec, maxDist float64, ignore ecs.EntityID) (ai.Hit, bool) {
	n := r3.Norm(dir)
	if n == 0 || maxDist <= 0 {
		return ai.Hit{}, false
	}
	dir = r3.Scale(1/n, dir)

	best := ai.Hit{Distance: math.Inf(1)}
	found := false
	take := func(t float64, normal r3.Vec, id ecs.EntityID) {
		if t < best.Distance {
			at := r3.Add(origin, r3.Scale(t, dir))
			best = ai.Hit{Entity: id, Point: r3.Sub(at, r3.Scale(r, normal)), Normal: normal, Distance: t}
			found = true
		}
	}

	mid := r3.Add(origin, r3.Scale(maxDist/2, dir))
	for _, id := range s.aoi.Nearby(mid, maxDist/2+r+s.maxBodyRadius) {
		b, ok := s.bodies.Get(id)
		if !ok || id == ignore || !b.Collidable {
			continue
		}
		c := b.center()
		if t, ok := raySphere(origin, dir, maxDist, c, b.Radius+r); ok {
			at := r3.Add(origin, r3.Scale(t, dir))
			normal, _ := geom.Direction(c, at)
			if normal == (r3.Vec{}) {
				normal = r3.Scale(-1, dir)
			}
			take(t, normal, id)
		}
	}

	for _, o := range s.arena.Obstacles {
		lo, hi := inflate(o.MinVec(), o.MaxVec(), r)
		if t, normal, ok := rayBox(origin, dir, maxDist, lo, hi); ok {
			take(t, normal, 0)
		}
	}

	end := r3.Add(origin, r3.Scale(maxDist, dir))
	x0, z0 := s.arena.Cell(r3.Vec{X: math.Min(origin.X, end.X) - r, Z: math.Min(origin.Z, end.Z) - r})
	x1, z1 := s.arena.Cell(r3.Vec{X: math.Max(origin.X, end.X) + r, Z: math.Max(origin.Z, end.Z) + r})
	floor := s.arena.Floor()
	for cz := z0; cz <= z1; cz++ {
		for cx := x0; cx <= x1; cx++ {
			if s.arena.Walkable(cx, cz) {
				continue
			}
			c := s.arena.CellCenter(cx, cz)
			h := s.arena.CellSize / 2
			lo, hi := inflate(r3.Vec{X: c.X - h, Y: floor, Z: c.Z - h}, r3.Vec{X: c.X + h, Y: floor + WallHeight, Z: c.Z + h}, r)
			if t, normal, ok := rayBox(origin, dir, maxDist, lo, hi); ok {
				take(t, normal, 0)
			}
		}
	}
	return best, found
}

func (s *State) Overlap(point r3.Vec, radius float64) []ecs.EntityID {
	var out []ecs.EntityID
	for _, id := range s.aoi.Nearby(point, radius+s.maxBodyRadius) {
		b, ok := s.bodies.Get(id)
		if !ok || !b.Collidable {
			continue
		}
		if geom.Distance(point, b.center()) <= radius+b.Radius {
			out = append(out, id)
		}
	}
	return out
}

func (s *State) Position(id ecs.EntityID) (r3.Vec, bool) {
	b, ok := s.bodies.Get(id)
	if !ok {
		return r3.Vec{}, false
	}
	return b.Position, true
}

func (s *State) SetCollidable(id ecs.EntityID, collidable bool) {
	if b, ok := s.bodies.Get(id); ok {
		b.Collidable = collidable
	}
}

// ---------- Navigation ----------

func (s *State) SampleOnSurface(point r3.Vec, tolerance float64) (r3.Vec, bool) {
	return s.nav.Sample(point, tolerance)
}

func (s *State) IsPathFeasible(from, to r3.Vec) bool {
	return s.nav.Connected(from, to)
}

// SteerToward moves the body up to speed*dt toward destination, detouring
// along the cell route when the straight line is blocked and sliding along
// walls when the step itself would leave the walkable surface.
func (s *State) SteerToward(id ecs.EntityID, destination r3.Vec, speed float64, dt time.Duration) r3.Vec {
	b, ok := s.bodies.Get(id)
	if !ok {
		return destination
	}
	pos := b.Position
	goal := destination
	if !s.nav.LineClear(pos, destination) {
		if wp, ok := s.nav.Waypoint(pos, destination); ok {
			goal = wp
		}
	}
	dir, dist := geom.Direction(geom.Flat(pos), geom.Flat(goal))
	step := math.Min(speed*dt.Seconds(), dist)
	if step <= 0 {
		b.Moving = false
		return pos
	}
	next := r3.Add(pos, r3.Scale(step, dir))
	if !s.nav.Walkable(next) {
		switch {
		case s.nav.Walkable(r3.Vec{X: next.X, Y: pos.Y, Z: pos.Z}):
			next = r3.Vec{X: next.X, Y: pos.Y, Z: pos.Z}
		case s.nav.Walkable(r3.Vec{X: pos.X, Y: pos.Y, Z: next.Z}):
			next = r3.Vec{X: pos.X, Y: pos.Y, Z: next.Z}
		default:
			b.Moving = false
			return pos
		}
	}
	next.Y = s.arena.Floor()
	s.aoi.Move(id, pos, next)
	b.Position = next
	b.Moving = true
	return next
}

func (s *State) Halt(id ecs.EntityID) {
	if b, ok := s.bodies.Get(id); ok {
		b.Moving = false
	}
}

// ---------- Health ----------

func (s *State) IsIncapacitated(id ecs.EntityID) bool {
	b, ok := s.bodies.Get(id)
	return ok && b.Incapacitated
}

func (s *State) IsDead(id ecs.EntityID) bool {
	b, ok := s.bodies.Get(id)
	return ok && b.Dead
}

// ApplyDamage lowers HP. At zero a downable body is incapacitated and any
// other body dies, firing its death callbacks once.
func (s *State) ApplyDamage(id ecs.EntityID, amount int, source ecs.EntityID) {
	b, ok := s.bodies.Get(id)
	if !ok || b.Dead || amount <= 0 {
		return
	}
	b.HP -= amount
	if b.HP > 0 {
		return
	}
	b.HP = 0
	if b.Downable {
		if !b.Incapacitated {
			b.Incapacitated = true
			s.log.Debug("body downed", zap.Stringer("id", id), zap.Stringer("by", source))
		}
		return
	}
	b.Dead = true
	subs := s.deathSubs[id]
	delete(s.deathSubs, id)
	for _, sub := range subs {
		sub.fn(source)
	}
}

// HealthOf returns current and maximum HP.
func (s *State) HealthOf(id ecs.EntityID) (hp, maxHP int, ok bool) {
	b, ok := s.bodies.Get(id)
	if !ok {
		return 0, 0, false
	}
	return b.HP, b.MaxHP, true
}

// Revive restores a downed or dead body to full health.
func (s *State) Revive(id ecs.EntityID) {
	if b, ok := s.bodies.Get(id); ok {
		b.HP = b.MaxHP
		b.Dead = false
		b.Incapacitated = false
	}
}

func (s *State) OnDeath(id ecs.EntityID, fn func(killer ecs.EntityID)) func() {
	s.nextToken++
	token := s.nextToken
	s.deathSubs[id] = append(s.deathSubs[id], deathSub{token: token, fn: fn})
	return func() {
		subs := s.deathSubs[id]
		for i, sub := range subs {
			if sub.token == token {
				s.deathSubs[id] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}
