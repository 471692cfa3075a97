package system

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/l1jgo/horde/internal/ai"
	"github.com/l1jgo/horde/internal/config"
	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/core/event"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/geom"
	"github.com/l1jgo/horde/internal/replication"
	"github.com/l1jgo/horde/internal/world"
	"go.uber.org/zap"
)

// PopulationCurve gives a spawn point's target count on a game day.
type PopulationCurve interface {
	PopulationForDay(base int, perDay float64, day int) (int, error)
}

// LinearCurve is base + floor(perDay * day).
type LinearCurve struct{}

func (LinearCurve) PopulationForDay(base int, perDay float64, day int) (int, error) {
	return base + int(math.Floor(perDay*float64(day))), nil
}

type spawnSlot struct {
	point  data.SpawnPoint
	arch   *data.Archetype
	active int
	target int
	delay  time.Duration // respawn countdown after a death
}

// Spawner keeps every spawn point at its target count for the current game
// day, within the population cap. It counts deaths through event.AgentDied.
// Phase 3 (PostUpdate).
type Spawner struct {
	cfg      *config.Config
	world    *world.State
	pool     *ecs.EntityPool
	sched    *Scheduler
	bus      *event.Bus
	svc      ai.Services
	curve    PopulationCurve
	animator *Animator
	rng      *rand.Rand

	slots   []*spawnSlot
	byID    map[int]*spawnSlot
	day     int
	live    int
	spawned uint64
	deaths  uint64

	log *zap.Logger
}

func NewSpawner(cfg *config.Config, ws *world.State, archetypes *data.ArchetypeTable, points []data.SpawnPoint,
	pool *ecs.EntityPool, sched *Scheduler, bus *event.Bus, svc ai.Services, log *zap.Logger) (*Spawner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Spawner{
		cfg:   cfg,
		world: ws,
		pool:  pool,
		sched: sched,
		bus:   bus,
		svc:   svc,
		curve: LinearCurve{},
		rng:   rand.New(rand.NewSource(cfg.Server.Seed)),
		byID:  make(map[int]*spawnSlot, len(points)),
		log:   log.Named("spawner"),
	}
	for _, p := range points {
		arch, err := archetypes.Lookup(p.Archetype)
		if err != nil {
			return nil, fmt.Errorf("spawn %d: %w", p.ID, err)
		}
		sl := &spawnSlot{point: p, arch: arch}
		s.slots = append(s.slots, sl)
		s.byID[p.ID] = sl
	}
	s.retarget()
	event.Subscribe(bus, s.onAgentDied)
	return s, nil
}

func (s *Spawner) Phase() coresys.Phase { return coresys.PhasePostUpdate }

// SetCurve replaces the population curve and recomputes targets.
func (s *Spawner) SetCurve(c PopulationCurve) {
	s.curve = c
	s.retarget()
}

// SetAnimator makes animated archetypes present their attacks through an.
func (s *Spawner) SetAnimator(an *Animator) { s.animator = an }

// SetDay moves the spawner to game day n and recomputes every target count.
func (s *Spawner) SetDay(n int) {
	if n == s.day {
		return
	}
	s.day = n
	s.retarget()
	s.log.Info("day changed", zap.Int("day", n), zap.Int("target", s.TargetTotal()))
}

func (s *Spawner) Day() int        { return s.day }
func (s *Spawner) Live() int       { return s.live }
func (s *Spawner) Spawned() uint64 { return s.spawned }
func (s *Spawner) Deaths() uint64  { return s.deaths }

// Active returns the live count of a spawn point.
func (s *Spawner) Active(spawnID int) int {
	if sl, ok := s.byID[spawnID]; ok {
		return sl.active
	}
	return 0
}

// Target returns the wanted count of a spawn point for the current day.
func (s *Spawner) Target(spawnID int) int {
	if sl, ok := s.byID[spawnID]; ok {
		return sl.target
	}
	return 0
}

func (s *Spawner) TargetTotal() int {
	n := 0
	for _, sl := range s.slots {
		n += sl.target
	}
	return n
}

func (s *Spawner) retarget() {
	for _, sl := range s.slots {
		n, err := s.curve.PopulationForDay(sl.point.BaseCount, sl.point.PerDay, s.day)
		if err != nil {
			s.log.Warn("population curve failed, using linear",
				zap.Int("spawn", sl.point.ID), zap.Int("day", s.day), zap.Error(err))
			n, _ = LinearCurve{}.PopulationForDay(sl.point.BaseCount, sl.point.PerDay, s.day)
		}
		if n < 0 {
			n = 0
		}
		sl.target = n
	}
}

func (s *Spawner) Update(dt time.Duration) {
	limit := s.cfg.Population.MaxPopulation
	for _, sl := range s.slots {
		if sl.delay > 0 {
			sl.delay -= dt
			if sl.delay > 0 {
				continue
			}
			sl.delay = 0
		}
		for sl.active < sl.target && (limit <= 0 || s.live < limit) {
			if !s.spawn(sl) {
				break
			}
		}
	}
}

func (s *Spawner) spawn(sl *spawnSlot) bool {
	tol := s.cfg.Targeting.SampleTolerance
	center := sl.point.Position()
	pos, ok := s.world.SampleOnSurface(geom.RandomInDisk(s.rng, center, sl.point.Radius), tol)
	if !ok {
		if pos, ok = s.world.SampleOnSurface(center, tol); !ok {
			s.log.Debug("no walkable spawn position", zap.Int("spawn", sl.point.ID))
			return false
		}
	}

	arch := sl.arch
	id := s.pool.Create()
	body := s.world.Spawn(world.Body{
		ID:       id,
		Name:     arch.Name,
		Position: pos,
		Radius:   arch.BodyRadius,
		Layer:    world.LayerAgent,
		MaxHP:    arch.MaxHP,
	})
	facing := geom.NormalizeAngle(s.rng.Float64() * 2 * math.Pi)

	var presenter ai.Presenter
	if arch.Animated && s.animator != nil {
		presenter = s.animator
	}
	a := ai.NewAgent(id, ai.Spec{
		Archetype: arch.ID,
		SpawnID:   sl.point.ID,
		Position:  body.Position,
		Facing:    facing,
		Tuning:    NewTuning(s.cfg, arch),
		Seed:      s.cfg.Server.Seed + int64(s.spawned),
		Presenter: presenter,
	}, s.svc)
	if presenter != nil {
		s.animator.Bind(a)
	}
	a.Lifecycle.AddDeathListener(func(dead *ai.Agent, killer ecs.EntityID) {
		event.Emit(s.bus, event.AgentDied{
			Agent:     dead.ID,
			Archetype: dead.Archetype,
			SpawnID:   dead.SpawnID,
			Killer:    killer,
			Position:  dead.Position,
		})
	})
	s.sched.RegisterAgent(a)
	a.Activate()

	if s.svc.Replicator != nil {
		s.svc.Replicator.Replicate(replication.AgentSpawned(id, arch.ID, body.Position, facing))
	}
	event.Emit(s.bus, event.AgentSpawned{Agent: id, Archetype: arch.ID, SpawnID: sl.point.ID, Position: body.Position})

	sl.active++
	s.live++
	s.spawned++
	s.log.Debug("agent spawned",
		zap.Stringer("agent", id),
		zap.String("archetype", arch.ID),
		zap.Int("spawn", sl.point.ID),
	)
	return true
}

func (s *Spawner) onAgentDied(ev event.AgentDied) {
	s.deaths++
	s.live--
	sl, ok := s.byID[ev.SpawnID]
	if !ok {
		return
	}
	sl.active--
	sl.delay = s.cfg.Population.RespawnDelay.Duration
}
