package system

import (
	"sort"
	"time"

	"github.com/l1jgo/horde/internal/ai"
	"github.com/l1jgo/horde/internal/config"
	"github.com/l1jgo/horde/internal/core/ecs"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/geom"
	"github.com/l1jgo/horde/internal/replication"
	"github.com/l1jgo/horde/internal/world"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

type defender struct {
	id       ecs.EntityID
	cooldown time.Duration
	downFor  time.Duration
}

// ShotRequest is one queued defender shot.
type ShotRequest struct {
	Defender ecs.EntityID
	Agent    ecs.EntityID
	Point    r3.Vec
	Normal   r3.Vec
}

// DefenderSystem lets map targets fight back. A standing defender shoots the
// closest agent in line of sight whenever its cooldown allows; a downed one
// is revived to full HP after the revive delay. Phase 2 (Update).
//
// Shots queued while aiming are applied once every defender has aimed.
type DefenderSystem struct {
	cfg        config.DefenseConfig
	effectID   int32
	world      *world.State
	replicator ai.Replicator

	defenders []*defender
	guarded   map[ecs.EntityID]bool
	requests  []ShotRequest

	shots   uint64
	revives uint64

	log *zap.Logger
}

func NewDefenderSystem(cfg config.DefenseConfig, effectID int32, ws *world.State, replicator ai.Replicator, log *zap.Logger) *DefenderSystem {
	if log == nil {
		log = zap.NewNop()
	}
	if replicator == nil {
		replicator = nopReplicate{}
	}
	return &DefenderSystem{
		cfg:        cfg,
		effectID:   effectID,
		world:      ws,
		replicator: replicator,
		guarded:    make(map[ecs.EntityID]bool),
		log:        log.Named("defense"),
	}
}

func (s *DefenderSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

// Guard arms a map target. Guarding the same entity twice is a no-op.
func (s *DefenderSystem) Guard(id ecs.EntityID) {
	if s.guarded[id] {
		return
	}
	s.guarded[id] = true
	s.defenders = append(s.defenders, &defender{id: id})
}

func (s *DefenderSystem) Len() int        { return len(s.defenders) }
func (s *DefenderSystem) Shots() uint64   { return s.shots }
func (s *DefenderSystem) Revives() uint64 { return s.revives }

// QueueShot adds a shot to be applied at the end of this tick's update.
func (s *DefenderSystem) QueueShot(req ShotRequest) {
	s.requests = append(s.requests, req)
}

func (s *DefenderSystem) Update(dt time.Duration) {
	for _, d := range s.defenders {
		b, ok := s.world.Body(d.id)
		if !ok || b.Dead {
			continue
		}
		if b.Incapacitated {
			s.tickDowned(d, dt)
			continue
		}
		if d.cooldown > 0 {
			d.cooldown -= dt
			if d.cooldown > 0 {
				continue
			}
		}
		if s.aim(d, b) {
			d.cooldown = s.cfg.Cooldown.Duration
		}
	}

	for _, req := range s.requests {
		s.fire(req)
	}
	s.requests = s.requests[:0]
}

func (s *DefenderSystem) tickDowned(d *defender, dt time.Duration) {
	if s.cfg.ReviveDelay.Duration <= 0 {
		return
	}
	d.downFor += dt
	if d.downFor < s.cfg.ReviveDelay.Duration {
		return
	}
	d.downFor = 0
	d.cooldown = s.cfg.Cooldown.Duration
	s.world.Revive(d.id)
	s.revives++
	s.log.Info("defender revived", zap.Stringer("id", d.id))
}

// aim picks the closest live agent within range that a ray from the
// defender reaches unobstructed. Ties go to the lower entity ID.
func (s *DefenderSystem) aim(d *defender, b *world.Body) bool {
	origin := r3.Add(b.Position, r3.Vec{Y: b.Height / 2})

	type candidate struct {
		id     ecs.EntityID
		center r3.Vec
		dist   float64
	}
	var cands []candidate
	for _, id := range s.world.QueryNearby(b.Position, s.cfg.Range, world.LayerAgent) {
		ab, ok := s.world.Body(id)
		if !ok || ab.Dead || !ab.Collidable {
			continue
		}
		c := r3.Add(ab.Position, r3.Vec{Y: ab.Height / 2})
		cands = append(cands, candidate{id: id, center: c, dist: r3.Norm(r3.Sub(c, origin))})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].id < cands[j].id
	})

	for _, c := range cands {
		dir, dist := geom.Direction(origin, c.center)
		if dist == 0 {
			s.QueueShot(ShotRequest{Defender: d.id, Agent: c.id, Point: c.center, Normal: r3.Vec{Y: 1}})
			return true
		}
		hit, ok := s.world.Raycast(origin, dir, dist, d.id)
		if !ok || hit.Entity != c.id {
			continue
		}
		s.QueueShot(ShotRequest{Defender: d.id, Agent: c.id, Point: hit.Point, Normal: hit.Normal})
		return true
	}
	return false
}

func (s *DefenderSystem) fire(req ShotRequest) {
	if s.world.IsDead(req.Agent) {
		return
	}
	s.shots++
	s.replicator.Replicate(replication.Effect(req.Defender, req.Point, req.Normal, s.effectID))
	s.world.ApplyDamage(req.Agent, s.cfg.Damage, req.Defender)
}

type nopReplicate struct{}

func (nopReplicate) Replicate(replication.Message) {}
