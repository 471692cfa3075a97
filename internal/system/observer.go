package system

import (
	"time"

	"github.com/l1jgo/horde/internal/ai"
	"github.com/l1jgo/horde/internal/core/ecs"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/net"
	"github.com/l1jgo/horde/internal/net/packet"
	"github.com/l1jgo/horde/internal/replication"
	"go.uber.org/zap"
)

// SessionSource hands over newly connected observer sessions.
type SessionSource interface {
	NewSessions() <-chan *net.Session
}

// DyingSource lists dead agents whose removal is still pending.
// *RemovalQueue implements it.
type DyingSource interface {
	Each(fn func(a *ai.Agent))
}

// ObserverSystem accepts observer sessions, dispatches their control packets
// and brings each newly authenticated observer up to date with a snapshot
// of the live agents. Phase 0 (Input).
type ObserverSystem struct {
	source     SessionSource
	registry   *packet.Registry
	hub        *replication.Hub
	sched      *Scheduler
	dying      DyingSource
	welcome    []byte
	sessions   map[uint64]*net.Session
	ready      map[uint64]bool
	maxPerTick int
	log        *zap.Logger
}

func NewObserverSystem(source SessionSource, registry *packet.Registry, hub *replication.Hub, sched *Scheduler,
	welcome []byte, maxPerTick int, log *zap.Logger) *ObserverSystem {
	if log == nil {
		log = zap.NewNop()
	}
	if maxPerTick <= 0 {
		maxPerTick = 16
	}
	return &ObserverSystem{
		source:     source,
		registry:   registry,
		hub:        hub,
		sched:      sched,
		welcome:    welcome,
		sessions:   make(map[uint64]*net.Session),
		ready:      make(map[uint64]bool),
		maxPerTick: maxPerTick,
		log:        log.Named("observers"),
	}
}

func (s *ObserverSystem) Phase() coresys.Phase { return coresys.PhaseInput }

// SetDying makes snapshots include agents that died but are not yet removed,
// so a late observer still knows every entity it will see an AgentRemoved for.
func (s *ObserverSystem) SetDying(d DyingSource) { s.dying = d }

// Count is the number of connected observers, authenticated or not.
func (s *ObserverSystem) Count() int { return len(s.sessions) }

func (s *ObserverSystem) Update(_ time.Duration) {
	s.accept()

	for id, sess := range s.sessions {
		if sess.IsClosed() {
			s.drop(id)
			continue
		}

	drain:
		for i := 0; i < s.maxPerTick; i++ {
			select {
			case data := <-sess.InQueue:
				if err := s.registry.Dispatch(sess, sess.State(), data); err != nil {
					s.log.Debug("dispatch error", zap.Uint64("session", id), zap.Error(err))
				}
			default:
				break drain
			}
		}

		if sess.Ready() && !s.ready[id] {
			s.ready[id] = true
			s.sendSnapshot(sess)
		}
		// early flush: control replies go out before the simulation phases
		sess.FlushOutput()
	}
}

func (s *ObserverSystem) accept() {
	for {
		select {
		case sess := <-s.source.NewSessions():
			if err := s.hub.Add(sess); err != nil {
				s.log.Warn("observer rejected", zap.Uint64("session", sess.ID), zap.Error(err))
				sess.Close()
				continue
			}
			s.sessions[sess.ID] = sess
			sess.Send(s.welcome)
		default:
			return
		}
	}
}

func (s *ObserverSystem) drop(id uint64) {
	s.hub.Remove(id)
	delete(s.sessions, id)
	delete(s.ready, id)
	s.log.Info("observer disconnected", zap.Uint64("session", id))
}

// sendSnapshot replays AgentSpawned for every live agent to one observer.
// Agents waiting for removal follow with AgentSpawned plus DeathTriggered.
func (s *ObserverSystem) sendSnapshot(sess *net.Session) {
	tick := s.hub.Tick()
	send := func(m replication.Message) {
		m.Tick = tick
		sess.Send(replication.Encode(m))
	}
	live, dying := 0, 0
	s.sched.Each(func(_ ecs.EntityID, m Member) {
		a, ok := m.(*ai.Agent)
		if !ok || !a.Alive() {
			return
		}
		send(replication.AgentSpawned(a.ID, a.Archetype, a.Position, a.Facing))
		live++
	})
	if s.dying != nil {
		s.dying.Each(func(a *ai.Agent) {
			send(replication.AgentSpawned(a.ID, a.Archetype, a.Position, a.Facing))
			send(replication.DeathTriggered(a.ID, a.Position))
			dying++
		})
	}
	s.log.Debug("snapshot sent", zap.Uint64("session", sess.ID), zap.Int("agents", live), zap.Int("dying", dying))
}
