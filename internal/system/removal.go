package system

import (
	"time"

	"github.com/l1jgo/horde/internal/ai"
	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/core/event"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/replication"
	"go.uber.org/zap"
)

// Despawner removes an entity's body from the world.
type Despawner interface {
	Despawn(id ecs.EntityID)
}

type pendingRemoval struct {
	agent     *ai.Agent
	remaining time.Duration
}

// RemovalQueue holds dead agents until their death presentation has played
// out, then removes them for observers, despawns the body and frees the
// handle. Phase 3 (PostUpdate).
type RemovalQueue struct {
	pending []pendingRemoval
	queued  map[ecs.EntityID]bool

	replicator ai.Replicator
	world      Despawner
	pool       *ecs.EntityPool
	bus        *event.Bus
	log        *zap.Logger
}

func NewRemovalQueue(replicator ai.Replicator, world Despawner, pool *ecs.EntityPool, bus *event.Bus, log *zap.Logger) *RemovalQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &RemovalQueue{
		queued:     make(map[ecs.EntityID]bool),
		replicator: replicator,
		world:      world,
		pool:       pool,
		bus:        bus,
		log:        log.Named("removal"),
	}
}

func (q *RemovalQueue) Phase() coresys.Phase { return coresys.PhasePostUpdate }

// ScheduleRemoval queues a once; later calls for the same agent are ignored.
func (q *RemovalQueue) ScheduleRemoval(a *ai.Agent, grace time.Duration) {
	if q.queued[a.ID] {
		return
	}
	q.queued[a.ID] = true
	q.pending = append(q.pending, pendingRemoval{agent: a, remaining: grace})
}

func (q *RemovalQueue) Len() int { return len(q.pending) }

// Each calls fn for every dead agent still visible to observers, in death
// order.
func (q *RemovalQueue) Each(fn func(a *ai.Agent)) {
	for _, p := range q.pending {
		fn(p.agent)
	}
}

func (q *RemovalQueue) Update(dt time.Duration) {
	if len(q.pending) == 0 {
		return
	}
	keep := q.pending[:0]
	for _, p := range q.pending {
		p.remaining -= dt
		if p.remaining > 0 {
			keep = append(keep, p)
			continue
		}
		q.remove(p.agent.ID)
	}
	for i := len(keep); i < len(q.pending); i++ {
		q.pending[i] = pendingRemoval{}
	}
	q.pending = keep
}

func (q *RemovalQueue) remove(id ecs.EntityID) {
	delete(q.queued, id)
	if q.replicator != nil {
		q.replicator.Replicate(replication.AgentRemoved(id))
	}
	if q.world != nil {
		q.world.Despawn(id)
	}
	if q.pool != nil {
		q.pool.Destroy(id)
	}
	if q.bus != nil {
		event.Emit(q.bus, event.AgentRemoved{Agent: id})
	}
	q.log.Debug("agent removed", zap.Stringer("agent", id))
}
