package system

import (
	"time"

	"github.com/l1jgo/horde/internal/ai"
	"github.com/l1jgo/horde/internal/core/ecs"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"go.uber.org/zap"
)

// Member is what the scheduler drives. *ai.Agent implements it.
type Member interface {
	Update(dt time.Duration)
	Advance(dt time.Duration)
	RecomputeDestination(elapsed time.Duration)
}

type slot struct {
	id     ecs.EntityID
	member Member
	dead   bool

	// time since this member's last advance / recompute
	moveElapsed time.Duration
	destElapsed time.Duration
}

// SchedulerStats are cumulative counters since the scheduler was created.
type SchedulerStats struct {
	Ticks      uint64
	Advanced   uint64
	Recomputed uint64
	Skipped    uint64 // dead slots visited by a pass
	Flushed    uint64 // slots compacted away
}

// Scheduler owns the live agent registry and spreads movement and destination
// work over frames with two round-robin cursors. Unregister only marks a
// slot; slots are compacted at the start of the next tick, never during a
// pass. Phase 2 (Update).
type Scheduler struct {
	slots   []slot
	index   map[ecs.EntityID]int
	pending int

	moveCursor int
	destCursor int

	movementBudget    int
	destinationBudget int
	destInterval      time.Duration
	destTimer         time.Duration

	stats SchedulerStats
	log   *zap.Logger
}

func NewScheduler(movementBudget, destinationBudget int, destInterval time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		index:             make(map[ecs.EntityID]int),
		movementBudget:    movementBudget,
		destinationBudget: destinationBudget,
		destInterval:      destInterval,
		log:               log.Named("scheduler"),
	}
}

func (s *Scheduler) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *Scheduler) Update(dt time.Duration) {
	s.Tick(dt, s.movementBudget, s.destinationBudget)
}

// Register adds m under id. Registering a live id again is a no-op.
func (s *Scheduler) Register(id ecs.EntityID, m Member) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = len(s.slots)
	s.slots = append(s.slots, slot{id: id, member: m})
	return true
}

// RegisterAgent registers a and unregisters it when it dies.
func (s *Scheduler) RegisterAgent(a *ai.Agent) bool {
	if !s.Register(a.ID, a) {
		return false
	}
	a.Lifecycle.AddDeathListener(func(dead *ai.Agent, _ ecs.EntityID) {
		s.Unregister(dead.ID)
	})
	return true
}

// Unregister marks id dead. It receives no further calls; the slot is
// compacted on the next tick.
func (s *Scheduler) Unregister(id ecs.EntityID) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	delete(s.index, id)
	s.slots[i].dead = true
	s.pending++
	return true
}

func (s *Scheduler) Contains(id ecs.EntityID) bool {
	_, ok := s.index[id]
	return ok
}

// Len is the number of live members.
func (s *Scheduler) Len() int { return len(s.index) }

func (s *Scheduler) Stats() SchedulerStats { return s.stats }

// Each calls fn for every live member in registry order.
func (s *Scheduler) Each(fn func(id ecs.EntityID, m Member)) {
	for i := range s.slots {
		if !s.slots[i].dead {
			fn(s.slots[i].id, s.slots[i].member)
		}
	}
}

// Tick runs one frame: flush removals, run every live member's local update,
// advance up to movementBudget members and, when the destination timer is
// due, recompute up to destinationBudget destinations.
func (s *Scheduler) Tick(dt time.Duration, movementBudget, destinationBudget int) {
	s.stats.Ticks++
	s.flush()
	if len(s.slots) == 0 {
		return
	}

	for i := range s.slots {
		sl := &s.slots[i]
		if sl.dead {
			continue
		}
		sl.moveElapsed += dt
		sl.destElapsed += dt
		sl.member.Update(dt)
	}

	s.moveCursor = s.pass(s.moveCursor, movementBudget, func(sl *slot) {
		elapsed := sl.moveElapsed
		sl.moveElapsed = 0
		sl.member.Advance(elapsed)
		s.stats.Advanced++
	})

	due := s.destTimer <= 0
	s.destTimer -= dt
	if !due {
		return
	}
	s.destTimer += s.destInterval
	if s.destTimer < 0 {
		s.destTimer = 0
	}
	s.destCursor = s.pass(s.destCursor, destinationBudget, func(sl *slot) {
		elapsed := sl.destElapsed
		sl.destElapsed = 0
		sl.member.RecomputeDestination(elapsed)
		s.stats.Recomputed++
	})
}

// pass visits min(budget, len) slots starting at cursor and returns the new
// cursor. Dead slots, including ones marked during this pass, are skipped
// but still use up a visit.
func (s *Scheduler) pass(cursor, budget int, fn func(*slot)) int {
	n := len(s.slots)
	if budget > n {
		budget = n
	}
	for k := 0; k < budget; k++ {
		sl := &s.slots[cursor]
		cursor = (cursor + 1) % n
		if sl.dead {
			s.stats.Skipped++
			continue
		}
		fn(sl)
	}
	return cursor
}

// flush compacts dead slots. The cursors are not reset to 0: each moves left
// by the number of removed slots before it, so the next pass resumes at the
// same survivor and no survivor is skipped or visited twice in a cycle.
func (s *Scheduler) flush() {
	if s.pending == 0 {
		return
	}
	moveShift, destShift := 0, 0
	live := s.slots[:0]
	for i, sl := range s.slots {
		if sl.dead {
			if i < s.moveCursor {
				moveShift++
			}
			if i < s.destCursor {
				destShift++
			}
			continue
		}
		s.index[sl.id] = len(live)
		live = append(live, sl)
	}
	for i := len(live); i < len(s.slots); i++ {
		s.slots[i] = slot{}
	}
	removed := len(s.slots) - len(live)
	s.slots = live
	s.pending = 0
	s.stats.Flushed += uint64(removed)

	s.moveCursor = wrap(s.moveCursor-moveShift, len(live))
	s.destCursor = wrap(s.destCursor-destShift, len(live))
	s.log.Debug("flushed", zap.Int("removed", removed), zap.Int("live", len(live)))
}

func wrap(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	return cursor % n
}
