package system

import (
	"time"

	"github.com/l1jgo/horde/internal/ai"
	"github.com/l1jgo/horde/internal/core/ecs"
	coresys "github.com/l1jgo/horde/internal/core/system"
)

type clip struct {
	agent   ecs.EntityID
	seq     uint32
	elapsed time.Duration
	hit     bool
}

// Animator is the server-side attack animation clock for animated
// archetypes: it reports the strike frame after hitDelay and the end of the
// clip after length. Register it after the Scheduler. Phase 2 (Update).
type Animator struct {
	agents   map[ecs.EntityID]*ai.Agent
	playing  []clip
	hitDelay time.Duration
	length   time.Duration
}

var _ ai.Presenter = (*Animator)(nil)

func NewAnimator(hitDelay, length time.Duration) *Animator {
	return &Animator{
		agents:   make(map[ecs.EntityID]*ai.Agent),
		hitDelay: hitDelay,
		length:   length,
	}
}

func (an *Animator) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (an *Animator) Animated() bool { return true }

// Bind lets the animator call back into a. The binding ends when a dies.
func (an *Animator) Bind(a *ai.Agent) {
	an.agents[a.ID] = a
	a.Lifecycle.AddDeathListener(func(dead *ai.Agent, _ ecs.EntityID) {
		delete(an.agents, dead.ID)
	})
}

func (an *Animator) TriggerAttack(agent ecs.EntityID, seq uint32) {
	an.playing = append(an.playing, clip{agent: agent, seq: seq})
}

// Playing is the number of clips in progress.
func (an *Animator) Playing() int { return len(an.playing) }

func (an *Animator) Update(dt time.Duration) {
	if len(an.playing) == 0 {
		return
	}
	clips := an.playing
	an.playing = nil // callbacks may start the next attack
	keep := clips[:0]
	for _, c := range clips {
		a, ok := an.agents[c.agent]
		if !ok {
			continue
		}
		c.elapsed += dt
		if !c.hit && c.elapsed >= an.hitDelay {
			c.hit = true
			a.Attack.PresentationHit(c.seq)
		}
		if c.elapsed >= an.length {
			a.Attack.PresentationComplete(c.seq)
			continue
		}
		keep = append(keep, c)
	}
	an.playing = append(keep, an.playing...)
}
