package ai

import (
	"math/rand"
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/geom"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// MovementController roams when no target is held and pursues otherwise.
// It only chooses destinations; locomotion is Navigation.SteerToward.
type MovementController struct {
	agent   *Agent
	spatial SpatialQuery
	nav     Navigation
	rng     *rand.Rand
	log     *zap.Logger

	target         ecs.EntityID
	destination    r3.Vec
	hasDestination bool
	roamTimer      time.Duration
	halted         bool
	stopped        bool
}

func newMovementController(a *Agent, spatial SpatialQuery, nav Navigation, rng *rand.Rand, log *zap.Logger) *MovementController {
	return &MovementController{agent: a, spatial: spatial, nav: nav, rng: rng, log: log}
}

// SetTarget switches to pursuit and heads for the target right away.
func (m *MovementController) SetTarget(target ecs.EntityID) {
	if m.stopped {
		return
	}
	m.target = target
	if pos, ok := m.spatial.Position(target); ok {
		m.destination = pos
		m.hasDestination = true
	}
}

// ClearTarget switches back to roaming; a new roam point is picked on the
// next destination pass.
func (m *MovementController) ClearTarget() {
	m.target = 0
	m.roamTimer = 0
}

func (m *MovementController) Target() ecs.EntityID { return m.target }
func (m *MovementController) Pursuing() bool       { return m.target != 0 && !m.stopped }
func (m *MovementController) Halted() bool         { return m.halted }

func (m *MovementController) Destination() (r3.Vec, bool) {
	return m.destination, m.hasDestination
}

// Halt freezes locomotion until Resume.
func (m *MovementController) Halt() {
	m.halted = true
	m.nav.Halt(m.agent.ID)
}

func (m *MovementController) Resume() {
	if !m.stopped {
		m.halted = false
	}
}

// Stop halts for good.
func (m *MovementController) Stop() {
	m.stopped = true
	m.target = 0
	m.Halt()
}

// Advance steps toward the current destination.
func (m *MovementController) Advance(dt time.Duration) {
	if m.stopped || m.halted || !m.hasDestination || dt <= 0 {
		return
	}
	a := m.agent
	if geom.PlanarDistance(a.Position, m.destination) <= a.Tuning.ArriveThreshold {
		return
	}
	prev := a.Position
	next := m.nav.SteerToward(a.ID, m.destination, a.Tuning.MoveSpeed, dt)
	a.setPosition(next)
	if step := geom.Flat(r3.Sub(next, prev)); r3.Norm(step) > 1e-6 {
		a.setFacing(geom.Yaw(step))
	}
}

// Recompute refreshes the destination. Pursuit follows the target's current
// position; roaming picks a new point when the roam timer runs out or the
// agent has arrived.
func (m *MovementController) Recompute(elapsed time.Duration) {
	if m.stopped {
		return
	}
	a := m.agent
	if m.target != 0 {
		if pos, ok := m.spatial.Position(m.target); ok {
			m.destination = pos
			m.hasDestination = true
		}
		return
	}

	m.roamTimer -= elapsed
	arrived := !m.hasDestination ||
		geom.PlanarDistance(a.Position, m.destination) <= a.Tuning.ArriveThreshold
	if m.roamTimer > 0 && !arrived {
		return
	}
	p := geom.RandomInDisk(m.rng, a.Position, a.Tuning.RoamRadius)
	sample, ok := m.nav.SampleOnSurface(p, a.Tuning.SampleTolerance)
	if !ok {
		// keep the old destination, try again next pass
		m.log.Debug("roam sample failed", zap.Float64("x", p.X), zap.Float64("z", p.Z))
		return
	}
	m.destination = sample
	m.hasDestination = true
	m.roamTimer = a.Tuning.RoamDelay
}
