package ai

import (
	"math"
	"testing"
	"time"

	"github.com/l1jgo/horde/internal/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestRoamPicksReachablePoint(t *testing.T) {
	w := newFakeWorld()
	a := spawnAgent(w, r3.Vec{X: 3, Z: 3}, testTuning(), nil)
	a.RecomputeDestination(0)
	dest, ok := a.Movement.Destination()
	if !ok {
		t.Fatal("no roam destination after first pass")
	}
	if d := geom.PlanarDistance(a.Position, dest); d > a.Tuning.RoamRadius {
		t.Fatalf("roam point %v is %v away, radius %v", dest, d, a.Tuning.RoamRadius)
	}

	// same seed and position, same point
	b := spawnAgent(w, r3.Vec{X: 3, Z: 3}, testTuning(), nil)
	b.RecomputeDestination(0)
	if got, _ := b.Movement.Destination(); got != dest {
		t.Fatalf("roam not deterministic: %v vs %v", got, dest)
	}
}

func TestRoamSampleFailureKeepsDestination(t *testing.T) {
	w := newFakeWorld()
	a := spawnAgent(w, r3.Vec{}, testTuning(), nil)
	a.RecomputeDestination(0)
	first, _ := a.Movement.Destination()

	w.sampleFail = true
	a.RecomputeDestination(3 * time.Second)
	if got, _ := a.Movement.Destination(); got != first {
		t.Fatalf("destination changed to %v on failed sample", got)
	}

	w.sampleFail = false
	a.RecomputeDestination(0)
	if got, _ := a.Movement.Destination(); got == first {
		t.Fatal("no retry after the sample recovered")
	}
}

func TestRoamWaitsForDelay(t *testing.T) {
	w := newFakeWorld()
	tuning := testTuning()
	tuning.ArriveThreshold = 0
	a := spawnAgent(w, r3.Vec{}, tuning, nil)
	a.RecomputeDestination(0)
	first, _ := a.Movement.Destination()
	a.RecomputeDestination(time.Second)
	if got, _ := a.Movement.Destination(); got != first {
		t.Fatal("roam point replaced before the delay elapsed")
	}
}

func TestPursuitFollowsTarget(t *testing.T) {
	w := newFakeWorld()
	a := spawnAgent(w, r3.Vec{}, testTuning(), nil)
	target := w.add(r3.Vec{X: 10}, 1)

	a.Movement.SetTarget(target)
	if dest, _ := a.Movement.Destination(); dest != (r3.Vec{X: 10}) {
		t.Fatalf("destination = %v, want target position", dest)
	}
	a.Advance(time.Second)
	if a.Position != (r3.Vec{X: 4}) {
		t.Fatalf("position = %v after 1s at speed 4", a.Position)
	}
	if math.Abs(a.Facing-math.Pi/2) > 1e-9 {
		t.Fatalf("facing = %v, want π/2", a.Facing)
	}
	if !a.TakeTransformDirty() || a.TakeTransformDirty() {
		t.Fatal("transform dirty flag not set once")
	}

	w.move(target, r3.Vec{X: 4, Z: 6})
	a.RecomputeDestination(time.Second)
	if dest, _ := a.Movement.Destination(); dest != (r3.Vec{X: 4, Z: 6}) {
		t.Fatalf("destination = %v, want moved target", dest)
	}
}

func TestHaltStopsLocomotion(t *testing.T) {
	w := newFakeWorld()
	a := spawnAgent(w, r3.Vec{}, testTuning(), nil)
	target := w.add(r3.Vec{X: 10}, 1)
	a.Movement.SetTarget(target)

	a.Movement.Halt()
	a.Advance(time.Second)
	if a.Position != (r3.Vec{}) {
		t.Fatalf("moved while halted: %v", a.Position)
	}
	a.Movement.Resume()
	a.Advance(time.Second)
	if a.Position == (r3.Vec{}) {
		t.Fatal("did not move after Resume")
	}

	a.Movement.Stop()
	a.Movement.Resume()
	pos := a.Position
	a.Advance(time.Second)
	if a.Position != pos {
		t.Fatal("moved after Stop")
	}
}
