package ai

import (
	"testing"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/replication"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestDeathIsIdempotent(t *testing.T) {
	w := newFakeWorld()
	a := spawnAgent(w, r3.Vec{X: 2}, testTuning(), nil)
	killer := w.add(r3.Vec{}, 1)

	var notified []ecs.EntityID
	a.Lifecycle.AddDeathListener(func(_ *Agent, k ecs.EntityID) {
		notified = append(notified, k)
	})

	if !a.Lifecycle.Kill(killer) {
		t.Fatal("first Kill reported no transition")
	}
	if a.Lifecycle.Kill(killer) {
		t.Fatal("second Kill reported a transition")
	}
	w.kill(a.ID, killer) // health callback after the fact

	if len(w.rewards) != 1 {
		t.Fatalf("rewards = %d, want 1", len(w.rewards))
	}
	r := w.rewards[0]
	if r.Agent != a.ID || r.Killer != killer || r.RewardExp != 15 || r.DropTable != "grunt" {
		t.Fatalf("reward = %+v", r)
	}
	if len(w.removals) != 1 {
		t.Fatalf("removals scheduled %d times, want 1", len(w.removals))
	}
	if n := w.count(replication.KindDeathTriggered); n != 1 {
		t.Fatalf("DeathTriggered sent %d times, want 1", n)
	}
	if len(notified) != 1 || notified[0] != killer {
		t.Fatalf("death listeners = %v", notified)
	}
}

func TestDeathFromHealthService(t *testing.T) {
	w := newFakeWorld()
	a := spawnAgent(w, r3.Vec{}, testTuning(), nil)
	target := w.add(r3.Vec{X: 1}, 1)
	a.Update(tick)
	if a.State() != StatePursuing {
		t.Fatalf("state = %v before death", a.State())
	}

	w.kill(a.ID, target)
	if a.Alive() || a.State() != StateDead {
		t.Fatal("agent alive after the health service reported death")
	}
	if w.bodies[a.ID].collidable {
		t.Fatal("collision still enabled")
	}
	if a.Targeting.Listeners() != 0 || a.Coordinator.Active() {
		t.Fatal("coordinator still wired")
	}
	if a.Attack.TryEnterAttack() {
		t.Fatal("dead agent entered an attack")
	}

	pos := a.Position
	a.Update(tick)
	a.Advance(tick)
	a.RecomputeDestination(tick)
	if a.Position != pos {
		t.Fatal("dead agent moved")
	}
	if len(w.rewards) != 1 {
		t.Fatalf("rewards = %d, want 1", len(w.rewards))
	}
}

func TestDeathCancelsPendingAttack(t *testing.T) {
	p := &fakePresenter{}
	w, a, _ := readyAttack(t, testTuning(), p)
	if !a.Attack.TryEnterAttack() {
		t.Fatal("attack did not start")
	}
	a.Lifecycle.Kill(0)
	if a.Attack.PresentationHit(p.seqs[0]) {
		t.Fatal("hit landed after death")
	}
	if len(w.damage) != 0 {
		t.Fatalf("damage after death: %+v", w.damage)
	}
}

func TestCoordinatorActivation(t *testing.T) {
	w := newFakeWorld()
	a := spawnAgent(w, r3.Vec{}, testTuning(), nil)
	a.Activate()
	a.Activate()
	if n := a.Targeting.Listeners(); n != 1 {
		t.Fatalf("listeners after re-activation = %d, want 1", n)
	}

	svc := w.services()
	svc.Authoritative = false
	id := w.add(r3.Vec{X: 1}, 2)
	replica := NewAgent(id, Spec{Archetype: "grunt", Tuning: testTuning()}, svc)
	replica.Activate()
	if replica.Coordinator.Active() || replica.Targeting.Listeners() != 0 {
		t.Fatal("coordinator wired on a replica")
	}
}
