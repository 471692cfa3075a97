package ai

import (
	"math"
	"testing"
	"time"

	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/replication"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestAttackGating(t *testing.T) {
	w := newFakeWorld()
	a := spawnAgent(w, r3.Vec{}, testTuning(), nil)
	c := a.Attack

	if c.TryEnterAttack() {
		t.Fatal("entered without a target")
	}
	target := w.add(r3.Vec{X: 3}, 1)
	c.SetTarget(target)
	if c.TryEnterAttack() {
		t.Fatalf("entered with %v cooldown left", c.CooldownRemaining())
	}

	c.Update(1200 * time.Millisecond)
	if c.CooldownRemaining() != 0 {
		t.Fatalf("cooldown = %v, want 0", c.CooldownRemaining())
	}
	if c.TryEnterAttack() {
		t.Fatal("entered at distance 3 with threshold 2")
	}

	w.move(target, r3.Vec{X: 1.5})
	w.bodies[target].dead = true
	if c.TryEnterAttack() {
		t.Fatal("entered against a dead target")
	}
	w.bodies[target].dead = false

	if !c.TryEnterAttack() {
		t.Fatal("did not enter with every condition met")
	}
	if got := c.CooldownRemaining(); got != a.Tuning.AttackCooldown {
		t.Fatalf("cooldown after entry = %v, want %v", got, a.Tuning.AttackCooldown)
	}
	if !a.Movement.Halted() {
		t.Fatal("locomotion not halted while attacking")
	}
	if c.TryEnterAttack() {
		t.Fatal("entered while already attacking")
	}
}

func TestAttackCooldownNeverNegative(t *testing.T) {
	w := newFakeWorld()
	a := spawnAgent(w, r3.Vec{}, testTuning(), nil)
	prev := a.Attack.CooldownRemaining()
	for i := 0; i < 30; i++ {
		a.Attack.Update(tick)
		got := a.Attack.CooldownRemaining()
		if got > prev || got < 0 {
			t.Fatalf("step %d: cooldown went %v -> %v", i, prev, got)
		}
		prev = got
	}
}

// readyAttack returns an agent at the origin facing +Z with a live target
// 1.5 units ahead and an elapsed cooldown.
func readyAttack(t *testing.T, tuning Tuning, p Presenter) (*fakeWorld, *Agent, ecs.EntityID) {
	t.Helper()
	w := newFakeWorld()
	a := spawnAgent(w, r3.Vec{}, tuning, p)
	target := w.add(r3.Vec{Z: 1.5}, 1)
	a.Attack.SetTarget(target)
	a.Attack.Update(tuning.AttackCooldown)
	return w, a, target
}

func TestHitFallbackAppliesDamageOnce(t *testing.T) {
	p := &fakePresenter{}
	w, a, target := readyAttack(t, testTuning(), p)
	// the sweep clips static geometry first
	w.sphereCast = func(origin r3.Vec, _ float64, dir r3.Vec, _ float64) (Hit, bool) {
		return Hit{Point: r3.Add(origin, r3.Scale(0.2, dir)), Normal: r3.Vec{Z: -1}, Distance: 0.2}, true
	}

	if !a.Attack.TryEnterAttack() {
		t.Fatal("attack did not start")
	}
	if len(p.seqs) != 1 || w.count(replication.KindAttackStarted) != 1 {
		t.Fatalf("presentation not triggered: seqs=%v", p.seqs)
	}
	seq := p.seqs[0]
	if a.Attack.PresentationHit(seq + 1) {
		t.Fatal("stale sequence applied damage")
	}
	if !a.Attack.PresentationHit(seq) {
		t.Fatal("overlap + line of sight did not confirm the hit")
	}
	a.Attack.PresentationHit(seq)

	if len(w.damage) != 1 {
		t.Fatalf("damage applied %d times, want 1", len(w.damage))
	}
	d := w.damage[0]
	if d.target != target || d.amount != 7 || d.source != a.ID {
		t.Fatalf("damage = %+v", d)
	}
	if n := w.count(replication.KindEffect); n != 1 {
		t.Fatalf("hit effects = %d, want 1", n)
	}
}

func TestHitConfirmedBySweep(t *testing.T) {
	w, a, target := readyAttack(t, testTuning(), nil)
	w.sphereCast = func(r3.Vec, float64, r3.Vec, float64) (Hit, bool) {
		return Hit{Entity: target, Point: r3.Vec{Y: 1, Z: 1.2}, Normal: r3.Vec{Z: -1}, Distance: 0.7}, true
	}
	if !a.Attack.TryEnterAttack() {
		t.Fatal("attack did not start")
	}
	if len(w.damage) != 1 {
		t.Fatalf("damage applied %d times, want 1", len(w.damage))
	}
	m := w.replicated[len(w.replicated)-1]
	if m.Kind != replication.KindEffect || m.Position != (r3.Vec{Y: 1, Z: 1.2}) {
		t.Fatalf("hit effect = %+v", m)
	}
}

func TestHitBlockedByGeometry(t *testing.T) {
	w, a, _ := readyAttack(t, testTuning(), nil)
	crate := w.add(r3.Vec{Z: 0.8}, 3)
	w.raycast = func(r3.Vec, r3.Vec, float64) (Hit, bool) {
		return Hit{Entity: crate, Distance: 0.3}, true
	}
	w.sphereCast = func(o r3.Vec, _ float64, d r3.Vec, m float64) (Hit, bool) { return w.raycast(o, d, m) }
	if !a.Attack.TryEnterAttack() {
		t.Fatal("attack did not start")
	}
	if len(w.damage) != 0 {
		t.Fatalf("damage applied through an obstacle: %+v", w.damage)
	}
}

func TestFallbackTimerCompletesWithoutHit(t *testing.T) {
	p := &fakePresenter{}
	w, a, target := readyAttack(t, testTuning(), p)
	if !a.Attack.TryEnterAttack() {
		t.Fatal("attack did not start")
	}
	w.move(target, r3.Vec{Z: 5})
	// cooldown 1.2s + margin 0.5s
	for i := 0; i < 16; i++ {
		a.Attack.Update(tick)
		if !a.Attack.Attacking() {
			t.Fatalf("completed early at step %d", i)
		}
	}
	a.Attack.Update(tick)
	if a.Attack.Attacking() {
		t.Fatal("fallback timer did not complete the attack")
	}
	if len(w.damage) != 0 {
		t.Fatalf("fallback applied damage: %+v", w.damage)
	}
	if a.Movement.Halted() {
		t.Fatal("locomotion not resumed after the attack")
	}
}

func TestPresentationCompleteSupersedesFallback(t *testing.T) {
	p := &fakePresenter{}
	_, a, _ := readyAttack(t, testTuning(), p)
	if !a.Attack.TryEnterAttack() {
		t.Fatal("attack did not start")
	}
	a.Attack.PresentationComplete(p.seqs[0])
	if a.Attack.Attacking() {
		t.Fatal("still attacking after completion")
	}
	for i := 0; i < 30; i++ {
		a.Attack.Update(tick)
	}
	// a second completion would have re-entered with the cooldown elapsed
	if a.Attack.Seq() != 1 || a.Attack.Attacking() {
		t.Fatalf("fallback fired after completion: seq=%d attacking=%v", a.Attack.Seq(), a.Attack.Attacking())
	}
}

func TestNoPresenterChainsAttacks(t *testing.T) {
	w, a, _ := readyAttack(t, testTuning(), nil)
	if !a.Attack.TryEnterAttack() {
		t.Fatal("attack did not start")
	}
	for i := 0; i < 12; i++ {
		a.Attack.Update(tick)
	}
	if a.Attack.Seq() != 2 || len(w.damage) != 2 {
		t.Fatalf("seq=%d damage=%d, want a second attack after one cooldown", a.Attack.Seq(), len(w.damage))
	}
}

func TestRangedAttackEmitsMuzzle(t *testing.T) {
	tuning := testTuning()
	tuning.Ranged = true
	w, a, _ := readyAttack(t, tuning, nil)
	if !a.Attack.TryEnterAttack() {
		t.Fatal("attack did not start")
	}
	var ids []int32
	for _, m := range w.replicated {
		if m.Kind == replication.KindEffect {
			ids = append(ids, m.EffectID)
		}
	}
	if len(ids) != 2 || ids[0] != tuning.Hit.EffectMuzzle || ids[1] != tuning.Hit.EffectHit {
		t.Fatalf("effects = %v, want muzzle then hit", ids)
	}
}

func TestAttackTurnsTowardTarget(t *testing.T) {
	tuning := testTuning()
	tuning.TurnSpeed = math.Pi / 2
	w, a, target := readyAttack(t, tuning, &fakePresenter{})
	w.move(target, r3.Vec{X: 1.5})
	if !a.Attack.TryEnterAttack() {
		t.Fatal("attack did not start")
	}
	a.Attack.Update(tick)
	want := math.Pi / 2 * tick.Seconds()
	if math.Abs(a.Facing-want) > 1e-9 {
		t.Fatalf("facing = %v, want %v", a.Facing, want)
	}
	for i := 0; i < 20; i++ {
		a.Attack.Update(tick)
	}
	if math.Abs(a.Facing-math.Pi/2) > 1e-9 {
		t.Fatalf("facing = %v, want π/2", a.Facing)
	}
}
