package system

import (
	"testing"
	"time"

	"github.com/l1jgo/horde/internal/config"
	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/replication"
	"github.com/l1jgo/horde/internal/world"
	"gonum.org/v1/gonum/spatial/r3"
)

const defenderEffect = 9

func defenseConfig(damage int, rng float64) config.DefenseConfig {
	return config.DefenseConfig{
		Enabled:     true,
		Damage:      damage,
		Range:       rng,
		Cooldown:    config.Duration{Duration: 300 * time.Millisecond},
		ReviveDelay: config.Duration{Duration: time.Second},
	}
}

func (h *harness) addDefender(cfg config.DefenseConfig, pos r3.Vec, hp int) (*DefenderSystem, ecs.EntityID) {
	id := h.pool.Create()
	h.world.Spawn(world.Body{ID: id, Name: "survivor", Position: pos, Radius: 0.4, Layer: world.LayerTarget, MaxHP: hp, Downable: true})
	d := NewDefenderSystem(cfg, defenderEffect, h.world, h.out, nil)
	d.Guard(id)
	d.Guard(id)
	h.runner.Register(d)
	return d, id
}

func TestDefenderKillsAgentInSight(t *testing.T) {
	h := newHarness(t, testConfig(), data.SpawnPoint{ID: 1, Archetype: "grunt", X: 13, Z: 10, BaseCount: 1})
	d, id := h.addDefender(defenseConfig(1000, 8), r3.Vec{X: 10, Z: 10}, 500)
	if d.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after guarding twice", d.Len())
	}
	h.run(1)
	victim := h.agents()[0].ID
	h.run(3)

	if !h.world.IsDead(victim) {
		t.Fatal("agent in range survived a lethal shot")
	}
	if d.Shots() != 1 || h.out.effects(defenderEffect) != 1 {
		t.Fatalf("shots=%d effects=%d, want 1", d.Shots(), h.out.effects(defenderEffect))
	}
	if n := h.out.count(replication.KindEffect, id); n == 0 {
		t.Fatal("shot effect not attributed to the defender")
	}
	if h.out.count(replication.KindDeathTriggered, victim) != 1 {
		t.Fatal("DeathTriggered not replicated for the killed agent")
	}
	if h.spawner.Deaths() != 1 || h.removals.Len() != 1 {
		t.Fatalf("deaths=%d pending removals=%d, want 1 and 1", h.spawner.Deaths(), h.removals.Len())
	}
}

func TestDefenderPicksClosestAndRespectsCooldown(t *testing.T) {
	h := newHarness(t, testConfig(),
		data.SpawnPoint{ID: 1, Archetype: "spitter", X: 16, Z: 10, BaseCount: 1},
		data.SpawnPoint{ID: 2, Archetype: "spitter", X: 13, Z: 10, BaseCount: 1},
	)
	d, _ := h.addDefender(defenseConfig(1, 8), r3.Vec{X: 10, Z: 10}, 500)
	h.run(1)
	var near, far ecs.EntityID
	for _, a := range h.agents() {
		if a.Position.X < 14 {
			near = a.ID
		} else {
			far = a.ID
		}
	}
	h.run(1)

	nearHP, _, _ := h.world.HealthOf(near)
	farHP, _, _ := h.world.HealthOf(far)
	if nearHP != spitter.MaxHP-1 || farHP != spitter.MaxHP {
		t.Fatalf("near=%d far=%d, want the closer agent hit once", nearHP, farHP)
	}
	// 300ms cooldown at 100ms frames
	h.run(2)
	if d.Shots() != 1 {
		t.Fatalf("shots = %d during cooldown, want 1", d.Shots())
	}
	h.run(1)
	if d.Shots() != 2 {
		t.Fatalf("shots = %d after cooldown, want 2", d.Shots())
	}
}

func TestDefenderIgnoresAgentsOutOfRange(t *testing.T) {
	h := newHarness(t, testConfig(), data.SpawnPoint{ID: 1, Archetype: "spitter", X: 18, Z: 18, BaseCount: 1})
	d, _ := h.addDefender(defenseConfig(1000, 4), r3.Vec{X: 2, Z: 2}, 500)
	h.run(5)
	if d.Shots() != 0 || h.spawner.Deaths() != 0 {
		t.Fatalf("shots=%d deaths=%d, want none", d.Shots(), h.spawner.Deaths())
	}
}

func TestDownedDefenderRevives(t *testing.T) {
	h := newHarness(t, testConfig(), data.SpawnPoint{ID: 1, Archetype: "spitter", X: 13, Z: 10, BaseCount: 1})
	d, id := h.addDefender(defenseConfig(1, 8), r3.Vec{X: 10, Z: 10}, 50)
	h.world.ApplyDamage(id, 50, 0)
	if !h.world.IsIncapacitated(id) {
		t.Fatal("defender not downed at 0 HP")
	}

	h.run(5)
	if d.Shots() != 0 {
		t.Fatalf("downed defender fired %d shots", d.Shots())
	}
	if d.Revives() != 0 {
		t.Fatal("revived before the delay")
	}

	h.run(5)
	hp, maxHP, _ := h.world.HealthOf(id)
	if d.Revives() != 1 || h.world.IsIncapacitated(id) || hp != maxHP {
		t.Fatalf("revives=%d downed=%v hp=%d/%d", d.Revives(), h.world.IsIncapacitated(id), hp, maxHP)
	}

	// back in the fight once the post-revive cooldown runs out
	h.run(4)
	if d.Shots() == 0 {
		t.Fatal("revived defender never fired")
	}
}
