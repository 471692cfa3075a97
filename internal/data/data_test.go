package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const archetypesYAML = `
archetypes:
  - id: grunt
    name: Grunt
    max_hp: 40
    move_speed: 3.5
    detection_range: 10
    in_range_threshold: 2
    attack_cooldown: 1.2s
    roam_radius: 6
    base_damage: 8
    reward_exp: 15
    drop_table: grunt
  - id: spitter
    name: Spitter
    max_hp: 25
    body_radius: 0.3
    move_speed: 2.5
    detection_range: 14
    in_range_threshold: 8
    attack_cooldown: 2s
    roam_radius: 5
    base_damage: 5
    ranged: true
    animated: true
`

func TestLoadArchetypeTable(t *testing.T) {
	tbl, err := LoadArchetypeTable(writeFile(t, "archetypes.yaml", archetypesYAML))
	if err != nil {
		t.Fatalf("LoadArchetypeTable: %v", err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("Count = %d, want 2", tbl.Count())
	}
	g := tbl.Get("grunt")
	if g == nil || g.AttackCooldown != 1200*time.Millisecond || g.BodyRadius != 0.4 {
		t.Fatalf("grunt = %+v", g)
	}
	s, err := tbl.Lookup("spitter")
	if err != nil || !s.Ranged || !s.Animated || s.BodyRadius != 0.3 {
		t.Fatalf("spitter = %+v, %v", s, err)
	}
	if _, err := tbl.Lookup("brute"); !errors.Is(err, ErrUnknownArchetype) {
		t.Fatalf("Lookup(brute) err = %v, want ErrUnknownArchetype", err)
	}
	if ids := tbl.IDs(); len(ids) != 2 || ids[0] != "grunt" || ids[1] != "spitter" {
		t.Fatalf("IDs = %v", ids)
	}
}

func TestLoadArchetypeTableRejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"no id":     "archetypes:\n  - max_hp: 1\n",
		"no hp":     "archetypes:\n  - id: a\n    detection_range: 5\n    in_range_threshold: 1\n    attack_cooldown: 1s\n",
		"range":     "archetypes:\n  - id: a\n    max_hp: 1\n    detection_range: 1\n    in_range_threshold: 2\n    attack_cooldown: 1s\n",
		"cooldown":  "archetypes:\n  - id: a\n    max_hp: 1\n    detection_range: 5\n    in_range_threshold: 1\n",
		"duplicate": "archetypes:\n  - {id: a, max_hp: 1, detection_range: 5, in_range_threshold: 1, attack_cooldown: 1s}\n  - {id: a, max_hp: 1, detection_range: 5, in_range_threshold: 1, attack_cooldown: 1s}\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadArchetypeTable(writeFile(t, "a.yaml", body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadSpawnList(t *testing.T) {
	tbl, err := LoadArchetypeTable(writeFile(t, "archetypes.yaml", archetypesYAML))
	if err != nil {
		t.Fatalf("LoadArchetypeTable: %v", err)
	}
	spawns, err := LoadSpawnList(writeFile(t, "spawns.yaml", `
spawns:
  - {id: 1, archetype: grunt, x: 4, z: -3, radius: 2, base_count: 3, per_day: 1.5}
`), tbl)
	if err != nil {
		t.Fatalf("LoadSpawnList: %v", err)
	}
	if len(spawns) != 1 || spawns[0].Position() != (r3.Vec{X: 4, Z: -3}) || spawns[0].PerDay != 1.5 {
		t.Fatalf("spawns = %+v", spawns)
	}

	_, err = LoadSpawnList(writeFile(t, "bad.yaml", "spawns:\n  - {id: 1, archetype: brute}\n"), tbl)
	if !errors.Is(err, ErrUnknownArchetype) {
		t.Fatalf("err = %v, want ErrUnknownArchetype", err)
	}
}

func TestLoadDropTable(t *testing.T) {
	tbl, err := LoadDropTable(writeFile(t, "drops.yaml", `
drops:
  - table: grunt
    items:
      - {item_id: 40308, min: 1, max: 20, chance: 1000000}
      - {item_id: 40010, min: 1, max: 1, chance: 50000}
`))
	if err != nil {
		t.Fatalf("LoadDropTable: %v", err)
	}
	if got := tbl.Get("grunt"); len(got) != 2 || got[0].ItemID != 40308 {
		t.Fatalf("grunt drops = %+v", got)
	}
	if tbl.Get("nothing") != nil {
		t.Fatal("unknown table returned drops")
	}
	var nilTable *DropTable
	if nilTable.Get("grunt") != nil {
		t.Fatal("nil table returned drops")
	}
}

func TestArenaLayout(t *testing.T) {
	path := writeFile(t, "arena.yaml", `
name: pit
cell_size: 2
origin: [-4, 0.5, -4]
layout: |
  ....
  .#..
  ..
obstacles:
  - {min: [0, 0, 0], max: [1, 2, 1]}
targets:
  - {name: survivor, position: [1, 0.5, 1], max_hp: 100, radius: 0.4}
`)
	a, err := LoadArena(path)
	if err != nil {
		t.Fatalf("LoadArena: %v", err)
	}
	if a.Width() != 4 || a.Depth() != 3 {
		t.Fatalf("size = %dx%d, want 4x3", a.Width(), a.Depth())
	}
	if !a.Walkable(0, 0) || a.Walkable(1, 1) || a.Walkable(3, 2) || a.Walkable(-1, 0) {
		t.Fatal("walkable cells do not match the layout")
	}
	if cx, cz := a.Cell(r3.Vec{X: -1.5, Z: -0.1}); cx != 1 || cz != 1 {
		t.Fatalf("Cell = %d,%d, want 1,1", cx, cz)
	}
	if c := a.CellCenter(0, 0); c != (r3.Vec{X: -3, Y: 0.5, Z: -3}) {
		t.Fatalf("CellCenter = %v", c)
	}
	if a.Floor() != 0.5 || len(a.Obstacles) != 1 || a.Targets[0].Pos() != (r3.Vec{X: 1, Y: 0.5, Z: 1}) {
		t.Fatalf("arena = %+v", a)
	}
}

func TestArenaRejectsBadLayout(t *testing.T) {
	if _, err := NewArena("x", 1, r3.Vec{}, "..x.\n"); err == nil {
		t.Fatal("accepted unknown cell")
	}
	if _, err := NewArena("x", 0, r3.Vec{}, "....\n"); err == nil {
		t.Fatal("accepted zero cell size")
	}
	if _, err := NewArena("x", 1, r3.Vec{}, "\n\n"); err == nil {
		t.Fatal("accepted empty layout")
	}
}
