package data

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// SpawnPoint keeps a number of agents of one archetype alive around a
// position. The target count grows with the game day.
type SpawnPoint struct {
	ID        int     `yaml:"id"`
	Archetype string  `yaml:"archetype"`
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Z         float64 `yaml:"z"`
	Radius    float64 `yaml:"radius"`     // spawn scatter
	BaseCount int     `yaml:"base_count"` // agents on day 0
	PerDay    float64 `yaml:"per_day"`    // growth per game day
}

func (p SpawnPoint) Position() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

type spawnListFile struct {
	Spawns []SpawnPoint `yaml:"spawns"`
}

// LoadSpawnList loads spawn points from a YAML file. Every archetype named
// must exist in archetypes.
func LoadSpawnList(path string, archetypes *ArchetypeTable) ([]SpawnPoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn_list: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawn_list: %w", err)
	}
	seen := make(map[int]bool, len(f.Spawns))
	for _, p := range f.Spawns {
		if seen[p.ID] {
			return nil, fmt.Errorf("spawn %d defined twice", p.ID)
		}
		seen[p.ID] = true
		if archetypes != nil {
			if _, err := archetypes.Lookup(p.Archetype); err != nil {
				return nil, fmt.Errorf("spawn %d: %w", p.ID, err)
			}
		}
	}
	return f.Spawns, nil
}
