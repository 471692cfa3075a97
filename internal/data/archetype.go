package data

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownArchetype is returned when a spawn or lookup names an archetype
// that is not in the table.
var ErrUnknownArchetype = errors.New("unknown archetype")

// Archetype holds the static data of one agent type.
type Archetype struct {
	ID               string        `yaml:"id"`
	Name             string        `yaml:"name"`
	MaxHP            int           `yaml:"max_hp"`
	BodyRadius       float64       `yaml:"body_radius"`
	MoveSpeed        float64       `yaml:"move_speed"` // units per second
	DetectionRange   float64       `yaml:"detection_range"`
	InRangeThreshold float64       `yaml:"in_range_threshold"`
	AttackCooldown   time.Duration `yaml:"attack_cooldown"`
	RoamRadius       float64       `yaml:"roam_radius"`
	BaseDamage       int           `yaml:"base_damage"`
	Ranged           bool          `yaml:"ranged"`
	Animated         bool          `yaml:"animated"` // has an attack animation
	RewardExp        int           `yaml:"reward_exp"`
	DropTable        string        `yaml:"drop_table"`
}

type archetypeListFile struct {
	Archetypes []Archetype `yaml:"archetypes"`
}

// ArchetypeTable holds all archetypes indexed by ID.
type ArchetypeTable struct {
	byID map[string]*Archetype
}

// LoadArchetypeTable loads archetypes from a YAML file.
func LoadArchetypeTable(path string) (*ArchetypeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetypes: %w", err)
	}
	var f archetypeListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse archetypes: %w", err)
	}
	t, err := NewArchetypeTable(f.Archetypes...)
	if err != nil {
		return nil, fmt.Errorf("load archetypes: %w", err)
	}
	return t, nil
}

// NewArchetypeTable builds a table from in-memory rows with the same checks
// as LoadArchetypeTable.
func NewArchetypeTable(rows ...Archetype) (*ArchetypeTable, error) {
	t := &ArchetypeTable{byID: make(map[string]*Archetype, len(rows))}
	for i := range rows {
		a := rows[i]
		if err := a.validate(); err != nil {
			return nil, fmt.Errorf("archetype %q: %w", a.ID, err)
		}
		if _, dup := t.byID[a.ID]; dup {
			return nil, fmt.Errorf("archetype %q defined twice", a.ID)
		}
		if a.BodyRadius == 0 {
			a.BodyRadius = 0.4
		}
		t.byID[a.ID] = &a
	}
	return t, nil
}

func (a *Archetype) validate() error {
	switch {
	case a.ID == "":
		return errors.New("missing id")
	case a.MaxHP <= 0:
		return errors.New("max_hp must be positive")
	case a.MoveSpeed < 0:
		return errors.New("move_speed must not be negative")
	case a.InRangeThreshold <= 0 || a.InRangeThreshold > a.DetectionRange:
		return errors.New("in_range_threshold must be in (0, detection_range]")
	case a.AttackCooldown <= 0:
		return errors.New("attack_cooldown must be positive")
	}
	return nil
}

// Get returns an archetype by ID, or nil if not found.
func (t *ArchetypeTable) Get(id string) *Archetype {
	return t.byID[id]
}

// Lookup is Get with an error for unknown IDs.
func (t *ArchetypeTable) Lookup(id string) (*Archetype, error) {
	a := t.byID[id]
	if a == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArchetype, id)
	}
	return a, nil
}

// IDs returns the archetype IDs in sorted order.
func (t *ArchetypeTable) IDs() []string {
	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of loaded archetypes.
func (t *ArchetypeTable) Count() int {
	return len(t.byID)
}
