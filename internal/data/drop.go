package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DropItem represents a single possible drop from an agent.
type DropItem struct {
	ItemID int32 `yaml:"item_id"`
	Min    int   `yaml:"min"`
	Max    int   `yaml:"max"`
	Chance int   `yaml:"chance"` // out of 1,000,000 (100% = 1000000)
}

type dropTableEntry struct {
	Table string     `yaml:"table"`
	Items []DropItem `yaml:"items"`
}

type dropListFile struct {
	Drops []dropTableEntry `yaml:"drops"`
}

// DropTable holds drop lists indexed by table name.
type DropTable struct {
	drops map[string][]DropItem
}

// Get returns the drop list of a table, or nil if none defined.
func (t *DropTable) Get(table string) []DropItem {
	if t == nil {
		return nil
	}
	return t.drops[table]
}

// Count returns the number of drop tables.
func (t *DropTable) Count() int {
	return len(t.drops)
}

// LoadDropTable loads drop lists from a YAML file.
func LoadDropTable(path string) (*DropTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drop_list: %w", err)
	}
	var f dropListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse drop_list: %w", err)
	}
	tables := make(map[string][]DropItem, len(f.Drops))
	for _, entry := range f.Drops {
		tables[entry.Table] = entry.Items
	}
	return NewDropTable(tables)
}

// NewDropTable builds a drop table from item lists keyed by table name.
func NewDropTable(tables map[string][]DropItem) (*DropTable, error) {
	t := &DropTable{drops: make(map[string][]DropItem, len(tables))}
	for name, items := range tables {
		for _, it := range items {
			if it.Min > it.Max {
				return nil, fmt.Errorf("drop table %q item %d: min > max", name, it.ItemID)
			}
		}
		t.drops[name] = items
	}
	return t, nil
}

// Drop is one rolled item stack.
type Drop struct {
	ItemID int32 `json:"item_id"`
	Count  int   `json:"count"`
}
