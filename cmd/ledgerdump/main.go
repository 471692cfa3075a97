// ledgerdump exports the newest kill ledger rows as YAML, grouped by
// archetype with per-item drop totals.
//
// Usage:
//
//	go run ./cmd/ledgerdump [-n 500] [-o kills.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/l1jgo/horde/internal/config"
	"github.com/l1jgo/horde/internal/persist"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type killYAML struct {
	Agent    string        `yaml:"agent"`
	Killer   string        `yaml:"killer,omitempty"`
	SpawnID  int           `yaml:"spawn_id"`
	Day      int           `yaml:"day"`
	Exp      int           `yaml:"exp"`
	Position [3]float64    `yaml:"position,flow"`
	Drops    map[int32]int `yaml:"drops,omitempty"`
	At       string        `yaml:"at"`
}

type archetypeYAML struct {
	Archetype string        `yaml:"archetype"`
	Kills     int           `yaml:"kills"`
	Exp       int           `yaml:"exp"`
	Items     map[int32]int `yaml:"items,omitempty"`
	Recent    []killYAML    `yaml:"recent"`
}

type dumpYAML struct {
	Exported   string          `yaml:"exported"`
	Rows       int             `yaml:"rows"`
	Archetypes []archetypeYAML `yaml:"archetypes"`
}

func main() {
	limit := flag.Int("n", 500, "newest rows to export")
	output := flag.String("o", "", "output file (default stdout)")
	flag.Parse()

	cfgPath := "config/server.toml"
	if p := os.Getenv("HORDE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal("load config: %v", err)
	}
	if cfg.Ledger.Driver == "none" {
		fatal("ledger is disabled in %s", cfgPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := persist.Open(ctx, cfg.Ledger, zap.NewNop())
	if err != nil {
		fatal("open ledger: %v", err)
	}
	defer db.Close()

	kills, err := db.RecentKills(ctx, *limit)
	if err != nil {
		fatal("query: %v", err)
	}

	byArch := make(map[string]*archetypeYAML)
	for _, k := range kills {
		a := byArch[k.Archetype]
		if a == nil {
			a = &archetypeYAML{Archetype: k.Archetype, Items: make(map[int32]int)}
			byArch[k.Archetype] = a
		}
		a.Kills++
		a.Exp += k.RewardExp
		row := killYAML{
			Agent:    k.Agent.String(),
			SpawnID:  k.SpawnID,
			Day:      k.Day,
			Exp:      k.RewardExp,
			Position: [3]float64{k.Position.X, k.Position.Y, k.Position.Z},
			At:       k.At.UTC().Format(time.RFC3339),
		}
		if k.Killer != 0 {
			row.Killer = k.Killer.String()
		}
		if len(k.Drops) > 0 {
			row.Drops = make(map[int32]int, len(k.Drops))
			for _, d := range k.Drops {
				row.Drops[d.ItemID] += d.Count
				a.Items[d.ItemID] += d.Count
			}
		}
		a.Recent = append(a.Recent, row)
	}

	out := dumpYAML{Exported: time.Now().UTC().Format(time.RFC3339), Rows: len(kills)}
	for _, a := range byArch {
		out.Archetypes = append(out.Archetypes, *a)
	}
	sort.Slice(out.Archetypes, func(i, j int) bool {
		return out.Archetypes[i].Archetype < out.Archetypes[j].Archetype
	})

	yamlData, err := yaml.Marshal(&out)
	if err != nil {
		fatal("marshal: %v", err)
	}
	if *output == "" {
		os.Stdout.Write(yamlData)
		return
	}
	header := fmt.Sprintf("# Kill ledger export (%s)\n\n", db.Dialect)
	if err := os.WriteFile(*output, append([]byte(header), yamlData...), 0o644); err != nil {
		fatal("write %s: %v", *output, err)
	}
	fmt.Printf("wrote %d kills to %s\n", len(kills), *output)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ledgerdump: "+format+"\n", args...)
	os.Exit(1)
}
