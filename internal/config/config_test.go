package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[simulation]
tick_rate = "100ms"
movement_budget = 10

[hit]
cast_radius = 0.5

[ledger]
driver = "none"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.TickRate.Duration != 100*time.Millisecond {
		t.Fatalf("tick_rate = %v, want 100ms", cfg.Simulation.TickRate)
	}
	if cfg.Simulation.MovementBudget != 10 {
		t.Fatalf("movement_budget = %d, want 10", cfg.Simulation.MovementBudget)
	}
	if cfg.Simulation.DestinationBudget != Defaults().Simulation.DestinationBudget {
		t.Fatalf("destination_budget lost its default: %d", cfg.Simulation.DestinationBudget)
	}
	if cfg.Hit.CastRadius != 0.5 {
		t.Fatalf("cast_radius = %v, want 0.5", cfg.Hit.CastRadius)
	}
	if cfg.Hit.OverlapRadius != Defaults().Hit.OverlapRadius {
		t.Fatalf("overlap_radius lost its default: %v", cfg.Hit.OverlapRadius)
	}
	if cfg.Server.StartTime == 0 {
		t.Fatal("StartTime not set")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero tick":  "[simulation]\ntick_rate = \"0s\"\n",
		"bad driver": "[ledger]\ndriver = \"mysql\"\n",
		"bad budget": "[simulation]\nmovement_budget = 0\n",
		"bad dur":    "[simulation]\ntick_rate = \"fast\"\n",
		"no damage":  "[defense]\nenabled = true\ndamage = 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
