package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Simulation SimulationConfig `toml:"simulation"`
	Targeting  TargetingConfig  `toml:"targeting"`
	Movement   MovementConfig   `toml:"movement"`
	Attack     AttackConfig     `toml:"attack"`
	Hit        HitConfig        `toml:"hit"`
	Population PopulationConfig `toml:"population"`
	Defense    DefenseConfig    `toml:"defense"`
	Ledger     LedgerConfig     `toml:"ledger"`
	Observer   ObserverConfig   `toml:"observer"`
	Journal    JournalConfig    `toml:"journal"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Logging    LoggingConfig    `toml:"logging"`
	Data       DataConfig       `toml:"data"`
}

// Duration lets TOML carry durations as strings ("200ms", "1.2s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type ServerConfig struct {
	Name      string `toml:"name"`
	ID        int    `toml:"id"`
	Seed      int64  `toml:"seed"`
	StartTime int64  // set at boot, not from config
}

type SimulationConfig struct {
	TickRate            Duration `toml:"tick_rate"`
	MovementBudget      int      `toml:"movement_budget"`    // agents advanced per tick
	DestinationBudget   int      `toml:"destination_budget"` // agents recomputed per destination pass
	DestinationInterval Duration `toml:"destination_interval"`
	RemovalGrace        Duration `toml:"removal_grace"` // death presentation time before observers lose the entity
	TransformInterval   Duration `toml:"transform_interval"`
}

type TargetingConfig struct {
	ScanInterval    Duration `toml:"scan_interval"`
	SampleTolerance float64  `toml:"sample_tolerance"`
	TargetLayer     uint32   `toml:"target_layer"`
}

type MovementConfig struct {
	RoamDelay       Duration `toml:"roam_delay"`
	ArriveThreshold float64  `toml:"arrive_threshold"`
}

type AttackConfig struct {
	TurnSpeedDeg   float64  `toml:"turn_speed_deg"` // degrees per second
	FallbackMargin Duration `toml:"fallback_margin"`

	// server-side attack animation timing for archetypes with animated: true
	AnimHitDelay Duration `toml:"anim_hit_delay"`
	AnimLength   Duration `toml:"anim_length"`
}

// HitConfig holds the hit-confirmation tolerances. These are tuning values.
type HitConfig struct {
	CastRadius     float64 `toml:"cast_radius"`
	OverlapRadius  float64 `toml:"overlap_radius"`
	ForwardOffset  float64 `toml:"forward_offset"`
	OriginHeight   float64 `toml:"origin_height"`
	RangeSlack     float64 `toml:"range_slack"`
	EffectIDHit    int32   `toml:"effect_id_hit"`
	EffectIDMuzzle int32   `toml:"effect_id_muzzle"`
}

type PopulationConfig struct {
	DayLength     Duration `toml:"day_length"`
	MaxPopulation int      `toml:"max_population"`
	RespawnDelay  Duration `toml:"respawn_delay"` // per spawn point, after a death
}

// DefenseConfig arms the arena's map targets: each shoots the nearest agent
// in sight and a downed target gets back up after ReviveDelay.
type DefenseConfig struct {
	Enabled     bool     `toml:"enabled"`
	Damage      int      `toml:"damage"`
	Range       float64  `toml:"range"`
	Cooldown    Duration `toml:"cooldown"`
	ReviveDelay Duration `toml:"revive_delay"` // 0 = downed targets stay down
}

type LedgerConfig struct {
	Driver          string   `toml:"driver"` // "postgres", "sqlite" or "none"
	DSN             string   `toml:"dsn"`
	MaxOpenConns    int      `toml:"max_open_conns"`
	MaxIdleConns    int      `toml:"max_idle_conns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime"`
	QueueSize       int      `toml:"queue_size"`
}

type ObserverConfig struct {
	TCPBind          string `toml:"tcp_bind"` // empty disables the TCP listener
	WSBind           string `toml:"ws_bind"`  // empty disables the WebSocket listener
	PasswordHash     string `toml:"password_hash"`
	Charset          string `toml:"charset"`
	InQueueSize      int    `toml:"in_queue_size"`
	OutQueueSize     int    `toml:"out_queue_size"`
	MaxObservers     int    `toml:"max_observers"`
	MaxPacketsPerSec int    `toml:"max_packets_per_sec"` // control packets; 0 = unlimited
}

type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type TelemetryConfig struct {
	Enabled bool     `toml:"enabled"`
	Dir     string   `toml:"dir"`
	Window  Duration `toml:"window"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type DataConfig struct {
	Archetypes string `toml:"archetypes"`
	Spawns     string `toml:"spawns"`
	Drops      string `toml:"drops"`
	Arena      string `toml:"arena"`
	Scripts    string `toml:"scripts"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Simulation.TickRate.Duration <= 0 {
		return fmt.Errorf("simulation.tick_rate must be positive")
	}
	if c.Simulation.MovementBudget <= 0 || c.Simulation.DestinationBudget <= 0 {
		return fmt.Errorf("simulation budgets must be positive")
	}
	if c.Attack.AnimHitDelay.Duration > c.Attack.AnimLength.Duration {
		return fmt.Errorf("attack.anim_hit_delay exceeds attack.anim_length")
	}
	if c.Defense.Enabled && (c.Defense.Damage <= 0 || c.Defense.Range <= 0 || c.Defense.Cooldown.Duration <= 0) {
		return fmt.Errorf("defense damage, range and cooldown must be positive")
	}
	switch c.Ledger.Driver {
	case "postgres", "sqlite", "none", "":
	default:
		return fmt.Errorf("ledger.driver %q not supported", c.Ledger.Driver)
	}
	return nil
}

// Defaults returns the configuration used when a key is absent from the file.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "horde",
			ID:   1,
			Seed: 1,
		},
		Simulation: SimulationConfig{
			TickRate:            Duration{50 * time.Millisecond},
			MovementBudget:      64,
			DestinationBudget:   16,
			DestinationInterval: Duration{250 * time.Millisecond},
			RemovalGrace:        Duration{3 * time.Second},
			TransformInterval:   Duration{100 * time.Millisecond},
		},
		Targeting: TargetingConfig{
			ScanInterval:    Duration{500 * time.Millisecond},
			SampleTolerance: 1.0,
			TargetLayer:     1,
		},
		Movement: MovementConfig{
			RoamDelay:       Duration{4 * time.Second},
			ArriveThreshold: 0.5,
		},
		Attack: AttackConfig{
			TurnSpeedDeg:   360,
			FallbackMargin: Duration{500 * time.Millisecond},
			AnimHitDelay:   Duration{400 * time.Millisecond},
			AnimLength:     Duration{900 * time.Millisecond},
		},
		Hit: HitConfig{
			CastRadius:     0.35,
			OverlapRadius:  0.75,
			ForwardOffset:  0.5,
			OriginHeight:   1.0,
			RangeSlack:     0.5,
			EffectIDHit:    1,
			EffectIDMuzzle: 2,
		},
		Population: PopulationConfig{
			DayLength:     Duration{5 * time.Minute},
			MaxPopulation: 512,
			RespawnDelay:  Duration{10 * time.Second},
		},
		Defense: DefenseConfig{
			Enabled:     true,
			Damage:      8,
			Range:       8,
			Cooldown:    Duration{time.Second},
			ReviveDelay: Duration{30 * time.Second},
		},
		Ledger: LedgerConfig{
			Driver:          "sqlite",
			DSN:             "horde.db",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: Duration{30 * time.Minute},
			QueueSize:       1024,
		},
		Observer: ObserverConfig{
			TCPBind:          "0.0.0.0:7101",
			WSBind:           "0.0.0.0:7102",
			Charset:          "utf-8",
			InQueueSize:      16,
			OutQueueSize:     512,
			MaxObservers:     64,
			MaxPacketsPerSec: 20,
		},
		Journal: JournalConfig{
			Enabled: false,
			Dir:     "journal",
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
			Dir:     "telemetry",
			Window:  Duration{10 * time.Second},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Data: DataConfig{
			Archetypes: "data/yaml/archetypes.yaml",
			Spawns:     "data/yaml/spawns.yaml",
			Drops:      "data/yaml/drops.yaml",
			Arena:      "data/yaml/arena.yaml",
			Scripts:    "scripts",
		},
	}
}
