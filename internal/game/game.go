// Package game wires the loaded data, the world and every simulation system
// into one runnable server.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/l1jgo/horde/internal/ai"
	"github.com/l1jgo/horde/internal/config"
	"github.com/l1jgo/horde/internal/core/ecs"
	"github.com/l1jgo/horde/internal/core/event"
	coresys "github.com/l1jgo/horde/internal/core/system"
	"github.com/l1jgo/horde/internal/data"
	"github.com/l1jgo/horde/internal/journal"
	gonet "github.com/l1jgo/horde/internal/net"
	"github.com/l1jgo/horde/internal/net/packet"
	"github.com/l1jgo/horde/internal/persist"
	"github.com/l1jgo/horde/internal/replication"
	"github.com/l1jgo/horde/internal/scripting"
	"github.com/l1jgo/horde/internal/system"
	"github.com/l1jgo/horde/internal/telemetry"
	"github.com/l1jgo/horde/internal/world"
	"go.uber.org/zap"
)

// Server owns everything the game loop ticks. Fields are read-only after New.
type Server struct {
	Config     *config.Config
	Archetypes *data.ArchetypeTable
	Spawns     []data.SpawnPoint
	Drops      *data.DropTable
	Arena      *data.Arena

	World     *world.State
	Scripts   *scripting.Engine // nil without a scripts dir
	DB        *persist.DB       // nil when the ledger is disabled
	Ledger    *persist.Ledger
	Hub       *replication.Hub
	Spawner   *system.Spawner
	Rewards   *system.Rewards
	Removals  *system.RemovalQueue
	Defense   *system.DefenderSystem // nil when defense is disabled
	Observers *system.ObserverSystem
	Net       *gonet.Server
	Runner    *coresys.Runner

	recorder  *journal.Recorder
	telemetry *telemetry.Output
	closed    bool
	log       *zap.Logger
}

// New loads the static data named in cfg and builds the server. Listeners
// with an empty bind address stay off. On error everything opened so far is
// closed again.
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{Config: cfg, log: log}
	if err := s.build(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) build() error {
	cfg, log := s.Config, s.log
	var err error

	if err := packet.SetCharset(cfg.Observer.Charset); err != nil {
		return fmt.Errorf("observer charset: %w", err)
	}

	// static data
	if s.Archetypes, err = data.LoadArchetypeTable(cfg.Data.Archetypes); err != nil {
		return fmt.Errorf("load archetypes: %w", err)
	}
	if s.Spawns, err = data.LoadSpawnList(cfg.Data.Spawns, s.Archetypes); err != nil {
		return fmt.Errorf("load spawns: %w", err)
	}
	if s.Drops, err = data.LoadDropTable(cfg.Data.Drops); err != nil {
		return fmt.Errorf("load drops: %w", err)
	}
	if s.Arena, err = data.LoadArena(cfg.Data.Arena); err != nil {
		return fmt.Errorf("load arena: %w", err)
	}

	// scripts; a missing scripts dir leaves the built-in formulas in place
	if cfg.Data.Scripts != "" {
		if s.Scripts, err = scripting.NewEngine(cfg.Data.Scripts, log); err != nil {
			return fmt.Errorf("scripts: %w", err)
		}
		if err := s.Scripts.Seed(cfg.Server.Seed); err != nil {
			return fmt.Errorf("seed scripts: %w", err)
		}
	}

	// kill ledger
	if cfg.Ledger.Driver != "none" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if s.DB, err = persist.Open(ctx, cfg.Ledger, log); err != nil {
			return fmt.Errorf("ledger: %w", err)
		}
		if err := persist.RunMigrations(ctx, s.DB); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		s.Ledger = persist.NewLedger(s.DB, cfg.Ledger.QueueSize, log)
	}

	// replication hub and journal
	s.Hub = replication.NewHub(cfg.Observer.MaxObservers, log)
	if cfg.Journal.Enabled {
		s.recorder = journal.NewRecorder(journal.NewWriter(cfg.Journal.Dir, "replication"), 4096, log)
		s.Hub.SetRecorder(s.recorder.Record)
	}

	// world and map targets
	pool := ecs.NewEntityPool()
	s.World = world.NewState(s.Arena, log)
	if cfg.Defense.Enabled {
		s.Defense = system.NewDefenderSystem(cfg.Defense, cfg.Hit.EffectIDHit, s.World, s.Hub, log)
	}
	for _, t := range s.Arena.Targets {
		id := pool.Create()
		s.World.Spawn(world.Body{
			ID:       id,
			Name:     t.Name,
			Position: t.Pos(),
			Radius:   t.Radius,
			Layer:    world.LayerTarget,
			MaxHP:    t.MaxHP,
			Downable: true,
		})
		if s.Defense != nil {
			s.Defense.Guard(id)
		}
	}

	// simulation systems
	bus := event.NewBus()
	sched := system.NewScheduler(
		cfg.Simulation.MovementBudget,
		cfg.Simulation.DestinationBudget,
		cfg.Simulation.DestinationInterval.Duration,
		log,
	)
	s.Removals = system.NewRemovalQueue(s.Hub, s.World, pool, bus, log)

	var roller system.DropRoller = system.NewRandomRoller(cfg.Server.Seed)
	var formula system.DamageFormula
	if s.Scripts != nil {
		roller = s.Scripts
		formula = s.Scripts
	}
	var ledger system.KillLedger
	if s.Ledger != nil {
		ledger = s.Ledger
	}
	s.Rewards = system.NewRewards(s.Drops, roller, ledger, log)

	svc := ai.Services{
		Spatial:       s.World,
		Nav:           s.World,
		Health:        s.World,
		Replicator:    s.Hub,
		Rewards:       s.Rewards,
		Removals:      s.Removals,
		Log:           log,
		RemovalGrace:  cfg.Simulation.RemovalGrace.Duration,
		Authoritative: true,
	}
	var damage *system.ScriptedDamage
	if formula != nil {
		damage = system.NewScriptedDamage(formula, s.World)
		svc.Damage = damage
	}

	animator := system.NewAnimator(cfg.Attack.AnimHitDelay.Duration, cfg.Attack.AnimLength.Duration)
	if s.Spawner, err = system.NewSpawner(cfg, s.World, s.Archetypes, s.Spawns, pool, sched, bus, svc, log); err != nil {
		return fmt.Errorf("spawner: %w", err)
	}
	s.Spawner.SetAnimator(animator)
	if s.Scripts != nil && s.Scripts.Has("population_for_day") {
		s.Spawner.SetCurve(s.Scripts)
	}

	clock := system.NewDayClock(cfg.Population.DayLength.Duration, bus, log)
	clock.OnDay(s.Spawner.SetDay)
	clock.OnDay(s.Rewards.SetDay)
	if damage != nil {
		clock.OnDay(damage.SetDay)
	}

	// observer network
	auth := gonet.NewAuthenticator(cfg.Observer.PasswordHash)
	s.Net = gonet.NewServer(cfg.Observer.InQueueSize, cfg.Observer.OutQueueSize, cfg.Observer.MaxPacketsPerSec, log)
	if cfg.Observer.TCPBind != "" {
		if err := s.Net.ListenTCP(cfg.Observer.TCPBind); err != nil {
			return fmt.Errorf("tcp listen: %w", err)
		}
		go s.Net.AcceptLoop()
	}
	if cfg.Observer.WSBind != "" {
		if err := s.Net.ListenWS(cfg.Observer.WSBind); err != nil {
			return fmt.Errorf("websocket listen: %w", err)
		}
	}
	pktReg := packet.NewRegistry(log)
	gonet.RegisterControl(pktReg, auth, log)
	welcome := gonet.WelcomePacket(gonet.ServerInfo{
		Name:     cfg.Server.Name,
		ID:       cfg.Server.ID,
		TickRate: cfg.Simulation.TickRate.Duration,
	}, auth.Required())
	s.Observers = system.NewObserverSystem(s.Net, pktReg, s.Hub, sched, welcome, cfg.Observer.InQueueSize, log)
	s.Observers.SetDying(s.Removals)

	if cfg.Telemetry.Enabled {
		if s.telemetry, err = telemetry.NewOutput(cfg.Telemetry.Dir, time.Now()); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	// systems, sorted by phase on the first tick
	s.Runner = coresys.NewRunner()
	s.Runner.Register(s.Observers)
	s.Runner.Register(system.NewEventDispatchSystem(bus))
	s.Runner.Register(clock)
	s.Runner.Register(sched)
	s.Runner.Register(animator)
	if s.Defense != nil {
		s.Runner.Register(s.Defense)
	}
	s.Runner.Register(s.Spawner)
	s.Runner.Register(s.Removals)
	s.Runner.Register(system.NewTransformReplication(sched, s.Hub, cfg.Simulation.TransformInterval.Duration))
	s.Runner.Register(s.Hub)
	if s.telemetry != nil {
		s.Runner.Register(system.NewTelemetrySampler(sched, s.Spawner, s.Observers.Count, s.telemetry, cfg.Telemetry.Window.Duration, log))
	}
	return nil
}

// Tick advances the simulation by one frame.
func (s *Server) Tick(dt time.Duration) { s.Runner.Tick(dt) }

// Close stops the listeners, drains the ledger and releases every resource.
// Calling it again is a no-op.
func (s *Server) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.Hub != nil {
		s.Hub.Close()
	}
	if s.Net != nil {
		s.Net.Shutdown()
	}

	var errs []error
	if s.Ledger != nil {
		s.Ledger.Close()
		s.log.Info("ledger closed", zap.Uint64("written", s.Ledger.Written()), zap.Uint64("dropped", s.Ledger.Dropped()))
	}
	if s.DB != nil {
		s.DB.Close()
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("journal: %w", err))
		}
	}
	if s.telemetry != nil {
		if err := s.telemetry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: %w", err))
		}
	}
	if s.Scripts != nil {
		s.Scripts.Close()
	}
	if s.Runner != nil {
		s.log.Info("server stopped", zap.Uint64("ticks", s.Runner.Ticks()))
	}
	return errors.Join(errs...)
}
