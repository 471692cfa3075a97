package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/horde/internal/config"
	"github.com/l1jgo/horde/internal/game"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               horde  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       authoritative horde simulation      \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("HORDE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Server.StartTime = time.Now().Unix()

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Build the server: data, scripts, ledger, world, systems, network
	srv, err := game.New(cfg, log)
	if err != nil {
		return err
	}

	printSection("data")
	printStat("archetypes", srv.Archetypes.Count())
	printStat("spawn points", len(srv.Spawns))
	printStat("drop tables", srv.Drops.Count())
	printOK(fmt.Sprintf("arena %q loaded", srv.Arena.Name))
	printStat("map targets", len(srv.Arena.Targets))
	if srv.Defense != nil {
		printStat("defenders", srv.Defense.Len())
	}
	if srv.Scripts != nil {
		printOK("Lua scripts loaded")
	}
	fmt.Println()

	printSection("ledger")
	if srv.DB != nil {
		printOK(fmt.Sprintf("%s ledger ready", srv.DB.Dialect))
	} else {
		printOK("ledger disabled")
	}
	fmt.Println()

	printSection("network")
	if addr := srv.Net.TCPAddr(); addr != nil {
		printReady(fmt.Sprintf("tcp observers on %s", addr))
	}
	if addr := srv.Net.WSAddr(); addr != nil {
		printReady(fmt.Sprintf("websocket observers on ws://%s/observe", addr))
	}
	if cfg.Observer.PasswordHash != "" {
		printOK("observer password required")
	}
	fmt.Println()

	// 4. Game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	tickRate := cfg.Simulation.TickRate.Duration
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	printSection("ready")
	printStat("day 0 population target", srv.Spawner.TargetTotal())
	printReady(fmt.Sprintf("game loop running (tick: %s)", tickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			srv.Tick(tickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return srv.Close()
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
