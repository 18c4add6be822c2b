package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/railgrid/server/internal/config"
	"github.com/railgrid/server/internal/data"
	"github.com/railgrid/server/internal/persist"
	"github.com/railgrid/server/internal/rail"
	"github.com/railgrid/server/internal/scripting"
	"github.com/railgrid/server/internal/system"
	"github.com/railgrid/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printSection(title string) {
	fmt.Printf("  \033[33m── %s ──\033[0m\n", title)
}

func printStat(label string, count int) {
	fmt.Printf("  %s: \033[32m%d\033[0m\n", label, count)
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
	if p := os.Getenv("RAILGRID_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	fmt.Printf("\n  %s — region %d\n\n", cfg.Server.Name, cfg.Server.RegionID)

	// 3. Build the region, seeded from the track layout store if one is
	// configured.
	region := world.NewRegion(cfg.Server.RegionID)

	if cfg.Database.DSN != "" {
		printSection("layout store")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			cancel()
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")

		layoutRepo := persist.NewLayoutRepo(db)
		blocks, signs, err := layoutRepo.LoadRegion(ctx, cfg.Server.RegionID)
		cancel()
		if err != nil {
			return fmt.Errorf("load region layout: %w", err)
		}
		for _, b := range blocks {
			region.SetBlock(world.Vec3{X: b.X, Y: b.Y, Z: b.Z}, world.BlockID(b.Block))
		}
		for _, s := range signs {
			region.SetSign(world.Vec3{X: s.X, Y: s.Y, Z: s.Z}, s.Line)
		}
		printStat("placed blocks", region.BlockCount())
		printStat("signs", region.SignCount())
	}

	if region.BlockCount() == 0 {
		seedDemoLayout(region)
		printOK("empty region, demo layout seeded")
	}

	// 4. Load rail type definitions and detector scripts
	printSection("rail types")

	trackTable, err := data.LoadTrackTable(filepath.Join(cfg.Sim.DataDir, "track_list.yaml"))
	if err != nil {
		return fmt.Errorf("load track table: %w", err)
	}
	printStat("track definitions", trackTable.Count())

	luaEngine, err := scripting.NewEngine(cfg.Sim.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	luaEngine.BindRegion(region)
	printStat("scripted detectors", len(luaEngine.RailTypes()))

	registry := buildRegistry(trackTable, luaEngine, log)
	printStat("registered rail types", registry.Count())

	faults := make(map[string]int)
	registry.SetFaultHandler(func(t rail.RailType, err error) {
		faults[t.Name()]++
	})

	// 5. Rail lookup cache for the region
	lookup := rail.NewLookup(region, registry,
		&rail.ColumnSignScanner{Region: region, Height: trackTable.SignScanHeight},
		rail.Windows{LifeTicks: cfg.Cache.LifeTicks, VerifyTicks: cfg.Cache.VerifyTicks},
		log,
	)

	// 6. Fleet and tick systems
	fleet := world.NewFleet()
	fleet.Add(world.NewCart(world.Vec3{X: 0, Y: 64, Z: 0}, world.Vec3{X: 1}))

	runner := system.NewRunner()
	runner.Register(system.NewMovementSystem(fleet, lookup, log))
	runner.Register(system.NewCacheSweepSystem(lookup, cfg.Cache.DeadTimeoutTicks))

	// 7. Simulation loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Sim.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("simulation loop started (tick: %s)", cfg.Sim.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Sim.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			for name, n := range faults {
				log.Warn("rail type reported faults during this run",
					zap.String("type", name),
					zap.Int("count", n),
				)
			}
			log.Info("simulation stopped",
				zap.Int("cached_rails", lookup.Size()),
				zap.Int("carts", fleet.Count()),
				zap.Int64("uptime_seconds", time.Now().Unix()-cfg.Server.StartTime),
			)
			return nil
		}
	}
}

// buildRegistry merges table-driven and scripted rail types into one
// registry, highest priority first.
func buildRegistry(table *data.TrackTable, engine *scripting.Engine, log *zap.Logger) *rail.Registry {
	type prioritized struct {
		priority int
		railType rail.RailType
	}
	var all []prioritized
	for _, def := range table.All() {
		blocks := make([]world.BlockID, len(def.Blocks))
		for i, b := range def.Blocks {
			blocks[i] = world.BlockID(b)
		}
		all = append(all, prioritized{def.Priority, rail.NewBlockSetType(def.Name, blocks)})
	}
	for _, st := range engine.RailTypes() {
		all = append(all, prioritized{st.Priority(), st})
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].priority > all[j].priority
	})

	registry := rail.NewRegistry(log)
	for _, p := range all {
		registry.Register(p.railType)
	}
	return registry
}

// seedDemoLayout lays a short straight of standard rail with a station
// sign, so a fresh install has something to simulate.
func seedDemoLayout(region *world.Region) {
	for x := 0; x < 16; x++ {
		region.SetBlock(world.Vec3{X: x, Y: 64, Z: 0}, "RAIL")
	}
	region.SetSign(world.Vec3{X: 0, Y: 65, Z: 0}, "station alpha")
	region.SetSign(world.Vec3{X: 15, Y: 65, Z: 0}, "station omega")
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
