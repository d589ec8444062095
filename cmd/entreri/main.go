package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/entreri/internal/config"
	"github.com/l1jgo/entreri/internal/core/ecs"
	"github.com/l1jgo/entreri/internal/core/task"
	"github.com/l1jgo/entreri/internal/data"
	"github.com/l1jgo/entreri/internal/persist"
	"github.com/l1jgo/entreri/internal/scripting"
	"github.com/l1jgo/entreri/internal/sim"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(mode string, tick time.Duration) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              entreri  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      entity system · task scheduler       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mmode:\033[0m %s \033[90m(tick: %s)\033[0m\n\n", mode, tick)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main logic ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/entreri.toml"
	if p := os.Getenv("ENTRERI_CONFIG"); p != "" {
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

	printBanner(cfg.Scheduler.Mode, cfg.Scheduler.TickRate)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Entity system, optionally backed by snapshots
	sys := ecs.New()

	var snapshots *persist.SnapshotRepo
	if cfg.Database.Enabled {
		printSection("database")
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.Open(dbCtx, cfg.Database, log)
		cancel()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		snapshots = persist.NewSnapshotRepo(db)
		printOK("PostgreSQL connected, migrations applied")
		fmt.Println()
	}

	// 4. Populate: latest snapshot or templates
	printSection("data")
	restored := false
	if snapshots != nil && cfg.Database.Restore {
		n, err := restoreLatest(ctx, snapshots, sys)
		if err != nil {
			return err
		}
		if n > 0 {
			printStat("restored entities", n)
			restored = true
		}
	}
	if !restored && cfg.Data.Templates != "" {
		templates, err := data.LoadTemplateTable(cfg.Data.Templates, sim.TypeByName)
		if err != nil {
			return fmt.Errorf("load templates: %w", err)
		}
		printStat("templates", templates.Count())
		n, err := spawnAll(sys, templates, cfg.Data.Spawn)
		if err != nil {
			return err
		}
		printStat("spawned entities", n)
	}

	// 5. Scripts
	var engine *scripting.Engine
	if cfg.Scripting.Enabled {
		engine, err = scripting.NewEngine(cfg.Scripting.Dir, sim.TypeByName, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		printStat("script tasks", len(engine.Tasks()))
	}
	fmt.Println()

	// 6. Scheduler and the tick job
	sched, err := task.NewScheduler(sys, log)
	if err != nil {
		return err
	}
	pipeline := sim.NewPipeline()
	if cfg.Scheduler.Mode == config.ModeContinuous {
		pipeline.Register(sim.PhaseClock, task.MeasuredDelta())
	} else {
		pipeline.Register(sim.PhaseClock, task.FixedDelta(cfg.Scheduler.TickRate))
	}
	pipeline.Register(sim.PhaseUpdate, sim.NewMoveTask())
	pipeline.Register(sim.PhasePostUpdate, sim.NewExpireTask(cfg.Scheduler.CompactEvery))
	pipeline.Register(sim.PhaseReport, sim.NewStatsTask(sim.Types()...))
	pipeline.Register(sim.PhaseReport, sim.NewLogTask(log, cfg.Scheduler.StatsEvery))
	if engine != nil {
		for _, st := range engine.Tasks() {
			phase, err := sim.ParsePhase(st.Phase())
			if err != nil {
				return fmt.Errorf("script %s: %w", st.Name(), err)
			}
			pipeline.Register(phase, st)
		}
	}
	tick, err := pipeline.Build(sched, "tick")
	if err != nil {
		return fmt.Errorf("build tick job: %w", err)
	}
	log.Debug("tick job ready", zap.Stringer("job", tick), zap.Any("locks", tick.Locks()))

	// 7. Snapshot job and its writer
	var (
		snapJob  *task.Job
		snapCh   chan *persist.Snapshot
		writerCh chan struct{}
	)
	if snapshots != nil {
		snapCh = make(chan *persist.Snapshot, 1)
		writerCh = make(chan struct{})
		snapJob, err = sched.CreateJob("snapshot", persist.NewSnapshotTask(snapCh, log, sim.Types()...))
		if err != nil {
			return fmt.Errorf("build snapshot job: %w", err)
		}
		go func() {
			defer close(writerCh)
			for snap := range snapCh {
				saveSnapshot(snapshots, snap, cfg.Database.SnapshotsKept, log)
			}
		}()
	}

	// 8. Run
	printSection("running")
	if cfg.Scheduler.Mode == config.ModeOnce {
		if err := sched.RunOnCurrentThread(tick); err != nil {
			return fmt.Errorf("tick: %w", err)
		}
		printReady("single tick done")
		finalSnapshot(sys, snapCh, writerCh)
		return nil
	}

	var handle *task.Handle
	if cfg.Scheduler.Mode == config.ModeEvery {
		handle, err = sched.RunEvery(cfg.Scheduler.TickRate, tick)
	} else {
		handle, err = sched.RunContinuously(tick)
	}
	if err != nil {
		return fmt.Errorf("start tick job: %w", err)
	}
	printReady(fmt.Sprintf("%s started (%s)", handle.Name(), cfg.Scheduler.Mode))

	var snapHandle *task.Handle
	if snapJob != nil && cfg.Database.SnapshotInterval > 0 {
		snapHandle, err = sched.RunEvery(cfg.Database.SnapshotInterval, snapJob)
		if err != nil {
			handle.Stop()
			return fmt.Errorf("start snapshots: %w", err)
		}
		printReady(fmt.Sprintf("snapshots every %s", cfg.Database.SnapshotInterval))
	}
	fmt.Println()

	handles := []*task.Handle{handle}
	if snapHandle != nil {
		handles = append(handles, snapHandle)
	}
	runErr := waitAll(ctx, handles...)
	if ctx.Err() != nil {
		log.Info("shutdown signal received")
	}
	finalSnapshot(sys, snapCh, writerCh)
	if runErr != nil {
		return fmt.Errorf("background job: %w", runErr)
	}
	log.Info("stopped", zap.Int("entities", sys.EntityCount()))
	return nil
}

// waitAll blocks until ctx is done or one of the handles fails, then stops
// every handle and waits for it. It returns the first failure.
func waitAll(ctx context.Context, handles ...*task.Handle) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range handles {
		g.Go(func() error {
			select {
			case <-gctx.Done():
			case <-h.Done():
			}
			h.Stop()
			if err := h.Wait(); err != nil {
				return fmt.Errorf("%s: %w", h.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// spawnAll spawns the configured count of each template, in template name order.
func spawnAll(sys *ecs.EntitySystem, templates *data.TemplateTable, counts map[string]int) (int, error) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		spawned, err := templates.SpawnN(sys, name, counts[name])
		total += len(spawned)
		if err != nil {
			return total, fmt.Errorf("spawn: %w", err)
		}
	}
	return total, nil
}

func restoreLatest(ctx context.Context, repo *persist.SnapshotRepo, sys *ecs.EntitySystem) (int, error) {
	snap, err := repo.Latest(ctx)
	if err != nil {
		return 0, fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return 0, nil
	}
	entities, err := persist.Restore(sys, snap, sim.TypeByName)
	if err != nil {
		return 0, err
	}
	return len(entities), nil
}

func saveSnapshot(repo *persist.SnapshotRepo, snap *persist.Snapshot, keep int, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repo.Save(ctx, snap); err != nil {
		log.Error("save snapshot", zap.Error(err))
		return
	}
	if keep > 0 {
		if _, err := repo.Prune(ctx, keep); err != nil {
			log.Error("prune snapshots", zap.Error(err))
		}
	}
}

// finalSnapshot captures once more and waits for the writer to finish. Every
// job must have stopped, since it reads sys without taking locks.
func finalSnapshot(sys *ecs.EntitySystem, ch chan *persist.Snapshot, writerDone <-chan struct{}) {
	if ch == nil {
		return
	}
	ch <- persist.Capture(sys, sim.Types())
	close(ch)
	<-writerDone
}

// Sampling thresholds per message per second when logging.sampling is on.
const (
	logSampleInitial    = 100
	logSampleThereafter = 100
)

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

	if len(cfg.Outputs) > 0 {
		zapCfg.OutputPaths = cfg.Outputs
	}
	// tick stats repeat at the tick rate; sampling is opt-in for both formats
	zapCfg.Sampling = nil
	if cfg.Sampling {
		zapCfg.Sampling = &zap.SamplingConfig{
			Initial:    logSampleInitial,
			Thereafter: logSampleThereafter,
		}
	}

	return zapCfg.Build()
}
