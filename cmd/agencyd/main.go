// Command agencyd runs the Studio League rules engine behind its HTTP API,
// with the weekly settlement scheduler alongside.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/studio-league/internal/api"
	"github.com/talgya/studio-league/internal/config"
	"github.com/talgya/studio-league/internal/engine"
	"github.com/talgya/studio-league/internal/persistence"
	"github.com/talgya/studio-league/internal/policy"
	"github.com/talgya/studio-league/internal/scheduler"
	"github.com/talgya/studio-league/internal/seed"
	"github.com/talgya/studio-league/internal/store"
)

const courseStartKey = "course_start"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("Studio League agency engine starting")

	rules, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		slog.Error("failed to load policy", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Course calendar ──────────────────────────────────────────────
	start, err := courseStart(ctx, db, cfg)
	if err != nil {
		slog.Error("failed to resolve course start", "error", err)
		os.Exit(1)
	}
	cal := scheduler.NewCalendar(start, cfg.WeekLength)
	slog.Info("course calendar", "start", start.Format(time.RFC3339), "week_length", cfg.WeekLength, "week", cal.CurrentWeek())

	// ── Demo cohort ──────────────────────────────────────────────────
	if cfg.SeedDemo && !db.HasAgencies(ctx) {
		gen := seed.DefaultGenConfig()
		gen.Seed = cfg.Seed
		league := seed.Generate(gen, rules)
		if err := db.Commit(ctx, store.Batch{Agencies: league}); err != nil {
			slog.Error("failed to seed demo league", "error", err)
			os.Exit(1)
		}
		slog.Info("demo league seeded", "agencies", len(league), "seed", gen.Seed)
	}

	eng := engine.New(db, rules, cal)

	srv := &api.Server{
		Engine:       eng,
		Store:        db,
		Events:       db,
		Addr:         cfg.Addr,
		AdminKey:     cfg.AdminKey,
		CORSOrigins:  cfg.CORSOrigins,
		CovertLimit:  cfg.CovertLimit,
		CovertWindow: cfg.CovertWindow,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	if cfg.AutoSettle {
		sched := &scheduler.Scheduler{
			Calendar: cal,
			Settler:  eng,
			Meta:     db,
			Interval: cfg.SettleEvery,
			Scope:    engine.Scope{ClassID: cfg.SettleClass},
		}
		g.Go(func() error { return sched.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		slog.Error("agencyd stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("agencyd stopped")
}

// courseStart resolves the calendar origin: the configured start, else the
// one recorded on first boot, else now (which is then recorded).
func courseStart(ctx context.Context, meta store.MetaStore, cfg config.Config) (time.Time, error) {
	if !cfg.CourseStart.IsZero() {
		return cfg.CourseStart, nil
	}
	v, err := meta.GetMeta(ctx, courseStartKey)
	if err == nil {
		return time.Parse(time.RFC3339, v)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return time.Time{}, err
	}
	start := cfg.Start(time.Now().UTC())
	if err := meta.SaveMeta(ctx, courseStartKey, start.Format(time.RFC3339)); err != nil {
		return time.Time{}, err
	}
	return start, nil
}
