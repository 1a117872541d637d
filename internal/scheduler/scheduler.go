// Package scheduler triggers the weekly settlement from outside the engine.
// It polls the course calendar and settles each week once it has ended,
// remembering the last settled week in the store's metadata.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/talgya/studio-league/internal/engine"
	"github.com/talgya/studio-league/internal/store"
)

// LastSettledKey is the metadata key holding the last settled week.
const LastSettledKey = "last_settled_week"

// Settler runs a settlement.
type Settler interface {
	SettlePerformance(ctx context.Context, scope engine.Scope) (engine.Report, error)
}

// Scheduler polls the calendar and settles elapsed weeks.
type Scheduler struct {
	Calendar *Calendar
	Settler  Settler
	Meta     store.MetaStore
	Interval time.Duration // poll interval (default 1 minute)
	Scope    engine.Scope

	// OnSettled is called after each committed settlement.
	OnSettled func(week int, r engine.Report)
}

// Run polls until ctx is cancelled. Failed settlements are logged and
// retried on the next poll.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("settlement scheduler started", "interval", interval, "week", s.Calendar.CurrentWeek())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Check(ctx); err != nil && ctx.Err() == nil {
			slog.Error("scheduled settlement failed", "error", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("settlement scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Check settles every week that ended since the last settled one and
// returns how many settlements it ran. Each week is settled by number, so
// if recording progress fails the next poll re-runs the week and the engine
// skips agencies already settled for it.
func (s *Scheduler) Check(ctx context.Context) (int, error) {
	last, err := s.lastSettled(ctx)
	if err != nil {
		return 0, err
	}
	ended := s.Calendar.CurrentWeek() - 1

	settled := 0
	for week := last + 1; week <= ended; week++ {
		scope := s.Scope
		scope.Week = week
		report, err := s.Settler.SettlePerformance(ctx, scope)
		if err != nil {
			return settled, fmt.Errorf("settle week %d: %w", week, err)
		}
		if err := s.Meta.SaveMeta(ctx, LastSettledKey, strconv.Itoa(week)); err != nil {
			return settled, fmt.Errorf("record week %d: %w", week, err)
		}
		settled++
		slog.Info("week settled", "week", week, "agencies", len(report.Agencies))
		if s.OnSettled != nil {
			s.OnSettled(week, report)
		}
	}
	return settled, nil
}

func (s *Scheduler) lastSettled(ctx context.Context) (int, error) {
	v, err := s.Meta.GetMeta(ctx, LastSettledKey)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	week, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q: %w", LastSettledKey, v, err)
	}
	return week, nil
}
