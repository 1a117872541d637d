// Package engine applies the league's game rules. Every operation reads the
// freshest snapshots from the store, decides against the scoring policy and
// commits all touched agencies as one atomic batch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/policy"
	"github.com/talgya/studio-league/internal/store"
)

// Calendar reports the current course week (1-based).
type Calendar interface {
	CurrentWeek() int
}

// FixedWeek is a Calendar stuck on one week.
type FixedWeek int

// CurrentWeek returns the fixed week.
func (w FixedWeek) CurrentWeek() int { return int(w) }

// Engine runs game operations against a store.
type Engine struct {
	store    store.Store
	policy   policy.Policy
	calendar Calendar
	now      func() time.Time
	newID    func() string
	log      *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for event dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs overrides the identifier generator.
func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an Engine.
func New(st store.Store, p policy.Policy, cal Calendar, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		policy:   p,
		calendar: cal,
		now:      time.Now,
		newID:    uuid.NewString,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the rules the engine enforces.
func (e *Engine) Policy() policy.Policy {
	return e.policy
}

// Week returns the current course week.
func (e *Engine) Week() int {
	return e.calendar.CurrentWeek()
}

func (e *Engine) readAgency(ctx context.Context, id string) (*agency.Agency, error) {
	a, err := e.store.ReadAgency(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NewNotFoundError("agency", id)
	}
	if err != nil {
		return nil, fmt.Errorf("read agency %s: %w", id, err)
	}
	return a, nil
}

// snapshot is the full league as read at the start of an operation.
type snapshot struct {
	agencies []*agency.Agency
	byID     map[string]*agency.Agency
	students agency.StudentIndex
}

func (e *Engine) readSnapshot(ctx context.Context) (*snapshot, error) {
	all, err := e.store.ReadAllAgencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("read agencies: %w", err)
	}
	idx, err := agency.BuildStudentIndex(all)
	if err != nil {
		return nil, err
	}
	return &snapshot{agencies: all, byID: agency.ByID(all), students: idx}, nil
}

func (s *snapshot) agency(id string) (*agency.Agency, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, NewNotFoundError("agency", id)
	}
	return a, nil
}

func (e *Engine) commit(ctx context.Context, op string, b store.Batch) error {
	if err := e.store.Commit(ctx, b); err != nil {
		e.log.Warn("commit rejected", "op", op, "agencies", b.Len(), "error", err)
		return &CommitError{Op: op, Err: err}
	}
	return nil
}

func (e *Engine) newEvent(typ agency.EventType, label, description string) agency.GameEvent {
	return agency.GameEvent{
		ID:          e.newID(),
		Date:        e.now().UTC(),
		Type:        typ,
		Label:       label,
		Description: description,
	}
}

func (e *Engine) historyEntry(kind, agencyID, label string, delta int) agency.HistoryEntry {
	return agency.HistoryEntry{
		Date:     e.now().UTC(),
		Kind:     kind,
		AgencyID: agencyID,
		Label:    label,
		Delta:    delta,
	}
}

// applyVE moves reputation by delta, clamps it to the agency's cap and
// refreshes the status tier. It returns the delta actually applied.
func (e *Engine) applyVE(a *agency.Agency, delta int) int {
	before := a.VECurrent
	a.VECurrent = e.policy.ClampVE(a, a.VECurrent+delta)
	a.Status = e.policy.StatusFor(a.VECurrent)
	return a.VECurrent - before
}

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func credits(v int64) string {
	return humanize.Comma(v) + " cr"
}
