package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/policy"
	"github.com/talgya/studio-league/internal/store"
)

var testNow = time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC)

// team builds an agency whose members start at score 50 with 1000 in their wallet.
func team(id string, ve int, budget int64, memberIDs ...string) *agency.Agency {
	a := &agency.Agency{
		ID:         id,
		Name:       "Agency " + id,
		ClassID:    "c1",
		VECurrent:  ve,
		BudgetReal: budget,
		Status:     policy.Default().StatusFor(ve),
		Progress:   map[string]agency.WeekState{},
	}
	for _, m := range memberIDs {
		a.Members = append(a.Members, agency.Student{
			ID:              m,
			Name:            "Student " + m,
			IndividualScore: 50,
			Wallet:          1000,
			Karma:           10,
		})
	}
	return a
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func testEngine(st store.Store, week int) *Engine {
	return New(st, policy.Default(), FixedWeek(week),
		WithClock(func() time.Time { return testNow }),
		WithIDs(seqIDs()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func seeded(t *testing.T, agencies ...*agency.Agency) *store.Memory {
	t.Helper()
	st := store.NewMemory()
	require.NoError(t, st.Commit(context.Background(), store.Batch{Agencies: agencies}))
	return st
}

func load(t *testing.T, st store.Store, id string) *agency.Agency {
	t.Helper()
	a, err := st.ReadAgency(context.Background(), id)
	require.NoError(t, err)
	return a
}

// failingStore rejects every commit.
type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Commit(context.Context, store.Batch) error {
	return f.err
}

// racingStore runs beforeCommit once, just before the first commit reaches
// the underlying store, to interleave a competing writer.
type racingStore struct {
	store.Store
	beforeCommit func()
}

func (r *racingStore) Commit(ctx context.Context, b store.Batch) error {
	if hook := r.beforeCommit; hook != nil {
		r.beforeCommit = nil
		hook()
	}
	return r.Store.Commit(ctx, b)
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"not found", NewNotFoundError("agency", "x"), ErrNotFound},
		{"funds", &InsufficientFundsError{Payer: "s1", Need: 10, Have: 1}, ErrInsufficientFunds},
		{"policy", violation(RuleCapacityExceeded, "too many"), ErrPolicyViolation},
		{"commit", &CommitError{Op: "x", Err: store.ErrConflict}, ErrCommitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.target)
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.target)
			for _, other := range []error{ErrNotFound, ErrInsufficientFunds, ErrPolicyViolation, ErrCommitFailure} {
				if other != tt.target {
					assert.False(t, errors.Is(tt.err, other))
				}
			}
		})
	}

	ce := &CommitError{Op: "vote", Err: &store.ConflictError{AgencyID: "a"}}
	assert.ErrorIs(t, ce, store.ErrConflict)
}

func TestUnknownAgencyIsNotFound(t *testing.T) {
	st := seeded(t, team("a", 50, 0, "s1"))
	e := testEngine(st, 1)

	_, err := e.SendChallenge(context.Background(), "missing", "Logo sprint", "")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "agency", nf.Kind)
	assert.Equal(t, "missing", nf.ID)
}

func TestDuplicateMembershipIsRefused(t *testing.T) {
	st := seeded(t, team("a", 50, 0, "s1"), team("b", 50, 0, "s1"))
	e := testEngine(st, 1)

	_, err := e.RequestMercato(context.Background(), "a", "s1", "s1", agency.KindFire)
	var dup *agency.DuplicateMemberError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "s1", dup.StudentID)
}
