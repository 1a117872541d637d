package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/policy"
)

func TestBlackOpsLockedEarly(t *testing.T) {
	st := seeded(t, team("a", 50, 5000, "s1"), team("b", 30, 0, "x"))
	e := testEngine(st, 3)

	_, err := e.TriggerBlackOp(context.Background(), "a", "b", policy.BlackAudit)
	var pv *PolicyViolationError
	require.ErrorAs(t, err, &pv)
	assert.Equal(t, RuleNotUnlocked, pv.Rule)
	assert.Equal(t, int64(5000), load(t, st, "a").BudgetReal)
}

func TestBlackAudit(t *testing.T) {
	ctx := context.Background()

	t.Run("success hits the target", func(t *testing.T) {
		st := seeded(t, team("a", 50, 5000, "s1"), team("b", 30, 0, "x"))
		e := testEngine(st, 4)

		res, err := e.TriggerBlackOp(ctx, "a", "b", policy.BlackAudit)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, -10, res.TargetVE)

		assert.Equal(t, 20, load(t, st, "b").VECurrent)
		a := load(t, st, "a")
		assert.Equal(t, int64(4500), a.BudgetReal)
		assert.Equal(t, 50, a.VECurrent)
		ev := lastEvent(a)
		assert.Equal(t, agency.EventBlackOp, ev.Type)
		assert.Equal(t, int64(-500), *ev.DeltaBudgetReal)
	})

	t.Run("failure backfires on the attacker", func(t *testing.T) {
		st := seeded(t, team("a", 50, 5000, "s1"), team("b", 70, 100, "x"))
		e := testEngine(st, 4)

		res, err := e.TriggerBlackOp(ctx, "a", "b", policy.BlackAudit)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, -20, res.AttackerVE)

		a := load(t, st, "a")
		assert.Equal(t, 30, a.VECurrent)
		assert.Equal(t, agency.StatusCritique, a.Status)
		assert.Equal(t, int64(4500), a.BudgetReal)
		assert.Equal(t, int64(1), load(t, st, "b").Version)
	})
}

func TestBlackOpTreasuryTooSmall(t *testing.T) {
	st := seeded(t, team("a", 50, 200, "s1"), team("b", 30, 0, "x"))
	e := testEngine(st, 5)

	_, err := e.TriggerBlackOp(context.Background(), "a", "b", policy.BlackSpy)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(200), load(t, st, "a").BudgetReal)
}

func TestSpyAndPRCampaign(t *testing.T) {
	ctx := context.Background()
	st := seeded(t, team("a", 83, 5000, "s1"), team("b", 30, -20, "x", "y"))
	e := testEngine(st, 5)

	res, err := e.TriggerBlackOp(ctx, "a", "b", policy.BlackSpy)
	require.NoError(t, err)
	require.NotNil(t, res.Intel)
	assert.Equal(t, 2, res.Intel.Members)
	assert.True(t, res.Intel.Vulnerable)

	res, err = e.TriggerBlackOp(ctx, "a", "", policy.BlackPRCampaign)
	require.NoError(t, err)
	assert.Equal(t, 2, res.AttackerVE, "capped at 85 for a solo agency")

	a := load(t, st, "a")
	assert.Equal(t, 85, a.VECurrent)
	assert.Equal(t, int64(5000-300-800), a.BudgetReal)
}
