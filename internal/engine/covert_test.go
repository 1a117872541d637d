package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/policy"
)

func withDeliverable(a *agency.Agency, week, id string, daysLate int) *agency.Agency {
	a.Progress[week] = agency.WeekState{Deliverables: []agency.Deliverable{{
		ID:      id,
		Title:   "Moodboard",
		Status:  agency.DeliverableGraded,
		Grading: &agency.Grading{Score: 14, DaysLate: daysLate, DeltaVE: -6},
	}}}
	return a
}

func lastEvent(a *agency.Agency) agency.GameEvent {
	return a.EventLog[len(a.EventLog)-1]
}

func TestCovertInsufficientFunds(t *testing.T) {
	a := team("a", 50, 0, "s1")
	a.Members[0].Wallet = 50
	st := seeded(t, a, team("b", 50, 0, "x"))
	e := testEngine(st, 2)

	_, err := e.PerformCovertOp(context.Background(), "s1", "a", policy.OpShortSell, CovertPayload{TargetAgencyID: "b"})
	var funds *InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(100), funds.Need)

	got := load(t, st, "a")
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, int64(50), got.Member("s1").Wallet)
	assert.Empty(t, got.EventLog)
}

func TestFakeCertErasesLateness(t *testing.T) {
	a := withDeliverable(team("a", 50, 0, "s1"), "2", "d1", 5)
	a.Members[0].Karma = 4
	st := seeded(t, a)
	e := testEngine(st, 3)

	res, err := e.PerformCovertOp(context.Background(), "s1", "a", policy.OpFakeCert,
		CovertPayload{WeekID: "2", DeliverableID: "d1"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	got := load(t, st, "a")
	assert.Equal(t, 0, got.Progress["2"].Deliverables[0].Grading.DaysLate)
	assert.Equal(t, int64(700), got.Member("s1").Wallet)
	assert.Equal(t, 0, got.Member("s1").Karma, "karma floors at zero")

	require.Len(t, got.EventLog, 1)
	trace := lastEvent(got)
	assert.Equal(t, agency.EventTrace, trace.Type)
	assert.Equal(t, 0, *trace.DeltaVE)
	assert.Equal(t, int64(0), *trace.DeltaBudgetReal)
	assert.Equal(t, 50, got.VECurrent)
}

func TestFakeCertUnknownDeliverable(t *testing.T) {
	st := seeded(t, withDeliverable(team("a", 50, 0, "s1"), "2", "d1", 5))
	e := testEngine(st, 3)

	_, err := e.PerformCovertOp(context.Background(), "s1", "a", policy.OpFakeCert,
		CovertPayload{WeekID: "2", DeliverableID: "nope"})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(1000), load(t, st, "a").Member("s1").Wallet)
}

func TestShortSellOpensBet(t *testing.T) {
	st := seeded(t, team("a", 50, 0, "s1"), team("b", 70, 0, "x"))
	e := testEngine(st, 4)

	res, err := e.PerformCovertOp(context.Background(), "s1", "a", policy.OpShortSell, CovertPayload{TargetAgencyID: "b"})
	require.NoError(t, err)
	require.NotNil(t, res.Bet)

	s1 := load(t, st, "a").Member("s1")
	require.Len(t, s1.ActiveBets, 1)
	bet := s1.ActiveBets[0]
	assert.Equal(t, "b", bet.TargetAgencyID)
	assert.Equal(t, int64(100), bet.AmountWagered)
	assert.Equal(t, "4", bet.WeekID)
	assert.Equal(t, agency.BetActive, bet.Status)
	assert.Equal(t, 70, load(t, st, "b").VECurrent, "no immediate reputation effect")

	_, err = e.PerformCovertOp(context.Background(), "s1", "a", policy.OpShortSell, CovertPayload{TargetAgencyID: "a"})
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestDoxxingOnlyCosts(t *testing.T) {
	st := seeded(t, team("a", 50, 0, "s1"))
	e := testEngine(st, 2)

	res, err := e.PerformCovertOp(context.Background(), "s1", "a", policy.OpDoxxing, CovertPayload{})
	require.NoError(t, err)
	assert.Equal(t, int64(850), res.Wallet)
	assert.Equal(t, 0, res.Karma)
	assert.Len(t, load(t, st, "a").EventLog, 1)
}

func TestBuyVoteInjectsGhostApproval(t *testing.T) {
	ctx := context.Background()
	st := seeded(t,
		team("a", 50, 0, "buyer"),
		team("b", 50, 0, "s1", "s2", "s3", "s4"),
		team("c", 50, 0, "x"),
	)
	e := testEngine(st, 2)

	req, err := e.RequestMercato(ctx, "b", "x", "x", agency.KindHire)
	require.NoError(t, err)

	_, err = e.PerformCovertOp(ctx, "buyer", "a", policy.OpBuyVote, CovertPayload{RequestID: req.ID})
	require.NoError(t, err)

	b := load(t, st, "b")
	votes := b.MercatoRequests[b.Mercato(req.ID)].Votes
	require.Len(t, votes, 1)
	for voter, choice := range votes {
		assert.Contains(t, voter, agency.GhostVoterPrefix)
		assert.Equal(t, agency.VoteApprove, choice)
	}
	assert.Len(t, load(t, st, "a").EventLog, 1, "trace lands on the buyer's agency")

	out, err := e.SubmitVote(ctx, req.ID, "s1", agency.VoteApprove)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Eligible, "ghosts do not take a seat")
	assert.Equal(t, 2, out.Approvals)
	assert.Equal(t, agency.RequestPending, out.Status)

	out, err = e.SubmitVote(ctx, req.ID, "s2", agency.VoteApprove)
	require.NoError(t, err)
	assert.Equal(t, agency.RequestExecuted, out.Status)
}

func TestAuditHostile(t *testing.T) {
	ctx := context.Background()

	t.Run("vulnerable target is sanctioned", func(t *testing.T) {
		st := seeded(t, team("a", 50, 0, "s1"), team("weak", 30, 0, "x"))
		e := testEngine(st, 2)

		res, err := e.PerformCovertOp(ctx, "s1", "a", policy.OpAuditHostile, CovertPayload{TargetAgencyID: "weak"})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 15, res.Penalty)

		weak := load(t, st, "weak")
		assert.Equal(t, 15, weak.VECurrent)
		assert.Equal(t, agency.StatusCritique, weak.Status)
		assert.Equal(t, agency.EventSanction, lastEvent(weak).Type)
	})

	t.Run("indebted target is sanctioned", func(t *testing.T) {
		st := seeded(t, team("a", 50, 0, "s1"), team("debt", 70, -10, "x"))
		e := testEngine(st, 2)

		res, err := e.PerformCovertOp(ctx, "s1", "a", policy.OpAuditHostile, CovertPayload{TargetAgencyID: "debt"})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 55, load(t, st, "debt").VECurrent)
	})

	t.Run("healthy target fails silently", func(t *testing.T) {
		st := seeded(t, team("a", 50, 0, "s1"), team("strong", 70, 100, "x"))
		e := testEngine(st, 2)

		res, err := e.PerformCovertOp(ctx, "s1", "a", policy.OpAuditHostile, CovertPayload{TargetAgencyID: "strong"})
		require.NoError(t, err)
		assert.False(t, res.Success)

		strong := load(t, st, "strong")
		assert.Equal(t, 70, strong.VECurrent)
		assert.Equal(t, int64(1), strong.Version)

		attacker := load(t, st, "a")
		assert.Equal(t, 50, attacker.VECurrent, "no penalty for the personal variant")
		assert.Equal(t, int64(600), attacker.Member("s1").Wallet)
		assert.Equal(t, agency.EventTrace, lastEvent(attacker).Type)
	})
}

func TestCovertUnknownOp(t *testing.T) {
	st := seeded(t, team("a", 50, 0, "s1"))
	e := testEngine(st, 2)
	_, err := e.PerformCovertOp(context.Background(), "s1", "a", policy.CovertOp("ARSON"), CovertPayload{})
	assert.ErrorIs(t, err, ErrPolicyViolation)

	_, err = e.PerformCovertOp(context.Background(), "nobody", "a", policy.OpLeak, CovertPayload{})
	assert.ErrorIs(t, err, ErrNotFound)
}
