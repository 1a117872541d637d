package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/api"
	"github.com/talgya/studio-league/internal/engine"
	"github.com/talgya/studio-league/internal/policy"
	"github.com/talgya/studio-league/internal/store"
)

func newLeague(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	require.NoError(t, st.Commit(context.Background(), store.Batch{Agencies: []*agency.Agency{
		{ID: "a", Name: "Atelier", ClassID: "c1", VECurrent: 50, BudgetReal: 4500, Status: agency.StatusFragile,
			Members: []agency.Student{{ID: "s1", Wallet: 1000}, {ID: "s2", Wallet: 1000}}},
		{ID: "b", Name: "Bureau", ClassID: "c2", VECurrent: 30, Status: agency.StatusCritique,
			Members: []agency.Student{{ID: "x", Wallet: 1000}}},
	}}))
	srv := &api.Server{
		Engine:   engine.New(st, policy.Default(), engine.FixedWeek(3)),
		Store:    st,
		AdminKey: "secret",
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func TestReadEndpoints(t *testing.T) {
	ts, _ := newLeague(t)
	c := New(ts.URL, "")
	ctx := context.Background()

	status, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Week)
	assert.Equal(t, 2, status.Agencies)
	assert.Equal(t, 3, status.Students)

	list, err := c.Agencies(ctx, "c2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bureau", list[0].Name)

	a, err := c.Agency(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, a.Members, 2)
}

func TestErrorsCarryTheServerBody(t *testing.T) {
	ts, _ := newLeague(t)
	c := New(ts.URL, "")
	ctx := context.Background()

	_, err := c.Agency(ctx, "missing")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not_found", apiErr.Body.Code)

	_, err = c.SendChallenge(ctx, agency.BenchID, "Logo sprint", "")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, engine.RuleIneligibleTarget, apiErr.Body.Rule)
	assert.Contains(t, apiErr.Error(), "policy_violation")

	_, err = c.Settle(ctx, engine.Scope{})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestHireThroughClient(t *testing.T) {
	ts, st := newLeague(t)
	c := New(ts.URL, "")
	ctx := context.Background()

	req, err := c.RequestMercato(ctx, "a", "x", "x", agency.KindHire)
	require.NoError(t, err)

	out, err := c.Vote(ctx, req.ID, "s1", agency.VoteApprove)
	require.NoError(t, err)
	assert.Equal(t, agency.RequestPending, out.Status)

	out, err = c.Vote(ctx, req.ID, "s2", agency.VoteApprove)
	require.NoError(t, err)
	assert.Equal(t, agency.RequestExecuted, out.Status)

	a, err := st.ReadAgency(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, a.Members, 3)
}

func TestRejectAndSettleWithAdminKey(t *testing.T) {
	ts, _ := newLeague(t)
	ctx := context.Background()
	student := New(ts.URL, "")
	admin := New(ts.URL, "secret")

	ch, err := student.SendChallenge(ctx, "a", "Logo sprint", "48h")
	require.NoError(t, err)
	require.NoError(t, student.Reject(ctx, "a", ch.ID))

	var apiErr *Error
	err = student.Reject(ctx, "a", ch.ID)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	report, err := admin.Settle(ctx, engine.Scope{ClassID: "c1"})
	require.NoError(t, err)
	require.Len(t, report.Agencies, 1)
	assert.Equal(t, "a", report.Agencies[0].AgencyID)

	report, err = admin.Settle(ctx, engine.Scope{ClassID: "c1", Week: report.Week})
	require.NoError(t, err)
	assert.Empty(t, report.Agencies)
	assert.Equal(t, []string{"a"}, report.Skipped)
}
