package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/engine"
	"github.com/talgya/studio-league/internal/persistence"
	"github.com/talgya/studio-league/internal/policy"
	"github.com/talgya/studio-league/internal/store"
)

type stubEvents struct {
	agencyID string
	limit    int
}

func (s *stubEvents) RecentEvents(_ context.Context, agencyID string, limit int) ([]persistence.EventRow, error) {
	s.agencyID, s.limit = agencyID, limit
	return []persistence.EventRow{{ID: "e1", AgencyID: agencyID, Type: "GRADE"}}, nil
}

func member(id string, wallet int64) agency.Student {
	return agency.Student{ID: id, Name: "Student " + id, IndividualScore: 50, Wallet: wallet}
}

func newTestServer(t *testing.T, week int) (*httptest.Server, *store.Memory, *stubEvents) {
	t.Helper()
	st := store.NewMemory()
	require.NoError(t, st.Commit(context.Background(), store.Batch{Agencies: []*agency.Agency{
		{ID: "a", Name: "Atelier", ClassID: "c1", VECurrent: 50, BudgetReal: 4500, Status: agency.StatusFragile,
			Members: []agency.Student{member("s1", 1000), member("s2", 10)}},
		{ID: "b", Name: "Bureau", ClassID: "c2", VECurrent: 30, Status: agency.StatusCritique,
			Members: []agency.Student{member("x", 1000)}},
	}}))
	events := &stubEvents{}
	srv := &Server{
		Engine:       engine.New(st, policy.Default(), engine.FixedWeek(week)),
		Store:        st,
		Events:       events,
		AdminKey:     "secret",
		CovertLimit:  2,
		CovertWindow: time.Hour,
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, st, events
}

func post(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeResp[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestListAndGetAgencies(t *testing.T) {
	ts, _, _ := newTestServer(t, 2)

	resp, err := http.Get(ts.URL + "/api/v1/agencies?class=c1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeResp[[]AgencySummary](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, 90, list[0].VECap)

	resp, err = http.Get(ts.URL + "/api/v1/agencies/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decodeResp[ErrorBody](t, resp).Code)
}

func TestMercatoFlowOverHTTP(t *testing.T) {
	ts, st, _ := newTestServer(t, 2)

	resp := post(t, ts.URL+"/api/v1/agencies/a/mercato", "", map[string]any{
		"requesterId": "x", "studentId": "x", "kind": "HIRE",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	req := decodeResp[agency.MercatoRequest](t, resp)

	resp = post(t, ts.URL+"/api/v1/requests/"+req.ID+"/votes", "", map[string]any{"voterId": "s1", "choice": "APPROVE"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeResp[engine.VoteOutcome](t, resp)
	assert.Equal(t, agency.RequestPending, out.Status)

	resp = post(t, ts.URL+"/api/v1/requests/"+req.ID+"/votes", "", map[string]any{"voterId": "s2", "choice": "APPROVE"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out = decodeResp[engine.VoteOutcome](t, resp)
	assert.Equal(t, agency.RequestExecuted, out.Status)

	a, err := st.ReadAgency(context.Background(), "a")
	require.NoError(t, err)
	assert.Len(t, a.Members, 3)

	resp = post(t, ts.URL+"/api/v1/requests/"+req.ID+"/votes", "", map[string]any{"voterId": "s1", "choice": "APPROVE"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestErrorStatusMapping(t *testing.T) {
	ts, _, _ := newTestServer(t, 2)

	resp := post(t, ts.URL+"/api/v1/agencies/a/covert", "", map[string]any{
		"studentId": "s2", "op": "LEAK",
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "insufficient_funds", decodeResp[ErrorBody](t, resp).Code)

	resp = post(t, ts.URL+"/api/v1/agencies/a/blackops", "", map[string]any{"targetId": "b", "op": "AUDIT"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeResp[ErrorBody](t, resp)
	assert.Equal(t, "policy_violation", body.Code)
	assert.Equal(t, engine.RuleNotUnlocked, body.Rule)

	resp = post(t, ts.URL+"/api/v1/agencies/a/challenges", "", map[string]any{"title": "x", "bogus": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCovertEndpointsAreRateLimited(t *testing.T) {
	ts, _, _ := newTestServer(t, 2)

	for range 2 {
		resp := post(t, ts.URL+"/api/v1/agencies/a/covert", "", map[string]any{"studentId": "s1", "op": "DOXXING"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := post(t, ts.URL+"/api/v1/agencies/a/covert", "", map[string]any{"studentId": "s1", "op": "DOXXING"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestInstructorEndpointsNeedAdminKey(t *testing.T) {
	ts, st, _ := newTestServer(t, 2)

	resp := post(t, ts.URL+"/api/v1/settle", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = post(t, ts.URL+"/api/v1/settle", "wrong", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, ts.URL+"/api/v1/settle", "secret", map[string]any{"classId": "c1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decodeResp[engine.Report](t, resp)
	require.Len(t, report.Agencies, 1)
	assert.Equal(t, 2, report.Agencies[0].Adjustment)

	a, err := st.ReadAgency(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 52, a.VECurrent)
}

func TestEventsEndpoint(t *testing.T) {
	ts, _, events := newTestServer(t, 2)

	resp, err := http.Get(ts.URL + "/api/v1/events?agency=a&limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decodeResp[[]persistence.EventRow](t, resp)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", events.agencyID)
	assert.Equal(t, 5, events.limit)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	assert.Equal(t, "10.0.0.7", clientIP(r))
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}
