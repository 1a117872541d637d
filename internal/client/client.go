// Package client talks to agencyd over its HTTP API.
// Reads are public; grading and settlement send the admin bearer token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/api"
	"github.com/talgya/studio-league/internal/engine"
	"github.com/talgya/studio-league/internal/persistence"
	"github.com/talgya/studio-league/internal/policy"
)

// Status mirrors GET /api/v1/status.
type Status struct {
	Name     string `json:"name"`
	Week     int    `json:"week"`
	Agencies int    `json:"agencies"`
	Students int    `json:"students"`
}

// Error is a non-2xx reply decoded from the server's error body.
type Error struct {
	StatusCode int
	Body       api.ErrorBody
}

func (e *Error) Error() string {
	if e.Body.Rule != "" {
		return fmt.Sprintf("%s (%d, %s/%s)", e.Body.Error, e.StatusCode, e.Body.Code, e.Body.Rule)
	}
	return fmt.Sprintf("%s (%d, %s)", e.Body.Error, e.StatusCode, e.Body.Code)
}

// Client is an agencyd API client.
type Client struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// New creates a Client targeting the given API base URL.
func New(baseURL, adminKey string) *Client {
	return &Client{
		BaseURL:  baseURL,
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Status fetches the league headline numbers.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	return out, c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out)
}

// Agencies lists agencies, optionally for one class.
func (c *Client) Agencies(ctx context.Context, classID string) ([]api.AgencySummary, error) {
	path := "/api/v1/agencies"
	if classID != "" {
		path += "?class=" + url.QueryEscape(classID)
	}
	var out []api.AgencySummary
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

// Agency fetches one agency in full.
func (c *Client) Agency(ctx context.Context, id string) (*agency.Agency, error) {
	var out agency.Agency
	if err := c.do(ctx, http.MethodGet, "/api/v1/agencies/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Events fetches the most recent audit events.
func (c *Client) Events(ctx context.Context, agencyID string, limit int) ([]persistence.EventRow, error) {
	q := url.Values{}
	if agencyID != "" {
		q.Set("agency", agencyID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []persistence.EventRow
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

// RequestMercato opens a hire or fire request on an agency.
func (c *Client) RequestMercato(ctx context.Context, agencyID, requesterID, studentID string, kind agency.RequestKind) (agency.MercatoRequest, error) {
	body := map[string]any{"requesterId": requesterID, "studentId": studentID, "kind": kind}
	var out agency.MercatoRequest
	return out, c.do(ctx, http.MethodPost, agencyPath(agencyID, "mercato"), body, &out)
}

// Vote casts a vote on a pending request.
func (c *Client) Vote(ctx context.Context, requestID, voterID string, choice agency.VoteChoice) (engine.VoteOutcome, error) {
	body := map[string]any{"voterId": voterID, "choice": choice}
	var out engine.VoteOutcome
	return out, c.do(ctx, http.MethodPost, "/api/v1/requests/"+url.PathEscape(requestID)+"/votes", body, &out)
}

// Reject drops a pending request.
func (c *Client) Reject(ctx context.Context, agencyID, requestID string) error {
	return c.do(ctx, http.MethodPost, agencyPath(agencyID, "requests", requestID, "reject"), nil, nil)
}

// SendChallenge offers a challenge to an agency.
func (c *Client) SendChallenge(ctx context.Context, agencyID, title, description string) (agency.ChallengeRequest, error) {
	body := map[string]any{"title": title, "description": description}
	var out agency.ChallengeRequest
	return out, c.do(ctx, http.MethodPost, agencyPath(agencyID, "challenges"), body, &out)
}

// SubmitPeerReview files a review inside an agency.
func (c *Client) SubmitPeerReview(ctx context.Context, agencyID string, r agency.PeerReview) error {
	return c.do(ctx, http.MethodPost, agencyPath(agencyID, "reviews"), r, nil)
}

// ProposeMerger asks the target to absorb the source.
func (c *Client) ProposeMerger(ctx context.Context, sourceID, targetID string) (agency.MergerRequest, error) {
	body := map[string]any{"sourceId": sourceID, "targetId": targetID}
	var out agency.MergerRequest
	return out, c.do(ctx, http.MethodPost, "/api/v1/mergers", body, &out)
}

// FinalizeMerger accepts or refuses a merger addressed to targetID.
func (c *Client) FinalizeMerger(ctx context.Context, targetID, requestID string, approved bool) error {
	return c.do(ctx, http.MethodPost, agencyPath(targetID, "mergers", requestID), map[string]any{"approved": approved}, nil)
}

// Covert performs a personal covert operation paid from studentID's wallet.
func (c *Client) Covert(ctx context.Context, agencyID, studentID string, op policy.CovertOp, p engine.CovertPayload) (engine.CovertResult, error) {
	body := struct {
		StudentID string          `json:"studentId"`
		Op        policy.CovertOp `json:"op"`
		engine.CovertPayload
	}{studentID, op, p}
	var out engine.CovertResult
	return out, c.do(ctx, http.MethodPost, agencyPath(agencyID, "covert"), body, &out)
}

// BlackOp triggers an agency-level black op.
func (c *Client) BlackOp(ctx context.Context, agencyID, targetID string, op policy.BlackOp) (engine.BlackOpResult, error) {
	body := map[string]any{"targetId": targetID, "op": op}
	var out engine.BlackOpResult
	return out, c.do(ctx, http.MethodPost, agencyPath(agencyID, "blackops"), body, &out)
}

// Grade records an instructor grade. Requires the admin key.
func (c *Client) Grade(ctx context.Context, agencyID, weekID, deliverableID string, score float64, daysLate int, feedback string) (engine.GradeResult, error) {
	body := map[string]any{
		"weekId":        weekID,
		"deliverableId": deliverableID,
		"score":         score,
		"daysLate":      daysLate,
		"feedback":      feedback,
	}
	var out engine.GradeResult
	return out, c.do(ctx, http.MethodPost, agencyPath(agencyID, "grades"), body, &out)
}

// Settle runs the weekly settlement now. Requires the admin key. A zero
// scope.Week settles the current week.
func (c *Client) Settle(ctx context.Context, scope engine.Scope) (engine.Report, error) {
	var out engine.Report
	return out, c.do(ctx, http.MethodPost, "/api/v1/settle", scope, &out)
}

func agencyPath(id string, rest ...string) string {
	p := "/api/v1/agencies/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

// do sends one request and decodes a JSON reply into target (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, payload, target any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AdminKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.AdminKey)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		if json.Unmarshal(respBody, &apiErr.Body) != nil || apiErr.Body.Error == "" {
			apiErr.Body.Error = string(bytes.TrimSpace(respBody))
		}
		return apiErr
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
