package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/engine"
	"github.com/talgya/studio-league/internal/policy"
	"github.com/talgya/studio-league/internal/store"
)

// AgencySummary is the list view of an agency.
type AgencySummary struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	ClassID    string        `json:"classId"`
	VECurrent  int           `json:"ve_current"`
	VECap      int           `json:"ve_cap"`
	BudgetReal int64         `json:"budget_real"`
	Status     agency.Status `json:"status"`
	Members    int           `json:"members"`
	Pending    int           `json:"pendingRequests"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	all, err := s.Store.ReadAllAgencies(r.Context())
	if err != nil {
		writeError(w, "status", err)
		return
	}
	students := 0
	for _, a := range all {
		students += len(a.Members)
	}
	writeJSON(w, map[string]any{
		"name":     "Studio League",
		"week":     s.Engine.Week(),
		"agencies": len(all),
		"students": students,
	})
}

func (s *Server) handleAgencies(w http.ResponseWriter, r *http.Request) {
	all, err := s.Store.ReadAllAgencies(r.Context())
	if err != nil {
		writeError(w, "agencies", err)
		return
	}
	class := r.URL.Query().Get("class")
	p := s.Engine.Policy()

	out := make([]AgencySummary, 0, len(all))
	for _, a := range all {
		if class != "" && a.ClassID != class {
			continue
		}
		out = append(out, AgencySummary{
			ID:         a.ID,
			Name:       a.Name,
			ClassID:    a.ClassID,
			VECurrent:  a.VECurrent,
			VECap:      p.VECap(a),
			BudgetReal: a.BudgetReal,
			Status:     a.Status,
			Members:    len(a.Members),
			Pending:    len(a.MercatoRequests) + len(a.MergerRequests) + len(a.Challenges),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleAgency(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a, err := s.Store.ReadAgency(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "agency", engine.NewNotFoundError("agency", id))
		return
	}
	if err != nil {
		writeError(w, "agency", err)
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		http.Error(w, "event log not available", http.StatusServiceUnavailable)
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	events, err := s.Events.RecentEvents(r.Context(), r.URL.Query().Get("agency"), limit)
	if err != nil {
		writeError(w, "events", err)
		return
	}
	writeJSON(w, events)
}

func (s *Server) handleRequestMercato(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RequesterID string             `json:"requesterId"`
		StudentID   string             `json:"studentId"`
		Kind        agency.RequestKind `json:"kind"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.Engine.RequestMercato(r.Context(), r.PathValue("id"), req.RequesterID, req.StudentID, req.Kind)
	if err != nil {
		writeError(w, "mercato", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, out)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VoterID string            `json:"voterId"`
		Choice  agency.VoteChoice `json:"choice"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.Engine.SubmitVote(r.Context(), r.PathValue("id"), req.VoterID, req.Choice)
	if err != nil {
		writeError(w, "vote", err)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.RejectRequest(r.Context(), r.PathValue("id"), r.PathValue("rid")); err != nil {
		writeError(w, "reject", err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.Engine.SendChallenge(r.Context(), r.PathValue("id"), req.Title, req.Description)
	if err != nil {
		writeError(w, "challenge", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, out)
}

func (s *Server) handlePeerReview(w http.ResponseWriter, r *http.Request) {
	var review agency.PeerReview
	if !decodeBody(w, r, &review) {
		return
	}
	if err := s.Engine.SubmitPeerReview(r.Context(), r.PathValue("id"), review); err != nil {
		writeError(w, "review", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, map[string]any{"success": true})
}

func (s *Server) handleProposeMerger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceID string `json:"sourceId"`
		TargetID string `json:"targetId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.Engine.ProposeMerger(r.Context(), req.SourceID, req.TargetID)
	if err != nil {
		writeError(w, "merger", err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, out)
}

func (s *Server) handleFinalizeMerger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approved bool `json:"approved"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.Engine.FinalizeMerger(r.Context(), r.PathValue("rid"), r.PathValue("id"), req.Approved); err != nil {
		writeError(w, "merger", err)
		return
	}
	writeJSON(w, map[string]any{"success": true, "approved": req.Approved})
}

func (s *Server) handleCovert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string          `json:"studentId"`
		Op        policy.CovertOp `json:"op"`
		engine.CovertPayload
	}
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.Engine.PerformCovertOp(r.Context(), req.StudentID, r.PathValue("id"), req.Op, req.CovertPayload)
	if err != nil {
		writeError(w, "covert", err)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleBlackOp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetID string         `json:"targetId"`
		Op       policy.BlackOp `json:"op"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.Engine.TriggerBlackOp(r.Context(), r.PathValue("id"), req.TargetID, req.Op)
	if err != nil {
		writeError(w, "black-op", err)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WeekID        string  `json:"weekId"`
		DeliverableID string  `json:"deliverableId"`
		Score         float64 `json:"score"`
		DaysLate      int     `json:"daysLate"`
		Feedback      string  `json:"feedback"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := s.Engine.GradeDeliverable(r.Context(), r.PathValue("id"), req.WeekID, req.DeliverableID, req.Score, req.DaysLate, req.Feedback)
	if err != nil {
		writeError(w, "grade", err)
		return
	}
	writeJSON(w, out)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var scope engine.Scope
	if r.ContentLength != 0 && !decodeBody(w, r, &scope) {
		return
	}
	report, err := s.Engine.SettlePerformance(r.Context(), scope)
	if err != nil {
		writeError(w, "settle", err)
		return
	}
	writeJSON(w, report)
}
