package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/store"
)

// Grade bounds for instructor scores.
const (
	MinGrade = 0
	MaxGrade = 20
)

// GradeResult reports a recorded grade.
type GradeResult struct {
	AgencyID      string  `json:"agencyId"`
	DeliverableID string  `json:"deliverableId"`
	Multiplier    float64 `json:"multiplier"`
	DeltaVE       int     `json:"deltaVE"`
	VECurrent     int     `json:"ve_current"`
}

// GradeDeliverable records an instructor grade and moves the agency's
// reputation accordingly. The week's scoring config is snapshotted on first
// grade so later grades that week use the same multiplier. Regrading applies
// only the difference from the previous grade.
func (e *Engine) GradeDeliverable(ctx context.Context, agencyID, weekID, deliverableID string, score float64, daysLate int, feedback string) (GradeResult, error) {
	if score < MinGrade || score > MaxGrade {
		return GradeResult{}, violation(RuleInvalidInput, "score %v outside %d–%d", score, MinGrade, MaxGrade)
	}
	if daysLate < 0 {
		return GradeResult{}, violation(RuleInvalidInput, "days late %d", daysLate)
	}
	a, err := e.readAgency(ctx, agencyID)
	if err != nil {
		return GradeResult{}, err
	}
	d, err := findDeliverable(a, weekID, deliverableID)
	if err != nil {
		return GradeResult{}, err
	}

	ws := a.Progress[weekID]
	if ws.ScoringConfig == nil {
		ws.ScoringConfig = &agency.ScoringConfig{
			Multiplier:        e.policy.PerformanceMultiplier(a),
			LatePenaltyPerDay: e.policy.LatePenaltyPerDay,
		}
		a.Progress[weekID] = ws
	}
	rules := e.policy
	rules.LatePenaltyPerDay = ws.ScoringConfig.LatePenaltyPerDay

	delta := rules.GradeDelta(score, daysLate, ws.ScoringConfig.Multiplier)
	if d.Source == "challenge" && score >= e.policy.GradeBaseline {
		delta += d.Reward
	}
	previous := 0
	if d.Grading != nil {
		previous = d.Grading.DeltaVE
	}
	applied := e.applyVE(a, delta-previous)

	d.Status = agency.DeliverableGraded
	d.Grading = &agency.Grading{
		Score:    score,
		DaysLate: daysLate,
		DeltaVE:  delta,
		GradedAt: e.now().UTC(),
		Feedback: feedback,
	}

	ev := e.newEvent(agency.EventGrade, d.Title,
		fmt.Sprintf("Graded %.1f/%d, %d day(s) late.", score, MaxGrade, daysLate))
	ev.DeltaVE = intPtr(applied)
	a.AppendEvent(ev)

	if err := e.commit(ctx, "grade", store.Batch{Agencies: []*agency.Agency{a}}); err != nil {
		return GradeResult{}, err
	}
	e.log.Info("deliverable graded", "agency", agencyID, "week", weekID, "deliverable", deliverableID, "delta", applied)
	return GradeResult{
		AgencyID:      agencyID,
		DeliverableID: deliverableID,
		Multiplier:    ws.ScoringConfig.Multiplier,
		DeltaVE:       applied,
		VECurrent:     a.VECurrent,
	}, nil
}

// SubmitPeerReview stores one member's rating of a teammate for the next
// settlement, replacing their earlier rating of the same teammate.
func (e *Engine) SubmitPeerReview(ctx context.Context, agencyID string, r agency.PeerReview) error {
	if r.ReviewerID == r.TargetID {
		return violation(RuleIneligibleTarget, "members cannot review themselves")
	}
	for name, v := range map[string]float64{
		"attendance":  r.Attendance,
		"quality":     r.Quality,
		"involvement": r.Involvement,
	} {
		if v < 0 || v > 5 {
			return violation(RuleInvalidInput, "%s rating %v outside 0–5", name, v)
		}
	}
	a, err := e.readAgency(ctx, agencyID)
	if err != nil {
		return err
	}
	if a.MemberIndex(r.ReviewerID) < 0 {
		return NewNotFoundError("student", r.ReviewerID)
	}
	if a.MemberIndex(r.TargetID) < 0 {
		return NewNotFoundError("student", r.TargetID)
	}
	if r.WeekID == "" {
		r.WeekID = agency.WeekKey(e.calendar.CurrentWeek())
	}
	r.ArchivedAt = time.Time{}

	replaced := false
	for i := range a.PeerReviews {
		if a.PeerReviews[i].ReviewerID == r.ReviewerID && a.PeerReviews[i].TargetID == r.TargetID {
			a.PeerReviews[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		a.PeerReviews = append(a.PeerReviews, r)
	}
	return e.commit(ctx, "peer-review", store.Batch{Agencies: []*agency.Agency{a}})
}
