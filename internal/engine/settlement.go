package engine

import (
	"context"
	"fmt"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/policy"
	"github.com/talgya/studio-league/internal/store"
)

// Scope selects the agencies a settlement covers. An empty ClassID means
// every class. Week is the course week being settled; zero means the
// current week.
type Scope struct {
	ClassID string `json:"classId,omitempty"`
	Week    int    `json:"week,omitempty"`
}

func (s Scope) includes(a *agency.Agency) bool {
	return s.ClassID == "" || a.ClassID == s.ClassID
}

// MemberSettlement is one student's result.
type MemberSettlement struct {
	StudentID string `json:"studentId"`
	Delta     int    `json:"delta"`
	Score     int    `json:"score"`
	Streak    int    `json:"streak"`
}

// AgencySettlement is one agency's result.
type AgencySettlement struct {
	AgencyID   string             `json:"agencyId"`
	Adjustment int                `json:"adjustment"`
	VEBefore   int                `json:"veBefore"`
	VEAfter    int                `json:"veAfter"`
	Status     agency.Status      `json:"status"`
	Members    []MemberSettlement `json:"members"`
}

// Report summarizes a committed settlement.
type Report struct {
	Week     int                `json:"week"`
	Agencies []AgencySettlement `json:"agencies"`
	// Skipped lists agencies in scope that had already been settled for Week.
	Skipped []string `json:"skipped,omitempty"`
}

// SettlePerformance runs the weekly settlement over every agency in scope
// except the bench. All agencies commit together or not at all. Each agency
// records the week it was settled for in the same batch, so settling a week
// again leaves already settled agencies untouched.
func (e *Engine) SettlePerformance(ctx context.Context, scope Scope) (Report, error) {
	week := scope.Week
	if week < 0 {
		return Report{}, violation(RuleInvalidInput, "week %d", week)
	}
	if week == 0 {
		week = e.calendar.CurrentWeek()
	}
	all, err := e.store.ReadAllAgencies(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("read agencies: %w", err)
	}

	report := Report{Week: week}
	var batch store.Batch
	for _, a := range all {
		if a.IsBench() || !scope.includes(a) {
			continue
		}
		if a.LastSettledWeek >= week {
			report.Skipped = append(report.Skipped, a.ID)
			continue
		}
		report.Agencies = append(report.Agencies, e.settleAgency(a, agency.WeekKey(week)))
		a.LastSettledWeek = week
		batch.Put(a)
	}

	if batch.Len() == 0 {
		if len(report.Skipped) > 0 {
			e.log.Info("settlement already applied", "week", week, "class", scope.ClassID, "agencies", len(report.Skipped))
		}
		return report, nil
	}
	if err := e.commit(ctx, "settle", batch); err != nil {
		return Report{}, err
	}
	e.log.Info("settlement committed", "week", week, "class", scope.ClassID, "agencies", batch.Len())
	return report, nil
}

func (e *Engine) settleAgency(a *agency.Agency, weekID string) AgencySettlement {
	p := e.policy
	res := AgencySettlement{AgencyID: a.ID, VEBefore: a.VECurrent}
	solo := len(a.Members) == 1

	for i := range a.Members {
		m := &a.Members[i]
		var delta int
		if solo {
			delta = p.SoloDelta(a.VECurrent, a.BudgetReal, m.Wallet)
		} else if mean, ok := policy.ReviewMean(a.PeerReviews, m.ID); ok {
			delta, m.Streak = p.ReviewDelta(mean, m.Streak)
		}
		bonus, streak := p.StreakPayout(m.Streak)
		m.Streak = streak
		delta += bonus

		before := m.IndividualScore
		m.IndividualScore = policy.ClampScore(before + delta)
		applied := m.IndividualScore - before
		if applied != 0 {
			m.History = append(m.History, e.historyEntry("settlement", a.ID, "Weekly settlement", applied))
		}
		res.Members = append(res.Members, MemberSettlement{
			StudentID: m.ID,
			Delta:     applied,
			Score:     m.IndividualScore,
			Streak:    m.Streak,
		})
	}

	adj := p.BudgetAdjustment(a.BudgetReal)
	applied := e.applyVE(a, adj)
	if adj != 0 {
		ev := e.newEvent(agency.EventSettlement, "Treasury review",
			fmt.Sprintf("Treasury at %s moves reputation by %+d.", credits(a.BudgetReal), adj))
		ev.DeltaVE = intPtr(applied)
		a.AppendEvent(ev)
	}
	res.Adjustment = adj

	archivedAt := e.now().UTC()
	for _, r := range a.PeerReviews {
		if r.WeekID == "" {
			r.WeekID = weekID
		}
		r.ArchivedAt = archivedAt
		a.ReviewHistory = append(a.ReviewHistory, r)
	}
	a.PeerReviews = []agency.PeerReview{}

	res.VEAfter = a.VECurrent
	res.Status = a.Status
	return res
}
