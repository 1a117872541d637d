package policy

import (
	"math"

	"github.com/talgya/studio-league/internal/agency"
)

// VECap returns the reputation ceiling for an agency. It grows with the
// roster up to the member limit.
func (p Policy) VECap(a *agency.Agency) int {
	members := min(len(a.Members), max(p.VECapMemberLimit, 0))
	return max(p.VECapBase+p.VECapPerMember*members, 0)
}

// ClampVE bounds a reputation value to [0, VECap(a)].
func (p Policy) ClampVE(a *agency.Agency, ve int) int {
	return clamp(ve, 0, p.VECap(a))
}

// StatusFor derives the tier from a reputation score.
func (p Policy) StatusFor(ve int) agency.Status {
	switch {
	case ve >= p.StableThreshold:
		return agency.StatusStable
	case ve >= p.FragileThreshold:
		return agency.StatusFragile
	default:
		return agency.StatusCritique
	}
}

// PerformanceMultiplier scales grading deltas by agency health: healthy
// agencies earn more per point, struggling ones less. Debt costs a tenth.
func (p Policy) PerformanceMultiplier(a *agency.Agency) float64 {
	m := 1.0
	switch p.StatusFor(a.VECurrent) {
	case agency.StatusStable:
		m = 1.2
	case agency.StatusCritique:
		m = 0.8
	}
	if a.BudgetReal < 0 {
		m -= 0.1
	}
	return math.Max(m, 0.5)
}

// BudgetAdjustment is the weekly reputation change driven by the treasury:
// +floor(b/step) when rich, −factor·ceil(|b|/step) when in debt.
func (p Policy) BudgetAdjustment(budget int64) int {
	switch {
	case p.BudgetBonusStep > 0 && budget >= p.BudgetBonusStep:
		return int(budget / p.BudgetBonusStep)
	case budget < 0 && p.DebtPenaltyStep > 0:
		debt := -budget
		steps := (debt + p.DebtPenaltyStep - 1) / p.DebtPenaltyStep
		return -p.DebtPenaltyFactor * int(steps)
	default:
		return 0
	}
}

// SoloDelta is the weekly score change of a one-member agency.
func (p Policy) SoloDelta(ve int, budget, wallet int64) int {
	delta := 0
	switch {
	case ve >= p.StableThreshold:
		delta = 2
	case ve >= p.FragileThreshold:
		delta = 1
	case ve < p.SoloCollapseThreshold:
		delta = -2
	}
	if budget >= p.SolvencyBudget && wallet >= p.SolvencyWallet {
		delta += p.SolvencyBonus
	}
	return delta
}

// ReviewDelta is the weekly score change of a group member given the mean of
// the peer ratings they received. It returns the updated streak.
func (p Policy) ReviewDelta(mean float64, streak int) (delta, newStreak int) {
	switch {
	case mean > p.ReviewExcellentMean:
		return p.ReviewExcellentDelta, streak + 1
	case mean >= p.ReviewGoodMean:
		return p.ReviewGoodDelta, 0
	case mean < p.ReviewPoorMean:
		return p.ReviewPoorDelta, 0
	default:
		return 0, 0
	}
}

// StreakPayout pays out a streak that reached the target and resets it.
func (p Policy) StreakPayout(streak int) (bonus, newStreak int) {
	if p.StreakTarget > 0 && streak >= p.StreakTarget {
		return p.StreakBonus, 0
	}
	return 0, streak
}

// Vulnerable reports whether an agency is exposed to an audit.
func (p Policy) Vulnerable(ve int, budget int64) bool {
	return budget < 0 || ve < p.VulnerableVE
}

// GradeDelta converts an instructor grade (0–20) into a reputation delta.
func (p Policy) GradeDelta(score float64, daysLate int, multiplier float64) int {
	score = math.Max(score, 0)
	base := int(math.Round((score - p.GradeBaseline) * multiplier))
	late := min(max(daysLate, 0)*p.LatePenaltyPerDay, p.LatePenaltyMax)
	return base - late
}

// ReviewMean averages the three-axis ratings a member received. ok is false
// when nobody reviewed them.
func ReviewMean(reviews []agency.PeerReview, targetID string) (mean float64, ok bool) {
	var sum float64
	var n int
	for _, r := range reviews {
		if r.TargetID != targetID {
			continue
		}
		sum += r.Average()
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// ClampScore bounds an individual score to [MinScore, MaxScore].
func ClampScore(s int) int {
	return clamp(s, MinScore, MaxScore)
}

// NonNegative clamps an integer at zero.
func NonNegative(v int) int {
	return max(v, 0)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
