// Package policy provides the league's scoring rules: reputation caps, tiers,
// settlement deltas, operation costs and vote thresholds.
// Everything here is pure; callers pass in values read from a snapshot.
package policy

import "github.com/talgya/studio-league/internal/agency"

// Score bounds for a student's individual score.
const (
	MinScore = 0
	MaxScore = 100
)

// CovertOp is a personal-wallet adversarial action.
type CovertOp string

const (
	OpShortSell    CovertOp = "SHORT_SELL"
	OpDoxxing      CovertOp = "DOXXING"
	OpLeak         CovertOp = "LEAK"
	OpFakeCert     CovertOp = "FAKE_CERT"
	OpBuyVote      CovertOp = "BUY_VOTE"
	OpAuditHostile CovertOp = "AUDIT_HOSTILE"
)

// BlackOp is a treasury-funded adversarial action.
type BlackOp string

const (
	BlackAudit      BlackOp = "AUDIT"
	BlackSpy        BlackOp = "SPY"
	BlackPRCampaign BlackOp = "PR_CAMPAIGN"
)

// OpCost is the price of one operation.
type OpCost struct {
	Cash  int64 `yaml:"cash" json:"cash"`
	Karma int   `yaml:"karma" json:"karma"`
}

// Thresholds are the approval ratios a vote must strictly exceed.
type Thresholds struct {
	Hire      float64 `yaml:"hire"`
	Fire      float64 `yaml:"fire"`
	Challenge float64 `yaml:"challenge"`
}

// Policy holds every tunable constant of the game.
type Policy struct {
	// Reputation cap: base + perMember × min(members, memberLimit).
	VECapBase        int `yaml:"ve_cap_base"`
	VECapPerMember   int `yaml:"ve_cap_per_member"`
	VECapMemberLimit int `yaml:"ve_cap_member_limit"`

	// Tier boundaries on ve_current.
	StableThreshold  int `yaml:"stable_threshold"`
	FragileThreshold int `yaml:"fragile_threshold"`

	// Solo mode.
	SoloCollapseThreshold int   `yaml:"solo_collapse_threshold"`
	SolvencyBudget        int64 `yaml:"solvency_budget"`
	SolvencyWallet        int64 `yaml:"solvency_wallet"`
	SolvencyBonus         int   `yaml:"solvency_bonus"`

	// Peer review bands on a member's mean received rating: above
	// excellent (strict), at least good, below poor.
	ReviewExcellentMean  float64 `yaml:"review_excellent_mean"`
	ReviewGoodMean       float64 `yaml:"review_good_mean"`
	ReviewPoorMean       float64 `yaml:"review_poor_mean"`
	ReviewExcellentDelta int     `yaml:"review_excellent_delta"`
	ReviewGoodDelta      int     `yaml:"review_good_delta"`
	ReviewPoorDelta      int     `yaml:"review_poor_delta"`

	// Streaks.
	StreakTarget int `yaml:"streak_target"`
	StreakBonus  int `yaml:"streak_bonus"`

	// Budget-driven reputation adjustment.
	BudgetBonusStep   int64 `yaml:"budget_bonus_step"`
	DebtPenaltyStep   int64 `yaml:"debt_penalty_step"`
	DebtPenaltyFactor int   `yaml:"debt_penalty_factor"`

	// Voting.
	Thresholds  Thresholds `yaml:"thresholds"`
	HireBonusVE int        `yaml:"hire_bonus_ve"`

	// Personal-wallet covert ops.
	CovertCosts         map[CovertOp]OpCost `yaml:"covert_costs"`
	AuditHostilePenalty int                 `yaml:"audit_hostile_penalty"`

	// Treasury-funded black ops.
	BlackOpCosts           map[BlackOp]OpCost `yaml:"black_op_costs"`
	BlackOpsUnlockWeek     int                `yaml:"black_ops_unlock_week"`
	BlackAuditTargetLoss   int                `yaml:"black_audit_target_loss"`
	BlackAuditAttackerLoss int                `yaml:"black_audit_attacker_loss"`
	PRCampaignGain         int                `yaml:"pr_campaign_gain"`

	// An agency is exposed to audits below this reputation or in debt.
	VulnerableVE int `yaml:"vulnerable_ve"`

	// Mergers.
	MergerUnlockWeek         int `yaml:"merger_unlock_week"`
	MergerStabilityThreshold int `yaml:"merger_stability_threshold"`
	MergerMaxMembers         int `yaml:"merger_max_members"`

	// Challenges.
	ChallengeReward int `yaml:"challenge_reward"`

	// Grading: delta = round((score − baseline) × multiplier) − lateness.
	GradeBaseline     float64 `yaml:"grade_baseline"`
	LatePenaltyPerDay int     `yaml:"late_penalty_per_day"`
	LatePenaltyMax    int     `yaml:"late_penalty_max"`
}

// Default returns the standard league rules.
func Default() Policy {
	return Policy{
		VECapBase:        80,
		VECapPerMember:   5,
		VECapMemberLimit: 4,

		StableThreshold:  60,
		FragileThreshold: 40,

		SoloCollapseThreshold: 20,
		SolvencyBudget:        1500,
		SolvencyWallet:        500,
		SolvencyBonus:         2,

		ReviewExcellentMean:  4.5,
		ReviewGoodMean:       4.0,
		ReviewPoorMean:       2.0,
		ReviewExcellentDelta: 2,
		ReviewGoodDelta:      1,
		ReviewPoorDelta:      -5,

		StreakTarget: 3,
		StreakBonus:  10,

		BudgetBonusStep:   2000,
		DebtPenaltyStep:   1000,
		DebtPenaltyFactor: 2,

		Thresholds:  Thresholds{Hire: 0.5, Fire: 0.66, Challenge: 0.5},
		HireBonusVE: 5,

		CovertCosts: map[CovertOp]OpCost{
			OpShortSell:    {Cash: 100, Karma: 5},
			OpDoxxing:      {Cash: 150, Karma: 10},
			OpLeak:         {Cash: 200, Karma: 15},
			OpFakeCert:     {Cash: 300, Karma: 20},
			OpBuyVote:      {Cash: 250, Karma: 15},
			OpAuditHostile: {Cash: 400, Karma: 10},
		},
		AuditHostilePenalty: 15,

		BlackOpCosts: map[BlackOp]OpCost{
			BlackAudit:      {Cash: 500},
			BlackSpy:        {Cash: 300},
			BlackPRCampaign: {Cash: 800},
		},
		BlackOpsUnlockWeek:     4,
		BlackAuditTargetLoss:   10,
		BlackAuditAttackerLoss: 20,
		PRCampaignGain:         5,

		VulnerableVE: 40,

		MergerUnlockWeek:         6,
		MergerStabilityThreshold: 40,
		MergerMaxMembers:         6,

		ChallengeReward: 10,

		GradeBaseline:     10,
		LatePenaltyPerDay: 2,
		LatePenaltyMax:    10,
	}
}

// Threshold returns the approval ratio for a vote kind. Merger requests are
// decided by an explicit accept/reject call and have no ratio.
func (p Policy) Threshold(kind agency.RequestKind) (float64, bool) {
	switch kind {
	case agency.KindHire:
		return p.Thresholds.Hire, true
	case agency.KindFire:
		return p.Thresholds.Fire, true
	case agency.KindChallenge:
		return p.Thresholds.Challenge, true
	default:
		return 0, false
	}
}

// CovertCost returns the cost of a personal covert op.
func (p Policy) CovertCost(op CovertOp) (OpCost, bool) {
	c, ok := p.CovertCosts[op]
	return nonNegativeCost(c), ok
}

// BlackOpCost returns the treasury cost of a black op.
func (p Policy) BlackOpCost(op BlackOp) (OpCost, bool) {
	c, ok := p.BlackOpCosts[op]
	return nonNegativeCost(c), ok
}

func nonNegativeCost(c OpCost) OpCost {
	if c.Cash < 0 {
		c.Cash = 0
	}
	if c.Karma < 0 {
		c.Karma = 0
	}
	return c
}
