// Package agency provides the league data model: agencies, their members,
// pending vote requests and the append-only event log.
package agency

import "time"

// BenchID is the reserved agency holding unassigned and dismissed students.
const BenchID = "unemployed"

// GhostVoterPrefix marks synthetic votes injected by a BUY_VOTE operation.
// Ghost voters never count toward the eligible-voter denominator.
const GhostVoterPrefix = "ghost:"

// Status is the derived health tier of an agency.
type Status string

const (
	StatusStable   Status = "stable"
	StatusFragile  Status = "fragile"
	StatusCritique Status = "critique"
)

// VoteChoice is a single ballot.
type VoteChoice string

const (
	VoteApprove VoteChoice = "APPROVE"
	VoteReject  VoteChoice = "REJECT"
)

// Valid reports whether c is a known ballot value.
func (c VoteChoice) Valid() bool {
	return c == VoteApprove || c == VoteReject
}

// RequestStatus tracks a vote request lifecycle. PENDING is the only
// non-terminal state.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestRejected RequestStatus = "REJECTED"
	RequestExecuted RequestStatus = "EXECUTED"
)

// RequestKind identifies the vote policy a request is resolved under.
type RequestKind string

const (
	KindHire      RequestKind = "HIRE"
	KindFire      RequestKind = "FIRE"
	KindMerger    RequestKind = "MERGER"
	KindChallenge RequestKind = "CHALLENGE"
)

// BetStatus is the lifecycle of a short-sell wager.
type BetStatus string

const (
	BetActive BetStatus = "ACTIVE"
	BetWon    BetStatus = "WON"
	BetLost   BetStatus = "LOST"
)

// DeliverableStatus tracks a weekly deliverable.
type DeliverableStatus string

const (
	DeliverablePending   DeliverableStatus = "PENDING"
	DeliverableSubmitted DeliverableStatus = "SUBMITTED"
	DeliverableGraded    DeliverableStatus = "GRADED"
)

// EventType categorizes a GameEvent.
type EventType string

const (
	EventSettlement EventType = "SETTLEMENT"
	EventHire       EventType = "MERCATO_HIRE"
	EventFire       EventType = "MERCATO_FIRE"
	EventChallenge  EventType = "CHALLENGE"
	EventMerger     EventType = "MERGER"
	EventTrace      EventType = "SUSPICIOUS_ACTIVITY"
	EventSanction   EventType = "SANCTION"
	EventBlackOp    EventType = "BLACK_OP"
	EventGrade      EventType = "GRADE"
)

// Agency is the root aggregate: a studio with reputation, treasury, members
// and pending requests. It exclusively owns everything it references.
type Agency struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ClassID string `json:"classId"`

	// Version is the store's concurrency token. It is bumped on every commit.
	Version int64 `json:"version"`

	Members []Student `json:"members"`

	VECurrent  int    `json:"ve_current"`  // reputation, 0..VECap
	BudgetReal int64  `json:"budget_real"` // signed treasury
	Status     Status `json:"status"`

	// LastSettledWeek is the latest course week whose settlement this agency
	// has received. Zero means never settled.
	LastSettledWeek int `json:"lastSettledWeek,omitempty"`

	// Week id → deliverables and the scoring config in force that week.
	Progress map[string]WeekState `json:"progress"`

	PeerReviews   []PeerReview `json:"peerReviews"`   // cleared each settlement
	ReviewHistory []PeerReview `json:"reviewHistory"` // append-only

	EventLog []GameEvent `json:"eventLog"` // append-only

	MercatoRequests []MercatoRequest   `json:"mercatoRequests"`
	MergerRequests  []MergerRequest    `json:"mergerRequests"`
	Challenges      []ChallengeRequest `json:"challenges"`
}

// Student is a member of exactly one agency at a time.
type Student struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	IndividualScore int            `json:"individualScore"` // 0–100
	Wallet          int64          `json:"wallet"`
	Karma           int            `json:"karma"`
	Streak          int            `json:"streak"`
	Connected       bool           `json:"connected"`
	ActiveBets      []Bet          `json:"activeBets"`
	Badges          []string       `json:"badges"`
	History         []HistoryEntry `json:"history"`
	Notes           string         `json:"notes,omitempty"`
}

// Bet is a wager against a target agency's reputation.
type Bet struct {
	ID             string    `json:"id"`
	TargetAgencyID string    `json:"targetAgencyId"`
	AmountWagered  int64     `json:"amountWagered"`
	WeekID         string    `json:"weekId"`
	Status         BetStatus `json:"status"`
}

// HistoryEntry is one line of a student's career ledger.
type HistoryEntry struct {
	Date     time.Time `json:"date"`
	Kind     string    `json:"kind"`
	AgencyID string    `json:"agencyId"`
	Label    string    `json:"label"`
	Delta    int       `json:"delta,omitempty"`
}

// GameEvent is an immutable audit record.
type GameEvent struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	Type            EventType `json:"type"`
	Label           string    `json:"label"`
	Description     string    `json:"description"`
	DeltaVE         *int      `json:"deltaVE,omitempty"`
	DeltaBudgetReal *int64    `json:"deltaBudgetReal,omitempty"`
}

// WeekState is the per-week progress record of an agency.
type WeekState struct {
	Deliverables  []Deliverable  `json:"deliverables"`
	ScoringConfig *ScoringConfig `json:"scoringConfig,omitempty"`
}

// ScoringConfig snapshots the grading parameters used for a week.
type ScoringConfig struct {
	Multiplier        float64 `json:"multiplier"`
	LatePenaltyPerDay int     `json:"latePenaltyPerDay"`
}

// Deliverable is a piece of work due in a given week.
type Deliverable struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      DeliverableStatus `json:"status"`
	Reward      int               `json:"reward,omitempty"`
	Source      string            `json:"source,omitempty"` // "challenge" for accepted challenges
	Grading     *Grading          `json:"grading,omitempty"`
}

// Grading is the instructor's recorded assessment of a deliverable.
type Grading struct {
	Score    float64   `json:"score"` // 0–20
	DaysLate int       `json:"daysLate"`
	DeltaVE  int       `json:"deltaVE"`
	GradedAt time.Time `json:"gradedAt"`
	Feedback string    `json:"feedback,omitempty"`
}

// PeerReview is one member's rating of another, each axis 0–5.
type PeerReview struct {
	ReviewerID  string    `json:"reviewerId"`
	TargetID    string    `json:"targetId"`
	WeekID      string    `json:"weekId"`
	Attendance  float64   `json:"attendance"`
	Quality     float64   `json:"quality"`
	Involvement float64   `json:"involvement"`
	ArchivedAt  time.Time `json:"archivedAt,omitzero"`
}

// Average returns the three-axis mean of the review.
func (r PeerReview) Average() float64 {
	return (r.Attendance + r.Quality + r.Involvement) / 3
}

// MercatoRequest is a pending hire or fire decision owned by the deciding agency.
type MercatoRequest struct {
	ID          string                `json:"id"`
	Kind        RequestKind           `json:"kind"` // HIRE or FIRE
	AgencyID    string                `json:"agencyId"`
	StudentID   string                `json:"studentId"`
	StudentName string                `json:"studentName"`
	RequesterID string                `json:"requesterId"`
	Status      RequestStatus         `json:"status"`
	Votes       map[string]VoteChoice `json:"votes"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// MergerRequest is an acquisition offer sitting on the target's queue.
type MergerRequest struct {
	ID             string                `json:"id"`
	SourceAgencyID string                `json:"sourceAgencyId"`
	SourceName     string                `json:"sourceName"`
	TargetAgencyID string                `json:"targetAgencyId"`
	Status         RequestStatus         `json:"status"`
	Votes          map[string]VoteChoice `json:"votes"`
	CreatedAt      time.Time             `json:"createdAt"`
}

// ChallengeRequest is a peer challenge offered to an agency.
type ChallengeRequest struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Reward      int                   `json:"reward"`
	Status      RequestStatus         `json:"status"`
	Votes       map[string]VoteChoice `json:"votes"`
	CreatedAt   time.Time             `json:"createdAt"`
}
