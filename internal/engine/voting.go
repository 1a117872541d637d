package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/store"
)

// VoteOutcome reports the state of a request after a ballot.
type VoteOutcome struct {
	RequestID  string               `json:"requestId"`
	AgencyID   string               `json:"agencyId"`
	Kind       agency.RequestKind   `json:"kind"`
	Status     agency.RequestStatus `json:"status"`
	Approvals  int                  `json:"approvals"`
	Rejections int                  `json:"rejections"`
	Eligible   int                  `json:"eligible"`
}

// ballot points at one vote request inside a snapshot agency.
type ballot struct {
	owner     *agency.Agency
	kind      agency.RequestKind
	mercato   *agency.MercatoRequest
	challenge *agency.ChallengeRequest
	merger    *agency.MergerRequest
}

func (b ballot) id() string {
	switch {
	case b.mercato != nil:
		return b.mercato.ID
	case b.challenge != nil:
		return b.challenge.ID
	default:
		return b.merger.ID
	}
}

func (b ballot) status() agency.RequestStatus {
	switch {
	case b.mercato != nil:
		return b.mercato.Status
	case b.challenge != nil:
		return b.challenge.Status
	default:
		return b.merger.Status
	}
}

func (b ballot) votes() map[string]agency.VoteChoice {
	switch {
	case b.mercato != nil:
		if b.mercato.Votes == nil {
			b.mercato.Votes = make(map[string]agency.VoteChoice)
		}
		return b.mercato.Votes
	case b.challenge != nil:
		if b.challenge.Votes == nil {
			b.challenge.Votes = make(map[string]agency.VoteChoice)
		}
		return b.challenge.Votes
	default:
		if b.merger.Votes == nil {
			b.merger.Votes = make(map[string]agency.VoteChoice)
		}
		return b.merger.Votes
	}
}

// remove drops the request from its owner's queue.
func (b ballot) remove() {
	id := b.id()
	switch {
	case b.mercato != nil:
		if i := b.owner.Mercato(id); i >= 0 {
			b.owner.RemoveMercato(i)
		}
	case b.challenge != nil:
		if i := b.owner.Challenge(id); i >= 0 {
			b.owner.Challenges = append(b.owner.Challenges[:i], b.owner.Challenges[i+1:]...)
		}
	default:
		if i := b.owner.Merger(id); i >= 0 {
			b.owner.MergerRequests = append(b.owner.MergerRequests[:i], b.owner.MergerRequests[i+1:]...)
		}
	}
}

// findBallot scans every agency's queues for the request.
func findBallot(agencies []*agency.Agency, requestID string) (ballot, bool) {
	for _, a := range agencies {
		if i := a.Mercato(requestID); i >= 0 {
			r := &a.MercatoRequests[i]
			return ballot{owner: a, kind: r.Kind, mercato: r}, true
		}
		if i := a.Challenge(requestID); i >= 0 {
			return ballot{owner: a, kind: agency.KindChallenge, challenge: &a.Challenges[i]}, true
		}
		if i := a.Merger(requestID); i >= 0 {
			return ballot{owner: a, kind: agency.KindMerger, merger: &a.MergerRequests[i]}, true
		}
	}
	return ballot{}, false
}

// eligibleVoters returns the members entitled to vote. A FIRE request
// raised by someone else excludes its target; a member asking to leave
// still votes on their own departure.
func eligibleVoters(b ballot) map[string]bool {
	out := make(map[string]bool, len(b.owner.Members))
	for _, m := range b.owner.Members {
		out[m.ID] = true
	}
	if b.kind == agency.KindFire && b.mercato.StudentID != b.mercato.RequesterID {
		delete(out, b.mercato.StudentID)
	}
	return out
}

type tally struct {
	approvals  int // includes ghost approvals
	ghosts     int
	rejections int
	eligible   int
}

func tallyVotes(votes map[string]agency.VoteChoice, eligible map[string]bool) tally {
	t := tally{eligible: len(eligible)}
	for voter, choice := range votes {
		if strings.HasPrefix(voter, agency.GhostVoterPrefix) {
			if choice == agency.VoteApprove {
				t.approvals++
				t.ghosts++
			}
			continue
		}
		if !eligible[voter] {
			continue
		}
		switch choice {
		case agency.VoteApprove:
			t.approvals++
		case agency.VoteReject:
			t.rejections++
		}
	}
	return t
}

// passes reports approvals/eligible > threshold. With nobody eligible any
// approval carries the vote.
func (t tally) passes(threshold float64) bool {
	if t.eligible == 0 {
		return t.approvals > 0
	}
	return float64(t.approvals)/float64(t.eligible) > threshold
}

// SubmitVote records a ballot on a pending mercato or challenge request and
// resolves it when the approval ratio strictly exceeds the kind's threshold.
// The resolution and every agency it touches commit in one batch.
func (e *Engine) SubmitVote(ctx context.Context, requestID, voterID string, choice agency.VoteChoice) (VoteOutcome, error) {
	if !choice.Valid() {
		return VoteOutcome{}, violation(RuleInvalidInput, "unknown vote %q", choice)
	}
	if voterID == "" || strings.HasPrefix(voterID, agency.GhostVoterPrefix) {
		return VoteOutcome{}, violation(RuleIneligibleVoter, "voter id %q", voterID)
	}

	snap, err := e.readSnapshot(ctx)
	if err != nil {
		return VoteOutcome{}, err
	}
	b, ok := findBallot(snap.agencies, requestID)
	if !ok {
		return VoteOutcome{}, NewNotFoundError("request", requestID)
	}
	if b.kind == agency.KindMerger {
		return VoteOutcome{}, violation(RuleInvalidInput, "merger %s is decided by the target agency, not by ballot", requestID)
	}
	if b.status() != agency.RequestPending {
		return VoteOutcome{}, violation(RuleAlreadyResolved, "request %s is %s", requestID, b.status())
	}
	eligible := eligibleVoters(b)
	if !eligible[voterID] {
		return VoteOutcome{}, violation(RuleIneligibleVoter, "%s cannot vote on %s", voterID, requestID)
	}

	b.votes()[voterID] = choice
	t := tallyVotes(b.votes(), eligible)
	threshold, _ := e.policy.Threshold(b.kind)

	out := VoteOutcome{
		RequestID:  requestID,
		AgencyID:   b.owner.ID,
		Kind:       b.kind,
		Status:     agency.RequestPending,
		Approvals:  t.approvals,
		Rejections: t.rejections,
		Eligible:   t.eligible,
	}

	var batch store.Batch
	switch {
	case t.passes(threshold):
		touched, status, err := e.execute(snap, b)
		if err != nil {
			return VoteOutcome{}, err
		}
		for _, a := range touched {
			batch.Put(a)
		}
		out.Status = status
	default:
		batch.Put(b.owner)
	}

	if err := e.commit(ctx, "vote", batch); err != nil {
		return VoteOutcome{}, err
	}
	if out.Status != agency.RequestPending {
		e.log.Info("request resolved",
			"request", requestID, "kind", b.kind, "agency", b.owner.ID,
			"status", out.Status, "approvals", t.approvals, "eligible", t.eligible)
	}
	return out, nil
}

// execute applies an accepted request and returns every agency it touched.
func (e *Engine) execute(snap *snapshot, b ballot) ([]*agency.Agency, agency.RequestStatus, error) {
	switch b.kind {
	case agency.KindHire:
		touched, err := e.executeHire(snap, b)
		return touched, agency.RequestExecuted, err
	case agency.KindFire:
		touched, err := e.executeFire(snap, b)
		return touched, agency.RequestExecuted, err
	case agency.KindChallenge:
		return e.acceptChallenge(b), agency.RequestAccepted, nil
	default:
		return nil, "", violation(RuleInvalidInput, "request kind %q cannot be executed", b.kind)
	}
}

func (e *Engine) executeHire(snap *snapshot, b ballot) ([]*agency.Agency, error) {
	req := *b.mercato
	owner := b.owner

	fromID, ok := snap.students[req.StudentID]
	if !ok {
		return nil, NewNotFoundError("student", req.StudentID)
	}
	if fromID == owner.ID {
		return nil, violation(RuleIneligibleTarget, "%s is already a member of %s", req.StudentID, owner.ID)
	}
	from := snap.byID[fromID]

	student, _ := from.RemoveMember(req.StudentID)
	student.History = append(student.History, e.historyEntry("hire", owner.ID, "Hired by "+owner.Name, 0))
	owner.Members = append(owner.Members, student)
	snap.students[student.ID] = owner.ID

	e.applyVE(from, 0)
	gained := e.applyVE(owner, e.policy.HireBonusVE)

	ev := e.newEvent(agency.EventHire, "New hire",
		fmt.Sprintf("%s joins the agency.", student.Name))
	ev.DeltaVE = intPtr(gained)
	owner.AppendEvent(ev)
	if !from.IsBench() {
		from.AppendEvent(e.newEvent(agency.EventHire, "Departure",
			fmt.Sprintf("%s leaves for %s.", student.Name, owner.Name)))
	}

	b.remove()
	touched := []*agency.Agency{owner, from}
	for _, a := range snap.agencies {
		if a.PurgeStudentRequests(student.ID) > 0 && a != owner && a != from {
			touched = append(touched, a)
		}
	}
	return touched, nil
}

func (e *Engine) executeFire(snap *snapshot, b ballot) ([]*agency.Agency, error) {
	req := *b.mercato
	owner := b.owner

	student, ok := owner.RemoveMember(req.StudentID)
	if !ok {
		return nil, NewNotFoundError("student", req.StudentID)
	}
	student.Connected = false
	student.History = append(student.History, e.historyEntry("fire", owner.ID, "Left "+owner.Name, 0))

	bench, ok := snap.byID[agency.BenchID]
	if !ok {
		bench = newBench()
		snap.byID[bench.ID] = bench
		snap.agencies = append(snap.agencies, bench)
	}
	bench.Members = append(bench.Members, student)
	snap.students[student.ID] = bench.ID

	e.applyVE(owner, 0)
	label := "Dismissal"
	if req.RequesterID == req.StudentID {
		label = "Resignation"
	}
	owner.AppendEvent(e.newEvent(agency.EventFire, label,
		fmt.Sprintf("%s leaves the agency.", student.Name)))

	b.remove()
	return []*agency.Agency{owner, bench}, nil
}

func (e *Engine) acceptChallenge(b ballot) []*agency.Agency {
	c := b.challenge
	c.Status = agency.RequestAccepted

	a := b.owner
	week := agency.WeekKey(e.calendar.CurrentWeek())
	if a.Progress == nil {
		a.Progress = make(map[string]agency.WeekState)
	}
	ws := a.Progress[week]
	ws.Deliverables = append(ws.Deliverables, agency.Deliverable{
		ID:          e.newID(),
		Title:       c.Title,
		Description: c.Description,
		Status:      agency.DeliverablePending,
		Reward:      c.Reward,
		Source:      "challenge",
	})
	a.Progress[week] = ws

	a.AppendEvent(e.newEvent(agency.EventChallenge, "Challenge accepted",
		fmt.Sprintf("The agency takes on %q for %d VE.", c.Title, c.Reward)))
	return []*agency.Agency{a}
}

func newBench() *agency.Agency {
	return &agency.Agency{
		ID:       agency.BenchID,
		Name:     "Unemployed",
		Status:   agency.StatusCritique,
		Progress: map[string]agency.WeekState{},
	}
}

// RejectRequest removes a pending request from an agency's queues without
// side effects. Rejecting it again reports NotFound.
func (e *Engine) RejectRequest(ctx context.Context, agencyID, requestID string) error {
	a, err := e.readAgency(ctx, agencyID)
	if err != nil {
		return err
	}
	b, ok := findBallot([]*agency.Agency{a}, requestID)
	if !ok || b.status() != agency.RequestPending {
		return NewNotFoundError("request", requestID)
	}
	b.remove()
	if err := e.commit(ctx, "reject", store.Batch{Agencies: []*agency.Agency{a}}); err != nil {
		return err
	}
	e.log.Info("request rejected", "request", requestID, "kind", b.kind, "agency", agencyID)
	return nil
}
