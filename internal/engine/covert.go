package engine

import (
	"context"
	"fmt"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/policy"
	"github.com/talgya/studio-league/internal/store"
)

// CovertPayload carries the op-specific arguments. Unused fields are ignored.
type CovertPayload struct {
	TargetAgencyID string `json:"targetAgencyId,omitempty"` // SHORT_SELL, AUDIT_HOSTILE
	WeekID         string `json:"weekId,omitempty"`         // FAKE_CERT
	DeliverableID  string `json:"deliverableId,omitempty"`  // FAKE_CERT
	RequestID      string `json:"requestId,omitempty"`      // BUY_VOTE
}

// CovertResult reports what a personal covert op did.
type CovertResult struct {
	Op      policy.CovertOp `json:"op"`
	Cost    policy.OpCost   `json:"cost"`
	Wallet  int64           `json:"wallet"`
	Karma   int             `json:"karma"`
	Success bool            `json:"success"`
	Bet     *agency.Bet     `json:"bet,omitempty"`
	Penalty int             `json:"penalty,omitempty"` // VE removed from the target
}

// PerformCovertOp runs a wallet-funded adversarial action for a student of
// agencyID. Every successful invocation leaves a vague trace on the acting
// agency's log, whatever its branch did.
func (e *Engine) PerformCovertOp(ctx context.Context, studentID, agencyID string, op policy.CovertOp, p CovertPayload) (CovertResult, error) {
	cost, ok := e.policy.CovertCost(op)
	if !ok {
		return CovertResult{}, violation(RuleUnknownOperation, "covert op %q", op)
	}
	snap, err := e.readSnapshot(ctx)
	if err != nil {
		return CovertResult{}, err
	}
	actor, err := snap.agency(agencyID)
	if err != nil {
		return CovertResult{}, err
	}
	student := actor.Member(studentID)
	if student == nil {
		return CovertResult{}, NewNotFoundError("student", studentID)
	}
	if student.Wallet < cost.Cash {
		return CovertResult{}, &InsufficientFundsError{Payer: studentID, Need: cost.Cash, Have: student.Wallet}
	}

	student.Wallet -= cost.Cash
	student.Karma = policy.NonNegative(student.Karma - cost.Karma)

	res := CovertResult{Op: op, Cost: cost, Success: true}
	var batch store.Batch

	switch op {
	case policy.OpShortSell:
		target, err := e.covertTarget(snap, actor, p.TargetAgencyID)
		if err != nil {
			return CovertResult{}, err
		}
		bet := agency.Bet{
			ID:             e.newID(),
			TargetAgencyID: target.ID,
			AmountWagered:  cost.Cash,
			WeekID:         agency.WeekKey(e.calendar.CurrentWeek()),
			Status:         agency.BetActive,
		}
		student.ActiveBets = append(student.ActiveBets, bet)
		res.Bet = &bet

	case policy.OpDoxxing, policy.OpLeak:
		// Informational; the caller delivers the payoff.

	case policy.OpFakeCert:
		d, err := findDeliverable(actor, p.WeekID, p.DeliverableID)
		if err != nil {
			return CovertResult{}, err
		}
		if d.Grading != nil {
			d.Grading.DaysLate = 0
		}

	case policy.OpBuyVote:
		b, ok := findBallot(snap.agencies, p.RequestID)
		if !ok || b.kind == agency.KindMerger {
			return CovertResult{}, NewNotFoundError("request", p.RequestID)
		}
		if b.status() != agency.RequestPending {
			return CovertResult{}, violation(RuleAlreadyResolved, "request %s is %s", p.RequestID, b.status())
		}
		b.votes()[agency.GhostVoterPrefix+e.newID()] = agency.VoteApprove
		batch.Put(b.owner)

	case policy.OpAuditHostile:
		target, err := e.covertTarget(snap, actor, p.TargetAgencyID)
		if err != nil {
			return CovertResult{}, err
		}
		if e.policy.Vulnerable(target.VECurrent, target.BudgetReal) {
			lost := e.applyVE(target, -e.policy.AuditHostilePenalty)
			ev := e.newEvent(agency.EventSanction, "Audit sanction",
				"An external audit uncovered irregularities.")
			ev.DeltaVE = intPtr(lost)
			target.AppendEvent(ev)
			batch.Put(target)
			res.Penalty = -lost
		} else {
			res.Success = false
		}
	}

	trace := e.newEvent(agency.EventTrace, "Suspicious activity",
		"Unusual movements were noticed around the agency.")
	trace.DeltaVE = intPtr(0)
	trace.DeltaBudgetReal = int64Ptr(0)
	actor.AppendEvent(trace)
	batch.Put(actor)

	res.Wallet = student.Wallet
	res.Karma = student.Karma
	if err := e.commit(ctx, "covert", batch); err != nil {
		return CovertResult{}, err
	}
	e.log.Info("covert op", "op", op, "student", studentID, "agency", agencyID,
		"cost", cost.Cash, "success", res.Success)
	return res, nil
}

func (e *Engine) covertTarget(snap *snapshot, actor *agency.Agency, targetID string) (*agency.Agency, error) {
	if targetID == "" {
		return nil, violation(RuleInvalidInput, "target agency required")
	}
	target, err := snap.agency(targetID)
	if err != nil {
		return nil, err
	}
	if target.ID == actor.ID || target.IsBench() {
		return nil, violation(RuleIneligibleTarget, "cannot target %s", targetID)
	}
	return target, nil
}

func findDeliverable(a *agency.Agency, weekID, deliverableID string) (*agency.Deliverable, error) {
	ws, ok := a.Progress[weekID]
	if !ok {
		return nil, NewNotFoundError("deliverable", fmt.Sprintf("%s/%s", weekID, deliverableID))
	}
	for i := range ws.Deliverables {
		if ws.Deliverables[i].ID == deliverableID {
			// WeekState is stored by value; its slice still aliases the map entry.
			return &ws.Deliverables[i], nil
		}
	}
	return nil, NewNotFoundError("deliverable", fmt.Sprintf("%s/%s", weekID, deliverableID))
}
