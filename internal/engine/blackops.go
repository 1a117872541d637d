package engine

import (
	"context"
	"fmt"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/policy"
	"github.com/talgya/studio-league/internal/store"
)

// Intel is what a SPY operation reveals about the target.
type Intel struct {
	AgencyID   string        `json:"agencyId"`
	VECurrent  int           `json:"ve_current"`
	BudgetReal int64         `json:"budget_real"`
	Status     agency.Status `json:"status"`
	Members    int           `json:"members"`
	Vulnerable bool          `json:"vulnerable"`
}

// BlackOpResult reports a treasury-funded operation.
type BlackOpResult struct {
	Op          policy.BlackOp `json:"op"`
	Cost        int64          `json:"cost"`
	Success     bool           `json:"success"`
	AttackerVE  int            `json:"attackerVeDelta"`
	TargetVE    int            `json:"targetVeDelta"`
	Intel       *Intel         `json:"intel,omitempty"`
	BudgetAfter int64          `json:"budgetAfter"`
}

// TriggerBlackOp runs an agency-funded operation. Unlike the personal
// AUDIT_HOSTILE, a failed AUDIT here costs the attacker reputation.
func (e *Engine) TriggerBlackOp(ctx context.Context, agencyID, targetID string, op policy.BlackOp) (BlackOpResult, error) {
	cost, ok := e.policy.BlackOpCost(op)
	if !ok {
		return BlackOpResult{}, violation(RuleUnknownOperation, "black op %q", op)
	}
	if week := e.calendar.CurrentWeek(); week < e.policy.BlackOpsUnlockWeek {
		return BlackOpResult{}, violation(RuleNotUnlocked, "black ops unlock in week %d (now week %d)", e.policy.BlackOpsUnlockWeek, week)
	}

	snap, err := e.readSnapshot(ctx)
	if err != nil {
		return BlackOpResult{}, err
	}
	attacker, err := snap.agency(agencyID)
	if err != nil {
		return BlackOpResult{}, err
	}
	if attacker.IsBench() {
		return BlackOpResult{}, violation(RuleIneligibleTarget, "the bench has no treasury")
	}
	if attacker.BudgetReal < cost.Cash {
		return BlackOpResult{}, &InsufficientFundsError{Payer: agencyID, Need: cost.Cash, Have: attacker.BudgetReal}
	}

	var target *agency.Agency
	if op != policy.BlackPRCampaign {
		if target, err = e.covertTarget(snap, attacker, targetID); err != nil {
			return BlackOpResult{}, err
		}
	}

	attacker.BudgetReal -= cost.Cash
	res := BlackOpResult{Op: op, Cost: cost.Cash, Success: true}
	var batch store.Batch
	var description string

	switch op {
	case policy.BlackAudit:
		if e.policy.Vulnerable(target.VECurrent, target.BudgetReal) {
			res.TargetVE = e.applyVE(target, -e.policy.BlackAuditTargetLoss)
			ev := e.newEvent(agency.EventSanction, "Audit sanction",
				fmt.Sprintf("An audit ordered by %s uncovered irregularities.", attacker.Name))
			ev.DeltaVE = intPtr(res.TargetVE)
			target.AppendEvent(ev)
			batch.Put(target)
			description = fmt.Sprintf("Audit of %s succeeded.", target.Name)
		} else {
			res.Success = false
			res.AttackerVE = e.applyVE(attacker, -e.policy.BlackAuditAttackerLoss)
			description = fmt.Sprintf("Audit of %s found nothing and backfired.", target.Name)
		}
	case policy.BlackSpy:
		res.Intel = &Intel{
			AgencyID:   target.ID,
			VECurrent:  target.VECurrent,
			BudgetReal: target.BudgetReal,
			Status:     target.Status,
			Members:    len(target.Members),
			Vulnerable: e.policy.Vulnerable(target.VECurrent, target.BudgetReal),
		}
		description = fmt.Sprintf("Intelligence gathered on %s.", target.Name)
	case policy.BlackPRCampaign:
		res.AttackerVE = e.applyVE(attacker, e.policy.PRCampaignGain)
		description = "A press campaign polishes the agency's image."
	}

	ev := e.newEvent(agency.EventBlackOp, string(op),
		fmt.Sprintf("%s Cost: %s.", description, credits(cost.Cash)))
	ev.DeltaVE = intPtr(res.AttackerVE)
	ev.DeltaBudgetReal = int64Ptr(-cost.Cash)
	attacker.AppendEvent(ev)
	batch.Put(attacker)

	res.BudgetAfter = attacker.BudgetReal
	if err := e.commit(ctx, "black-op", batch); err != nil {
		return BlackOpResult{}, err
	}
	e.log.Info("black op", "op", op, "agency", agencyID, "target", targetID, "success", res.Success)
	return res, nil
}
