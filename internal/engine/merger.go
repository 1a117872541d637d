package engine

import (
	"context"
	"fmt"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/store"
)

// DissolvedSuffix marks the name of an agency absorbed by a merger.
const DissolvedSuffix = " [DISSOLVED]"

// ProposeMerger files an acquisition offer from source on target's queue.
// Only struggling targets can be acquired.
func (e *Engine) ProposeMerger(ctx context.Context, sourceID, targetID string) (agency.MergerRequest, error) {
	if week := e.calendar.CurrentWeek(); week < e.policy.MergerUnlockWeek {
		return agency.MergerRequest{}, violation(RuleNotUnlocked, "mergers unlock in week %d (now week %d)", e.policy.MergerUnlockWeek, week)
	}
	if sourceID == targetID || sourceID == agency.BenchID || targetID == agency.BenchID {
		return agency.MergerRequest{}, violation(RuleIneligibleTarget, "cannot merge %s into %s", targetID, sourceID)
	}
	source, err := e.readAgency(ctx, sourceID)
	if err != nil {
		return agency.MergerRequest{}, err
	}
	target, err := e.readAgency(ctx, targetID)
	if err != nil {
		return agency.MergerRequest{}, err
	}
	if target.VECurrent > e.policy.MergerStabilityThreshold {
		return agency.MergerRequest{}, violation(RuleIneligibleTarget,
			"%s is too stable to acquire (VE %d > %d)", targetID, target.VECurrent, e.policy.MergerStabilityThreshold)
	}
	for _, r := range target.MergerRequests {
		if r.SourceAgencyID == sourceID && r.Status == agency.RequestPending {
			return agency.MergerRequest{}, violation(RuleDuplicate, "%s already has an offer pending on %s", sourceID, targetID)
		}
	}

	req := agency.MergerRequest{
		ID:             e.newID(),
		SourceAgencyID: source.ID,
		SourceName:     source.Name,
		TargetAgencyID: target.ID,
		Status:         agency.RequestPending,
		Votes:          map[string]agency.VoteChoice{},
		CreatedAt:      e.now().UTC(),
	}
	target.MergerRequests = append(target.MergerRequests, req)
	if err := e.commit(ctx, "merger-propose", store.Batch{Agencies: []*agency.Agency{target}}); err != nil {
		return agency.MergerRequest{}, err
	}
	e.log.Info("merger proposed", "request", req.ID, "source", sourceID, "target", targetID)
	return req, nil
}

// FinalizeMerger settles an offer on target's queue. A refusal only drops
// the request. An approval moves every member and the whole treasury to the
// source and dissolves the target; both agencies commit together.
func (e *Engine) FinalizeMerger(ctx context.Context, requestID, targetID string, approved bool) error {
	target, err := e.readAgency(ctx, targetID)
	if err != nil {
		return err
	}
	i := target.Merger(requestID)
	if i < 0 || target.MergerRequests[i].Status != agency.RequestPending {
		return NewNotFoundError("request", requestID)
	}
	req := target.MergerRequests[i]

	if !approved {
		target.MergerRequests = append(target.MergerRequests[:i], target.MergerRequests[i+1:]...)
		if err := e.commit(ctx, "merger-refuse", store.Batch{Agencies: []*agency.Agency{target}}); err != nil {
			return err
		}
		e.log.Info("merger refused", "request", requestID, "target", targetID)
		return nil
	}

	source, err := e.readAgency(ctx, req.SourceAgencyID)
	if err != nil {
		return err
	}
	if total := len(source.Members) + len(target.Members); total > e.policy.MergerMaxMembers {
		return violation(RuleCapacityExceeded, "merged roster of %d exceeds %d", total, e.policy.MergerMaxMembers)
	}

	absorbed := len(target.Members)
	for _, m := range target.Members {
		m.History = append(m.History, e.historyEntry("merger", source.ID, "Absorbed into "+source.Name, 0))
		source.Members = append(source.Members, m)
	}
	source.BudgetReal += target.BudgetReal
	e.applyVE(source, 0)
	ev := e.newEvent(agency.EventMerger, "Acquisition",
		fmt.Sprintf("%s absorbs %s: %d members, treasury %s.", source.Name, target.Name, absorbed, credits(target.BudgetReal)))
	ev.DeltaBudgetReal = int64Ptr(target.BudgetReal)
	source.AppendEvent(ev)

	target.AppendEvent(e.newEvent(agency.EventMerger, "Dissolution",
		fmt.Sprintf("Absorbed by %s.", source.Name)))
	target.Members = []agency.Student{}
	target.BudgetReal = 0
	target.Name += DissolvedSuffix
	target.MergerRequests = []agency.MergerRequest{}
	target.VECurrent = e.policy.ClampVE(target, target.VECurrent)
	target.Status = agency.StatusCritique

	if err := e.commit(ctx, "merger", store.Batch{Agencies: []*agency.Agency{source, target}}); err != nil {
		return err
	}
	e.log.Info("merger completed", "request", requestID, "source", source.ID, "target", targetID, "members", len(source.Members))
	return nil
}
