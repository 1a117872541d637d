package engine

import (
	"context"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/store"
)

// RequestMercato opens a hire or fire vote on the deciding agency's queue.
//
// HIRE: the student joins agencyID. The requester is either the student
// themself or a current member proposing them.
// FIRE: the student leaves agencyID for the bench. The requester is a
// member; when requester and student are the same it is a resignation.
func (e *Engine) RequestMercato(ctx context.Context, agencyID, requesterID, studentID string, kind agency.RequestKind) (agency.MercatoRequest, error) {
	if kind != agency.KindHire && kind != agency.KindFire {
		return agency.MercatoRequest{}, violation(RuleInvalidInput, "mercato kind %q", kind)
	}
	snap, err := e.readSnapshot(ctx)
	if err != nil {
		return agency.MercatoRequest{}, err
	}
	owner, err := snap.agency(agencyID)
	if err != nil {
		return agency.MercatoRequest{}, err
	}
	if owner.IsBench() {
		return agency.MercatoRequest{}, violation(RuleIneligibleTarget, "the bench does not vote")
	}
	homeID, ok := snap.students[studentID]
	if !ok {
		return agency.MercatoRequest{}, NewNotFoundError("student", studentID)
	}
	requesterIsMember := owner.MemberIndex(requesterID) >= 0

	switch kind {
	case agency.KindHire:
		if homeID == owner.ID {
			return agency.MercatoRequest{}, violation(RuleIneligibleTarget, "%s is already a member", studentID)
		}
		if requesterID != studentID && !requesterIsMember {
			return agency.MercatoRequest{}, violation(RuleIneligibleVoter, "%s cannot propose hires for %s", requesterID, agencyID)
		}
	case agency.KindFire:
		if homeID != owner.ID {
			return agency.MercatoRequest{}, violation(RuleIneligibleTarget, "%s is not a member of %s", studentID, agencyID)
		}
		if !requesterIsMember {
			return agency.MercatoRequest{}, violation(RuleIneligibleVoter, "%s is not a member of %s", requesterID, agencyID)
		}
	}

	for _, r := range owner.MercatoRequests {
		if r.StudentID == studentID && r.Kind == kind && r.Status == agency.RequestPending {
			return agency.MercatoRequest{}, violation(RuleDuplicate, "%s already pending for %s", kind, studentID)
		}
	}

	student := snap.byID[homeID].Member(studentID)
	req := agency.MercatoRequest{
		ID:          e.newID(),
		Kind:        kind,
		AgencyID:    owner.ID,
		StudentID:   studentID,
		StudentName: student.Name,
		RequesterID: requesterID,
		Status:      agency.RequestPending,
		Votes:       map[string]agency.VoteChoice{},
		CreatedAt:   e.now().UTC(),
	}
	owner.MercatoRequests = append(owner.MercatoRequests, req)

	if err := e.commit(ctx, "mercato", store.Batch{Agencies: []*agency.Agency{owner}}); err != nil {
		return agency.MercatoRequest{}, err
	}
	e.log.Info("mercato requested", "request", req.ID, "kind", kind, "agency", agencyID, "student", studentID)
	return req, nil
}
