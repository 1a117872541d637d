package engine

import (
	"context"
	"strings"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/store"
)

// SendChallenge offers a challenge to an agency. Its members accept it by
// vote; acceptance adds a deliverable to the current week.
func (e *Engine) SendChallenge(ctx context.Context, targetID, title, description string) (agency.ChallengeRequest, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return agency.ChallengeRequest{}, violation(RuleInvalidInput, "challenge title required")
	}
	if targetID == agency.BenchID {
		return agency.ChallengeRequest{}, violation(RuleIneligibleTarget, "the bench cannot be challenged")
	}
	target, err := e.readAgency(ctx, targetID)
	if err != nil {
		return agency.ChallengeRequest{}, err
	}

	c := agency.ChallengeRequest{
		ID:          e.newID(),
		Title:       title,
		Description: description,
		Reward:      e.policy.ChallengeReward,
		Status:      agency.RequestPending,
		Votes:       map[string]agency.VoteChoice{},
		CreatedAt:   e.now().UTC(),
	}
	target.Challenges = append(target.Challenges, c)
	if err := e.commit(ctx, "challenge", store.Batch{Agencies: []*agency.Agency{target}}); err != nil {
		return agency.ChallengeRequest{}, err
	}
	e.log.Info("challenge sent", "request", c.ID, "target", targetID)
	return c, nil
}
