package core

import (
	"context"
	"fmt"

	"agritrace/pkg/domain"
)

// ReputationBoundsRule blocks any actor change that leaves a reputation score
// outside [0,100]. Service code saturates at the bounds; the rule is the
// commit-time backstop.
func ReputationBoundsRule() domain.Rule {
	return reputationBoundsRule{}
}

type reputationBoundsRule struct{}

func (reputationBoundsRule) Name() string { return "reputation_bounds" }

func (reputationBoundsRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityActor {
			continue
		}
		actor, ok := domain.Decode[domain.Actor](change.After)
		if !ok {
			continue
		}
		for role, score := range actor.Reputation {
			if score < 0 || score > 100 {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "reputation_bounds",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("actor %s %s reputation %d outside [0,100]", actor.ID, role, score),
					Entity:   domain.EntityActor,
					EntityID: actor.ID,
				})
			}
		}
	}
	return res, nil
}
