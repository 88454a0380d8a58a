package core

import (
	"context"
	"fmt"

	"agritrace/pkg/domain"
)

// BatchMembershipRule enforces batch view consistency at commit time: the
// stored member list is non-empty and immutable after creation, and the
// removal flag set never names an id outside that list.
func BatchMembershipRule() domain.Rule {
	return batchMembershipRule{}
}

type batchMembershipRule struct{}

func (batchMembershipRule) Name() string { return "batch_membership" }

func (batchMembershipRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityBatch {
			continue
		}
		after, ok := domain.Decode[domain.Batch](change.After)
		if !ok {
			continue
		}
		if len(after.ProductIDs) == 0 {
			res.Violations = append(res.Violations, batchViolation(after.ID, "batch has no members"))
			continue
		}
		members := toSet(after.ProductIDs...)
		for removed := range after.Removed {
			if _, ok := members[removed]; !ok {
				res.Violations = append(res.Violations, batchViolation(after.ID,
					fmt.Sprintf("removal flag references non-member product %s", removed)))
			}
		}
		for _, id := range after.ProductIDs {
			if _, ok := view.FindProduct(id); !ok {
				res.Violations = append(res.Violations, batchViolation(after.ID,
					fmt.Sprintf("member product %s does not exist", id)))
			}
		}
		if before, ok := domain.Decode[domain.Batch](change.Before); ok {
			if !sameMembers(before.ProductIDs, after.ProductIDs) {
				res.Violations = append(res.Violations, batchViolation(after.ID, "stored member list is immutable after creation"))
			}
		}
	}
	return res, nil
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func batchViolation(entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "batch_membership",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityBatch,
		EntityID: entityID,
	}
}
