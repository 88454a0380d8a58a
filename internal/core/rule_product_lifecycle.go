package core

import (
	"context"
	"fmt"

	"agritrace/pkg/domain"
)

// ProductLifecycleRule blocks illegal product transitions at commit time:
// unknown stage or state values, stage regression, any mutation of an
// inactive product, and leaving the terminal retail rejection.
func ProductLifecycleRule() domain.Rule {
	return productLifecycleRule{}
}

type productLifecycleRule struct{}

var (
	validStages = toSet(
		string(domain.StageFarm),
		string(domain.StageDistribution),
		string(domain.StageRetail),
	)
	validStates = toSet(
		string(domain.StatePendingPickup),
		string(domain.StateReceived),
		string(domain.StateVerified),
		string(domain.StateRejected),
		string(domain.StateListed),
		string(domain.StateBought),
	)
)

func (productLifecycleRule) Name() string { return "product_lifecycle" }

func (productLifecycleRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityProduct {
			continue
		}

		after, ok := domain.Decode[domain.Product](change.After)
		if !ok {
			continue
		}
		if _, valid := validStages[string(after.Stage)]; !valid {
			res.Violations = append(res.Violations, violation("product_lifecycle", after.ID,
				fmt.Sprintf("product %s is set to invalid stage %s", after.ID, after.Stage)))
			continue
		}
		if _, valid := validStates[string(after.State)]; !valid {
			res.Violations = append(res.Violations, violation("product_lifecycle", after.ID,
				fmt.Sprintf("product %s is set to invalid state %s", after.ID, after.State)))
			continue
		}

		before, ok := domain.Decode[domain.Product](change.Before)
		if !ok {
			continue
		}
		if before.Stage.Order() > after.Stage.Order() {
			res.Violations = append(res.Violations, violation("product_lifecycle", after.ID,
				fmt.Sprintf("product %s cannot regress from stage %s to %s", after.ID, before.Stage, after.Stage)))
		}
		if !before.IsActive {
			res.Violations = append(res.Violations, violation("product_lifecycle", after.ID,
				fmt.Sprintf("product %s is inactive and accepts no further mutation", after.ID)))
		}
		if before.Stage == domain.StageRetail && before.State == domain.StateRejected &&
			(after.State != domain.StateRejected || after.Stage != domain.StageRetail) {
			res.Violations = append(res.Violations, violation("product_lifecycle", after.ID,
				fmt.Sprintf("product %s cannot leave terminal retail rejection", after.ID)))
		}
	}
	return res, nil
}

func violation(rule, entityID, message string) domain.Violation {
	return domain.Violation{
		Rule:     rule,
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityProduct,
		EntityID: entityID,
	}
}
