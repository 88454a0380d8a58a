package core

import (
	"context"

	"github.com/shopspring/decimal"

	"agritrace/pkg/domain"
)

// StoreDistributorQuality assesses a product the distributor has received,
// using the temperature oracle's latest reading for the product. The product
// is verified or rejected; rejection excises it from its batch but keeps it
// active so batch siblings remain saleable.
func (s *Service) StoreDistributorQuality(ctx context.Context, caller, productID string, score int) (QualityAssessment, Result, error) {
	return s.assess(ctx, "store_distributor_quality", caller, productID, StageDistribution, RoleDistributor, directScore(score))
}

// StoreRetailerQuality assesses a product the retailer has received. A retail
// rejection is terminal: there is no further custody layer to salvage the
// product into, so it is deactivated.
func (s *Service) StoreRetailerQuality(ctx context.Context, caller, productID string, score int) (QualityAssessment, Result, error) {
	return s.assess(ctx, "store_retailer_quality", caller, productID, StageRetail, RoleRetailer, directScore(score))
}

// StoreDistributorQualityFromPrediction assesses using a fulfilled ML damage
// prediction for the given image instead of a manual score.
func (s *Service) StoreDistributorQualityFromPrediction(ctx context.Context, caller, productID, imageURL string) (QualityAssessment, Result, error) {
	return s.assess(ctx, "store_distributor_quality_ml", caller, productID, StageDistribution, RoleDistributor, s.predictedScore(imageURL))
}

// StoreRetailerQualityFromPrediction assesses at retail using a fulfilled ML
// damage prediction.
func (s *Service) StoreRetailerQualityFromPrediction(ctx context.Context, caller, productID, imageURL string) (QualityAssessment, Result, error) {
	return s.assess(ctx, "store_retailer_quality_ml", caller, productID, StageRetail, RoleRetailer, s.predictedScore(imageURL))
}

// scoreSource resolves the quality score for an assessment. autoReject forces
// rejection regardless of the derived grade.
type scoreSource func() (score int, damageScore *int, damageLabel string, autoReject bool, err error)

func directScore(score int) scoreSource {
	return func() (int, *int, string, bool, error) {
		if score < 0 || score > domain.MaxQualityScore {
			return 0, nil, "", false, domain.InvariantError{
				Field:  "score",
				Reason: "must be between 0 and 100",
			}
		}
		return score, nil, "", false, nil
	}
}

func (s *Service) predictedScore(imageURL string) scoreSource {
	return func() (int, *int, string, bool, error) {
		prediction, ok := s.oracle.Prediction(imageURL)
		if !ok {
			return 0, nil, "", false, domain.PreconditionError{
				Entity: EntityAssessment,
				ID:     imageURL,
				Reason: "damage prediction has not been fulfilled",
			}
		}
		damage := prediction.Score
		score := domain.QualityScoreFromDamage(damage)
		return score, &damage, prediction.Label, damage > domain.DamageRejectThreshold, nil
	}
}

func (s *Service) assess(ctx context.Context, operation, caller, productID string, stage Stage, role Role, source scoreSource) (QualityAssessment, Result, error) {
	if s.oracle == nil {
		return QualityAssessment{}, Result{}, domain.DependencyError{Dependency: "temperature oracle"}
	}
	var assessment QualityAssessment
	var res Result
	err := s.instrument(ctx, operation, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := ensureRunning(tx); err != nil {
				return err
			}
			if _, err := requireRole(tx, caller, role); err != nil {
				return err
			}
			product, err := requireActiveProduct(tx, productID)
			if err != nil {
				return err
			}
			if err := requireCustodian(caller, product); err != nil {
				return err
			}
			if product.Stage != stage || product.State != StateReceived {
				return domain.PreconditionError{
					Entity: EntityProduct,
					ID:     productID,
					Reason: "product has not been received at stage " + string(stage),
				}
			}

			score, damageScore, damageLabel, autoReject, err := source()
			if err != nil {
				return err
			}

			// An unfulfilled temperature request reads as the zero
			// sentinel, which sits below the cold-chain floor and
			// therefore rejects.
			temperature := decimal.Zero
			if reading, ok := s.oracle.CurrentTemperature(productID); ok {
				temperature = reading.Value
			}

			grade := domain.GradeForScore(score)
			rejected := autoReject || grade == GradeRejected || temperature.LessThan(domain.MinSafeTemperature)
			if rejected {
				grade = GradeRejected
			}

			assessment, err = tx.PutAssessment(QualityAssessment{
				ProductID:   productID,
				Stage:       stage,
				Score:       score,
				Grade:       grade,
				Temperature: temperature,
				DamageScore: damageScore,
				DamageLabel: damageLabel,
				Assessor:    caller,
				AssessedAt:  tx.Now(),
			})
			if err != nil {
				return err
			}

			if _, err := tx.UpdateProduct(productID, func(p *Product) error {
				p.OverallGrade = grade
				if !rejected {
					p.State = StateVerified
					return nil
				}
				p.State = StateRejected
				if stage == StageRetail {
					p.IsActive = false
				}
				return nil
			}); err != nil {
				return err
			}

			if rejected && stage == StageDistribution && product.BatchID != nil {
				if err := exciseFromBatch(tx, *product.BatchID, productID, "failed distribution quality assessment"); err != nil {
					return err
				}
			}

			return updateReputation(tx, product, grade, stage)
		})
		return err
	})
	return assessment, res, err
}

// exciseFromBatch flags a rejected member as removed, leaving the stored
// member list untouched.
func exciseFromBatch(tx Transaction, batchID, productID, reason string) error {
	batch, ok := tx.FindBatch(batchID)
	if !ok {
		return domain.NotFoundError{Entity: EntityBatch, ID: batchID}
	}
	if batch.IsRemoved(productID) {
		return nil
	}
	_, err := tx.UpdateBatch(batchID, func(b *Batch) error {
		if b.Removed == nil {
			b.Removed = map[string]string{}
		}
		b.Removed[productID] = reason
		return nil
	})
	return err
}

// reputationDelta maps a grade to its reputation adjustment. Grade B is
// neutral.
func reputationDelta(grade Grade) int {
	switch grade {
	case GradeA:
		return 2
	case GradeC, GradeRejected:
		return -2
	}
	return 0
}

// updateReputation applies the assessment outcome to every upstream actor's
// score for the role they played. Farmer and distributor are adjusted at both
// stages; the retailer is additionally adjusted at retail. Scores saturate at
// the [0,100] bounds.
func updateReputation(tx Transaction, product Product, grade Grade, stage Stage) error {
	delta := reputationDelta(grade)
	if delta == 0 {
		return nil
	}
	adjust := func(actorID string, role Role) error {
		if actorID == "" {
			return nil
		}
		if _, ok := tx.FindActor(actorID); !ok {
			return nil
		}
		_, err := tx.UpdateActor(actorID, func(a *Actor) error {
			if a.Reputation == nil {
				a.Reputation = map[Role]int{}
			}
			score := a.Reputation[role] + delta
			if score > 100 {
				score = 100
			}
			if score < 0 {
				score = 0
			}
			a.Reputation[role] = score
			return nil
		})
		return err
	}
	if err := adjust(product.Farm.Farmer, RoleFarmer); err != nil {
		return err
	}
	if err := adjust(product.Distribution.Distributor, RoleDistributor); err != nil {
		return err
	}
	if stage == StageRetail {
		return adjust(product.Retail.Retailer, RoleRetailer)
	}
	return nil
}
