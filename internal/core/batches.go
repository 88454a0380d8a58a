package core

import (
	"context"

	"github.com/shopspring/decimal"

	"agritrace/pkg/domain"
)

// CreateBatch groups farm products the caller has purchased into a single
// unit for onward distribution. Validation is all-or-nothing: one ineligible
// member fails the whole batch. Accepted members are confirmed as received.
func (s *Service) CreateBatch(ctx context.Context, caller string, productIDs []string) (Batch, Result, error) {
	var created Batch
	var res Result
	err := s.instrument(ctx, "create_batch", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := ensureRunning(tx); err != nil {
				return err
			}
			if _, err := requireRole(tx, caller, RoleDistributor); err != nil {
				return err
			}
			if len(productIDs) == 0 {
				return domain.InvariantError{Field: "product_ids", Reason: "must not be empty"}
			}
			seen := make(map[string]struct{}, len(productIDs))
			for _, id := range productIDs {
				if _, dup := seen[id]; dup {
					return domain.InvariantError{Field: "product_ids", Reason: "duplicate member " + id}
				}
				seen[id] = struct{}{}
				product, err := requireActiveProduct(tx, id)
				if err != nil {
					return err
				}
				if product.Stage != StageDistribution || product.State != StatePendingPickup {
					return domain.PreconditionError{
						Entity: EntityProduct,
						ID:     id,
						Reason: "product is not awaiting receipt in distribution",
					}
				}
				if product.Distribution.Distributor != caller {
					return domain.AuthorizationError{
						Actor:       caller,
						Requirement: "distributor custody of product " + id,
					}
				}
				if product.BatchID != nil {
					return domain.PreconditionError{
						Entity: EntityProduct,
						ID:     id,
						Reason: "product already belongs to a batch",
					}
				}
			}
			created, err = tx.CreateBatch(Batch{
				Distributor: caller,
				ProductIDs:  append([]string(nil), productIDs...),
			})
			if err != nil {
				return err
			}
			batchID := created.ID
			for _, id := range productIDs {
				if _, err := tx.UpdateProduct(id, func(p *Product) error {
					p.State = StateReceived
					p.BatchID = &batchID
					return nil
				}); err != nil {
					return err
				}
			}
			return nil
		})
		return err
	})
	return created, res, err
}

// PurchaseBatchFromDistributor transfers every remaining batch member to the
// retailer in one transaction. Each member must have passed distribution
// quality assessment, and a price must be supplied for every current member.
func (s *Service) PurchaseBatchFromDistributor(ctx context.Context, caller, batchID string, prices map[string]decimal.Decimal) (Batch, Result, error) {
	var updated Batch
	var res Result
	err := s.instrument(ctx, "purchase_batch", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := ensureRunning(tx); err != nil {
				return err
			}
			if _, err := requireRole(tx, caller, RoleRetailer); err != nil {
				return err
			}
			batch, ok := tx.FindBatch(batchID)
			if !ok {
				return domain.NotFoundError{Entity: EntityBatch, ID: batchID}
			}
			if batch.DistributedToRetailer {
				return domain.PreconditionError{
					Entity: EntityBatch,
					ID:     batchID,
					Reason: "batch has already been distributed",
				}
			}
			members := batch.CurrentMembers()
			if len(members) == 0 {
				return domain.PreconditionError{
					Entity: EntityBatch,
					ID:     batchID,
					Reason: "batch has no remaining members",
				}
			}
			if len(prices) != len(members) {
				return domain.InvariantError{
					Field:  "prices",
					Reason: "must cover every remaining batch member exactly",
				}
			}
			for _, id := range members {
				price, ok := prices[id]
				if !ok {
					return domain.InvariantError{Field: "prices", Reason: "missing price for member " + id}
				}
				if !price.IsPositive() {
					return domain.InvariantError{Field: "prices", Reason: "price for member " + id + " must be positive"}
				}
				product, err := requireActiveProduct(tx, id)
				if err != nil {
					return err
				}
				if product.Stage != StageDistribution || product.State != StateVerified {
					return domain.PreconditionError{
						Entity: EntityProduct,
						ID:     id,
						Reason: "member has not passed distribution quality assessment",
					}
				}
				if product.Distribution.Distributor != batch.Distributor {
					return domain.PreconditionError{
						Entity: EntityProduct,
						ID:     id,
						Reason: "member is not held by the batch distributor",
					}
				}
			}
			for _, id := range members {
				product, _ := tx.FindProduct(id)
				if _, err := tx.UpdateProduct(id, func(p *Product) error {
					p.Stage = StageRetail
					p.State = StateReceived
					p.Retail.Retailer = caller
					return nil
				}); err != nil {
					return err
				}
				bid := batchID
				if _, err := tx.AppendTransfer(TransferRecord{
					From:      batch.Distributor,
					To:        caller,
					ProductID: id,
					BatchID:   &bid,
					Quantity:  product.Farm.Quantity,
					Price:     prices[id],
				}); err != nil {
					return err
				}
			}
			updated, err = tx.UpdateBatch(batchID, func(b *Batch) error {
				b.Retailer = caller
				b.DistributedToRetailer = true
				return nil
			})
			return err
		})
		return err
	})
	return updated, res, err
}

// RemoveProductFromBatch excises a member from a batch without touching the
// product itself. The member list is immutable; removal is a flag that every
// membership view filters through.
func (s *Service) RemoveProductFromBatch(ctx context.Context, caller, batchID, productID, reason string) (Batch, Result, error) {
	var updated Batch
	var res Result
	err := s.instrument(ctx, "remove_from_batch", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := ensureRunning(tx); err != nil {
				return err
			}
			actor, err := requireActor(tx, caller)
			if err != nil {
				return err
			}
			batch, ok := tx.FindBatch(batchID)
			if !ok {
				return domain.NotFoundError{Entity: EntityBatch, ID: batchID}
			}
			if actor.Role != RoleAdmin && batch.Distributor != caller {
				return domain.AuthorizationError{
					Actor:       caller,
					Requirement: "batch distributor or admin",
				}
			}
			member := false
			for _, id := range batch.ProductIDs {
				if id == productID {
					member = true
					break
				}
			}
			if !member {
				return domain.PreconditionError{
					Entity: EntityBatch,
					ID:     batchID,
					Reason: "product " + productID + " is not a batch member",
				}
			}
			if batch.IsRemoved(productID) {
				return domain.PreconditionError{
					Entity: EntityBatch,
					ID:     batchID,
					Reason: "product " + productID + " is already removed",
				}
			}
			if reason == "" {
				reason = "removed by " + caller
			}
			updated, err = tx.UpdateBatch(batchID, func(b *Batch) error {
				if b.Removed == nil {
					b.Removed = map[string]string{}
				}
				b.Removed[productID] = reason
				return nil
			})
			return err
		})
		return err
	})
	return updated, res, err
}

// ProductsInBatch returns the batch's remaining members in creation order.
func (s *Service) ProductsInBatch(batchID string) ([]Product, error) {
	batch, ok := s.store.GetBatch(batchID)
	if !ok {
		return nil, domain.NotFoundError{Entity: EntityBatch, ID: batchID}
	}
	members := batch.CurrentMembers()
	out := make([]Product, 0, len(members))
	for _, id := range members {
		if p, ok := s.store.GetProduct(id); ok {
			out = append(out, p)
		}
	}
	return out, nil
}
