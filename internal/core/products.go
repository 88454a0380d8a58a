package core

import (
	"bytes"
	"context"
	"time"

	"github.com/shopspring/decimal"

	"agritrace/internal/blob"
	"agritrace/pkg/domain"
)

// CreateProductInput carries the farmer-supplied fields for a new product.
type CreateProductInput struct {
	Name       string
	Quantity   int64
	BasePrice  decimal.Decimal
	ExpiresAt  time.Time
	DetailHash string
}

// CreateProduct registers a new product at the farm stage, awaiting pickup by
// a distributor.
func (s *Service) CreateProduct(ctx context.Context, caller string, in CreateProductInput) (Product, Result, error) {
	var created Product
	var res Result
	err := s.instrument(ctx, "create_product", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := ensureRunning(tx); err != nil {
				return err
			}
			if _, err := requireRole(tx, caller, RoleFarmer); err != nil {
				return err
			}
			if in.Name == "" {
				return domain.InvariantError{Field: "name", Reason: "must not be empty"}
			}
			if in.Quantity <= 0 {
				return domain.InvariantError{Field: "quantity", Reason: "must be positive"}
			}
			if !in.BasePrice.IsPositive() {
				return domain.InvariantError{Field: "base_price", Reason: "must be positive"}
			}
			if !in.ExpiresAt.After(tx.Now()) {
				return domain.InvariantError{Field: "expires_at", Reason: "must be in the future"}
			}
			created, err = tx.CreateProduct(Product{
				Name:     in.Name,
				Stage:    StageFarm,
				State:    StatePendingPickup,
				IsActive: true,
				Farm: domain.FarmData{
					Farmer:     caller,
					Quantity:   in.Quantity,
					BasePrice:  in.BasePrice,
					ExpiresAt:  in.ExpiresAt,
					DetailHash: in.DetailHash,
				},
			})
			return err
		})
		return err
	})
	return created, res, err
}

// PurchaseFromFarmer transfers custody of a farm product to a distributor.
// The product advances to the distribution stage but stays pending pickup
// until the distributor confirms receipt through quality assessment or batch
// aggregation.
func (s *Service) PurchaseFromFarmer(ctx context.Context, caller, productID string, price decimal.Decimal) (Product, Result, error) {
	var updated Product
	var res Result
	err := s.instrument(ctx, "purchase_from_farmer", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := ensureRunning(tx); err != nil {
				return err
			}
			if _, err := requireRole(tx, caller, RoleDistributor); err != nil {
				return err
			}
			product, err := requireActiveProduct(tx, productID)
			if err != nil {
				return err
			}
			if product.Stage != StageFarm || product.State != StatePendingPickup {
				return domain.PreconditionError{
					Entity: EntityProduct,
					ID:     productID,
					Reason: "product is not awaiting pickup at the farm",
				}
			}
			if !price.IsPositive() {
				return domain.InvariantError{Field: "price", Reason: "must be positive"}
			}
			updated, err = tx.UpdateProduct(productID, func(p *Product) error {
				p.Stage = StageDistribution
				p.Distribution = domain.DistributionData{
					Distributor:   caller,
					PurchasePrice: price,
					PickedUpAt:    tx.Now(),
				}
				return nil
			})
			if err != nil {
				return err
			}
			_, err = tx.AppendTransfer(TransferRecord{
				From:      product.Farm.Farmer,
				To:        caller,
				ProductID: productID,
				Quantity:  product.Farm.Quantity,
				Price:     price,
			})
			return err
		})
		return err
	})
	return updated, res, err
}

// ListProductForConsumer puts a verified retail product up for sale at the
// given unit price.
func (s *Service) ListProductForConsumer(ctx context.Context, caller, productID string, sellingPrice decimal.Decimal) (Product, Result, error) {
	var updated Product
	var res Result
	err := s.instrument(ctx, "list_product", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := ensureRunning(tx); err != nil {
				return err
			}
			if _, err := requireRole(tx, caller, RoleRetailer); err != nil {
				return err
			}
			product, err := requireActiveProduct(tx, productID)
			if err != nil {
				return err
			}
			if err := requireCustodian(caller, product); err != nil {
				return err
			}
			if product.Stage != StageRetail || product.State != StateVerified {
				return domain.PreconditionError{
					Entity: EntityProduct,
					ID:     productID,
					Reason: "product is not verified at retail",
				}
			}
			if !sellingPrice.IsPositive() {
				return domain.InvariantError{Field: "selling_price", Reason: "must be positive"}
			}
			updated, err = tx.UpdateProduct(productID, func(p *Product) error {
				p.State = StateListed
				p.Retail.SellingPrice = sellingPrice
				return nil
			})
			return err
		})
		return err
	})
	return updated, res, err
}

// MarkProductAsBought records a consumer purchase against a listed product.
// Consumers are not registered actors; any non-empty identity may buy.
// Partial purchases are allowed until the remaining quantity is exhausted,
// at which point the product reaches its terminal bought state.
func (s *Service) MarkProductAsBought(ctx context.Context, consumer, productID string, quantity int64) (Product, Result, error) {
	var updated Product
	var res Result
	err := s.instrument(ctx, "mark_bought", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := ensureRunning(tx); err != nil {
				return err
			}
			if consumer == "" {
				return domain.InvariantError{Field: "consumer", Reason: "must not be empty"}
			}
			product, err := requireActiveProduct(tx, productID)
			if err != nil {
				return err
			}
			if product.Stage != StageRetail || product.State != StateListed {
				return domain.PreconditionError{
					Entity: EntityProduct,
					ID:     productID,
					Reason: "product is not listed for sale",
				}
			}
			if quantity <= 0 {
				return domain.InvariantError{Field: "quantity", Reason: "must be positive"}
			}
			if remaining := product.RemainingQuantity(); quantity > remaining {
				return domain.InvariantError{
					Field:  "quantity",
					Reason: "exceeds remaining quantity",
				}
			}
			updated, err = tx.UpdateProduct(productID, func(p *Product) error {
				p.Retail.BoughtQuantity += quantity
				p.Retail.Consumer = consumer
				p.Retail.Purchases = append(p.Retail.Purchases, domain.ConsumerPurchase{
					Consumer:  consumer,
					Quantity:  quantity,
					UnitPrice: p.Retail.SellingPrice,
					BoughtAt:  tx.Now(),
				})
				if p.RemainingQuantity() == 0 {
					p.State = StateBought
				}
				return nil
			})
			if err != nil {
				return err
			}
			_, err = tx.AppendTransfer(TransferRecord{
				From:      product.Retail.Retailer,
				To:        consumer,
				ProductID: productID,
				Quantity:  quantity,
				Price:     product.Retail.SellingPrice,
			})
			return err
		})
		return err
	})
	return updated, res, err
}

// AttachStageDocument stores a supporting document for the product's current
// stage and records its content hash on the stage record. The same payload
// always maps to the same key, so re-attaching identical content is a no-op
// at the store level.
func (s *Service) AttachStageDocument(ctx context.Context, caller, productID string, payload []byte, contentType string) (string, Result, error) {
	if s.docs == nil {
		return "", Result{}, domain.DependencyError{Dependency: "document store"}
	}
	key := blob.ContentKey(payload)
	var res Result
	err := s.instrument(ctx, "attach_stage_document", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := ensureRunning(tx); err != nil {
				return err
			}
			if _, err := requireActor(tx, caller); err != nil {
				return err
			}
			product, err := requireActiveProduct(tx, productID)
			if err != nil {
				return err
			}
			if err := requireCustodian(caller, product); err != nil {
				return err
			}
			if len(payload) == 0 {
				return domain.InvariantError{Field: "payload", Reason: "must not be empty"}
			}
			if _, err := s.docs.Head(ctx, key); err != nil {
				if _, err := s.docs.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: contentType}); err != nil {
					return err
				}
			}
			_, err = tx.UpdateProduct(productID, func(p *Product) error {
				switch p.Stage {
				case StageFarm:
					p.Farm.DetailHash = key
				case StageDistribution:
					p.Distribution.DetailHash = key
				case StageRetail:
					p.Retail.DetailHash = key
				}
				return nil
			})
			return err
		})
		return err
	})
	if err != nil {
		return "", res, err
	}
	return key, res, nil
}
