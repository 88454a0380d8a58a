package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"agritrace/internal/blob"
	"agritrace/internal/infra/persistence/memory"
	"agritrace/internal/oracle"
)

const fulfillerID = "sensor-hub"

// fixture wires a service against the in-memory store with the default rules
// engine, an oracle gateway, and an in-memory document store.
type fixture struct {
	t       *testing.T
	ctx     context.Context
	store   *memory.Store
	gateway *oracle.Gateway
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(NewDefaultRulesEngine())
	gateway := oracle.NewGateway(fulfillerID)
	service := NewService(store,
		WithOracle(gateway),
		WithDocumentStore(blob.NewMemory()),
	)
	return &fixture{
		t:       t,
		ctx:     context.Background(),
		store:   store,
		gateway: gateway,
		service: service,
	}
}

func (f *fixture) installAdmin(id string) {
	f.t.Helper()
	if _, _, err := f.service.InstallAdmin(f.ctx, id, "hash-admin"); err != nil {
		f.t.Fatalf("install admin %s: %v", id, err)
	}
}

func (f *fixture) register(id string, role Role) {
	f.t.Helper()
	if _, _, err := f.service.RegisterUser(f.ctx, id, role, "hash-"+id); err != nil {
		f.t.Fatalf("register %s as %s: %v", id, role, err)
	}
}

func (f *fixture) createProduct(farmer string, quantity int64) Product {
	f.t.Helper()
	product, _, err := f.service.CreateProduct(f.ctx, farmer, CreateProductInput{
		Name:      "tomatoes",
		Quantity:  quantity,
		BasePrice: decimal.NewFromInt(5),
		ExpiresAt: time.Now().Add(72 * time.Hour),
	})
	if err != nil {
		f.t.Fatalf("create product for %s: %v", farmer, err)
	}
	return product
}

func (f *fixture) purchaseFromFarmer(distributor, productID string) {
	f.t.Helper()
	if _, _, err := f.service.PurchaseFromFarmer(f.ctx, distributor, productID, decimal.NewFromInt(7)); err != nil {
		f.t.Fatalf("purchase %s from farmer: %v", productID, err)
	}
}

func (f *fixture) createBatch(distributor string, productIDs ...string) Batch {
	f.t.Helper()
	batch, _, err := f.service.CreateBatch(f.ctx, distributor, productIDs)
	if err != nil {
		f.t.Fatalf("create batch: %v", err)
	}
	return batch
}

func (f *fixture) fulfillTemperature(productID string, value int64) {
	f.t.Helper()
	correlationID, err := f.gateway.RequestTemperature(productID)
	if err != nil {
		f.t.Fatalf("request temperature: %v", err)
	}
	if err := f.gateway.FulfillTemperature(fulfillerID, correlationID, decimal.NewFromInt(value)); err != nil {
		f.t.Fatalf("fulfill temperature: %v", err)
	}
}

// setReputation writes a score directly, bypassing assessments, so tests can
// exercise the saturation bounds without dozens of products.
func (f *fixture) setReputation(actorID string, role Role, score int) {
	f.t.Helper()
	_, err := f.store.RunInTransaction(f.ctx, func(tx Transaction) error {
		_, err := tx.UpdateActor(actorID, func(a *Actor) error {
			if a.Reputation == nil {
				a.Reputation = map[Role]int{}
			}
			a.Reputation[role] = score
			return nil
		})
		return err
	})
	if err != nil {
		f.t.Fatalf("set reputation: %v", err)
	}
}

func (f *fixture) reputation(actorID string, role Role) int {
	f.t.Helper()
	score, err := f.service.ReputationOf(actorID, role)
	if err != nil {
		f.t.Fatalf("reputation of %s: %v", actorID, err)
	}
	return score
}

func (f *fixture) product(id string) Product {
	f.t.Helper()
	product, err := f.service.Product(id)
	if err != nil {
		f.t.Fatalf("load product %s: %v", id, err)
	}
	return product
}

// toRetail walks a single product through batching, distribution assessment,
// and batch purchase so it arrives at (Retail, Received).
func (f *fixture) toRetail(farmer, distributor, retailer, productID string) Batch {
	f.t.Helper()
	f.purchaseFromFarmer(distributor, productID)
	batch := f.createBatch(distributor, productID)
	f.fulfillTemperature(productID, 10)
	if _, _, err := f.service.StoreDistributorQuality(f.ctx, distributor, productID, 90); err != nil {
		f.t.Fatalf("distributor assessment: %v", err)
	}
	prices := map[string]decimal.Decimal{productID: decimal.NewFromInt(9)}
	if _, _, err := f.service.PurchaseBatchFromDistributor(f.ctx, retailer, batch.ID, prices); err != nil {
		f.t.Fatalf("purchase batch: %v", err)
	}
	return batch
}

func mustErrAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	if err == nil {
		t.Fatalf("expected %T, got nil", target)
	}
	if !errors.As(err, &target) {
		t.Fatalf("expected %T, got %v", target, err)
	}
	return target
}
