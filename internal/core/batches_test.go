package core

import (
	"testing"

	"github.com/shopspring/decimal"

	"agritrace/pkg/domain"
)

func TestCreateBatchAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.register("farmer-1", RoleFarmer)
	f.register("distributor-1", RoleDistributor)

	p1 := f.createProduct("farmer-1", 10)
	p2 := f.createProduct("farmer-1", 20)
	f.purchaseFromFarmer("distributor-1", p1.ID)
	// p2 stays at the farm, so batching it is illegal.

	_, _, err := f.service.CreateBatch(f.ctx, "distributor-1", []string{p1.ID, p2.ID})
	mustErrAs[domain.PreconditionError](t, err)

	// Nothing committed: p1 is still batchable.
	if got := f.product(p1.ID); got.State != StatePendingPickup || got.BatchID != nil {
		t.Fatalf("failed batch leaked state: %+v", got)
	}

	f.purchaseFromFarmer("distributor-1", p2.ID)
	batch := f.createBatch("distributor-1", p1.ID, p2.ID)
	for _, id := range []string{p1.ID, p2.ID} {
		got := f.product(id)
		if got.State != StateReceived || got.BatchID == nil || *got.BatchID != batch.ID {
			t.Fatalf("member not received into batch: %+v", got)
		}
	}

	// A batched product cannot join a second batch.
	_, _, err = f.service.CreateBatch(f.ctx, "distributor-1", []string{p1.ID})
	mustErrAs[domain.PreconditionError](t, err)
}

func TestCreateBatchRejectsForeignCustody(t *testing.T) {
	f := newFixture(t)
	f.register("farmer-1", RoleFarmer)
	f.register("distributor-1", RoleDistributor)
	f.register("distributor-2", RoleDistributor)
	p := f.createProduct("farmer-1", 10)
	f.purchaseFromFarmer("distributor-1", p.ID)

	_, _, err := f.service.CreateBatch(f.ctx, "distributor-2", []string{p.ID})
	mustErrAs[domain.AuthorizationError](t, err)
}

func TestBatchPartialInvalidation(t *testing.T) {
	f := newFixture(t)
	f.register("farmer-1", RoleFarmer)
	f.register("distributor-1", RoleDistributor)
	f.register("retailer-1", RoleRetailer)

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		p := f.createProduct("farmer-1", 10)
		f.purchaseFromFarmer("distributor-1", p.ID)
		ids = append(ids, p.ID)
	}
	batch := f.createBatch("distributor-1", ids...)

	for _, id := range ids {
		f.fulfillTemperature(id, 20)
	}
	// One member fails with a rejecting score, siblings pass.
	if _, _, err := f.service.StoreDistributorQuality(f.ctx, "distributor-1", ids[0], 30); err != nil {
		t.Fatalf("rejecting assessment: %v", err)
	}
	for _, id := range ids[1:] {
		if _, _, err := f.service.StoreDistributorQuality(f.ctx, "distributor-1", id, 90); err != nil {
			t.Fatalf("passing assessment: %v", err)
		}
	}

	rejected := f.product(ids[0])
	if rejected.State != StateRejected || !rejected.IsActive {
		t.Fatalf("distribution reject must excise, not deactivate: %+v", rejected)
	}

	members, err := f.service.ProductsInBatch(batch.ID)
	if err != nil {
		t.Fatalf("products in batch: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 remaining members, got %d", len(members))
	}

	prices := map[string]decimal.Decimal{
		ids[1]: decimal.NewFromInt(9),
		ids[2]: decimal.NewFromInt(9),
	}
	if _, _, err := f.service.PurchaseBatchFromDistributor(f.ctx, "retailer-1", batch.ID, prices); err != nil {
		t.Fatalf("batch purchase after excision: %v", err)
	}
	for _, id := range ids[1:] {
		got := f.product(id)
		if got.Stage != StageRetail || got.State != StateReceived || got.Retail.Retailer != "retailer-1" {
			t.Fatalf("member not transferred to retail: %+v", got)
		}
	}
	// The excised member stays behind.
	if got := f.product(ids[0]); got.Stage != StageDistribution {
		t.Fatalf("rejected member must not transfer: %+v", got)
	}
}

func TestPurchaseBatchPriceCountMismatch(t *testing.T) {
	f := newFixture(t)
	f.register("farmer-1", RoleFarmer)
	f.register("distributor-1", RoleDistributor)
	f.register("retailer-1", RoleRetailer)
	p := f.createProduct("farmer-1", 10)
	f.purchaseFromFarmer("distributor-1", p.ID)
	batch := f.createBatch("distributor-1", p.ID)
	f.fulfillTemperature(p.ID, 10)
	if _, _, err := f.service.StoreDistributorQuality(f.ctx, "distributor-1", p.ID, 90); err != nil {
		t.Fatalf("assessment: %v", err)
	}

	_, _, err := f.service.PurchaseBatchFromDistributor(f.ctx, "retailer-1", batch.ID, map[string]decimal.Decimal{})
	mustErrAs[domain.InvariantError](t, err)

	_, _, err = f.service.PurchaseBatchFromDistributor(f.ctx, "retailer-1", batch.ID, map[string]decimal.Decimal{
		p.ID:    decimal.NewFromInt(9),
		"ghost": decimal.NewFromInt(9),
	})
	mustErrAs[domain.InvariantError](t, err)
}

func TestPurchaseBatchRequiresVerifiedMembers(t *testing.T) {
	f := newFixture(t)
	f.register("farmer-1", RoleFarmer)
	f.register("distributor-1", RoleDistributor)
	f.register("retailer-1", RoleRetailer)
	p := f.createProduct("farmer-1", 10)
	f.purchaseFromFarmer("distributor-1", p.ID)
	batch := f.createBatch("distributor-1", p.ID)

	// Received but never assessed.
	_, _, err := f.service.PurchaseBatchFromDistributor(f.ctx, "retailer-1", batch.ID, map[string]decimal.Decimal{
		p.ID: decimal.NewFromInt(9),
	})
	mustErrAs[domain.PreconditionError](t, err)
}

func TestPurchaseBatchOnlyOnce(t *testing.T) {
	f := newFixture(t)
	f.register("farmer-1", RoleFarmer)
	f.register("distributor-1", RoleDistributor)
	f.register("retailer-1", RoleRetailer)
	p := f.createProduct("farmer-1", 10)
	batch := f.toRetail("farmer-1", "distributor-1", "retailer-1", p.ID)

	_, _, err := f.service.PurchaseBatchFromDistributor(f.ctx, "retailer-1", batch.ID, map[string]decimal.Decimal{
		p.ID: decimal.NewFromInt(9),
	})
	mustErrAs[domain.PreconditionError](t, err)
}

func TestRemoveProductFromBatch(t *testing.T) {
	f := newFixture(t)
	f.installAdmin("admin")
	f.register("farmer-1", RoleFarmer)
	f.register("distributor-1", RoleDistributor)
	f.register("distributor-2", RoleDistributor)
	p := f.createProduct("farmer-1", 10)
	f.purchaseFromFarmer("distributor-1", p.ID)
	batch := f.createBatch("distributor-1", p.ID)

	_, _, err := f.service.RemoveProductFromBatch(f.ctx, "distributor-2", batch.ID, p.ID, "damaged crate")
	mustErrAs[domain.AuthorizationError](t, err)

	if _, _, err := f.service.RemoveProductFromBatch(f.ctx, "admin", batch.ID, p.ID, "damaged crate"); err != nil {
		t.Fatalf("admin removal: %v", err)
	}
	// Idempotence guard.
	_, _, err = f.service.RemoveProductFromBatch(f.ctx, "distributor-1", batch.ID, p.ID, "again")
	mustErrAs[domain.PreconditionError](t, err)

	got, err := f.service.Batch(batch.ID)
	if err != nil {
		t.Fatalf("load batch: %v", err)
	}
	if len(got.ProductIDs) != 1 || !got.IsRemoved(p.ID) {
		t.Fatalf("stored list must stay intact with removal flagged: %+v", got)
	}
	members, err := f.service.ProductsInBatch(batch.ID)
	if err != nil || len(members) != 0 {
		t.Fatalf("filtered members should be empty: %v %v", members, err)
	}
}
