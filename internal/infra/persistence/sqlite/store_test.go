package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"agritrace/pkg/domain"
)

func TestStatePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agritrace.db")

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateActor(domain.Actor{Base: domain.Base{ID: "farmer-1"}, Role: domain.RoleFarmer}); err != nil {
			return err
		}
		_, err := tx.CreateProduct(domain.Product{
			Base:     domain.Base{ID: "p1"},
			Name:     "tomatoes",
			Stage:    domain.StageFarm,
			State:    domain.StatePendingPickup,
			IsActive: true,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	if _, ok := reopened.GetActor("farmer-1"); !ok {
		t.Fatalf("actor lost across reopen")
	}
	product, ok := reopened.GetProduct("p1")
	if !ok || product.Name != "tomatoes" || product.State != domain.StatePendingPickup {
		t.Fatalf("product not restored: %+v ok=%v", product, ok)
	}
}

func TestFailedTransactionDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agritrace.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateActor(domain.Actor{Base: domain.Base{ID: "ghost"}}); err != nil {
			return err
		}
		return context.Canceled
	})
	if err == nil {
		t.Fatalf("expected transaction error")
	}
	if _, ok := store.GetActor("ghost"); ok {
		t.Fatalf("failed transaction leaked into store")
	}
}

func TestDefaultPathFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store with nested path: %v", err)
	}
	defer func() { _ = store.Close() }()
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}
}
