package domain

import (
	"context"
	"time"
)

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateActor(Actor) (Actor, error)
	UpdateActor(id string, mutator func(*Actor) error) (Actor, error)
	CreateProduct(Product) (Product, error)
	UpdateProduct(id string, mutator func(*Product) error) (Product, error)
	CreateBatch(Batch) (Batch, error)
	UpdateBatch(id string, mutator func(*Batch) error) (Batch, error)
	PutAssessment(QualityAssessment) (QualityAssessment, error)
	AppendTransfer(TransferRecord) (TransferRecord, error)
	UpdateSystem(mutator func(*System) error) (System, error)
	FindActor(id string) (Actor, bool)
	FindProduct(id string) (Product, bool)
	FindBatch(id string) (Batch, bool)
	FindAssessment(productID string, stage Stage) (QualityAssessment, bool)
	System() System
	Now() time.Time
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView = RuleView

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetActor(id string) (Actor, bool)
	ListActors() []Actor
	GetProduct(id string) (Product, bool)
	ListProducts() []Product
	GetBatch(id string) (Batch, bool)
	ListBatches() []Batch
	GetAssessment(productID string, stage Stage) (QualityAssessment, bool)
	ListTransfers() []TransferRecord
	System() System
}
