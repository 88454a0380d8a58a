// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by agritrace.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityActor identifies a registered supply-chain participant.
	EntityActor EntityType = "actor"
	// EntityProduct identifies a tracked product record.
	EntityProduct EntityType = "product"
	// EntityBatch identifies a distributor batch record.
	EntityBatch EntityType = "batch"
	// EntityAssessment identifies a quality assessment record.
	EntityAssessment EntityType = "assessment"
	// EntityTransfer identifies a custody transfer log entry.
	EntityTransfer EntityType = "transfer"
	// EntitySystem identifies the singleton system switch record.
	EntitySystem EntityType = "system"
)

// Role enumerates the custody roles a registered actor can hold.
type Role string

// Canonical actor roles. An actor holds exactly one role; reputation is
// tracked independently per role.
const (
	RoleNone        Role = "none"
	RoleFarmer      Role = "farmer"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
	RoleAdmin       Role = "admin"
)

// Stage enumerates the fixed custody stages a product moves through.
type Stage string

// Custody stages in advancing order. A product's stage never regresses.
const (
	StageFarm         Stage = "farm"
	StageDistribution Stage = "distribution"
	StageRetail       Stage = "retail"
)

// Order returns the stage position used for monotonicity checks.
func (s Stage) Order() int {
	switch s {
	case StageFarm:
		return 0
	case StageDistribution:
		return 1
	case StageRetail:
		return 2
	}
	return -1
}

// ProductState enumerates the per-stage workflow states of a product.
type ProductState string

// Canonical product states validated by the lifecycle rule.
const (
	StatePendingPickup ProductState = "pending_pickup"
	StateReceived      ProductState = "received"
	StateVerified      ProductState = "verified"
	StateRejected      ProductState = "rejected"
	StateListed        ProductState = "listed"
	StateBought        ProductState = "bought"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor represents a registered supply-chain participant.
type Actor struct {
	Base
	Role        Role         `json:"role"`
	DetailHash  string       `json:"detail_hash"`
	Blacklisted bool         `json:"blacklisted"`
	Reputation  map[Role]int `json:"reputation"`
}

// ReputationFor returns the actor's score for a role, zero when unseeded.
func (a Actor) ReputationFor(role Role) int {
	if a.Reputation == nil {
		return 0
	}
	return a.Reputation[role]
}

// FarmData accumulates at the farm stage and is written once by the farmer.
type FarmData struct {
	Farmer     string          `json:"farmer"`
	Quantity   int64           `json:"quantity"`
	BasePrice  decimal.Decimal `json:"base_price"`
	ExpiresAt  time.Time       `json:"expires_at"`
	DetailHash string          `json:"detail_hash"`
}

// DistributionData accumulates when a distributor takes custody.
type DistributionData struct {
	Distributor   string          `json:"distributor"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	PickedUpAt    time.Time       `json:"picked_up_at"`
	DetailHash    string          `json:"detail_hash"`
}

// ConsumerPurchase records one partial or full consumer purchase.
type ConsumerPurchase struct {
	Consumer  string          `json:"consumer"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	BoughtAt  time.Time       `json:"bought_at"`
}

// RetailData accumulates once a product reaches retail custody. Consumer
// reflects the most recent buyer; Purchases keeps the full history.
type RetailData struct {
	Retailer       string             `json:"retailer"`
	SellingPrice   decimal.Decimal    `json:"selling_price"`
	BoughtQuantity int64              `json:"bought_quantity"`
	Consumer       string             `json:"consumer"`
	Purchases      []ConsumerPurchase `json:"purchases"`
	DetailHash     string             `json:"detail_hash"`
}

// Product is the central tracked entity. Stage only advances forward and an
// inactive product accepts no further mutation.
type Product struct {
	Base
	Name         string           `json:"name"`
	Stage        Stage            `json:"stage"`
	State        ProductState     `json:"state"`
	OverallGrade Grade            `json:"overall_grade"`
	IsActive     bool             `json:"is_active"`
	BatchID      *string          `json:"batch_id"`
	Farm         FarmData         `json:"farm"`
	Distribution DistributionData `json:"distribution"`
	Retail       RetailData       `json:"retail"`
}

// RemainingQuantity returns the quantity still purchasable at retail.
func (p Product) RemainingQuantity() int64 {
	return p.Farm.Quantity - p.Retail.BoughtQuantity
}

// Batch groups products a distributor has accepted. ProductIDs is fixed at
// creation; Removed maps excised member ids to their removal reason, and every
// membership view must filter through it.
type Batch struct {
	Base
	Distributor           string            `json:"distributor"`
	Retailer              string            `json:"retailer"`
	ProductIDs            []string          `json:"product_ids"`
	Removed               map[string]string `json:"removed"`
	DistributedToRetailer bool              `json:"distributed_to_retailer"`
}

// CurrentMembers returns the member ids not flagged removed, in creation order.
func (b Batch) CurrentMembers() []string {
	out := make([]string, 0, len(b.ProductIDs))
	for _, id := range b.ProductIDs {
		if _, gone := b.Removed[id]; gone {
			continue
		}
		out = append(out, id)
	}
	return out
}

// IsRemoved reports whether a member id has been excised from the batch.
func (b Batch) IsRemoved(productID string) bool {
	_, gone := b.Removed[productID]
	return gone
}

// QualityAssessment records one grading outcome per (product, stage).
type QualityAssessment struct {
	Base
	ProductID   string          `json:"product_id"`
	Stage       Stage           `json:"stage"`
	Score       int             `json:"score"`
	Grade       Grade           `json:"grade"`
	Temperature decimal.Decimal `json:"temperature"`
	DamageScore *int            `json:"damage_score,omitempty"`
	DamageLabel string          `json:"damage_label,omitempty"`
	Assessor    string          `json:"assessor"`
	AssessedAt  time.Time       `json:"assessed_at"`
}

// TransferRecord is an append-only custody transfer log entry.
type TransferRecord struct {
	ID        int64           `json:"id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	ProductID string          `json:"product_id"`
	BatchID   *string         `json:"batch_id,omitempty"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// System is the singleton emergency switch mutated only by admin operations.
type System struct {
	Paused bool `json:"paused"`
}

// TemperatureReading is a fulfilled temperature oracle value.
type TemperatureReading struct {
	Value      decimal.Decimal `json:"value"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// DamagePrediction is a fulfilled ML damage oracle value.
type DamagePrediction struct {
	Score       int       `json:"score"`
	Label       string    `json:"label"`
	FulfilledAt time.Time `json:"fulfilled_at"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before ChangePayload
	After  ChangePayload
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	// ActionAppend indicates an append-only log entry was written.
	ActionAppend Action = "append"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
