package core

import (
	"agritrace/internal/blob"
	"agritrace/pkg/domain"
)

// OracleGateway is the read side of the off-process oracle used during
// quality assessment. A lookup returning ok=false means the request is still
// pending, which is a valid state and not an error.
type OracleGateway interface {
	CurrentTemperature(productID string) (domain.TemperatureReading, bool)
	Prediction(imageURL string) (domain.DamagePrediction, bool)
}

// Service exposes the custody-tracking operations on top of a persistent
// store. All mutations run inside store transactions evaluated by the rules
// engine; a blocking violation discards the whole transaction.
type Service struct {
	store   PersistentStore
	oracle  OracleGateway
	docs    blob.Store
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
}

// ServiceOption customizes optional service collaborators.
type ServiceOption func(*Service)

// WithOracle wires the temperature and damage oracle gateway.
func WithOracle(gateway OracleGateway) ServiceOption {
	return func(s *Service) { s.oracle = gateway }
}

// WithDocumentStore wires the content-addressed document store backing
// per-stage detail attachments.
func WithDocumentStore(store blob.Store) ServiceOption {
	return func(s *Service) { s.docs = store }
}

// WithLogger overrides the no-op logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics overrides the no-op metrics recorder.
func WithMetrics(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer overrides the no-op tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// Guard helpers --------------------------------------------------------------

// ensureRunning rejects mutations while the emergency switch is engaged.
func ensureRunning(tx Transaction) error {
	if tx.System().Paused {
		return domain.PreconditionError{
			Entity: EntitySystem,
			ID:     "system",
			Reason: "operations are paused",
		}
	}
	return nil
}

// requireActor resolves a registered, non-blacklisted caller.
func requireActor(tx Transaction, caller string) (Actor, error) {
	actor, ok := tx.FindActor(caller)
	if !ok {
		return Actor{}, domain.AuthorizationError{Actor: caller, Requirement: "registered actor"}
	}
	if actor.Blacklisted {
		return Actor{}, domain.AuthorizationError{Actor: caller, Requirement: "actor is blacklisted"}
	}
	return actor, nil
}

// requireRole resolves the caller and checks the exact role.
func requireRole(tx Transaction, caller string, role Role) (Actor, error) {
	actor, err := requireActor(tx, caller)
	if err != nil {
		return Actor{}, err
	}
	if actor.Role != role {
		return Actor{}, domain.AuthorizationError{
			Actor:       caller,
			Requirement: "role " + string(role),
		}
	}
	return actor, nil
}

// requireAdmin resolves the caller and checks for the admin role. Admins may
// act while blacklisting is irrelevant to them, but a blacklisted admin is
// still rejected.
func requireAdmin(tx Transaction, caller string) (Actor, error) {
	return requireRole(tx, caller, RoleAdmin)
}

// requireProduct resolves an active product.
func requireProduct(tx Transaction, productID string) (Product, error) {
	product, ok := tx.FindProduct(productID)
	if !ok {
		return Product{}, domain.NotFoundError{Entity: EntityProduct, ID: productID}
	}
	return product, nil
}

// requireActiveProduct resolves a product and rejects deactivated ones.
func requireActiveProduct(tx Transaction, productID string) (Product, error) {
	product, err := requireProduct(tx, productID)
	if err != nil {
		return Product{}, err
	}
	if !product.IsActive {
		return Product{}, domain.PreconditionError{
			Entity: EntityProduct,
			ID:     productID,
			Reason: "product is no longer active",
		}
	}
	return product, nil
}

// custodian returns the actor id currently holding the product, by stage.
func custodian(p Product) string {
	switch p.Stage {
	case StageFarm:
		return p.Farm.Farmer
	case StageDistribution:
		return p.Distribution.Distributor
	case StageRetail:
		return p.Retail.Retailer
	}
	return ""
}

// requireCustodian checks that the caller currently holds the product.
func requireCustodian(caller string, p Product) error {
	if custodian(p) != caller {
		return domain.AuthorizationError{
			Actor:       caller,
			Requirement: "current custodian of product " + p.ID,
		}
	}
	return nil
}
