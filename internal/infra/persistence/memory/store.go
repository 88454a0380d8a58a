// Package memory provides the in-memory implementation of the core
// persistence store. Every mutation runs against a cloned state snapshot and
// is committed only after the rules engine accepts the full change set, which
// gives callers the all-or-nothing, serialized-per-store semantics the domain
// requires.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"agritrace/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Actor aliases domain.Actor for in-memory persistence operations.
	Actor = domain.Actor
	// Product aliases domain.Product.
	Product = domain.Product
	// Batch aliases domain.Batch.
	Batch = domain.Batch
	// QualityAssessment aliases domain.QualityAssessment.
	QualityAssessment = domain.QualityAssessment
	// TransferRecord aliases domain.TransferRecord.
	TransferRecord = domain.TransferRecord
	// System aliases domain.System.
	System = domain.System
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	actors      map[string]Actor
	products    map[string]Product
	batches     map[string]Batch
	assessments map[string]QualityAssessment
	transfers   []TransferRecord
	nextXferID  int64
	system      System
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Actors       map[string]Actor             `json:"actors"`
	Products     map[string]Product           `json:"products"`
	Batches      map[string]Batch             `json:"batches"`
	Assessments  map[string]QualityAssessment `json:"assessments"`
	Transfers    []TransferRecord             `json:"transfers"`
	NextTransfer int64                        `json:"next_transfer"`
	System       System                       `json:"system"`
}

func newMemoryState() memoryState {
	return memoryState{
		actors:      make(map[string]Actor),
		products:    make(map[string]Product),
		batches:     make(map[string]Batch),
		assessments: make(map[string]QualityAssessment),
		nextXferID:  1,
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.actors {
		cloned.actors[k] = cloneActor(v)
	}
	for k, v := range s.products {
		cloned.products[k] = cloneProduct(v)
	}
	for k, v := range s.batches {
		cloned.batches[k] = cloneBatch(v)
	}
	for k, v := range s.assessments {
		cloned.assessments[k] = v
	}
	cloned.transfers = append([]TransferRecord(nil), s.transfers...)
	cloned.nextXferID = s.nextXferID
	cloned.system = s.system
	return cloned
}

func cloneActor(a Actor) Actor {
	cp := a
	if a.Reputation != nil {
		cp.Reputation = make(map[domain.Role]int, len(a.Reputation))
		for k, v := range a.Reputation {
			cp.Reputation[k] = v
		}
	}
	return cp
}

func cloneProduct(p Product) Product {
	cp := p
	if p.BatchID != nil {
		id := *p.BatchID
		cp.BatchID = &id
	}
	cp.Retail.Purchases = append([]domain.ConsumerPurchase(nil), p.Retail.Purchases...)
	return cp
}

func cloneBatch(b Batch) Batch {
	cp := b
	cp.ProductIDs = append([]string(nil), b.ProductIDs...)
	if b.Removed != nil {
		cp.Removed = make(map[string]string, len(b.Removed))
		for k, v := range b.Removed {
			cp.Removed[k] = v
		}
	}
	return cp
}

func assessmentKey(productID string, stage domain.Stage) string {
	return productID + "/" + string(stage)
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the transaction clock, primarily for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.nowFn = fn
	s.mu.Unlock()
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// transaction is a mutation set applied to a cloned store state.
type transaction struct {
	state   *memoryState
	changes []Change
	now     time.Time
}

var _ domain.Transaction = (*transaction)(nil)

// view exposes a read-only snapshot of transactional state to rules.
type view struct {
	state *memoryState
}

var _ domain.TransactionView = view{}

// ListActors returns all actors within the snapshot, ordered by id.
func (v view) ListActors() []Actor {
	out := make([]Actor, 0, len(v.state.actors))
	for _, a := range v.state.actors {
		out = append(out, cloneActor(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListProducts returns all products within the snapshot, ordered by id.
func (v view) ListProducts() []Product {
	out := make([]Product, 0, len(v.state.products))
	for _, p := range v.state.products {
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListBatches returns all batches within the snapshot, ordered by id.
func (v view) ListBatches() []Batch {
	out := make([]Batch, 0, len(v.state.batches))
	for _, b := range v.state.batches {
		out = append(out, cloneBatch(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListAssessments returns all assessments within the snapshot.
func (v view) ListAssessments() []QualityAssessment {
	out := make([]QualityAssessment, 0, len(v.state.assessments))
	for _, a := range v.state.assessments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListTransfers returns the append-only transfer log in id order.
func (v view) ListTransfers() []TransferRecord {
	return append([]TransferRecord(nil), v.state.transfers...)
}

// FindActor retrieves an actor by id from the snapshot.
func (v view) FindActor(id string) (Actor, bool) {
	a, ok := v.state.actors[id]
	if !ok {
		return Actor{}, false
	}
	return cloneActor(a), true
}

// FindProduct retrieves a product by id from the snapshot.
func (v view) FindProduct(id string) (Product, bool) {
	p, ok := v.state.products[id]
	if !ok {
		return Product{}, false
	}
	return cloneProduct(p), true
}

// FindBatch retrieves a batch by id from the snapshot.
func (v view) FindBatch(id string) (Batch, bool) {
	b, ok := v.state.batches[id]
	if !ok {
		return Batch{}, false
	}
	return cloneBatch(b), true
}

// FindAssessment retrieves the assessment stored for a (product, stage) pair.
func (v view) FindAssessment(productID string, stage domain.Stage) (QualityAssessment, bool) {
	a, ok := v.state.assessments[assessmentKey(productID, stage)]
	return a, ok
}

// System returns the singleton system switch state.
func (v view) System() System {
	return v.state.system
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := s.state.clone()
	tx := &transaction{state: &cloned, now: s.nowFn()}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: tx.state}, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = *tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(view{state: &snapshot})
}

func (tx *transaction) recordChange(entity domain.EntityType, action domain.Action, before, after any) error {
	change := Change{Entity: entity, Action: action}
	if before != nil {
		payload, err := domain.NewChangePayloadFromValue(before)
		if err != nil {
			return fmt.Errorf("encode %s before: %w", entity, err)
		}
		change.Before = payload
	}
	if after != nil {
		payload, err := domain.NewChangePayloadFromValue(after)
		if err != nil {
			return fmt.Errorf("encode %s after: %w", entity, err)
		}
		change.After = payload
	}
	tx.changes = append(tx.changes, change)
	return nil
}

// Snapshot returns a read-only view of the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return view{state: tx.state}
}

// Now returns the timestamp shared by every mutation in this transaction.
func (tx *transaction) Now() time.Time {
	return tx.now
}

// CreateActor stores a new actor within the transaction.
func (tx *transaction) CreateActor(a Actor) (Actor, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if _, exists := tx.state.actors[a.ID]; exists {
		return Actor{}, fmt.Errorf("actor %q already exists", a.ID)
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	if a.Reputation == nil {
		a.Reputation = map[domain.Role]int{}
	}
	tx.state.actors[a.ID] = cloneActor(a)
	if err := tx.recordChange(domain.EntityActor, domain.ActionCreate, nil, cloneActor(a)); err != nil {
		return Actor{}, err
	}
	return cloneActor(a), nil
}

// UpdateActor mutates an actor using the provided mutator function.
func (tx *transaction) UpdateActor(id string, mutator func(*Actor) error) (Actor, error) {
	current, ok := tx.state.actors[id]
	if !ok {
		return Actor{}, domain.NotFoundError{Entity: domain.EntityActor, ID: id}
	}
	before := cloneActor(current)
	if err := mutator(&current); err != nil {
		return Actor{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.actors[id] = cloneActor(current)
	if err := tx.recordChange(domain.EntityActor, domain.ActionUpdate, before, cloneActor(current)); err != nil {
		return Actor{}, err
	}
	return cloneActor(current), nil
}

// CreateProduct stores a new product within the transaction.
func (tx *transaction) CreateProduct(p Product) (Product, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if _, exists := tx.state.products[p.ID]; exists {
		return Product{}, fmt.Errorf("product %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.products[p.ID] = cloneProduct(p)
	if err := tx.recordChange(domain.EntityProduct, domain.ActionCreate, nil, cloneProduct(p)); err != nil {
		return Product{}, err
	}
	return cloneProduct(p), nil
}

// UpdateProduct mutates a product using the provided mutator function.
func (tx *transaction) UpdateProduct(id string, mutator func(*Product) error) (Product, error) {
	current, ok := tx.state.products[id]
	if !ok {
		return Product{}, domain.NotFoundError{Entity: domain.EntityProduct, ID: id}
	}
	before := cloneProduct(current)
	if err := mutator(&current); err != nil {
		return Product{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.products[id] = cloneProduct(current)
	if err := tx.recordChange(domain.EntityProduct, domain.ActionUpdate, before, cloneProduct(current)); err != nil {
		return Product{}, err
	}
	return cloneProduct(current), nil
}

// CreateBatch stores a new batch within the transaction.
func (tx *transaction) CreateBatch(b Batch) (Batch, error) {
	if b.ID == "" {
		b.ID = newID()
	}
	if _, exists := tx.state.batches[b.ID]; exists {
		return Batch{}, fmt.Errorf("batch %q already exists", b.ID)
	}
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	if b.Removed == nil {
		b.Removed = map[string]string{}
	}
	tx.state.batches[b.ID] = cloneBatch(b)
	if err := tx.recordChange(domain.EntityBatch, domain.ActionCreate, nil, cloneBatch(b)); err != nil {
		return Batch{}, err
	}
	return cloneBatch(b), nil
}

// UpdateBatch mutates a batch using the provided mutator function.
func (tx *transaction) UpdateBatch(id string, mutator func(*Batch) error) (Batch, error) {
	current, ok := tx.state.batches[id]
	if !ok {
		return Batch{}, domain.NotFoundError{Entity: domain.EntityBatch, ID: id}
	}
	before := cloneBatch(current)
	if err := mutator(&current); err != nil {
		return Batch{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.batches[id] = cloneBatch(current)
	if err := tx.recordChange(domain.EntityBatch, domain.ActionUpdate, before, cloneBatch(current)); err != nil {
		return Batch{}, err
	}
	return cloneBatch(current), nil
}

// PutAssessment stores an assessment record; one per (product, stage).
func (tx *transaction) PutAssessment(a QualityAssessment) (QualityAssessment, error) {
	key := assessmentKey(a.ProductID, a.Stage)
	if _, exists := tx.state.assessments[key]; exists {
		return QualityAssessment{}, domain.PreconditionError{
			Entity: domain.EntityAssessment,
			ID:     a.ProductID,
			Reason: fmt.Sprintf("stage %s already assessed", a.Stage),
		}
	}
	if a.ID == "" {
		a.ID = newID()
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.assessments[key] = a
	if err := tx.recordChange(domain.EntityAssessment, domain.ActionCreate, nil, a); err != nil {
		return QualityAssessment{}, err
	}
	return a, nil
}

// AppendTransfer appends a custody transfer record with a monotonic id.
func (tx *transaction) AppendTransfer(t TransferRecord) (TransferRecord, error) {
	t.ID = tx.state.nextXferID
	tx.state.nextXferID++
	if t.Timestamp.IsZero() {
		t.Timestamp = tx.now
	}
	tx.state.transfers = append(tx.state.transfers, t)
	if err := tx.recordChange(domain.EntityTransfer, domain.ActionAppend, nil, t); err != nil {
		return TransferRecord{}, err
	}
	return t, nil
}

// UpdateSystem mutates the singleton system switch.
func (tx *transaction) UpdateSystem(mutator func(*System) error) (System, error) {
	current := tx.state.system
	before := current
	if err := mutator(&current); err != nil {
		return System{}, err
	}
	tx.state.system = current
	if err := tx.recordChange(domain.EntitySystem, domain.ActionUpdate, before, current); err != nil {
		return System{}, err
	}
	return current, nil
}

// FindActor retrieves an actor from the transactional state.
func (tx *transaction) FindActor(id string) (Actor, bool) {
	return view{state: tx.state}.FindActor(id)
}

// FindProduct retrieves a product from the transactional state.
func (tx *transaction) FindProduct(id string) (Product, bool) {
	return view{state: tx.state}.FindProduct(id)
}

// FindBatch retrieves a batch from the transactional state.
func (tx *transaction) FindBatch(id string) (Batch, bool) {
	return view{state: tx.state}.FindBatch(id)
}

// FindAssessment retrieves an assessment from the transactional state.
func (tx *transaction) FindAssessment(productID string, stage domain.Stage) (QualityAssessment, bool) {
	return view{state: tx.state}.FindAssessment(productID, stage)
}

// System returns the system switch state within the transaction.
func (tx *transaction) System() System {
	return tx.state.system
}

// Read helpers ---------------------------------------------------------------

// GetActor retrieves an actor by id from committed state.
func (s *Store) GetActor(id string) (Actor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.actors[id]
	if !ok {
		return Actor{}, false
	}
	return cloneActor(a), true
}

// ListActors returns all actors from committed state.
func (s *Store) ListActors() []Actor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListActors()
}

// GetProduct retrieves a product by id from committed state.
func (s *Store) GetProduct(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.products[id]
	if !ok {
		return Product{}, false
	}
	return cloneProduct(p), true
}

// ListProducts returns all products from committed state.
func (s *Store) ListProducts() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListProducts()
}

// GetBatch retrieves a batch by id from committed state.
func (s *Store) GetBatch(id string) (Batch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.state.batches[id]
	if !ok {
		return Batch{}, false
	}
	return cloneBatch(b), true
}

// ListBatches returns all batches from committed state.
func (s *Store) ListBatches() []Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return view{state: &s.state}.ListBatches()
}

// GetAssessment returns the stored assessment for a (product, stage) pair.
func (s *Store) GetAssessment(productID string, stage domain.Stage) (QualityAssessment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.assessments[assessmentKey(productID, stage)]
	return a, ok
}

// ListTransfers returns the committed transfer log in id order.
func (s *Store) ListTransfers() []TransferRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TransferRecord(nil), s.state.transfers...)
}

// System returns the committed system switch state.
func (s *Store) System() System {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.system
}

// ExportState captures a snapshot of committed state for persistence backends.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cloned := s.state.clone()
	return Snapshot{
		Actors:       cloned.actors,
		Products:     cloned.products,
		Batches:      cloned.batches,
		Assessments:  cloned.assessments,
		Transfers:    cloned.transfers,
		NextTransfer: cloned.nextXferID,
		System:       cloned.system,
	}
}

// ImportState replaces committed state from a persisted snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newMemoryState()
	for k, v := range snapshot.Actors {
		state.actors[k] = cloneActor(v)
	}
	for k, v := range snapshot.Products {
		state.products[k] = cloneProduct(v)
	}
	for k, v := range snapshot.Batches {
		state.batches[k] = cloneBatch(v)
	}
	for k, v := range snapshot.Assessments {
		state.assessments[k] = v
	}
	state.transfers = append([]TransferRecord(nil), snapshot.Transfers...)
	state.nextXferID = snapshot.NextTransfer
	if state.nextXferID < 1 {
		state.nextXferID = 1
		for _, t := range state.transfers {
			if t.ID >= state.nextXferID {
				state.nextXferID = t.ID + 1
			}
		}
	}
	state.system = snapshot.System
	s.state = state
}
