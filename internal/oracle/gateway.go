// Package oracle implements the asynchronous external-signal gateway:
// temperature readings per product and ML damage predictions per image URL.
// Requests return a correlation id immediately; fulfillment arrives later from
// the single privileged fulfiller identity, and consumers poll for values
// rather than block. A request that is never fulfilled simply stays pending —
// there is no timeout or retry.
package oracle

import (
	"sync"
	"time"

	"agritrace/pkg/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway tracks pending oracle requests and fulfilled values.
type Gateway struct {
	mu        sync.RWMutex
	fulfiller string
	nowFn     func() time.Time

	tempRequests   map[string]string // correlation id -> product id
	temperatures   map[string]domain.TemperatureReading
	damageRequests map[string]string // correlation id -> image url
	predictions    map[string]domain.DamagePrediction
}

// NewGateway constructs a gateway whose fulfill entry points accept only the
// given fulfiller identity.
func NewGateway(fulfiller string) *Gateway {
	return &Gateway{
		fulfiller:      fulfiller,
		nowFn:          func() time.Time { return time.Now().UTC() },
		tempRequests:   make(map[string]string),
		temperatures:   make(map[string]domain.TemperatureReading),
		damageRequests: make(map[string]string),
		predictions:    make(map[string]domain.DamagePrediction),
	}
}

// SetNowFunc overrides the fulfillment clock, primarily for tests.
func (g *Gateway) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	g.nowFn = fn
	g.mu.Unlock()
}

func (g *Gateway) authorize(caller string) error {
	if caller != g.fulfiller {
		return domain.AuthorizationError{Actor: caller, Requirement: "oracle fulfiller identity"}
	}
	return nil
}

// RequestTemperature issues an asynchronous temperature request for a product
// and returns its correlation id.
func (g *Gateway) RequestTemperature(productID string) (string, error) {
	if productID == "" {
		return "", domain.InvariantError{Field: "product_id", Reason: "must not be empty"}
	}
	id := uuid.NewString()
	g.mu.Lock()
	g.tempRequests[id] = productID
	g.mu.Unlock()
	return id, nil
}

// FulfillTemperature records a temperature against the product tied to the
// correlation id and clears the pending request. Only the configured
// fulfiller may call it.
func (g *Gateway) FulfillTemperature(caller, correlationID string, value decimal.Decimal) error {
	if err := g.authorize(caller); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	productID, ok := g.tempRequests[correlationID]
	if !ok {
		return domain.PreconditionError{Entity: "oracle_request", ID: correlationID, Reason: "no pending temperature request"}
	}
	delete(g.tempRequests, correlationID)
	g.temperatures[productID] = domain.TemperatureReading{Value: value, RecordedAt: g.nowFn()}
	return nil
}

// CurrentTemperature returns the last fulfilled reading for a product.
// ok=false means no fulfillment has arrived yet — a valid pending state, not
// an error; the caller decides whether a missing reading blocks its decision.
func (g *Gateway) CurrentTemperature(productID string) (domain.TemperatureReading, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	reading, ok := g.temperatures[productID]
	return reading, ok
}

// PendingTemperatureRequests returns the number of unfulfilled temperature
// requests, exposed for the fulfillment bridge and tests.
func (g *Gateway) PendingTemperatureRequests() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.tempRequests))
	for id := range g.tempRequests {
		out = append(out, id)
	}
	return out
}

// RequestDamagePrediction issues an asynchronous ML damage request for an
// image URL and returns its correlation id.
func (g *Gateway) RequestDamagePrediction(imageURL string) (string, error) {
	if imageURL == "" {
		return "", domain.InvariantError{Field: "image_url", Reason: "must not be empty"}
	}
	id := uuid.NewString()
	g.mu.Lock()
	g.damageRequests[id] = imageURL
	g.mu.Unlock()
	return id, nil
}

// FulfillDamagePrediction records a damage score (0-100) and its derived
// binary label against the image tied to the correlation id.
func (g *Gateway) FulfillDamagePrediction(caller, correlationID string, damageScore int) error {
	if err := g.authorize(caller); err != nil {
		return err
	}
	if damageScore < 0 || damageScore > domain.MaxQualityScore {
		return domain.InvariantError{Field: "damage_score", Reason: "must be within [0,100]"}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	imageURL, ok := g.damageRequests[correlationID]
	if !ok {
		return domain.PreconditionError{Entity: "oracle_request", ID: correlationID, Reason: "no pending damage request"}
	}
	delete(g.damageRequests, correlationID)
	g.predictions[imageURL] = domain.DamagePrediction{
		Score:       damageScore,
		Label:       domain.DamageLabel(damageScore),
		FulfilledAt: g.nowFn(),
	}
	return nil
}

// Prediction returns the fulfilled damage prediction for an image URL.
// ok=false represents the pending state.
func (g *Gateway) Prediction(imageURL string) (domain.DamagePrediction, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.predictions[imageURL]
	return p, ok
}
