package domain

import (
	"encoding/json"
	"testing"
)

func TestChangePayloadDefinedAndRawCloning(t *testing.T) {
	raw := json.RawMessage(`{"id":"p1"}`)
	payload := NewChangePayload(raw)
	if !payload.Defined() || payload.IsEmpty() {
		t.Fatalf("payload should be defined and non-empty")
	}
	raw[2] = 'x'
	if string(payload.Raw()) != `{"id":"p1"}` {
		t.Fatalf("payload must not alias caller bytes: %s", payload.Raw())
	}

	undefined := UndefinedChangePayload()
	if undefined.Defined() || !undefined.IsEmpty() || undefined.Raw() != nil {
		t.Fatalf("undefined payload should report empty")
	}
}

func TestDecodeChangePayload(t *testing.T) {
	payload, err := NewChangePayloadFromValue(Product{Base: Base{ID: "p1"}, Stage: StageFarm})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	product, ok := Decode[Product](payload)
	if !ok || product.ID != "p1" || product.Stage != StageFarm {
		t.Fatalf("decoded product mismatch: %+v ok=%v", product, ok)
	}
	if _, ok := Decode[Product](UndefinedChangePayload()); ok {
		t.Fatalf("decoding undefined payload should fail")
	}
	if _, ok := Decode[Product](NewChangePayload(json.RawMessage(`{`))); ok {
		t.Fatalf("decoding malformed payload should fail")
	}
}

func TestResultMergeAndBlocking(t *testing.T) {
	var res Result
	res.Merge(Result{})
	if res.HasBlocking() {
		t.Fatalf("empty result must not block")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "r", Severity: SeverityWarn}}})
	if res.HasBlocking() {
		t.Fatalf("warnings must not block")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "r", Severity: SeverityBlock}}})
	if !res.HasBlocking() {
		t.Fatalf("blocking violation not detected")
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(res.Violations))
	}
}

func TestBatchMembershipHelpers(t *testing.T) {
	batch := Batch{
		ProductIDs: []string{"a", "b", "c"},
		Removed:    map[string]string{"b": "failed quality"},
	}
	members := batch.CurrentMembers()
	if len(members) != 2 || members[0] != "a" || members[1] != "c" {
		t.Fatalf("unexpected members: %v", members)
	}
	if !batch.IsRemoved("b") || batch.IsRemoved("a") {
		t.Fatalf("removal flags inconsistent")
	}
}

func TestErrorMessages(t *testing.T) {
	if got := (DependencyError{Dependency: "temperature oracle"}).Error(); got != "temperature oracle not configured" {
		t.Fatalf("unexpected dependency error: %s", got)
	}
	if got := (NotFoundError{Entity: EntityProduct, ID: "p9"}).Error(); got != "product p9 not found" {
		t.Fatalf("unexpected not-found error: %s", got)
	}
	if got := (AuthorizationError{Actor: "a", Requirement: "role farmer"}).Error(); got != "actor a not authorized: role farmer" {
		t.Fatalf("unexpected authorization error: %s", got)
	}
}
