package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"agritrace/internal/core"
	"agritrace/internal/infra/persistence/memory"
	"agritrace/internal/oracle"
	"agritrace/pkg/domain"
)

func newTestServer(t *testing.T) *server {
	t.Helper()
	store := memory.NewStore(core.NewDefaultRulesEngine())
	gateway := oracle.NewGateway("hub")
	service := core.NewService(store, core.WithOracle(gateway))
	return &server{
		service:   service,
		gateway:   gateway,
		fulfiller: "hub",
		logger:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

func TestHandleTraceNotFound(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/trace/ghost", nil)
	rec := httptest.NewRecorder()
	srv.handleTrace(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandlePauseRequiresAdmin(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/admin/pause", nil)
	req.Header.Set("X-Actor", "nobody")
	rec := httptest.NewRecorder()
	srv.handlePause(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	if _, _, err := srv.service.InstallAdmin(ctx, "admin", "hash"); err != nil {
		t.Fatalf("install admin: %v", err)
	}
	if _, _, err := srv.service.RegisterUser(ctx, "w1", domain.RoleNone, "hash-w1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	body := strings.NewReader(`{"target":"w1","role":"farmer"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/assign-role", body)
	req.Header.Set("X-Actor", "admin")
	rec := httptest.NewRecorder()
	srv.handleAssignRole(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("assign role failed: %d %s", rec.Code, rec.Body.String())
	}
	var actor domain.Actor
	if err := json.NewDecoder(rec.Body).Decode(&actor); err != nil {
		t.Fatalf("decode actor: %v", err)
	}
	if actor.Role != domain.RoleFarmer || actor.Reputation[domain.RoleFarmer] != 50 {
		t.Fatalf("unexpected actor payload: %+v", actor)
	}
}

func TestHandleFulfillTemperature(t *testing.T) {
	srv := newTestServer(t)
	correlationID, err := srv.gateway.RequestTemperature("p1")
	if err != nil {
		t.Fatalf("request temperature: %v", err)
	}

	body := strings.NewReader(`{"correlation_id":"` + correlationID + `","value":"7.25"}`)
	req := httptest.NewRequest(http.MethodPost, "/oracle/temperature/fulfill", body)
	req.Header.Set("X-Actor", "hub")
	rec := httptest.NewRecorder()
	srv.handleFulfillTemperature(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("fulfill failed: %d %s", rec.Code, rec.Body.String())
	}
	if _, ok := srv.gateway.CurrentTemperature("p1"); !ok {
		t.Fatalf("reading not recorded")
	}

	// Wrong identity is rejected.
	correlationID, _ = srv.gateway.RequestTemperature("p2")
	body = strings.NewReader(`{"correlation_id":"` + correlationID + `","value":"7.25"}`)
	req = httptest.NewRequest(http.MethodPost, "/oracle/temperature/fulfill", body)
	req.Header.Set("X-Actor", "intruder")
	rec = httptest.NewRecorder()
	srv.handleFulfillTemperature(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
