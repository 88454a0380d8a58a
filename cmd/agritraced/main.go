// Command agritraced serves the custody tracker over HTTP: admin console
// endpoints, the read-only trace view, oracle fulfillment, and Prometheus
// metrics. All configuration comes from AGRITRACE_* environment variables.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"agritrace/internal/blob"
	"agritrace/internal/core"
	"agritrace/internal/oracle"
	"agritrace/pkg/domain"
)

// slogAdapter bridges the service logger interface onto log/slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Infof(format string, args ...any) {
	a.logger.Info(fmt.Sprintf(format, args...))
}

func (a slogAdapter) Errorf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	if err := run(logger); err != nil {
		logger.Error("agritraced exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := core.NewDefaultRulesEngine()
	store, err := core.OpenPersistentStore(engine)
	if err != nil {
		return fmt.Errorf("open persistent store: %w", err)
	}
	docs, err := blob.Open(ctx)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}

	fulfiller := os.Getenv("AGRITRACE_ORACLE_FULFILLER")
	if fulfiller == "" {
		fulfiller = "oracle-fulfiller"
	}
	gateway := oracle.NewGateway(fulfiller)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := core.NewPrometheusMetricsRecorder(registry)

	service := core.NewService(store,
		core.WithOracle(gateway),
		core.WithDocumentStore(docs),
		core.WithLogger(slogAdapter{logger: logger}),
		core.WithMetrics(metrics),
	)

	srv := &server{service: service, gateway: gateway, fulfiller: fulfiller, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /admin/pause", srv.handlePause)
	mux.HandleFunc("POST /admin/unpause", srv.handleUnpause)
	mux.HandleFunc("POST /admin/blacklist", srv.handleBlacklist)
	mux.HandleFunc("POST /admin/unblacklist", srv.handleUnblacklist)
	mux.HandleFunc("POST /admin/assign-role", srv.handleAssignRole)
	mux.HandleFunc("GET /trace/", srv.handleTrace)
	mux.HandleFunc("POST /oracle/temperature/fulfill", srv.handleFulfillTemperature)
	mux.HandleFunc("POST /oracle/damage/fulfill", srv.handleFulfillDamage)

	if sensorURL := os.Getenv("AGRITRACE_SENSOR_URL"); sensorURL != "" {
		client := oracle.NewSensorClient(sensorURL, nil)
		go srv.fulfillFromSensor(ctx, client)
	}

	addr := os.Getenv("AGRITRACE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("agritraced listening", "addr", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

type server struct {
	service   *core.Service
	gateway   *oracle.Gateway
	fulfiller string
	logger    *slog.Logger
}

// fulfillFromSensor answers pending temperature requests with readings from
// the external sensor endpoint.
func (s *server) fulfillFromSensor(ctx context.Context, client *oracle.SensorClient) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		pending := s.gateway.PendingTemperatureRequests()
		if len(pending) == 0 {
			continue
		}
		reading, err := client.Read(ctx)
		if err != nil {
			s.logger.Error("sensor read failed", "error", err)
			continue
		}
		for _, correlationID := range pending {
			if err := s.gateway.FulfillTemperature(s.fulfiller, correlationID, reading.Temperature); err != nil {
				s.logger.Error("temperature fulfillment failed", "correlation_id", correlationID, "error", err)
			}
		}
	}
}

func caller(r *http.Request) string {
	return r.Header.Get("X-Actor")
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var authErr domain.AuthorizationError
	var invErr domain.InvariantError
	var preErr domain.PreconditionError
	var depErr domain.DependencyError
	var nfErr domain.NotFoundError
	var ruleErr domain.RuleViolationError
	switch {
	case errors.As(err, &authErr):
		status = http.StatusForbidden
	case errors.As(err, &invErr):
		status = http.StatusBadRequest
	case errors.As(err, &preErr):
		status = http.StatusConflict
	case errors.As(err, &depErr):
		status = http.StatusServiceUnavailable
	case errors.As(err, &nfErr):
		status = http.StatusNotFound
	case errors.As(err, &ruleErr):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *server) handlePause(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.Pause(r.Context(), caller(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.Unpause(r.Context(), caller(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

type targetRequest struct {
	Target string `json:"target"`
}

func (s *server) handleBlacklist(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.InvariantError{Field: "body", Reason: "invalid JSON"})
		return
	}
	actor, _, err := s.service.Blacklist(r.Context(), caller(r), req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

func (s *server) handleUnblacklist(w http.ResponseWriter, r *http.Request) {
	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.InvariantError{Field: "body", Reason: "invalid JSON"})
		return
	}
	actor, _, err := s.service.Unblacklist(r.Context(), caller(r), req.Target)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

func (s *server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.InvariantError{Field: "body", Reason: "invalid JSON"})
		return
	}
	actor, _, err := s.service.AssignRole(r.Context(), caller(r), req.Target, domain.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

func (s *server) handleTrace(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimPrefix(r.URL.Path, "/trace/")
	if productID == "" {
		writeError(w, domain.InvariantError{Field: "product_id", Reason: "must not be empty"})
		return
	}
	trace, err := s.service.FullTrace(productID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

func (s *server) handleFulfillTemperature(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CorrelationID string          `json:"correlation_id"`
		Value         decimal.Decimal `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.InvariantError{Field: "body", Reason: "invalid JSON"})
		return
	}
	if err := s.gateway.FulfillTemperature(caller(r), req.CorrelationID, req.Value); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "fulfilled"})
}

func (s *server) handleFulfillDamage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CorrelationID string `json:"correlation_id"`
		DamageScore   int    `json:"damage_score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.InvariantError{Field: "body", Reason: "invalid JSON"})
		return
	}
	if err := s.gateway.FulfillDamagePrediction(caller(r), req.CorrelationID, req.DamageScore); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "fulfilled"})
}
