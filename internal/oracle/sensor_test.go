package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSensorClientRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sensor" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"temperature":"6.5","timestamp":1767225600,"sensor_id":"dht-17","status":"ok"}`))
	}))
	defer srv.Close()

	client := NewSensorClient(srv.URL, srv.Client())
	reading, err := client.Read(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reading.Temperature.Equal(decimal.RequireFromString("6.5")) {
		t.Fatalf("unexpected temperature: %s", reading.Temperature)
	}
	if reading.SensorID != "dht-17" || reading.Status != "ok" {
		t.Fatalf("unexpected reading: %+v", reading)
	}
}

func TestSensorClientNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewSensorClient(srv.URL, srv.Client())
	if _, err := client.Read(context.Background()); err == nil {
		t.Fatalf("expected error on non-200 status")
	}
}
