//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yash1732/gigguard/internal/adapters/http"
	"github.com/yash1732/gigguard/internal/adapters/postgres"
	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/pkg/config"
)

// setupTestDB connects to the test database and clears SOS rows of the test worker.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("gigguard-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM sos_events WHERE worker_id LIKE 'ITEST-%'`); err != nil {
		t.Fatalf("clean sos_events: %v", err)
	}

	return &postgres.DB{Pool: pool}
}

// setupTestDeps wires the real SOS repository behind a mock POI provider.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	return &http.Dependencies{
		SOS: newSOSService(delhiProvider(), postgres.NewSOSRepo(db)),
		DB:  db,
	}
}

// TestSOSLifecycle_Integration triggers, reads, lists and acknowledges an SOS
// against a real database.
func TestSOSLifecycle_Integration(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(setupTestDeps(t, db))

	body := `{"worker_id":"ITEST-W1","latitude":28.6139,"longitude":77.2090,"emergency_type":"accident"}`
	req := httptest.NewRequest("POST", "/v1/sos/trigger", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var bundle domain.EmergencyBundle
	json.NewDecoder(resp.Body).Decode(&bundle)

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/sos/"+bundle.SOSID, nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	var event domain.SOSEvent
	json.NewDecoder(resp.Body).Decode(&event)
	if event.Status != domain.SOSStatusActive || len(event.Bundle.NearestHospitals) != 1 {
		t.Errorf("unexpected stored event %+v", event)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/sos/active?lat=28.614&lon=77.209&radius=1000", nil), -1)
	var active []domain.SOSEvent
	json.NewDecoder(resp.Body).Decode(&active)
	found := false
	for _, e := range active {
		found = found || e.ID == bundle.SOSID
	}
	if !found {
		t.Errorf("expected %s among active events", bundle.SOSID)
	}

	resp, _ = app.Test(httptest.NewRequest("POST", "/v1/sos/"+bundle.SOSID+"/ack", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("ack: expected 200, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/sos?worker_id=ITEST-W1", nil), -1)
	var page struct {
		Data []domain.SOSEvent `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&page)
	if len(page.Data) != 1 || page.Data[0].Status != domain.SOSStatusAcknowledged {
		t.Fatalf("expected one acknowledged event, got %+v", page.Data)
	}
	if page.Data[0].AcknowledgedAt == nil {
		t.Error("expected acknowledged_at to be set")
	}
}

// TestReady_Integration checks readiness with a live database.
func TestReady_Integration(t *testing.T) {
	db := setupTestDB(t)
	app := setupApp(setupTestDeps(t, db))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result struct {
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if result.Checks["database"] != "ok" {
		t.Errorf("expected database ok, got %q", result.Checks["database"])
	}
}
