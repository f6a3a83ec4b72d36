package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/metzger100/newznabrewritarr/app/cfg"
	"github.com/metzger100/newznabrewritarr/app/proxy"
)

func newTestServer() http.Handler {
	cfg.Set(&cfg.Cfg{
		Port:         "5008",
		RewriteMusic: true,
		RewriteBooks: true,
		Version:      "test",
	})

	stats := &proxy.Stats{}
	stats.RequestsProxied.Add(3)
	stats.TitlesRewritten.Add(7)

	return NewServer(NewHandler(stats))
}

func TestGetHealth(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("Failed to parse health response: %v", err)
	}
	if health["status"] != "ok" {
		t.Errorf("Expected status 'ok', got %v", health["status"])
	}
	if health["version"] != "test" {
		t.Errorf("Expected version 'test', got %v", health["version"])
	}
}

func TestGetStats(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var stats map[string]float64
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to parse stats response: %v", err)
	}
	if stats["requests_proxied"] != 3 {
		t.Errorf("Expected 3 proxied requests, got %v", stats["requests_proxied"])
	}
	if stats["titles_rewritten"] != 7 {
		t.Errorf("Expected 7 rewritten titles, got %v", stats["titles_rewritten"])
	}
}

func TestGetRoot(t *testing.T) {
	server := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var info map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("Failed to parse root response: %v", err)
	}
	if info["service"] != "NewznabRewritarr" {
		t.Errorf("Expected service name, got %v", info["service"])
	}
}
