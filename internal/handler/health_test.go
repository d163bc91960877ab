package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"music-proxy-go/internal/config"
)

func TestHealth(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	cfg := &config.Config{Server: config.ServerConfig{Port: 8000}}
	h := NewHealthHandler(cfg, "test")
	if err := h.Health(c); err != nil {
		t.Fatalf("Health() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want %q", body["status"], "ok")
	}
	if body["port"] != float64(8000) {
		t.Errorf("port = %v, want 8000", body["port"])
	}
	ts, _ := body["timestamp"].(string)
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", ts, err)
	}
	if uptime, _ := body["uptime"].(string); uptime == "" {
		t.Error("uptime missing or empty")
	}
}

func TestStatus(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/status", http.NoBody)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	cfg := &config.Config{
		API:   config.APIConfig{BaseURL: "https://music-api.gdstudio.xyz/api.php"},
		Audio: config.AudioConfig{AllowedDomain: "kuwo.cn"},
	}
	h := NewHealthHandler(cfg, "1.2.3")
	if err := h.Status(c); err != nil {
		t.Fatalf("Status() error = %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body.status = %v, want %q", body["status"], "ok")
	}
	if body["version"] != "1.2.3" {
		t.Errorf("body.version = %v, want %q", body["version"], "1.2.3")
	}
	if body["api_base_url"] != "https://music-api.gdstudio.xyz/api.php" {
		t.Errorf("body.api_base_url = %v, want configured base URL", body["api_base_url"])
	}
	if body["audio_domain"] != "kuwo.cn" {
		t.Errorf("body.audio_domain = %v, want %q", body["audio_domain"], "kuwo.cn")
	}
}
