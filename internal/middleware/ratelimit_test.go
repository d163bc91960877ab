package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"music-proxy-go/internal/config"
)

// The per-IP limiter is opt-in scaffolding; this covers the store wiring used
// in main when [server.rate_limit] is enabled.
func TestRateLimiter_LimitsBurst(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1}

	e := echo.New()
	store := echomw.NewRateLimiterMemoryStore(rate.Limit(cfg.RequestsPerSecond))
	e.Use(echomw.RateLimiter(store))
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	serve := func() int {
		req := httptest.NewRequest(http.MethodGet, "/?types=search", http.NoBody)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := serve(); got != http.StatusOK {
		t.Fatalf("first request: status = %d, want %d", got, http.StatusOK)
	}

	got429 := false
	for range 10 {
		if serve() == http.StatusTooManyRequests {
			got429 = true
			break
		}
	}
	if !got429 {
		t.Error("expected at least one 429 response after the burst, got none")
	}
}
