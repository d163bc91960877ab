package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestPreflight_AnswersOptionsOnAnyPath(t *testing.T) {
	e := echo.New()
	e.Use(Preflight())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "proxied")
	})

	paths := []string{"/", "/health", "/anything/deep", "/?target=http://kuwo.cn/x"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != http.StatusNoContent {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
			}

			wantHeaders := map[string]string{
				"Access-Control-Allow-Origin":  "*",
				"Access-Control-Allow-Methods": "GET,HEAD,OPTIONS",
				"Access-Control-Allow-Headers": "*",
				"Access-Control-Max-Age":       "86400",
			}
			for key, want := range wantHeaders {
				if got := rec.Header().Get(key); got != want {
					t.Errorf("%s = %q, want %q", key, got, want)
				}
			}

			if rec.Body.Len() != 0 {
				t.Errorf("body = %q, want empty", rec.Body.String())
			}
		})
	}
}

func TestPreflight_InterceptsBeforeRouting(t *testing.T) {
	// No routes registered at all; the middleware must still answer OPTIONS.
	e := echo.New()
	e.Use(Preflight())

	req := httptest.NewRequest(http.MethodOptions, "/unrouted", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestPreflight_PassesThroughOtherMethods(t *testing.T) {
	e := echo.New()
	e.Use(Preflight())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "proxied")
	})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "proxied" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "proxied")
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "" {
		t.Errorf("Access-Control-Allow-Methods = %q, want unset on non-preflight", got)
	}
}
