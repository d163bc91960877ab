// Package middleware provides Echo middleware for logging, CORS preflight,
// and metrics.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"music-proxy-go/internal/metrics"
)

// RequestLogger returns an Echo middleware that logs each request with slog.
// Nearly all traffic lands on the catch-all route, so the route field carries
// the proxy's own classification; audio requests also log their upstream
// target.
func RequestLogger(logger *slog.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()
			query := req.URL.Query()

			attrs := []any{
				"method", req.Method,
				"route", m.RouteLabel(req.URL.Path, query),
				"path", req.URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
				"bytes_out", res.Size,
			}
			if target := query.Get("target"); target != "" {
				attrs = append(attrs, "target", target)
			}
			logger.Info("request", attrs...)

			return err
		}
	}
}
