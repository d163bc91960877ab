package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"music-proxy-go/internal/config"
	"music-proxy-go/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance. The proxy
// owns every path outside the fixed endpoints, so the catch-all comes last
// and exact paths shadow it.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, proxy *ProxyHandler, health *HealthHandler, m *metrics.Metrics) {
	e.GET("/health", health.Health)
	e.GET("/status", health.Status)
	e.GET("/palette", Palette)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(
			promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	// GET and HEAD only; Echo answers 405 for every other method. OPTIONS
	// never reaches the router, the preflight middleware short-circuits it.
	e.GET("/", proxy.Handle)
	e.HEAD("/", proxy.Handle)
	e.GET("/*", proxy.Handle)
	e.HEAD("/*", proxy.Handle)
}
