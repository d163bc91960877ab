package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"music-proxy-go/internal/metrics"
)

// MetricsMiddleware returns an Echo middleware that records Prometheus metrics
// for each inbound request, labelled with the proxy's route classification.
func MetricsMiddleware(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			err := next(c)
			elapsed := time.Since(start).Seconds()

			req := c.Request()
			method := metrics.NormalizeMethod(req.Method)
			status := strconv.Itoa(responseStatus(c, err))
			route := m.RouteLabel(req.URL.Path, req.URL.Query())

			m.RequestsTotal.WithLabelValues(method, status, route).Inc()
			m.RequestDuration.WithLabelValues(method, status, route).Observe(elapsed)

			return err
		}
	}
}

// responseStatus resolves the code a request is answered with. An
// *echo.HTTPError has not been written when the middleware regains control;
// its code is what the central error handler will send.
func responseStatus(c echo.Context, err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return c.Response().Status
}
