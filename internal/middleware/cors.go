package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Preflight returns an Echo middleware that answers CORS preflight requests.
// Browsers probe with OPTIONS before cross-origin audio and metadata fetches;
// the proxy answers on every path with a fixed header set, so preflights never
// reach the router or the upstreams.
func Preflight() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodOptions {
				return next(c)
			}

			h := c.Response().Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Methods", "GET,HEAD,OPTIONS")
			h.Set("Access-Control-Allow-Headers", "*")
			h.Set("Access-Control-Max-Age", "86400")
			return c.NoContent(http.StatusNoContent)
		}
	}
}
