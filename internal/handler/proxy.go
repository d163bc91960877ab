package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"music-proxy-go/internal/model"
	"music-proxy-go/internal/service"
)

// Content types applied when the upstream response carries none.
const (
	contentTypeAudio = "audio/mpeg"
	contentTypeJSON  = "application/json; charset=utf-8"
	contentTypeImage = "image/jpeg"
)

// ProxyHandler classifies proxy requests and relays upstream responses.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle serves the proxy catch-all route. A request carrying a target query
// parameter streams audio from an allow-listed host; everything else is
// forwarded to the metadata API.
func (h *ProxyHandler) Handle(c echo.Context) error {
	// Outbound fetches run on a detached context: when the inbound
	// connection drops, the upstream call completes or times out on its own
	// schedule instead of being canceled mid-retry.
	ctx := context.Background()

	if c.Request().URL.Query().Has("target") {
		return h.handleAudio(ctx, c)
	}
	return h.handleAPI(ctx, c)
}

func (h *ProxyHandler) handleAudio(ctx context.Context, c echo.Context) error {
	req := c.Request()

	resp, err := h.service.FetchAudio(ctx, req.Method, req.URL.Query().Get("target"), req.Header)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Clients seeking within a track need partial-content semantics even
	// when the upstream omits them.
	if req.Header.Get("Range") != "" {
		cr := resp.Header.Get("Content-Range")
		resp.Header.Set("Accept-Ranges", "bytes")
		resp.Header.Set("Content-Range", cr)
	}

	return h.writeResponse(c, resp, contentTypeAudio)
}

func (h *ProxyHandler) handleAPI(ctx context.Context, c echo.Context) error {
	req := c.Request()
	query := req.URL.Query()

	resp, err := h.service.FetchAPI(ctx, req.Method, query, req.Header)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return h.writeResponse(c, resp, fallbackContentType(query.Get("types")))
}

// writeResponse copies the sanitized headers, applies the content-type
// fallback, writes the status, and streams the body without buffering.
func (h *ProxyHandler) writeResponse(c echo.Context, resp *model.UpstreamResponse, fallbackContentType string) error {
	header := c.Response().Header()
	for key, vals := range resp.Header {
		for _, v := range vals {
			header.Add(key, v)
		}
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", fallbackContentType)
	}

	c.Response().WriteHeader(resp.StatusCode)

	// Stream the upstream body directly to the client. If io.Copy fails
	// mid-stream (client disconnect, network error), the HTTP status code
	// has already been sent, so the client receives a truncated response
	// with the original status. This is an inherent trade-off of streaming
	// proxies; log the error for observability.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", c.Request().URL.Path,
		)
	}

	return nil
}

// fallbackContentType picks the content type for a metadata response that
// arrived without one: picture lookups produce images, the rest JSON.
func fallbackContentType(types string) string {
	if types == "pic" {
		return contentTypeImage
	}
	return contentTypeJSON
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	if errors.Is(err, service.ErrInvalidTarget) {
		h.logger.Warn("rejected target",
			"target", c.QueryParam("target"),
			"path", c.Request().URL.Path,
		)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid target",
		})
	}

	if errors.Is(err, service.ErrMissingTypes) {
		h.logger.Warn("rejected metadata request",
			"reason", "missing types",
			"path", c.Request().URL.Path,
		)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Missing types",
		})
	}

	h.logger.Error("proxy error",
		"err", err,
		"path", c.Request().URL.Path,
	)

	// A transport failure with retries exhausted is the one case where the
	// proxy fabricates a response. The body stays generic so upstream error
	// text never leaks to callers.
	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "Proxy error",
	})
}
