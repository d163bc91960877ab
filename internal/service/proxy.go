// Package service implements the core proxy forwarding logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"music-proxy-go/internal/client"
	"music-proxy-go/internal/config"
	"music-proxy-go/internal/model"
)

// ErrMissingTypes is returned when a metadata request lacks the types
// parameter the upstream API needs to select its response shape.
var ErrMissingTypes = errors.New("types parameter is required")

// Browser-like defaults for outbound headers. The audio hosts throttle
// obviously non-browser clients, so the proxy presents itself as one unless
// the caller supplied its own User-Agent.
const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	acceptJSON  = "application/json, text/plain, */*"
	acceptImage = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
	acceptAudio = "audio/webm,audio/ogg,audio/wav,audio/*;q=0.9,application/ogg;q=0.7,*/*;q=0.5"
)

// strippedQueryParams never reach the metadata upstream: target is proxy
// routing state and callback would switch the API into JSONP mode.
var strippedQueryParams = []string{"target", "callback"}

// ProxyService handles the forwarding logic for proxy requests.
type ProxyService struct {
	client    *client.UpstreamClient
	cfg       *config.Config
	logger    *slog.Logger
	apiBase   *url.URL
	validator *TargetValidator
}

// NewProxyService creates a ProxyService.
func NewProxyService(c *client.UpstreamClient, cfg *config.Config, logger *slog.Logger) (*ProxyService, error) {
	base, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base_url: %w", err)
	}

	return &ProxyService{
		client:    c,
		cfg:       cfg,
		logger:    logger.With("component", "proxy_service"),
		apiBase:   base,
		validator: NewTargetValidator(cfg.Audio.AllowedDomain),
	}, nil
}

// FetchAudio validates target against the trusted audio domain and streams it
// through the retrying client. The caller is responsible for closing the
// response body.
//
// User-Agent, Accept, and Range are inherited from the inbound headers, the
// first two with browser defaults; no other inbound header is forwarded.
func (s *ProxyService) FetchAudio(ctx context.Context, method, target string, inbound http.Header) (*model.UpstreamResponse, error) {
	u, err := s.validator.Validate(target)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)
	header.Set("User-Agent", headerOrDefault(inbound, "User-Agent", defaultUserAgent))
	header.Set("Accept", headerOrDefault(inbound, "Accept", acceptAudio))
	if rng := inbound.Get("Range"); rng != "" {
		header.Set("Range", rng)
	}

	s.logger.Debug("forwarding audio request",
		"method", method,
		"host", u.Hostname(),
	)

	resp, err := s.client.Fetch(ctx, &model.FetchRequest{
		Method: method,
		URL:    u.String(),
		Header: header,
	}, s.cfg.Audio.RetryPolicy())
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}

	resp.Header = sanitizeResponseHeaders(resp.Header, audioCacheControl(resp.StatusCode))
	return resp, nil
}

// FetchAPI forwards a metadata request to the configured API upstream. Every
// inbound query parameter except target and callback passes through verbatim.
// The caller is responsible for closing the response body.
func (s *ProxyService) FetchAPI(ctx context.Context, method string, query url.Values, inbound http.Header) (*model.UpstreamResponse, error) {
	types := query.Get("types")
	if types == "" {
		return nil, ErrMissingTypes
	}

	header := make(http.Header)
	header.Set("User-Agent", headerOrDefault(inbound, "User-Agent", defaultUserAgent))
	header.Set("Accept", acceptForTypes(types))

	s.logger.Debug("forwarding metadata request",
		"method", method,
		"types", types,
	)

	resp, err := s.client.Fetch(ctx, &model.FetchRequest{
		Method: method,
		URL:    s.buildAPIURL(query),
		Header: header,
	}, s.cfg.API.RetryPolicy())
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}

	resp.Header = sanitizeResponseHeaders(resp.Header, cacheControlDefault)
	return resp, nil
}

// acceptForTypes picks the Accept header for a metadata request: picture
// lookups prefer images, url lookups prefer audio, everything else JSON.
func acceptForTypes(types string) string {
	switch types {
	case "pic":
		return acceptImage
	case "url":
		return acceptAudio
	default:
		return acceptJSON
	}
}

func (s *ProxyService) buildAPIURL(query url.Values) string {
	u := *s.apiBase

	q := make(url.Values, len(query))
	for k, v := range query {
		q[k] = v
	}
	for _, k := range strippedQueryParams {
		q.Del(k)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func headerOrDefault(h http.Header, key, fallback string) string {
	if v := h.Get(key); v != "" {
		return v
	}
	return fallback
}
