// Package model defines shared types for the proxy.
package model

import (
	"io"
	"net/http"
	"time"
)

// FetchRequest describes one outbound upstream request. It is built by the
// service layer and not modified afterwards.
type FetchRequest struct {
	Method string
	URL    string
	Header http.Header
}

// RetryPolicy controls the retry behavior of the upstream client. The delay
// before attempt n is BaseDelay doubled n-1 times (pure exponential, no
// jitter). AttemptTimeout bounds each connection attempt up to the arrival of
// response headers; it does not bound body streaming.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

// UpstreamResponse represents the upstream response to be streamed back.
// The body is never buffered; the caller owns it and must close it.
type UpstreamResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       io.ReadCloser
}
