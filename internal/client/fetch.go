// Package client provides the retrying HTTP client for upstream fetches.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"music-proxy-go/internal/metrics"
	"music-proxy-go/internal/model"
)

// UpstreamClient performs outbound fetches against the metadata API and the
// audio hosts, retrying transient failures with exponential backoff.
type UpstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with connection pooling.
// The metrics parameter is optional; pass nil to disable upstream metrics
// recording. The underlying http.Client carries no overall timeout: audio
// bodies stream for as long as the track plays, so each attempt is bounded
// separately by the policy's AttemptTimeout instead.
func NewUpstreamClient(logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &UpstreamClient{
		httpClient: &http.Client{Transport: transport},
		logger:     logger.With("component", "upstream_client"),
		metrics:    m,
	}
}

// Fetch executes the request with retries according to policy and returns the
// upstream response. The caller is responsible for closing the response body.
//
// Attempts are strictly sequential. A response with status below 500 is
// returned immediately; 5xx responses and transport failures are retried with
// delays of BaseDelay, 2×BaseDelay, 4×BaseDelay, … between attempts. When
// attempts are exhausted, the last 5xx response is returned as-is while a
// transport failure surfaces as an error.
func (c *UpstreamClient) Fetch(ctx context.Context, freq *model.FetchRequest, policy model.RetryPolicy) (*model.UpstreamResponse, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := policy.BaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := c.attempt(ctx, freq, policy.AttemptTimeout)
		if err != nil {
			if ctx.Err() != nil {
				// The caller's context is gone; waiting out the
				// backoff would be pointless.
				return nil, err
			}
			lastErr = err
			if attempt < maxAttempts-1 {
				c.retryWarn(freq, attempt, maxAttempts, metrics.RetryReasonTransport,
					"err", err)
			}
			continue
		}

		if resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
		}
		if attempt == maxAttempts-1 {
			// Out of attempts: hand the 5xx back unchanged so the
			// caller observes the real upstream failure mode.
			return resp, nil
		}

		c.retryWarn(freq, attempt, maxAttempts, metrics.RetryReasonServerError,
			"status", resp.StatusCode)
		_ = resp.Body.Close()
	}

	return nil, lastErr
}

// attempt performs a single fetch bounded by timeout. The timeout covers
// dialing and waiting for response headers; once headers have arrived the
// timer is stopped so that body streaming is never cut off. Closing the
// returned body releases the attempt's context.
func (c *UpstreamClient) attempt(ctx context.Context, freq *model.FetchRequest, timeout time.Duration) (*model.UpstreamResponse, error) {
	actx, cancel := context.WithCancel(ctx)

	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, cancel)
	}
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	req, err := http.NewRequestWithContext(actx, freq.Method, freq.URL, nil)
	if err != nil {
		stopTimer()
		cancel()
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	if freq.Header != nil {
		req.Header = freq.Header.Clone()
	}

	c.logger.Debug("upstream attempt",
		"method", freq.Method,
		"url", freq.URL,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via UpstreamResponse
	duration := time.Since(start).Seconds()

	method := metrics.NormalizeMethod(freq.Method)
	if c.metrics != nil {
		c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
	}

	if err != nil {
		stopTimer()
		cancel()
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	stopTimer()

	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()
	}

	return &model.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       &releaseOnClose{ReadCloser: resp.Body, release: cancel},
	}, nil
}

func (c *UpstreamClient) retryWarn(freq *model.FetchRequest, attempt, maxAttempts int, reason string, args ...any) {
	if c.metrics != nil {
		c.metrics.UpstreamRetries.WithLabelValues(reason).Inc()
	}
	c.logger.Warn("retrying upstream fetch",
		append([]any{
			"url", freq.URL,
			"attempt", attempt + 1,
			"max_attempts", maxAttempts,
			"reason", reason,
		}, args...)...,
	)
}

// releaseOnClose closes the wrapped body and then releases the attempt
// context, so a finished or abandoned stream frees its resources.
type releaseOnClose struct {
	io.ReadCloser
	release context.CancelFunc
}

func (b *releaseOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}
