package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"datahub-exporter/config"
	"datahub-exporter/utils"
)

// Client is the HTTP JSON requester shared by token discovery and document
// fetch. One Client (and its pooled transport) serves the whole run; the
// per-call retry profile decides attempts, back-off and timeout.
type Client struct {
	http   *http.Client
	base   string
	origin string
	logger *utils.Logger
}

// NewClient builds a Client for the given backend base URL. The connection
// pool is sized to at least the document-fetch concurrency so the transport
// never becomes a tighter bound than the fetch semaphore.
func NewClient(cfg *config.Config, logger *utils.Logger) *Client {
	poolSize := cfg.FetchConcurrency
	if poolSize < 32 {
		poolSize = 32
	}

	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        poolSize,
				MaxIdleConnsPerHost: poolSize,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		base:   cfg.APIBase,
		origin: cfg.DashboardURL,
		logger: logger,
	}
}

// PostJSON posts payload to base+path and returns the response body.
// Transport errors, per-attempt timeouts and non-2xx/3xx statuses are
// retried with exponential back-off plus uniform jitter; when attempts are
// exhausted the last error is returned. The body is returned as-is so
// callers can still extract partial information from payloads that are not
// valid JSON.
func (c *Client) PostJSON(ctx context.Context, path string, payload any, profile config.Retry) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("api: marshal payload for %s: %w", path, err)
	}

	retry := utils.RetryConfig{
		MaxAttempts: profile.MaxAttempts,
		BaseDelay:   profile.BaseDelay,
		Jitter:      profile.Jitter,
	}

	var lastErr error
	for attempt := 1; attempt <= profile.MaxAttempts; attempt++ {
		respBody, err := c.attempt(ctx, path, body, profile.Timeout)
		if err == nil {
			return respBody, nil
		}
		lastErr = err

		if attempt < profile.MaxAttempts {
			delay := retry.Delay(attempt)
			c.logger.Debug("[api] POST %s attempt %d/%d failed: %v, retrying in %v",
				path, attempt, profile.MaxAttempts, err, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("POST %s failed after %d attempts: %w", path, profile.MaxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, path string, body []byte, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("origin", c.origin)
	req.Header.Set("referer", c.origin+"/")
	req.Header.Set("accept", "application/json, text/plain, */*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(respBody, 300))
	}
	return respBody, nil
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
