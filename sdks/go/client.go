package recordgate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Client is the Record Gate SDK client. It communicates with the Record Gate
// decision API to check record access against configured policies.
type Client struct {
	serverAddr string
	apiKey     string
	failMode   string
	timeout    time.Duration
	httpClient *http.Client

	// Decision cache fields.
	cache        sync.Map
	cacheTTL     time.Duration
	cacheMaxSize int
	cacheCount   int64
	cacheMu      sync.Mutex

	logger *slog.Logger
}

// cacheEntry is a cached boolean decision with expiry.
type cacheEntry struct {
	allowed   bool
	expiresAt time.Time
	createdAt time.Time
}

// NewClient creates a new Record Gate SDK client.
// It reads configuration from RECORD_GATE_* environment variables by default.
// Options override the defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		serverAddr:   os.Getenv("RECORD_GATE_SERVER_ADDR"),
		apiKey:       os.Getenv("RECORD_GATE_API_KEY"),
		failMode:     envOrDefault("RECORD_GATE_FAIL_MODE", "closed"),
		timeout:      parseDurationEnv("RECORD_GATE_TIMEOUT", 5*time.Second),
		cacheTTL:     parseDurationEnv("RECORD_GATE_CACHE_TTL", 5*time.Second),
		cacheMaxSize: parseIntEnv("RECORD_GATE_CACHE_MAX_SIZE", 1000),
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// CheckRow asks the server whether the user may read the given row.
// Decisions are cached for the configured TTL. When the server is
// unreachable, the configured fail mode decides: "closed" returns a
// *ServerUnreachableError, "open" returns true.
func (c *Client) CheckRow(ctx context.Context, check RowCheck) (bool, error) {
	return c.checkDecision(ctx, "/v1/check/row", check)
}

// CheckWrite asks the server whether the user may perform the write.
// Caching and fail-mode behavior match CheckRow.
func (c *Client) CheckWrite(ctx context.Context, check WriteCheck) (bool, error) {
	return c.checkDecision(ctx, "/v1/check/write", check)
}

// FilterFields returns the row with unreadable fields removed. Field
// filtering is never cached and never fails open: a missing key in the
// result means the field was denied.
func (c *Client) FilterFields(ctx context.Context, check RowCheck) (map[string]any, error) {
	var resp fieldsResponse
	if err := c.doRequest(ctx, "/v1/check/fields", check, &resp); err != nil {
		if isConnectionError(err) {
			return nil, &ServerUnreachableError{Cause: err}
		}
		return nil, err
	}
	return resp.Record, nil
}

// Evaluate evaluates an expression tree on the server and returns its value.
// Server-side evaluation failures come back as a *EvaluationError carrying
// the typed kind, unless the request set a Fallback.
func (c *Client) Evaluate(ctx context.Context, req EvalRequest) (any, error) {
	var resp evalResponse
	err := c.doRequest(ctx, "/v1/eval", req, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
			return nil, &EvaluationError{Kind: apiErr.Kind, Message: apiErr.Message}
		}
		if isConnectionError(err) {
			return nil, &ServerUnreachableError{Cause: err}
		}
		return nil, err
	}
	return resp.Value, nil
}

// checkDecision runs a boolean decision endpoint with caching and fail-mode
// handling.
func (c *Client) checkDecision(ctx context.Context, path string, body any) (bool, error) {
	cacheKey, cacheable := c.buildCacheKey(path, body)
	if cacheable {
		if allowed, ok := c.getFromCache(cacheKey); ok {
			return allowed, nil
		}
	}

	var resp allowedResponse
	if err := c.doRequest(ctx, path, body, &resp); err != nil {
		if isConnectionError(err) {
			if c.failMode == "open" {
				c.logger.Warn("record gate server unreachable, failing open",
					"server_addr", c.serverAddr,
					"error", err,
				)
				return true, nil
			}
			return false, &ServerUnreachableError{Cause: err}
		}
		return false, err
	}

	if cacheable {
		c.putInCache(cacheKey, resp.Allowed)
	}
	return resp.Allowed, nil
}

// doRequest performs a POST to the Record Gate server and decodes the result.
func (c *Client) doRequest(ctx context.Context, path string, body, result any) error {
	url := strings.TrimRight(c.serverAddr, "/") + path

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return &clientError{op: "marshal request body", err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return &clientError{op: "create request", err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &clientError{op: "read response body", err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		apiErr := &APIError{Status: httpResp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var parsed errorResponse
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error.Message != "" {
			apiErr.Kind = parsed.Error.Kind
			apiErr.Message = parsed.Error.Message
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &clientError{op: "unmarshal response", err: err}
		}
	}

	return nil
}

// clientError marks request construction and decoding failures so they are
// never mistaken for connection errors.
type clientError struct {
	op  string
	err error
}

func (e *clientError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.op, e.err)
}

func (e *clientError) Unwrap() error { return e.err }

// buildCacheKey hashes the endpoint and request body into a cache key.
// Returns cacheable=false when caching is disabled or the body cannot be
// marshaled.
func (c *Client) buildCacheKey(path string, body any) (string, bool) {
	if c.cacheTTL <= 0 {
		return "", false
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", false
	}
	h := sha256.Sum256(jsonBody)
	return path + ":" + hex.EncodeToString(h[:16]), true
}

// getFromCache retrieves a cached decision if it exists and hasn't expired.
func (c *Client) getFromCache(key string) (bool, bool) {
	val, ok := c.cache.Load(key)
	if !ok {
		return false, false
	}
	entry := val.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.cache.Delete(key)
		c.cacheMu.Lock()
		c.cacheCount--
		c.cacheMu.Unlock()
		return false, false
	}
	return entry.allowed, true
}

// putInCache stores a decision in the cache.
func (c *Client) putInCache(key string, allowed bool) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	// Best-effort eviction: if over max size, delete expired entries first.
	if c.cacheCount >= int64(c.cacheMaxSize) {
		now := time.Now()
		evicted := 0
		c.cache.Range(func(k, v any) bool {
			entry := v.(*cacheEntry)
			if now.After(entry.expiresAt) {
				c.cache.Delete(k)
				evicted++
			}
			return evicted < 100
		})
		c.cacheCount -= int64(evicted)

		// If still over limit, evict the oldest entry.
		if c.cacheCount >= int64(c.cacheMaxSize) {
			var oldest time.Time
			var oldestKey any
			c.cache.Range(func(k, v any) bool {
				entry := v.(*cacheEntry)
				if oldest.IsZero() || entry.createdAt.Before(oldest) {
					oldest = entry.createdAt
					oldestKey = k
				}
				return true
			})
			if oldestKey != nil {
				c.cache.Delete(oldestKey)
				c.cacheCount--
			}
		}
	}

	now := time.Now()
	c.cache.Store(key, &cacheEntry{
		allowed:   allowed,
		expiresAt: now.Add(c.cacheTTL),
		createdAt: now,
	})
	c.cacheCount++
}

// isConnectionError determines if an error is a connection-level error
// (server unreachable, connection refused, timeout, etc.).
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	// HTTP-level errors are not connection errors.
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}

	// Marshal and decode failures are local, not connection errors.
	var cliErr *clientError
	if errors.As(err, &cliErr) {
		return false
	}

	// All other errors from http.Client.Do are connection errors
	// (DNS resolution, connection refused, TLS handshake, timeouts).
	return true
}

// Helper functions for env var parsing.

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	// Bare integers are seconds.
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultVal
}

func parseIntEnv(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return defaultVal
}
