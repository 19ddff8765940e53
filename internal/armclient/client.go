// Package armclient implements the ARM request pipeline (component A):
// URL/header construction, retry-on-transient-failure, and error shaping.
// Every other component that talks to Azure Resource Manager goes through
// a single *Client so correlation ids, retries, and error envelopes stay
// consistent across the server.
package armclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	baseURL               = "https://management.azure.com"
	defaultAPIVersion     = "2016-06-01"
	attemptTimeout        = 30 * time.Second
	maxAttempts           = 4 // 1 initial + 3 retries
)

// Client is the single chokepoint every ARM call goes through.
type Client struct {
	httpClient *http.Client
	buffers    *bufferPool

	// sleep is overridable in tests so retry-delay logic can be exercised
	// without actually blocking the test for seconds.
	sleep func(time.Duration)
}

// New returns a ready-to-use ARM pipeline client.
func New() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: attemptTimeout},
		buffers:    newBufferPool(),
		sleep:      time.Sleep,
	}
}

// UseTransportForTesting swaps the underlying http.RoundTripper and
// disables the real retry sleep, so other packages' tests can exercise a
// *Client against a fake ARM backend without a real listener or real wall
// clock delays.
func (c *Client) UseTransportForTesting(rt http.RoundTripper) {
	c.httpClient = &http.Client{Transport: rt}
	c.sleep = func(time.Duration) {}
}

// Options carries the per-call knobs Do accepts beyond
// method/path/token.
type Options struct {
	APIVersion string
	Query      map[string]string
	Body       interface{}
	UserAgent  string
}

// Do performs one logical ARM call, retrying transient failures under a
// single correlation id, and returns the decoded JSON body on success.
func (c *Client) Do(ctx context.Context, method, path, token string, opts Options) (map[string]interface{}, error) {
	apiVersion := opts.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	reqURL, err := buildURL(path, apiVersion, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("armclient: building request url: %w", err)
	}

	var bodyBytes []byte
	method = strings.ToUpper(method)
	if opts.Body != nil && (method == http.MethodPut || method == http.MethodPost) {
		bodyBytes, err = json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("armclient: encoding request body: %w", err)
		}
	}

	correlationID := uuid.NewString()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.waitBeforeRetry(ctx, attempt, lastErr); err != nil {
				return nil, err
			}
		}

		result, retryAfter, retryable, err := c.attempt(ctx, method, reqURL, token, correlationID, bodyBytes, opts.UserAgent)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		if retryAfter > 0 {
			lastErr = &retryAfterHint{after: retryAfter, wrapped: err}
		}
	}
	if hint, ok := lastErr.(*retryAfterHint); ok {
		return nil, hint.wrapped
	}
	return nil, lastErr
}

// retryAfterHint threads a server-suggested delay through to the next
// waitBeforeRetry call without changing the error surfaced to callers.
type retryAfterHint struct {
	after   time.Duration
	wrapped error
}

func (r *retryAfterHint) Error() string { return r.wrapped.Error() }
func (r *retryAfterHint) Unwrap() error { return r.wrapped }

func (c *Client) waitBeforeRetry(ctx context.Context, attempt int, lastErr error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	delay := backoffDelay(attempt)
	if hint, ok := lastErr.(*retryAfterHint); ok {
		delay = hint.after
	}
	c.sleep(delay)
	return ctx.Err()
}

// backoffDelay computes 2^attempt seconds plus uniform jitter in [0,1).
func backoffDelay(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	jitter := time.Duration(rand.Float64() * float64(time.Second))
	return base + jitter
}

// attempt performs exactly one HTTP round trip. It returns the decoded body
// on success, or an error plus whether that error is retryable and any
// Retry-After hint the server supplied.
func (c *Client) attempt(ctx context.Context, method, reqURL, token, correlationID string, body []byte, userAgent string) (map[string]interface{}, time.Duration, bool, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, 0, false, fmt.Errorf("armclient: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-ms-correlation-request-id", correlationID)
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, true, &TransportError{Cause: err}
	}
	defer resp.Body.Close()

	buf := c.buffers.get()
	defer c.buffers.put(buf)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return nil, 0, true, &TransportError{Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		decoded, err := decodeBody(buf.Bytes())
		if err != nil {
			return nil, 0, false, fmt.Errorf("armclient: decoding response: %w", err)
		}
		return decoded, 0, false, nil
	}

	armErr := shapeError(resp.StatusCode, buf.Bytes())
	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
	return nil, retryAfter, retryable, armErr
}

func decodeBody(raw []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]interface{}{}, nil
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return nil, err
	}
	if decoded == nil {
		decoded = map[string]interface{}{}
	}
	return decoded, nil
}

func shapeError(statusCode int, raw []byte) *ArmError {
	var envelope armErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Code != "" {
		return &ArmError{Code: envelope.Error.Code, Message: envelope.Error.Message, StatusCode: statusCode}
	}
	return &ArmError{
		Code:       "UnknownError",
		Message:    fmt.Sprintf("ARM request failed with status %d", statusCode),
		StatusCode: statusCode,
	}
}

// parseRetryAfter parses a Retry-After header expressed in seconds. A
// missing or unparseable header yields zero, signalling "use backoff
// instead".
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func buildURL(path, apiVersion string, query map[string]string) (string, error) {
	u, err := url.Parse(baseURL + path)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("api-version", apiVersion)
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
