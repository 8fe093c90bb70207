// Package httpclient provides the outbound HTTP client used for model
// provider calls: bounded retries with replayable bodies, JSON decoding,
// and trace context propagation.
package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kart-io/docchat/pkg/utils/json"
)

// retryBaseDelay scales the linear backoff between attempts.
const retryBaseDelay = 500 * time.Millisecond

// Client wraps http.Client with retry and decoding helpers.
type Client struct {
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a client with a per-request timeout. maxRetries counts
// additional attempts after the first one; 0 disables retry.
func NewClient(timeout time.Duration, maxRetries int) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// DoRequest executes the request, retrying network failures and 5xx
// responses with a linear backoff. Responses below 500 are returned to the
// caller unconsumed.
func (c *Client) DoRequest(req *http.Request) (*http.Response, error) {
	// Propagate the active span to the upstream service.
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))

	replay, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := waitRetry(req, attempt); err != nil {
				return nil, err
			}
		}
		if replay != nil {
			req.Body = replay()
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
		}
		_ = resp.Body.Close()
		lastErr = fmt.Errorf("server error, status code %d", resp.StatusCode)
	}
	return nil, lastErr
}

// DoRaw executes the request and returns the response body bytes. Statuses
// of 400 and above become errors carrying the body text.
func (c *Client) DoRaw(req *http.Request) ([]byte, error) {
	resp, err := c.DoRequest(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

// DoJSON executes the request and decodes the JSON response into v. A nil v
// discards the body after the status check.
func (c *Client) DoJSON(req *http.Request, v interface{}) error {
	raw, err := c.DoRaw(req)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// bufferBody reads the request body into memory so retries can replay it.
// Provider payloads are small enough to buffer.
func bufferBody(req *http.Request) (func() io.ReadCloser, error) {
	if req.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	_ = req.Body.Close()
	return func() io.ReadCloser {
		return io.NopCloser(bytes.NewReader(data))
	}, nil
}

// waitRetry sleeps before the given attempt, aborting early when the request
// context is done.
func waitRetry(req *http.Request, attempt int) error {
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-time.After(time.Duration(attempt) * retryBaseDelay):
		return nil
	}
}
