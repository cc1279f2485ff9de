package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/ppmsteg/internal/api"
	"github.com/muurk/ppmsteg/internal/logging"
	"github.com/muurk/ppmsteg/internal/ppm"
	"github.com/muurk/ppmsteg/internal/version"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 10 * time.Second
)

// Client talks to a ppmsteg server
type Client struct {
	// BaseURL is the server root (e.g., "https://192.168.4.16:8765")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay caps the exponential backoff
	MaxRetryDelay time.Duration

	// Insecure skips certificate verification on the websocket dialer.
	// SetInsecure applies the same to HTTPClient.
	Insecure bool
}

// New creates a client for baseURL with default settings
func New(baseURL string) *Client {
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// SetInsecure disables certificate verification, for servers using a
// self-signed certificate.
func (c *Client) SetInsecure(insecure bool) {
	c.Insecure = insecure
	c.HTTPClient.Transport = &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}, //nolint:gosec // opt-in for self-signed servers
	}
}

// Health checks that the server is up and returns its version
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	body, err := c.do(ctx, http.MethodGet, api.PathHealth, "", nil)
	if err != nil {
		return nil, err
	}
	var health api.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, newNetworkError("invalid health response", err)
	}
	return &health, nil
}

// Encode uploads image and message and returns the encoded image bytes
func (c *Client) Encode(ctx context.Context, image []byte, message string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField(api.FieldMessage, message); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	fw, err := mw.CreateFormFile(api.FieldImage, "image.ppm")
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	return c.do(ctx, http.MethodPost, api.PathEncode, mw.FormDataContentType(), buf.Bytes())
}

// Decode uploads image and returns the embedded message
func (c *Client) Decode(ctx context.Context, image []byte) (string, error) {
	body, err := c.do(ctx, http.MethodPost, api.PathDecode, ppm.MediaType, image)
	if err != nil {
		return "", err
	}
	var resp api.DecodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", newNetworkError("invalid decode response", err)
	}
	return resp.Message, nil
}

// Inspect uploads image and returns its header facts and capacity
func (c *Client) Inspect(ctx context.Context, image []byte) (*api.HeaderInfo, error) {
	body, err := c.do(ctx, http.MethodPost, api.PathInspect, ppm.MediaType, image)
	if err != nil {
		return nil, err
	}
	var info api.HeaderInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, newNetworkError("invalid inspect response", err)
	}
	return &info, nil
}

// do sends a request, retrying network failures and 5xx replies with
// exponential backoff.
func (c *Client) do(ctx context.Context, method, path, contentType string, payload []byte) ([]byte, error) {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			logging.Debug("Retrying request",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("delay", currentDelay),
				logging.ErrorField(lastErr),
			)

			select {
			case <-ctx.Done():
				return nil, newNetworkError("request cancelled", ctx.Err())
			case <-time.After(currentDelay):
			}

			currentDelay *= 2
			if currentDelay > c.MaxRetryDelay {
				currentDelay = c.MaxRetryDelay
			}
		}

		body, err := c.attempt(ctx, method, path, contentType, payload)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// attempt performs a single request
func (c *Client) attempt(ctx context.Context, method, path, contentType string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, &APIError{Type: api.TypeBadRequest, Message: "failed to create request", Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, newNetworkError(method+" "+path+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetworkError("failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorBody(resp.StatusCode, body)
	}
	return body, nil
}

// parseErrorBody turns a non-200 reply into an APIError, falling back to
// the raw body when it is not the JSON error shape.
func parseErrorBody(status int, body []byte) *APIError {
	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Type != "" {
		return &APIError{StatusCode: status, Type: e.Type, Message: e.Error}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	errType := api.TypeInternal
	if status < http.StatusInternalServerError {
		errType = api.TypeBadRequest
	}
	return &APIError{StatusCode: status, Type: errType, Message: msg}
}
