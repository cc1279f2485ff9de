package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/ppmsteg/internal/api"
	"github.com/muurk/ppmsteg/internal/server"
)

var coverImage = []byte("P6\n4 4\n255\n" + strings.Repeat("\x80", 48))

// newBackend serves the real ppmsteg handler, optionally failing the first
// failures requests with 503. hits counts every request.
func newBackend(t *testing.T, failures int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	srv, err := server.New(&server.Config{})
	require.NoError(t, err)
	handler := srv.Handler()

	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= failures {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func newTestClient(baseURL string) *Client {
	c := New(baseURL)
	c.RetryDelay = time.Millisecond
	c.MaxRetryDelay = 5 * time.Millisecond
	return c
}

func TestNew(t *testing.T) {
	c := New("http://192.168.4.16:8765/")

	assert.Equal(t, "http://192.168.4.16:8765", c.BaseURL)
	assert.Equal(t, DefaultMaxRetries, c.MaxRetries)
	assert.Equal(t, DefaultRetryDelay, c.RetryDelay)
	require.NotNil(t, c.HTTPClient)
	assert.Equal(t, DefaultTimeout, c.HTTPClient.Timeout)

	c.SetTimeout(time.Second)
	c.SetRetry(1, time.Millisecond)
	assert.Equal(t, time.Second, c.HTTPClient.Timeout)
	assert.Equal(t, 1, c.MaxRetries)
}

func TestClient_RoundTrip(t *testing.T) {
	ts, _ := newBackend(t, 0)
	c := newTestClient(ts.URL)
	ctx := context.Background()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	info, err := c.Inspect(ctx, coverImage)
	require.NoError(t, err)
	assert.Equal(t, 5, info.Capacity)
	assert.Equal(t, 11, info.DataOffset)

	encoded, err := c.Encode(ctx, coverImage, "howdy")
	require.NoError(t, err)
	assert.Len(t, encoded, len(coverImage))

	msg, err := c.Decode(ctx, encoded)
	require.NoError(t, err)
	assert.Equal(t, "howdy", msg)
}

func TestClient_CodecErrorIsNotRetried(t *testing.T) {
	ts, hits := newBackend(t, 0)
	c := newTestClient(ts.URL)

	_, err := c.Encode(context.Background(), coverImage, "far too long")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, api.TypeCapacity, apiErr.Type)
	assert.False(t, IsRetryable(err))
	assert.True(t, IsType(err, api.TypeCapacity))
	assert.Equal(t, int32(1), hits.Load())
	assert.NotEmpty(t, GetTroubleshootingHint(err))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	ts, hits := newBackend(t, 2)
	c := newTestClient(ts.URL)

	msg, err := c.Decode(context.Background(), mustEncode(t, ts.URL, "retry"))
	require.NoError(t, err)
	assert.Equal(t, "retry", msg)
	// two failures, then the encode and decode calls
	assert.Equal(t, int32(4), hits.Load())
}

func TestClient_RetriesExhausted(t *testing.T) {
	ts, hits := newBackend(t, 100)
	c := newTestClient(ts.URL)
	c.MaxRetries = 2

	_, err := c.Inspect(context.Background(), coverImage)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "warming up", apiErr.Message)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := newTestClient(url)
	c.MaxRetries = 1

	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, IsType(err, TypeNetwork))
	assert.True(t, IsRetryable(err))
}

func TestClient_ContextCancelledDuringBackoff(t *testing.T) {
	ts, _ := newBackend(t, 100)
	c := New(ts.URL)
	c.RetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Health(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestParseErrorBody(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType string
		wantMsg  string
	}{
		{"json error", 422, `{"error":"Bad Header: bad magic number","type":"bad_header"}`, api.TypeBadHeader, "Bad Header: bad magic number"},
		{"plain text 4xx", 404, "404 page not found\n", api.TypeBadRequest, "404 page not found"},
		{"empty 5xx", 502, "", api.TypeInternal, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseErrorBody(tt.status, []byte(tt.body))
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.wantMsg, err.Message)
		})
	}
}

func TestSession(t *testing.T) {
	ts, _ := newBackend(t, 0)
	c := newTestClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := c.Dial(ctx)
	require.NoError(t, err)
	defer sess.Close()

	resp, err := sess.Do(ctx, api.WSRequest{Op: api.OpEncode, Message: "ws", Image: coverImage})
	require.NoError(t, err)
	assert.Equal(t, "1", resp.ID)
	require.NotEmpty(t, resp.Image)

	msg, err := sess.Decode(ctx, resp.Image)
	require.NoError(t, err)
	assert.Equal(t, "ws", msg)

	info, err := sess.Inspect(ctx, coverImage)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), info.Width)

	_, err = sess.Decode(ctx, []byte("P6 1 1 0 "))
	assert.True(t, IsType(err, api.TypeBadHeader), "err = %v", err)
	assert.False(t, IsRetryable(err))
}

func TestWSURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{"http://host:8765", "ws://host:8765/ws", false},
		{"https://host:8765", "wss://host:8765/ws", false},
		{"host:8765", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := New(tt.base).wsURL()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func mustEncode(t *testing.T, baseURL, message string) []byte {
	t.Helper()
	out, err := newTestClient(baseURL).Encode(context.Background(), coverImage, message)
	require.NoError(t, err)
	return out
}
