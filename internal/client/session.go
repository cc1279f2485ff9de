package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/muurk/ppmsteg/internal/api"
	"github.com/muurk/ppmsteg/internal/version"
)

// errBadScheme is returned when a websocket URL cannot be derived
var errBadScheme = errors.New("base URL must start with http:// or https://")

// Session is a websocket connection for sending many requests without a
// new HTTP round trip each time. It is not safe for concurrent use.
type Session struct {
	conn   *websocket.Conn
	nextID atomic.Uint64
}

// wsURL maps http(s)://host to ws(s)://host/ws
func (c *Client) wsURL() (string, error) {
	switch {
	case strings.HasPrefix(c.BaseURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.BaseURL, "https://") + api.PathWS, nil
	case strings.HasPrefix(c.BaseURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.BaseURL, "http://") + api.PathWS, nil
	default:
		return "", errBadScheme
	}
}

// Dial opens a websocket session to the server
func (c *Client) Dial(ctx context.Context) (*Session, error) {
	url, err := c.wsURL()
	if err != nil {
		return nil, err
	}

	dialer := *websocket.DefaultDialer
	if c.Insecure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed servers
	}

	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, &APIError{StatusCode: resp.StatusCode, Type: api.TypeBadRequest, Message: "websocket upgrade refused"}
		}
		return nil, newNetworkError("websocket dial failed", err)
	}

	return &Session{conn: conn}, nil
}

// Do sends one request and waits for its response. A response with OK false
// is returned as an *APIError carrying the server's error type.
func (s *Session) Do(ctx context.Context, req api.WSRequest) (*api.WSResponse, error) {
	if req.ID == "" {
		req.ID = strconv.FormatUint(s.nextID.Add(1), 10)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
		_ = s.conn.SetReadDeadline(deadline)
	}

	if err := s.conn.WriteJSON(req); err != nil {
		return nil, newNetworkError("websocket write failed", err)
	}

	var resp api.WSResponse
	if err := s.conn.ReadJSON(&resp); err != nil {
		return nil, newNetworkError("websocket read failed", err)
	}
	if resp.ID != req.ID {
		return nil, newNetworkError(fmt.Sprintf("response id %q does not match request %q", resp.ID, req.ID), nil)
	}
	if !resp.OK {
		return &resp, &APIError{Type: resp.ErrorType, Message: resp.Error}
	}
	return &resp, nil
}

// Decode is a convenience wrapper for a decode request
func (s *Session) Decode(ctx context.Context, image []byte) (string, error) {
	resp, err := s.Do(ctx, api.WSRequest{Op: api.OpDecode, Image: image})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Inspect is a convenience wrapper for an inspect request
func (s *Session) Inspect(ctx context.Context, image []byte) (*api.HeaderInfo, error) {
	resp, err := s.Do(ctx, api.WSRequest{Op: api.OpInspect, Image: image})
	if err != nil {
		return nil, err
	}
	return resp.Header, nil
}

// Close sends a close frame and closes the connection
func (s *Session) Close() error {
	_ = s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
