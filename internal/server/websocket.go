package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/ppmsteg/internal/api"
	"github.com/muurk/ppmsteg/internal/logging"
	"github.com/muurk/ppmsteg/internal/ppm"
	"github.com/muurk/ppmsteg/internal/steg"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Room for the JSON envelope around a base64 image
	envelopeSlack = 64 << 10
)

// handleWebSocket upgrades the request and serves JSON requests until the
// peer goes away. Requests on one connection are answered in order.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wg.Add(1)
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		logging.Debug("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			logging.ErrorField(err),
		)
		return
	}

	remoteAddr := r.RemoteAddr
	s.addWSConn(remoteAddr, conn)

	defer func() {
		_ = conn.Close()
		s.removeWSConn(remoteAddr)
		logging.LogConnection(remoteAddr, "websocket_closed")
	}()

	logging.LogConnection(remoteAddr, "websocket_upgraded")

	// base64 inflates by 4/3
	conn.SetReadLimit(s.config.MaxUploadBytes/3*4 + envelopeSlack)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	go pingLoop(conn, remoteAddr, stop)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Connection closed or error reading message",
					zap.String("remote_addr", remoteAddr),
					logging.ErrorField(err),
				)
			}
			return
		}

		logging.LogWebSocketMessage(remoteAddr, "received", messageType, data)

		resp := s.processWSMessage(data)

		out, err := json.Marshal(resp)
		if err != nil {
			logging.Error("Failed to marshal websocket response", logging.ErrorField(err))
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			logging.Info("Failed to send websocket response",
				zap.String("remote_addr", remoteAddr),
				logging.ErrorField(err),
			)
			return
		}
		logging.LogWebSocketMessage(remoteAddr, "sent", websocket.TextMessage, out)
	}
}

// pingLoop keeps the connection alive until stop is closed
func pingLoop(conn *websocket.Conn, remoteAddr string, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logging.Debug("Ping failed",
					zap.String("remote_addr", remoteAddr),
					logging.ErrorField(err),
				)
				return
			}
		}
	}
}

// processWSMessage turns one request frame into its response
func (s *Server) processWSMessage(data []byte) *api.WSResponse {
	var req api.WSRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return wsError(&req, api.BadRequest("invalid JSON request", err))
	}

	resp := &api.WSResponse{ID: req.ID, Op: req.Op}

	if req.Op != api.OpEncode && req.Op != api.OpDecode && req.Op != api.OpInspect {
		return wsError(&req, api.BadRequest(fmt.Sprintf("unknown op %q", req.Op), nil))
	}
	if len(req.Image) == 0 {
		return wsError(&req, api.BadRequest("missing image", nil))
	}
	if int64(len(req.Image)) > s.config.MaxUploadBytes {
		return wsError(&req, &http.MaxBytesError{Limit: s.config.MaxUploadBytes})
	}

	img, err := ppm.DecodeBytes(req.Image)
	if err != nil {
		return wsError(&req, err)
	}

	switch req.Op {
	case api.OpEncode:
		out, err := steg.EncodeImage(img, req.Message)
		if err != nil {
			return wsError(&req, err)
		}
		resp.Image = out.Bytes()
		resp.Header = api.DescribeImage(out)

	case api.OpDecode:
		message, err := steg.DecodeImage(img)
		if err != nil {
			return wsError(&req, err)
		}
		resp.Message = message

	case api.OpInspect:
		resp.Header = api.DescribeImage(img)
	}

	resp.OK = true
	return resp
}

func wsError(req *api.WSRequest, err error) *api.WSResponse {
	errType, _ := api.Classify(err)
	return &api.WSResponse{
		ID:        req.ID,
		Op:        req.Op,
		OK:        false,
		Error:     err.Error(),
		ErrorType: errType,
	}
}
