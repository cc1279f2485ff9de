package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/ppmsteg/internal/config"
	"github.com/muurk/ppmsteg/internal/discovery"
	"github.com/muurk/ppmsteg/internal/logging"
)

// ShutdownTimeout bounds how long Shutdown waits for in-flight requests
const ShutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Host           string
	Port           int
	CertPath       string // Path to certificate file (optional)
	KeyPath        string // Path to private key file (optional)
	SelfSigned     bool   // If true and no files are given, serve TLS with an in-memory self-signed certificate
	Advertise      bool   // Announce the server via mDNS
	InstanceName   string // mDNS instance name (empty = hostname based)
	MaxUploadBytes int64  // Largest accepted request body
	LogLevel       string // Overrides the global logger when non-empty
}

// ConfigFromPrefs builds a Config from the saved server preferences.
func ConfigFromPrefs(p *config.ServerPrefs) *Config {
	if p == nil {
		return &Config{Port: config.DefaultServerPort, MaxUploadBytes: config.DefaultMaxUploadBytes}
	}
	return &Config{
		Host:           p.Host,
		Port:           p.Port,
		CertPath:       p.CertPath,
		KeyPath:        p.KeyPath,
		SelfSigned:     p.SelfSigned,
		Advertise:      p.Advertise,
		InstanceName:   p.InstanceName,
		MaxUploadBytes: p.MaxUploadBytes,
	}
}

// Server serves the ppmsteg HTTP and WebSocket API
type Server struct {
	config     *Config
	tlsConfig  *tls.Config
	httpServer *http.Server
	listener   net.Listener
	mdns       *zeroconf.Server
	upgrader   websocket.Upgrader

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]net.Conn
	wsConns     map[string]*websocket.Conn
}

// New creates a new Server instance
func New(cfg *Config) (*Server, error) {
	if cfg.LogLevel != "" {
		if err := logging.Initialize(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if (cfg.CertPath == "") != (cfg.KeyPath == "") {
		return nil, fmt.Errorf("both a certificate and a key are required for TLS")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = config.DefaultMaxUploadBytes
	}

	var tlsConfig *tls.Config
	var err error

	switch {
	case cfg.CertPath != "":
		tlsConfig, err = NewTLSConfig(cfg.CertPath, cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	case cfg.SelfSigned:
		logging.Info("Generating self-signed server certificate")
		tlsConfig, err = NewSelfSignedTLSConfig(selfSignedHosts(cfg.Host))
		if err != nil {
			return nil, fmt.Errorf("failed to generate certificate: %w", err)
		}
	}

	s := &Server{
		config:      cfg,
		tlsConfig:   tlsConfig,
		activeConns: make(map[string]net.Conn),
		wsConns:     make(map[string]*websocket.Conn),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		ConnState:         s.trackConn,
		ErrorLog:          zap.NewStdLog(logging.GetLogger()),
	}

	return s, nil
}

// Scheme returns "https" when TLS is configured and "http" otherwise
func (s *Server) Scheme() string {
	if s.tlsConfig != nil {
		return "https"
	}
	return "http"
}

// Listen binds the listening socket. A zero port picks a free one.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	s.listener = listener

	fields := []zap.Field{
		zap.String("addr", listener.Addr().String()),
		zap.String("scheme", s.Scheme()),
		zap.Int64("max_upload_bytes", s.config.MaxUploadBytes),
	}
	if s.tlsConfig != nil {
		fields = append(fields, zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
	}
	logging.Info("Server listening for connections", fields...)

	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve handles connections until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	if s.config.Advertise {
		port := s.listener.Addr().(*net.TCPAddr).Port
		mdns, err := discovery.Advertise(s.config.InstanceName, port, discovery.DefaultTXT(s.Scheme()))
		if err != nil {
			// The API still works without advertisement
			logging.Warn("mDNS advertisement failed", logging.ErrorField(err))
		} else {
			s.mdns = mdns
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown requested, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Start starts the server and blocks until SIGINT/SIGTERM or a fatal error
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Serve(ctx)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if s.mdns != nil {
		s.mdns.Shutdown()
		s.mdns = nil
	}

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		logging.Warn("Shutdown timeout, forcing close", logging.ErrorField(err))
		_ = s.httpServer.Close()
	}

	// Hijacked websocket connections are not closed by http.Server
	s.mu.Lock()
	for addr, conn := range s.wsConns {
		logging.Info("Closing websocket connection", zap.String("remote_addr", addr))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, abandoning websocket handlers")
	}

	logging.Sync()

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// GetActiveConnections returns the number of open HTTP and websocket connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns) + len(s.wsConns)
}

func (s *Server) trackConn(conn net.Conn, state http.ConnState) {
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch state {
	case http.StateNew:
		s.activeConns[remoteAddr] = conn
		logging.LogConnection(remoteAddr, "connection_accepted")
	case http.StateHijacked:
		delete(s.activeConns, remoteAddr)
	case http.StateClosed:
		delete(s.activeConns, remoteAddr)
		logging.LogConnection(remoteAddr, "connection_closed")
	}
}

func (s *Server) addWSConn(remoteAddr string, conn *websocket.Conn) {
	s.mu.Lock()
	s.wsConns[remoteAddr] = conn
	s.mu.Unlock()
}

func (s *Server) removeWSConn(remoteAddr string) {
	s.mu.Lock()
	delete(s.wsConns, remoteAddr)
	s.mu.Unlock()
}

// selfSignedHosts lists the names a generated certificate covers.
func selfSignedHosts(host string) []string {
	hosts := []string{"localhost", "127.0.0.1", "::1"}
	if name, err := os.Hostname(); err == nil && name != "" {
		hosts = append(hosts, name, name+".local")
	}
	if host != "" && host != "0.0.0.0" && host != "::" {
		hosts = append(hosts, host)
	}
	return hosts
}
