package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service represents a ppmsteg server found on the network
type Service struct {
	// Instance is the advertised instance name (e.g., "ppmsteg on studio")
	Instance string

	// Hostname is the mDNS hostname (e.g., "studio.local.")
	Hostname string

	// IP is the address to connect to, IPv4 when one was offered
	IP string

	// Port is the HTTP(S) port
	Port int

	// Metadata contains the TXT record data.
	// Common fields: "version=1.0.0", "path=/api", "scheme=https"
	Metadata map[string]string

	// DiscoveredAt is when the server answered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the service
func (s *Service) String() string {
	return fmt.Sprintf("%s (%s) at %s", s.Instance, s.Hostname, s.Address())
}

// Address returns host:port, bracketing IPv6 addresses
func (s *Service) Address() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// BaseURL returns the base URL for the service. The scheme comes from the
// TXT record and defaults to http.
func (s *Service) BaseURL() string {
	scheme := s.GetMetadata("scheme")
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, s.Address())
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *Service) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}
