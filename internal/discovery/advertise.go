package discovery

import (
	"fmt"
	"os"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/ppmsteg/internal/logging"
	"github.com/muurk/ppmsteg/internal/version"
)

// DefaultTXT returns the TXT records a ppmsteg server publishes.
func DefaultTXT(scheme string) []string {
	return []string{
		"version=" + version.Version,
		"path=/api",
		"scheme=" + scheme,
	}
}

// InstanceName picks the advertised instance name. An empty name falls back
// to the hostname.
func InstanceName(name string) string {
	if name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "ppmsteg"
	}
	return "ppmsteg on " + host
}

// Advertise registers a ppmsteg service on all multicast interfaces.
// The caller must call Shutdown on the returned server.
func Advertise(instance string, port int, txt []string) (*zeroconf.Server, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port for advertisement: %d", port)
	}
	instance = InstanceName(instance)

	srv, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising via mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
		zap.Strings("txt", txt))

	return srv, nil
}
