package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/ppmsteg/internal/config"
	"github.com/muurk/ppmsteg/internal/discovery"
	"github.com/muurk/ppmsteg/internal/server"
	"github.com/muurk/ppmsteg/internal/ui"
	"github.com/muurk/ppmsteg/internal/version"
)

var errNoServers = errors.New("no ppmsteg servers found on the local network")

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ppmsteg HTTP and WebSocket server",
		Long: `Serve the encode, decode and inspect operations over HTTP and WebSocket.

Defaults come from the server section of the config file; flags override
them. The server announces itself over mDNS as _ppmsteg._tcp unless
--no-advertise is given, so clients can use --server auto.

TLS is enabled with --cert and --key, or with --self-signed for an
in-memory certificate. Clients of a self-signed server need --insecure.`,
		Example: `  # Plain HTTP on the default port
  ppmsteg serve

  # TLS with a self-signed certificate on a custom port
  ppmsteg serve --self-signed --port 8443

  # Your own certificate, without mDNS
  ppmsteg serve --cert fullchain.pem --key privkey.pem --no-advertise`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd)
		},
	}

	cmd.Flags().String("host", "", "Interface to listen on (empty = all interfaces)")
	cmd.Flags().Int("port", config.DefaultServerPort, "Server port")
	cmd.Flags().String("cert", "", "Path to TLS certificate file")
	cmd.Flags().String("key", "", "Path to TLS private key file")
	cmd.Flags().Bool("self-signed", false, "Serve TLS with a generated self-signed certificate")
	cmd.Flags().Bool("no-advertise", false, "Do not announce the server via mDNS")
	cmd.Flags().String("name", "", "mDNS instance name (default: \"ppmsteg on <hostname>\")")
	cmd.Flags().Int64("max-upload", config.DefaultMaxUploadBytes, "Largest accepted request body in bytes")

	return cmd
}

// serverConfig merges flags the user set over the saved server preferences
func (a *app) serverConfig(cmd *cobra.Command) *server.Config {
	cfg := server.ConfigFromPrefs(a.registry.Server)

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cert") {
		cfg.CertPath, _ = flags.GetString("cert")
	}
	if flags.Changed("key") {
		cfg.KeyPath, _ = flags.GetString("key")
	}
	if flags.Changed("self-signed") {
		cfg.SelfSigned, _ = flags.GetBool("self-signed")
	}
	if flags.Changed("no-advertise") {
		noAdvertise, _ := flags.GetBool("no-advertise")
		cfg.Advertise = !noAdvertise
	}
	if flags.Changed("name") {
		cfg.InstanceName, _ = flags.GetString("name")
	}
	if flags.Changed("max-upload") {
		cfg.MaxUploadBytes, _ = flags.GetInt64("max-upload")
	}

	// Serve logs at info unless a level was chosen
	if a.quiet {
		cfg.LogLevel = "info"
	}

	return cfg
}

func (a *app) runServe(cmd *cobra.Command) error {
	cfg := a.serverConfig(cmd)

	srv, err := server.New(cfg)
	if err != nil {
		return a.fail("Could not start server", err)
	}

	advertise := "no"
	if cfg.Advertise {
		advertise = discovery.ServiceType
	}

	a.out.PrintHeader("ppmsteg server", version.Full(),
		ui.Detail{Key: "Listen", Value: fmt.Sprintf("%s://%s:%d", srv.Scheme(), displayHost(cfg.Host), cfg.Port)},
		ui.Detail{Key: "mDNS", Value: advertise},
		ui.Detail{Key: "Max upload", Value: fmt.Sprintf("%d bytes", cfg.MaxUploadBytes)},
	)

	return srv.Start()
}

func displayHost(host string) string {
	if host == "" {
		return "0.0.0.0"
	}
	return host
}

// ---------------------------------------------------------------------------
// scan
// ---------------------------------------------------------------------------

func (a *app) newScanCmd() *cobra.Command {
	var timeout int

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Find ppmsteg servers on the local network",
		Long: `Browse for ppmsteg servers using mDNS/DNS-SD and list every server that
answers within the timeout, with the URL to pass to --server.`,
		Example: `  # Scan using the configured timeout
  ppmsteg scan

  # Longer scan for busy networks
  ppmsteg scan --timeout 15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("timeout") {
				timeout = a.registry.Preferences.DiscoverTimeout
			}
			return a.runScan(cmd.Context(), time.Duration(timeout)*time.Second)
		},
	}

	cmd.Flags().IntVar(&timeout, "timeout", config.DefaultDiscoverTimeout, "Scan timeout in seconds")

	return cmd
}

func (a *app) runScan(ctx context.Context, timeout time.Duration) error {
	a.out.Printf("Scanning for ppmsteg servers (timeout: %s)...\n\n", timeout)

	services, err := discovery.ScanForServers(ctx, timeout)
	if err != nil {
		return a.fail("Scan failed", err)
	}

	if len(services) == 0 {
		a.out.PrintWarning("No servers found")
		a.out.Println("Troubleshooting:")
		a.out.Println("  - Start a server with 'ppmsteg serve'")
		a.out.Println("  - Check that the server was not started with --no-advertise")
		a.out.Println("  - Multicast DNS may be blocked by a firewall or across subnets")
		a.out.Println("  - Try increasing --timeout")
		return nil
	}

	for _, svc := range services {
		details := []ui.Detail{
			{Key: "URL", Value: svc.BaseURL()},
			{Key: "Host", Value: svc.Hostname},
		}
		if v := svc.GetMetadata("version"); v != "" {
			details = append(details, ui.Detail{Key: "Version", Value: v})
		}
		a.out.PrintSuccess(svc.Instance, details...)
	}

	a.out.Println("Use 'ppmsteg decode --server <url> image.ppm' to decode on a server")
	return nil
}

// firstServer backs --server auto
func (a *app) firstServer(ctx context.Context) (*discovery.Service, error) {
	timeout := time.Duration(a.registry.Preferences.DiscoverTimeout) * time.Second

	services, err := discovery.ScanForServers(ctx, timeout)
	if err != nil {
		return nil, fmt.Errorf("server discovery failed: %w", err)
	}
	if len(services) == 0 {
		return nil, errNoServers
	}
	return services[0], nil
}
