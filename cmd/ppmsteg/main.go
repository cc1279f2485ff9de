// Ppmsteg hides ASCII text in the least significant bits of binary PPM images
// and recovers it again.
//
// It works on local files, against a remote ppmsteg server, and can run that
// server itself. Servers announce themselves over mDNS so 'ppmsteg scan'
// finds them on the local network.
//
// Usage:
//
//	ppmsteg [command] [flags]
//
// See 'ppmsteg --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/ppmsteg/internal/client"
	"github.com/muurk/ppmsteg/internal/config"
	"github.com/muurk/ppmsteg/internal/logging"
	"github.com/muurk/ppmsteg/internal/ppm"
	"github.com/muurk/ppmsteg/internal/steg"
	"github.com/muurk/ppmsteg/internal/ui"
	"github.com/muurk/ppmsteg/internal/version"
)

// errReported marks errors that a command has already rendered as an error box
var errReported = errors.New("error reported")

func main() {
	err := newRootCmd().Execute()
	logging.Sync()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// app carries state shared by every command in one invocation
type app struct {
	logLevel   string
	configPath string
	serverURL  string
	insecure   bool

	// quiet is true when no log level was chosen anywhere
	quiet bool

	registry *config.Registry
	out      *ui.Printer
	errOut   *ui.Printer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "ppmsteg",
		Short: "Hide text in PPM images",
		Long: `Embed ASCII messages in binary PPM (P6) images and extract them again.

Each message byte is spread over the least significant bits of eight pixel
bytes and a NUL byte marks the end of the message, so the image looks the
same while carrying the text.

Commands work on local files by default. Pass --server to send the work to
a ppmsteg server started with 'ppmsteg serve'.`,
		Version:           version.Full(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); default from config or $"+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file (default: OS config directory)")

	rootCmd.AddCommand(
		a.newEncodeCmd(),
		a.newDecodeCmd(),
		a.newInspectCmd(),
		a.newCapacityCmd(),
		a.newConvertCmd(),
		a.newServeCmd(),
		a.newScanCmd(),
		a.newConfigCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// setup loads the config file and initializes logging before any command runs
func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.out = ui.NewPrinter(cmd.OutOrStdout())
	a.errOut = ui.NewPrinter(cmd.ErrOrStderr())

	registry, err := a.loadRegistry()
	if err != nil {
		a.errOut.PrintWarning("Ignoring config file",
			ui.Detail{Key: "Reason", Value: err.Error()},
		)
		registry = config.NewRegistry()
	}
	a.registry = registry

	level := a.logLevel
	if level == "" {
		level = registry.Preferences.LogLevel
	}
	a.quiet = level == "" && os.Getenv(logging.LogLevelEnvVar) == ""

	if err := logging.Initialize(level); err != nil {
		return err
	}

	logging.Debug("ppmsteg starting")
	return nil
}

func (a *app) loadRegistry() (*config.Registry, error) {
	if a.configPath != "" {
		return config.LoadRegistryFrom(a.configPath)
	}
	return config.LoadRegistry()
}

func (a *app) resolvedConfigPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.GetConfigPath()
}

// saveRegistry persists image metadata. Failing to save is logged, not fatal.
func (a *app) saveRegistry() {
	var err error
	if a.configPath != "" {
		err = a.registry.SaveTo(a.configPath)
	} else {
		err = a.registry.Save()
	}
	if err != nil {
		logging.Warn("Failed to save config", logging.ErrorField(err))
	}
}

// fail renders err as an error box on stderr and returns it marked as reported
func (a *app) fail(title string, err error) error {
	a.errOut.PrintError(title, err, troubleshooting(err))
	return fmt.Errorf("%w: %w", errReported, err)
}

// troubleshooting picks hints from whichever layer produced err
func troubleshooting(err error) []string {
	hints := []func(error) []string{
		client.GetTroubleshootingHint,
		ppm.GetTroubleshootingHint,
		steg.GetTroubleshootingHint,
	}
	for _, hint := range hints {
		if tips := hint(err); len(tips) > 0 {
			return tips
		}
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ppmsteg %s\n", version.Full())
		},
	}
}
