// Package config provides user configuration management for ppmsteg.
//
// This package manages a YAML configuration file holding application
// preferences, defaults for the network server, and metadata about carrier
// images (dimensions, capacity, when a message was last embedded). The file
// follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/ppmsteg/config.yaml or $HOME/.config/ppmsteg/config.yaml
//   - macOS: $HOME/.config/ppmsteg/config.yaml
//   - Windows: %LOCALAPPDATA%\ppmsteg\config.yaml
//
// # Security
//
// IMPORTANT: embedded message text is never written to the configuration
// file. Only the message length is recorded.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.RecordImage(path, hdr.Width, hdr.Height, hdr.MaxColorValue, capacity)
//	registry.RecordEncode(path, output, len(message))
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Precedence
//
// Command-line flags override values from the file, which override the
// built-in defaults.
//
// # Thread Safety
//
// The global registry is loaded once with sync.Once.
// File writes are protected by a mutex and are atomic (temp file + rename).
package config
