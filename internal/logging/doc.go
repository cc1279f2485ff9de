// Package logging provides structured logging for ppmsteg.
//
// This package wraps a global zap logger with convenience functions used by
// the parser, the codec, the CLI and the network server.
//
// # Log Levels
//
//   - Debug: header offsets, codec byte counts, hex dumps
//   - Info: server lifecycle, HTTP requests, WebSocket traffic
//   - Warn: rejected requests, mDNS problems
//   - Error: startup failures
//
// # Configuration
//
// The CLI is silent by default. Set PPMSTEG_LOG_LEVEL (or pass --log-level)
// to "debug", "info", "warn" or "error" to enable output on stderr:
//
//	if err := logging.Initialize(level); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Structured Logging
//
//	logging.Info("Encoded image",
//	    zap.String("path", path),
//	    zap.Int("message_length", len(msg)),
//	)
//
// Message text is never logged, only its length.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has
// returned.
package logging
