// Package ui provides terminal UI components for the ppmsteg CLI.
//
// Output components render once and return a string:
//
//   - Header: banner with a title, subtitle and parameter lines
//   - Result: success, failure or warning box with details and troubleshooting tips
//   - RenderCapacityBar: how much of an image's capacity a message uses
//
// Printer writes these to a chosen writer. Interactive pieces read from the
// terminal:
//
//   - PromptMessage: Bubble Tea text input for the message to embed
//   - ConfirmOverwrite: y/N question before replacing an existing file
//
// # Logging Integration
//
// Logging is controlled via the PPMSTEG_LOG_LEVEL environment variable. When
// unset, zap logging is silent so the styled output is displayed cleanly.
package ui
