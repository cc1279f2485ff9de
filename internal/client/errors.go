package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/muurk/ppmsteg/internal/api"
)

// TypeNetwork marks failures that never produced an HTTP response
const TypeNetwork = "network"

// APIError is returned for every failed call. StatusCode is zero when the
// server could not be reached.
type APIError struct {
	StatusCode int    // HTTP status (0 for network errors)
	Type       string // Error type reported by the server, or TypeNetwork
	Message    string // Human-readable error message
	Err        error  // Underlying error (network errors only)
}

// Error implements the error interface
func (e *APIError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.StatusCode == 0:
		return e.Message
	default:
		return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Type, e.Message)
	}
}

// Unwrap returns the underlying error for error chain inspection
func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request could succeed
func (e *APIError) Retryable() bool {
	return e.Type == TypeNetwork || e.StatusCode >= http.StatusInternalServerError
}

func newNetworkError(message string, err error) *APIError {
	return &APIError{Type: TypeNetwork, Message: message, Err: err}
}

// IsRetryable checks if an error is worth retrying
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}

// IsType reports whether err is an APIError of the given api.Type* value
func IsType(err error, errType string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Type == errType
}

// GetTroubleshootingHint returns user-facing advice for a client error
func GetTroubleshootingHint(err error) []string {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return nil
	}

	switch apiErr.Type {
	case TypeNetwork:
		return []string{
			"Check that the server is running ('ppmsteg serve')",
			"Use 'ppmsteg scan' to find servers on the local network",
			"For a self-signed server pass --insecure",
		}
	case api.TypeTooLarge:
		return []string{"The server rejects uploads this large; raise max_upload_bytes on the server"}
	case api.TypeCapacity:
		return []string{"Use a larger image or a shorter message"}
	case api.TypeBadHeader:
		return []string{"The server accepts binary P6 images with a max color value of 255 or less"}
	case api.TypeTruncatedData, api.TypeNonASCIIDecode:
		return []string{"The image probably does not contain an embedded message"}
	default:
		return nil
	}
}
