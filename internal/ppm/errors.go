package ppm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of a PPM error
type ErrorType int

const (
	// ErrTypeBadHeader indicates the header bytes do not follow the P6 grammar
	ErrTypeBadHeader ErrorType = iota
	// ErrTypeBadFile indicates the source could not be opened or read
	ErrTypeBadFile
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeBadHeader:
		return "Bad Header"
	case ErrTypeBadFile:
		return "Bad File"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// HeaderError is returned by every parsing and loading function in this package.
type HeaderError struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	Offset  int       // Byte offset where the problem was detected (-1 if not applicable)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *HeaderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Type.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " (at byte %d)", e.Offset)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *HeaderError) Unwrap() error {
	return e.Err
}

func newBadHeader(offset int, format string, args ...interface{}) *HeaderError {
	return &HeaderError{
		Type:    ErrTypeBadHeader,
		Message: fmt.Sprintf(format, args...),
		Offset:  offset,
	}
}

func newBadFile(message string, err error) *HeaderError {
	return &HeaderError{
		Type:    ErrTypeBadFile,
		Message: message,
		Offset:  -1,
		Err:     err,
	}
}

// IsBadHeader reports whether err is a malformed-header error
func IsBadHeader(err error) bool {
	var hdrErr *HeaderError
	if errors.As(err, &hdrErr) {
		return hdrErr.Type == ErrTypeBadHeader
	}
	return false
}

// IsBadFile reports whether err is an unreadable-source error
func IsBadFile(err error) bool {
	var hdrErr *HeaderError
	if errors.As(err, &hdrErr) {
		return hdrErr.Type == ErrTypeBadFile
	}
	return false
}

// GetTroubleshootingHint returns user-facing advice for a PPM error
func GetTroubleshootingHint(err error) []string {
	var hdrErr *HeaderError
	if !errors.As(err, &hdrErr) {
		return nil
	}

	switch hdrErr.Type {
	case ErrTypeBadFile:
		return []string{
			"Check that the path exists and is readable",
			"Make sure the file is not still being written",
		}
	default:
		return []string{
			"Only binary PPM images (magic number P6) are supported",
			"Header comments (# ...) are not supported",
			"The max color value must be between 1 and 255",
			"Convert other formats first, e.g. 'magick in.png -depth 8 out.ppm'",
		}
	}
}
