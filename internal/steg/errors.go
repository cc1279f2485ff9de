package steg

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of codec error that occurred
type ErrorType int

const (
	// ErrTypeCapacity indicates the message plus terminator does not fit
	ErrTypeCapacity ErrorType = iota
	// ErrTypeEmptyMessage indicates an empty message was given to Encode
	ErrTypeEmptyMessage
	// ErrTypeInvalidMessage indicates a non-ASCII or NUL byte in the message
	ErrTypeInvalidMessage
	// ErrTypeInvalidOffset indicates a start offset outside the buffer
	ErrTypeInvalidOffset
	// ErrTypeTruncatedData indicates pixel data ran out before a terminator
	ErrTypeTruncatedData
	// ErrTypeNonASCIIDecode indicates a decoded value above 127
	ErrTypeNonASCIIDecode
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeCapacity:
		return "Capacity Error"
	case ErrTypeEmptyMessage:
		return "Empty Message"
	case ErrTypeInvalidMessage:
		return "Invalid Message"
	case ErrTypeInvalidOffset:
		return "Invalid Offset"
	case ErrTypeTruncatedData:
		return "Truncated Data"
	case ErrTypeNonASCIIDecode:
		return "Non-ASCII Decode"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// CodecError is returned by Encode, Decode and the image helpers
type CodecError struct {
	Type      ErrorType // Category of error
	Message   string    // Human-readable error message
	Offset    int       // Byte offset involved (-1 if not applicable)
	Required  int       // Bytes needed (capacity errors)
	Available int       // Bytes available (capacity errors)
	Value     byte      // Offending byte value (invalid message / non-ASCII decode)
}

// Error implements the error interface
func (e *CodecError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: %s (at byte %d)", e.Type, e.Message, e.Offset)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func newCapacityError(required, available int) *CodecError {
	return &CodecError{
		Type:      ErrTypeCapacity,
		Message:   fmt.Sprintf("message needs %d pixel bytes, only %d available", required, available),
		Offset:    -1,
		Required:  required,
		Available: available,
	}
}

func isType(err error, t ErrorType) bool {
	var codecErr *CodecError
	if errors.As(err, &codecErr) {
		return codecErr.Type == t
	}
	return false
}

// IsCapacityError checks if an error is a capacity error
func IsCapacityError(err error) bool {
	return isType(err, ErrTypeCapacity)
}

// IsEmptyMessageError checks if an error is an empty message error
func IsEmptyMessageError(err error) bool {
	return isType(err, ErrTypeEmptyMessage)
}

// IsInvalidMessageError checks if an error is an invalid message error
func IsInvalidMessageError(err error) bool {
	return isType(err, ErrTypeInvalidMessage)
}

// IsTruncatedDataError checks if an error is a truncated data error
func IsTruncatedDataError(err error) bool {
	return isType(err, ErrTypeTruncatedData)
}

// IsNonASCIIDecodeError checks if an error is a non-ASCII decode error
func IsNonASCIIDecodeError(err error) bool {
	return isType(err, ErrTypeNonASCIIDecode)
}

// GetTroubleshootingHint returns user-facing advice for a codec error
func GetTroubleshootingHint(err error) []string {
	var codecErr *CodecError
	if !errors.As(err, &codecErr) {
		return nil
	}

	switch codecErr.Type {
	case ErrTypeCapacity:
		return []string{
			"Each message character needs 8 pixel bytes, plus 8 for the terminator",
			fmt.Sprintf("This image can hold at most %d characters", max(codecErr.Available/BytesPerChar-1, 0)),
			"Use a larger image or a shorter message",
		}
	case ErrTypeEmptyMessage:
		return []string{"Provide a message with --message or on stdin"}
	case ErrTypeInvalidMessage:
		return []string{
			"Only ASCII characters (0x01-0x7f) can be embedded",
			"The NUL character is reserved as the end-of-message marker",
		}
	case ErrTypeTruncatedData, ErrTypeNonASCIIDecode:
		return []string{
			"The image probably does not contain an embedded message",
			"Re-encoding or converting an image destroys embedded data",
		}
	default:
		return nil
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var codecErr *CodecError
	if !errors.As(err, &codecErr) {
		return err.Error()
	}

	switch codecErr.Type {
	case ErrTypeCapacity:
		return "Message does not fit in this image"
	case ErrTypeEmptyMessage:
		return "Message is empty"
	case ErrTypeInvalidMessage:
		return "Message contains characters that cannot be embedded"
	case ErrTypeTruncatedData, ErrTypeNonASCIIDecode:
		return "No embedded message found"
	default:
		return codecErr.Message
	}
}
