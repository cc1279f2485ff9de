package api

import (
	"errors"
	"net/http"

	"github.com/muurk/ppmsteg/internal/ppm"
	"github.com/muurk/ppmsteg/internal/steg"
)

// Error type strings carried in ErrorResponse.Type and WSResponse.ErrorType.
const (
	TypeBadHeader      = "bad_header"
	TypeBadFile        = "bad_file"
	TypeCapacity       = "capacity"
	TypeEmptyMessage   = "empty_message"
	TypeInvalidMessage = "invalid_message"
	TypeInvalidOffset  = "invalid_offset"
	TypeTruncatedData  = "truncated_data"
	TypeNonASCIIDecode = "non_ascii_decode"
	TypeBadRequest     = "bad_request"
	TypeTooLarge       = "too_large"
	TypeMethod         = "method_not_allowed"
	TypeInternal       = "internal"
)

// Classify maps an error from ppm, steg or request handling onto its wire
// type and HTTP status.
func Classify(err error) (string, int) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return TypeTooLarge, http.StatusRequestEntityTooLarge
	}

	var headerErr *ppm.HeaderError
	if errors.As(err, &headerErr) {
		if headerErr.Type == ppm.ErrTypeBadHeader {
			return TypeBadHeader, http.StatusUnprocessableEntity
		}
		return TypeBadFile, http.StatusBadRequest
	}

	var codecErr *steg.CodecError
	if errors.As(err, &codecErr) {
		switch codecErr.Type {
		case steg.ErrTypeCapacity:
			return TypeCapacity, http.StatusUnprocessableEntity
		case steg.ErrTypeEmptyMessage:
			return TypeEmptyMessage, http.StatusUnprocessableEntity
		case steg.ErrTypeInvalidMessage:
			return TypeInvalidMessage, http.StatusUnprocessableEntity
		case steg.ErrTypeTruncatedData:
			return TypeTruncatedData, http.StatusUnprocessableEntity
		case steg.ErrTypeNonASCIIDecode:
			return TypeNonASCIIDecode, http.StatusUnprocessableEntity
		case steg.ErrTypeInvalidOffset:
			return TypeInvalidOffset, http.StatusInternalServerError
		}
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return TypeBadRequest, http.StatusBadRequest
	}

	return TypeInternal, http.StatusInternalServerError
}

// RequestError reports a malformed request (missing field, bad op, bad JSON).
type RequestError struct {
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// BadRequest builds a RequestError.
func BadRequest(message string, err error) error {
	return &RequestError{Message: message, Err: err}
}
