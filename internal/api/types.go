package api

import (
	"github.com/muurk/ppmsteg/internal/ppm"
	"github.com/muurk/ppmsteg/internal/steg"
)

// Paths served by ppmsteg.
const (
	PathPrefix  = "/api"
	PathEncode  = PathPrefix + "/encode"
	PathDecode  = PathPrefix + "/decode"
	PathInspect = PathPrefix + "/inspect"
	PathHealth  = "/healthz"
	PathWS      = "/ws"
)

// Form and query field names for /api/encode.
const (
	FieldMessage = "message"
	FieldImage   = "image"
)

// WebSocket operations.
const (
	OpEncode  = "encode"
	OpDecode  = "decode"
	OpInspect = "inspect"
)

// HeaderInfo describes a parsed carrier image.
type HeaderInfo struct {
	Magic         string `json:"magic"`
	Width         uint32 `json:"width"`
	Height        uint32 `json:"height"`
	MaxColorValue uint32 `json:"max_color_value"`
	DataOffset    int    `json:"data_offset"`
	PixelBytes    int    `json:"pixel_bytes"`
	ExpectedBytes uint64 `json:"expected_pixel_bytes"` // width*height*3
	Capacity      int    `json:"capacity"`             // Longest message that fits, in bytes
}

// DescribeImage summarises img for /api/inspect and the inspect command.
func DescribeImage(img *ppm.Image) *HeaderInfo {
	h := img.Header
	return &HeaderInfo{
		Magic:         string(h.MagicNumber[:]),
		Width:         h.Width,
		Height:        h.Height,
		MaxColorValue: h.MaxColorValue,
		DataOffset:    img.DataOffset(),
		PixelBytes:    len(img.Pixels),
		ExpectedBytes: h.ExpectedPixelBytes(),
		Capacity:      steg.ImageCapacity(img),
	}
}

// DecodeResponse is returned by /api/decode.
type DecodeResponse struct {
	Message string `json:"message"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// WSRequest is a single request on the /ws endpoint. Image travels base64
// encoded, as encoding/json does for []byte.
type WSRequest struct {
	ID      string `json:"id,omitempty"`
	Op      string `json:"op"`
	Message string `json:"message,omitempty"`
	Image   []byte `json:"image,omitempty"`
}

// WSResponse answers a WSRequest with the same ID.
type WSResponse struct {
	ID        string      `json:"id,omitempty"`
	Op        string      `json:"op"`
	OK        bool        `json:"ok"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Message   string      `json:"message,omitempty"`
	Image     []byte      `json:"image,omitempty"`
	Header    *HeaderInfo `json:"header,omitempty"`
}
