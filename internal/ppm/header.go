package ppm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/muurk/ppmsteg/internal/logging"
)

// Header grammar constants
const (
	MagicNumber      = "P6"
	MaxColorValueCap = 255

	// A uint32 never needs more than 10 significant decimal digits
	maxDimensionDigits = 10
	maxColorDigits     = 3
)

// Header is a parsed binary PPM header
type Header struct {
	MagicNumber   [2]byte // Always 'P','6'
	Width         uint32
	Height        uint32
	MaxColorValue uint32 // 1..255
}

// String returns a compact representation of the header
func (h *Header) String() string {
	return fmt.Sprintf("PPM{magic=%s, width=%d, height=%d, maxval=%d}",
		string(h.MagicNumber[:]), h.Width, h.Height, h.MaxColorValue)
}

// ExpectedPixelBytes returns width*height*3, the raster size the header
// advertises for one-byte samples. Pixel data is not required to match it.
func (h *Header) ExpectedPixelBytes() uint64 {
	return uint64(h.Width) * uint64(h.Height) * 3
}

// ParseHeader parses the header at the start of data and returns it along
// with the offset of the first pixel byte.
func ParseHeader(data []byte) (*Header, int, error) {
	return ReadHeader(bytes.NewReader(data))
}

// ReadHeader parses a header from r one byte at a time. Nothing past the
// header's terminating whitespace byte is consumed, so r is positioned at the
// first pixel byte on success.
func ReadHeader(r io.ByteReader) (*Header, int, error) {
	hr := &headerReader{r: r}
	hdr, err := hr.parse()
	if err != nil {
		logging.Debug("PPM header rejected", logging.ErrorField(err))
		logging.LogRawBytes("Rejected header bytes", hr.raw)
		return nil, 0, err
	}
	logging.LogHeader(string(hdr.MagicNumber[:]), hdr.Width, hdr.Height, hdr.MaxColorValue, hr.pos)
	return hdr, hr.pos, nil
}

// headerReader tracks the byte offset and raw bytes of the header as it is consumed
type headerReader struct {
	r   io.ByteReader
	pos int
	raw []byte
}

func (hr *headerReader) parse() (*Header, error) {
	hdr := &Header{}

	magic, err := hr.parseMagicNumber()
	if err != nil {
		return nil, err
	}
	hdr.MagicNumber = magic

	if err := hr.parseOneWhitespace("magic number"); err != nil {
		return nil, err
	}

	if hdr.Width, err = hr.parseDimension("width"); err != nil {
		return nil, err
	}
	if hdr.Height, err = hr.parseDimension("height"); err != nil {
		return nil, err
	}
	if hdr.MaxColorValue, err = hr.parseMaxColorValue(); err != nil {
		return nil, err
	}

	return hdr, nil
}

func (hr *headerReader) next(field string) (byte, error) {
	b, err := hr.r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, newBadHeader(hr.pos, "unexpected end of data while parsing %s", field)
		}
		return 0, &HeaderError{
			Type:    ErrTypeBadFile,
			Message: "read failed while parsing " + field,
			Offset:  hr.pos,
			Err:     err,
		}
	}
	hr.raw = append(hr.raw, b)
	hr.pos++
	return b, nil
}

func (hr *headerReader) parseMagicNumber() ([2]byte, error) {
	var magic [2]byte
	for i := range magic {
		b, err := hr.next("magic number")
		if err != nil {
			return magic, err
		}
		magic[i] = b
	}

	if magic[0] != MagicNumber[0] || magic[1] != MagicNumber[1] {
		return magic, newBadHeader(0, "bad magic number %q", string(magic[:]))
	}
	return magic, nil
}

func (hr *headerReader) parseOneWhitespace(after string) error {
	b, err := hr.next("whitespace after " + after)
	if err != nil {
		return err
	}
	if !isWhitespace(b) {
		return newBadHeader(hr.pos-1, "expected whitespace after %s, got 0x%02x", after, b)
	}
	return nil
}

// digitRun skips leading whitespace, collects a run of ASCII digits and
// consumes exactly one terminating whitespace byte. With trimZeros, leading
// zeros are dropped and do not count toward maxDigits.
func (hr *headerReader) digitRun(field string, maxDigits int, trimZeros bool) ([]byte, error) {
	var digits []byte
	for {
		b, err := hr.next(field)
		if err != nil {
			return nil, err
		}

		switch {
		case isDigit(b):
			if trimZeros && len(digits) == 1 && digits[0] == '0' {
				digits = digits[:0]
			}
			digits = append(digits, b)
			if len(digits) > maxDigits {
				return digits, errTooManyDigits
			}
		case isWhitespace(b):
			if len(digits) > 0 {
				return digits, nil
			}
		case len(digits) == 0:
			return nil, newBadHeader(hr.pos-1, "unexpected byte 0x%02x before %s", b, field)
		default:
			return nil, newBadHeader(hr.pos-1, "unexpected byte 0x%02x in %s", b, field)
		}
	}
}

var errTooManyDigits = errors.New("too many digits")

func (hr *headerReader) parseDimension(field string) (uint32, error) {
	start := hr.pos
	digits, err := hr.digitRun(field, maxDimensionDigits, true)
	if errors.Is(err, errTooManyDigits) {
		return 0, newBadHeader(start, "%s too large", field)
	}
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseUint(string(digits), 10, 32)
	if err != nil {
		return 0, &HeaderError{
			Type:    ErrTypeBadHeader,
			Message: fmt.Sprintf("invalid %s %q", field, digits),
			Offset:  start,
			Err:     err,
		}
	}
	return uint32(v), nil
}

// parseMaxColorValue accepts 1..255. The digit count includes leading zeros,
// so "0255" is too large. Zero is rejected even though a one or two digit
// run is otherwise always accepted: a P6 sample needs a positive maximum.
func (hr *headerReader) parseMaxColorValue() (uint32, error) {
	start := hr.pos
	digits, err := hr.digitRun("max color value", maxColorDigits, false)
	if errors.Is(err, errTooManyDigits) {
		return 0, newBadHeader(start, "max color value too large")
	}
	if err != nil {
		return 0, err
	}

	// At most 3 digits, so this cannot overflow
	var v uint32
	for _, d := range digits {
		v = v*10 + uint32(d-'0')
	}

	if v > MaxColorValueCap {
		return 0, newBadHeader(start, "max color value too large")
	}
	if v == 0 {
		return 0, newBadHeader(start, "max color value must be positive")
	}
	return v, nil
}

func isWhitespace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
