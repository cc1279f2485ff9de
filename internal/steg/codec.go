package steg

import (
	"fmt"

	"github.com/muurk/ppmsteg/internal/logging"
)

// Codec constants
const (
	// BytesPerChar is the number of carrier bytes holding one message byte
	BytesPerChar = 8

	// Terminator marks the end of an embedded message
	Terminator byte = 0x00

	// MaxASCII is the largest byte value a message may contain
	MaxASCII byte = 0x7f
)

// ValidateMessage checks that message can be embedded: non-empty, ASCII
// only, and free of the terminator byte.
func ValidateMessage(message string) error {
	if len(message) == 0 {
		return &CodecError{
			Type:    ErrTypeEmptyMessage,
			Message: "refusing to embed an empty message",
			Offset:  -1,
		}
	}

	for i := 0; i < len(message); i++ {
		c := message[i]
		switch {
		case c == Terminator:
			return &CodecError{
				Type:    ErrTypeInvalidMessage,
				Message: fmt.Sprintf("message contains the terminator byte at position %d", i),
				Offset:  -1,
				Value:   c,
			}
		case c > MaxASCII:
			return &CodecError{
				Type:    ErrTypeInvalidMessage,
				Message: fmt.Sprintf("message contains non-ASCII byte 0x%02x at position %d", c, i),
				Offset:  -1,
				Value:   c,
			}
		}
	}
	return nil
}

// Required returns the number of carrier bytes needed for a message of
// length n, terminator included.
func Required(n int) int {
	return (n + 1) * BytesPerChar
}

// Capacity returns the longest message that fits in data after start.
// It never returns a negative value.
func Capacity(data []byte, start int) int {
	if start < 0 || start > len(data) {
		return 0
	}
	n := (len(data)-start)/BytesPerChar - 1
	if n < 0 {
		return 0
	}
	return n
}

// Encode embeds message in the least-significant bits of data starting at
// start and returns a new buffer of the same length. Bytes before start and
// after the last patched byte are copied unchanged. data is never modified.
//
// Each message byte occupies 8 carrier bytes, most-significant bit first,
// and is followed by a 0x00 terminator encoded the same way.
func Encode(message string, data []byte, start int) ([]byte, error) {
	if err := ValidateMessage(message); err != nil {
		return nil, err
	}
	if start < 0 || start > len(data) {
		return nil, &CodecError{
			Type:    ErrTypeInvalidOffset,
			Message: fmt.Sprintf("start offset %d outside buffer of %d bytes", start, len(data)),
			Offset:  start,
		}
	}

	required := Required(len(message))
	available := len(data) - start
	if required > available {
		return nil, newCapacityError(required, available)
	}

	out := make([]byte, len(data))
	copy(out, data)

	pos := start
	for i := 0; i < len(message); i++ {
		embedByte(out[pos:pos+BytesPerChar], message[i])
		pos += BytesPerChar
	}
	embedByte(out[pos:pos+BytesPerChar], Terminator)

	logging.LogCodecOperation("encode", len(message), required, Capacity(data, start))
	return out, nil
}

// Decode extracts a message from data, which must begin at the first
// carrier byte. Decoding stops at the terminator; trailing bytes are ignored.
func Decode(data []byte) (string, error) {
	message := make([]byte, 0, 64)

	for pos := 0; ; pos += BytesPerChar {
		if pos+BytesPerChar > len(data) {
			return "", &CodecError{
				Type:    ErrTypeTruncatedData,
				Message: fmt.Sprintf("pixel data ended after %d characters without a terminator", len(message)),
				Offset:  pos,
			}
		}

		c := extractByte(data[pos : pos+BytesPerChar])
		if c > MaxASCII {
			return "", &CodecError{
				Type:    ErrTypeNonASCIIDecode,
				Message: fmt.Sprintf("decoded non-ASCII value 0x%02x", c),
				Offset:  pos,
				Value:   c,
			}
		}
		if c == Terminator {
			logging.LogCodecOperation("decode", len(message), pos+BytesPerChar, Capacity(data, 0))
			return string(message), nil
		}
		message = append(message, c)
	}
}

// embedByte writes the bits of c into the LSBs of chunk, bit 7 into chunk[0]
func embedByte(chunk []byte, c byte) {
	for i := 0; i < BytesPerChar; i++ {
		if (c>>(7-i))&1 == 1 {
			chunk[i] |= 0x01
		} else {
			chunk[i] &= 0xfe
		}
	}
}

// extractByte reverses embedByte
func extractByte(chunk []byte) byte {
	var c byte
	for i := 0; i < BytesPerChar; i++ {
		if chunk[i]&0x01 == 1 {
			c |= 1 << (7 - i)
		}
	}
	return c
}
