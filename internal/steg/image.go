package steg

import (
	"fmt"

	"github.com/muurk/ppmsteg/internal/ppm"
)

// EncodeImage embeds message in the pixel data of img and returns a new
// image. img is not modified.
func EncodeImage(img *ppm.Image, message string) (*ppm.Image, error) {
	data := img.Bytes()
	encoded, err := Encode(message, data, img.DataOffset())
	if err != nil {
		return nil, err
	}

	out, err := ppm.DecodeBytes(encoded)
	if err != nil {
		// Header bytes are copied through unchanged, so this only happens
		// if img itself was built from an invalid header.
		return nil, fmt.Errorf("re-parsing encoded image: %w", err)
	}
	return out, nil
}

// DecodeImage extracts the message embedded in img's pixel data
func DecodeImage(img *ppm.Image) (string, error) {
	return Decode(img.Pixels)
}

// ImageCapacity returns the longest message img can carry
func ImageCapacity(img *ppm.Image) int {
	return Capacity(img.Pixels, 0)
}

// EncodeBytes parses a complete PPM held in memory and embeds message in it
func EncodeBytes(data []byte, message string) ([]byte, error) {
	_, offset, err := ppm.ParseHeader(data)
	if err != nil {
		return nil, err
	}
	return Encode(message, data, offset)
}

// DecodeBytes parses a complete PPM held in memory and extracts its message
func DecodeBytes(data []byte) (string, error) {
	_, offset, err := ppm.ParseHeader(data)
	if err != nil {
		return "", err
	}
	return Decode(data[offset:])
}
