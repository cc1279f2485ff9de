package ppm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/muurk/ppmsteg/internal/logging"
	"go.uber.org/zap"
)

// MediaType is the MIME type used for PPM payloads
const MediaType = "image/x-portable-pixmap"

// Image is a parsed PPM: the header plus every byte that follows it
type Image struct {
	Header *Header
	Pixels []byte

	// raw holds the header bytes exactly as they appeared in the source
	raw []byte
}

// NewImage builds an Image from a header and pixel data, rendering the header
// in its canonical single-space form.
func NewImage(h *Header, pixels []byte) *Image {
	raw := []byte(fmt.Sprintf("%s %d %d %d\n", MagicNumber, h.Width, h.Height, h.MaxColorValue))
	return &Image{Header: h, Pixels: pixels, raw: raw}
}

// Decode reads a complete PPM image from r
func Decode(r io.Reader) (*Image, error) {
	br, ok := r.(interface {
		io.Reader
		io.ByteReader
	})
	if !ok {
		br = bufio.NewReader(r)
	}

	hr := &headerReader{r: br}
	hdr, err := hr.parse()
	if err != nil {
		logging.Debug("PPM header rejected", logging.ErrorField(err))
		logging.LogRawBytes("Rejected header bytes", hr.raw)
		return nil, err
	}

	pixels, err := io.ReadAll(br)
	if err != nil {
		return nil, newBadFile("failed to read pixel data", err)
	}

	logging.LogHeader(string(hdr.MagicNumber[:]), hdr.Width, hdr.Height, hdr.MaxColorValue, hr.pos)
	if uint64(len(pixels)) != hdr.ExpectedPixelBytes() {
		logging.Debug("Pixel data size differs from header dimensions",
			zap.Int("pixel_bytes", len(pixels)),
			zap.Uint64("expected_bytes", hdr.ExpectedPixelBytes()),
		)
	}

	return &Image{Header: hdr, Pixels: pixels, raw: hr.raw}, nil
}

// DecodeBytes parses a complete PPM image held in memory. The returned pixel
// slice is a copy, so later changes to data do not affect the image.
func DecodeBytes(data []byte) (*Image, error) {
	hdr, offset, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, offset)
	copy(raw, data[:offset])
	pixels := make([]byte, len(data)-offset)
	copy(pixels, data[offset:])

	return &Image{Header: hdr, Pixels: pixels, raw: raw}, nil
}

// Load reads and parses the PPM file at path
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newBadFile(fmt.Sprintf("cannot open %s", path), err)
	}
	defer func() { _ = f.Close() }()

	img, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}

	logging.Debug("Loaded PPM image",
		zap.String("path", path),
		zap.Int("pixel_bytes", len(img.Pixels)),
	)
	return img, nil
}

// DataOffset returns the offset of the first pixel byte in Bytes()
func (img *Image) DataOffset() int {
	return len(img.raw)
}

// HeaderBytes returns a copy of the header bytes
func (img *Image) HeaderBytes() []byte {
	out := make([]byte, len(img.raw))
	copy(out, img.raw)
	return out
}

// Bytes serializes the image: original header bytes followed by the pixel data
func (img *Image) Bytes() []byte {
	out := make([]byte, 0, len(img.raw)+len(img.Pixels))
	out = append(out, img.raw...)
	out = append(out, img.Pixels...)
	return out
}

// WriteTo writes the serialized image to w
func (img *Image) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(img.Bytes())
	return int64(n), err
}

// WriteFile writes the image to path atomically (temp file + rename)
func (img *Image) WriteFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ppmsteg-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := img.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set image permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save image: %w", err)
	}

	logging.Debug("Wrote PPM image", zap.String("path", path))
	return nil
}
