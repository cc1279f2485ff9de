package ppm

import (
	"fmt"
	"image"
	"image/color"
)

// FromImage renders src as a P6 image with a max color value of 255.
// Alpha is discarded.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()

	pixels := make([]byte, 0, width*height*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			pixels = append(pixels, c.R, c.G, c.B)
		}
	}

	hdr := &Header{
		MagicNumber:   [2]byte{MagicNumber[0], MagicNumber[1]},
		Width:         uint32(width),
		Height:        uint32(height),
		MaxColorValue: 255,
	}
	return NewImage(hdr, pixels)
}

// ToImage returns the raster as an opaque 8-bit image. Samples are scaled
// from the max color value to 255 and clamped, so only images with a max
// color value of 255 keep their exact bytes. Pixel data beyond the header's
// dimensions is ignored; too little pixel data is an error.
func (img *Image) ToImage() (*image.NRGBA, error) {
	h := img.Header
	if uint64(len(img.Pixels)) < h.ExpectedPixelBytes() {
		return nil, &HeaderError{
			Type:    ErrTypeBadFile,
			Message: fmt.Sprintf("pixel data has %d bytes, header needs %d", len(img.Pixels), h.ExpectedPixelBytes()),
			Offset:  img.DataOffset() + len(img.Pixels),
		}
	}

	width, height := int(h.Width), int(h.Height)
	out := image.NewNRGBA(image.Rect(0, 0, width, height))

	scale := func(v byte) uint8 {
		if uint32(v) >= h.MaxColorValue {
			return 0xff
		}
		return uint8(uint32(v) * 255 / h.MaxColorValue)
	}

	for i := 0; i < width*height; i++ {
		p := img.Pixels[i*3 : i*3+3]
		out.Pix[i*4+0] = scale(p[0])
		out.Pix[i*4+1] = scale(p[1])
		out.Pix[i*4+2] = scale(p[2])
		out.Pix[i*4+3] = 0xff
	}
	return out, nil
}
