package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"

	"github.com/muurk/ppmsteg/internal/logging"
	"github.com/muurk/ppmsteg/internal/ppm"
	"github.com/muurk/ppmsteg/internal/steg"
	"github.com/muurk/ppmsteg/internal/ui"
)

func (a *app) newConvertCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert between PPM and common image formats",
		Long: `Convert an image to or from binary PPM.

The input may be PPM, PNG, BMP, GIF or JPEG. The output format follows the
extension of the output path: .ppm, .png or .bmp. Lossless outputs keep an
embedded message intact, so a PPM can travel as PNG and come back.

JPEG output is not offered because lossy compression destroys the least
significant bits that carry the message.`,
		Example: `  # Prepare a cover image from a photo
  ppmsteg convert photo.png cover.ppm

  # Ship an encoded image as PNG and restore it later
  ppmsteg convert secret.ppm secret.png
  ppmsteg convert secret.png secret.ppm`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args[0], args[1], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite the output file without asking")

	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, input, output string, force bool) error {
	encode, err := outputEncoder(output)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return a.fail("Could not read image", err)
	}

	src, err := decodeAnyImage(data)
	if err != nil {
		return a.fail("Could not decode image", fmt.Errorf("%s: %w", input, err))
	}

	if !force && a.registry.Preferences.ConfirmOverwrite && fileExists(output) {
		if !ui.ConfirmOverwrite(cmd.InOrStdin(), cmd.OutOrStdout(), output) {
			a.errOut.PrintError("Output file exists", fmt.Errorf("refusing to overwrite %s", output),
				[]string{"Pass --force to overwrite it", "Or choose a different output path"})
			return fmt.Errorf("%w: output file exists", errReported)
		}
	}

	var buf bytes.Buffer
	if err := encode(&buf, src); err != nil {
		return a.fail("Could not convert image", err)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
		return a.fail("Could not write image", err)
	}

	b := src.Bounds()
	logging.Debug("Image converted",
		zap.String("input", input),
		zap.String("output", output),
		zap.Int("bytes", buf.Len()),
	)

	a.out.PrintSuccess("Image converted",
		ui.Detail{Key: "Output", Value: output},
		ui.Detail{Key: "Dimensions", Value: fmt.Sprintf("%d x %d", b.Dx(), b.Dy())},
		ui.Detail{Key: "Capacity", Value: fmt.Sprintf("%d characters", steg.ImageCapacity(ppm.FromImage(src)))},
	)
	return nil
}

// decodeAnyImage reads PPM through the strict parser and everything else
// through the registered image decoders
func decodeAnyImage(data []byte) (image.Image, error) {
	if bytes.HasPrefix(data, []byte(ppm.MagicNumber)) {
		img, err := ppm.DecodeBytes(data)
		if err != nil {
			return nil, err
		}
		return img.ToImage()
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	logging.Debug("Decoded input image", zap.String("format", format))
	return img, nil
}

func outputEncoder(path string) (func(*bytes.Buffer, image.Image) error, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ppm":
		return func(buf *bytes.Buffer, img image.Image) error {
			_, err := ppm.FromImage(img).WriteTo(buf)
			return err
		}, nil
	case ".png":
		return func(buf *bytes.Buffer, img image.Image) error {
			return png.Encode(buf, img)
		}, nil
	case ".bmp":
		return func(buf *bytes.Buffer, img image.Image) error {
			return bmp.Encode(buf, img)
		}, nil
	case ".jpg", ".jpeg":
		return nil, errors.New("JPEG output would destroy the hidden message; use .png or .bmp")
	default:
		return nil, fmt.Errorf("unsupported output format %q (use .ppm, .png or .bmp)", ext)
	}
}
