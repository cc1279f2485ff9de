package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muurk/ppmsteg/internal/ppm"
)

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}
	return writeImage(t, dir, name, buf.Bytes())
}

func TestConvert_MessageSurvivesLosslessFormats(t *testing.T) {
	for _, ext := range []string{".png", ".bmp"} {
		t.Run(ext, func(t *testing.T) {
			dir := t.TempDir()
			photo := writePNG(t, dir, "photo.png")
			cover := filepath.Join(dir, "cover.ppm")
			secret := filepath.Join(dir, "secret.ppm")
			shipped := filepath.Join(dir, "secret"+ext)
			restored := filepath.Join(dir, "restored.ppm")

			steps := [][]string{
				{"convert", photo, cover},
				{"encode", cover, "-m", "hello", "-o", secret},
				{"convert", secret, shipped},
				{"convert", shipped, restored},
			}
			for _, args := range steps {
				if res := runCLI(t, dir, "", args...); res.err != nil {
					t.Fatalf("%v error = %v\nstderr: %s", args, res.err, res.stderr)
				}
			}

			img, err := ppm.Load(cover)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if want := coverImage[len("P6\n4 4\n255\n"):]; !bytes.Equal(img.Pixels, want) {
				t.Errorf("converted pixels = %v, want %v", img.Pixels, want)
			}

			res := runCLI(t, dir, "", "decode", restored)
			if res.err != nil {
				t.Fatalf("decode error = %v\nstderr: %s", res.err, res.stderr)
			}
			if res.stdout != "hello\n" {
				t.Errorf("decoded = %q, want %q", res.stdout, "hello\n")
			}
		})
	}
}

func TestConvert_Errors(t *testing.T) {
	dir := t.TempDir()
	cover := writeImage(t, dir, "cover.ppm", coverImage)
	bad := writeImage(t, dir, "bad.ppm", []byte("P6\n4 x\n255\n"))
	junk := writeImage(t, dir, "junk.png", []byte("not an image"))

	tests := []struct {
		name     string
		args     []string
		reported bool
		wantErr  string
	}{
		{
			name:    "jpeg output",
			args:    []string{"convert", cover, filepath.Join(dir, "out.jpg")},
			wantErr: "JPEG output",
		},
		{
			name:    "unknown output",
			args:    []string{"convert", cover, filepath.Join(dir, "out.tiff")},
			wantErr: "unsupported output format",
		},
		{
			name:     "bad ppm header",
			args:     []string{"convert", bad, filepath.Join(dir, "out.png")},
			reported: true,
			wantErr:  "Bad Header",
		},
		{
			name:     "unknown input",
			args:     []string{"convert", junk, filepath.Join(dir, "out.ppm")},
			reported: true,
			wantErr:  "unknown format",
		},
		{
			name:     "missing input",
			args:     []string{"convert", filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.ppm")},
			reported: true,
			wantErr:  "no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, dir, "", tt.args...)
			if res.err == nil {
				t.Fatal("expected an error")
			}
			if errors.Is(res.err, errReported) != tt.reported {
				t.Errorf("reported = %v, want %v", errors.Is(res.err, errReported), tt.reported)
			}
			if !strings.Contains(res.err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", res.err, tt.wantErr)
			}
		})
	}
}

func TestConvert_Overwrite(t *testing.T) {
	dir := t.TempDir()
	photo := writePNG(t, dir, "photo.png")
	existing := writeImage(t, dir, "cover.ppm", []byte("keep me"))

	res := runCLI(t, dir, "n\n", "convert", photo, existing)
	if !errors.Is(res.err, errReported) {
		t.Fatalf("error = %v, want reported refusal", res.err)
	}
	if data, _ := os.ReadFile(existing); string(data) != "keep me" {
		t.Errorf("existing file was overwritten")
	}

	res = runCLI(t, dir, "", "convert", photo, existing, "--force")
	if res.err != nil {
		t.Fatalf("forced convert error = %v\nstderr: %s", res.err, res.stderr)
	}
	img, err := ppm.Load(existing)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if img.Header.Width != 4 || img.Header.Height != 4 {
		t.Errorf("dimensions = %dx%d, want 4x4", img.Header.Width, img.Header.Height)
	}
}
