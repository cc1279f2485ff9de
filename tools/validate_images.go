//go:build ignore

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/muurk/ppmsteg/internal/ppm"
	"github.com/muurk/ppmsteg/internal/steg"
)

// Statistics tracks parsing and decoding results
type Statistics struct {
	TotalFiles     int
	HeaderSuccess  int
	HeaderFailure  int
	WithMessage    int
	SizeMismatch   int
	MaxColorValues map[uint32]int
	DecodeOutcomes map[string]int
	TotalCapacity  int
	FailedImages   []FailedImage
}

// FailedImage stores information about header failures
type FailedImage struct {
	File   string
	Offset int
	Error  string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: validate_images <directory-or-file>")
		fmt.Println("Example: go run tools/validate_images.go ./testdata/")
		fmt.Println("         go run tools/validate_images.go cover.ppm")
		os.Exit(1)
	}

	path := os.Args[1]

	stats := Statistics{
		MaxColorValues: make(map[uint32]int),
		DecodeOutcomes: make(map[string]int),
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Error accessing path: %v\n", err)
		os.Exit(1)
	}

	var files []string
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.ppm"))
		if err != nil {
			fmt.Printf("Error finding PPM files: %v\n", err)
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Printf("No PPM files found in %s\n", path)
			os.Exit(1)
		}
	} else {
		files = []string{path}
	}

	fmt.Printf("=== ppmsteg Image Validator ===\n")
	fmt.Printf("Files to process: %d\n\n", len(files))

	for _, file := range files {
		processFile(file, &stats)
	}

	printStatistics(&stats)
}

func processFile(filename string, stats *Statistics) {
	stats.TotalFiles++

	img, err := ppm.Load(filename)
	if err != nil {
		stats.HeaderFailure++
		failed := FailedImage{File: filename, Offset: -1, Error: err.Error()}
		var hdrErr *ppm.HeaderError
		if errors.As(err, &hdrErr) {
			failed.Offset = hdrErr.Offset
		}
		stats.FailedImages = append(stats.FailedImages, failed)
		return
	}

	stats.HeaderSuccess++
	stats.MaxColorValues[img.Header.MaxColorValue]++
	stats.TotalCapacity += steg.ImageCapacity(img)
	if uint64(len(img.Pixels)) != img.Header.ExpectedPixelBytes() {
		stats.SizeMismatch++
	}

	message, err := steg.DecodeImage(img)
	switch {
	case err == nil && message != "":
		stats.WithMessage++
		stats.DecodeOutcomes["message"]++
	case err == nil:
		stats.DecodeOutcomes["empty"]++
	default:
		var codecErr *steg.CodecError
		if errors.As(err, &codecErr) {
			stats.DecodeOutcomes[codecErr.Type.String()]++
		} else {
			stats.DecodeOutcomes["other"]++
		}
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func printStatistics(stats *Statistics) {
	fmt.Printf("\n========================================\n")
	fmt.Printf("VALIDATION RESULTS\n")
	fmt.Printf("========================================\n\n")

	fmt.Printf("Files Processed:    %d\n", stats.TotalFiles)
	fmt.Printf("Header Success:     %d (%.2f%%)\n", stats.HeaderSuccess, percent(stats.HeaderSuccess, stats.TotalFiles))
	fmt.Printf("Header Failure:     %d (%.2f%%)\n", stats.HeaderFailure, percent(stats.HeaderFailure, stats.TotalFiles))
	fmt.Printf("Size Mismatch:      %d\n", stats.SizeMismatch)
	fmt.Printf("Carrying Message:   %d\n", stats.WithMessage)
	fmt.Printf("Total Capacity:     %d characters\n", stats.TotalCapacity)

	fmt.Printf("\n----------------------------------------\n")
	fmt.Printf("MAX COLOR VALUE DISTRIBUTION\n")
	fmt.Printf("----------------------------------------\n")
	maxvals := make([]uint32, 0, len(stats.MaxColorValues))
	for v := range stats.MaxColorValues {
		maxvals = append(maxvals, v)
	}
	sort.Slice(maxvals, func(i, j int) bool { return maxvals[i] < maxvals[j] })
	for _, v := range maxvals {
		count := stats.MaxColorValues[v]
		fmt.Printf("maxval %3d: %d images (%.2f%%)\n", v, count, percent(count, stats.HeaderSuccess))
	}

	fmt.Printf("\n----------------------------------------\n")
	fmt.Printf("DECODE OUTCOMES\n")
	fmt.Printf("----------------------------------------\n")
	for outcome, count := range stats.DecodeOutcomes {
		fmt.Printf("%-16s %d (%.2f%%)\n", outcome+":", count, percent(count, stats.HeaderSuccess))
	}

	if len(stats.FailedImages) > 0 {
		fmt.Printf("\n----------------------------------------\n")
		fmt.Printf("HEADER FAILURES (%d total)\n", len(stats.FailedImages))
		fmt.Printf("----------------------------------------\n")

		// Show first 10 failures
		maxShow := 10
		if len(stats.FailedImages) > maxShow {
			fmt.Printf("(Showing first %d of %d failures)\n\n", maxShow, len(stats.FailedImages))
		}

		for i, failed := range stats.FailedImages {
			if i >= maxShow {
				break
			}
			fmt.Printf("\nFailure #%d:\n", i+1)
			fmt.Printf("  File: %s\n", failed.File)
			if failed.Offset >= 0 {
				fmt.Printf("  Offset: %d\n", failed.Offset)
			}
			fmt.Printf("  Error: %s\n", strings.TrimSpace(failed.Error))
		}
	}

	fmt.Printf("\n========================================\n")
	if stats.HeaderFailure == 0 {
		fmt.Printf("✅ SUCCESS: All headers parsed successfully!\n")
	} else {
		fmt.Printf("⚠️  ISSUES FOUND: %d images failed to parse\n", stats.HeaderFailure)
	}
	fmt.Printf("========================================\n")
}
