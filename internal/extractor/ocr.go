package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ocrDPI is the render resolution for page images.
const ocrDPI = "300"

// IsOCRAvailable reports whether pdftoppm and tesseract are installed.
func IsOCRAvailable() bool {
	_, errPPM := exec.LookPath("pdftoppm")
	_, errTess := exec.LookPath("tesseract")
	return errPPM == nil && errTess == nil
}

// ExtractTextOCR rasterises each page with pdftoppm and reads it with
// tesseract. It needs poppler-utils and tesseract-ocr on PATH.
func ExtractTextOCR(ctx context.Context, path string) ([]string, error) {
	for _, tool := range []string{"pdftoppm", "tesseract"} {
		if _, err := exec.LookPath(tool); err != nil {
			return nil, fmt.Errorf("%s not available: %w", tool, err)
		}
	}

	tmpDir, err := os.MkdirTemp("", "tradeline-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	prefix := filepath.Join(tmpDir, "page")
	if out, err := exec.CommandContext(ctx, "pdftoppm", "-r", ocrDPI, "-png", path, prefix).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return nil, err
	}
	sort.Strings(images)
	if len(images) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no page images")
	}

	var pages []string
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := ocrImage(ctx, img)
		if err != nil {
			slog.Warn("tesseract failed on page", "image", filepath.Base(img), "error", err)
			continue
		}
		if text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("tesseract produced no text from %d page images", len(images))
	}
	return pages, nil
}

// ocrImage runs tesseract in single-column mode (psm 4), which keeps
// label/value pairs on the same line.
func ocrImage(ctx context.Context, img string) (string, error) {
	out, err := exec.CommandContext(ctx, "tesseract", img, "stdout", "-l", "eng", "--psm", "4").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
