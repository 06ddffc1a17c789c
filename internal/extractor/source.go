package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for files that are not PDF, HTML or text.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// ReadReport returns the text of the report stored at path, choosing the
// decoder by extension.
func ReadReport(ctx context.Context, path string, opts PDFOptions) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		pages, err := ExtractPDF(ctx, path, opts)
		if err != nil {
			return "", err
		}
		return strings.Join(pages, "\n\n"), nil
	case ".html", ".htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return HTMLToText(string(data)), nil
	case ".txt", ".text", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// ReadUpload decodes an uploaded report. PDFs go through a temp file
// because the PDF library and poppler both want a path.
func ReadUpload(ctx context.Context, name string, data []byte, opts PDFOptions) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".html", ".htm":
		return HTMLToText(string(data)), nil
	case ".txt", ".text", "":
		return string(data), nil
	case ".pdf":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	tmp, err := os.CreateTemp("", "tradeline-upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return ReadReport(ctx, tmp.Name(), opts)
}

// DirSource serves reports from a directory; the report id is the file
// name relative to Dir.
type DirSource struct {
	Dir string
	PDF PDFOptions
}

// ReportText implements pipeline.TextSource.
func (d DirSource) ReportText(ctx context.Context, reportID string) (string, error) {
	clean := filepath.Clean("/" + reportID)[1:]
	if clean == "" {
		return "", fmt.Errorf("empty report id")
	}
	path := filepath.Join(d.Dir, clean)
	logger := d.PDF.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("reading report", "report_id", reportID, "path", path)
	return ReadReport(ctx, path, d.PDF)
}
