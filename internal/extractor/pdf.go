// Package extractor gets plain text out of credit report files: PDFs with
// a text layer, scanned PDFs via OCR, HTML exports and plain text.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ErrNoReadableText means every extraction method ran and none produced
// text that looks like a credit report.
var ErrNoReadableText = errors.New("no readable text in document")

// PDFOptions controls the fallback chain.
type PDFOptions struct {
	// OCR enables the tesseract fallback for scanned reports.
	OCR    bool
	Logger *slog.Logger
}

type pdfMethod struct {
	name string
	run  func(ctx context.Context, path string) ([]string, error)
}

// ExtractPDF returns the text of each page. The embedded-text library is
// tried first, then a raw content-stream scan, then poppler's pdftotext,
// then OCR when enabled.
func ExtractPDF(ctx context.Context, path string, opts PDFOptions) ([]string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	methods := []pdfMethod{
		{name: "library", run: func(_ context.Context, p string) ([]string, error) { return extractWithLibrary(p) }},
		{name: "raw", run: func(_ context.Context, p string) ([]string, error) { return extractWithRawStreams(p) }},
		{name: "pdftotext", run: extractWithPdftotext},
	}
	if opts.OCR {
		methods = append(methods, pdfMethod{name: "ocr", run: ExtractTextOCR})
	}

	var errs []error
	for _, m := range methods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages, err := m.run(ctx, path)
		if err == nil && IsReadableText(pages) {
			logger.Debug("pdf text extracted", "path", path, "method", m.name, "pages", len(pages))
			return pages, nil
		}
		if err == nil {
			err = fmt.Errorf("%s: text not readable", m.name)
		} else {
			err = fmt.Errorf("%s: %w", m.name, err)
		}
		logger.Debug("pdf extraction method failed", "path", path, "method", m.name, "error", err)
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrNoReadableText, path, errors.Join(errs...))
}

// reportWords appear on every bureau report; text with none of them is
// almost certainly a font-decoding failure.
var reportWords = []string{
	"account", "balance", "creditor", "credit", "status", "payment",
	"opened", "inquiries", "report", "experian", "equifax", "transunion",
	"date", "address", "limit",
}

// textQuality is the share of plain ASCII characters. Identity-encoded
// fonts decode to accented garbage, which unicode.IsLetter would accept.
func textQuality(pages []string) float64 {
	total, readable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < unicode.MaxASCII && (unicode.IsPrint(r) || unicode.IsSpace(r)) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// IsReadableText requires more than 50 characters, mostly ASCII, and at
// least one word every credit report contains.
func IsReadableText(pages []string) bool {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	if n <= 50 || textQuality(pages) <= 0.6 {
		return false
	}
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, w := range reportWords {
		if strings.Contains(combined, w) {
			return true
		}
	}
	return false
}

func extractWithPdftotext(ctx context.Context, path string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %w", err)
	}

	// Page by page keeps page boundaries intact.
	var pages []string
	for i := 1; i <= pdfPageCount(ctx, path); i++ {
		n := strconv.Itoa(i)
		out, err := exec.CommandContext(ctx, "pdftotext", "-layout", "-f", n, "-l", n, path, "-").Output()
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) > 0 {
		return pages, nil
	}

	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}
	if text := strings.TrimSpace(string(out)); text != "" {
		return []string{text}, nil
	}
	return nil, errors.New("pdftotext produced no output")
}

// pdfPageCount asks pdfinfo for the page count, defaulting to 1.
func pdfPageCount(ctx context.Context, path string) int {
	out, err := exec.CommandContext(ctx, "pdfinfo", path).Output()
	if err != nil {
		return 1
	}
	for _, line := range strings.Split(string(out), "\n") {
		if v, ok := strings.CutPrefix(line, "Pages:"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
				return n
			}
		}
	}
	return 1
}

func extractWithLibrary(path string) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, errors.New("pdf has no pages")
	}

	// Rows keep "Label: value" pairs on one line, which the field
	// patterns rely on; positioned content is the fallback.
	if pages = pagesByRow(r, numPages); IsReadableText(pages) {
		return pages, nil
	}
	if pages = pagesByPosition(r, numPages); IsReadableText(pages) {
		return pages, nil
	}
	if text := plainText(r); IsReadableText([]string{text}) {
		return []string{text}, nil
	}
	return pages, nil
}

func pagesByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, w := range row.Content {
				words = append(words, w.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// pagesByPosition rebuilds lines from positioned text runs: runs sharing a
// rounded Y are one line, read left to right.
func pagesByPosition(r *pdf.Reader, numPages int) []string {
	type run struct {
		x float64
		s string
	}
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		lineRuns := make(map[int][]run)
		for _, t := range page.Content().Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			y := int(math.Round(t.Y))
			lineRuns[y] = append(lineRuns[y], run{x: t.X, s: t.S})
		}
		if len(lineRuns) == 0 {
			continue
		}

		ys := make([]int, 0, len(lineRuns))
		for y := range lineRuns {
			ys = append(ys, y)
		}
		// PDF Y grows upward.
		sort.Sort(sort.Reverse(sort.IntSlice(ys)))

		lines := make([]string, 0, len(ys))
		for _, y := range ys {
			runs := lineRuns[y]
			sort.Slice(runs, func(a, b int) bool { return runs[a].x < runs[b].x })
			var sb strings.Builder
			for j, rn := range runs {
				if j > 0 && rn.x-runs[j-1].x > 15 {
					sb.WriteString("  ")
				}
				sb.WriteString(rn.s)
			}
			if line := strings.TrimSpace(sb.String()); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func plainText(r *pdf.Reader) string {
	rd, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
