package extractor

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// extractWithRawStreams reads text operators straight out of the file's
// content streams, mapping glyph codes through any ToUnicode tables it
// finds. Bureau PDFs built on Type0 fonts often decode to nothing through
// the pdf library but come out readable here.
func extractWithRawStreams(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	glyphs := newGlyphMap()
	var content []string
	for _, s := range pdfStreams(data) {
		s = inflate(s)
		if bytes.Contains(s, []byte("beginbfchar")) || bytes.Contains(s, []byte("beginbfrange")) {
			glyphs.parse(string(s))
			continue
		}
		content = append(content, string(s))
	}

	var lines []string
	for _, c := range content {
		lines = append(lines, textLines(c, glyphs)...)
	}
	if len(lines) == 0 {
		return nil, errors.New("no text operators in content streams")
	}
	return []string{strings.Join(lines, "\n")}, nil
}

// pdfStreams returns the bytes between each "stream" keyword and its
// "endstream".
func pdfStreams(data []byte) [][]byte {
	var (
		streams [][]byte
		open    = []byte("stream")
		closing = []byte("endstream")
	)
	for off := 0; off < len(data); {
		i := bytes.Index(data[off:], open)
		if i < 0 {
			break
		}
		start := off + i + len(open)
		if start < len(data) && data[start] == '\r' {
			start++
		}
		if start < len(data) && data[start] == '\n' {
			start++
		}
		end := bytes.Index(data[start:], closing)
		if end < 0 {
			break
		}
		if end > 0 {
			streams = append(streams, data[start:start+end])
		}
		off = start + end + len(closing)
	}
	return streams
}

// inflate undoes FlateDecode, returning s unchanged when it is not zlib data.
func inflate(s []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(s))
	if err != nil {
		return s
	}
	defer func() { _ = r.Close() }()
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return s
	}
	return out
}

var (
	textOpPattern    = regexp.MustCompile(`\bBT\b|\bET\b|T\*|-?[\d.]+\s+-?[\d.]+\s+T[dDm]|\[((?:\\.|[^\\\]])*)\]\s*TJ|<([0-9A-Fa-f\s]*)>\s*Tj|\(((?:\\.|[^\\)])*)\)\s*(Tj|')`)
	arrayElemPattern = regexp.MustCompile(`<([0-9A-Fa-f\s]*)>|\(((?:\\.|[^\\)])*)\)`)
)

// textLines walks the text operators of one content stream. Text objects
// and positioning operators end the current line.
func textLines(content string, glyphs *glyphMap) []string {
	var (
		lines []string
		cur   strings.Builder
	)
	flush := func() {
		if line := strings.TrimSpace(cur.String()); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	for _, m := range textOpPattern.FindAllStringSubmatchIndex(content, -1) {
		group := func(n int) (string, bool) {
			if m[2*n] < 0 {
				return "", false
			}
			return content[m[2*n]:m[2*n+1]], true
		}
		switch {
		case m[2] >= 0:
			arr, _ := group(1)
			for _, e := range arrayElemPattern.FindAllStringSubmatch(arr, -1) {
				if strings.HasPrefix(e[0], "<") {
					cur.WriteString(glyphs.decodeHex(e[1]))
				} else {
					cur.WriteString(glyphs.decodeLiteral(e[2]))
				}
			}
		case m[4] >= 0:
			h, _ := group(2)
			cur.WriteString(glyphs.decodeHex(h))
		case m[6] >= 0:
			if op, _ := group(4); op == "'" {
				flush()
			}
			s, _ := group(3)
			cur.WriteString(glyphs.decodeLiteral(s))
		default:
			flush()
		}
	}
	flush()
	return lines
}

// glyphMap is a merged ToUnicode table keyed by upper-case hex glyph code.
type glyphMap struct {
	codes map[string]string
	width int // bytes per glyph code
}

func newGlyphMap() *glyphMap {
	return &glyphMap{codes: make(map[string]string), width: 1}
}

var (
	bfCharPattern  = regexp.MustCompile(`(?s)beginbfchar(.*?)endbfchar`)
	bfRangePattern = regexp.MustCompile(`(?s)beginbfrange(.*?)endbfrange`)
	hexTokenRegex  = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
)

// maxRangeSpan bounds one bfrange entry so a corrupt table cannot stall
// extraction.
const maxRangeSpan = 0xFFFF

func (g *glyphMap) set(code, text string) {
	if text == "" {
		return
	}
	code = strings.ToUpper(code)
	g.codes[code] = text
	if w := len(code) / 2; w > g.width {
		g.width = w
	}
}

func (g *glyphMap) parse(cmap string) {
	for _, block := range bfCharPattern.FindAllStringSubmatch(cmap, -1) {
		tokens := hexTokenRegex.FindAllStringSubmatch(block[1], -1)
		for i := 0; i+1 < len(tokens); i += 2 {
			g.set(tokens[i][1], utf16Hex(tokens[i+1][1]))
		}
	}

	for _, block := range bfRangePattern.FindAllStringSubmatch(cmap, -1) {
		for _, line := range strings.Split(block[1], "\n") {
			head, list, isArray := strings.Cut(line, "[")
			tokens := hexTokenRegex.FindAllStringSubmatch(head, -1)
			if len(tokens) < 2 {
				continue
			}
			lo, err1 := strconv.ParseUint(tokens[0][1], 16, 32)
			hi, err2 := strconv.ParseUint(tokens[1][1], 16, 32)
			if err1 != nil || err2 != nil || hi < lo || hi-lo > maxRangeSpan {
				continue
			}
			width := len(tokens[0][1])

			if isArray {
				for i, t := range hexTokenRegex.FindAllStringSubmatch(list, -1) {
					g.set(fmt.Sprintf("%0*X", width, lo+uint64(i)), utf16Hex(t[1]))
				}
				continue
			}
			if len(tokens) < 3 {
				continue
			}
			dst, err := strconv.ParseUint(tokens[2][1], 16, 32)
			if err != nil {
				continue
			}
			for code := lo; code <= hi; code++ {
				g.set(fmt.Sprintf("%0*X", width, code), utf16Hex(fmt.Sprintf("%0*X", len(tokens[2][1]), dst+code-lo)))
			}
		}
	}
}

// decode maps raw glyph codes to text. Codes missing from a multi-byte
// table are retried as single bytes.
func (g *glyphMap) decode(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); {
		if i+g.width <= len(raw) {
			if s, ok := g.codes[strings.ToUpper(hex.EncodeToString(raw[i:i+g.width]))]; ok {
				sb.WriteString(s)
				i += g.width
				continue
			}
		}
		if s, ok := g.codes[strings.ToUpper(hex.EncodeToString(raw[i:i+1]))]; ok {
			sb.WriteString(s)
		} else if g.width == 1 && raw[i] >= 32 && raw[i] < 127 {
			sb.WriteByte(raw[i])
		}
		i++
	}
	return sb.String()
}

func (g *glyphMap) decodeHex(h string) string {
	h = strings.Join(strings.Fields(h), "")
	if len(h)%2 != 0 {
		h += "0"
	}
	raw, err := hex.DecodeString(h)
	if err != nil {
		return ""
	}
	if len(g.codes) > 0 {
		if s := g.decode(raw); s != "" {
			return s
		}
	}
	if len(raw)%2 == 0 && !isASCII(raw) {
		return printableOnly(utf16Hex(h))
	}
	return printableOnly(string(raw))
}

func (g *glyphMap) decodeLiteral(s string) string {
	s = unescapePDFString(s)
	if len(g.codes) > 0 {
		if out := g.decode([]byte(s)); out != "" && mostlyPrintable(out) {
			return out
		}
	}
	return printableOnly(s)
}

// utf16Hex decodes a hex string of UTF-16BE code units, surrogate pairs
// included.
func utf16Hex(h string) string {
	if len(h)%2 != 0 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil || len(b) == 0 {
		return ""
	}
	if len(b) == 1 {
		return string(rune(b[0]))
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return string(utf16.Decode(units))
}

// unescapePDFString resolves backslash escapes in a literal string,
// including three-digit octal codes.
func unescapePDFString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch c := s[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v := int(c - '0')
			for j := 0; j < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; j++ {
				i++
				v = v*8 + int(s[i]-'0')
			}
			sb.WriteByte(byte(v))
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func printableOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' {
			return r
		}
		return -1
	}, s)
}

func mostlyPrintable(s string) bool {
	total, ok := 0, 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			ok++
		}
	}
	return total > 0 && ok*2 > total
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c < 32 || c > 126 {
			return false
		}
	}
	return true
}
