package parser

import (
	"strings"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
)

// lineSignal marks a line that may begin a new account.
type lineSignal uint8

const (
	signalHeader lineSignal = 1 << iota
	signalAccountNumber
	signalStatus
	signalAmount
)

// Splitter cuts a section into account blocks. No single signal is
// reliable on OCR output, so a boundary needs both a signal line and
// enough accumulated content to stand on its own.
type Splitter struct {
	rules     *rules.Compiled
	minLength int
}

// NewSplitter returns a Splitter. A minLength of zero uses the rule set's
// min_block_length.
func NewSplitter(r *rules.Compiled, minLength int) *Splitter {
	if minLength <= 0 {
		minLength = r.MinBlockLength
	}
	return &Splitter{rules: r, minLength: minLength}
}

// MinLength is the content floor a block must reach before it is emitted.
func (s *Splitter) MinLength() int {
	return s.minLength
}

// Split returns the account blocks in section order. A section shorter
// than the floor yields no blocks; a short trailing fragment without an
// account number is folded into the block before it.
func (s *Splitter) Split(section string, kind models.SectionKind) []models.AccountBlock {
	lines := strings.Split(section, "\n")

	var (
		blocks []models.AccountBlock
		cur    []string
		seen   lineSignal
		start  int
	)
	for i, raw := range lines {
		line := strings.TrimRight(raw, " \t\r")
		sig := s.signal(lines, i)

		if sig != 0 && len(cur) > 0 && boundary(sig, seen) {
			// A creditor line with no address under it still belongs to
			// the account whose number or status follows it.
			cut := len(cur)
			if sig&(signalAccountNumber|signalStatus) != 0 {
				if k := s.trailingHeader(cur); k > 0 && s.ready(cur[:k]) {
					cut = k
				}
			}
			if s.ready(cur[:cut]) {
				blocks = append(blocks, models.AccountBlock{
					Text:    joinLines(cur[:cut]),
					Section: kind,
					Line:    start,
				})
				cur, seen, start = append([]string(nil), cur[cut:]...), 0, start+cut
			}
		}
		if len(cur) == 0 && strings.TrimSpace(line) == "" {
			start = i + 1
			continue
		}
		cur = append(cur, line)
		seen |= sig
	}

	if len(cur) > 0 {
		switch {
		// A fragment carrying its own account number is kept apart so it
		// surfaces as a rejection instead of vanishing into its neighbour.
		case s.ready(cur), len(blocks) > 0 && seen&signalAccountNumber != 0:
			blocks = append(blocks, models.AccountBlock{Text: joinLines(cur), Section: kind, Line: start})
		case len(blocks) > 0:
			last := &blocks[len(blocks)-1]
			last.Text += "\n" + joinLines(cur)
		}
	}
	return blocks
}

// boundary decides whether a signal line starts a new account given what
// the current block already holds. A creditor header always does; a
// repeated account number or status line means the previous account
// ended without a header; an amount line only splits off leading text
// that carried no signal at all.
func boundary(sig, seen lineSignal) bool {
	switch {
	case sig&signalHeader != 0:
		return true
	case sig&signalAccountNumber != 0:
		return seen&signalAccountNumber != 0
	case sig&signalStatus != 0:
		return seen&signalStatus != 0
	case sig&signalAmount != 0:
		return seen == 0
	}
	return false
}

// trailingHeader returns the index of the last non-blank line of cur when
// it looks like a bare creditor header, or -1.
func (s *Splitter) trailingHeader(cur []string) int {
	for k := len(cur) - 1; k >= 0; k-- {
		line := strings.TrimSpace(cur[k])
		if line == "" {
			continue
		}
		switch {
		case !matchAny(s.rules.HeaderLines, line),
			!s.rules.CreditorToken.MatchString(line),
			matchAny(s.rules.AddressMarkers, line),
			matchAny(s.rules.AccountNumberLines, line),
			matchAny(s.rules.StatusLines, line),
			matchAny(s.rules.AmountLines, line):
			return -1
		}
		return k
	}
	return -1
}

func (s *Splitter) ready(cur []string) bool {
	text := joinLines(cur)
	return len(text) >= s.minLength && s.rules.CreditorToken.MatchString(text)
}

func (s *Splitter) signal(lines []string, i int) lineSignal {
	line := strings.TrimSpace(lines[i])
	if line == "" {
		return 0
	}
	switch {
	case s.isHeader(line, nextNonEmpty(lines, i)):
		return signalHeader
	case matchAny(s.rules.AccountNumberLines, line):
		return signalAccountNumber
	case matchAny(s.rules.StatusLines, line):
		return signalStatus
	case matchAny(s.rules.AmountLines, line):
		return signalAmount
	}
	return 0
}

// isHeader matches an all-caps creditor line directly followed by an
// address line.
func (s *Splitter) isHeader(line, next string) bool {
	if next == "" || !matchAny(s.rules.HeaderLines, line) || !s.rules.CreditorToken.MatchString(line) {
		return false
	}
	if matchAny(s.rules.AddressMarkers, line) {
		return false
	}
	return matchAny(s.rules.AddressMarkers, next)
}

func nextNonEmpty(lines []string, i int) string {
	for j := i + 1; j < len(lines); j++ {
		if l := strings.TrimSpace(lines[j]); l != "" {
			return l
		}
	}
	return ""
}

func joinLines(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
