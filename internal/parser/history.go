package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
)

var (
	// A year token starts the months that follow it: "2015: AUG CO" or
	// "Payment History: 2015 AUG CO JUL 30".
	historyYearPattern = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	// A labelled field line ends the history grid.
	historyStopPattern = regexp.MustCompile(`(?m)^[ \t]*[A-Za-z][A-Za-z /#]*:`)
)

// HistoryNormalizer reads the year/month/status grid bureaus print under
// each account.
type HistoryNormalizer struct {
	rules *rules.Compiled
	pair  *regexp.Regexp
}

// NewHistoryNormalizer builds the month/status pattern from r's month table.
func NewHistoryNormalizer(r *rules.Compiled) *HistoryNormalizer {
	months := make([]string, 0, len(r.HistoryMonths))
	for m := range r.HistoryMonths {
		months = append(months, regexp.QuoteMeta(m))
	}
	// Longest first so SEPT wins over SEP.
	sort.Slice(months, func(i, j int) bool {
		if len(months[i]) != len(months[j]) {
			return len(months[i]) > len(months[j])
		}
		return months[i] < months[j]
	})
	pair := regexp.MustCompile(`\b((?i:` + strings.Join(months, "|") + `))\s+((?i:[A-Z0-9][A-Z0-9/]{0,2}))\b`)
	return &HistoryNormalizer{rules: r, pair: pair}
}

// Normalize returns one entry per month/status pair in text order. Each
// pair takes the nearest year token before it; pairs with none are
// skipped. Status codes missing from the table are kept verbatim.
func (h *HistoryNormalizer) Normalize(text string) []models.PaymentEntry {
	years := historyYears(text)
	var entries []models.PaymentEntry
	for i, y := range years {
		year := text[y[0]:y[1]]
		end := len(text)
		if i+1 < len(years) {
			end = years[i+1][0]
		}
		region := text[y[1]:end]
		if loc := historyStopPattern.FindStringIndex(region); loc != nil {
			region = region[:loc[0]]
		}
		for _, m := range h.pair.FindAllStringSubmatch(region, -1) {
			month, ok := h.rules.HistoryMonths[strings.ToUpper(m[1])]
			if !ok {
				continue
			}
			entries = append(entries, models.PaymentEntry{
				Month:  year + "-" + month,
				Status: h.status(m[2]),
			})
		}
	}
	return entries
}

func (h *HistoryNormalizer) status(code string) string {
	if s, ok := h.rules.StatusCodes[strings.ToUpper(code)]; ok {
		return s
	}
	return code
}

// historyYears finds year tokens, skipping digits that belong to an
// amount such as "$2019.00".
func historyYears(text string) [][]int {
	var years [][]int
	for _, loc := range historyYearPattern.FindAllStringIndex(text, -1) {
		if loc[0] > 0 && strings.IndexByte("$,.", text[loc[0]-1]) >= 0 {
			continue
		}
		if loc[1]+1 < len(text) && (text[loc[1]] == '.' || text[loc[1]] == ',') && isDigit(text[loc[1]+1]) {
			continue
		}
		years = append(years, loc)
	}
	return years
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
