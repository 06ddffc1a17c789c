package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

var (
	// MM/YYYY, common for "Date Opened" on consumer reports.
	monthYearPattern = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
	// Mon YYYY or Month YYYY
	monthNameYearPattern = regexp.MustCompile(`^([A-Za-z]{3})[A-Za-z]*\.?\s+(\d{4})$`)

	ocrSemicolonPattern = regexp.MustCompile(`(\d);(\s*)(\d)`)
	nonAmountPattern    = regexp.MustCompile(`[^\d.]`)
	creditorJunkPattern = regexp.MustCompile(`[^A-Za-z0-9&'\- ]+`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// sanitizeOCRAmounts fixes semicolons that OCR reads in place of decimal
// points: "1,234; 56" becomes "1,234.56".
func sanitizeOCRAmounts(s string) string {
	return ocrSemicolonPattern.ReplaceAllString(s, "$1.$3")
}

// normalizeAmount reduces "$1,234.56" to "1234.56". Values that are not a
// plain non-negative decimal once stripped come back empty.
func normalizeAmount(s string) string {
	s = nonAmountPattern.ReplaceAllString(sanitizeOCRAmounts(s), "")
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return ""
	}
	return s
}

// ParseDate reads the date formats seen on bureau reports. Month-only
// dates resolve to the first of the month.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if m := monthYearPattern.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return time.Time{}, false
		}
		return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), true
	}
	if m := monthNameYearPattern.FindStringSubmatch(s); m != nil {
		mon := strings.ToUpper(m[1][:1]) + strings.ToLower(m[1][1:])
		t, err := time.Parse("Jan 2006", mon+" "+m[2])
		if err == nil {
			return t, true
		}
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeDate returns s as YYYY-MM-DD, or "" when it cannot be read.
func NormalizeDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}

// cleanCreditorName keeps letters, digits and the punctuation that shows
// up in real creditor names, collapses whitespace and upper-cases.
func cleanCreditorName(s string) string {
	s = creditorJunkPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	s = strings.Trim(s, " -&'")
	return strings.ToUpper(s)
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// firstCapture walks the chain and returns the first non-empty capture
// group of the first pattern that yields one.
func firstCapture(chain []*regexp.Regexp, text string) string {
	for _, re := range chain {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		for _, g := range m[1:] {
			if v := strings.TrimSpace(g); v != "" {
				return v
			}
		}
	}
	return ""
}
