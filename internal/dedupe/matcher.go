// Package dedupe resolves extracted candidates against tradelines already
// on file and computes the fields a re-extraction may fill in.
package dedupe

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/parser"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
)

// Confidence weights per agreeing criterion. They sum to 100.
const (
	WeightCreditorName  = 30
	WeightAccountNumber = 25
	WeightDateOpened    = 25
	WeightCreditBureau  = 20
)

// AccountPrefixLength is how many leading digits identify an account.
// Bureaus mask different parts of the number, so only a prefix compares.
const AccountPrefixLength = 4

// TiePolicy chooses between several stored records that all match.
type TiePolicy string

const (
	// TieFirst takes the first match in storage order.
	TieFirst TiePolicy = "first"
	// TieBest takes the highest confidence, storage order breaking ties.
	TieBest TiePolicy = "best"
)

// ParseTiePolicy validates a configured policy name.
func ParseTiePolicy(s string) (TiePolicy, error) {
	switch TiePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case TieFirst, "":
		return TieFirst, nil
	case TieBest:
		return TieBest, nil
	default:
		return "", fmt.Errorf("unknown tie policy %q (want %q or %q)", s, TieFirst, TieBest)
	}
}

var (
	nonAlnumPattern  = regexp.MustCompile(`[^a-z0-9 ]+`)
	spacesPattern    = regexp.MustCompile(`\s+`)
	nonDigitsPattern = regexp.MustCompile(`\D`)
)

// Matcher decides whether a candidate and a stored tradeline are the same
// account.
type Matcher struct {
	rules *rules.Compiled
	tie   TiePolicy
}

// NewMatcher returns a Matcher. An empty policy means TieFirst.
func NewMatcher(r *rules.Compiled, tie TiePolicy) *Matcher {
	if tie == "" {
		tie = TieFirst
	}
	return &Matcher{rules: r, tie: tie}
}

// NormalizeCreditor lower-cases, strips punctuation, expands a whole-name
// abbreviation and drops trailing generic words, so "CHASE CARD SERVICES"
// and "Chase" compare equal.
func (m *Matcher) NormalizeCreditor(name string) string {
	s := strings.ToLower(name)
	s = nonAlnumPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(spacesPattern.ReplaceAllString(s, " "))
	if full, ok := m.rules.Abbreviations[s]; ok {
		s = full
	}
	s = m.stripSuffixes(s)
	// "JPMCB CARD" only becomes an abbreviation once "card" is gone.
	if full, ok := m.rules.Abbreviations[s]; ok {
		s = m.stripSuffixes(full)
	}
	return s
}

func (m *Matcher) stripSuffixes(s string) string {
	words := strings.Fields(s)
	n := len(words)
	for n > 0 && m.rules.SuffixWords[words[n-1]] {
		n--
	}
	if n == 0 {
		return s
	}
	return strings.Join(words[:n], " ")
}

// AccountPrefix returns the leading digits of a masked account number.
func AccountPrefix(account string) string {
	digits := nonDigitsPattern.ReplaceAllString(account, "")
	if len(digits) > AccountPrefixLength {
		digits = digits[:AccountPrefixLength]
	}
	return digits
}

// IsUnresolvedAccount reports whether an account number carries no usable
// digits: the Unknown sentinel, empty, or fully masked.
func IsUnresolvedAccount(account string) bool {
	a := strings.TrimSpace(account)
	if a == "" || strings.EqualFold(a, models.UnknownAccountNumber) {
		return true
	}
	return AccountPrefix(a) == ""
}

// SameDay compares two report dates by calendar day. Two missing dates
// agree; one missing or unreadable date never does.
func SameDay(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" && b == "" {
		return true
	}
	ta, okA := parser.ParseDate(a)
	tb, okB := parser.ParseDate(b)
	if !okA || !okB {
		return false
	}
	ya, ma, da := ta.Date()
	yb, mb, db := tb.Date()
	return ya == yb && ma == mb && da == db
}

func bureauOf(b models.Bureau) models.Bureau {
	if b == "" {
		return models.BureauUnknown
	}
	return b
}

// Compare scores one candidate against one stored tradeline.
func (m *Matcher) Compare(c models.TradelineCandidate, s models.StoredTradeline) models.FuzzyMatchResult {
	nameA, nameB := m.NormalizeCreditor(c.CreditorName), m.NormalizeCreditor(s.CreditorName)
	bothUnknown := IsUnresolvedAccount(c.AccountNumber) && IsUnresolvedAccount(s.AccountNumber)

	crit := models.MatchCriteria{
		CreditorName: nameA != "" && nameA == nameB,
		AccountNumber: bothUnknown ||
			(!IsUnresolvedAccount(c.AccountNumber) && AccountPrefix(c.AccountNumber) == AccountPrefix(s.AccountNumber)),
		DateOpened:   SameDay(c.DateOpened, s.DateOpened),
		CreditBureau: bureauOf(c.CreditBureau) == bureauOf(s.CreditBureau),
	}

	confidence := 0
	if crit.CreditorName {
		confidence += WeightCreditorName
	}
	if crit.AccountNumber {
		confidence += WeightAccountNumber
	}
	if crit.DateOpened {
		confidence += WeightDateOpened
	}
	if crit.CreditBureau {
		confidence += WeightCreditBureau
	}

	matched := s
	return models.FuzzyMatchResult{
		IsMatch:    crit.CreditorName && crit.CreditBureau && (bothUnknown || (crit.AccountNumber && crit.DateOpened)),
		Confidence: confidence,
		Criteria:   crit,
		Matched:    &matched,
	}
}

// Matches returns every stored tradeline the candidate matches, in
// storage order.
func (m *Matcher) Matches(c models.TradelineCandidate, existing []models.StoredTradeline) []models.FuzzyMatchResult {
	var out []models.FuzzyMatchResult
	for _, s := range existing {
		if r := m.Compare(c, s); r.IsMatch {
			out = append(out, r)
		}
	}
	return out
}

// Pick applies the tie policy. It returns nil for no matches.
func (m *Matcher) Pick(matches []models.FuzzyMatchResult) *models.FuzzyMatchResult {
	if len(matches) == 0 {
		return nil
	}
	best := 0
	if m.tie == TieBest {
		for i := range matches {
			if matches[i].Confidence > matches[best].Confidence {
				best = i
			}
		}
	}
	r := matches[best]
	return &r
}

// Match is Matches followed by Pick.
func (m *Matcher) Match(c models.TradelineCandidate, existing []models.StoredTradeline) *models.FuzzyMatchResult {
	return m.Pick(m.Matches(c, existing))
}
