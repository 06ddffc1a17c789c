package rules

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

// ErrInvalidTables is returned when a rule set cannot be compiled.
var ErrInvalidTables = errors.New("invalid rule tables")

// Anchor is the compiled alternation of every anchor phrase for one kind.
type Anchor struct {
	Kind models.SectionKind
	Re   *regexp.Regexp
}

// AccountTypeMatcher is a compiled AccountTypeRule.
type AccountTypeMatcher struct {
	Type     models.AccountType
	Keywords []*regexp.Regexp
}

// Keyword is a compiled phrase that keeps its source text for audit trails.
type Keyword struct {
	Text string
	Re   *regexp.Regexp
}

// NegativeRule holds the keywords for one negative category.
type NegativeRule struct {
	Type     models.NegativeType
	Keywords []Keyword
}

// BureauMatcher recognises the names a bureau goes by.
type BureauMatcher struct {
	Bureau  models.Bureau
	Aliases []*regexp.Regexp
}

// Compiled is the read-only, ready-to-use form of Tables. It is safe for
// concurrent use; callers must not mutate its fields.
type Compiled struct {
	tables Tables

	Anchors            []Anchor
	HeaderLines        []*regexp.Regexp
	AddressMarkers     []*regexp.Regexp
	AccountNumberLines []*regexp.Regexp
	StatusLines        []*regexp.Regexp
	AmountLines        []*regexp.Regexp
	CreditorToken      *regexp.Regexp

	// CreditorChain is header, suffix and label patterns in priority order.
	CreditorChain     []*regexp.Regexp
	CreditorStopWords []string

	FieldPatterns map[Field][]*regexp.Regexp
	UnknownValues map[string]bool
	AccountTypes  []AccountTypeMatcher
	Bureaus       []BureauMatcher

	HistoryMonths map[string]string
	StatusCodes   map[string]string

	Negative        []NegativeRule
	PositivePhrases []*regexp.Regexp

	Abbreviations map[string]string
	SuffixWords   map[string]bool

	MinBlockLength int
}

// Tables returns the source tables the rule set was compiled from.
func (c *Compiled) Tables() Tables {
	return c.tables
}

// Compile validates t and builds every regular expression up front.
func Compile(t Tables) (*Compiled, error) {
	if t.MinBlockLength <= 0 {
		return nil, fmt.Errorf("%w: min_block_length must be positive, got %d", ErrInvalidTables, t.MinBlockLength)
	}

	c := &Compiled{
		tables:            t,
		FieldPatterns:     make(map[Field][]*regexp.Regexp, len(t.FieldPatterns)),
		UnknownValues:     make(map[string]bool, len(t.UnknownValues)),
		HistoryMonths:     make(map[string]string, len(t.HistoryMonths)),
		StatusCodes:       make(map[string]string, len(t.StatusCodes)),
		Abbreviations:     make(map[string]string, len(t.CreditorAbbreviations)),
		SuffixWords:       make(map[string]bool, len(t.CreditorSuffixWords)),
		MinBlockLength:    t.MinBlockLength,
		CreditorStopWords: upperAll(t.CreditorStopWords),
	}

	var err error
	for kind := range t.SectionAnchors {
		if !knownKind(kind) || kind == models.SectionUnclassified {
			return nil, fmt.Errorf("%w: unknown section kind %q", ErrInvalidTables, kind)
		}
	}
	for _, kind := range models.SectionKinds {
		phrases := t.SectionAnchors[kind]
		if len(phrases) == 0 {
			continue
		}
		alts := make([]string, 0, len(phrases))
		for _, p := range phrases {
			if strings.TrimSpace(p) == "" {
				return nil, fmt.Errorf("%w: empty anchor for %s", ErrInvalidTables, kind)
			}
			alts = append(alts, phraseExpr(p))
		}
		re, err := regexp.Compile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
		if err != nil {
			return nil, fmt.Errorf("%w: anchors for %s: %v", ErrInvalidTables, kind, err)
		}
		c.Anchors = append(c.Anchors, Anchor{Kind: kind, Re: re})
	}

	if c.HeaderLines, err = compileAll("header_lines", t.HeaderLines); err != nil {
		return nil, err
	}
	if c.AddressMarkers, err = compileAll("address_markers", t.AddressMarkers); err != nil {
		return nil, err
	}
	if c.AccountNumberLines, err = compileAll("account_number_lines", t.AccountNumberLines); err != nil {
		return nil, err
	}
	if c.StatusLines, err = compileAll("status_lines", t.StatusLines); err != nil {
		return nil, err
	}
	if c.AmountLines, err = compileAll("amount_lines", t.AmountLines); err != nil {
		return nil, err
	}
	if t.CreditorToken == "" {
		return nil, fmt.Errorf("%w: creditor_token is empty", ErrInvalidTables)
	}
	if c.CreditorToken, err = regexp.Compile(t.CreditorToken); err != nil {
		return nil, fmt.Errorf("%w: creditor_token: %v", ErrInvalidTables, err)
	}

	chain := make([]string, 0, len(t.CreditorHeader)+len(t.CreditorSuffix)+len(t.CreditorLabel))
	chain = append(chain, t.CreditorHeader...)
	chain = append(chain, t.CreditorSuffix...)
	chain = append(chain, t.CreditorLabel...)
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: no creditor patterns", ErrInvalidTables)
	}
	if c.CreditorChain, err = compileCaptures("creditor", chain); err != nil {
		return nil, err
	}

	for _, f := range Fields {
		res, err := compileCaptures(string(f), t.FieldPatterns[f])
		if err != nil {
			return nil, err
		}
		if len(res) == 0 {
			return nil, fmt.Errorf("%w: field %s has no patterns", ErrInvalidTables, f)
		}
		c.FieldPatterns[f] = res
	}

	for _, v := range t.UnknownValues {
		c.UnknownValues[strings.ToLower(strings.TrimSpace(v))] = true
	}

	for _, rule := range t.AccountTypes {
		m := AccountTypeMatcher{Type: rule.Type}
		for _, kw := range rule.Keywords {
			re, err := compilePhrase(kw)
			if err != nil {
				return nil, fmt.Errorf("%w: account type %s: %v", ErrInvalidTables, rule.Type, err)
			}
			m.Keywords = append(m.Keywords, re)
		}
		c.AccountTypes = append(c.AccountTypes, m)
	}

	bureaus := make([]string, 0, len(t.BureauAliases))
	for b := range t.BureauAliases {
		bureaus = append(bureaus, string(b))
	}
	sort.Strings(bureaus)
	for _, b := range bureaus {
		m := BureauMatcher{Bureau: models.Bureau(b)}
		for _, alias := range t.BureauAliases[models.Bureau(b)] {
			re, err := compilePhrase(alias)
			if err != nil {
				return nil, fmt.Errorf("%w: bureau %s: %v", ErrInvalidTables, b, err)
			}
			m.Aliases = append(m.Aliases, re)
		}
		c.Bureaus = append(c.Bureaus, m)
	}

	for k, v := range t.HistoryMonths {
		c.HistoryMonths[strings.ToUpper(k)] = v
	}
	for k, v := range t.StatusCodes {
		c.StatusCodes[strings.ToUpper(k)] = v
	}

	seen := make(map[models.NegativeType]bool, len(t.NegativeOrder))
	for _, nt := range t.NegativeOrder {
		if seen[nt] {
			return nil, fmt.Errorf("%w: negative type %s listed twice", ErrInvalidTables, nt)
		}
		seen[nt] = true
		kws := t.NegativeKeywords[nt]
		if len(kws) == 0 {
			return nil, fmt.Errorf("%w: negative type %s has no keywords", ErrInvalidTables, nt)
		}
		rule := NegativeRule{Type: nt}
		for _, kw := range kws {
			re, err := compilePhrase(kw)
			if err != nil {
				return nil, fmt.Errorf("%w: negative keyword %q: %v", ErrInvalidTables, kw, err)
			}
			rule.Keywords = append(rule.Keywords, Keyword{Text: kw, Re: re})
		}
		c.Negative = append(c.Negative, rule)
	}
	for nt := range t.NegativeKeywords {
		if !seen[nt] {
			return nil, fmt.Errorf("%w: negative type %s missing from negative_order", ErrInvalidTables, nt)
		}
	}
	for _, p := range t.PositivePhrases {
		re, err := compilePhrase(p)
		if err != nil {
			return nil, fmt.Errorf("%w: positive phrase %q: %v", ErrInvalidTables, p, err)
		}
		c.PositivePhrases = append(c.PositivePhrases, re)
	}

	for k, v := range t.CreditorAbbreviations {
		c.Abbreviations[strings.ToLower(k)] = strings.ToLower(v)
	}
	for _, w := range t.CreditorSuffixWords {
		c.SuffixWords[strings.ToLower(w)] = true
	}

	return c, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(t Tables) *Compiled {
	c, err := Compile(t)
	if err != nil {
		panic(err)
	}
	return c
}

var (
	defaultOnce     sync.Once
	defaultCompiled *Compiled
)

// Default returns the compiled built-in rule set.
func Default() *Compiled {
	defaultOnce.Do(func() {
		defaultCompiled = MustCompile(DefaultTables())
	})
	return defaultCompiled
}

// phraseExpr turns "charge off" into a word-bounded, whitespace-tolerant
// expression.
func phraseExpr(p string) string {
	words := strings.Fields(p)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return `\b` + strings.Join(words, `\s+`) + `\b`
}

func compilePhrase(p string) (*regexp.Regexp, error) {
	if strings.TrimSpace(p) == "" {
		return nil, errors.New("empty phrase")
	}
	return regexp.Compile(`(?i)` + phraseExpr(p))
}

func compileAll(name string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTables, name, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// compileCaptures additionally requires every pattern to have a capture group.
func compileCaptures(name string, patterns []string) ([]*regexp.Regexp, error) {
	res, err := compileAll(name, patterns)
	if err != nil {
		return nil, err
	}
	for _, re := range res {
		if re.NumSubexp() == 0 {
			return nil, fmt.Errorf("%w: %s pattern %q has no capture group", ErrInvalidTables, name, re.String())
		}
	}
	return res, nil
}

func knownKind(k models.SectionKind) bool {
	for _, kind := range models.SectionKinds {
		if kind == k {
			return true
		}
	}
	return false
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToUpper(strings.TrimSpace(s)))
	}
	return out
}
