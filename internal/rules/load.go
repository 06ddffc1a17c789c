package rules

import (
	"fmt"
	"maps"
	"os"

	"github.com/goccy/go-yaml"
)

// LoadFile reads a YAML rule file and overlays it on DefaultTables. Keys the
// file omits keep their defaults, so a file may carry a single table.
func LoadFile(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML rule tables and overlays them on DefaultTables.
// Unknown keys are an error.
func Parse(data []byte) (Tables, error) {
	var o Tables
	if err := yaml.UnmarshalWithOptions(data, &o, yaml.Strict()); err != nil {
		return Tables{}, fmt.Errorf("%w: %w", ErrInvalidTables, err)
	}
	return DefaultTables().Override(o), nil
}

// Override returns t with every table set in o replacing its counterpart.
// Map tables merge by key; list tables are replaced whole.
func (t Tables) Override(o Tables) Tables {
	out := t
	out.SectionAnchors = mergeMap(t.SectionAnchors, o.SectionAnchors)
	replace(&out.HeaderLines, o.HeaderLines)
	replace(&out.AddressMarkers, o.AddressMarkers)
	replace(&out.AccountNumberLines, o.AccountNumberLines)
	replace(&out.StatusLines, o.StatusLines)
	replace(&out.AmountLines, o.AmountLines)
	if o.CreditorToken != "" {
		out.CreditorToken = o.CreditorToken
	}
	replace(&out.CreditorHeader, o.CreditorHeader)
	replace(&out.CreditorSuffix, o.CreditorSuffix)
	replace(&out.CreditorLabel, o.CreditorLabel)
	replace(&out.CreditorStopWords, o.CreditorStopWords)
	out.FieldPatterns = mergeMap(t.FieldPatterns, o.FieldPatterns)
	replace(&out.UnknownValues, o.UnknownValues)
	replace(&out.AccountTypes, o.AccountTypes)
	out.BureauAliases = mergeMap(t.BureauAliases, o.BureauAliases)
	out.HistoryMonths = mergeMap(t.HistoryMonths, o.HistoryMonths)
	out.StatusCodes = mergeMap(t.StatusCodes, o.StatusCodes)
	replace(&out.NegativeOrder, o.NegativeOrder)
	out.NegativeKeywords = mergeMap(t.NegativeKeywords, o.NegativeKeywords)
	replace(&out.PositivePhrases, o.PositivePhrases)
	out.CreditorAbbreviations = mergeMap(t.CreditorAbbreviations, o.CreditorAbbreviations)
	replace(&out.CreditorSuffixWords, o.CreditorSuffixWords)
	if o.MinBlockLength > 0 {
		out.MinBlockLength = o.MinBlockLength
	}
	return out
}

func replace[T any](dst *[]T, src []T) {
	if src != nil {
		*dst = src
	}
}

func mergeMap[K comparable, V any](base, over map[K]V) map[K]V {
	if over == nil {
		return base
	}
	out := make(map[K]V, len(base)+len(over))
	maps.Copy(out, base)
	maps.Copy(out, over)
	return out
}
