// Package parser turns raw credit report text into partial tradelines:
// sections, account blocks, scalar fields and payment history.
package parser

import (
	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
)

// DetectBureau identifies the bureau that produced a report. Merged
// reports mention more than one bureau and come back as Unknown.
func DetectBureau(text string, r *rules.Compiled) models.Bureau {
	found := models.BureauUnknown
	for _, b := range r.Bureaus {
		if !containsAny(text, b) {
			continue
		}
		if found != models.BureauUnknown {
			return models.BureauUnknown
		}
		found = b.Bureau
	}
	return found
}

// ResolveBureau maps a labelled value such as "Reported by: TRANS UNION"
// to a bureau, or "" when nothing is recognised.
func ResolveBureau(value string, r *rules.Compiled) models.Bureau {
	if value == "" {
		return ""
	}
	for _, b := range r.Bureaus {
		if containsAny(value, b) {
			return b.Bureau
		}
	}
	return ""
}

func containsAny(text string, b rules.BureauMatcher) bool {
	for _, re := range b.Aliases {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
