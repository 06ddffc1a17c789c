// Package classify decides whether a tradeline is derogatory and why.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
)

var latePattern = regexp.MustCompile(`(?i)\b\d+\s+days?\s+late\b`)

// Classification is the outcome for one account. Reason names the
// literal that triggered it so a reviewer can audit the decision.
type Classification struct {
	IsNegative bool
	Type       models.NegativeType
	Reason     string
	Matched    string
}

// Classifier applies the negative keyword table in priority order.
type Classifier struct {
	rules *rules.Compiled
}

// New returns a Classifier backed by r.
func New(r *rules.Compiled) *Classifier {
	return &Classifier{rules: r}
}

// IsLateStatus reports whether a payment history status is an
// "N days late" entry.
func IsLateStatus(status string) bool {
	return latePattern.MatchString(status)
}

// Classify checks the account status first. If it carries no negative
// keyword, the payment history statuses are checked the same way, and
// finally any N-days-late entry classifies the account as a late payment.
func (c *Classifier) Classify(status string, history []models.PaymentEntry) Classification {
	if rule, kw, ok := c.firstKeyword(status); ok {
		return Classification{
			IsNegative: true,
			Type:       rule,
			Matched:    kw,
			Reason:     fmt.Sprintf("%s: account status %q matched %q", rule, strings.TrimSpace(status), kw),
		}
	}

	for _, rule := range c.rules.Negative {
		for _, e := range history {
			if kw, ok := c.matchRule(rule, e.Status); ok {
				return Classification{
					IsNegative: true,
					Type:       rule.Type,
					Matched:    kw,
					Reason:     fmt.Sprintf("%s: payment history %s reported %q", rule.Type, e.Month, e.Status),
				}
			}
		}
	}

	for _, e := range history {
		if IsLateStatus(e.Status) {
			return Classification{
				IsNegative: true,
				Type:       models.NegativeLatePayment,
				Matched:    e.Status,
				Reason:     fmt.Sprintf("%s: payment history %s reported %q", models.NegativeLatePayment, e.Month, e.Status),
			}
		}
	}
	return Classification{}
}

func (c *Classifier) firstKeyword(text string) (models.NegativeType, string, bool) {
	for _, rule := range c.rules.Negative {
		if kw, ok := c.matchRule(rule, text); ok {
			return rule.Type, kw, true
		}
	}
	return "", "", false
}

// matchRule blanks out positive phrases such as "never late" before
// looking for the rule's keywords, and returns the text that matched.
func (c *Classifier) matchRule(rule rules.NegativeRule, text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, re := range c.rules.PositivePhrases {
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			return strings.Repeat(" ", len(m))
		})
	}
	for _, kw := range rule.Keywords {
		if m := kw.Re.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}
