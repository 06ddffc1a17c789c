package dedupe

import (
	"strings"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

// placeholderAmount is what older imports stored for "not reported".
const placeholderAmount = "$0"

func isPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == placeholderAmount
}

// fill returns a pointer to incoming when existing is a placeholder and
// incoming adds information.
func fill(existing, incoming string) *string {
	incoming = strings.TrimSpace(incoming)
	if !isPlaceholder(existing) || incoming == "" || incoming == strings.TrimSpace(existing) {
		return nil
	}
	return &incoming
}

// Merge computes the enrich-only patch for a matched record. Populated
// fields are never overwritten and a negative flag is never cleared; a
// candidate with nothing new yields an empty patch.
func Merge(existing models.StoredTradeline, c models.TradelineCandidate) models.FieldPatch {
	var p models.FieldPatch

	p.AccountBalance = fill(existing.AccountBalance, c.AccountBalance)
	p.AccountStatus = fill(existing.AccountStatus, c.AccountStatus)
	p.CreditLimit = fill(existing.CreditLimit, c.CreditLimit)
	p.MonthlyPayment = fill(existing.MonthlyPayment, c.MonthlyPayment)

	if existing.AccountType == "" && c.AccountType != "" {
		t := c.AccountType
		p.AccountType = &t
	}
	if bureauOf(existing.CreditBureau) == models.BureauUnknown && bureauOf(c.CreditBureau) != models.BureauUnknown {
		b := c.CreditBureau
		p.CreditBureau = &b
	}

	if !existing.IsNegative && c.IsNegative {
		neg := true
		p.IsNegative = &neg
		if existing.NegativeType == "" && c.NegativeType != "" {
			t := c.NegativeType
			p.NegativeType = &t
		}
		if existing.NegativeReason == "" && c.NegativeReason != "" {
			r := c.NegativeReason
			p.NegativeReason = &r
		}
	}

	if len(existing.PaymentHistory) == 0 && len(c.PaymentHistory) > 0 {
		p.PaymentHistory = append([]models.PaymentEntry(nil), c.PaymentHistory...)
	}
	return p
}
