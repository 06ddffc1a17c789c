package parser

import (
	"strings"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
)

// FieldExtractor pulls scalar tradeline fields out of one account block.
// Every field is optional; a miss leaves the zero value.
type FieldExtractor struct {
	rules *rules.Compiled
}

// NewFieldExtractor returns an extractor backed by r.
func NewFieldExtractor(r *rules.Compiled) *FieldExtractor {
	return &FieldExtractor{rules: r}
}

// Extract runs every field's pattern chain against block.
func (e *FieldExtractor) Extract(block string) models.PartialTradeline {
	p := models.PartialTradeline{
		CreditorName:   e.CreditorName(block),
		AccountNumber:  e.accountNumber(block),
		AccountStatus:  e.field(rules.FieldAccountStatus, block),
		AccountBalance: normalizeAmount(e.field(rules.FieldAccountBalance, block)),
		CreditLimit:    normalizeAmount(e.field(rules.FieldCreditLimit, block)),
		MonthlyPayment: normalizeAmount(e.field(rules.FieldMonthlyPayment, block)),
		DateOpened:     NormalizeDate(e.field(rules.FieldDateOpened, block)),
		DateClosed:     NormalizeDate(e.field(rules.FieldDateClosed, block)),
		CreditBureau:   ResolveBureau(e.field(rules.FieldCreditBureau, block), e.rules),
	}
	p.AccountType = e.accountType(block, p.CreditorName, p.AccountStatus)
	return p
}

// CreditorName tries the header, suffix and label patterns in order and
// returns the first capture that survives cleaning.
func (e *FieldExtractor) CreditorName(block string) string {
	for _, re := range e.rules.CreditorChain {
		for _, m := range re.FindAllStringSubmatch(block, -1) {
			for _, g := range m[1:] {
				name := cleanCreditorName(g)
				if name == "" {
					continue
				}
				if e.acceptableName(name) {
					return name
				}
				break
			}
		}
	}
	return ""
}

func (e *FieldExtractor) acceptableName(name string) bool {
	if len(name) < 2 {
		return false
	}
	for _, stop := range e.rules.CreditorStopWords {
		if leadingWords(name, stop) {
			return false
		}
	}
	return true
}

// leadingWords reports whether name opens with the whole words of prefix,
// so "DATE" stops "DATE OPENED" but not "DATELINE BANK".
func leadingWords(name, prefix string) bool {
	rest, ok := strings.CutPrefix(name, prefix)
	return ok && (rest == "" || rest[0] == ' ')
}

func (e *FieldExtractor) field(f rules.Field, block string) string {
	return firstCapture(e.rules.FieldPatterns[f], block)
}

func (e *FieldExtractor) accountNumber(block string) string {
	v := strings.Trim(e.field(rules.FieldAccountNumber, block), "-")
	if e.rules.UnknownValues[strings.ToLower(v)] {
		return models.UnknownAccountNumber
	}
	return v
}

// accountType prefers an explicit "Account Type:" label; without one it
// falls back to keywords in the creditor name and status.
func (e *FieldExtractor) accountType(block, creditor, status string) models.AccountType {
	if label := e.field(rules.FieldAccountType, block); label != "" {
		if t := e.typeFromKeywords(label); t != "" {
			return t
		}
		return models.AccountOther
	}
	return e.typeFromKeywords(creditor + "\n" + status)
}

func (e *FieldExtractor) typeFromKeywords(text string) models.AccountType {
	for _, rule := range e.rules.AccountTypes {
		if matchAny(rule.Keywords, text) {
			return rule.Type
		}
	}
	return ""
}
