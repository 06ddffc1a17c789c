// Package tradeline assembles validated tradeline candidates.
package tradeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/tradeline-extractor/internal/classify"
	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

// MinCreditorNameLength is the shortest creditor name a candidate may carry.
const MinCreditorNameLength = 3

// ErrInvalidCandidate wraps every validation failure.
var ErrInvalidCandidate = errors.New("invalid tradeline candidate")

// Builder turns extracted fields plus a classification into a candidate.
type Builder struct {
	newID  func() string
	now    func() time.Time
	symbol string
}

// Option configures a Builder.
type Option func(*Builder)

// WithIDFunc replaces the uuid generator, mainly for tests.
func WithIDFunc(f func() string) Option {
	return func(b *Builder) { b.newID = f }
}

// WithClock replaces time.Now.
func WithClock(f func() time.Time) Option {
	return func(b *Builder) { b.now = f }
}

// WithCurrencySymbol sets the prefix used on amounts. Default "$".
func WithCurrencySymbol(s string) Option {
	return func(b *Builder) { b.symbol = s }
}

// NewBuilder returns a Builder with uuid ids and a UTC clock.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		newID:  uuid.NewString,
		now:    func() time.Time { return time.Now().UTC() },
		symbol: "$",
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates p and returns the candidate. Errors wrap
// ErrInvalidCandidate and describe the failing field.
func (b *Builder) Build(p models.PartialTradeline, c classify.Classification, userID string) (models.TradelineCandidate, error) {
	bureau := p.CreditBureau
	if bureau == "" {
		bureau = models.BureauUnknown
	}
	cand := models.TradelineCandidate{
		UserID:         userID,
		CreditorName:   strings.TrimSpace(p.CreditorName),
		AccountNumber:  strings.TrimSpace(p.AccountNumber),
		CreditBureau:   bureau,
		AccountBalance: FormatCurrency(b.symbol, p.AccountBalance),
		CreditLimit:    FormatCurrency(b.symbol, p.CreditLimit),
		MonthlyPayment: FormatCurrency(b.symbol, p.MonthlyPayment),
		DateOpened:     p.DateOpened,
		DateClosed:     p.DateClosed,
		AccountStatus:  strings.TrimSpace(p.AccountStatus),
		AccountType:    p.AccountType,
		IsNegative:     c.IsNegative,
		PaymentHistory: p.PaymentHistory,
	}
	if c.IsNegative {
		cand.NegativeType = c.Type
		cand.NegativeReason = c.Reason
	}
	if err := Validate(cand); err != nil {
		return models.TradelineCandidate{}, err
	}
	cand.ID = b.newID()
	cand.CreatedAt = b.now()
	return cand, nil
}

// Validate checks the identity fields every stored tradeline needs.
func Validate(c models.TradelineCandidate) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(c.CreditorName)); n < MinCreditorNameLength {
		if n == 0 {
			return fmt.Errorf("%w: creditor name not found", ErrInvalidCandidate)
		}
		return fmt.Errorf("%w: creditor name %q shorter than %d characters", ErrInvalidCandidate, c.CreditorName, MinCreditorNameLength)
	}
	if strings.TrimSpace(c.AccountNumber) == "" {
		return fmt.Errorf("%w: account number not found", ErrInvalidCandidate)
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: user id is empty", ErrInvalidCandidate)
	}
	return nil
}

// FormatCurrency renders a normalized amount such as "1234.5" as
// "$1234.50". Empty or unreadable input stays empty.
func FormatCurrency(symbol, amount string) string {
	if amount == "" {
		return ""
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return ""
	}
	return symbol + d.StringFixed(2)
}
