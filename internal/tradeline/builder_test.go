package tradeline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/insightdelivered/tradeline-extractor/internal/classify"
	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testBuilder() *Builder {
	return NewBuilder(
		WithIDFunc(func() string { return "tl-1" }),
		WithClock(func() time.Time { return fixedTime }),
	)
}

func TestBuild(t *testing.T) {
	p := models.PartialTradeline{
		CreditorName:   " CHASE CARD SERVICES ",
		AccountNumber:  "****1234",
		AccountBalance: "450",
		CreditLimit:    "1500.5",
		AccountStatus:  "Charge Off",
		AccountType:    models.AccountCreditCard,
	}
	cls := classify.Classification{
		IsNegative: true,
		Type:       models.NegativeChargeOff,
		Reason:     `charge_off: account status "Charge Off" matched "Charge Off"`,
	}

	c, err := testBuilder().Build(p, cls, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != "tl-1" || !c.CreatedAt.Equal(fixedTime) {
		t.Errorf("ID/CreatedAt = %q/%v", c.ID, c.CreatedAt)
	}
	if c.CreditorName != "CHASE CARD SERVICES" {
		t.Errorf("CreditorName = %q", c.CreditorName)
	}
	if c.AccountBalance != "$450.00" || c.CreditLimit != "$1500.50" || c.MonthlyPayment != "" {
		t.Errorf("amounts = %q %q %q", c.AccountBalance, c.CreditLimit, c.MonthlyPayment)
	}
	if c.CreditBureau != models.BureauUnknown {
		t.Errorf("CreditBureau = %q, want Unknown", c.CreditBureau)
	}
	if !c.IsNegative || c.NegativeType != models.NegativeChargeOff || c.NegativeReason == "" {
		t.Errorf("negative fields = %v %q %q", c.IsNegative, c.NegativeType, c.NegativeReason)
	}
}

func TestBuildNonNegativeDropsType(t *testing.T) {
	p := models.PartialTradeline{CreditorName: "DISCOVER", AccountNumber: "6011"}
	cls := classify.Classification{Type: models.NegativeLatePayment, Reason: "stale"}
	c, err := testBuilder().Build(p, cls, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.IsNegative || c.NegativeType != "" || c.NegativeReason != "" {
		t.Errorf("non-negative candidate carries negative fields: %+v", c)
	}
}

func TestBuildRejects(t *testing.T) {
	tests := []struct {
		name    string
		partial models.PartialTradeline
		userID  string
		reason  string
	}{
		{
			name:    "missing creditor",
			partial: models.PartialTradeline{AccountNumber: "1234"},
			userID:  "u",
			reason:  "creditor name not found",
		},
		{
			name:    "short creditor",
			partial: models.PartialTradeline{CreditorName: "AB", AccountNumber: "1234"},
			userID:  "u",
			reason:  "shorter than 3",
		},
		{
			name:    "missing account number",
			partial: models.PartialTradeline{CreditorName: "CHASE"},
			userID:  "u",
			reason:  "account number not found",
		},
		{
			name:    "missing user",
			partial: models.PartialTradeline{CreditorName: "CHASE", AccountNumber: "1234"},
			userID:  " ",
			reason:  "user id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testBuilder().Build(tt.partial, classify.Classification{}, tt.userID)
			if !errors.Is(err, ErrInvalidCandidate) {
				t.Fatalf("error = %v, want ErrInvalidCandidate", err)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("error %q should mention %q", err, tt.reason)
			}
		})
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		symbol, amount, want string
	}{
		{"$", "1234.5", "$1234.50"},
		{"$", "0", "$0.00"},
		{"£", "12", "£12.00"},
		{"$", "", ""},
		{"$", "x", ""},
	}
	for _, tt := range tests {
		if got := FormatCurrency(tt.symbol, tt.amount); got != tt.want {
			t.Errorf("FormatCurrency(%q, %q) = %q, want %q", tt.symbol, tt.amount, got, tt.want)
		}
	}
}

func TestNewBuilderDefaults(t *testing.T) {
	b := NewBuilder()
	c, err := b.Build(models.PartialTradeline{CreditorName: "CHASE", AccountNumber: "1"}, classify.Classification{}, "u")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.ID) != 36 {
		t.Errorf("expected a uuid, got %q", c.ID)
	}
	if c.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt not UTC: %v", c.CreatedAt)
	}
}
