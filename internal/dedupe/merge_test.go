package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

func TestMergeFillsPlaceholders(t *testing.T) {
	existing := stored("a", "CHASE", "1234", models.BureauUnknown, "")
	existing.AccountBalance = "$0"
	existing.CreditLimit = "$2000.00"
	existing.MonthlyPayment = "$0.00"

	c := candidate("CHASE", "1234", models.BureauExperian, "")
	c.AccountBalance = "$450.00"
	c.CreditLimit = "$2500.00"
	c.MonthlyPayment = "$35.00"
	c.AccountStatus = "Open"
	c.AccountType = models.AccountCreditCard
	c.PaymentHistory = []models.PaymentEntry{{Month: "2024-01", Status: "On-time"}}

	p := Merge(existing, c)
	require.NotNil(t, p.AccountBalance)
	assert.Equal(t, "$450.00", *p.AccountBalance)
	assert.Nil(t, p.CreditLimit, "populated field must not be overwritten")
	assert.Nil(t, p.MonthlyPayment, "$0.00 is a real value")
	require.NotNil(t, p.AccountStatus)
	assert.Equal(t, "Open", *p.AccountStatus)
	require.NotNil(t, p.AccountType)
	assert.Equal(t, models.AccountCreditCard, *p.AccountType)
	require.NotNil(t, p.CreditBureau)
	assert.Equal(t, models.BureauExperian, *p.CreditBureau)
	assert.Len(t, p.PaymentHistory, 1)
	assert.Nil(t, p.IsNegative)

	assert.Equal(t, []string{
		"account_balance", "account_status", "account_type", "credit_bureau", "payment_history",
	}, p.Fields())

	p.Apply(&existing)
	assert.Equal(t, "$450.00", existing.AccountBalance)
	assert.Equal(t, models.BureauExperian, existing.CreditBureau)
	assert.True(t, Merge(existing, c).IsEmpty(), "merging twice must be a no-op")
}

func TestMergeNegativePromotion(t *testing.T) {
	existing := stored("a", "CHASE", "1234", models.BureauUnknown, "")
	c := candidate("CHASE", "1234", models.BureauUnknown, "")
	c.IsNegative = true
	c.NegativeType = models.NegativeChargeOff
	c.NegativeReason = "charge_off: account status \"Charge Off\" matched \"Charge Off\""

	p := Merge(existing, c)
	require.NotNil(t, p.IsNegative)
	assert.True(t, *p.IsNegative)
	require.NotNil(t, p.NegativeType)
	assert.Equal(t, models.NegativeChargeOff, *p.NegativeType)
	require.NotNil(t, p.NegativeReason)
}

func TestMergeNeverDemotes(t *testing.T) {
	existing := stored("a", "CHASE", "1234", models.BureauUnknown, "")
	existing.IsNegative = true
	existing.NegativeType = models.NegativeLatePayment
	existing.NegativeReason = "late"

	c := candidate("CHASE", "1234", models.BureauUnknown, "")
	p := Merge(existing, c)
	assert.True(t, p.IsEmpty())

	c.IsNegative = true
	c.NegativeType = models.NegativeChargeOff
	p = Merge(existing, c)
	assert.Nil(t, p.IsNegative)
	assert.Nil(t, p.NegativeType, "existing negative type is kept")
}

func TestMergeKeepsStoredValues(t *testing.T) {
	existing := stored("a", "CHASE", "1234", models.BureauEquifax, "")
	existing.AccountStatus = "Open"
	existing.AccountType = models.AccountOther
	existing.PaymentHistory = []models.PaymentEntry{{Month: "2023-12", Status: "On-time"}}

	c := candidate("CHASE", "1234", models.BureauExperian, "")
	c.AccountStatus = "Closed"
	c.AccountType = models.AccountCreditCard
	c.PaymentHistory = []models.PaymentEntry{{Month: "2024-01", Status: "30 days late"}}

	assert.True(t, Merge(existing, c).IsEmpty())
}
