package models

import "time"

// Bureau identifies the credit reporting agency a tradeline came from.
type Bureau string

const (
	BureauExperian   Bureau = "Experian"
	BureauEquifax    Bureau = "Equifax"
	BureauTransUnion Bureau = "TransUnion"
	BureauUnknown    Bureau = "Unknown"
)

// AccountType is the normalized kind of credit account.
type AccountType string

const (
	AccountCreditCard   AccountType = "credit_card"
	AccountMortgage     AccountType = "mortgage"
	AccountAutoLoan     AccountType = "auto_loan"
	AccountStudentLoan  AccountType = "student_loan"
	AccountPersonalLoan AccountType = "personal_loan"
	AccountCollection   AccountType = "collection"
	AccountOther        AccountType = "other"
)

// NegativeType tags why a tradeline is considered derogatory.
type NegativeType string

const (
	NegativeLatePayment  NegativeType = "late_payment"
	NegativeChargeOff    NegativeType = "charge_off"
	NegativeCollection   NegativeType = "collection"
	NegativeBankruptcy   NegativeType = "bankruptcy"
	NegativeForeclosure  NegativeType = "foreclosure"
	NegativeRepossession NegativeType = "repossession"
	NegativeTaxLien      NegativeType = "tax_lien"
	NegativeJudgment     NegativeType = "judgment"
)

// UnknownAccountNumber is stored when a report names an account but its
// number is unreadable or not reported.
const UnknownAccountNumber = "Unknown"

// PaymentEntry is one reporting period of an account's payment history.
type PaymentEntry struct {
	Month  string `json:"month"` // YYYY-MM
	Status string `json:"status"`
}

// PartialTradeline holds whatever the field extractor found in one block.
// An empty string means "not found"; nothing is validated until the builder.
type PartialTradeline struct {
	CreditorName   string
	AccountNumber  string
	CreditBureau   Bureau
	AccountBalance string // digits and decimal point only
	CreditLimit    string
	MonthlyPayment string
	DateOpened     string // YYYY-MM-DD
	DateClosed     string
	AccountStatus  string
	AccountType    AccountType
	PaymentHistory []PaymentEntry
}

// TradelineCandidate is a validated, structured account extracted from a report.
type TradelineCandidate struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	CreatedAt      time.Time      `json:"createdAt"`
	CreditorName   string         `json:"creditorName"`
	AccountNumber  string         `json:"accountNumber"`
	CreditBureau   Bureau         `json:"creditBureau"`
	AccountBalance string         `json:"accountBalance"`
	CreditLimit    string         `json:"creditLimit"`
	MonthlyPayment string         `json:"monthlyPayment"`
	DateOpened     string         `json:"dateOpened"`
	DateClosed     string         `json:"dateClosed"`
	AccountStatus  string         `json:"accountStatus"`
	AccountType    AccountType    `json:"accountType"`
	IsNegative     bool           `json:"isNegative"`
	NegativeType   NegativeType   `json:"negativeType,omitempty"`
	NegativeReason string         `json:"negativeReason,omitempty"`
	PaymentHistory []PaymentEntry `json:"paymentHistory"`
}

// StoredTradeline is the persisted counterpart of a candidate.
type StoredTradeline struct {
	TradelineCandidate
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewStoredTradeline wraps a candidate as if it had just been inserted.
func NewStoredTradeline(c TradelineCandidate) StoredTradeline {
	return StoredTradeline{TradelineCandidate: c, UpdatedAt: c.CreatedAt}
}

// MatchCriteria records which identity checks agreed.
type MatchCriteria struct {
	CreditorName  bool `json:"creditorNameMatch"`
	AccountNumber bool `json:"accountNumberMatch"`
	DateOpened    bool `json:"dateOpenedMatch"`
	CreditBureau  bool `json:"creditBureauMatch"`
}

// FuzzyMatchResult is the matcher's verdict for one candidate/stored pair.
type FuzzyMatchResult struct {
	IsMatch    bool             `json:"isMatch"`
	Confidence int              `json:"confidence"` // 0-100, advisory
	Criteria   MatchCriteria    `json:"matchingCriteria"`
	Matched    *StoredTradeline `json:"matchedStoredTradeline,omitempty"`
}
