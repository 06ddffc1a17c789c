package models

// FieldPatch is a sparse update for a stored tradeline. A nil pointer (or
// empty slice) leaves the field untouched.
type FieldPatch struct {
	AccountBalance *string        `json:"accountBalance,omitempty"`
	AccountStatus  *string        `json:"accountStatus,omitempty"`
	CreditLimit    *string        `json:"creditLimit,omitempty"`
	MonthlyPayment *string        `json:"monthlyPayment,omitempty"`
	AccountType    *AccountType   `json:"accountType,omitempty"`
	CreditBureau   *Bureau        `json:"creditBureau,omitempty"`
	IsNegative     *bool          `json:"isNegative,omitempty"`
	NegativeType   *NegativeType  `json:"negativeType,omitempty"`
	NegativeReason *string        `json:"negativeReason,omitempty"`
	PaymentHistory []PaymentEntry `json:"paymentHistory,omitempty"`
}

// IsEmpty reports whether applying the patch would be a no-op.
func (p FieldPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields lists the storage column names the patch touches, in a stable order.
func (p FieldPatch) Fields() []string {
	var fields []string
	if p.AccountBalance != nil {
		fields = append(fields, "account_balance")
	}
	if p.AccountStatus != nil {
		fields = append(fields, "account_status")
	}
	if p.CreditLimit != nil {
		fields = append(fields, "credit_limit")
	}
	if p.MonthlyPayment != nil {
		fields = append(fields, "monthly_payment")
	}
	if p.AccountType != nil {
		fields = append(fields, "account_type")
	}
	if p.CreditBureau != nil {
		fields = append(fields, "credit_bureau")
	}
	if p.IsNegative != nil {
		fields = append(fields, "is_negative")
	}
	if p.NegativeType != nil {
		fields = append(fields, "negative_type")
	}
	if p.NegativeReason != nil {
		fields = append(fields, "negative_reason")
	}
	if len(p.PaymentHistory) > 0 {
		fields = append(fields, "payment_history")
	}
	return fields
}

// Apply writes the patch onto t in place.
func (p FieldPatch) Apply(t *StoredTradeline) {
	if p.AccountBalance != nil {
		t.AccountBalance = *p.AccountBalance
	}
	if p.AccountStatus != nil {
		t.AccountStatus = *p.AccountStatus
	}
	if p.CreditLimit != nil {
		t.CreditLimit = *p.CreditLimit
	}
	if p.MonthlyPayment != nil {
		t.MonthlyPayment = *p.MonthlyPayment
	}
	if p.AccountType != nil {
		t.AccountType = *p.AccountType
	}
	if p.CreditBureau != nil {
		t.CreditBureau = *p.CreditBureau
	}
	if p.IsNegative != nil {
		t.IsNegative = *p.IsNegative
	}
	if p.NegativeType != nil {
		t.NegativeType = *p.NegativeType
	}
	if p.NegativeReason != nil {
		t.NegativeReason = *p.NegativeReason
	}
	if len(p.PaymentHistory) > 0 {
		t.PaymentHistory = append([]PaymentEntry(nil), p.PaymentHistory...)
	}
}
