// Package rules holds the pattern, keyword and code tables that drive
// extraction. Tables are plain data so they can be overridden from YAML;
// Compile turns them into the immutable form the parser stages use.
package rules

import "github.com/insightdelivered/tradeline-extractor/internal/models"

// Field names a scalar tradeline field with its own pattern chain.
type Field string

const (
	FieldAccountNumber  Field = "account_number"
	FieldAccountStatus  Field = "account_status"
	FieldAccountBalance Field = "account_balance"
	FieldCreditLimit    Field = "credit_limit"
	FieldMonthlyPayment Field = "monthly_payment"
	FieldDateOpened     Field = "date_opened"
	FieldDateClosed     Field = "date_closed"
	FieldAccountType    Field = "account_type"
	FieldCreditBureau   Field = "credit_bureau"
)

// Fields is every field that must carry at least one pattern.
var Fields = []Field{
	FieldAccountNumber,
	FieldAccountStatus,
	FieldAccountBalance,
	FieldCreditLimit,
	FieldMonthlyPayment,
	FieldDateOpened,
	FieldDateClosed,
	FieldAccountType,
	FieldCreditBureau,
}

// AccountTypeRule maps keyword phrases to an account type. Rules are
// tried in order; the first rule with a hit wins.
type AccountTypeRule struct {
	Type     models.AccountType `yaml:"type"`
	Keywords []string           `yaml:"keywords"`
}

// Tables is the editable rule set. Phrases are matched case-insensitively
// with any run of whitespace between words; Patterns are raw regular
// expressions whose first non-empty capture group is the value.
type Tables struct {
	SectionAnchors map[models.SectionKind][]string `yaml:"section_anchors"`

	// Splitter line signals.
	HeaderLines        []string `yaml:"header_lines"`
	AddressMarkers     []string `yaml:"address_markers"`
	AccountNumberLines []string `yaml:"account_number_lines"`
	StatusLines        []string `yaml:"status_lines"`
	AmountLines        []string `yaml:"amount_lines"`
	CreditorToken      string   `yaml:"creditor_token"`

	// Creditor name chain, tried header, then suffix, then label.
	CreditorHeader    []string `yaml:"creditor_header"`
	CreditorSuffix    []string `yaml:"creditor_suffix"`
	CreditorLabel     []string `yaml:"creditor_label"`
	CreditorStopWords []string `yaml:"creditor_stop_words"`

	FieldPatterns map[Field][]string `yaml:"field_patterns"`
	UnknownValues []string           `yaml:"unknown_values"`
	AccountTypes  []AccountTypeRule  `yaml:"account_types"`

	BureauAliases map[models.Bureau][]string `yaml:"bureau_aliases"`

	HistoryMonths map[string]string `yaml:"history_months"`
	StatusCodes   map[string]string `yaml:"status_codes"`

	NegativeOrder    []models.NegativeType            `yaml:"negative_order"`
	NegativeKeywords map[models.NegativeType][]string `yaml:"negative_keywords"`
	PositivePhrases  []string                         `yaml:"positive_phrases"`

	CreditorAbbreviations map[string]string `yaml:"creditor_abbreviations"`
	CreditorSuffixWords   []string          `yaml:"creditor_suffix_words"`

	MinBlockLength int `yaml:"min_block_length"`
}

const (
	amountValue = `(\$?\s*[\d,]+(?:\.\d{1,2}|;[ \t]?\d{2})?)`
	dateValue   = `(\d{1,2}/\d{1,2}/\d{2,4}|\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}|[A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4}|[A-Za-z]{3,9}\.?\s+\d{4})`
	lineValue   = `([^\n]+?)[ \t]*$`
)

// DefaultTables returns a fresh copy of the built-in rule set.
func DefaultTables() Tables {
	return Tables{
		SectionAnchors: map[models.SectionKind][]string{
			models.SectionNegativeItems: {
				"potentially negative items",
				"accounts with adverse information",
				"adverse accounts",
				"derogatory accounts",
				"negative items",
				"negative accounts",
			},
			models.SectionGoodStanding: {
				"accounts in good standing",
				"satisfactory accounts",
				"positive accounts",
				"accounts in good condition",
			},
			models.SectionInquiries: {
				"requests for your credit history",
				"hard inquiries",
				"regular inquiries",
				"credit inquiries",
				"inquiries that may impact your credit",
			},
			models.SectionPersonalInfo: {
				"personal information",
				"personal profile",
				"identification information",
			},
		},

		HeaderLines: []string{
			`^[A-Z][A-Z0-9&'.,/ -]{2,60}$`,
		},
		AddressMarkers: []string{
			`(?i)^address\s*:`,
			`(?i)^p\.?\s*o\.?\s*box\b`,
			`(?i)^\d{1,6}\s+[a-z0-9.]+(?:\s+[a-z0-9.]+)*\s+(?:st|street|ave|avenue|rd|road|blvd|dr|drive|ln|lane|way|ct|court|pkwy|parkway|hwy|highway|pl|place|cir|circle)\b`,
			`(?i)\b[a-z]{2}\s+\d{5}(?:-\d{4})?$`,
		},
		AccountNumberLines: []string{
			`(?i)^(?:account|acct)\.?\s*(?:number|num|no\.?|#)`,
		},
		StatusLines: []string{
			`(?i)^account\s+status\s*:`,
		},
		AmountLines: []string{
			`(?i)^(?:credit\s+limit|(?:current\s+)?balance)\b`,
		},
		CreditorToken: `\b[A-Z][A-Z&'.-]{2,}\b`,

		CreditorHeader: []string{
			`(?m)^[ \t]*([A-Z][A-Z0-9&'.,/\- ]{2,60}?)[ \t]*\n\s*(?i:address\s*:|p\.?\s*o\.?\s*box|\d{1,6}[ \t]+[^\n]*\b(?:st|street|ave|avenue|rd|road|blvd|dr|drive|ln|lane|way|ct|court|pkwy|hwy)\b|[^\n]*\b[a-z]{2}[ \t]+\d{5}(?:-\d{4})?[ \t]*$)`,
			`(?m)^[ \t]*([A-Z][A-Z0-9&'.\- ]{2,60}?)[ \t]+(?:P\.?\s?O\.?\s+BOX)\b`,
		},
		CreditorSuffix: []string{
			`(?m)^[ \t]*([A-Z][A-Z0-9&'.\- ]*?\b(?:BANK|CARD|CARDS|CORP|CAPITAL|FINANCIAL|CREDIT|SERVICES|LENDING|MORTGAGE|AUTO|FUNDING|ACCEPTANCE|RECOVERY|ASSOCIATES)\b[A-Z0-9&'.\- ]*?)[ \t]*$`,
			`\b((?i:chase|capital one|discover|american express|amex|citibank|citi|wells fargo|bank of america|synchrony|barclays|navient|sallie mae|ally|midland|portfolio recovery)(?:[ \t]+[A-Z][A-Z&'-]+)*)\b`,
		},
		CreditorLabel: []string{
			`(?im)^[ \t]*(?:creditor|company|furnisher|lender|original\s+creditor)(?:\s+name)?[ \t]*[:#-][ \t]*` + lineValue,
		},
		CreditorStopWords: []string{
			"ACCOUNT", "ACCOUNTS", "ACCT", "BALANCE", "STATUS", "DATE", "PAYMENT", "CREDIT LIMIT",
			"ADDRESS", "PERSONAL", "POTENTIALLY", "NEGATIVE", "INQUIRY", "INQUIRIES", "TYPE",
			"HIGH BALANCE", "MONTHLY", "REMARK", "REMARKS", "COMMENT", "COMMENTS", "PAGE",
		},

		FieldPatterns: map[Field][]string{
			FieldAccountNumber: {
				`(?im)(?:account|acct)\.?\s*(?:number|num|no\.?|#)\s*[:#]?\s*([*xX#\d][*xX#\d\-]{2,30})`,
				`(?im)(?:account|acct)\.?\s*(?:number|num|no\.?|#)\s*[:#]?\s*(unknown|n/?a|not\s+reported|none)\b`,
				`(?im)^[ \t]*account\s*:\s*([*xX\d][*xX\d\-]{2,30})`,
			},
			FieldAccountStatus: {
				`(?im)^[ \t]*(?:account\s+)?status\s*[:\-]\s*` + lineValue,
				`(?im)^[ \t]*(?:pay(?:ment)?\s+status|current\s+status|condition)\s*[:\-]\s*` + lineValue,
				`(?im)^[ \t]*(?:remarks?|comments?)\s*[:\-]\s*` + lineValue,
			},
			FieldAccountBalance: {
				`(?im)^[ \t]*(?:current\s+)?balance(?:\s+owed)?\s*[:\-]?\s*` + amountValue,
				`(?im)\bbalance\s*[:\-]\s*` + amountValue,
				`(?im)\bamount\s+owed\s*[:\-]?\s*` + amountValue,
			},
			FieldCreditLimit: {
				`(?im)\bcredit\s+limit\s*[:\-]?\s*` + amountValue,
				`(?im)\bhigh\s+(?:credit|balance)\s*[:\-]?\s*` + amountValue,
			},
			FieldMonthlyPayment: {
				`(?im)\bmonthly\s+payment\s*[:\-]?\s*` + amountValue,
				`(?im)\bscheduled\s+payment\s*[:\-]?\s*` + amountValue,
				`(?im)\bterms\s*[:\-]?\s*(\$[\d,]+(?:\.\d{1,2})?)`,
			},
			FieldDateOpened: {
				`(?im)\bdate\s+opened\s*[:\-]?\s*` + dateValue,
				`(?im)\bopen(?:ed)?\s+date\s*[:\-]?\s*` + dateValue,
				`(?im)\bopened\s*[:\-]?\s*` + dateValue,
			},
			FieldDateClosed: {
				`(?im)\bdate\s+closed\s*[:\-]?\s*` + dateValue,
				`(?im)\bclosed\s+date\s*[:\-]?\s*` + dateValue,
				`(?im)\bclosed\s*[:\-]\s*` + dateValue,
			},
			FieldAccountType: {
				`(?im)^[ \t]*(?:account\s+)?type\s*[:\-]\s*` + lineValue,
				`(?im)^[ \t]*loan\s+type\s*[:\-]\s*` + lineValue,
			},
			FieldCreditBureau: {
				`(?im)\b(?:bureau|reported\s+by|reporting\s+agency|source)\s*[:\-]\s*` + lineValue,
			},
		},
		UnknownValues: []string{"unknown", "n/a", "na", "not reported", "none"},
		AccountTypes: []AccountTypeRule{
			{Type: models.AccountCollection, Keywords: []string{"collection", "collection agency", "debt buyer"}},
			{Type: models.AccountMortgage, Keywords: []string{"mortgage", "real estate", "home loan", "home equity"}},
			{Type: models.AccountAutoLoan, Keywords: []string{"auto loan", "automobile", "auto", "vehicle"}},
			{Type: models.AccountStudentLoan, Keywords: []string{"student loan", "educational", "education loan"}},
			{Type: models.AccountCreditCard, Keywords: []string{"credit card", "charge card", "revolving", "card"}},
			{Type: models.AccountPersonalLoan, Keywords: []string{"personal loan", "installment", "unsecured loan"}},
		},

		BureauAliases: map[models.Bureau][]string{
			models.BureauExperian:   {"experian"},
			models.BureauEquifax:    {"equifax"},
			models.BureauTransUnion: {"transunion", "trans union"},
		},

		HistoryMonths: map[string]string{
			"JAN": "01", "FEB": "02", "MAR": "03", "APR": "04", "MAY": "05", "JUN": "06",
			"JUL": "07", "AUG": "08", "SEP": "09", "SEPT": "09", "OCT": "10", "NOV": "11", "DEC": "12",
		},
		StatusCodes: map[string]string{
			"OK":  "On-time",
			"C":   "On-time",
			"CO":  "Charge Off",
			"30":  "30 days late",
			"60":  "60 days late",
			"90":  "90 days late",
			"120": "120 days late",
			"150": "150 days late",
			"180": "180 days late",
			"CLS": "Closed",
			"ND":  "No data",
			"CA":  "Collection",
			"COL": "Collection",
			"FC":  "Foreclosure",
			"RP":  "Repossession",
			"VS":  "Voluntary surrender",
			"BK":  "Bankruptcy",
		},

		NegativeOrder: []models.NegativeType{
			models.NegativeBankruptcy,
			models.NegativeForeclosure,
			models.NegativeRepossession,
			models.NegativeTaxLien,
			models.NegativeJudgment,
			models.NegativeChargeOff,
			models.NegativeCollection,
			models.NegativeLatePayment,
		},
		NegativeKeywords: map[models.NegativeType][]string{
			models.NegativeBankruptcy:   {"bankruptcy", "chapter 7", "chapter 13", "discharged in bankruptcy"},
			models.NegativeForeclosure:  {"foreclosure", "foreclosed"},
			models.NegativeRepossession: {"repossession", "repossessed", "voluntary surrender"},
			models.NegativeTaxLien:      {"tax lien", "lien"},
			models.NegativeJudgment:     {"judgment", "judgement"},
			models.NegativeChargeOff:    {"charge off", "charge-off", "charged off", "charged-off", "chargeoff", "profit and loss", "written off"},
			models.NegativeCollection:   {"collection", "collections"},
			models.NegativeLatePayment:  {"late", "past due", "delinquent", "30 days", "60 days", "90 days", "120 days"},
		},
		PositivePhrases: []string{"never late", "no late payments", "not late", "never delinquent"},

		CreditorAbbreviations: map[string]string{
			"boa":     "bank of america",
			"bofa":    "bank of america",
			"amex":    "american express",
			"cap one": "capital one",
			"capone":  "capital one",
			"wf":      "wells fargo",
			"citi":    "citibank",
			"jpmcb":   "chase",
			"syncb":   "synchrony",
			"dfs":     "discover",
			"prag":    "portfolio recovery",
		},
		CreditorSuffixWords: []string{
			"bank", "credit", "card", "cards", "corp", "corporation", "inc", "llc",
			"financial", "services", "service", "association", "co", "company", "usa", "na",
		},

		MinBlockLength: 40,
	}
}
