package models

// SectionKind is a coarse region of a credit report.
type SectionKind string

const (
	SectionNegativeItems SectionKind = "negative_items"
	SectionGoodStanding  SectionKind = "good_standing"
	SectionInquiries     SectionKind = "inquiries"
	SectionPersonalInfo  SectionKind = "personal_info"
	SectionUnclassified  SectionKind = "unclassified"
)

// SectionKinds lists every kind in the order anchors are evaluated.
var SectionKinds = []SectionKind{
	SectionNegativeItems,
	SectionGoodStanding,
	SectionInquiries,
	SectionPersonalInfo,
	SectionUnclassified,
}

// SectionSegment is a span of report text attributed to one section kind.
type SectionSegment struct {
	Kind  SectionKind
	Text  string
	Start int // byte offsets into the raw text
	End   int
}

// AccountBlock is the text believed to describe exactly one account.
type AccountBlock struct {
	Text    string
	Section SectionKind
	Line    int // first line within the section text
}

// Rejection is a block that failed validation, kept for operator review.
type Rejection struct {
	BlockText string      `json:"blockText"`
	Section   SectionKind `json:"section"`
	Reason    string      `json:"reason"`
}

// Warning codes surfaced in ExtractionResult.Warnings.
const (
	WarnNoAnchors           = "no_anchors"
	WarnNoBlocks            = "no_blocks"
	WarnAmbiguousMatch      = "ambiguous_match"
	WarnTimeout             = "timeout"
	WarnUnconfirmedNegative = "unconfirmed_negative"
)

// Warning is a data-quality signal that did not stop extraction.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AcceptedTradeline pairs a valid candidate with its identity resolution.
// Match is nil when the candidate is new; Patch is empty when nothing
// would change on the matched record.
type AcceptedTradeline struct {
	Candidate TradelineCandidate `json:"candidate"`
	Match     *FuzzyMatchResult  `json:"match,omitempty"`
	Patch     FieldPatch         `json:"patch"`
}

// BlockTrace captures what the pipeline did with each block.
type BlockTrace struct {
	Section SectionKind `json:"section"`
	Line    int         `json:"line"`
	Length  int         `json:"length"`
	Result  string      `json:"result"` // "new", "matched", "rejected"
	Detail  string      `json:"detail,omitempty"`
}

// ExtractionResult is everything one pipeline run produces.
type ExtractionResult struct {
	Bureau       Bureau              `json:"bureau"`
	Accepted     []AcceptedTradeline `json:"accepted"`
	Rejected     []Rejection         `json:"rejected"`
	Warnings     []Warning           `json:"warnings"`
	Truncated    bool                `json:"truncated"`
	UsedFallback bool                `json:"usedFallback"`
	Trace        []BlockTrace        `json:"trace,omitempty"`
}

// Candidates returns the accepted candidates in extraction order.
func (r ExtractionResult) Candidates() []TradelineCandidate {
	out := make([]TradelineCandidate, 0, len(r.Accepted))
	for _, a := range r.Accepted {
		out = append(out, a.Candidate)
	}
	return out
}

// HasWarning reports whether a warning with the given code was raised.
func (r ExtractionResult) HasWarning(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
