package rules

import (
	"errors"
	"testing"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

func TestDefaultCompiles(t *testing.T) {
	c := Default()
	if c == nil {
		t.Fatal("Default returned nil")
	}
	if got := len(c.Anchors); got != 4 {
		t.Errorf("got %d anchor kinds, want 4", got)
	}
	for _, f := range Fields {
		if len(c.FieldPatterns[f]) == 0 {
			t.Errorf("field %s has no compiled patterns", f)
		}
	}
	if c.MinBlockLength != 40 {
		t.Errorf("MinBlockLength = %d, want 40", c.MinBlockLength)
	}
	if Default() != c {
		t.Error("Default should return the same compiled set")
	}
	if got := c.Negative[0].Type; got != models.NegativeBankruptcy {
		t.Errorf("first negative rule = %s, want bankruptcy", got)
	}
}

func TestCompileAnchorsAreWordBounded(t *testing.T) {
	c := Default()
	var negative *Anchor
	for i := range c.Anchors {
		if c.Anchors[i].Kind == models.SectionNegativeItems {
			negative = &c.Anchors[i]
		}
	}
	if negative == nil {
		t.Fatal("no negative items anchor")
	}
	tests := []struct {
		text string
		want bool
	}{
		{"POTENTIALLY NEGATIVE ITEMS", true},
		{"Potentially   negative\nitems", true},
		{"adverse accounts", true},
		{"nonnegative itemsets", false},
	}
	for _, tt := range tests {
		if got := negative.Re.MatchString(tt.text); got != tt.want {
			t.Errorf("MatchString(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestCompileInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tables)
	}{
		{
			name:   "zero min block length",
			mutate: func(t *Tables) { t.MinBlockLength = 0 },
		},
		{
			name: "unknown section kind",
			mutate: func(t *Tables) {
				t.SectionAnchors["summary"] = []string{"account summary"}
			},
		},
		{
			name: "unclassified cannot have anchors",
			mutate: func(t *Tables) {
				t.SectionAnchors[models.SectionUnclassified] = []string{"other"}
			},
		},
		{
			name:   "bad header regex",
			mutate: func(t *Tables) { t.HeaderLines = []string{"([A-Z"} },
		},
		{
			name:   "field without patterns",
			mutate: func(t *Tables) { delete(t.FieldPatterns, FieldDateClosed) },
		},
		{
			name: "field pattern without capture group",
			mutate: func(t *Tables) {
				t.FieldPatterns[FieldAccountStatus] = []string{`(?i)status:\s*\w+`}
			},
		},
		{
			name: "duplicate negative type",
			mutate: func(t *Tables) {
				t.NegativeOrder = append(t.NegativeOrder, models.NegativeChargeOff)
			},
		},
		{
			name: "keyword table missing from order",
			mutate: func(t *Tables) {
				t.NegativeOrder = t.NegativeOrder[:len(t.NegativeOrder)-1]
			},
		},
		{
			name: "negative type without keywords",
			mutate: func(t *Tables) {
				t.NegativeKeywords[models.NegativeJudgment] = nil
			},
		},
		{
			name:   "empty creditor token",
			mutate: func(t *Tables) { t.CreditorToken = "" },
		},
		{
			name: "empty anchor phrase",
			mutate: func(t *Tables) {
				t.SectionAnchors[models.SectionInquiries] = []string{"  "}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := DefaultTables()
			tt.mutate(&tables)
			c, err := Compile(tables)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrInvalidTables) {
				t.Errorf("error %v does not wrap ErrInvalidTables", err)
			}
			if c != nil {
				t.Error("expected nil Compiled on error")
			}
		})
	}
}

func TestMustCompilePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	tables := DefaultTables()
	tables.MinBlockLength = -1
	MustCompile(tables)
}

func TestCompiledTablesRoundTrip(t *testing.T) {
	tables := DefaultTables()
	tables.MinBlockLength = 55
	c, err := Compile(tables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.Tables().MinBlockLength; got != 55 {
		t.Errorf("Tables().MinBlockLength = %d, want 55", got)
	}
}
