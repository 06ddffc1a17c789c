package parser

import (
	"testing"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
)

func TestDetectBureau(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected models.Bureau
	}{
		{
			name:     "detects Experian",
			text:     "Experian Credit Report\nPrepared for JANE DOE",
			expected: models.BureauExperian,
		},
		{
			name:     "detects TransUnion written as two words",
			text:     "TRANS UNION LLC\nPersonal Credit Report",
			expected: models.BureauTransUnion,
		},
		{
			name:     "detects Equifax",
			text:     "equifax.com/personal",
			expected: models.BureauEquifax,
		},
		{
			name:     "merged report is unknown",
			text:     "TransUnion | Experian | Equifax",
			expected: models.BureauUnknown,
		},
		{
			name:     "no bureau",
			text:     "Some Report",
			expected: models.BureauUnknown,
		},
	}

	r := rules.Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectBureau(tt.text, r); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestResolveBureau(t *testing.T) {
	r := rules.Default()
	tests := []struct {
		value    string
		expected models.Bureau
	}{
		{"Experian", models.BureauExperian},
		{"TRANS UNION", models.BureauTransUnion},
		{"Innovis", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := ResolveBureau(tt.value, r); got != tt.expected {
				t.Errorf("ResolveBureau(%q) = %q, want %q", tt.value, got, tt.expected)
			}
		})
	}
}
