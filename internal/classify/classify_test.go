package classify

import (
	"strings"
	"testing"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		history  []models.PaymentEntry
		negative bool
		want     models.NegativeType
		reason   string // substring of Reason
	}{
		{
			name:     "charge off status",
			status:   "Charge Off",
			negative: true,
			want:     models.NegativeChargeOff,
			reason:   `"Charge Off"`,
		},
		{
			name:     "bankruptcy outranks charge off",
			status:   "Charged off, included in Chapter 7 bankruptcy",
			negative: true,
			want:     models.NegativeBankruptcy,
		},
		{
			name:     "collection status",
			status:   "Transferred to collections",
			negative: true,
			want:     models.NegativeCollection,
		},
		{
			name:     "positive phrase does not trip late",
			status:   "Open/Never late",
			negative: false,
		},
		{
			name:     "charge off outranks late payment",
			status:   "Charge off, 120 days late",
			negative: true,
			want:     models.NegativeChargeOff,
			reason:   `"Charge off, 120 days late"`,
		},
		{
			name:     "past due is late",
			status:   "Open, 30 days past due",
			negative: true,
			want:     models.NegativeLatePayment,
		},
		{
			name:   "history charge off",
			status: "",
			history: []models.PaymentEntry{
				{Month: "2015-08", Status: "Charge Off"},
				{Month: "2015-07", Status: "Charge Off"},
				{Month: "2015-06", Status: "On-time"},
			},
			negative: true,
			want:     models.NegativeChargeOff,
			reason:   "2015-08",
		},
		{
			name:   "history priority beats order",
			status: "Closed",
			history: []models.PaymentEntry{
				{Month: "2019-02", Status: "30 days late"},
				{Month: "2019-03", Status: "Repossession"},
			},
			negative: true,
			want:     models.NegativeRepossession,
		},
		{
			name:   "late history entry",
			status: "Paid",
			history: []models.PaymentEntry{
				{Month: "2020-01", Status: "On-time"},
				{Month: "2020-02", Status: "120 days late"},
			},
			negative: true,
			want:     models.NegativeLatePayment,
			reason:   "2020-02",
		},
		{
			name:   "clean account",
			status: "Open",
			history: []models.PaymentEntry{
				{Month: "2020-01", Status: "On-time"},
			},
			negative: false,
		},
	}

	c := New(rules.Default())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.status, tt.history)
			if got.IsNegative != tt.negative {
				t.Fatalf("IsNegative = %v, want %v (%+v)", got.IsNegative, tt.negative, got)
			}
			if !tt.negative {
				if got.Type != "" || got.Reason != "" {
					t.Errorf("non-negative result carries type/reason: %+v", got)
				}
				return
			}
			if got.Type != tt.want {
				t.Errorf("Type = %s, want %s", got.Type, tt.want)
			}
			if got.Matched == "" {
				t.Error("Matched should name the literal that triggered")
			}
			if !strings.HasPrefix(got.Reason, string(tt.want)) {
				t.Errorf("Reason %q should start with the type", got.Reason)
			}
			if tt.reason != "" && !strings.Contains(got.Reason, tt.reason) {
				t.Errorf("Reason %q should contain %q", got.Reason, tt.reason)
			}
		})
	}
}

func TestIsLateStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"30 days late", true},
		{"1 day late", true},
		{"On-time", false},
		{"late fee", false},
	}
	for _, tt := range tests {
		if got := IsLateStatus(tt.status); got != tt.want {
			t.Errorf("IsLateStatus(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
