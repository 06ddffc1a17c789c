package writer

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

func sampleResult() models.ExtractionResult {
	return models.ExtractionResult{
		Bureau:       models.BureauExperian,
		UsedFallback: true,
		Accepted: []models.AcceptedTradeline{{
			Candidate: models.TradelineCandidate{
				ID:             "tl-1",
				UserID:         "user-1",
				CreditorName:   "CHASE CARD SERVICES",
				AccountNumber:  "****1234",
				CreditBureau:   models.BureauExperian,
				AccountBalance: "$450.00",
				AccountStatus:  "Charge Off, closed",
				AccountType:    models.AccountCreditCard,
				IsNegative:     true,
				NegativeType:   models.NegativeChargeOff,
				PaymentHistory: []models.PaymentEntry{
					{Month: "2015-08", Status: "Charge Off"},
					{Month: "2015-07", Status: "30 days late"},
				},
			},
		}},
		Rejected: []models.Rejection{{Reason: "creditor name not found"}},
	}
}

func TestCSVWriterWrite(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	if err := w.Write(&buf, sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := csv.NewReader(strings.NewReader(buf.String()))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	// 4 metadata rows, the header, one tradeline.
	if len(records) != 6 {
		t.Fatalf("got %d records, want 6: %v", len(records), records)
	}
	if records[0][0] != "# Bureau" || records[0][1] != "Experian" {
		t.Errorf("bureau row = %v", records[0])
	}
	if records[3][0] != "# Fallback" {
		t.Errorf("fallback row = %v", records[3])
	}
	if strings.Join(records[4], ",") != strings.Join(Columns, ",") {
		t.Errorf("header = %v", records[4])
	}

	row := records[5]
	if len(row) != len(Columns) {
		t.Fatalf("row has %d fields, want %d", len(row), len(Columns))
	}
	if row[1] != "CHASE CARD SERVICES" || row[5] != "Charge Off, closed" || row[11] != "true" {
		t.Errorf("row = %v", row)
	}
	if row[14] != "2015-08:Charge Off;2015-07:30 days late" {
		t.Errorf("history = %q", row[14])
	}
}

func TestCSVWriterWithoutHeader(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{}
	if err := w.Write(&buf, sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(buf.String(), "# ") {
		t.Error("metadata rows written without IncludeHeader")
	}
	if !strings.HasPrefix(buf.String(), "ID,Creditor,") {
		t.Errorf("output should start with the column header: %q", buf.String())
	}
}

func TestCSVWriterWriteTradelines(t *testing.T) {
	stored := []models.StoredTradeline{
		models.NewStoredTradeline(sampleResult().Accepted[0].Candidate),
	}
	var buf bytes.Buffer
	w := &CSVWriter{IncludeHeader: true}
	if err := w.WriteTradelines(&buf, stored); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "# User,user-1\n# Tradelines,1\n") {
		t.Errorf("unexpected metadata: %q", out)
	}

	buf.Reset()
	if err := w.WriteTradelines(&buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != strings.Join(Columns, ",") {
		t.Errorf("empty export should be the header only: %q", buf.String())
	}
}

func TestCSVWriterWriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w := &CSVWriter{}
	if err := w.WriteToFile(path, sampleResult()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "****1234") {
		t.Errorf("file content = %q", data)
	}

	if err := w.WriteToFile(filepath.Join(t.TempDir(), "missing", "out.csv"), sampleResult()); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestFormatHistory(t *testing.T) {
	if got := formatHistory(nil); got != "" {
		t.Errorf("formatHistory(nil) = %q", got)
	}
}
