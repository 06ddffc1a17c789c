package rules

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

func TestParseOverlaysDefaults(t *testing.T) {
	data := []byte(`
min_block_length: 60
status_codes:
  "X": "Settled"
creditor_abbreviations:
  "nfcu": "navy federal"
positive_phrases:
  - "paid as agreed"
`)
	tables, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tables.MinBlockLength != 60 {
		t.Errorf("MinBlockLength = %d, want 60", tables.MinBlockLength)
	}
	if got := tables.StatusCodes["X"]; got != "Settled" {
		t.Errorf("StatusCodes[X] = %q, want Settled", got)
	}
	if got := tables.StatusCodes["CO"]; got != "Charge Off" {
		t.Errorf("default status code lost: CO = %q", got)
	}
	if got := tables.CreditorAbbreviations["amex"]; got != "american express" {
		t.Errorf("default abbreviation lost: amex = %q", got)
	}
	if len(tables.PositivePhrases) != 1 || tables.PositivePhrases[0] != "paid as agreed" {
		t.Errorf("PositivePhrases = %v, want replaced list", tables.PositivePhrases)
	}
	if len(tables.SectionAnchors[models.SectionNegativeItems]) == 0 {
		t.Error("anchors should keep their defaults")
	}
	if _, err := Compile(tables); err != nil {
		t.Errorf("overlaid tables do not compile: %v", err)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("min_blok_length: 10\n"))
	if err == nil {
		t.Fatal("expected error for misspelled key")
	}
	if !errors.Is(err, ErrInvalidTables) {
		t.Errorf("error %v does not wrap ErrInvalidTables", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("history_months:\n  \"SEPT.\": \"09\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	tables, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tables.HistoryMonths["SEPT."] != "09" || tables.HistoryMonths["JAN"] != "01" {
		t.Errorf("HistoryMonths = %v", tables.HistoryMonths)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOverrideDoesNotMutateBase(t *testing.T) {
	base := DefaultTables()
	out := base.Override(Tables{StatusCodes: map[string]string{"OK": "Current"}})
	if out.StatusCodes["OK"] != "Current" {
		t.Errorf("override not applied: %q", out.StatusCodes["OK"])
	}
	if base.StatusCodes["OK"] != "On-time" {
		t.Errorf("base mutated: %q", base.StatusCodes["OK"])
	}
}
