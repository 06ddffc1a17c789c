// Package writer renders tradelines for export.
package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

// Columns is the CSV header row.
var Columns = []string{
	"ID", "Creditor", "Account Number", "Bureau", "Account Type", "Status",
	"Balance", "Credit Limit", "Monthly Payment", "Date Opened", "Date Closed",
	"Negative", "Negative Type", "Negative Reason", "Payment History",
}

// CSVWriter writes tradelines as CSV, optionally preceded by "# key,value"
// metadata rows describing the extraction.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes an extraction result to path.
func (w *CSVWriter) WriteToFile(path string, res models.ExtractionResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, res); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Write writes the accepted candidates of res.
func (w *CSVWriter) Write(out io.Writer, res models.ExtractionResult) error {
	var meta [][]string
	if w.IncludeHeader {
		meta = [][]string{
			{"# Bureau", string(res.Bureau)},
			{"# Accepted", strconv.Itoa(len(res.Accepted))},
			{"# Rejected", strconv.Itoa(len(res.Rejected))},
		}
		if res.UsedFallback {
			meta = append(meta, []string{"# Fallback", "true"})
		}
		if res.Truncated {
			meta = append(meta, []string{"# Truncated", "true"})
		}
	}
	return w.write(out, meta, res.Candidates())
}

// WriteTradelines writes stored tradelines without extraction metadata.
func (w *CSVWriter) WriteTradelines(out io.Writer, tradelines []models.StoredTradeline) error {
	cands := make([]models.TradelineCandidate, 0, len(tradelines))
	for _, t := range tradelines {
		cands = append(cands, t.TradelineCandidate)
	}
	var meta [][]string
	if w.IncludeHeader && len(cands) > 0 {
		meta = [][]string{{"# User", cands[0].UserID}, {"# Tradelines", strconv.Itoa(len(cands))}}
	}
	return w.write(out, meta, cands)
}

func (w *CSVWriter) write(out io.Writer, meta [][]string, cands []models.TradelineCandidate) error {
	cw := csv.NewWriter(out)
	for _, row := range meta {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV metadata: %w", err)
		}
	}
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, c := range cands {
		if err := cw.Write(row(c)); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(c models.TradelineCandidate) []string {
	return []string{
		c.ID,
		c.CreditorName,
		c.AccountNumber,
		string(c.CreditBureau),
		string(c.AccountType),
		c.AccountStatus,
		c.AccountBalance,
		c.CreditLimit,
		c.MonthlyPayment,
		c.DateOpened,
		c.DateClosed,
		strconv.FormatBool(c.IsNegative),
		string(c.NegativeType),
		c.NegativeReason,
		formatHistory(c.PaymentHistory),
	}
}

// formatHistory renders "2015-08:Charge Off;2015-07:Charge Off".
func formatHistory(h []models.PaymentEntry) string {
	parts := make([]string, 0, len(h))
	for _, e := range h {
		parts = append(parts, e.Month+":"+e.Status)
	}
	return strings.Join(parts, ";")
}
