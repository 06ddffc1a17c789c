package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/pipeline"
)

const chaseReport = `CHASE CARD SERVICES
Address: PO BOX 15298
Account Number: ****1234
Status: Charge Off
Balance: $450.00
`

// setupCLI runs each test from an empty directory so no config.yaml or
// .env from the checkout leaks in.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chase.txt"), []byte(chaseReport), 0o644))
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeSummaries(t *testing.T, out string) []pipeline.ApplySummary {
	t.Helper()
	var sums []pipeline.ApplySummary
	require.NoError(t, json.Unmarshal([]byte(out), &sums), out)
	return sums
}

func TestExtractJSON(t *testing.T) {
	dir := setupCLI(t)
	db := filepath.Join(dir, "tradelines.db")

	out, err := runCLI(t, "extract", "--db", db, "--apply=false", "--format=json", "--user=u-1", "chase.txt")
	require.NoError(t, err)

	sums := decodeSummaries(t, out)
	require.Len(t, sums, 1)
	assert.Equal(t, "chase.txt", sums[0].ReportID)
	assert.Equal(t, "u-1", sums[0].UserID)
	require.Len(t, sums[0].Result.Accepted, 1)

	c := sums[0].Result.Accepted[0].Candidate
	assert.Equal(t, "CHASE CARD SERVICES", c.CreditorName)
	assert.Equal(t, "****1234", c.AccountNumber)
	assert.Equal(t, "$450.00", c.AccountBalance)
	assert.True(t, c.IsNegative)
	assert.Equal(t, models.NegativeChargeOff, c.NegativeType)

	assert.NoFileExists(t, db, "a dry run must not create the database")
}

func TestExtractApplyThenMatch(t *testing.T) {
	dir := setupCLI(t)
	db := filepath.Join(dir, "store.db")

	out, err := runCLI(t, "extract", "--db", db, "--apply", "--format=json", "--user=u-1", "chase.txt")
	require.NoError(t, err)
	sums := decodeSummaries(t, out)
	require.Len(t, sums, 1)
	assert.Len(t, sums[0].Inserted, 1)
	assert.FileExists(t, db)

	// A dry run against the existing database sees the stored record.
	out, err = runCLI(t, "extract", "--db", db, "--apply=false", "--format=json", "--user=u-1", "chase.txt")
	require.NoError(t, err)
	sums = decodeSummaries(t, out)
	require.Len(t, sums[0].Result.Accepted, 1)
	m := sums[0].Result.Accepted[0].Match
	require.NotNil(t, m)
	assert.True(t, m.IsMatch)
}

func TestExtractRejectsBadFlags(t *testing.T) {
	dir := setupCLI(t)
	db := filepath.Join(dir, "tradelines.db")

	_, err := runCLI(t, "extract", "--db", db, "--apply=false", "--format=xml", "chase.txt")
	assert.ErrorContains(t, err, "unsupported format")

	_, err = runCLI(t, "extract", "--db", db, "--apply=false", "--format=json", "missing.txt")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	setupCLI(t)
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "tradelines v"+version+"\n", out)
}
