package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/insightdelivered/tradeline-extractor/internal/pipeline"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
	"github.com/insightdelivered/tradeline-extractor/internal/storage"
)

const chaseReport = `CHASE CARD SERVICES
Address: PO BOX 15298
Account Number: ****1234
Status: Charge Off
Balance: $450.00`

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	p, err := pipeline.New(rules.Default(), pipeline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return NewApp(&Handler{
		Service:    pipeline.NewService(p, nil, store, nil),
		Tradelines: store,
		Version:    "test",
	})
}

func postJSON(t *testing.T, app *fiber.App, body any) (*http.Response, ExtractResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("POST", "/api/extract", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return do(t, app, req)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, ExtractResponse) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var out ExtractResponse
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("invalid JSON response %q: %v", raw, err)
	}
	return resp, out
}

func listCount(t *testing.T, app *fiber.App, userID string) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/api/users/"+userID+"/tradelines", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Success    bool              `json:"success"`
		Count      int               `json:"count"`
		Tradelines []json.RawMessage `json:"tradelines"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Tradelines == nil {
		t.Error("tradelines should be an array, not null")
	}
	return body.Count
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	var result map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result["status"] != "ok" || result["engine"] != "fiber" || result["version"] != "test" {
		t.Errorf("unexpected health body: %v", result)
	}
}

func TestExtractValidation(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name    string
		body    map[string]any
		wantErr string
	}{
		{"missing user", map[string]any{"text": chaseReport}, "userId is required"},
		{"blank user", map[string]any{"userId": "  ", "text": chaseReport}, "userId is required"},
		{"no report", map[string]any{"userId": "u1", "text": "   "}, "no report supplied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := postJSON(t, app, tt.body)
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
			if out.Success || !strings.Contains(out.Error, tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", out.Error, tt.wantErr)
			}
		})
	}
}

func TestExtractDryRunDoesNotWrite(t *testing.T) {
	app := setupTestApp(t)

	resp, out := postJSON(t, app, map[string]any{"userId": "u1", "text": chaseReport, "dryRun": true})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, out.Error)
	}
	if !out.Success || out.Count != 1 {
		t.Errorf("success=%v count=%d", out.Success, out.Count)
	}
	if out.Accepted[0].Candidate.CreditorName != "CHASE CARD SERVICES" {
		t.Errorf("creditor = %q", out.Accepted[0].Candidate.CreditorName)
	}
	if len(out.Inserted) != 0 {
		t.Errorf("dry run inserted %v", out.Inserted)
	}
	if n := listCount(t, app, "u1"); n != 0 {
		t.Errorf("dry run stored %d tradelines", n)
	}
}

func TestExtractAppliesAndDeduplicates(t *testing.T) {
	app := setupTestApp(t)

	_, first := postJSON(t, app, map[string]any{"userId": "u1", "reportId": "r1", "text": chaseReport})
	if !first.Success || len(first.Inserted) != 1 {
		t.Fatalf("first run: %+v", first)
	}
	if first.Rejected == nil || first.Warnings == nil {
		t.Error("rejected and warnings should be arrays")
	}

	_, second := postJSON(t, app, map[string]any{"userId": "u1", "reportId": "r2", "text": chaseReport, "csv": true})
	if len(second.Inserted) != 0 || second.Unchanged != 1 {
		t.Errorf("second run inserted=%v unchanged=%d", second.Inserted, second.Unchanged)
	}
	if second.Accepted[0].Match == nil || !second.Accepted[0].Match.IsMatch {
		t.Error("second run should match the stored tradeline")
	}
	if !strings.Contains(second.CSV, "CHASE CARD SERVICES") {
		t.Errorf("csv = %q", second.CSV)
	}
	if n := listCount(t, app, "u1"); n != 1 {
		t.Errorf("stored %d tradelines, want 1", n)
	}
	if n := listCount(t, app, "u2"); n != 0 {
		t.Errorf("other user has %d tradelines", n)
	}
}

func TestExtractMultipartUpload(t *testing.T) {
	app := setupTestApp(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("userId", "u1")
	_ = mw.WriteField("dryRun", "true")
	fw, err := mw.CreateFormFile("file", "report.html")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write([]byte("<p>CHASE CARD SERVICES</p><p>Address: PO BOX 15298</p><p>Account Number: ****1234</p>"))
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/api/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, out := do(t, app, req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, out.Error)
	}
	if out.Count != 1 || out.Accepted[0].Candidate.AccountNumber != "****1234" {
		t.Errorf("unexpected result: %+v", out)
	}
}

func TestExtractUnsupportedUpload(t *testing.T) {
	app := setupTestApp(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("userId", "u1")
	fw, _ := mw.CreateFormFile("file", "report.docx")
	_, _ = fw.Write([]byte("binary"))
	_ = mw.Close()

	req := httptest.NewRequest("POST", "/api/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, out := do(t, app, req)
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}
	if !strings.Contains(out.Error, "unsupported report format") {
		t.Errorf("error = %q", out.Error)
	}
}
