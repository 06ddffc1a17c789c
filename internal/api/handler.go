// Package api exposes extraction over HTTP.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/insightdelivered/tradeline-extractor/internal/extractor"
	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/pipeline"
	"github.com/insightdelivered/tradeline-extractor/internal/writer"
)

// DefaultBodyLimit caps uploads at 32MB.
const DefaultBodyLimit = 32 << 20

// ExtractRequest is accepted as JSON, urlencoded or multipart form. A
// multipart "file" field takes precedence over Text.
type ExtractRequest struct {
	UserID   string `json:"userId" form:"userId"`
	ReportID string `json:"reportId" form:"reportId"`
	Text     string `json:"text" form:"text"`
	// DryRun extracts and matches against storage without writing.
	DryRun bool `json:"dryRun" form:"dryRun"`
	CSV    bool `json:"csv" form:"csv"`
}

// ExtractResponse is the JSON body of POST /api/extract.
type ExtractResponse struct {
	Success      bool                       `json:"success"`
	Error        string                     `json:"error,omitempty"`
	Bureau       models.Bureau              `json:"bureau,omitempty"`
	Accepted     []models.AcceptedTradeline `json:"accepted"`
	Rejected     []models.Rejection         `json:"rejected"`
	Warnings     []models.Warning           `json:"warnings"`
	Truncated    bool                       `json:"truncated"`
	UsedFallback bool                       `json:"usedFallback"`
	Count        int                        `json:"count"`
	Inserted     []string                   `json:"inserted,omitempty"`
	Patched      []string                   `json:"patched,omitempty"`
	Unchanged    int                        `json:"unchanged"`
	CSV          string                     `json:"csv,omitempty"`
	Version      string                     `json:"version,omitempty"`
}

// Handler holds the HTTP handlers.
type Handler struct {
	Service    *pipeline.Service
	Tradelines pipeline.TradelineReader
	PDF        extractor.PDFOptions
	Version    string
	Logger     *slog.Logger
}

// NewApp builds a fiber app with the handler's routes mounted.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "tradelines",
		BodyLimit:             DefaultBodyLimit,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return writeError(c, code, err.Error())
		},
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowMethods: "GET,POST,OPTIONS", AllowHeaders: "Content-Type"}))
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes mounts the API under /api.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	api := r.Group("/api")
	api.Get("/health", h.Health)
	api.Post("/extract", h.Extract)
	api.Get("/users/:userId/tradelines", h.ListTradelines)
}

// Health reports liveness.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.Version,
	})
}

// Extract runs the pipeline on an uploaded report or posted text.
func (h *Handler) Extract(c *fiber.Ctx) error {
	var req ExtractRequest
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		return writeError(c, fiber.StatusBadRequest, "userId is required")
	}

	text, err := h.requestText(c, req)
	if err != nil {
		return writeError(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	if strings.TrimSpace(text) == "" {
		return writeError(c, fiber.StatusBadRequest, "no report supplied; send a 'file' upload or 'text'")
	}

	ctx := c.UserContext()
	var sum pipeline.ApplySummary
	if req.DryRun {
		existing, err := h.Tradelines.GetTradelines(ctx, req.UserID)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, err.Error())
		}
		res, err := h.Service.Pipeline().Extract(ctx, text, req.UserID, existing)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, err.Error())
		}
		sum = pipeline.ApplySummary{ReportID: req.ReportID, UserID: req.UserID, Result: res}
	} else {
		sum, err = h.Service.ProcessText(ctx, req.ReportID, text, req.UserID)
		if err != nil {
			h.logger().Error("extract failed", "user_id", req.UserID, "error", err)
			return writeError(c, fiber.StatusInternalServerError, err.Error())
		}
	}

	resp := newResponse(sum, h.Version)
	if req.CSV {
		var buf bytes.Buffer
		w := &writer.CSVWriter{IncludeHeader: true}
		if err := w.Write(&buf, sum.Result); err != nil {
			return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
		}
		resp.CSV = buf.String()
	}
	return c.JSON(resp)
}

// ListTradelines returns a user's stored tradelines.
func (h *Handler) ListTradelines(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("userId"))
	if userID == "" {
		return writeError(c, fiber.StatusBadRequest, "userId is required")
	}
	tls, err := h.Tradelines.GetTradelines(c.UserContext(), userID)
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, err.Error())
	}
	if tls == nil {
		tls = []models.StoredTradeline{}
	}
	return c.JSON(fiber.Map{"success": true, "count": len(tls), "tradelines": tls})
}

func (h *Handler) requestText(c *fiber.Ctx, req ExtractRequest) (string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		// No multipart file; fall back to posted text.
		return req.Text, nil
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	return extractor.ReadUpload(c.UserContext(), fh.Filename, data, h.PDF)
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func newResponse(sum pipeline.ApplySummary, version string) ExtractResponse {
	res := sum.Result
	resp := ExtractResponse{
		Success:      true,
		Bureau:       res.Bureau,
		Accepted:     res.Accepted,
		Rejected:     res.Rejected,
		Warnings:     res.Warnings,
		Truncated:    res.Truncated,
		UsedFallback: res.UsedFallback,
		Count:        len(res.Accepted),
		Inserted:     sum.Inserted,
		Patched:      sum.Patched,
		Unchanged:    sum.Unchanged,
		Version:      version,
	}
	// nil marshals to null; clients expect arrays.
	if resp.Accepted == nil {
		resp.Accepted = []models.AcceptedTradeline{}
	}
	if resp.Rejected == nil {
		resp.Rejected = []models.Rejection{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []models.Warning{}
	}
	return resp
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ExtractResponse{Success: false, Error: msg})
}
