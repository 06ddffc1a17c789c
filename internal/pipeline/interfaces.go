package pipeline

import (
	"context"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

// TextSource supplies the raw text of a stored credit report.
type TextSource interface {
	ReportText(ctx context.Context, reportID string) (string, error)
}

// TradelineReader lists a user's tradelines in a stable storage order.
type TradelineReader interface {
	GetTradelines(ctx context.Context, userID string) ([]models.StoredTradeline, error)
}

// TradelineWriter persists new candidates and enrich-only patches.
type TradelineWriter interface {
	InsertTradeline(ctx context.Context, c models.TradelineCandidate) (string, error)
	PatchTradeline(ctx context.Context, id string, patch models.FieldPatch) error
}

// Store is the storage a Service needs.
type Store interface {
	TradelineReader
	TradelineWriter
}

// RejectionRecorder is implemented by stores that keep rejected blocks for
// operator review.
type RejectionRecorder interface {
	SaveRejections(ctx context.Context, userID, reportID string, rejections []models.Rejection) error
}
