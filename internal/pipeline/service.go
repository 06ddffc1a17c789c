package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

// ApplySummary reports what a run did to storage.
type ApplySummary struct {
	ReportID  string                  `json:"reportId,omitempty"`
	UserID    string                  `json:"userId"`
	Result    models.ExtractionResult `json:"result"`
	Inserted  []string                `json:"inserted"`
	Patched   []string                `json:"patched"`
	Unchanged int                     `json:"unchanged"`
}

// Service runs the pipeline against stored reports and writes the outcome.
type Service struct {
	pipeline *Pipeline
	source   TextSource
	store    Store
	logger   *slog.Logger

	// Reads and writes for one user must not interleave, otherwise two
	// reports could both insert the same new account.
	userLocks sync.Map
}

// NewService wires a pipeline to its collaborators. source may be nil when
// only ProcessText is used.
func NewService(p *Pipeline, source TextSource, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{pipeline: p, source: source, store: store, logger: logger}
}

// Pipeline returns the underlying pipeline.
func (s *Service) Pipeline() *Pipeline {
	return s.pipeline
}

// ProcessReport fetches a report's text and processes it for userID.
func (s *Service) ProcessReport(ctx context.Context, reportID, userID string) (ApplySummary, error) {
	if s.source == nil {
		return ApplySummary{}, errors.New("no report source configured")
	}
	text, err := s.source.ReportText(ctx, reportID)
	if err != nil {
		return ApplySummary{}, fmt.Errorf("reading report %s: %w", reportID, err)
	}
	return s.ProcessText(ctx, reportID, text, userID)
}

// ProcessText extracts tradelines from text and applies them to storage.
func (s *Service) ProcessText(ctx context.Context, reportID, text, userID string) (ApplySummary, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.store.GetTradelines(ctx, userID)
	if err != nil {
		return ApplySummary{}, fmt.Errorf("loading tradelines for %s: %w", userID, err)
	}
	res, err := s.pipeline.Extract(ctx, text, userID, existing)
	if err != nil {
		return ApplySummary{}, err
	}

	// A truncated run still persists what it accepted.
	applyCtx := ctx
	if res.Truncated {
		applyCtx = context.WithoutCancel(ctx)
	}
	return s.Apply(applyCtx, reportID, userID, res)
}

// Apply inserts new candidates and writes non-empty patches. Matches
// against a candidate inserted earlier in the same result patch that
// record, since candidates are stored under their own id.
func (s *Service) Apply(ctx context.Context, reportID, userID string, res models.ExtractionResult) (ApplySummary, error) {
	sum := ApplySummary{ReportID: reportID, UserID: userID, Result: res}

	for _, a := range res.Accepted {
		if a.Match == nil {
			id, err := s.store.InsertTradeline(ctx, a.Candidate)
			if err != nil {
				return sum, fmt.Errorf("inserting %s: %w", a.Candidate.CreditorName, err)
			}
			sum.Inserted = append(sum.Inserted, id)
			continue
		}
		if a.Patch.IsEmpty() {
			sum.Unchanged++
			continue
		}
		id := a.Match.Matched.ID
		if err := s.store.PatchTradeline(ctx, id, a.Patch); err != nil {
			return sum, fmt.Errorf("patching %s: %w", id, err)
		}
		sum.Patched = append(sum.Patched, id)
	}

	if rec, ok := s.store.(RejectionRecorder); ok && len(res.Rejected) > 0 {
		if err := rec.SaveRejections(ctx, userID, reportID, res.Rejected); err != nil {
			return sum, fmt.Errorf("saving rejections: %w", err)
		}
	}

	s.logger.Info("report applied",
		"report_id", reportID,
		"user_id", userID,
		"inserted", len(sum.Inserted),
		"patched", len(sum.Patched),
		"unchanged", sum.Unchanged,
		"rejected", len(res.Rejected),
	)
	return sum, nil
}

func (s *Service) lockFor(userID string) *sync.Mutex {
	l, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return l.(*sync.Mutex)
}
