// Package pipeline wires the extraction stages together: segment, split,
// extract, normalize history, classify, build, and resolve duplicates.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/insightdelivered/tradeline-extractor/internal/classify"
	"github.com/insightdelivered/tradeline-extractor/internal/dedupe"
	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/parser"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
	"github.com/insightdelivered/tradeline-extractor/internal/tradeline"
)

var (
	// ErrNilRules is returned by New without a rule set.
	ErrNilRules = errors.New("pipeline: rules are required")
	// ErrEmptyUserID is returned by Extract when no user is given.
	ErrEmptyUserID = errors.New("pipeline: user id is required")
)

// accountKinds are the sections that hold accounts. Inquiries and
// personal details are never turned into tradelines.
var accountKinds = []models.SectionKind{
	models.SectionNegativeItems,
	models.SectionGoodStanding,
	models.SectionUnclassified,
}

// Options tune a Pipeline. The zero value is usable.
type Options struct {
	Logger         *slog.Logger
	TiePolicy      dedupe.TiePolicy
	MinBlockLength int
	// Timeout bounds a single Extract call on top of the caller's context.
	Timeout        time.Duration
	BuilderOptions []tradeline.Option
}

// Pipeline is stateless between calls and safe for concurrent use.
type Pipeline struct {
	rules      *rules.Compiled
	segmenter  *parser.Segmenter
	splitter   *parser.Splitter
	extractor  *parser.FieldExtractor
	history    *parser.HistoryNormalizer
	classifier *classify.Classifier
	builder    *tradeline.Builder
	matcher    *dedupe.Matcher
	timeout    time.Duration
	logger     *slog.Logger
}

// New assembles a Pipeline from a compiled rule set.
func New(r *rules.Compiled, opts Options) (*Pipeline, error) {
	if r == nil {
		return nil, ErrNilRules
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		rules:      r,
		segmenter:  parser.NewSegmenter(r),
		splitter:   parser.NewSplitter(r, opts.MinBlockLength),
		extractor:  parser.NewFieldExtractor(r),
		history:    parser.NewHistoryNormalizer(r),
		classifier: classify.New(r),
		builder:    tradeline.NewBuilder(opts.BuilderOptions...),
		matcher:    dedupe.NewMatcher(r, opts.TiePolicy),
		timeout:    opts.Timeout,
		logger:     logger,
	}, nil
}

// ExtractTradelines runs the built-in rule set with default options.
func ExtractTradelines(ctx context.Context, raw, userID string, existing []models.StoredTradeline) (models.ExtractionResult, error) {
	p, err := New(rules.Default(), Options{})
	if err != nil {
		return models.ExtractionResult{}, err
	}
	return p.Extract(ctx, raw, userID, existing)
}

// Extract turns one report into candidates. Malformed data never fails
// the call: unusable blocks land in Rejected and structural problems in
// Warnings. If ctx ends mid-run the blocks processed so far are returned
// with Truncated set. The only errors are caller mistakes.
func (p *Pipeline) Extract(ctx context.Context, raw, userID string, existing []models.StoredTradeline) (models.ExtractionResult, error) {
	if strings.TrimSpace(userID) == "" {
		return models.ExtractionResult{}, ErrEmptyUserID
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	res := models.ExtractionResult{Bureau: parser.DetectBureau(raw, p.rules)}
	if strings.TrimSpace(raw) == "" {
		return res, nil
	}

	blocks := p.blocks(raw, &res)

	// Earlier candidates from this run join the match set so a report that
	// lists an account twice does not insert it twice.
	working := make([]models.StoredTradeline, len(existing), len(existing)+len(blocks))
	copy(working, existing)

	for i, block := range blocks {
		if err := ctx.Err(); err != nil {
			res.Truncated = true
			res.Warnings = append(res.Warnings, models.Warning{
				Code:    models.WarnTimeout,
				Message: fmt.Sprintf("stopped after %d of %d blocks: %v", i, len(blocks), err),
			})
			p.logger.Warn("extraction truncated", "user_id", userID, "processed", i, "blocks", len(blocks), "error", err)
			break
		}
		working = p.processBlock(&res, block, userID, working)
	}

	p.logger.Info("extraction complete",
		"user_id", userID,
		"bureau", res.Bureau,
		"blocks", len(blocks),
		"accepted", len(res.Accepted),
		"rejected", len(res.Rejected),
		"fallback", res.UsedFallback,
		"truncated", res.Truncated,
	)
	return res, nil
}

// blocks runs segmentation and splitting, falling back to the whole text
// as a single block when neither finds structure.
func (p *Pipeline) blocks(raw string, res *models.ExtractionResult) []models.AccountBlock {
	segments, anchors := p.segmenter.Segment(raw)
	if anchors == 0 {
		res.UsedFallback = true
		res.Warnings = append(res.Warnings, models.Warning{
			Code:    models.WarnNoAnchors,
			Message: "no section headings found; treating the whole report as one section",
		})
	}

	byKind := parser.ByKind(segments)
	var blocks []models.AccountBlock
	for _, kind := range accountKinds {
		if text, ok := byKind[kind]; ok {
			blocks = append(blocks, p.splitter.Split(text, kind)...)
		}
	}
	if len(blocks) == 0 {
		res.UsedFallback = true
		res.Warnings = append(res.Warnings, models.Warning{
			Code:    models.WarnNoBlocks,
			Message: fmt.Sprintf("no account blocks of at least %d characters; extracting from the whole report", p.splitter.MinLength()),
		})
		blocks = []models.AccountBlock{{Text: strings.TrimSpace(raw), Section: models.SectionUnclassified}}
	}
	return blocks
}

func (p *Pipeline) processBlock(res *models.ExtractionResult, block models.AccountBlock, userID string, working []models.StoredTradeline) []models.StoredTradeline {
	trace := models.BlockTrace{Section: block.Section, Line: block.Line, Length: len(block.Text)}

	partial := p.extractor.Extract(block.Text)
	partial.PaymentHistory = p.history.Normalize(block.Text)
	if partial.CreditBureau == "" {
		partial.CreditBureau = res.Bureau
	}
	cls := p.classifier.Classify(partial.AccountStatus, partial.PaymentHistory)

	cand, err := p.builder.Build(partial, cls, userID)
	if err != nil {
		reason := strings.TrimPrefix(err.Error(), tradeline.ErrInvalidCandidate.Error()+": ")
		res.Rejected = append(res.Rejected, models.Rejection{
			BlockText: block.Text,
			Section:   block.Section,
			Reason:    reason,
		})
		trace.Result, trace.Detail = "rejected", reason
		res.Trace = append(res.Trace, trace)
		p.logger.Debug("block rejected", "user_id", userID, "section", block.Section, "line", block.Line, "reason", reason)
		return working
	}

	if block.Section == models.SectionNegativeItems && !cand.IsNegative {
		res.Warnings = append(res.Warnings, models.Warning{
			Code:    models.WarnUnconfirmedNegative,
			Message: fmt.Sprintf("%s %s is listed under negative items but no negative status was found", cand.CreditorName, cand.AccountNumber),
		})
	}

	matches := p.matcher.Matches(cand, working)
	if len(matches) > 1 {
		res.Warnings = append(res.Warnings, models.Warning{
			Code:    models.WarnAmbiguousMatch,
			Message: fmt.Sprintf("%s %s matches %d stored tradelines", cand.CreditorName, cand.AccountNumber, len(matches)),
		})
	}

	accepted := models.AcceptedTradeline{Candidate: cand, Match: p.matcher.Pick(matches)}
	if accepted.Match == nil {
		working = append(working, models.NewStoredTradeline(cand))
		trace.Result = "new"
	} else {
		accepted.Patch = dedupe.Merge(*accepted.Match.Matched, cand)
		for i := range working {
			if working[i].ID == accepted.Match.Matched.ID {
				accepted.Patch.Apply(&working[i])
				break
			}
		}
		trace.Result = "matched"
		trace.Detail = fmt.Sprintf("%s (confidence %d, patch %v)", accepted.Match.Matched.ID, accepted.Match.Confidence, accepted.Patch.Fields())
	}
	res.Accepted = append(res.Accepted, accepted)
	res.Trace = append(res.Trace, trace)
	p.logger.Debug("block accepted",
		"user_id", userID,
		"creditor", cand.CreditorName,
		"negative", cand.IsNegative,
		"result", trace.Result,
	)
	return working
}
