package parser

import (
	"sort"
	"strings"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
)

// Segmenter partitions report text into sections using the anchor phrases
// bureaus print above each group of accounts.
type Segmenter struct {
	rules *rules.Compiled
}

// NewSegmenter returns a Segmenter backed by r.
func NewSegmenter(r *rules.Compiled) *Segmenter {
	return &Segmenter{rules: r}
}

type anchorHit struct {
	kind       models.SectionKind
	start, end int
	order      int
}

// Segment returns the sections in document order and the number of anchors
// found. Text before the first anchor becomes an unclassified segment; with
// no anchors at all the whole text is one unclassified segment.
func (s *Segmenter) Segment(raw string) ([]models.SectionSegment, int) {
	var hits []anchorHit
	for i, a := range s.rules.Anchors {
		for _, loc := range a.Re.FindAllStringIndex(raw, -1) {
			hits = append(hits, anchorHit{kind: a.Kind, start: loc[0], end: loc[1], order: i})
		}
	}
	if len(hits) == 0 {
		return []models.SectionSegment{{
			Kind:  models.SectionUnclassified,
			Text:  raw,
			Start: 0,
			End:   len(raw),
		}}, 0
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].start != hits[j].start {
			return hits[i].start < hits[j].start
		}
		return hits[i].order < hits[j].order
	})

	// An anchor that starts inside the previous one is the same heading
	// seen by a second, shorter phrase.
	kept := hits[:0]
	lastEnd := -1
	for _, h := range hits {
		if h.start < lastEnd {
			continue
		}
		kept = append(kept, h)
		lastEnd = h.end
	}

	segments := make([]models.SectionSegment, 0, len(kept)+1)
	if first := kept[0].start; first > 0 && strings.TrimSpace(raw[:first]) != "" {
		segments = append(segments, models.SectionSegment{
			Kind:  models.SectionUnclassified,
			Text:  raw[:first],
			Start: 0,
			End:   first,
		})
	}
	for i, h := range kept {
		end := len(raw)
		if i+1 < len(kept) {
			end = kept[i+1].start
		}
		segments = append(segments, models.SectionSegment{
			Kind:  h.kind,
			Text:  raw[h.start:end],
			Start: h.start,
			End:   end,
		})
	}
	return segments, len(kept)
}

// ByKind concatenates every segment of the same kind, in document order,
// separated by a blank line.
func ByKind(segments []models.SectionSegment) map[models.SectionKind]string {
	out := make(map[models.SectionKind]string)
	for _, seg := range segments {
		if prev, ok := out[seg.Kind]; ok {
			out[seg.Kind] = prev + "\n\n" + seg.Text
			continue
		}
		out[seg.Kind] = seg.Text
	}
	return out
}
