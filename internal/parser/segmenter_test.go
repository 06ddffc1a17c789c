package parser

import (
	"strings"
	"testing"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
	"github.com/insightdelivered/tradeline-extractor/internal/rules"
)

const sampleReport = `Experian Credit Report
Prepared for JANE DOE

POTENTIALLY NEGATIVE ITEMS
CAPITAL ONE BANK USA
PO BOX 30281
Account Number: 517805XXXXXXXXXX
Account Status: Charged off
Balance: $1,204.00

ACCOUNTS IN GOOD STANDING
DISCOVER FINANCIAL SERVICES
PO BOX 15316
Account Number: 601100XXXXXXXXXX
Account Status: Open/Never late
Balance: $0.00

REQUESTS FOR YOUR CREDIT HISTORY
COMCAST
Date of request: 03/12/2023
`

func TestSegment(t *testing.T) {
	s := NewSegmenter(rules.Default())
	segments, anchors := s.Segment(sampleReport)

	if anchors != 3 {
		t.Fatalf("got %d anchors, want 3", anchors)
	}
	wantKinds := []models.SectionKind{
		models.SectionUnclassified,
		models.SectionNegativeItems,
		models.SectionGoodStanding,
		models.SectionInquiries,
	}
	if len(segments) != len(wantKinds) {
		t.Fatalf("got %d segments, want %d", len(segments), len(wantKinds))
	}
	for i, want := range wantKinds {
		if segments[i].Kind != want {
			t.Errorf("segment %d kind = %s, want %s", i, segments[i].Kind, want)
		}
		if got := sampleReport[segments[i].Start:segments[i].End]; got != segments[i].Text {
			t.Errorf("segment %d offsets do not match its text", i)
		}
	}
	if !strings.Contains(segments[1].Text, "CAPITAL ONE") || strings.Contains(segments[1].Text, "DISCOVER") {
		t.Errorf("negative segment has wrong content: %q", segments[1].Text)
	}
	if segments[len(segments)-1].End != len(sampleReport) {
		t.Error("last segment should run to the end of the text")
	}
}

func TestSegmentNoAnchors(t *testing.T) {
	s := NewSegmenter(rules.Default())
	raw := "CHASE CARD SERVICES\nAccount Number: ****1234"
	segments, anchors := s.Segment(raw)
	if anchors != 0 {
		t.Errorf("got %d anchors, want 0", anchors)
	}
	if len(segments) != 1 || segments[0].Kind != models.SectionUnclassified || segments[0].Text != raw {
		t.Errorf("want a single unclassified segment, got %+v", segments)
	}
}

func TestSegmentBlankPreambleDropped(t *testing.T) {
	s := NewSegmenter(rules.Default())
	segments, _ := s.Segment("\n\n  NEGATIVE ITEMS\nMIDLAND CREDIT MANAGEMENT")
	if len(segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(segments))
	}
	if segments[0].Kind != models.SectionNegativeItems {
		t.Errorf("kind = %s, want negative_items", segments[0].Kind)
	}
}

func TestSegmentOverlappingAnchors(t *testing.T) {
	// "negative items" sits inside "potentially negative items"; it must
	// not open a second segment.
	s := NewSegmenter(rules.Default())
	_, anchors := s.Segment("POTENTIALLY NEGATIVE ITEMS\nSOME BANK")
	if anchors != 1 {
		t.Errorf("got %d anchors, want 1", anchors)
	}
}

func TestByKind(t *testing.T) {
	segments := []models.SectionSegment{
		{Kind: models.SectionNegativeItems, Text: "A"},
		{Kind: models.SectionGoodStanding, Text: "B"},
		{Kind: models.SectionNegativeItems, Text: "C"},
	}
	got := ByKind(segments)
	if got[models.SectionNegativeItems] != "A\n\nC" {
		t.Errorf("negative = %q, want %q", got[models.SectionNegativeItems], "A\n\nC")
	}
	if got[models.SectionGoodStanding] != "B" {
		t.Errorf("good standing = %q", got[models.SectionGoodStanding])
	}
	if _, ok := got[models.SectionInquiries]; ok {
		t.Error("missing kinds should be absent")
	}
}
