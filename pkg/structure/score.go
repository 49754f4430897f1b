package structure

import (
	"github.com/ai-libre/docintel/pkg/feature"
)

// scoreResult holds the intermediate scoring data for one block, reused by
// both candidacy detection and logical-level assignment.
type scoreResult struct {
	total          int
	headingNodeSub int
	styleSub       int
	fontDelta      float64 // feature font size minus body baseline; 0 when unknown
}

const (
	candidacyThreshold   = 3
	highStyleThreshold   = 6
	mediumStyleThreshold = 4
)

func score(f feature.Features, bodyBaseline float64) scoreResult {
	var headingSub int
	if f.IsHeadingStyle {
		headingSub += 4
		if f.HeadingLevel > 0 && f.HeadingLevel <= 2 {
			headingSub++
		}
	}

	var styleSub int
	var delta float64
	if f.FontSize != nil {
		delta = *f.FontSize - bodyBaseline
		switch {
		case delta >= 6:
			styleSub += 3
		case delta >= 4:
			styleSub += 2
		case delta >= 2:
			styleSub += 1
		}
	}
	if f.Bold {
		styleSub += 2
	}
	if f.Alignment == "center" {
		styleSub += 1
	}
	if f.TextLength >= 2 && f.TextLength <= 80 && f.SingleLine {
		styleSub += 1
	}
	if f.HasSectionNumber {
		styleSub += 2
	}
	switch {
	case f.Index == 0 && f.IsInFirstScreen:
		styleSub += 2
	case f.IsInFirstScreen && f.Index >= 1 && f.Index <= 2:
		styleSub += 1
	}
	if f.TextLength > 150 {
		styleSub -= 2
	}
	if !f.SingleLine {
		styleSub -= 1
	}

	return scoreResult{
		total:          headingSub + styleSub,
		headingNodeSub: headingSub,
		styleSub:       styleSub,
		fontDelta:      delta,
	}
}

func isCandidate(r scoreResult) bool {
	return r.total >= candidacyThreshold
}

// sourceAndConfidence derives the heading source tag and confidence grade from a score breakdown.
func sourceAndConfidence(f feature.Features, r scoreResult) (source string, confidence string) {
	if f.IsHeadingStyle {
		if r.styleSub >= mediumStyleThreshold {
			return "mixed", "high"
		}
		if f.HeadingLevel > 0 && f.HeadingLevel <= 2 {
			return "heading", "high"
		}
		return "heading", "medium"
	}
	if r.styleSub >= highStyleThreshold {
		return "style_inferred", "medium"
	}
	// r.styleSub >= mediumStyleThreshold or otherwise: both map to low, per
	// the "otherwise style_inferred/low" fallback.
	return "style_inferred", "low"
}

// logicalLevel derives the logical heading level (1-3) from a score breakdown.
func logicalLevel(f feature.Features, r scoreResult) int {
	if f.IsHeadingStyle {
		lvl := f.HeadingLevel
		if lvl >= 4 {
			return 3
		}
		// A level-1 marker away from the top with no supporting style (e.g.
		// one applied to a long body paragraph) is treated as level 2.
		if lvl == 1 && !f.IsNearTop && r.styleSub <= 0 {
			return 2
		}
		if lvl < 1 {
			return 3
		}
		return lvl
	}

	switch {
	case f.IsInFirstScreen && r.styleSub >= highStyleThreshold:
		return 1
	case r.fontDelta >= 4:
		if f.IsInFirstScreen {
			return 1
		}
		return 2
	case r.fontDelta >= 2:
		return 2
	case f.HasSectionNumber && r.fontDelta < 2:
		return 2
	default:
		return 3
	}
}
