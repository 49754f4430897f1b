// Package feature derives per-block BlockFeatures from a Block snapshot,
// the structure engine's only input besides the heading marker itself.
package feature

import (
	"regexp"
	"sort"
	"unicode/utf8"

	"github.com/ai-libre/docintel/pkg/block"
)

// Features is the derived, one-per-block feature set the structure engine
// scores. It is scoped to a single structure-build pass.
type Features struct {
	BlockID           string
	IsHeadingStyle    bool // Kind == heading
	HeadingLevel      int  // raw level, 0 when not a heading
	FontSize          *float64
	Bold              bool
	Italic            bool
	Alignment         block.Alignment
	TextLength        int
	SingleLine        bool
	HasSectionNumber  bool
	Index             int
	IsNearTop         bool // index <= 2
	IsInFirstScreen   bool // index < 5
}

// numberingPatterns match a fixed list of Chinese and English section
// numbering prefixes, e.g. "第一章", "一、", "1.2", "1)", "Chapter 3".
var numberingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^第[一二三四五六七八九十百千0-9]+[章节篇部]`),
	regexp.MustCompile(`^[一二三四五六七八九十]+[、.]`),
	regexp.MustCompile(`^\d+(\.\d+)*[、.)]`),
	regexp.MustCompile(`(?i)^chapter\s+\d+`),
	regexp.MustCompile(`(?i)^section\s+\d+`),
	regexp.MustCompile(`^[ivxlcdm]+\.\s`),
}

func hasSectionNumber(text string) bool {
	for _, p := range numberingPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Extract computes Features for every block in order.
func Extract(blocks []block.Block) []Features {
	out := make([]Features, len(blocks))
	for i, b := range blocks {
		out[i] = Features{
			BlockID:          b.ID,
			IsHeadingStyle:   b.Kind == block.KindHeading,
			HeadingLevel:     headingLevel(b),
			FontSize:         b.Style.FontSize,
			Bold:             b.Style.Bold,
			Italic:           b.Style.Italic,
			Alignment:        b.Style.Alignment,
			TextLength:       utf8.RuneCountInString(b.Text),
			SingleLine:       !containsNewline(b.Text),
			HasSectionNumber: hasSectionNumber(b.Text),
			Index:            i,
			IsNearTop:        i <= 2,
			IsInFirstScreen:  i < 5,
		}
	}
	return out
}

func headingLevel(b block.Block) int {
	if b.Kind != block.KindHeading {
		return 0
	}
	return b.Level
}

func containsNewline(s string) bool {
	for _, r := range s {
		if r == '\n' {
			return true
		}
	}
	return false
}

// BodyFontBaseline is the median font size of non-heading blocks with more
// than 20 characters; defaults to 12 when there is insufficient data.
func BodyFontBaseline(feats []Features) float64 {
	var sizes []float64
	for _, f := range feats {
		if f.IsHeadingStyle || f.FontSize == nil || f.TextLength <= 20 {
			continue
		}
		sizes = append(sizes, *f.FontSize)
	}
	if len(sizes) == 0 {
		return 12
	}
	sort.Float64s(sizes)
	mid := len(sizes) / 2
	if len(sizes)%2 == 1 {
		return sizes[mid]
	}
	return (sizes[mid-1] + sizes[mid]) / 2
}
