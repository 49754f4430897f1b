// Package skeleton projects a DocStructureSnapshot into the LLM-facing
// DocSkeleton: semantic roles,
// display indices, language hint, and intro/conclusion detection.
package skeleton

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/ai-libre/docintel/pkg/structure"
)

// Role is the semantic role assigned to a skeleton node.
type Role string

const (
	RoleChapter    Role = "chapter"
	RoleSection    Role = "section"
	RoleSubsection Role = "subsection"
	RoleAppendix   Role = "appendix"
	RoleMeta       Role = "meta"
)

// Node is one entry in the LLM-facing projection of the section tree.
type Node struct {
	SectionID    string
	ParentID     string // empty for top-level nodes
	Role         Role
	DisplayIndex string
	Title        string
	ParagraphCount int

	RawScore      int
	StyleSubScore int
	Source        string
	Confidence    string

	Children []*Node
}

// Meta aggregates document-level skeleton statistics.
type Meta struct {
	ChapterCount int
	// SectionCount is every node in the flattened tree (chapters, sections,
	// subsections, appendices), not just nodes classified RoleSection.
	SectionCount     int
	HasIntro         bool
	HasConclusion    bool
	LanguageHint     string // "zh" | "en" | "mixed" | "other"
	GlobalConfidence string
	BodyFontBaseline float64
}

// DocSkeleton is the complete LLM-facing projection.
type DocSkeleton struct {
	Roots []*Node
	Meta  Meta
}

var appendixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^附录`),
	regexp.MustCompile(`(?i)^appendix`),
}

var metaTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(by|author)[:：]`),
	regexp.MustCompile(`^作者[:：]`),
	regexp.MustCompile(`^版本[:：]`),
	regexp.MustCompile(`(?i)^version[:：]`),
	regexp.MustCompile(`^日期[:：]`),
	regexp.MustCompile(`(?i)^date[:：]`),
	regexp.MustCompile(`^[©Cc]opyright`),
}

func isMetaTitle(title string) bool {
	t := strings.TrimSpace(title)
	for _, p := range metaTitlePatterns {
		if p.MatchString(t) {
			return true
		}
	}
	return false
}

var introKeywords = []string{"引言", "前言", "简介", "导言", "绪论", "introduction", "preface", "overview"}
var conclusionKeywords = []string{"结语", "结论", "总结", "后记", "conclusion", "summary", "closing remarks", "afterword"}

func matchesAny(title string, keywords []string) bool {
	lower := strings.ToLower(strings.TrimSpace(title))
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func isAppendix(title string) bool {
	for _, p := range appendixPatterns {
		if p.MatchString(strings.TrimSpace(title)) {
			return true
		}
	}
	return false
}

// Project builds a DocSkeleton from a structure snapshot.
func Project(snap structure.DocStructureSnapshot) DocSkeleton {
	counters := &counters{}
	var roots []*Node
	for i, n := range snap.Roots {
		roots = append(roots, projectNode(n, "", i+1, counters))
	}

	var flat []*Node
	flattenInto(roots, &flat)

	hasIntro, hasConclusion := false, false
	for _, n := range flat {
		if matchesAny(n.Title, introKeywords) {
			hasIntro = true
		}
		if matchesAny(n.Title, conclusionKeywords) {
			hasConclusion = true
		}
	}

	titles := make([]string, 0, len(flat))
	for _, n := range flat {
		titles = append(titles, n.Title)
	}

	return DocSkeleton{
		Roots: roots,
		Meta: Meta{
			ChapterCount:     counters.chapter,
			SectionCount:     len(flat),
			HasIntro:         hasIntro,
			HasConclusion:    hasConclusion,
			LanguageHint:     languageHint(titles),
			GlobalConfidence: snap.GlobalConfidence,
			BodyFontBaseline: snap.BodyFontBaseline,
		},
	}
}

type counters struct {
	chapter int
}

// projectNode converts one structure.SectionNode and its subtree. ordinal
// is the node's 1-based position among its siblings, used for
// "chapterIdx.childIdx" / bare childIdx display indices.
func projectNode(n *structure.SectionNode, parentID string, ordinal int, c *counters) *Node {
	role := classify(n, parentID)

	var display string
	switch role {
	case RoleChapter:
		c.chapter++
		display = fmt.Sprintf("第%d章", c.chapter)
	case RoleSection:
		display = fmt.Sprintf("%d.%d", c.chapter, ordinal)
	case RoleSubsection:
		display = fmt.Sprintf("%d", ordinal)
	default:
		display = ""
	}

	out := &Node{
		SectionID:      n.ID,
		ParentID:       parentID,
		Role:           role,
		DisplayIndex:   display,
		Title:          n.Title,
		ParagraphCount: len(n.OwnedParagraphIDs),
		RawScore:       n.RawScore,
		StyleSubScore:  n.StyleSubScore,
		Source:         n.Source,
		Confidence:     n.Confidence,
	}
	for i, child := range n.Children {
		out.Children = append(out.Children, projectNode(child, n.ID, i+1, c))
	}
	return out
}

func classify(n *structure.SectionNode, parentID string) Role {
	switch {
	case isAppendix(n.Title):
		return RoleAppendix
	case isMetaTitle(n.Title):
		return RoleMeta
	case n.Level == 1:
		return RoleChapter
	case n.Level == 2:
		if parentID == "" {
			return RoleChapter
		}
		return RoleSection
	default:
		return RoleSubsection
	}
}

func flattenInto(nodes []*Node, out *[]*Node) {
	for _, n := range nodes {
		*out = append(*out, n)
		flattenInto(n.Children, out)
	}
}

// languageHint classifies the aggregate title text: >=70% Chinese -> zh;
// >=70% English -> en; both >=30% -> mixed; else other.
func languageHint(titles []string) string {
	var chinese, english, total int
	for _, t := range titles {
		for _, r := range t {
			if unicode.IsSpace(r) || unicode.IsPunct(r) {
				continue
			}
			total++
			switch {
			case unicode.Is(unicode.Han, r):
				chinese++
			case unicode.IsLetter(r):
				english++
			}
		}
	}
	if total == 0 {
		return "other"
	}
	zhRatio := float64(chinese) / float64(total)
	enRatio := float64(english) / float64(total)

	switch {
	case zhRatio >= 0.70:
		return "zh"
	case enRatio >= 0.70:
		return "en"
	case zhRatio >= 0.30 && enRatio >= 0.30:
		return "mixed"
	default:
		return "other"
	}
}
