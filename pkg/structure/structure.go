// Package structure implements the Document Structure Engine: it derives a section tree from a block sequence whose heading
// markers may be missing, wrong, or inconsistent with visual styling.
//
// Build is a pure function: it never panics, never retries, and degrades
// to a low-confidence empty snapshot rather than escalating an error.
package structure

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/ai-libre/docintel/pkg/block"
	"github.com/ai-libre/docintel/pkg/feature"
)

// ParagraphRole classifies a block's role within the document.
type ParagraphRole string

const (
	RoleDocTitle     ParagraphRole = "doc_title"
	RoleSectionTitle ParagraphRole = "section_title"
	RoleBody         ParagraphRole = "body"
	RoleListItem     ParagraphRole = "list_item"
	RoleQuote        ParagraphRole = "quote"
	RoleMeta         ParagraphRole = "meta"
	RoleUnknown      ParagraphRole = "unknown"
)

// HeadingCandidate is a block whose composite heading score exceeded the
// candidacy threshold.
type HeadingCandidate struct {
	BlockIndex    int
	BlockID       string
	RawScore      int
	StyleSubScore int
	Level         int    // assigned logical level: 1, 2, or 3
	Source        string // "heading" | "style_inferred" | "mixed"
	Confidence    string // "high" | "medium" | "low"
}

// SectionNode is a node in the section tree.
type SectionNode struct {
	ID                string
	Level             int
	TitleBlockID      string
	Title             string
	StartIndex        int
	EndIndex          int
	OwnedParagraphIDs []string
	Children          []*SectionNode

	RawScore      int
	StyleSubScore int
	Source        string
	Confidence    string
}

// DocStructureSnapshot is the full output of a structure-build pass.
type DocStructureSnapshot struct {
	Roots            []*SectionNode
	ParagraphRoles    map[string]ParagraphRole
	TotalBlocks       int
	TotalSections     int
	DocTitleBlockID   string
	BodyFontBaseline  float64
	GlobalConfidence  string
}

var metaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(by|author)[:：]`),
	regexp.MustCompile(`^作者[:：]`),
	regexp.MustCompile(`^版本[:：]`),
	regexp.MustCompile(`(?i)^version[:：]?\s*v?\d`),
	regexp.MustCompile(`^日期[:：]`),
	regexp.MustCompile(`(?i)^date[:：]`),
	regexp.MustCompile(`^[©Cc]opyright`),
	regexp.MustCompile(`^©`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	regexp.MustCompile(`^\d{4}年\d{1,2}月\d{1,2}日$`),
}

func looksLikeMeta(text string) bool {
	t := strings.TrimSpace(text)
	for _, p := range metaPatterns {
		if p.MatchString(t) {
			return true
		}
	}
	return false
}

// Build derives a DocStructureSnapshot from an ordered block sequence. An
// empty sequence yields an empty snapshot with low global confidence.
func Build(blocks []block.Block) DocStructureSnapshot {
	if len(blocks) == 0 {
		return DocStructureSnapshot{
			ParagraphRoles:   map[string]ParagraphRole{},
			GlobalConfidence: "low",
		}
	}

	feats := feature.Extract(blocks)
	baseline := feature.BodyFontBaseline(feats)

	candidates := detectCandidates(feats, baseline)
	roots := buildTree(blocks, candidates)

	paragraphRoles := assignParagraphRoles(blocks, roots)
	docTitleID := promoteDocTitle(roots, paragraphRoles)

	var flat []*SectionNode
	flattenInto(roots, &flat)

	return DocStructureSnapshot{
		Roots:            roots,
		ParagraphRoles:   paragraphRoles,
		TotalBlocks:      len(blocks),
		TotalSections:    len(flat),
		DocTitleBlockID:  docTitleID,
		BodyFontBaseline: baseline,
		GlobalConfidence: rollupConfidence(flat),
	}
}

func detectCandidates(feats []feature.Features, baseline float64) []HeadingCandidate {
	var out []HeadingCandidate
	for _, f := range feats {
		r := score(f, baseline)
		if !isCandidate(r) {
			continue
		}
		source, confidence := sourceAndConfidence(f, r)
		out = append(out, HeadingCandidate{
			BlockIndex:    f.Index,
			BlockID:       f.BlockID,
			RawScore:      r.total,
			StyleSubScore: r.styleSub,
			Level:         logicalLevel(f, r),
			Source:        source,
			Confidence:    confidence,
		})
	}
	return out
}

type openFrame struct {
	node *SectionNode
}

// buildTree scans candidates in
// order, maintain a stack of open sections, pop while the stack top's level
// is >= the current candidate's level.
func buildTree(blocks []block.Block, candidates []HeadingCandidate) []*SectionNode {
	var roots []*SectionNode
	var stack []openFrame

	for _, c := range candidates {
		for len(stack) > 0 && stack[len(stack)-1].node.Level >= c.Level {
			top := stack[len(stack)-1]
			top.node.EndIndex = c.BlockIndex
			stack = stack[:len(stack)-1]
		}

		node := &SectionNode{
			ID:            uuid.NewString(),
			Level:         c.Level,
			TitleBlockID:  c.BlockID,
			Title:         blocks[c.BlockIndex].Text,
			StartIndex:    c.BlockIndex,
			RawScore:      c.RawScore,
			StyleSubScore: c.StyleSubScore,
			Source:        c.Source,
			Confidence:    c.Confidence,
		}

		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1].node
			parent.Children = append(parent.Children, node)
		}

		stack = append(stack, openFrame{node: node})
	}

	for _, f := range stack {
		f.node.EndIndex = len(blocks)
	}

	assignOwnedParagraphs(roots, blocks)
	return roots
}

// assignOwnedParagraphs implements "Owned paragraphs": for each section,
// enumerate block indices in (startIndex, endIndex) not covered by any
// child's range.
func assignOwnedParagraphs(nodes []*SectionNode, blocks []block.Block) {
	for _, n := range nodes {
		covered := make([]bool, n.EndIndex-n.StartIndex)
		for _, c := range n.Children {
			for i := c.StartIndex; i < c.EndIndex; i++ {
				if i-n.StartIndex >= 0 && i-n.StartIndex < len(covered) {
					covered[i-n.StartIndex] = true
				}
			}
		}
		for i := n.StartIndex + 1; i < n.EndIndex; i++ {
			if !covered[i-n.StartIndex] {
				n.OwnedParagraphIDs = append(n.OwnedParagraphIDs, blocks[i].ID)
			}
		}
		assignOwnedParagraphs(n.Children, blocks)
	}
}

// assignParagraphRoles titles get
// section_title; list/quote blocks map directly; near-top single-line
// meta-pattern text maps to meta; everything else is body, except blocks
// inside no section at all which are still classified the same way.
func assignParagraphRoles(blocks []block.Block, roots []*SectionNode) map[string]ParagraphRole {
	titleIDs := map[string]bool{}
	var collectTitles func([]*SectionNode)
	collectTitles = func(nodes []*SectionNode) {
		for _, n := range nodes {
			titleIDs[n.TitleBlockID] = true
			collectTitles(n.Children)
		}
	}
	collectTitles(roots)

	roles := make(map[string]ParagraphRole, len(blocks))
	for i, b := range blocks {
		switch {
		case titleIDs[b.ID]:
			roles[b.ID] = RoleSectionTitle
		case b.Kind == block.KindList:
			roles[b.ID] = RoleListItem
		case b.Kind == block.KindQuote:
			roles[b.ID] = RoleQuote
		case i < 3 && !strings.Contains(b.Text, "\n") && looksLikeMeta(b.Text):
			roles[b.ID] = RoleMeta
		default:
			roles[b.ID] = RoleBody
		}
	}
	return roles
}

// promoteDocTitle implements the "first_h1" strategy: the first level-1
// section's title is promoted to doc_title.
func promoteDocTitle(roots []*SectionNode, roles map[string]ParagraphRole) string {
	var find func([]*SectionNode) *SectionNode
	find = func(nodes []*SectionNode) *SectionNode {
		for _, n := range nodes {
			if n.Level == 1 {
				return n
			}
			if found := find(n.Children); found != nil {
				return found
			}
		}
		return nil
	}
	first := find(roots)
	if first == nil {
		return ""
	}
	roles[first.TitleBlockID] = RoleDocTitle
	return first.TitleBlockID
}

func flattenInto(nodes []*SectionNode, out *[]*SectionNode) {
	for _, n := range nodes {
		*out = append(*out, n)
		flattenInto(n.Children, out)
	}
}

// rollupConfidence implements the global confidence rule: high iff >=70%
// of sections are high and <10% are low; low iff >=50% are low; else medium.
func rollupConfidence(flat []*SectionNode) string {
	if len(flat) == 0 {
		return "low"
	}
	var high, low int
	for _, n := range flat {
		switch n.Confidence {
		case "high":
			high++
		case "low":
			low++
		}
	}
	total := float64(len(flat))
	highRatio := float64(high) / total
	lowRatio := float64(low) / total

	switch {
	case highRatio >= 0.70 && lowRatio < 0.10:
		return "high"
	case lowRatio >= 0.50:
		return "low"
	default:
		return "medium"
	}
}
