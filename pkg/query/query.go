// Package query implements the Structural-Query Resolver: it answers
// factual questions about document structure and statistics without
// consulting the LLM, short-circuiting the turn whenever it can.
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ai-libre/docintel/pkg/block"
	"github.com/ai-libre/docintel/pkg/skeleton"
	"github.com/ai-libre/docintel/pkg/structure"
)

// Kind classifies a resolved query.
type Kind string

const (
	KindChapterCount   Kind = "chapter_count"
	KindSectionCount   Kind = "section_count"
	KindParagraphCount Kind = "paragraph_count"
	KindWordCount      Kind = "word_count"
	KindCharCount      Kind = "char_count"
	KindTokenCount     Kind = "token_count"
	KindTitle          Kind = "title"
	KindLocator        Kind = "locator"
	KindOther          Kind = "other"
)

// Stats carries the document statistics a query may need to answer.
type Stats struct {
	CharCount      int
	WordCount      int
	TokenEstimate  int
	ParagraphCount int
}

// Result is the resolver's output for one query.
type Result struct {
	Kind                   Kind
	ShortCircuit           bool
	DirectAnswer           string
	ClarificationQuestion  string
	Confidence             string // "high" | "medium" | "low" | ""
	AlternateTitles        []string
}

var strongEditKeywords = []string{
	"重写", "改写", "修改", "润色", "精简", "扩展", "删除", "添加", "替换",
	"rewrite", "edit", "polish", "expand", "shorten", "improve", "delete", "add", "update", "replace",
}

var weakEditKeywords = []string{
	"帮我", "请", "把", "将", "让", "使", "能不能", "可以",
	"please", "can you", "help me",
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

var (
	chapterCountPatterns = mustCompileAll(
		`有几章`, `多少章`, `(?i)how many chapters`, `(?i)chapter count`,
	)
	sectionCountPatterns = mustCompileAll(
		`有几节`, `多少节`, `(?i)how many sections`, `(?i)section count`,
	)
	paragraphCountPatterns = mustCompileAll(
		`有几段`, `多少段`, `(?i)how many paragraphs`, `(?i)paragraph count`,
	)
	wordCountPatterns = mustCompileAll(
		`多少字`, `字数`, `(?i)word count`, `(?i)how many words`,
	)
	charCountPatterns = mustCompileAll(
		`多少个?字符`, `(?i)character count`, `(?i)how many characters`,
	)
	tokenCountPatterns = mustCompileAll(
		`多少\s*token`, `(?i)token count`, `(?i)how many tokens`,
	)
	titlePatterns = mustCompileAll(
		`标题是什么`, `文档标题`, `(?i)what('?s| is) the title`, `(?i)document title`,
	)
	locatorPattern = regexp.MustCompile(`第([0-9]+|[一二三四五六七八九十百]+)([章节段])`)
)

func mustCompileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Resolve classifies query and, when possible, answers it directly from
// snap/skel/blocks/stats rather than deferring to the LLM.
func Resolve(query string, snap structure.DocStructureSnapshot, skel skeleton.DocSkeleton, blocks []block.Block, stats Stats) Result {
	if containsAny(query, strongEditKeywords) {
		return Result{Kind: KindOther, ShortCircuit: false}
	}

	res := classify(query, snap, skel, blocks, stats)

	if containsAny(query, weakEditKeywords) {
		res.ShortCircuit = false
	}

	if skel.Meta.GlobalConfidence == "low" && res.Confidence == "high" {
		res.Confidence = "medium"
		if res.DirectAnswer != "" {
			res.DirectAnswer += " (note: section detection confidence is low, this count may be imprecise)"
		}
	}

	return res
}

func classify(query string, snap structure.DocStructureSnapshot, skel skeleton.DocSkeleton, blocks []block.Block, stats Stats) Result {
	switch {
	case matchesAny(query, chapterCountPatterns):
		return Result{
			Kind:         KindChapterCount,
			ShortCircuit: true,
			DirectAnswer: fmt.Sprintf("%d", skel.Meta.ChapterCount),
			Confidence:   "high",
		}
	case matchesAny(query, sectionCountPatterns):
		return Result{
			Kind:         KindSectionCount,
			ShortCircuit: true,
			DirectAnswer: fmt.Sprintf("%d", skel.Meta.SectionCount),
			Confidence:   "high",
		}
	case matchesAny(query, paragraphCountPatterns):
		if stats.ParagraphCount == 0 {
			return Result{
				Kind:                  KindParagraphCount,
				ShortCircuit:          true,
				ClarificationQuestion: "the document's paragraph count is not available",
				Confidence:            "low",
			}
		}
		return Result{
			Kind:         KindParagraphCount,
			ShortCircuit: true,
			DirectAnswer: fmt.Sprintf("%d", stats.ParagraphCount),
			Confidence:   "high",
		}
	case matchesAny(query, wordCountPatterns):
		return Result{
			Kind:         KindWordCount,
			ShortCircuit: true,
			DirectAnswer: fmt.Sprintf("%d", stats.WordCount),
			Confidence:   "high",
		}
	case matchesAny(query, charCountPatterns):
		return Result{
			Kind:         KindCharCount,
			ShortCircuit: true,
			DirectAnswer: fmt.Sprintf("%d", stats.CharCount),
			Confidence:   "high",
		}
	case matchesAny(query, tokenCountPatterns):
		return Result{
			Kind:         KindTokenCount,
			ShortCircuit: true,
			DirectAnswer: fmt.Sprintf("%d", stats.TokenEstimate),
			Confidence:   "high",
		}
	case matchesAny(query, titlePatterns):
		return resolveTitle(snap, blocks)
	case locatorPattern.MatchString(query):
		return resolveLocator(query, snap, skel)
	default:
		return Result{Kind: KindOther, ShortCircuit: false}
	}
}

func resolveTitle(snap structure.DocStructureSnapshot, blocks []block.Block) Result {
	if snap.DocTitleBlockID == "" {
		return Result{
			Kind:                  KindTitle,
			ShortCircuit:          true,
			ClarificationQuestion: "no clear document title was detected",
			Confidence:            "low",
		}
	}

	titleNode := findNodeByTitleBlock(snap.Roots, snap.DocTitleBlockID)
	title := blockText(blocks, snap.DocTitleBlockID)

	confidence := "medium"
	var alternates []string
	if titleNode != nil {
		confidence = titleNode.Confidence
		for _, sib := range snap.Roots {
			if sib.TitleBlockID == snap.DocTitleBlockID {
				continue
			}
			alternates = append(alternates, sib.Title)
			if len(alternates) == 3 {
				break
			}
		}
	}

	if confidence == "low" {
		return Result{
			Kind:                  KindTitle,
			ShortCircuit:          true,
			DirectAnswer:          title,
			ClarificationQuestion: "the detected title has low confidence; other candidates may be more accurate",
			Confidence:            "low",
			AlternateTitles:       alternates,
		}
	}

	return Result{
		Kind:         KindTitle,
		ShortCircuit: true,
		DirectAnswer: title,
		Confidence:   confidence,
	}
}

func findNodeByTitleBlock(nodes []*structure.SectionNode, blockID string) *structure.SectionNode {
	for _, n := range nodes {
		if n.TitleBlockID == blockID {
			return n
		}
		if found := findNodeByTitleBlock(n.Children, blockID); found != nil {
			return found
		}
	}
	return nil
}

func blockText(blocks []block.Block, id string) string {
	for _, b := range blocks {
		if b.ID == id {
			return b.Text
		}
	}
	return ""
}

func resolveLocator(query string, snap structure.DocStructureSnapshot, skel skeleton.DocSkeleton) Result {
	m := locatorPattern.FindStringSubmatch(query)
	if m == nil {
		return Result{Kind: KindOther, ShortCircuit: false}
	}
	n := parseOrdinal(m[1])
	unit := m[2]

	var flat []*skeleton.Node
	flattenSkeleton(skel.Roots, &flat)

	var candidates []*skeleton.Node
	switch unit {
	case "章":
		for _, node := range flat {
			if node.Role == skeleton.RoleChapter {
				candidates = append(candidates, node)
			}
		}
	case "节":
		for _, node := range flat {
			if node.Role == skeleton.RoleSection {
				candidates = append(candidates, node)
			}
		}
	case "段":
		var flatStruct []*structure.SectionNode
		flattenStructure(snap.Roots, &flatStruct)
		var paragraphIDs []string
		for _, node := range flatStruct {
			paragraphIDs = append(paragraphIDs, node.OwnedParagraphIDs...)
		}
		if n < 1 || n > len(paragraphIDs) {
			return Result{
				Kind:                  KindLocator,
				ShortCircuit:          true,
				ClarificationQuestion: fmt.Sprintf("the document has only %d paragraphs", len(paragraphIDs)),
				Confidence:            "low",
			}
		}
		return Result{
			Kind:         KindLocator,
			ShortCircuit: true,
			DirectAnswer: paragraphIDs[n-1],
			Confidence:   "high",
		}
	}

	if n < 1 || n > len(candidates) {
		noun := "chapters"
		if unit == "节" {
			noun = "sections"
		}
		return Result{
			Kind:                  KindLocator,
			ShortCircuit:          true,
			ClarificationQuestion: fmt.Sprintf("the document has only %d %s", len(candidates), noun),
			Confidence:            "low",
		}
	}

	target := candidates[n-1]
	return Result{
		Kind:         KindLocator,
		ShortCircuit: true,
		DirectAnswer: target.Title,
		Confidence:   target.Confidence,
	}
}

func flattenSkeleton(nodes []*skeleton.Node, out *[]*skeleton.Node) {
	for _, n := range nodes {
		*out = append(*out, n)
		flattenSkeleton(n.Children, out)
	}
}

func flattenStructure(nodes []*structure.SectionNode, out *[]*structure.SectionNode) {
	for _, n := range nodes {
		*out = append(*out, n)
		flattenStructure(n.Children, out)
	}
}

var chineseDigits = map[rune]int{
	'零': 0, '一': 1, '二': 2, '三': 3, '四': 4, '五': 5,
	'六': 6, '七': 7, '八': 8, '九': 9,
}

// parseOrdinal parses an Arabic numeral or a Chinese numeral (一 through
// 二十, plus simple 百-scale compounds) into an int.
func parseOrdinal(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return parseChineseOrdinal(s)
}

func parseChineseOrdinal(s string) int {
	runes := []rune(s)
	if len(runes) == 0 {
		return 0
	}

	total := 0
	section := 0
	for _, r := range runes {
		switch r {
		case '十':
			if section == 0 {
				section = 1
			}
			total += section * 10
			section = 0
		case '百':
			if section == 0 {
				section = 1
			}
			total += section * 100
			section = 0
		default:
			if d, ok := chineseDigits[r]; ok {
				section += d
			}
		}
	}
	total += section
	return total
}
