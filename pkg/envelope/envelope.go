// Package envelope implements the Context Envelope Builder:
// it assembles a bounded, LLM-ready snapshot of the document, parameterised
// by scope, and decides between a full-text mode and a chunked-preview mode
// based on a token budget.
package envelope

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/ai-libre/docintel/pkg/block"
	"github.com/ai-libre/docintel/pkg/skeleton"
	"github.com/ai-libre/docintel/pkg/structure"
	"github.com/ai-libre/docintel/pkg/tokenest"
)

// FullDocTokenThreshold is the mode-decision boundary.
const FullDocTokenThreshold = 8000

// Scope selects the envelope's shape.
type Scope string

const (
	ScopeSelection Scope = "selection"
	ScopeSection   Scope = "section"
	ScopeDocument  Scope = "document"
)

// Mode is meaningful only at document scope.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeChunked Mode = "chunked"
)

// Errors returned by Build.
var (
	ErrUnsupportedScope       = errors.New("envelope: selection scope is unsupported")
	ErrSectionIdentityRequired = errors.New("envelope: section scope requires a section identity")
	ErrSectionNotFound         = errors.New("envelope: section not found")
)

// Focus describes the section the current turn acts on.
type Focus struct {
	SectionID  string
	Title      string
	Text       string
	CharCount  int
	TokenCount int
}

// SectionRef is a lightweight pointer used in Neighborhood.
type SectionRef struct {
	SectionID string
	Title     string
}

// Neighborhood may be empty in v1.
type Neighborhood struct {
	Previous *SectionRef
	Next     *SectionRef
	Siblings []SectionRef
}

// OutlineEntry is one flattened entry of the document outline.
type OutlineEntry struct {
	SectionID string
	Title     string
	Level     int
}

// Preview is a chunked-mode section summary.
type Preview struct {
	Title     string
	Level     int
	CharCount int
	Snippet   string
}

// StructureSummary copies chapters and the flat section list.
type StructureSummary struct {
	Chapters []OutlineEntry
	Sections []OutlineEntry
}

// Stats carries document-wide aggregate statistics.
type Stats struct {
	CharCount      int
	WordCount      int
	TokenEstimate  int
	ParagraphCount int
}

// DocMeta carries document-level title metadata.
type DocMeta struct {
	Title             string
	HasExplicitTitle  bool
}

// Global carries the document-wide context (always present).
type Global struct {
	Title     string
	Outline   []OutlineEntry
	Previews  []Preview // populated only in chunked mode
	Structure StructureSummary
	Stats     Stats
	DocMeta   DocMeta
	Skeleton  skeleton.DocSkeleton
}

// Budget records the token ceiling and the estimate used to pick Mode.
type Budget struct {
	MaxTokens       int
	EstimatedTokens int
}

// DocContextEnvelope is the unit of context passed to the LLM for one turn.
type DocContextEnvelope struct {
	DocumentID string
	Scope      Scope
	Focus      *Focus // nil outside section scope
	Neighborhood Neighborhood
	Global     Global
	Budget     Budget
	Mode       Mode // meaningful only at document scope

	// DocumentFullText is populated only when Mode == ModeFull.
	DocumentFullText string
}

// snippetLen is the chunked-preview snippet length.
const snippetLen = 250

// Build assembles a DocContextEnvelope for one turn.
func Build(
	reader block.EditorReader,
	snap structure.DocStructureSnapshot,
	skel skeleton.DocSkeleton,
	docID string,
	scope Scope,
	sectionID string,
	maxTokens int,
) (DocContextEnvelope, error) {
	switch scope {
	case ScopeSelection:
		return DocContextEnvelope{}, ErrUnsupportedScope
	case ScopeSection:
		return buildSectionScope(reader, snap, skel, docID, sectionID, maxTokens)
	case ScopeDocument:
		return buildDocumentScope(reader, snap, skel, docID, maxTokens)
	default:
		return DocContextEnvelope{}, fmt.Errorf("envelope: unknown scope %q", scope)
	}
}

func flattenOutline(nodes []*skeleton.Node) []OutlineEntry {
	var out []OutlineEntry
	var walk func([]*skeleton.Node, int)
	walk = func(ns []*skeleton.Node, level int) {
		for _, n := range ns {
			out = append(out, OutlineEntry{SectionID: n.SectionID, Title: n.Title, Level: level})
			walk(n.Children, level+1)
		}
	}
	walk(nodes, 1)
	return out
}

func findSectionNode(roots []*structure.SectionNode, sectionID string) *structure.SectionNode {
	for _, n := range roots {
		if n.ID == sectionID {
			return n
		}
		if found := findSectionNode(n.Children, sectionID); found != nil {
			return found
		}
	}
	return nil
}

func buildGlobal(snap structure.DocStructureSnapshot, skel skeleton.DocSkeleton) Global {
	outline := flattenOutline(skel.Roots)

	var chapters []OutlineEntry
	for _, e := range outline {
		if e.Level == 1 {
			chapters = append(chapters, e)
		}
	}

	title := ""
	if len(outline) > 0 {
		title = outline[0].Title
	}
	hasExplicitTitle := len(skel.Roots) == 1 && skel.Roots[0].Role == skeleton.RoleChapter

	return Global{
		Title:   title,
		Outline: outline,
		Structure: StructureSummary{
			Chapters: chapters,
			Sections: outline,
		},
		DocMeta: DocMeta{
			Title:            title,
			HasExplicitTitle: hasExplicitTitle,
		},
		Skeleton: skel,
	}
}

func buildSectionScope(
	reader block.EditorReader,
	snap structure.DocStructureSnapshot,
	skel skeleton.DocSkeleton,
	docID string,
	sectionID string,
	maxTokens int,
) (DocContextEnvelope, error) {
	if sectionID == "" {
		return DocContextEnvelope{}, ErrSectionIdentityRequired
	}
	node := findSectionNode(snap.Roots, sectionID)
	if node == nil {
		return DocContextEnvelope{}, ErrSectionNotFound
	}

	sectionCtx := reader.ExtractSectionContext(node.TitleBlockID)
	text := reader.GetSectionFullText(sectionCtx)
	chars := runeCount(text)
	tokens := tokenest.CharCountEstimate(chars)

	global := buildGlobal(snap, skel)
	global.Stats = computeStats(text)

	return DocContextEnvelope{
		DocumentID: docID,
		Scope:      ScopeSection,
		Focus: &Focus{
			SectionID:  node.ID,
			Title:      node.Title,
			Text:       text,
			CharCount:  chars,
			TokenCount: tokens,
		},
		Global: global,
		Budget: Budget{MaxTokens: maxTokens, EstimatedTokens: tokens},
	}, nil
}

func buildDocumentScope(
	reader block.EditorReader,
	snap structure.DocStructureSnapshot,
	skel skeleton.DocSkeleton,
	docID string,
	maxTokens int,
) (DocContextEnvelope, error) {
	var flatSections []*structure.SectionNode
	var collect func([]*structure.SectionNode)
	collect = func(ns []*structure.SectionNode) {
		for _, n := range ns {
			flatSections = append(flatSections, n)
			collect(n.Children)
		}
	}
	collect(snap.Roots)

	var parts []string
	for _, n := range flatSections {
		sectionCtx := reader.ExtractSectionContext(n.TitleBlockID)
		parts = append(parts, reader.GetSectionFullText(sectionCtx))
	}
	fullText := strings.Join(parts, "\n\n")
	tokens := tokenest.CharEstimate(fullText)

	global := buildGlobal(snap, skel)
	global.Stats = computeStats(fullText)

	env := DocContextEnvelope{
		DocumentID: docID,
		Scope:      ScopeDocument,
		Global:     global,
		Budget:     Budget{MaxTokens: maxTokens, EstimatedTokens: tokens},
	}

	if tokens < FullDocTokenThreshold {
		env.Mode = ModeFull
		env.DocumentFullText = fullText
		return env, nil
	}

	env.Mode = ModeChunked
	env.Global.Previews = buildPreviews(reader, flatSections)
	return env, nil
}

func buildPreviews(reader block.EditorReader, nodes []*structure.SectionNode) []Preview {
	previews := make([]Preview, 0, len(nodes))
	for _, n := range nodes {
		sectionCtx := reader.ExtractSectionContext(n.TitleBlockID)
		if sectionCtx == nil {
			// Per-section extraction failure never aborts the build.
			previews = append(previews, Preview{
				Title:     n.Title,
				Level:     n.Level,
				CharCount: 0,
				Snippet:   "(unavailable)",
			})
			continue
		}
		text := reader.GetSectionFullText(sectionCtx)
		previews = append(previews, Preview{
			Title:     n.Title,
			Level:     n.Level,
			CharCount: runeCount(text),
			Snippet:   snippet(text),
		})
	}
	return previews
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLen {
		return text
	}
	return string(runes[:snippetLen]) + "…"
}

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// computeStats computes aggregate document statistics.
func computeStats(text string) Stats {
	charCount := runeCount(text)

	paragraphs := 0
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}

	return Stats{
		CharCount:      charCount,
		WordCount:      wordCount(text),
		TokenEstimate:  tokenest.CharCountEstimate(charCount),
		ParagraphCount: paragraphs,
	}
}

// wordCount counts Chinese characters plus whitespace-separated English
// words.
func wordCount(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			count++
			inWord = false
			continue
		}
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}
