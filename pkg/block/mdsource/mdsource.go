// Package mdsource provides a concrete block.EditorReader over plain
// Markdown text, using goldmark to walk the document AST.
//
// It exists to let the structure engine, envelope builder, and CLI be
// driven from Markdown fixture files instead of a live rich-text editor:
// both a live editor and a persisted AST route through the same
// block.EditorReader contract.
package mdsource

import (
	"bytes"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/ai-libre/docintel/pkg/block"
)

// Source is a read-only, in-memory EditorReader built once from Markdown
// text at construction time. Reads never modify it and return copies of
// the parsed blocks, so a Source is safe for concurrent reads.
type Source struct {
	blocks []block.Block
}

// New parses markdown into an ordered top-level Block sequence.
//
// Heading blocks carry Level 1-6 from the Markdown heading depth. List
// items and blockquotes collapse to single KindList/KindQuote blocks per
// goldmark top-level node, matching the "one Block per top-level editor
// element" contract. Paragraph font size is left nil (Markdown carries no
// size information); bold/italic are set when the paragraph contains any
// **/* emphasis, even if only part of its text is emphasized.
func New(markdown string) *Source {
	md := goldmark.New(gparser.WithAutoHeadingID())
	src := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(src))

	var blocks []block.Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		b, ok := convert(n, src)
		if !ok {
			continue
		}
		b.ID = uuid.NewString()
		blocks = append(blocks, b)
	}

	return &Source{blocks: blocks}
}

func convert(n ast.Node, src []byte) (block.Block, bool) {
	switch t := n.(type) {
	case *ast.Heading:
		return block.Block{
			Kind:  block.KindHeading,
			Level: t.Level,
			Text:  inlineText(t, src),
		}, true
	case *ast.Paragraph:
		txt := inlineText(t, src)
		return block.Block{
			Kind: block.KindParagraph,
			Text: txt,
			Style: block.Style{
				Bold:   looksBold(t, src),
				Italic: looksItalic(t, src),
			},
		}, true
	case *ast.List:
		return block.Block{
			Kind: block.KindList,
			Text: listText(t, src),
		}, true
	case *ast.Blockquote:
		return block.Block{
			Kind: block.KindQuote,
			Text: blockText(t, src),
		}, true
	default:
		return block.Block{}, false
	}
}

func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
		default:
			buf.WriteString(inlineText(t, src))
		}
	}
	return buf.String()
}

func blockText(n ast.Node, src []byte) string {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		parts = append(parts, inlineText(c, src))
	}
	return strings.Join(parts, "\n")
}

func listText(n ast.Node, src []byte) string {
	var parts []string
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		parts = append(parts, strings.TrimSpace(blockText(item, src)))
	}
	return strings.Join(parts, "\n")
}

func looksBold(n ast.Node, src []byte) bool {
	found := false
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if e, ok := c.(*ast.Emphasis); ok && e.Level == 2 {
				found = true
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

func looksItalic(n ast.Node, src []byte) bool {
	found := false
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if e, ok := c.(*ast.Emphasis); ok && e.Level == 1 {
				found = true
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// ReadBlocks implements block.EditorReader.
func (s *Source) ReadBlocks() []block.Block {
	out := make([]block.Block, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// ExtractSectionContext implements block.EditorReader. sectionID is the
// block ID of the section's title block (a heading); the returned context
// spans from that heading up to (but excluding) the next heading whose
// level is <= the title's level, matching the half-open [startIndex,
// endIndex) section range the structure engine assigns.
func (s *Source) ExtractSectionContext(sectionID string) *block.SectionContext {
	start := -1
	for i, b := range s.blocks {
		if b.ID == sectionID {
			start = i
			break
		}
	}
	if start < 0 || s.blocks[start].Kind != block.KindHeading {
		return nil
	}
	level := s.blocks[start].Level

	end := len(s.blocks)
	for i := start + 1; i < len(s.blocks); i++ {
		if s.blocks[i].Kind == block.KindHeading && s.blocks[i].Level <= level {
			end = i
			break
		}
	}

	sub := make([]block.Block, end-start)
	copy(sub, s.blocks[start:end])
	return &block.SectionContext{Blocks: sub}
}

// GetSectionFullText implements block.EditorReader.
func (s *Source) GetSectionFullText(ctx *block.SectionContext) string {
	if ctx == nil {
		return ""
	}
	parts := make([]string, 0, len(ctx.Blocks))
	for _, b := range ctx.Blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n")
}

// CurrentSelection implements block.EditorReader; mdsource fixtures never
// have a live cursor.
func (s *Source) CurrentSelection() *block.Selection { return nil }
