package envelope

import (
	"strings"
	"testing"

	"github.com/ai-libre/docintel/pkg/block"
	"github.com/ai-libre/docintel/pkg/skeleton"
	"github.com/ai-libre/docintel/pkg/structure"
)

// fakeReader maps a section's title-block ID to its full text, bypassing a
// real editor for the purposes of these tests.
type fakeReader struct {
	blocks []block.Block
	texts  map[string]string
}

func (f *fakeReader) ReadBlocks() []block.Block { return f.blocks }

func (f *fakeReader) ExtractSectionContext(sectionID string) *block.SectionContext {
	text, ok := f.texts[sectionID]
	if !ok {
		return nil
	}
	return &block.SectionContext{Blocks: []block.Block{{ID: sectionID, Kind: block.KindParagraph, Text: text}}}
}

func (f *fakeReader) GetSectionFullText(ctx *block.SectionContext) string {
	if ctx == nil || len(ctx.Blocks) == 0 {
		return ""
	}
	return ctx.Blocks[0].Text
}

func (f *fakeReader) CurrentSelection() *block.Selection { return nil }

func heading(id, text string, level int) block.Block {
	return block.Block{ID: id, Kind: block.KindHeading, Level: level, Text: text}
}

func paragraph(id, text string) block.Block {
	return block.Block{ID: id, Kind: block.KindParagraph, Text: text}
}

func sampleFixture() (*fakeReader, structure.DocStructureSnapshot, skeleton.DocSkeleton) {
	blocks := []block.Block{
		heading("h1", "Chapter One", 1),
		paragraph("p1", "Intro paragraph for chapter one."),
		heading("h2", "Chapter Two", 1),
		paragraph("p2", "Body text for chapter two."),
	}
	snap := structure.Build(blocks)
	skel := skeleton.Project(snap)
	reader := &fakeReader{
		blocks: blocks,
		texts: map[string]string{
			"h1": "Intro paragraph for chapter one.",
			"h2": "Body text for chapter two.",
		},
	}
	return reader, snap, skel
}

func TestBuildSectionScopeRequiresSectionID(t *testing.T) {
	reader, snap, skel := sampleFixture()
	_, err := Build(reader, snap, skel, "doc1", ScopeSection, "", 1000)
	if err != ErrSectionIdentityRequired {
		t.Fatalf("err = %v, want ErrSectionIdentityRequired", err)
	}
}

func TestBuildSectionScopeNotFound(t *testing.T) {
	reader, snap, skel := sampleFixture()
	_, err := Build(reader, snap, skel, "doc1", ScopeSection, "does-not-exist", 1000)
	if err != ErrSectionNotFound {
		t.Fatalf("err = %v, want ErrSectionNotFound", err)
	}
}

func TestBuildSectionScopePopulatesFocus(t *testing.T) {
	reader, snap, skel := sampleFixture()
	sectionID := snap.Roots[0].ID

	env, err := Build(reader, snap, skel, "doc1", ScopeSection, sectionID, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Focus == nil {
		t.Fatal("expected a non-nil Focus in section scope")
	}
	if env.Focus.Title != "Chapter One" {
		t.Errorf("focus title = %q, want Chapter One", env.Focus.Title)
	}
	if env.Focus.Text != "Intro paragraph for chapter one." {
		t.Errorf("focus text = %q", env.Focus.Text)
	}
	if len(env.Global.Outline) != 2 {
		t.Errorf("outline length = %d, want 2", len(env.Global.Outline))
	}
}

func TestBuildDocumentScopeFullMode(t *testing.T) {
	reader, snap, skel := sampleFixture()
	env, err := Build(reader, snap, skel, "doc1", ScopeDocument, "", 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Mode != ModeFull {
		t.Fatalf("mode = %q, want full for a short document", env.Mode)
	}
	if !strings.Contains(env.DocumentFullText, "chapter one") {
		t.Errorf("full text missing expected content: %q", env.DocumentFullText)
	}
	if len(env.Global.Previews) != 0 {
		t.Errorf("full mode should not populate previews, got %d", len(env.Global.Previews))
	}
}

func TestBuildDocumentScopeChunkedModeOnLongDocument(t *testing.T) {
	blocks := []block.Block{heading("h1", "Chapter One", 1), paragraph("p1", "word ")}
	snap := structure.Build(blocks)
	skel := skeleton.Project(snap)

	longText := strings.Repeat("lorem ipsum dolor sit amet ", 2000) // ~50k chars, well over threshold
	reader := &fakeReader{blocks: blocks, texts: map[string]string{"h1": longText}}

	env, err := Build(reader, snap, skel, "doc1", ScopeDocument, "", 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Mode != ModeChunked {
		t.Fatalf("mode = %q, want chunked for a long document", env.Mode)
	}
	if env.DocumentFullText != "" {
		t.Error("chunked mode should not populate DocumentFullText")
	}
	if len(env.Global.Previews) != 1 {
		t.Fatalf("previews length = %d, want 1", len(env.Global.Previews))
	}
	if !strings.HasSuffix(env.Global.Previews[0].Snippet, "…") {
		t.Errorf("expected an ellipsis-truncated snippet, got %q", env.Global.Previews[0].Snippet)
	}
}

func TestBuildUnsupportedSelectionScope(t *testing.T) {
	reader, snap, skel := sampleFixture()
	_, err := Build(reader, snap, skel, "doc1", ScopeSelection, "", 1000)
	if err != ErrUnsupportedScope {
		t.Fatalf("err = %v, want ErrUnsupportedScope", err)
	}
}
