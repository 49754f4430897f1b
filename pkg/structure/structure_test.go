package structure

import (
	"testing"

	"github.com/ai-libre/docintel/pkg/block"
)

func heading(id, text string, level int) block.Block {
	return block.Block{ID: id, Kind: block.KindHeading, Level: level, Text: text}
}

func paragraph(id, text string) block.Block {
	return block.Block{ID: id, Kind: block.KindParagraph, Text: text}
}

func sampleBlocks() []block.Block {
	return []block.Block{
		heading("h1", "Chapter One", 1),
		paragraph("p1", "Intro paragraph for chapter one."),
		heading("h2", "Section 1.1", 2),
		paragraph("p2", "Body text for section 1.1."),
		heading("h3", "Chapter Two", 1),
		paragraph("p3", "Body text for chapter two."),
	}
}

func TestBuildEmptyInput(t *testing.T) {
	snap := Build(nil)
	if snap.GlobalConfidence != "low" {
		t.Fatalf("empty snapshot confidence = %q, want low", snap.GlobalConfidence)
	}
	if len(snap.Roots) != 0 {
		t.Fatalf("empty snapshot has %d roots, want 0", len(snap.Roots))
	}
}

func TestBuildTreeShapeAndOrder(t *testing.T) {
	blocks := sampleBlocks()
	snap := Build(blocks)

	if len(snap.Roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(snap.Roots))
	}
	if snap.Roots[0].Title != "Chapter One" || snap.Roots[1].Title != "Chapter Two" {
		t.Fatalf("root titles out of document order: %q, %q", snap.Roots[0].Title, snap.Roots[1].Title)
	}
	if len(snap.Roots[0].Children) != 1 || snap.Roots[0].Children[0].Title != "Section 1.1" {
		t.Fatalf("chapter one's children = %+v, want one child titled Section 1.1", snap.Roots[0].Children)
	}

	var flat []*SectionNode
	flattenInto(snap.Roots, &flat)
	titleOrder := make([]string, len(flat))
	for i, n := range flat {
		titleOrder[i] = n.TitleBlockID
	}
	want := []string{"h1", "h2", "h3"}
	for i, id := range want {
		if titleOrder[i] != id {
			t.Fatalf("DFS title order = %v, want %v", titleOrder, want)
		}
	}
}

func TestSectionRangesDisjointAndStrictlyInside(t *testing.T) {
	snap := Build(sampleBlocks())

	var check func(nodes []*SectionNode, parentEnd int)
	check = func(nodes []*SectionNode, parentEnd int) {
		prevEnd := -1
		for _, n := range nodes {
			if n.EndIndex <= n.StartIndex {
				t.Errorf("section %q has endIndex %d <= startIndex %d", n.Title, n.EndIndex, n.StartIndex)
			}
			if n.StartIndex < prevEnd {
				t.Errorf("section %q overlaps previous sibling (start %d < prevEnd %d)", n.Title, n.StartIndex, prevEnd)
			}
			prevEnd = n.EndIndex
			check(n.Children, n.EndIndex)
		}
	}
	check(snap.Roots, len(sampleBlocks()))
}

func TestOwnedParagraphsPartitionBlockRange(t *testing.T) {
	snap := Build(sampleBlocks())

	ch1 := snap.Roots[0]
	// p1 belongs to chapter one directly; section 1.1 owns p2.
	if len(ch1.OwnedParagraphIDs) != 1 || ch1.OwnedParagraphIDs[0] != "p1" {
		t.Fatalf("chapter one owned paragraphs = %v, want [p1]", ch1.OwnedParagraphIDs)
	}
	sec := ch1.Children[0]
	if len(sec.OwnedParagraphIDs) != 1 || sec.OwnedParagraphIDs[0] != "p2" {
		t.Fatalf("section 1.1 owned paragraphs = %v, want [p2]", sec.OwnedParagraphIDs)
	}
}

func TestEveryBlockHasExactlyOneRole(t *testing.T) {
	blocks := sampleBlocks()
	snap := Build(blocks)
	for _, b := range blocks {
		if _, ok := snap.ParagraphRoles[b.ID]; !ok {
			t.Errorf("block %q has no assigned paragraph role", b.ID)
		}
	}
	if len(snap.ParagraphRoles) != len(blocks) {
		t.Fatalf("got %d roles for %d blocks", len(snap.ParagraphRoles), len(blocks))
	}
}

func TestGlobalConfidenceHighRule(t *testing.T) {
	snap := Build(sampleBlocks())
	if snap.GlobalConfidence != "high" {
		t.Fatalf("confidence = %q, want high for an all-marked-heading document", snap.GlobalConfidence)
	}
}
