package skeleton

import (
	"testing"

	"github.com/ai-libre/docintel/pkg/block"
	"github.com/ai-libre/docintel/pkg/structure"
)

func heading(id, text string, level int) block.Block {
	return block.Block{ID: id, Kind: block.KindHeading, Level: level, Text: text}
}

func paragraph(id, text string) block.Block {
	return block.Block{ID: id, Kind: block.KindParagraph, Text: text}
}

func TestProjectRolesAndDisplayIndex(t *testing.T) {
	blocks := []block.Block{
		heading("h1", "Chapter One", 1),
		paragraph("p1", "intro"),
		heading("h2", "Section 1.1", 2),
		paragraph("p2", "body"),
		heading("h3", "Appendix A", 1),
	}
	snap := structure.Build(blocks)
	skel := Project(snap)

	if len(skel.Roots) != 2 {
		t.Fatalf("got %d roots, want 2", len(skel.Roots))
	}
	ch1 := skel.Roots[0]
	if ch1.Role != RoleChapter || ch1.DisplayIndex != "第1章" {
		t.Fatalf("chapter one role/display = %s/%s, want chapter/第1章", ch1.Role, ch1.DisplayIndex)
	}
	if len(ch1.Children) != 1 || ch1.Children[0].Role != RoleSection {
		t.Fatalf("chapter one's child role = %+v, want one section", ch1.Children)
	}
	appendix := skel.Roots[1]
	if appendix.Role != RoleAppendix {
		t.Fatalf("appendix role = %s, want appendix", appendix.Role)
	}
	if skel.Meta.ChapterCount != 1 {
		t.Fatalf("chapter count = %d, want 1 (appendix excluded)", skel.Meta.ChapterCount)
	}
}

func TestLanguageHint(t *testing.T) {
	cases := []struct {
		titles []string
		want   string
	}{
		{[]string{"第一章", "第二章"}, "zh"},
		{[]string{"Chapter One", "Chapter Two"}, "en"},
		{[]string{"第一二三ABCD", "第四五六WXYZ"}, "mixed"},
		{[]string{"123", "456"}, "other"},
	}
	for _, c := range cases {
		if got := languageHint(c.titles); got != c.want {
			t.Errorf("languageHint(%v) = %q, want %q", c.titles, got, c.want)
		}
	}
}

func TestIntroConclusionDetection(t *testing.T) {
	blocks := []block.Block{
		heading("h1", "引言", 1),
		paragraph("p1", "intro text"),
		heading("h2", "Chapter Two", 1),
		paragraph("p2", "body text"),
		heading("h3", "总结", 1),
	}
	snap := structure.Build(blocks)
	skel := Project(snap)

	if !skel.Meta.HasIntro {
		t.Error("expected HasIntro to be true")
	}
	if !skel.Meta.HasConclusion {
		t.Error("expected HasConclusion to be true")
	}
}
