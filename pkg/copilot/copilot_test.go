package copilot

import (
	"context"
	"testing"

	"github.com/ai-libre/docintel/pkg/block"
	"github.com/ai-libre/docintel/pkg/llm"
	"github.com/ai-libre/docintel/pkg/skeleton"
	"github.com/ai-libre/docintel/pkg/structure"
)

type fakeReader struct {
	texts          map[string]string
	selection      *block.Selection
	extractedCalls []string
}

func (f *fakeReader) ReadBlocks() []block.Block { return nil }

func (f *fakeReader) ExtractSectionContext(sectionID string) *block.SectionContext {
	f.extractedCalls = append(f.extractedCalls, sectionID)
	text, ok := f.texts[sectionID]
	if !ok {
		return nil
	}
	return &block.SectionContext{Blocks: []block.Block{{ID: sectionID, Text: text}}}
}

func (f *fakeReader) GetSectionFullText(ctx *block.SectionContext) string {
	if ctx == nil || len(ctx.Blocks) == 0 {
		return ""
	}
	return ctx.Blocks[0].Text
}

func (f *fakeReader) CurrentSelection() *block.Selection { return f.selection }

type fakeWriter struct {
	applied     []string
	lastContext *block.SectionContext
}

func (w *fakeWriter) InsertSectionSummary(sectionID string, text string) error { return nil }
func (w *fakeWriter) ReplaceSectionBody(sectionID string, newContent string) error { return nil }
func (w *fakeWriter) ApplySectionAIAction(actionKind string, sectionID string, context *block.SectionContext) error {
	w.applied = append(w.applied, actionKind+":"+sectionID)
	w.lastContext = context
	return nil
}

type fakeTransport struct {
	response llm.ChatResponse
	err      error
	calls    int
}

func (t *fakeTransport) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	t.calls++
	return t.response, t.err
}

// oneSectionFixture deliberately gives the section a node ID distinct from
// its title-block ID: resolveTarget/fallbackSectionID deal in node IDs,
// but ExtractSectionContext must be keyed on the title block ID.
func oneSectionFixture() (structure.DocStructureSnapshot, skeleton.DocSkeleton) {
	node := &structure.SectionNode{
		ID:                "sec1-uuid",
		TitleBlockID:      "sec1-title",
		Title:             "Section One",
		Level:             1,
		OwnedParagraphIDs: []string{"p1", "p2", "p3"},
		Confidence:        "high",
	}
	snap := structure.DocStructureSnapshot{
		Roots:            []*structure.SectionNode{node},
		ParagraphRoles:   map[string]structure.ParagraphRole{},
		GlobalConfidence: "high",
	}
	return snap, skeleton.Project(snap)
}

func TestSetDocumentResetsSessionState(t *testing.T) {
	s := &Session{FocusSectionID: "sec1", LastEditContext: &EditContext{SectionID: "sec1"}}
	s.SetDocument("doc2")

	if s.DocumentID != "doc2" || s.Scope != ScopeDocument || s.FocusSectionID != "" || s.LastEditContext != nil {
		t.Errorf("SetDocument did not fully reset state: %+v", s)
	}
}

func TestSetScopeSectionRecordsFocus(t *testing.T) {
	s := &Session{}
	s.SetScope(ScopeSection, "sec1")
	if s.Scope != ScopeSection || s.FocusSectionID != "sec1" {
		t.Errorf("SetScope(section) = %+v", s)
	}
	s.SetScope(ScopeDocument, "")
	if s.Scope != ScopeDocument || s.FocusSectionID != "" {
		t.Errorf("SetScope(document) did not clear focus: %+v", s)
	}
}

func TestRunTurnNoDocumentOpen(t *testing.T) {
	session := &Session{}
	res := RunTurn(context.Background(), session, &fakeReader{}, &fakeWriter{}, &fakeTransport{}, structure.DocStructureSnapshot{}, skeleton.DocSkeleton{}, "hello")
	if res.ErrorKind != ErrNoDocument {
		t.Fatalf("errorKind = %q, want no_document", res.ErrorKind)
	}
}

func TestRunTurnStructuralQueryShortCircuitsWithoutCallingLLM(t *testing.T) {
	snap, skel := oneSectionFixture()
	session := &Session{DocumentID: "doc1", Scope: ScopeDocument}
	reader := &fakeReader{texts: map[string]string{"sec1-title": "Some section body text."}}
	transport := &fakeTransport{}

	res := RunTurn(context.Background(), session, reader, &fakeWriter{}, transport, snap, skel, "有几章?")

	if transport.calls != 0 {
		t.Errorf("transport.calls = %d, want 0 (query resolver should short-circuit)", transport.calls)
	}
	if res.ReplyText == "" {
		t.Error("expected a direct reply from the structural query resolver")
	}
}

func TestRunTurnResolvesCurrentParagraphForRewriteParagraph(t *testing.T) {
	snap, skel := oneSectionFixture()
	session := &Session{DocumentID: "doc1", Scope: ScopeSection, FocusSectionID: "sec1-uuid"}
	reader := &fakeReader{
		texts:     map[string]string{"sec1-title": "Paragraph one. Paragraph two. Paragraph three."},
		selection: &block.Selection{BlockID: "p2"},
	}
	writer := &fakeWriter{}
	transport := &fakeTransport{response: llm.ChatResponse{
		Success: true,
		Content: `[INTENT]{"mode":"edit","action":"rewrite_paragraph","target":{"scope":"section","sectionId":"sec1-uuid"},"params":{"paragraphRef":"current"}}[/INTENT][REPLY]好的，我来改写这一段。[/REPLY]`,
	}}

	res := RunTurn(context.Background(), session, reader, writer, transport, snap, skel, "帮我改写这一段")

	if res.ErrorKind != ErrNone {
		t.Fatalf("errorKind = %q, want none: reply=%q", res.ErrorKind, res.ReplyText)
	}
	if res.Target == nil {
		t.Fatal("expected a resolved target")
	}
	if res.Target.Kind != TargetParagraph {
		t.Errorf("target kind = %q, want paragraph", res.Target.Kind)
	}
	if res.Target.ParagraphBlockID != "p2" {
		t.Errorf("target paragraph block = %q, want p2", res.Target.ParagraphBlockID)
	}
	if res.Target.ParagraphIndex != 2 {
		t.Errorf("target paragraph index = %d, want 2", res.Target.ParagraphIndex)
	}
	if len(writer.applied) != 1 {
		t.Fatalf("expected exactly one dispatched edit, got %d", len(writer.applied))
	}
	if session.LastEditContext == nil || session.LastEditContext.SectionID != "sec1-uuid" {
		t.Error("expected session.LastEditContext to record the dispatched section")
	}
	// One call builds the section-scope envelope, one builds the dispatch
	// context; both must be keyed on the title block ID.
	if len(reader.extractedCalls) != 2 || reader.extractedCalls[0] != "sec1-title" || reader.extractedCalls[1] != "sec1-title" {
		t.Errorf("ExtractSectionContext calls = %v, want exactly two calls with the title block ID sec1-title", reader.extractedCalls)
	}
	if writer.lastContext == nil {
		t.Error("expected ApplySectionAIAction to receive a non-nil section context")
	}
}

func TestRunTurnValidationErrorIsTreatedAsChat(t *testing.T) {
	snap, skel := oneSectionFixture()
	session := &Session{DocumentID: "doc1", Scope: ScopeSection, FocusSectionID: "sec1-uuid"}
	reader := &fakeReader{texts: map[string]string{"sec1-title": "Body text for the section."}}
	transport := &fakeTransport{response: llm.ChatResponse{
		Success: true,
		Content: `[INTENT]{"mode":"edit","action":"rewrite_section","target":{"scope":"section"}}[/INTENT][REPLY]ok[/REPLY]`,
	}}

	res := RunTurn(context.Background(), session, reader, &fakeWriter{}, transport, snap, skel, "帮我改写这一章 please rewrite")

	if res.ErrorKind != ErrNone {
		t.Fatalf("errorKind = %q, want none (validation_error is surfaced as chat, not a runtime error)", res.ErrorKind)
	}
	if res.ReplyText != "ok" {
		t.Errorf("replyText = %q, want the [REPLY] text", res.ReplyText)
	}
	if res.Target != nil {
		t.Error("a validation_error result must not resolve or dispatch a target")
	}
}

func TestRunTurnLLMFailureSurfacesErrorKind(t *testing.T) {
	snap, skel := oneSectionFixture()
	session := &Session{DocumentID: "doc1", Scope: ScopeSection, FocusSectionID: "sec1-uuid"}
	reader := &fakeReader{texts: map[string]string{"sec1-title": "Body text for the section."}}
	transport := &fakeTransport{response: llm.ChatResponse{Success: false, Error: "rate limited"}}

	res := RunTurn(context.Background(), session, reader, &fakeWriter{}, transport, snap, skel, "帮我改写这一章 please rewrite")

	if res.ErrorKind != ErrLLMCallFailed {
		t.Fatalf("errorKind = %q, want llm_call_failed", res.ErrorKind)
	}
}
