// Package copilot implements the Copilot Runtime: it orchestrates a single
// conversational turn (build context, call the LLM once, parse its reply,
// resolve an edit target, dispatch the edit) while preserving per-session
// state across turns.
package copilot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ai-libre/docintel/pkg/block"
	"github.com/ai-libre/docintel/pkg/dlog"
	"github.com/ai-libre/docintel/pkg/envelope"
	"github.com/ai-libre/docintel/pkg/llm"
	"github.com/ai-libre/docintel/pkg/protocol"
	"github.com/ai-libre/docintel/pkg/query"
	"github.com/ai-libre/docintel/pkg/skeleton"
	"github.com/ai-libre/docintel/pkg/structure"
)

// ErrorKind is the closed taxonomy of typed turn failures.
type ErrorKind string

const (
	ErrNone               ErrorKind = ""
	ErrNoDocument         ErrorKind = "no_document"
	ErrEditorNotReady     ErrorKind = "editor_not_ready"
	ErrSectionNotFound    ErrorKind = "section_not_found"
	ErrLLMCallFailed      ErrorKind = "llm_call_failed"
	ErrIntentMissing      ErrorKind = "intent_missing"
	ErrJSONError          ErrorKind = "json_error"
	ErrValidationError    ErrorKind = "validation_error"
	ErrUnresolvableTarget ErrorKind = "unresolvable_target"
	ErrEditExecutionFailed ErrorKind = "edit_execution_failed"
)

// Scope is the session's current envelope scope.
type Scope string

const (
	ScopeDocument Scope = "document"
	ScopeSection  Scope = "section"
)

// EditContext remembers the most recently touched target, for follow-up
// utterances like "继续"/"再改短一点". It is a runtime-only field, never
// persisted across process restarts.
type EditContext struct {
	SectionID        string
	ParagraphBlockID string
}

// Preferences summarizes user-chosen defaults fed into the system prompt.
type Preferences struct {
	Language string
	Style    string
}

// Session holds per-document conversational state across turns.
type Session struct {
	DocumentID      string
	Scope           Scope
	FocusSectionID  string
	Preferences     Preferences
	LastTask        string
	LastEditContext *EditContext
}

// SetDocument resets scope to document and clears focus/lastEditContext,
// per the state-transition rule for switching documents.
func (s *Session) SetDocument(documentID string) {
	s.DocumentID = documentID
	s.Scope = ScopeDocument
	s.FocusSectionID = ""
	s.LastEditContext = nil
}

// SetScope changes the session's scope. Entering section scope records the
// focus; returning to document scope clears it.
func (s *Session) SetScope(scope Scope, sectionID string) {
	s.Scope = scope
	if scope == ScopeSection {
		s.FocusSectionID = sectionID
	} else {
		s.FocusSectionID = ""
	}
}

// TargetKind is the resolved edit target's granularity.
type TargetKind string

const (
	TargetSection   TargetKind = "section"
	TargetParagraph TargetKind = "paragraph"
)

// ResolvedEditTarget is the concrete location an edit action applies to.
type ResolvedEditTarget struct {
	Kind             TargetKind
	SectionID        string
	ParagraphBlockID string
	ParagraphIndex   int // 1-based, only meaningful for TargetParagraph
}

// TurnResult is RunTurn's outcome.
type TurnResult struct {
	ReplyText string
	ErrorKind ErrorKind
	Intent    *protocol.CopilotIntent
	Target    *ResolvedEditTarget
}

var followUpPattern = regexp.MustCompile(`(?i)再改短一点|继续|接着|再改|continue|keep going|shorten it (again|more)`)

// RunTurn executes the seven-step turn protocol.
func RunTurn(
	ctx context.Context,
	session *Session,
	reader block.EditorReader,
	writer block.EditorWriter,
	transport llm.Transport,
	snap structure.DocStructureSnapshot,
	skel skeleton.DocSkeleton,
	utterance string,
) TurnResult {
	log := dlog.Logger(ctx)

	// Step 1: pre-conditions.
	if session.DocumentID == "" {
		return TurnResult{
			ErrorKind: ErrNoDocument,
			ReplyText: "No document is currently open. Please open a file first.",
		}
	}
	if reader == nil {
		return TurnResult{
			ErrorKind: ErrEditorNotReady,
			ReplyText: "The editor isn't ready yet. Please try again in a moment.",
		}
	}

	// Step 2: build envelope.
	scope := envelope.ScopeDocument
	sectionID := ""
	if session.Scope == ScopeSection {
		scope = envelope.ScopeSection
		sectionID = session.FocusSectionID
	}
	env, err := envelope.Build(reader, snap, skel, session.DocumentID, scope, sectionID, envelope.FullDocTokenThreshold)
	if err != nil {
		log.Warn("envelope build failed", "error", err)
		return TurnResult{
			ErrorKind: ErrSectionNotFound,
			ReplyText: "I couldn't locate that section. Please pick another one.",
		}
	}

	// Try a short-circuit structural answer before paying for an LLM call.
	stats := query.Stats{
		CharCount:      env.Global.Stats.CharCount,
		WordCount:      env.Global.Stats.WordCount,
		TokenEstimate:  env.Global.Stats.TokenEstimate,
		ParagraphCount: env.Global.Stats.ParagraphCount,
	}
	qr := query.Resolve(utterance, snap, skel, reader.ReadBlocks(), stats)
	if qr.ShortCircuit {
		reply := qr.DirectAnswer
		if reply == "" {
			reply = qr.ClarificationQuestion
		}
		return TurnResult{ReplyText: reply}
	}

	// Step 3 & 4: build system/user prompts.
	systemPrompt := buildSystemPrompt(env, session.Preferences)
	userPrompt := buildUserPrompt(utterance, env)

	// Step 5: invoke the LLM transport once.
	resp, callErr := transport.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: userPrompt},
		},
	})
	if callErr != nil || !resp.Success {
		msg := resp.Error
		if callErr != nil {
			msg = callErr.Error()
		}
		log.Warn("llm call failed", "error", msg)
		return TurnResult{
			ErrorKind: ErrLLMCallFailed,
			ReplyText: fmt.Sprintf("I couldn't reach the assistant backend: %s", msg),
		}
	}

	// Step 6: parse the reply.
	parsed := protocol.Parse(resp.Content)
	if !parsed.Executable() {
		return TurnResult{ReplyText: parsed.Reply}
	}

	// Step 7: target resolution.
	target, resolveErr := resolveTarget(parsed.Intent, session, reader, snap, utterance)
	if resolveErr != nil {
		return TurnResult{
			ErrorKind: ErrUnresolvableTarget,
			ReplyText: "I'm not sure which section you mean. Could you name it?",
		}
	}

	// Step 8: dispatch.
	if err := dispatch(parsed.Intent, target, reader, writer, snap); err != nil {
		return TurnResult{
			ErrorKind: ErrEditExecutionFailed,
			ReplyText: fmt.Sprintf("I tried to apply that edit but it failed: %s", err),
		}
	}

	session.LastTask = string(parsed.Intent.Action)
	session.LastEditContext = &EditContext{
		SectionID:        target.SectionID,
		ParagraphBlockID: target.ParagraphBlockID,
	}

	return TurnResult{
		ReplyText: parsed.Reply,
		Intent:    &parsed.Intent,
		Target:    target,
	}
}

func buildSystemPrompt(env envelope.DocContextEnvelope, prefs Preferences) string {
	var b strings.Builder
	b.WriteString("You are a document copilot. Never fabricate numbers, counts, or section ")
	b.WriteString("titles; the structure/stats/skeleton JSON below is your only source of ")
	b.WriteString("truth about the document.\n\n")
	b.WriteString("Role: you help the user read, question, and edit a single open document.\n\n")
	b.WriteString("Capabilities: rewrite_section, rewrite_paragraph, summarize_section, ")
	b.WriteString("summarize_document, highlight_terms.\n\n")
	b.WriteString("Document outline:\n")
	for _, e := range env.Global.Outline {
		b.WriteString(fmt.Sprintf("%s%s\n", strings.Repeat("  ", e.Level-1), e.Title))
	}
	if env.Mode == envelope.ModeFull {
		b.WriteString("\nFull document text:\n")
		b.WriteString(env.DocumentFullText)
		b.WriteString("\n")
	} else {
		b.WriteString("\nSection previews:\n")
		for _, p := range env.Global.Previews {
			b.WriteString(fmt.Sprintf("- %s: %s\n", p.Title, p.Snippet))
		}
	}
	b.WriteString("\nOutput format: emit exactly one [INTENT]{...}[/INTENT][REPLY]...[/REPLY] pair. ")
	b.WriteString(`Example: [INTENT]{"mode":"edit","action":"rewrite_section","target":{"scope":"section","sectionId":"<id>"}}[/INTENT][REPLY]Done.[/REPLY]`)
	b.WriteString("\n\n")
	if prefs.Language != "" || prefs.Style != "" {
		b.WriteString(fmt.Sprintf("User preferences: language=%s style=%s\n", prefs.Language, prefs.Style))
	}
	return b.String()
}

func buildUserPrompt(utterance string, env envelope.DocContextEnvelope) string {
	if env.Focus == nil {
		return utterance
	}
	return fmt.Sprintf("%s\n\nFocused section text:\n%s", utterance, env.Focus.Text)
}

func resolveTarget(intent protocol.CopilotIntent, session *Session, reader block.EditorReader, snap structure.DocStructureSnapshot, utterance string) (*ResolvedEditTarget, error) {
	sectionID := intent.Target.SectionID
	if sectionID == "" || !sectionExists(snap.Roots, sectionID) {
		sectionID = fallbackSectionID(session, snap, utterance)
	}
	if sectionID == "" {
		return nil, fmt.Errorf("no candidate section available")
	}

	if intent.Action != protocol.ActionRewriteParagraph {
		return &ResolvedEditTarget{Kind: TargetSection, SectionID: sectionID}, nil
	}

	node := findSectionNode(snap.Roots, sectionID)
	if node == nil {
		return nil, fmt.Errorf("section %s not found", sectionID)
	}

	paragraphs := node.OwnedParagraphIDs
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("section %s has no paragraphs", sectionID)
	}

	currentIdx := 0
	if sel := reader.CurrentSelection(); sel != nil {
		for i, id := range paragraphs {
			if id == sel.BlockID {
				currentIdx = i
				break
			}
		}
	}

	switch intent.Params.ParagraphRef {
	case protocol.ParagraphCurrent, "":
		return &ResolvedEditTarget{
			Kind:             TargetParagraph,
			SectionID:        sectionID,
			ParagraphBlockID: paragraphs[currentIdx],
			ParagraphIndex:   currentIdx + 1,
		}, nil
	case protocol.ParagraphPrevious:
		if currentIdx == 0 {
			return nil, fmt.Errorf("no previous paragraph")
		}
		return &ResolvedEditTarget{
			Kind:             TargetParagraph,
			SectionID:        sectionID,
			ParagraphBlockID: paragraphs[currentIdx-1],
			ParagraphIndex:   currentIdx,
		}, nil
	case protocol.ParagraphNext:
		if currentIdx >= len(paragraphs)-1 {
			return nil, fmt.Errorf("no next paragraph")
		}
		return &ResolvedEditTarget{
			Kind:             TargetParagraph,
			SectionID:        sectionID,
			ParagraphBlockID: paragraphs[currentIdx+1],
			ParagraphIndex:   currentIdx + 2,
		}, nil
	case protocol.ParagraphNth:
		n := intent.Params.ParagraphIndex
		if n < 1 || n > len(paragraphs) {
			return nil, fmt.Errorf("paragraph index %d out of range", n)
		}
		return &ResolvedEditTarget{
			Kind:             TargetParagraph,
			SectionID:        sectionID,
			ParagraphBlockID: paragraphs[n-1],
			ParagraphIndex:   n,
		}, nil
	default:
		return nil, fmt.Errorf("unknown paragraphRef %q", intent.Params.ParagraphRef)
	}
}

// fallbackSectionID implements the target-resolution fallback order: session
// focus, then lastEditContext when the utterance reads as a follow-up, then
// the first outline section.
func fallbackSectionID(session *Session, snap structure.DocStructureSnapshot, utterance string) string {
	if session.FocusSectionID != "" {
		return session.FocusSectionID
	}
	if session.LastEditContext != nil && followUpPattern.MatchString(utterance) {
		return session.LastEditContext.SectionID
	}
	if len(snap.Roots) > 0 {
		return snap.Roots[0].ID
	}
	return ""
}

func sectionExists(nodes []*structure.SectionNode, id string) bool {
	return findSectionNode(nodes, id) != nil
}

func findSectionNode(nodes []*structure.SectionNode, id string) *structure.SectionNode {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
		if found := findSectionNode(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

func dispatch(intent protocol.CopilotIntent, target *ResolvedEditTarget, reader block.EditorReader, writer block.EditorWriter, snap structure.DocStructureSnapshot) error {
	var sectionCtx *block.SectionContext
	if node := findSectionNode(snap.Roots, target.SectionID); node != nil {
		sectionCtx = reader.ExtractSectionContext(node.TitleBlockID)
	}
	switch intent.Action {
	case protocol.ActionRewriteSection, protocol.ActionRewriteParagraph:
		// rewrite_paragraph currently delegates to rewrite_section (a
		// documented, provisional coarsening).
		return writer.ApplySectionAIAction(string(protocol.ActionRewriteSection), target.SectionID, sectionCtx)
	case protocol.ActionSummarizeSection:
		return writer.ApplySectionAIAction(string(protocol.ActionSummarizeSection), target.SectionID, sectionCtx)
	default:
		return fmt.Errorf("action %q is not dispatchable", intent.Action)
	}
}
