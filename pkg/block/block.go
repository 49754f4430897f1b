// Package block defines the document's atomic unit, Block, and the
// read-only/mutation façades the structure engine and envelope builder use
// to reach the live editor, without depending on any editor internals.
package block

// Kind identifies the editor element type a Block represents.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindParagraph Kind = "paragraph"
	KindList      Kind = "list"
	KindQuote     Kind = "quote"
)

// Alignment mirrors the paragraph-alignment styles the editor exposes.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
	AlignJustify Alignment = "justify"
)

// Style carries the visual attributes the structure engine scores against.
type Style struct {
	// FontSize is nullable: nil means the editor reported no explicit size.
	FontSize  *float64
	Bold      bool
	Italic    bool
	Alignment Alignment
}

// Block is an immutable snapshot of one top-level editor element.
//
// The core never mutates a Block; it is owned by the editor and handed to
// the structure engine as a read-only slice for the duration of one
// analysis pass.
type Block struct {
	ID    string
	Kind  Kind
	Level int // 1-6, meaningful only when Kind == KindHeading
	Text  string
	Style Style
}

// SectionContext is the block subtree the editor returns for one section.
type SectionContext struct {
	Blocks []Block
}

// Selection reports the editor's live cursor position.
type Selection struct {
	BlockID string
}

// EditorReader is the read-only traversal façade: it returns immutable
// snapshots, never mutates the editor, and never escalates exceptions.
// Callers treat a nil SectionContext as "not found".
type EditorReader interface {
	// ReadBlocks returns an ordered snapshot of the document's top-level blocks.
	ReadBlocks() []Block

	// ExtractSectionContext returns the block subtree for sectionID, or nil
	// if no such section exists.
	ExtractSectionContext(sectionID string) *SectionContext

	// GetSectionFullText concatenates the plain-text projection of every
	// block in context, in order.
	GetSectionFullText(context *SectionContext) string

	// CurrentSelection returns the editor's live cursor position, or nil if
	// there is no current selection.
	CurrentSelection() *Selection
}

// EditorWriter is the document-operation mutation façade: the only
// component permitted to write to the live editor.
type EditorWriter interface {
	// InsertSectionSummary appends a "本节总结" paragraph at the section's end.
	InsertSectionSummary(sectionID string, text string) error

	// ReplaceSectionBody replaces the section's owned-paragraph content.
	ReplaceSectionBody(sectionID string, newContent string) error

	// ApplySectionAIAction is the unified entry point for section-level
	// rewrite/summarize/expand actions.
	ApplySectionAIAction(actionKind string, sectionID string, context *SectionContext) error
}
