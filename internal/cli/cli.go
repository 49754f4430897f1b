// Package cli implements docintelctl's command tree: the stable
// user-visible command identifiers plus structure/envelope/query inspection
// subcommands for demoing the core against a Markdown fixture file.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jwalton/gchalk"

	"github.com/ai-libre/docintel/pkg/agent"
	"github.com/ai-libre/docintel/pkg/block"
	"github.com/ai-libre/docintel/pkg/block/mdsource"
	"github.com/ai-libre/docintel/pkg/config"
	"github.com/ai-libre/docintel/pkg/envelope"
	"github.com/ai-libre/docintel/pkg/llm"
	"github.com/ai-libre/docintel/pkg/llm/openai"
	"github.com/ai-libre/docintel/pkg/persist"
	"github.com/ai-libre/docintel/pkg/query"
	"github.com/ai-libre/docintel/pkg/skeleton"
	"github.com/ai-libre/docintel/pkg/structure"
	"github.com/ai-libre/docintel/pkg/tokenest"
)

// CLI is docintelctl's top-level command structure.
type CLI struct {
	Structure StructureCmd `cmd:"structure" help:"Print a document's inferred section tree"`
	Envelope  EnvelopeCmd  `cmd:"envelope" help:"Build and print a context envelope"`
	Query     QueryCmd     `cmd:"query" help:"Resolve a structural question without the LLM"`

	FileNew        FileNewCmd        `cmd:"file:new" help:"Create an empty document"`
	FileOpen       FileOpenCmd       `cmd:"file:open" help:"Open and summarize a document"`
	FileSave       FileSaveCmd       `cmd:"file:save" help:"Save a document to its existing path"`
	FileSaveAs     FileSaveAsCmd     `cmd:"file:save-as" help:"Save a document to a new path"`
	ViewToggleOutline ViewToggleOutlineCmd `cmd:"view:toggle-outline" help:"Toggle the outline panel (headless no-op)"`
	ViewToggleCopilot ViewToggleCopilotCmd `cmd:"view:toggle-copilot" help:"Toggle the copilot panel (headless no-op)"`
	AiTranslateDocZh  AiTranslateCmd       `cmd:"ai:translate-doc-zh" set:"translateLanguage=zh" help:"Run the document agent translating every section to Chinese"`
	AiTranslateDocEn  AiTranslateCmd       `cmd:"ai:translate-doc-en" set:"translateLanguage=en" help:"Run the document agent translating every section to English"`
	AiSummarizeDoc    AiSummarizeCmd       `cmd:"ai:summarize-doc" help:"Run the document agent summarizing every section"`
}

func loadSource(path string) (*mdsource.Source, []block.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cli: failed to read %q: %w", path, err)
	}
	src := mdsource.New(string(data))
	return src, src.ReadBlocks(), nil
}

// StructureCmd prints the inferred section tree for a Markdown fixture.
type StructureCmd struct {
	Path string `arg:"" help:"Path to a Markdown fixture file"`
}

func (c *StructureCmd) Run() error {
	_, blocks, err := loadSource(c.Path)
	if err != nil {
		return err
	}
	snap := structure.Build(blocks)

	fmt.Println(gchalk.Bold(fmt.Sprintf("Global confidence: %s", snap.GlobalConfidence)))
	fmt.Println(gchalk.Dim(fmt.Sprintf("Sections: %d  Blocks: %d", snap.TotalSections, snap.TotalBlocks)))
	fmt.Println()
	printSections(snap.Roots, 0)
	return nil
}

func printSections(nodes []*structure.SectionNode, depth int) {
	for _, n := range nodes {
		indent := strings.Repeat("  ", depth)
		color := gchalk.Green
		if n.Confidence == "low" {
			color = gchalk.Red
		} else if n.Confidence == "medium" {
			color = gchalk.Yellow
		}
		fmt.Printf("%s%s %s\n", indent, color(fmt.Sprintf("[L%d %s]", n.Level, n.Confidence)), n.Title)
		printSections(n.Children, depth+1)
	}
}

// EnvelopeCmd builds and prints a context envelope summary.
type EnvelopeCmd struct {
	Path      string `arg:"" help:"Path to a Markdown fixture file"`
	Scope     string `default:"document" help:"document|section"`
	SectionID string `help:"Section identity, required when scope=section"`
}

func (c *EnvelopeCmd) Run() error {
	src, blocks, err := loadSource(c.Path)
	if err != nil {
		return err
	}
	snap := structure.Build(blocks)
	skel := skeleton.Project(snap)

	env, err := envelope.Build(src, snap, skel, c.Path, envelope.Scope(c.Scope), c.SectionID, envelope.FullDocTokenThreshold)
	if err != nil {
		return fmt.Errorf("cli: envelope build failed: %w", err)
	}

	fmt.Println(gchalk.Bold(fmt.Sprintf("Scope: %s  Mode: %s", env.Scope, env.Mode)))
	fmt.Println(gchalk.Dim(fmt.Sprintf("Estimated tokens: %d", env.Budget.EstimatedTokens)))
	if env.Focus != nil {
		fmt.Println(gchalk.Bold("Focus: "), env.Focus.Title)
	}
	fmt.Println(gchalk.Bold("Outline:"))
	for _, o := range env.Global.Outline {
		fmt.Printf("%s%s\n", strings.Repeat("  ", o.Level-1), o.Title)
	}
	if env.Mode == envelope.ModeChunked {
		fmt.Println(gchalk.Bold("Previews:"))
		for _, p := range env.Global.Previews {
			fmt.Printf("- %s: %s\n", p.Title, gchalk.Dim(p.Snippet))
		}
	}
	reportTokenDrift(env.Budget.EstimatedTokens, blocks)
	return nil
}

// reportTokenDrift prints how far the cheap ceil(chars/4) estimate drifted
// from a real tiktoken encoder, when a project config names an encoding.
// Absent config or encoding, this is a silent no-op: the precise counter is
// diagnostics-only and never required to produce an envelope.
func reportTokenDrift(estimated int, blocks []block.Block) {
	projectRoot, _, err := config.FindProjectRoot()
	if err != nil {
		return
	}
	cfg, err := config.Load(projectRoot)
	if err != nil || cfg.TiktokenEncoding == "" {
		return
	}
	counter, err := tokenest.NewTiktokenCounter(cfg.TiktokenEncoding)
	if err != nil {
		fmt.Println(gchalk.Dim(fmt.Sprintf("[tiktoken drift unavailable: %s]", err)))
		return
	}
	precise, err := counter.Count(fullText(blocks))
	if err != nil {
		fmt.Println(gchalk.Dim(fmt.Sprintf("[tiktoken drift unavailable: %s]", err)))
		return
	}
	drift := estimated - precise
	fmt.Println(gchalk.Dim(fmt.Sprintf("Precise tokens (%s): %d  (estimate drift: %+d)", cfg.TiktokenEncoding, precise, drift)))
}

// QueryCmd resolves a structural question without consulting the LLM.
type QueryCmd struct {
	Path     string `arg:"" help:"Path to a Markdown fixture file"`
	Question string `arg:"" help:"Question text"`
}

func (c *QueryCmd) Run() error {
	_, blocks, err := loadSource(c.Path)
	if err != nil {
		return err
	}
	snap := structure.Build(blocks)
	skel := skeleton.Project(snap)

	text := fullText(blocks)
	stats := query.Stats{
		CharCount:      runeCount(text),
		WordCount:      wordCount(text),
		TokenEstimate:  (runeCount(text) + 3) / 4,
		ParagraphCount: len(blocks),
	}

	result := query.Resolve(c.Question, snap, skel, blocks, stats)
	fmt.Println(gchalk.Bold(fmt.Sprintf("Kind: %s  ShortCircuit: %t  Confidence: %s", result.Kind, result.ShortCircuit, result.Confidence)))
	if result.DirectAnswer != "" {
		fmt.Println(gchalk.Green("Answer: "), result.DirectAnswer)
	}
	if result.ClarificationQuestion != "" {
		fmt.Println(gchalk.Yellow("Clarification: "), result.ClarificationQuestion)
	}
	return nil
}

func fullText(blocks []block.Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, "\n")
}

func runeCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

// FileNewCmd creates an empty document at Path.
type FileNewCmd struct {
	Path string `arg:"" help:"Path to create"`
}

func (c *FileNewCmd) Run() error {
	if err := os.WriteFile(c.Path, []byte(""), 0o644); err != nil {
		return fmt.Errorf("cli: failed to create %q: %w", c.Path, err)
	}
	fmt.Println(gchalk.Green("✓"), "created", c.Path)
	return nil
}

// FileOpenCmd opens a document and prints a short summary.
type FileOpenCmd struct {
	Path string `arg:"" help:"Path to open"`
}

func (c *FileOpenCmd) Run() error {
	_, blocks, err := loadSource(c.Path)
	if err != nil {
		return err
	}
	fmt.Println(gchalk.Green("✓"), fmt.Sprintf("opened %s (%d blocks)", c.Path, len(blocks)))
	return nil
}

// FileSaveCmd saves content to an existing path.
type FileSaveCmd struct {
	Path    string `arg:"" help:"Path to save to"`
	Content string `arg:"" help:"Content to write"`
}

func (c *FileSaveCmd) Run() error {
	result := persist.NewFileExporter().ExportDocx(c.Path, c.Content)
	if !result.Success {
		return fmt.Errorf("cli: %s", result.Error)
	}
	fmt.Println(gchalk.Green("✓"), "saved", result.FilePath)
	return nil
}

// FileSaveAsCmd saves content to a new path, derived from hint.
type FileSaveAsCmd struct {
	Content string `arg:"" help:"Content to write"`
	Hint    string `arg:"" optional:"" help:"Filename hint"`
}

func (c *FileSaveAsCmd) Run() error {
	result := persist.NewFileExporter().SaveAsDocx(c.Content, c.Hint)
	if !result.Success {
		return fmt.Errorf("cli: %s", result.Error)
	}
	fmt.Println(gchalk.Green("✓"), "saved as", result.FilePath)
	return nil
}

// ViewToggleOutlineCmd is a headless no-op standing in for the UI command.
type ViewToggleOutlineCmd struct{}

func (c *ViewToggleOutlineCmd) Run() error {
	fmt.Println(gchalk.Dim("view:toggle-outline has no effect outside the editor UI"))
	return nil
}

// ViewToggleCopilotCmd is a headless no-op standing in for the UI command.
type ViewToggleCopilotCmd struct{}

func (c *ViewToggleCopilotCmd) Run() error {
	fmt.Println(gchalk.Dim("view:toggle-copilot has no effect outside the editor UI"))
	return nil
}

// fakeWriter is an in-memory block.EditorWriter used to demo the agent
// runner without a live editor.
type fakeWriter struct{}

func (fakeWriter) InsertSectionSummary(sectionID, text string) error {
	fmt.Printf("%s %s: %s\n", gchalk.Dim("[insert summary]"), sectionID, text)
	return nil
}

func (fakeWriter) ReplaceSectionBody(sectionID, newContent string) error {
	fmt.Printf("%s %s: %s\n", gchalk.Dim("[replace body]"), sectionID, newContent)
	return nil
}

func (fakeWriter) ApplySectionAIAction(actionKind, sectionID string, ctx *block.SectionContext) error {
	fmt.Printf("%s %s on %s\n", gchalk.Dim("[apply action]"), actionKind, sectionID)
	return nil
}

// transformRunner adapts llm.Transport into agent.Transformer.
type transformRunner struct {
	transport llm.Transport
}

func (t transformRunner) Transform(ctx context.Context, kind agent.TransformKind, text, language, style string) (string, error) {
	instruction := fmt.Sprintf("Please %s the following text (language=%s, style=%s):\n\n%s", kind, language, style, text)
	resp, err := t.transport.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: instruction}},
	})
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("transform failed: %s", resp.Error)
	}
	return resp.Content, nil
}

func runAgentCommand(path string, kind agent.TransformKind, language string) error {
	projectRoot, _, err := config.FindProjectRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return err
	}
	if cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("cli: OPENAI_API_KEY is not set")
	}

	transport, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, openai.Config{BaseURL: cfg.OpenAIBaseURL})
	if err != nil {
		return err
	}

	src, blocks, err := loadSource(path)
	if err != nil {
		return err
	}
	snap := structure.Build(blocks)

	runner := agent.New(src, fakeWriter{}, transformRunner{transport: transport}, kind, language, "", func(snapshot agent.StateSnapshot) {
		fmt.Printf("%s %d/%d success=%d skipped=%d error=%d\n",
			gchalk.Dim("[progress]"), snapshot.CurrentIndex+1, len(snapshot.Tasks),
			snapshot.SuccessCount, snapshot.SkippedCount, snapshot.ErrorCount)
	})

	status, tasks := runner.Run(context.Background(), snap)
	fmt.Println(gchalk.Bold("Overall status:"), status)
	for _, t := range tasks {
		fmt.Printf("  %s %s\n", t.Title, t.Status)
	}
	return nil
}

// AiTranslateCmd runs the document agent translating every section.
type AiTranslateCmd struct {
	Path     string `arg:"" help:"Path to a Markdown fixture file"`
	Language string `default:"${translateLanguage}" help:"Target language"`
}

func (c *AiTranslateCmd) Run() error {
	return runAgentCommand(c.Path, agent.TransformTranslate, c.Language)
}

// AiSummarizeCmd runs the document agent summarizing every section.
type AiSummarizeCmd struct {
	Path string `arg:"" help:"Path to a Markdown fixture file"`
}

func (c *AiSummarizeCmd) Run() error {
	return runAgentCommand(c.Path, agent.TransformSummarize, "")
}
