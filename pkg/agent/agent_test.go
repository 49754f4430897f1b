package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/ai-libre/docintel/pkg/block"
	"github.com/ai-libre/docintel/pkg/structure"
)

type fakeReader struct {
	texts map[string]string
}

func (f *fakeReader) ReadBlocks() []block.Block { return nil }

func (f *fakeReader) ExtractSectionContext(sectionID string) *block.SectionContext {
	return &block.SectionContext{Blocks: []block.Block{{ID: sectionID}}}
}

func (f *fakeReader) GetSectionFullText(ctx *block.SectionContext) string {
	if ctx == nil || len(ctx.Blocks) == 0 {
		return ""
	}
	return f.texts[ctx.Blocks[0].ID]
}

func (f *fakeReader) CurrentSelection() *block.Selection { return nil }

type fakeWriter struct {
	summaries map[string]string
	bodies    map[string]string
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{summaries: map[string]string{}, bodies: map[string]string{}}
}

func (w *fakeWriter) InsertSectionSummary(sectionID string, text string) error {
	w.summaries[sectionID] = text
	return nil
}

func (w *fakeWriter) ReplaceSectionBody(sectionID string, newContent string) error {
	w.bodies[sectionID] = newContent
	return nil
}

func (w *fakeWriter) ApplySectionAIAction(actionKind string, sectionID string, context *block.SectionContext) error {
	return nil
}

type fakeTransformer struct {
	calls int
	err   error
}

func (ft *fakeTransformer) Transform(ctx context.Context, kind TransformKind, text, language, style string) (string, error) {
	ft.calls++
	if ft.err != nil {
		return "", ft.err
	}
	return text + " (transformed)", nil
}

func flatRoots(n int, textLen int) ([]*structure.SectionNode, map[string]string) {
	roots := make([]*structure.SectionNode, n)
	texts := map[string]string{}
	filler := ""
	for i := 0; i < textLen; i++ {
		filler += "x"
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("sec-%d", i+1)
		roots[i] = &structure.SectionNode{ID: id, TitleBlockID: id, Title: fmt.Sprintf("Section %d", i+1)}
		texts[id] = filler
	}
	return roots, texts
}

func TestRunProcessesAllSectionsInOrder(t *testing.T) {
	roots, texts := flatRoots(3, 80)
	reader := &fakeReader{texts: texts}
	writer := newFakeWriter()
	transformer := &fakeTransformer{}

	runner := New(reader, writer, transformer, TransformSummarize, "zh", "concise", nil)
	status, tasks := runner.Run(context.Background(), structure.DocStructureSnapshot{Roots: roots})

	if status != RunSuccess {
		t.Fatalf("status = %q, want success", status)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}
	for _, task := range tasks {
		if task.Status != TaskSuccess {
			t.Errorf("task %q status = %q, want success", task.SectionID, task.Status)
		}
	}
	if transformer.calls != 3 {
		t.Errorf("transform calls = %d, want 3", transformer.calls)
	}
	if len(writer.summaries) != 3 {
		t.Errorf("got %d inserted summaries, want 3", len(writer.summaries))
	}
}

func TestRunSkipsSectionsShorterThanMinimum(t *testing.T) {
	roots, texts := flatRoots(2, 10) // shorter than MinSectionChars
	reader := &fakeReader{texts: texts}
	writer := newFakeWriter()
	transformer := &fakeTransformer{}

	runner := New(reader, writer, transformer, TransformSummarize, "zh", "concise", nil)
	status, tasks := runner.Run(context.Background(), structure.DocStructureSnapshot{Roots: roots})

	if status != RunSuccess {
		t.Fatalf("status = %q, want success", status)
	}
	for _, task := range tasks {
		if task.Status != TaskSkipped {
			t.Errorf("task %q status = %q, want skipped", task.SectionID, task.Status)
		}
	}
	if transformer.calls != 0 {
		t.Errorf("transform calls = %d, want 0 for skipped sections", transformer.calls)
	}
}

func TestRunCanceledAfterThirdTransitionStopsRemainingTasks(t *testing.T) {
	roots, texts := flatRoots(8, 80)
	reader := &fakeReader{texts: texts}
	writer := newFakeWriter()
	transformer := &fakeTransformer{}

	var runner *Runner
	runner = New(reader, writer, transformer, TransformSummarize, "zh", "concise", func(s StateSnapshot) {
		if s.OverallStatus == RunInProgress && s.SuccessCount == 3 {
			runner.Cancel()
		}
	})

	status, tasks := runner.Run(context.Background(), structure.DocStructureSnapshot{Roots: roots})

	if status != RunCanceled {
		t.Fatalf("status = %q, want canceled", status)
	}
	for i := 0; i < 3; i++ {
		if tasks[i].Status != TaskSuccess {
			t.Errorf("task %d status = %q, want success", i, tasks[i].Status)
		}
	}
	for i := 3; i < 8; i++ {
		if tasks[i].Status != TaskPending {
			t.Errorf("task %d status = %q, want pending", i, tasks[i].Status)
		}
	}
	if transformer.calls != 3 {
		t.Errorf("transform calls = %d, want exactly 3 before cancellation", transformer.calls)
	}
}

func TestRunTransformErrorMarksTaskErrorAndContinues(t *testing.T) {
	roots, texts := flatRoots(2, 80)
	reader := &fakeReader{texts: texts}
	writer := newFakeWriter()
	transformer := &fakeTransformer{err: fmt.Errorf("boom")}

	runner := New(reader, writer, transformer, TransformSummarize, "zh", "concise", nil)
	status, tasks := runner.Run(context.Background(), structure.DocStructureSnapshot{Roots: roots})

	if status != RunError {
		t.Fatalf("status = %q, want error", status)
	}
	for _, task := range tasks {
		if task.Status != TaskError {
			t.Errorf("task %q status = %q, want error", task.SectionID, task.Status)
		}
		if task.Message == "" {
			t.Error("expected an error message on a failed task")
		}
	}
}
