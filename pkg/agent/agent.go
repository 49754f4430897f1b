// Package agent implements the Document Agent Runner: it applies a
// per-section transformation (summarize or translate) across a whole
// document, serially, with deterministic progress reporting and
// cooperative cancellation.
package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/ai-libre/docintel/pkg/block"
	"github.com/ai-libre/docintel/pkg/structure"
)

// TaskStatus is one task's lifecycle state.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskSuccess TaskStatus = "success"
	TaskSkipped TaskStatus = "skipped"
	TaskError   TaskStatus = "error"
)

// RunStatus is the overall run's outcome.
type RunStatus string

const (
	RunInProgress RunStatus = "in_progress"
	RunSuccess    RunStatus = "success"
	RunError      RunStatus = "error"
	RunCanceled   RunStatus = "canceled"
)

// TransformKind selects which per-section operation the run applies.
type TransformKind string

const (
	TransformSummarize TransformKind = "summarize"
	TransformTranslate TransformKind = "translate"
)

// Task is one section's unit of work.
type Task struct {
	SectionID string
	Title     string
	Status    TaskStatus
	Reason    string // set for Skipped
	Message   string // set for Error
}

// Transformer performs the external transformation (LLM call) for one
// section's text. lang/style parameterize the prompt.
type Transformer interface {
	Transform(ctx context.Context, kind TransformKind, text, language, style string) (string, error)
}

// MinSectionChars is the configured minimum section length; shorter
// sections are skipped rather than sent to the transformer.
const MinSectionChars = 50

// StateSnapshot is delivered to the observability callback on every task
// transition.
type StateSnapshot struct {
	Tasks        []Task
	CurrentIndex int
	SuccessCount int
	SkippedCount int
	ErrorCount   int
	OverallStatus RunStatus
}

// Runner executes one document-wide transformation run.
type Runner struct {
	reader      block.EditorReader
	writer      block.EditorWriter
	transformer Transformer
	kind        TransformKind
	language    string
	style       string

	mu       sync.Mutex
	canceled bool

	onChange func(StateSnapshot)
}

// New creates a Runner. onChange may be nil.
func New(reader block.EditorReader, writer block.EditorWriter, transformer Transformer, kind TransformKind, language, style string, onChange func(StateSnapshot)) *Runner {
	return &Runner{
		reader:      reader,
		writer:      writer,
		transformer: transformer,
		kind:        kind,
		language:    language,
		style:       style,
		onChange:    onChange,
	}
}

// Cancel requests the run stop before its next task transition. In-flight
// tasks run to completion; no partial application is rolled back.
func (r *Runner) Cancel() {
	r.mu.Lock()
	r.canceled = true
	r.mu.Unlock()
}

func (r *Runner) isCanceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}

// Run snapshots the section list and processes it strictly in document
// order, one section at a time.
func (r *Runner) Run(ctx context.Context, snap structure.DocStructureSnapshot) (RunStatus, []Task) {
	var flat []*structure.SectionNode
	flattenInto(snap.Roots, &flat)

	tasks := make([]Task, len(flat))
	for i, n := range flat {
		tasks[i] = Task{SectionID: n.ID, Title: n.Title, Status: TaskPending}
	}

	r.emit(tasks, -1)

	for i, n := range flat {
		if r.isCanceled() {
			return r.finish(tasks, i, RunCanceled)
		}

		tasks[i].Status = TaskRunning
		r.emit(tasks, i)

		sectionCtx := r.reader.ExtractSectionContext(n.TitleBlockID)
		text := r.reader.GetSectionFullText(sectionCtx)

		if runeLen(text) < MinSectionChars {
			tasks[i].Status = TaskSkipped
			tasks[i].Reason = "section text is shorter than the configured minimum"
			r.emit(tasks, i)
			continue
		}

		result, err := r.transformer.Transform(ctx, r.kind, text, r.language, r.style)
		if err != nil {
			tasks[i].Status = TaskError
			tasks[i].Message = err.Error()
			r.emit(tasks, i)
			continue
		}

		if applyErr := r.apply(n.ID, sectionCtx, result); applyErr != nil {
			tasks[i].Status = TaskError
			tasks[i].Message = fmt.Sprintf("applying result failed: %s", applyErr)
			r.emit(tasks, i)
			continue
		}

		tasks[i].Status = TaskSuccess
		r.emit(tasks, i)
	}

	return r.finish(tasks, len(tasks), overallStatus(tasks))
}

func (r *Runner) apply(sectionID string, sectionCtx *block.SectionContext, result string) error {
	switch r.kind {
	case TransformSummarize:
		return r.writer.InsertSectionSummary(sectionID, result)
	case TransformTranslate:
		return r.writer.ReplaceSectionBody(sectionID, result)
	default:
		return fmt.Errorf("unknown transform kind %q", r.kind)
	}
}

func (r *Runner) finish(tasks []Task, currentIndex int, status RunStatus) (RunStatus, []Task) {
	r.emitWithStatus(tasks, currentIndex, status)
	return status, tasks
}

func overallStatus(tasks []Task) RunStatus {
	for _, t := range tasks {
		if t.Status == TaskError {
			return RunError
		}
	}
	return RunSuccess
}

func (r *Runner) emit(tasks []Task, currentIndex int) {
	r.emitWithStatus(tasks, currentIndex, RunInProgress)
}

func (r *Runner) emitWithStatus(tasks []Task, currentIndex int, status RunStatus) {
	if r.onChange == nil {
		return
	}
	snapshot := StateSnapshot{
		Tasks:         append([]Task(nil), tasks...),
		CurrentIndex:  currentIndex,
		OverallStatus: status,
	}
	for _, t := range tasks {
		switch t.Status {
		case TaskSuccess:
			snapshot.SuccessCount++
		case TaskSkipped:
			snapshot.SkippedCount++
		case TaskError:
			snapshot.ErrorCount++
		}
	}
	r.onChange(snapshot)
}

func flattenInto(nodes []*structure.SectionNode, out *[]*structure.SectionNode) {
	for _, n := range nodes {
		*out = append(*out, n)
		flattenInto(n.Children, out)
	}
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
