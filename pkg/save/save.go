// Package save implements the Save & Snapshot Coordinator: debounced
// autosave, manual save with snapshot retention, and retry after a fixed
// delay on export failure, all serialized per document.
package save

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ai-libre/docintel/pkg/persist"
)

// State is one document's save lifecycle state.
type State string

const (
	StateClean  State = "clean"
	StatePending State = "pending"
	StateSaving  State = "saving"
	StateSaved   State = "saved"
	StateError   State = "error"
)

// DefaultDebounce is markDirty's default autosave delay.
const DefaultDebounce = 1500 * time.Millisecond

// DefaultMaxRetries is the default retry ceiling before a save gives up.
const DefaultMaxRetries = 3

// DefaultRetryDelay is the delay between retry attempts.
const DefaultRetryDelay = 2 * time.Second

// DefaultRetention is the default number of snapshots kept per document.
const DefaultRetention = 5

// docState tracks one document's in-flight save bookkeeping.
type docState struct {
	mu           sync.Mutex
	state        State
	content      string
	path         string
	isDirty      bool
	saveInFlight bool
	pendingAgain bool
	retryCount   int
	savedAt      time.Time
	timer        *time.Timer
}

// Coordinator serializes save operations across all open documents.
type Coordinator struct {
	exporter    persist.Exporter
	snapshotter *Snapshotter
	debounce    time.Duration
	maxRetries  int
	retryDelay  time.Duration

	mu   sync.Mutex
	docs map[string]*docState
}

// New creates a Coordinator. snapshotter may be nil to disable snapshots.
func New(exporter persist.Exporter, snapshotter *Snapshotter) *Coordinator {
	return &Coordinator{
		exporter:    exporter,
		snapshotter: snapshotter,
		debounce:    DefaultDebounce,
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		docs:        make(map[string]*docState),
	}
}

func (c *Coordinator) stateFor(docID string) *docState {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.docs[docID]
	if !ok {
		d = &docState{state: StateClean}
		c.docs[docID] = d
	}
	return d
}

// State returns docID's current save state.
func (c *Coordinator) State(docID string) State {
	d := c.stateFor(docID)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// MarkDirty records new content and (re)schedules a debounced save. A
// second call within the debounce window resets the timer and supersedes
// the earlier content.
func (c *Coordinator) MarkDirty(docID, content, path string) {
	d := c.stateFor(docID)

	d.mu.Lock()
	d.content = content
	d.path = path
	d.isDirty = true
	d.state = StatePending
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(c.debounce, func() {
		c.fireAutosave(docID, d)
	})
	d.mu.Unlock()
}

func (c *Coordinator) fireAutosave(docID string, d *docState) {
	d.mu.Lock()
	if !d.isDirty || d.path == "" {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	c.save(docID, d)
}

// save performs one export attempt, serialized per document via
// saveInFlight.
func (c *Coordinator) save(docID string, d *docState) {
	d.mu.Lock()
	if d.saveInFlight {
		d.pendingAgain = true
		d.mu.Unlock()
		return
	}
	d.saveInFlight = true
	d.state = StateSaving
	content := d.content
	path := d.path
	d.mu.Unlock()

	result := c.exporter.ExportDocx(path, content)

	d.mu.Lock()
	d.saveInFlight = false
	if result.Success {
		d.retryCount = 0
		if d.pendingAgain {
			d.pendingAgain = false
			d.mu.Unlock()
			c.save(docID, d)
			return
		}
		d.state = StateSaved
		d.isDirty = false
		d.savedAt = time.Now()
		d.mu.Unlock()
		return
	}

	d.retryCount++
	if d.retryCount > c.maxRetries {
		d.state = StateError
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	time.AfterFunc(c.retryDelay, func() {
		c.save(docID, d)
	})
}

// Save performs a manual save: cancels any pending autosave timer,
// performs the save synchronously (waiting through any retries until one
// succeeds or they are exhausted), then snapshots on success.
func (c *Coordinator) Save(docID, content, path string) error {
	d := c.stateFor(docID)

	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.content = content
	d.path = path
	d.mu.Unlock()

	c.save(docID, d)

	// A failed attempt leaves the state at saving while a retry is
	// scheduled; wait until the retries succeed or are exhausted.
	for c.State(docID) == StateSaving {
		time.Sleep(c.retryDelay)
	}

	if c.State(docID) != StateSaved {
		return fmt.Errorf("save: manual save of %q did not complete successfully", docID)
	}

	if c.snapshotter != nil {
		return c.snapshotter.Snapshot(docID, path)
	}
	return nil
}

// CancelAutoSave clears docID's debounce timer. It cannot abort a save
// operation already issued.
func (c *Coordinator) CancelAutoSave(docID string) {
	d := c.stateFor(docID)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Snapshotter copies saved files into a per-document, timestamped snapshot
// directory, pruning beyond a retention count.
type Snapshotter struct {
	userDataDir string
	retention   int
	now         func() time.Time
}

// NewSnapshotter creates a Snapshotter rooted at userDataDir. now defaults
// to time.Now when nil.
func NewSnapshotter(userDataDir string, retention int, now func() time.Time) *Snapshotter {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if now == nil {
		now = time.Now
	}
	return &Snapshotter{userDataDir: userDataDir, retention: retention, now: now}
}

// Snapshot copies savedPath into docID's snapshot directory under a
// timestamped filename, then prunes the oldest entries beyond retention.
func (s *Snapshotter) Snapshot(docID, savedPath string) error {
	dir := persist.SnapshotDir(s.userDataDir, docID)
	if err := persist.EnsureDir(dir); err != nil {
		return err
	}

	name := s.now().Format("20060102-150405") + ".docx"
	dst := filepath.Join(dir, name)
	if err := persist.CopyFile(savedPath, dst); err != nil {
		return err
	}

	return s.prune(dir)
}

func (s *Snapshotter) prune(dir string) error {
	names, err := persist.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Strings(names)
	excess := len(names) - s.retention
	for i := 0; i < excess; i++ {
		if err := persist.DeleteFile(filepath.Join(dir, names[i])); err != nil {
			return err
		}
	}
	return nil
}
