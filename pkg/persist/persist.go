// Package persist implements the document persistence façade
// (export/save-as/import) plus the snapshot filesystem primitives the Save
// Coordinator uses for retention-pruned backups.
//
// DOCX conversion itself is out of scope; the default Exporter writes and
// reads plain files, leaving format conversion to a caller-supplied content
// string.
package persist

import (
	"fmt"
	"os"
	"path/filepath"
)

// ExportResult is exportDocx's/saveAsDocx's outcome.
type ExportResult struct {
	Success  bool
	FilePath string
	Error    string
}

// ImportResult is importDocx's outcome.
type ImportResult struct {
	Success bool
	Content string
	Error   string
}

// Exporter matches the persistence façade's contract.
type Exporter interface {
	ExportDocx(path, content string) ExportResult
	SaveAsDocx(content, hint string) ExportResult
	ImportDocx(path string) ImportResult
}

// FileExporter is the default, filesystem-backed Exporter.
type FileExporter struct{}

// NewFileExporter returns the default Exporter.
func NewFileExporter() *FileExporter {
	return &FileExporter{}
}

// ExportDocx writes content to path.
func (FileExporter) ExportDocx(path, content string) ExportResult {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return ExportResult{Success: false, Error: fmt.Sprintf("persist: export failed: %s", err)}
	}
	return ExportResult{Success: true, FilePath: path}
}

// SaveAsDocx writes content to a new path derived from hint (or a default
// name when hint is empty).
func (FileExporter) SaveAsDocx(content, hint string) ExportResult {
	path := hint
	if path == "" {
		path = "untitled.docx"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return ExportResult{Success: false, Error: fmt.Sprintf("persist: save-as failed: %s", err)}
	}
	return ExportResult{Success: true, FilePath: path}
}

// ImportDocx reads path's contents.
func (FileExporter) ImportDocx(path string) ImportResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImportResult{Success: false, Error: fmt.Sprintf("persist: import failed: %s", err)}
	}
	return ImportResult{Success: true, Content: string(data)}
}

// SnapshotDir returns the snapshot directory for docId under userDataDir,
// per the layout <userData>/ai-libre/snapshots/<docId>/.
func SnapshotDir(userDataDir, docID string) string {
	return filepath.Join(userDataDir, "ai-libre", "snapshots", docID)
}

// EnsureDir creates dir (and parents) if it does not already exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persist: failed to create directory %q: %w", dir, err)
	}
	return nil
}

// CopyFile copies src to dst, creating dst's parent directory as needed.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("persist: failed to read %q: %w", src, err)
	}
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("persist: failed to write %q: %w", dst, err)
	}
	return nil
}

// ReadDir lists entry names in dir, sorted by Go's default os.ReadDir order
// (lexical by name).
func ReadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("persist: failed to read directory %q: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// DeleteFile removes path.
func DeleteFile(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("persist: failed to delete %q: %w", path, err)
	}
	return nil
}
