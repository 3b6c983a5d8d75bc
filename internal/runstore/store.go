// Package runstore owns the on-disk layout of a single extraction run:
// the dated run directory, the rendered page images, the per-batch
// prompt/response artifacts, and the final spreadsheet.
package runstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// PagesDirName is the subdirectory for rendered page images.
	PagesDirName = "pages"

	// BatchesDirName is the subdirectory for per-batch artifacts.
	BatchesDirName = "batches"

	// PromptFileName is the prompt artifact inside a batch directory.
	PromptFileName = "prompt.md"

	// ResponseFileName is the response artifact inside a batch directory.
	ResponseFileName = "response.json"

	// OutputFileName is the final spreadsheet at the run root.
	OutputFileName = "output.xlsx"

	// runDirTimeLayout names run directories by local wall-clock time.
	// One-second resolution; two Inits within the same second collide
	// and the second one fails.
	runDirTimeLayout = "02_01_2006-15_04_05"
)

var (
	// ErrNotInitialized is returned by write operations before Init.
	ErrNotInitialized = errors.New("run directory not initialized: call Init first")

	// ErrBatchNotFound is returned when an artifact write targets a
	// batch directory that was never created.
	ErrBatchNotFound = errors.New("batch directory does not exist: call CreateBatch first")

	// ErrInvalidBatchID is returned when a batch identifier fails the
	// path-safety check.
	ErrInvalidBatchID = errors.New("invalid batch id")
)

// Run holds the absolute paths of an initialized run. It is assigned
// once by Init and never mutated afterwards, so a single Store can be
// shared across page and batch writers without locking.
type Run struct {
	Dir        string
	PagesDir   string
	BatchesDir string
}

// Store is the filesystem gateway for one run. It is created
// uninitialized; Init creates the run directory tree and flips it to
// the initialized state. Write operations fail with ErrNotInitialized
// until then.
type Store struct {
	baseDir string
	pdfPath string
	run     *Run
}

// New creates a Store rooted at baseDir for the given source PDF.
// Both paths must be absolute; neither is required to exist yet, and
// the filesystem is not touched. PDF existence and extension checks
// belong to the settings layer.
func New(baseDir, pdfPath string) (*Store, error) {
	if !filepath.IsAbs(baseDir) {
		return nil, fmt.Errorf("base dir must be absolute, got %q", baseDir)
	}
	if !filepath.IsAbs(pdfPath) {
		return nil, fmt.Errorf("pdf path must be absolute, got %q", pdfPath)
	}
	return &Store{baseDir: baseDir, pdfPath: pdfPath}, nil
}

// Init creates the run directory tree and copies the source PDF into
// it as "input(<stem>).pdf". The run directory is named from the
// current local time; creation fails if a directory with that name
// already exists rather than reusing it.
func (s *Store) Init() (*Run, error) {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	runDir := filepath.Join(s.baseDir, time.Now().Format(runDirTimeLayout))
	if err := os.Mkdir(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	pagesDir := filepath.Join(runDir, PagesDirName)
	batchesDir := filepath.Join(runDir, BatchesDirName)
	if err := os.Mkdir(pagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create pages directory: %w", err)
	}
	if err := os.Mkdir(batchesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create batches directory: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(s.pdfPath), filepath.Ext(s.pdfPath))
	dst := filepath.Join(runDir, fmt.Sprintf("input(%s).pdf", stem))
	if err := copyFile(s.pdfPath, dst); err != nil {
		return nil, fmt.Errorf("failed to copy input pdf: %w", err)
	}

	s.run = &Run{Dir: runDir, PagesDir: pagesDir, BatchesDir: batchesDir}
	return s.run, nil
}

// Run returns the initialized run paths, or ErrNotInitialized. All
// write operations resolve the run through this single check.
func (s *Store) Run() (*Run, error) {
	if s.run == nil {
		return nil, ErrNotInitialized
	}
	return s.run, nil
}

// WriteImage writes the raw bytes of a rendered page under pages/
// using the canonical name page_%04d.png. An existing file at that
// index is overwritten; index uniqueness is the caller's concern.
func (s *Store) WriteImage(pageIndex int, data []byte) (string, error) {
	run, err := s.Run()
	if err != nil {
		return "", err
	}
	if pageIndex < 0 {
		return "", fmt.Errorf("page index must be non-negative, got %d", pageIndex)
	}
	target := filepath.Join(run.PagesDir, fmt.Sprintf("page_%04d.png", pageIndex))
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write page image: %w", err)
	}
	return target, nil
}

// BatchID formats the canonical identifier for an inclusive zero-based
// page range, e.g. BatchID(0, 2) == "0000-0002". Zero padding keeps
// lexicographic and numeric ordering aligned in directory listings.
func BatchID(start, end int) string {
	return fmt.Sprintf("%04d-%04d", start, end)
}

// CreateBatch creates the directory for the inclusive page range
// [start, end] under batches/ and returns its batch id. Creating the
// same range twice fails on the existing directory; overlapping ranges
// are not checked.
func (s *Store) CreateBatch(start, end int) (string, error) {
	run, err := s.Run()
	if err != nil {
		return "", err
	}
	if start > end {
		return "", fmt.Errorf("batch start %d must be <= end %d", start, end)
	}
	batchID := BatchID(start, end)
	if err := os.Mkdir(filepath.Join(run.BatchesDir, batchID), 0o755); err != nil {
		return "", fmt.Errorf("failed to create batch directory: %w", err)
	}
	return batchID, nil
}

// WritePrompt writes the prompt markdown for a batch, replacing any
// prior content. The batch directory must already exist.
func (s *Store) WritePrompt(batchID, content string) (string, error) {
	batchDir, err := s.batchDir(batchID)
	if err != nil {
		return "", err
	}
	target := filepath.Join(batchDir, PromptFileName)
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	return target, nil
}

// WriteResponse serializes a response payload as indented JSON into
// the batch directory. The same path handles legend updates and halt
// signals; the store does not inspect the payload.
func (s *Store) WriteResponse(batchID string, payload any) (string, error) {
	batchDir, err := s.batchDir(batchID)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("failed to serialize response: %w", err)
	}

	target := filepath.Join(batchDir, ResponseFileName)
	if err := os.WriteFile(target, []byte(buf.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write response: %w", err)
	}
	return target, nil
}

// WriteOutput writes the final spreadsheet bytes to the run root,
// overwriting any previous output. Whether all batches were processed
// is not checked here.
func (s *Store) WriteOutput(data []byte) (string, error) {
	run, err := s.Run()
	if err != nil {
		return "", err
	}
	target := filepath.Join(run.Dir, OutputFileName)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	return target, nil
}

// batchDir validates the batch id, then resolves the existing batch
// directory. Validation runs before any filesystem access.
func (s *Store) batchDir(batchID string) (string, error) {
	if err := validateBatchID(batchID); err != nil {
		return "", err
	}
	run, err := s.Run()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(run.BatchesDir, batchID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
		}
		return "", fmt.Errorf("failed to stat batch directory: %w", err)
	}
	return dir, nil
}

// validateBatchID is a conservative character-level check that keeps a
// malformed id from escaping the batches directory. It does not verify
// that the numeric range is well formed.
func validateBatchID(batchID string) error {
	if batchID == "" || !strings.Contains(batchID, "-") {
		return fmt.Errorf("%w: must contain at least one dash, e.g. %q", ErrInvalidBatchID, "0000-0002")
	}
	for _, r := range batchID {
		if (r < '0' || r > '9') && r != '-' {
			return fmt.Errorf("%w: only digits and dashes allowed, got %q", ErrInvalidBatchID, batchID)
		}
	}
	return nil
}

// copyFile copies src to dst, carrying over the file mode and
// modification time where the filesystem supports it.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, time.Now(), info.ModTime())
}
