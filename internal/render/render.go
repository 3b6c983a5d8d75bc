// Package render rasterizes PDF pages to PNG images.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Sink receives rendered page bytes keyed by zero-based page index.
// Distinct indices may arrive concurrently.
type Sink func(pageIndex int, data []byte) error

// PageCount returns the number of pages in the PDF.
func PageCount(pdfPath string) (int, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return count, nil
}

// Pages renders every page of the PDF at the given DPI and hands the
// bytes to sink. Pages render concurrently, bounded by the CPU count.
// Returns the number of pages rendered.
func Pages(ctx context.Context, pdfPath string, dpi int, sink Sink) (int, error) {
	pageCount, err := PageCount(pdfPath)
	if err != nil {
		return 0, err
	}
	if pageCount == 0 {
		return 0, fmt.Errorf("PDF has no pages: %s", pdfPath)
	}

	renderOne := func(pageIndex int) ([]byte, error) {
		return renderPage(ctx, pdfPath, pageIndex+1, dpi)
	}
	if err := forEachPage(pageCount, renderOne, sink); err != nil {
		return 0, err
	}
	return pageCount, nil
}

// forEachPage renders all pages concurrently, bounded by the CPU
// count, and waits for every in-flight page before returning. The
// first failure is reported only after the remaining goroutines have
// finished, so no render or sink call outlives the return.
func forEachPage(pageCount int, renderOne func(pageIndex int) ([]byte, error), sink Sink) error {
	type result struct {
		pageIndex int
		err       error
	}

	results := make(chan result, pageCount)
	sem := make(chan struct{}, runtime.NumCPU())

	for i := 0; i < pageCount; i++ {
		sem <- struct{}{} // acquire
		go func(pageIndex int) {
			defer func() { <-sem }() // release

			data, err := renderOne(pageIndex)
			if err == nil {
				err = sink(pageIndex, data)
			}
			results <- result{pageIndex: pageIndex, err: err}
		}(i)
	}

	var firstErr error
	for i := 0; i < pageCount; i++ {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to render page %d: %w", r.pageIndex, r.err)
		}
	}
	return firstErr
}

// renderPage renders a single page using pdftoppm (poppler-utils) and
// returns the PNG bytes. pageInPDF is 1-based as pdftoppm expects.
func renderPage(ctx context.Context, pdfPath string, pageInPDF, dpi int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "voltread-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")

	// -f/-l bound the render to one page; -singlefile drops the page
	// number suffix from the output name.
	pageStr := fmt.Sprintf("%d", pageInPDF)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}
