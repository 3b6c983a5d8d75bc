package render

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestPageCount_MissingFile(t *testing.T) {
	if _, err := PageCount(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPages_MissingFile(t *testing.T) {
	sink := func(pageIndex int, data []byte) error { return nil }
	if _, err := Pages(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), 400, sink); err == nil {
		t.Error("expected error for missing file")
	}
}

// A page failure must not leave renders or sink calls running past the
// return: every in-flight page finishes before the error surfaces.
func TestForEachPage_DrainsOnError(t *testing.T) {
	const pageCount = 16
	var finished atomic.Int32

	renderOne := func(pageIndex int) ([]byte, error) {
		defer finished.Add(1)
		if pageIndex == 3 {
			return nil, fmt.Errorf("synthetic render failure")
		}
		return []byte("png"), nil
	}

	var sunk atomic.Int32
	sink := func(pageIndex int, data []byte) error {
		sunk.Add(1)
		return nil
	}

	err := forEachPage(pageCount, renderOne, sink)
	if err == nil {
		t.Fatal("expected error from failing page")
	}
	if got := finished.Load(); got != pageCount {
		t.Errorf("finished renders = %d, want %d (error returned before drain)", got, pageCount)
	}
	if got := sunk.Load(); got != pageCount-1 {
		t.Errorf("sink calls = %d, want %d", got, pageCount-1)
	}
}

func TestForEachPage_SinkErrorDrains(t *testing.T) {
	const pageCount = 8
	var finished atomic.Int32

	renderOne := func(pageIndex int) ([]byte, error) {
		defer finished.Add(1)
		return []byte("png"), nil
	}
	sink := func(pageIndex int, data []byte) error {
		if pageIndex == 0 {
			return fmt.Errorf("synthetic write failure")
		}
		return nil
	}

	if err := forEachPage(pageCount, renderOne, sink); err == nil {
		t.Fatal("expected sink error to surface")
	}
	if got := finished.Load(); got != pageCount {
		t.Errorf("finished renders = %d, want %d", got, pageCount)
	}
}
