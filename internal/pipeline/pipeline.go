// Package pipeline drives one extraction run end to end: render the
// PDF to page images, send page batches with the running legend to the
// model, persist every artifact through the run store, and write the
// final spreadsheet.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/voltread/voltread/internal/config"
	"github.com/voltread/voltread/internal/legend"
	"github.com/voltread/voltread/internal/prompts"
	"github.com/voltread/voltread/internal/providers"
	"github.com/voltread/voltread/internal/render"
	"github.com/voltread/voltread/internal/runstore"
	"github.com/voltread/voltread/internal/sheet"
)

// Options configures one run.
type Options struct {
	Config    *config.Config
	PDFPath   string // absolute, pre-validated by the caller
	OutputDir string // absolute
	Client    providers.LLMClient
	Logger    *slog.Logger

	// Renderer defaults to render.Pages; tests substitute a fake.
	Renderer func(ctx context.Context, pdfPath string, dpi int, sink render.Sink) (int, error)

	// Settings is re-read before each batch so that config file edits
	// picked up by the watcher take effect mid-run (temperature,
	// batch_size). Defaults to a constant view of Config.
	Settings func() *config.Config
}

// Result summarizes a completed run.
type Result struct {
	RunDir      string
	OutputPath  string
	PageCount   int
	BatchCount  int
	Halted      bool
	HaltMessage string
	Legend      legend.Legend
}

// Run executes the extraction pipeline for a single document. A halt
// signal from the model stops the batch loop but is not an error: the
// halt response is persisted and the spreadsheet is still written from
// the last good legend.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	settings := opts.Settings
	if settings == nil {
		settings = func() *config.Config { return opts.Config }
	}

	store, err := runstore.New(opts.OutputDir, opts.PDFPath)
	if err != nil {
		return nil, err
	}
	run, err := store.Init()
	if err != nil {
		return nil, err
	}
	log.Info("run initialized", "run_dir", run.Dir)

	renderPages := opts.Renderer
	if renderPages == nil {
		renderPages = render.Pages
	}
	pageCount, err := renderPages(ctx, opts.PDFPath, opts.Config.DPI, func(pageIndex int, data []byte) error {
		_, err := store.WriteImage(pageIndex, data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("page rendering failed: %w", err)
	}
	log.Info("pages rendered", "count", pageCount, "dpi", opts.Config.DPI)

	result := &Result{RunDir: run.Dir, PageCount: pageCount}
	current := legend.Legend{Circuits: []legend.Circuit{}}

	for start := 0; start < pageCount; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg := settings()
		batchSize := cfg.BatchSize
		if batchSize < 1 {
			batchSize = 1
		}
		end := min(start+batchSize-1, pageCount-1)
		batchID, err := store.CreateBatch(start, end)
		if err != nil {
			return nil, fmt.Errorf("batch creation failed: %w", err)
		}

		userPrompt, err := prompts.Batch(batchID, start, end, pageCount, current)
		if err != nil {
			return nil, fmt.Errorf("prompt construction failed for batch %s: %w", batchID, err)
		}
		fullPrompt := prompts.System() + "\n\n---\n\n" + userPrompt
		if _, err := store.WritePrompt(batchID, fullPrompt); err != nil {
			return nil, err
		}

		images, err := loadPageImages(run.PagesDir, start, end)
		if err != nil {
			return nil, err
		}

		log.Info("processing batch", "batch_id", batchID, "pages", end-start+1)
		chat, err := opts.Client.Chat(ctx, &providers.ChatRequest{
			Messages: []providers.Message{
				{Role: "system", Content: prompts.System()},
				{Role: "user", Content: userPrompt, Images: images},
			},
			Temperature: cfg.Temperature,
			ResponseFormat: &providers.ResponseFormat{
				Name:   legend.SchemaName,
				Schema: legend.ResponseSchema,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("model call failed for batch %s: %w", batchID, err)
		}
		log.Debug("model responded",
			"batch_id", batchID,
			"prompt_tokens", chat.PromptTokens,
			"completion_tokens", chat.CompletionTokens,
			"attempts", chat.Attempts,
			"latency", chat.ExecutionTime,
		)

		resp, err := legend.Decode(chat.ParsedJSON)
		if err != nil {
			return nil, fmt.Errorf("response decoding failed for batch %s: %w", batchID, err)
		}
		if _, err := store.WriteResponse(batchID, resp); err != nil {
			return nil, err
		}
		result.BatchCount++

		switch r := resp.(type) {
		case *legend.Update:
			current = r.Legend
			log.Info("legend updated", "batch_id", batchID, "circuits", len(current.Circuits))
		case *legend.HaltSignal:
			result.Halted = true
			result.HaltMessage = r.ErrorMessage
			log.Warn("halt signal received", "batch_id", batchID, "reason", r.ErrorMessage)
		}
		if result.Halted {
			break
		}
		start = end + 1
	}

	data, err := sheet.Build(current)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet generation failed: %w", err)
	}
	outputPath, err := store.WriteOutput(data)
	if err != nil {
		return nil, err
	}
	log.Info("run complete", "output", outputPath, "batches", result.BatchCount, "halted", result.Halted)

	result.OutputPath = outputPath
	result.Legend = current
	return result, nil
}

// loadPageImages reads the persisted page images for an inclusive
// index range back from the run's pages directory.
func loadPageImages(pagesDir string, start, end int) ([][]byte, error) {
	images := make([][]byte, 0, end-start+1)
	for i := start; i <= end; i++ {
		data, err := os.ReadFile(filepath.Join(pagesDir, fmt.Sprintf("page_%04d.png", i)))
		if err != nil {
			return nil, fmt.Errorf("failed to read page image %d: %w", i, err)
		}
		images = append(images, data)
	}
	return images, nil
}
