package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/voltread/voltread/internal/config"
	"github.com/voltread/voltread/internal/legend"
	"github.com/voltread/voltread/internal/providers"
	"github.com/voltread/voltread/internal/render"
	"github.com/voltread/voltread/internal/runstore"
	"github.com/voltread/voltread/internal/sheet"
)

// fakeClient replays canned legend responses, one per batch.
type fakeClient struct {
	responses []any
	requests  []*providers.ChatRequest
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Chat(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResult, error) {
	f.requests = append(f.requests, req)
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("no canned response left")
	}
	next := f.responses[0]
	f.responses = f.responses[1:]

	raw, err := json.Marshal(next)
	if err != nil {
		return nil, err
	}
	return &providers.ChatResult{
		Content:    string(raw),
		ParsedJSON: raw,
		Provider:   "fake",
		Attempts:   1,
	}, nil
}

// fakeRenderer writes pageCount synthetic page images through the sink.
func fakeRenderer(pageCount int) func(ctx context.Context, pdfPath string, dpi int, sink render.Sink) (int, error) {
	return func(ctx context.Context, pdfPath string, dpi int, sink render.Sink) (int, error) {
		for i := 0; i < pageCount; i++ {
			if err := sink(i, []byte(fmt.Sprintf("png-%d", i))); err != nil {
				return 0, err
			}
		}
		return pageCount, nil
	}
}

func testOptions(t *testing.T, client providers.LLMClient, pageCount int) Options {
	t.Helper()

	pdfPath := filepath.Join(t.TempDir(), "site.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF fake"), 0o644); err != nil {
		t.Fatalf("write fake pdf: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.BatchSize = 2

	return Options{
		Config:    cfg,
		PDFPath:   pdfPath,
		OutputDir: filepath.Join(t.TempDir(), "runs"),
		Client:    client,
		Renderer:  fakeRenderer(pageCount),
	}
}

func legendUpdate(summary string, circuits ...legend.Circuit) *legend.Update {
	return &legend.Update{
		ResponseType: legend.TypeLegendUpdate,
		BatchSummary: summary,
		Legend: legend.Legend{
			IssuingCompany:    "Elektro Nord",
			ProjectSite:       "Warehouse B",
			DistributionBoard: "UV-2.1",
			Circuits:          circuits,
		},
	}
}

func TestRun_HappyPath(t *testing.T) {
	// 3 pages with batch size 2 means two batches: 0000-0001, 0002-0002.
	client := &fakeClient{responses: []any{
		legendUpdate("first pages",
			legend.Circuit{Tag: "10Q1", Rating: "4x10A/30mA", Description: "Sockets"},
		),
		legendUpdate("last page",
			legend.Circuit{Tag: "10Q1", Rating: "4x10A/30mA", Description: "Sockets"},
			legend.Circuit{Tag: "20F5.1", Rating: "1x16A", Description: "Lighting"},
		),
	}}

	result, err := Run(context.Background(), testOptions(t, client, 3))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.PageCount != 3 || result.BatchCount != 2 || result.Halted {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(result.Legend.Circuits) != 2 {
		t.Errorf("expected 2 accumulated circuits, got %d", len(result.Legend.Circuits))
	}

	t.Run("pages persisted", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			path := filepath.Join(result.RunDir, runstore.PagesDirName, fmt.Sprintf("page_%04d.png", i))
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("page %d missing: %v", i, err)
			}
			if string(data) != fmt.Sprintf("png-%d", i) {
				t.Errorf("page %d content mismatch: %q", i, data)
			}
		}
	})

	t.Run("batch artifacts persisted", func(t *testing.T) {
		for _, batchID := range []string{"0000-0001", "0002-0002"} {
			batchDir := filepath.Join(result.RunDir, runstore.BatchesDirName, batchID)
			if _, err := os.Stat(filepath.Join(batchDir, runstore.PromptFileName)); err != nil {
				t.Errorf("prompt missing for %s: %v", batchID, err)
			}
			raw, err := os.ReadFile(filepath.Join(batchDir, runstore.ResponseFileName))
			if err != nil {
				t.Fatalf("response missing for %s: %v", batchID, err)
			}
			if _, err := legend.Decode(raw); err != nil {
				t.Errorf("persisted response for %s does not decode: %v", batchID, err)
			}
		}
	})

	t.Run("second batch prompt carries running legend", func(t *testing.T) {
		if len(client.requests) != 2 {
			t.Fatalf("expected 2 chat requests, got %d", len(client.requests))
		}
		userMsg := client.requests[1].Messages[1]
		if !bytes.Contains([]byte(userMsg.Content), []byte("10Q1")) {
			t.Error("second batch prompt should embed the legend from batch one")
		}
		if len(userMsg.Images) != 1 {
			t.Errorf("expected 1 image for batch 0002-0002, got %d", len(userMsg.Images))
		}
	})

	t.Run("spreadsheet output", func(t *testing.T) {
		data, err := os.ReadFile(result.OutputPath)
		if err != nil {
			t.Fatalf("output missing: %v", err)
		}
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("output is not a spreadsheet: %v", err)
		}
		defer f.Close()
		got, err := f.GetCellValue(sheet.SheetName, "B1")
		if err != nil {
			t.Fatalf("read cell: %v", err)
		}
		if got != "Elektro Nord" {
			t.Errorf("B1 = %q", got)
		}
	})
}

func TestRun_HaltSignal(t *testing.T) {
	client := &fakeClient{responses: []any{
		legendUpdate("first pages",
			legend.Circuit{Tag: "10Q1", Rating: "4x10A/30mA", Description: "Sockets"},
		),
		&legend.HaltSignal{
			ResponseType: legend.TypeHaltSignal,
			ErrorMessage: "pages 2-3 are a site photo, not a diagram",
		},
	}}

	// 4 pages, batch size 2: halt arrives on the second of two batches.
	result, err := Run(context.Background(), testOptions(t, client, 4))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !result.Halted {
		t.Fatal("expected halted run")
	}
	if result.HaltMessage == "" {
		t.Error("expected halt message")
	}
	if result.BatchCount != 2 {
		t.Errorf("expected 2 batches processed, got %d", result.BatchCount)
	}

	// The halt response is persisted like any other.
	raw, err := os.ReadFile(filepath.Join(result.RunDir, runstore.BatchesDirName, "0002-0003", runstore.ResponseFileName))
	if err != nil {
		t.Fatalf("halt response missing: %v", err)
	}
	resp, err := legend.Decode(raw)
	if err != nil {
		t.Fatalf("decode halt response: %v", err)
	}
	if _, ok := resp.(*legend.HaltSignal); !ok {
		t.Errorf("expected halt signal, got %T", resp)
	}

	// Spreadsheet still written from the batch-one legend.
	if _, err := os.Stat(result.OutputPath); err != nil {
		t.Errorf("output missing after halt: %v", err)
	}
	if len(result.Legend.Circuits) != 1 {
		t.Errorf("expected legend from batch one, got %+v", result.Legend)
	}
}

func TestRun_SettingsReload(t *testing.T) {
	client := &fakeClient{responses: []any{
		legendUpdate("first pages",
			legend.Circuit{Tag: "10Q1", Rating: "4x10A/30mA", Description: "Sockets"},
		),
		legendUpdate("after reload",
			legend.Circuit{Tag: "10Q1", Rating: "4x10A/30mA", Description: "Sockets"},
		),
	}}

	opts := testOptions(t, client, 4)

	// Simulate a config file edit between batches: the second read
	// carries a new temperature.
	calls := 0
	opts.Settings = func() *config.Config {
		cfg := *opts.Config
		calls++
		if calls > 1 {
			cfg.Temperature = 0.2
		}
		return &cfg
	}

	result, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.BatchCount != 2 {
		t.Fatalf("expected 2 batches, got %d", result.BatchCount)
	}
	if len(client.requests) != 2 {
		t.Fatalf("expected 2 chat requests, got %d", len(client.requests))
	}
	if got := client.requests[0].Temperature; got != opts.Config.Temperature {
		t.Errorf("first batch temperature = %g, want %g", got, opts.Config.Temperature)
	}
	if got := client.requests[1].Temperature; got != 0.2 {
		t.Errorf("second batch temperature = %g, want 0.2 after reload", got)
	}
}

func TestRun_ModelFailure(t *testing.T) {
	client := &fakeClient{} // no canned responses: first chat call fails
	if _, err := Run(context.Background(), testOptions(t, client, 2)); err == nil {
		t.Fatal("expected error when the model call fails")
	}
}
