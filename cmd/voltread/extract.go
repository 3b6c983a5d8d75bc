package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/voltread/voltread/internal/config"
	"github.com/voltread/voltread/internal/pipeline"
	"github.com/voltread/voltread/internal/providers"
)

var (
	flagModel       string
	flagBaseURL     string
	flagTemperature float64
	flagDPI         int
	flagBatchSize   int
	flagOutputDir   string
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Extract the circuit legend from a diagram PDF",
	Long: `Extract runs the full pipeline against one PDF: pages are rendered at
the configured DPI, sent to the model in batches, and the accumulated
legend is written as a spreadsheet into a fresh run directory under
the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}

		// CLI flags override file and environment settings, including
		// values re-read after a config file reload.
		applyOverrides := func(base *config.Config) *config.Config {
			cfg := *base
			if cmd.Flags().Changed("model") {
				cfg.Model = flagModel
			}
			if cmd.Flags().Changed("base-url") {
				cfg.BaseURL = flagBaseURL
			}
			if cmd.Flags().Changed("temperature") {
				cfg.Temperature = flagTemperature
			}
			if cmd.Flags().Changed("dpi") {
				cfg.DPI = flagDPI
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.BatchSize = flagBatchSize
			}
			if cmd.Flags().Changed("output-dir") {
				cfg.OutputDir = flagOutputDir
			}
			return &cfg
		}

		cm.OnChange(func(cfg *config.Config) {
			slog.Info("configuration reloaded",
				"temperature", cfg.Temperature, "batch_size", cfg.BatchSize)
		})
		cm.WatchConfig()
		cfg := applyOverrides(cm.Get())

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		pdfPath, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if err := config.ValidatePDFPath(pdfPath); err != nil {
			return err
		}
		outputDir, err := filepath.Abs(cfg.OutputDir)
		if err != nil {
			return err
		}

		apiKey := config.ResolveEnvVars(cfg.APIKey)
		if apiKey == "" {
			return fmt.Errorf("no API key configured: set api_key in the config or the referenced environment variable")
		}

		client := providers.NewOpenAIClient(providers.OpenAIConfig{
			APIKey:      apiKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
		})

		result, err := pipeline.Run(cmd.Context(), pipeline.Options{
			Config:    cfg,
			PDFPath:   pdfPath,
			OutputDir: outputDir,
			Client:    client,
			Logger:    slog.Default(),
			Settings: func() *config.Config {
				return applyOverrides(cm.Get())
			},
		})
		if err != nil {
			return err
		}

		if result.Halted {
			fmt.Printf("extraction halted after %d batches: %s\n", result.BatchCount, result.HaltMessage)
		}
		fmt.Printf("run directory: %s\n", result.RunDir)
		fmt.Printf("output:        %s (%d circuits)\n", result.OutputPath, len(result.Legend.Circuits))
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVar(&flagModel, "model", "", "chat model name")
	extractCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "OpenAI-compatible endpoint base URL")
	extractCmd.Flags().Float64Var(&flagTemperature, "temperature", 0, "model temperature (0.0-2.0)")
	extractCmd.Flags().IntVar(&flagDPI, "dpi", 0, "DPI for PDF page rendering")
	extractCmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "pages per model batch")
	extractCmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "directory for run folders")
}
