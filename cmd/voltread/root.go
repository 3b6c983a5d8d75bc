package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/voltread/voltread/version"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "voltread",
	Short: "Circuit-legend extraction from electrical diagram PDFs",
	Long: `Voltread reads multi-page electrical diagram PDFs, renders the pages
to images, sends them in batches to a vision-capable language model,
and accumulates the circuit legend (board, site, company, circuit
schedule) into a spreadsheet.

Every run writes a self-contained directory with a copy of the input,
the rendered pages, the per-batch prompts and model responses, and the
final output.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.voltread/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging",
	)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
