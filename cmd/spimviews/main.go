package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"spimviews/internal/version"
	"spimviews/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "spimviews",
	Short: "Resolve the view structure of multi-view microscopy datasets",
	Long: `spimviews reads a set of microscope image files and works out the
timepoints and view setups (channel, illumination, angle, tile) they contain,
which file supplies each view, and which views are missing.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.Version = version.String()

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "spimviews.yaml", "configuration file (.yaml or .toml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log at debug level")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text|json)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the spimviews version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

// loadConfig reads the --config file and applies the global flags to it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Output.Verbose, _ = cmd.Flags().GetBool("verbose")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Output.LogFormat, _ = cmd.Flags().GetString("log-format")
	}
	return cfg, cfg.Validate()
}

// newLogger builds the process logger. Logs go to w so that summaries on
// stdout stay machine readable.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Output.Verbose {
		opts.Level = slog.LevelDebug
	}
	if cfg.Output.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
