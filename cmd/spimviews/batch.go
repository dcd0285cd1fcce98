package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"spimviews/pkg/report"
)

var batchCmd = &cobra.Command{
	Use:   "batch dir...",
	Short: "Resolve several datasets concurrently",
	Long: `Batch resolves every given directory with the same settings. Datasets are
resolved in parallel; each run is itself sequential, so results match the
resolve command. Summaries are printed in argument order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	addDatasetFlags(batchCmd)
	batchCmd.Flags().IntP("jobs", "j", 0, "datasets resolved at once (default: GOMAXPROCS)")
	batchCmd.Flags().Bool("keep-going", false, "report failed datasets instead of stopping at the first")
}

type batchResult struct {
	summary bytes.Buffer
	err     error
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyDatasetFlags(cmd, cfg); err != nil {
		return err
	}
	jobs, _ := cmd.Flags().GetInt("jobs")
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	keepGoing, _ := cmd.Flags().GetBool("keep-going")
	logger := newLogger(cfg, cmd.ErrOrStderr())

	// Indices are unique per goroutine, no locking needed.
	results := make([]batchResult, len(args))

	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(min(jobs, len(args)))
	for i, dir := range args {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			r, err := resolveDataset(dir, cfg, logger)
			if err != nil {
				results[i].err = explain(err)
				if keepGoing {
					return nil
				}
				return results[i].err
			}
			return report.NewViewer(r.GetResult()).WriteSummary(&results[i].summary)
		})
	}
	waitErr := g.Wait()

	failed, err := printBatch(cmd.OutOrStdout(), args, results)
	if err != nil {
		return err
	}
	if waitErr != nil {
		return waitErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d datasets failed", failed, len(args))
	}
	return nil
}

// printBatch writes the summary or error of every dataset in argument order
// and returns the number of failed datasets.
func printBatch(out io.Writer, dirs []string, results []batchResult) (int, error) {
	header := color.New(color.FgCyan, color.Bold)
	failed := 0
	for i, dir := range dirs {
		if _, err := header.Fprintf(out, "== %s\n", dir); err != nil {
			return failed, fmt.Errorf("failed to write summary of %s: %w", dir, err)
		}
		if results[i].err != nil {
			failed++
			if _, err := color.New(color.FgRed).Fprintf(out, "  %v\n", results[i].err); err != nil {
				return failed, fmt.Errorf("failed to write summary of %s: %w", dir, err)
			}
			continue
		}
		if _, err := out.Write(results[i].summary.Bytes()); err != nil {
			return failed, fmt.Errorf("failed to write summary of %s: %w", dir, err)
		}
	}
	return failed, nil
}
