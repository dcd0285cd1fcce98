package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"spimviews/pkg/config"
	"spimviews/pkg/detection"
	"spimviews/pkg/discovery"
	"spimviews/pkg/probe"
	"spimviews/pkg/report"
	"spimviews/pkg/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [dir]",
	Short: "Resolve the views of one dataset",
	Long: `Resolve scans dir (default: the configured input root) for image files,
probes their metadata and prints the resolved timepoints, view setups and
missing views.

Slot roles are given in filename pattern order, e.g. for spim_TL{0}_Angle{1}.tif:
  spimviews resolve --slot timepoint --slot angle data/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	addDatasetFlags(resolveCmd)
	resolveCmd.Flags().String("grid", "", "write an occupancy grid image (.png or .tif)")
	resolveCmd.Flags().Int("grid-cell", 0, "grid cell size in pixels")
	resolveCmd.Flags().String("dump", "", "write the resolved view set as YAML")
}

// addDatasetFlags registers the flags shared by resolve and batch.
func addDatasetFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("include", "", "glob matched against file names")
	f.StringSlice("slot", nil, "role of each filename pattern slot in order: timepoint|channel|illumination|angle|tile|zplane|ignore")
	f.Bool("prefer-channel", false, "treat ambiguous raw channels as channels (false: as illuminations)")
	f.Bool("prefer-tile", false, "treat ambiguous series as tiles (false: as angles)")
	f.Bool("cache", false, "cache probe results on disk")
}

// applyDatasetFlags overrides cfg with the flags the user set.
func applyDatasetFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("include") {
		cfg.Input.Include, _ = f.GetString("include")
	}
	if f.Changed("slot") {
		cfg.Slots, _ = f.GetStringSlice("slot")
	}
	if f.Changed("prefer-channel") {
		v, _ := f.GetBool("prefer-channel")
		cfg.Disambiguation.PreferChannelOverIllumination = &v
	}
	if f.Changed("prefer-tile") {
		v, _ := f.GetBool("prefer-tile")
		cfg.Disambiguation.PreferTileOverAngle = &v
	}
	if f.Changed("cache") {
		cfg.Probe.Cache, _ = f.GetBool("cache")
	}
	if f.Changed("grid") {
		cfg.Output.Grid, _ = f.GetString("grid")
	}
	if f.Changed("grid-cell") {
		cfg.Output.GridCell, _ = f.GetInt("grid-cell")
	}
	if f.Changed("dump") {
		cfg.Output.Dump, _ = f.GetString("dump")
	}
	return cfg.Validate()
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyDatasetFlags(cmd, cfg); err != nil {
		return err
	}
	root := cfg.Input.Root
	if len(args) == 1 {
		root = args[0]
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	start := time.Now()
	r, err := resolveDataset(root, cfg, logger)
	if err != nil {
		return explain(err)
	}
	logger.Debug("resolved", "root", root, "elapsed", time.Since(start))

	viewer := report.NewViewer(r.GetResult())
	if err := viewer.WriteSummary(cmd.OutOrStdout()); err != nil {
		return err
	}
	if cfg.Output.Grid != "" {
		if err := viewer.SaveGrid(cfg.Output.Grid, cfg.Output.GridCell); err != nil {
			return fmt.Errorf("failed to save grid: %w", err)
		}
		logger.Info("wrote occupancy grid", "path", cfg.Output.Grid)
	}
	if cfg.Output.Dump != "" {
		if err := writeDump(viewer, cfg.Output.Dump); err != nil {
			return err
		}
		logger.Info("wrote view set", "path", cfg.Output.Dump)
	}
	return nil
}

// resolveDataset discovers and resolves the files under root.
func resolveDataset(root string, cfg *config.Config, logger *slog.Logger) (*resolver.Resolver, error) {
	fs := osfs.New(root)
	files, err := discovery.Find(fs, ".", cfg.Input.Include)
	if err != nil {
		return nil, err
	}

	var prober probe.Prober = probe.Chain{probe.NewSidecarProber(fs), probe.NewTIFFProber(fs)}
	if cfg.Probe.Cache {
		cache, err := probe.NewCache(fs, cfg.Probe.CacheDir)
		if err != nil {
			return nil, err
		}
		prober = probe.NewCachedProber(prober, cache, fs, logger)
	}

	slots, err := cfg.SlotRoles()
	if err != nil {
		return nil, err
	}
	r := resolver.NewResolver(&resolver.Params{
		Files:                         files,
		Slots:                         slots,
		PreferChannelOverIllumination: cfg.Disambiguation.PreferChannelOverIllumination,
		PreferTileOverAngle:           cfg.Disambiguation.PreferTileOverAngle,
	}, resolver.WithLogger(logger.With("root", root)), resolver.WithProber(prober))
	if err := r.Process(); err != nil {
		return nil, fmt.Errorf("%s: %w", root, err)
	}
	return r, nil
}

// explain adds the flags that settle an ambiguity to the error.
func explain(err error) error {
	var amb *detection.AmbiguityError
	if !errors.As(err, &amb) {
		return err
	}
	var hints []string
	for _, p := range amb.Pairs {
		switch p {
		case detection.ChannelIlluminationPair:
			hints = append(hints, "--prefer-channel=true|false")
		case detection.AngleTilePair:
			hints = append(hints, "--prefer-tile=true|false")
		}
	}
	return fmt.Errorf("%w; rerun with %s", err, strings.Join(hints, " and "))
}

func writeDump(viewer *report.Viewer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump: %w", err)
	}
	if err := viewer.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
