// Package resolver runs the complete view-assignment pipeline over a set of
// input files: pattern detection, probing, axis classification, ambiguity
// resolution, expansion, optional Z-grouping and assembly.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"spimviews/internal/models"
	"spimviews/pkg/assembly"
	"spimviews/pkg/detection"
	"spimviews/pkg/discovery"
	"spimviews/pkg/expansion"
	"spimviews/pkg/pattern"
	"spimviews/pkg/probe"
)

// ErrNoProber is returned by Process when no metadata prober was configured.
var ErrNoProber = errors.New("no metadata prober configured")

// Params holds the inputs and caller choices of one resolver run.
type Params struct {
	// Files are the input files. They are sorted before processing, so the
	// order given here does not influence ID assignment.
	Files []string

	// Slots assigns a role to each slot of the detected filename pattern,
	// left to right. Missing entries mean SlotIgnore.
	Slots []models.SlotRole

	// PreferChannelOverIllumination decides the channel/illumination
	// ambiguity. It is only consulted, and then required, when both axes are
	// indexed without metadata.
	PreferChannelOverIllumination *bool

	// PreferTileOverAngle decides the angle/tile ambiguity the same way.
	PreferTileOverAngle *bool
}

// PatternDetector infers the filename template of the input files.
type PatternDetector func(paths []string) (*pattern.Pattern, error)

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithProber sets the metadata prober.
func WithProber(p probe.Prober) Option {
	return func(r *Resolver) {
		r.prober = p
	}
}

// WithPatternDetector replaces pattern.Detect.
func WithPatternDetector(d PatternDetector) Option {
	return func(r *Resolver) {
		if d != nil {
			r.detect = d
		}
	}
}

// Resolver handles one view-assignment run.
//
// The run consists of several steps:
// 1. Sorting the input files
// 2. Detecting the shared filename pattern
// 3. Probing every physical file once and classifying its axes
// 4. Reconciling the classification over the dataset and resolving ambiguities
// 5. Expanding every axis into integer IDs
// 6. Merging Z-plane files into stacks, when a slot is marked as Z
// 7. Assembling timepoints, view setups, missing views and view sources
type Resolver struct {
	params *Params
	prober probe.Prober
	detect PatternDetector
	logger *slog.Logger

	// files is the sorted, duplicate-free input list.
	files []string

	// pattern is nil when the inputs share no template.
	pattern *pattern.Pattern

	state  *detection.State
	views  *expansion.Views
	result *assembly.Result
}

// NewResolver creates a resolver for params.
func NewResolver(params *Params, opts ...Option) *Resolver {
	r := &Resolver{
		params: params,
		detect: pattern.Detect,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Process runs the complete pipeline. It fails when the inputs cannot be
// probed, contain multi-component pixels, or leave an axis pair ambiguous
// without a preference; all other problems are recorded as issues of the
// result.
func (r *Resolver) Process() error {
	if r.prober == nil {
		return ErrNoProber
	}
	log := r.logger.With("run", uuid.NewString())

	// Step 1: Sort inputs
	r.files = slices.Compact(slices.Sorted(slices.Values(r.params.Files)))
	if len(r.files) == 0 {
		return discovery.ErrNoFiles
	}
	log.Info("resolving views", "files", len(r.files))

	// Step 2: Detect the filename pattern
	if err := r.detectPattern(log); err != nil {
		return err
	}

	// Step 3: Probe and classify
	if err := r.probeFiles(log); err != nil {
		return err
	}

	// Step 4: Reconcile and disambiguate
	r.state.Reconcile()
	err := r.state.Disambiguate(detection.Preferences{
		PreferChannelOverIllumination: r.params.PreferChannelOverIllumination,
		PreferTileOverAngle:           r.params.PreferTileOverAngle,
	})
	if err != nil {
		return fmt.Errorf("failed to classify axes: %w", err)
	}
	for _, a := range models.Axes {
		log.Debug("axis classified", "axis", a, "multiplicity", r.state.Multiplicity[a],
			"identities", r.state.Axes[a].Len(), "variesWithinFile", r.state.VariesWithinFile[a])
	}

	// Step 5: Expand
	r.views = expansion.Expand(r.state, expansion.Options{
		Pattern: r.pattern,
		Slots:   r.params.Slots,
		Logger:  log,
	})

	// Step 6: Group Z planes
	if zSlots := expansion.ZSlots(r.params.Slots); len(zSlots) > 0 {
		if r.pattern == nil {
			log.Warn("Z slots assigned but the inputs share no filename pattern", "slots", zSlots)
		} else {
			r.views = expansion.GroupZPlanes(r.views, r.pattern, zSlots, log)
		}
	}

	// Step 7: Assemble
	r.result = assembly.Assemble(r.views, log)
	r.result.Issues = append(slices.Clone(r.state.Issues), r.result.Issues...)
	return nil
}

func (r *Resolver) detectPattern(log *slog.Logger) error {
	p, err := r.detect(r.files)
	if errors.Is(err, pattern.ErrNoPattern) {
		log.Warn("no filename pattern, slot assignments are ignored", "error", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to detect filename pattern: %w", err)
	}
	r.pattern = p
	log.Info("filename pattern", "template", p.Template(), "slots", p.Slots())
	if n := len(r.params.Slots); n > p.Slots() {
		log.Warn("more slot roles than pattern slots", "roles", n, "slots", p.Slots())
	}
	return nil
}

// probeFiles probes every file not already consumed by a multi-file format
// and adds its observation to the detection state.
func (r *Resolver) probeFiles(log *slog.Logger) error {
	r.state = detection.NewState()
	consumed := make(map[string]bool)
	for _, file := range r.files {
		if consumed[file] {
			log.Debug("skipping file already read as part of another", "file", file)
			continue
		}

		info, err := r.prober.Probe(file)
		if err != nil {
			return fmt.Errorf("failed to probe %s: %w", file, err)
		}
		if info.Grouped() {
			r.state.Grouped = true
			for _, used := range info.UsedFiles {
				if used != file {
					consumed[used] = true
				}
			}
		}

		obs, err := detection.Observe(file, info)
		if err != nil {
			return err
		}
		verdict := r.state.Add(obs)
		log.Debug("file classified", "file", file, "series", len(info.Series), "verdict", verdict)
	}
	return nil
}

// State returns the detection state, nil before Process.
func (r *Resolver) State() *detection.State {
	return r.state
}

// Pattern returns the detected filename pattern, nil when there is none.
func (r *Resolver) Pattern() *pattern.Pattern {
	return r.pattern
}

// Views returns the expanded axis IDs.
func (r *Resolver) Views() *expansion.Views {
	return r.views
}

// GetResult returns the resolved view set, nil unless Process succeeded.
func (r *Resolver) GetResult() *assembly.Result {
	return r.result
}
