// Package assembly builds the final view set: the Cartesian product of the
// expanded axes, each (TimePoint, ViewSetup) pair resolved to its unique data
// source or recorded as missing.
package assembly

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"gonum.org/v1/gonum/floats/scalar"

	"spimviews/internal/models"
	"spimviews/pkg/expansion"
)

// Relative tolerance when comparing voxel sizes of one setup.
const voxelTolerance = 1e-6

// Result is the resolved view set.
type Result struct {
	// TimePoints at which at least one view has data, ascending.
	TimePoints []int

	// ViewSetups ordered by ID. IDs are dense and start at 0.
	ViewSetups []models.ViewSetup

	// MissingViews ordered by timepoint, then setup.
	MissingViews []models.ViewId

	// Sources maps every assigned view to its data source.
	Sources map[models.ViewId]models.DataSourceRef

	// Duplicates lists the views left unassigned because several data
	// sources matched them.
	Duplicates map[models.ViewId]models.RefSet

	// ZGrouped tells the pixel reader that sources are plane lists to be
	// stacked; ZGroups holds their members in Z order.
	ZGrouped bool
	ZGroups  map[models.DataSourceRef][]models.DataSourceRef

	Issues []models.Issue
}

// Views returns every assigned view in timepoint, setup order.
func (r *Result) Views() []models.ViewId {
	return slices.SortedFunc(maps.Keys(r.Sources), models.CompareViewIds)
}

// Setup returns the setup with the given ID.
func (r *Result) Setup(id int) (models.ViewSetup, bool) {
	if id < 0 || id >= len(r.ViewSetups) {
		return models.ViewSetup{}, false
	}
	return r.ViewSetups[id], true
}

// IsMissing reports whether v is a recorded missing view.
func (r *Result) IsMissing(v models.ViewId) bool {
	_, ok := slices.BinarySearchFunc(r.MissingViews, v, models.CompareViewIds)
	return ok
}

type combination struct {
	key  models.SetupKey
	refs models.RefSet
}

// Assemble iterates Channel × Illumination × Tile × Angle in nested
// ascending ID order and, for each combination, every TimePoint ID in
// ascending order. The sources of a view are the intersection of the five
// axis source lists.
//
// A combination becomes a ViewSetup only when some TimePoint has exactly one
// source for it; setups are numbered in the order of that first encounter.
// Missing views are recorded for existing setups at the TimePoints of the
// result that have no source for them. Views with several sources are
// logged and left unassigned.
func Assemble(v *expansion.Views, logger *slog.Logger) *Result {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	res := &Result{
		Sources:    make(map[models.ViewId]models.DataSourceRef),
		Duplicates: make(map[models.ViewId]models.RefSet),
		ZGrouped:   v.ZGrouped,
		ZGroups:    v.ZGroups,
		Issues:     slices.Clone(v.Issues),
	}

	timepoints := sortedIDs(v.IDs[models.TimePointAxis])
	combos := combinations(v)

	// First pass: which combinations have data, and at which timepoints.
	setupOf := make(map[models.SetupKey]int)
	used := make(map[int]bool)
	for _, c := range combos {
		for _, tp := range timepoints {
			refs := models.Intersect(c.refs, v.IDs[models.TimePointAxis][tp])
			if len(refs) != 1 {
				continue
			}
			used[tp] = true
			if _, ok := setupOf[c.key]; !ok {
				setupOf[c.key] = len(res.ViewSetups)
				res.ViewSetups = append(res.ViewSetups, newSetup(v, len(res.ViewSetups), c.key, refs[0]))
			}
		}
	}
	for _, tp := range timepoints {
		if used[tp] {
			res.TimePoints = append(res.TimePoints, tp)
		}
	}

	// Second pass: fill the timepoint × setup grid.
	for _, c := range combos {
		id, exists := setupOf[c.key]
		for _, tp := range timepoints {
			refs := models.Intersect(c.refs, v.IDs[models.TimePointAxis][tp])
			view := models.ViewId{TimePoint: tp, Setup: id}
			switch {
			case len(refs) == 1:
				res.Sources[view] = refs[0]
			case len(refs) > 1:
				res.duplicate(logger, c.key, view, exists, refs)
			case exists && used[tp]:
				res.MissingViews = append(res.MissingViews, view)
			}
		}
	}
	slices.SortFunc(res.MissingViews, models.CompareViewIds)

	res.checkVoxelSizes(v, logger)

	logger.Info("assembled views",
		"timepoints", len(res.TimePoints),
		"setups", len(res.ViewSetups),
		"views", len(res.Sources),
		"missing", len(res.MissingViews),
		"duplicates", len(res.Duplicates))
	return res
}

func (r *Result) duplicate(logger *slog.Logger, key models.SetupKey, view models.ViewId, exists bool, refs models.RefSet) {
	issue := models.Issue{
		Kind:    models.IssueStructuralDuplicate,
		Sources: refs,
		Message: fmt.Sprintf("%d data sources match timepoint %d, channel %d, illumination %d, tile %d, angle %d",
			len(refs), view.TimePoint, key.Channel, key.Illumination, key.Tile, key.Angle),
	}
	if exists {
		issue.View = &view
		r.Duplicates[view] = refs
	}
	logger.Error(string(issue.Kind), "message", issue.Message, "sources", refs)
	r.Issues = append(r.Issues, issue)
}

// checkVoxelSizes flags setups whose sources disagree on voxel size. The
// setup keeps the size of its first source.
func (r *Result) checkVoxelSizes(v *expansion.Views, logger *slog.Logger) {
	for _, view := range r.Views() {
		setup := r.ViewSetups[view.Setup]
		got := v.Dimensions[r.Sources[view]].VoxelSize
		want := setup.Size.VoxelSize
		if scalar.EqualWithinAbsOrRel(got.X, want.X, 0, voxelTolerance) &&
			scalar.EqualWithinAbsOrRel(got.Y, want.Y, 0, voxelTolerance) &&
			scalar.EqualWithinAbsOrRel(got.Z, want.Z, 0, voxelTolerance) {
			continue
		}
		issue := models.Issue{
			Kind:    models.IssueInconsistentSize,
			View:    &view,
			Sources: []models.DataSourceRef{r.Sources[view]},
			Message: fmt.Sprintf("voxel size %v differs from setup %d voxel size %v", got, setup.ID, want),
		}
		logger.Warn(string(issue.Kind), "message", issue.Message)
		r.Issues = append(r.Issues, issue)
	}
}

func newSetup(v *expansion.Views, id int, key models.SetupKey, ref models.DataSourceRef) models.ViewSetup {
	return models.ViewSetup{
		ID:           id,
		Key:          key,
		Channel:      v.Details[models.ChannelAxis][key.Channel],
		Illumination: v.Details[models.IlluminationAxis][key.Illumination],
		Tile:         v.Details[models.TileAxis][key.Tile],
		Angle:        v.Details[models.AngleAxis][key.Angle],
		Size:         v.Dimensions[ref],
	}
}

// combinations lists Channel × Illumination × Tile × Angle in nested order
// with the intersection of their source lists. Combinations without any
// common source are skipped since they can never have data.
func combinations(v *expansion.Views) []combination {
	var out []combination
	for _, c := range sortedIDs(v.IDs[models.ChannelAxis]) {
		cr := v.IDs[models.ChannelAxis][c]
		for _, i := range sortedIDs(v.IDs[models.IlluminationAxis]) {
			ir := models.Intersect(cr, v.IDs[models.IlluminationAxis][i])
			for _, t := range sortedIDs(v.IDs[models.TileAxis]) {
				tr := models.Intersect(ir, v.IDs[models.TileAxis][t])
				for _, a := range sortedIDs(v.IDs[models.AngleAxis]) {
					ar := models.Intersect(tr, v.IDs[models.AngleAxis][a])
					if len(ar) == 0 {
						continue
					}
					out = append(out, combination{
						key:  models.SetupKey{Channel: c, Illumination: i, Tile: t, Angle: a},
						refs: ar,
					})
				}
			}
		}
	}
	return out
}

func sortedIDs(m map[int]models.RefSet) []int {
	return slices.Sorted(maps.Keys(m))
}
