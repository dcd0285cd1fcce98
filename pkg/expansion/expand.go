// Package expansion turns the dataset-wide accumulation of each axis into
// dense integer IDs, each mapped to the data sources that show it, and
// optionally merges single-plane files into Z-stacks.
package expansion

import (
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"

	"spimviews/internal/models"
	"spimviews/pkg/detection"
	"spimviews/pkg/pattern"
)

// Views is the expanded, per-axis ID model handed to the assembler.
type Views struct {
	// IDs maps, per axis, every ID to the data sources showing it.
	IDs [models.NumAxes]map[int]models.RefSet

	// Details maps, per axis, every ID to the identity it stands for.
	Details [models.NumAxes]map[int]models.AxisDetail

	// Dimensions of every data source.
	Dimensions map[models.DataSourceRef]models.Dimensions

	// ZGrouped is set once GroupZPlanes merged planes into stacks; ZGroups
	// lists the members of every merged source in Z order.
	ZGrouped bool
	ZGroups  map[models.DataSourceRef][]models.DataSourceRef

	Issues []models.Issue
}

// Options controls expansion.
type Options struct {
	// Pattern is the detected filename pattern, nil when there is none.
	Pattern *pattern.Pattern

	// Slots assigns a role to each pattern slot. Slots beyond the pattern's
	// slot count are ignored.
	Slots []models.SlotRole

	Logger *slog.Logger
}

type expander struct {
	state  *detection.State
	opts   Options
	logger *slog.Logger
	views  *Views
}

// Expand builds the ID model of every axis. The strategy of an axis depends
// on its final multiplicity and on whether pattern slots are bound to it:
//
//   - slots bound: IDs come from the slot values (one slot), or from
//     first-seen distinct value tuples (several slots);
//   - SINGLE: every source gets ID 0;
//   - MULTIPLE_INDEXED: IDs are the channel or series ordinal, and for
//     TimePoint each source is repeated under IDs 0..n-1 of its declared
//     timepoints;
//   - MULTIPLE_NAMED: IDs follow the first-seen order of identities.
//
// state is not modified.
func Expand(state *detection.State, opts Options) *Views {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &expander{
		state:  state,
		opts:   opts,
		logger: logger,
		views: &Views{
			Dimensions: maps.Clone(state.Dimensions),
		},
	}

	bound := e.boundSlots()
	for _, a := range models.Axes {
		e.views.IDs[a] = make(map[int]models.RefSet)
		e.views.Details[a] = make(map[int]models.AxisDetail)

		slots := bound[a]
		if len(slots) > 0 && state.VariesWithinFile[a] {
			e.issue(models.Issue{
				Kind:    models.IssueSlotIgnored,
				Axis:    a,
				Message: fmt.Sprintf("pattern slots %v bound to %s ignored: %s varies within files", slots, a, a),
			})
			slots = nil
		}

		m := state.Multiplicity[a]
		switch {
		case len(slots) > 0:
			e.byPattern(a, slots)
		case m == models.MultipleIndexed && a == models.TimePointAxis:
			e.byDeclaredTimepoints()
		case m == models.MultipleIndexed:
			e.byOrdinal(a)
		case m == models.MultipleNamed:
			e.byIdentity(a)
		default:
			e.collapse(a)
		}
		logger.Debug("expanded axis", "axis", a, "multiplicity", m, "slots", slots, "ids", len(e.views.IDs[a]))
	}
	return e.views
}

func (e *expander) boundSlots() [models.NumAxes][]int {
	var bound [models.NumAxes][]int
	if e.opts.Pattern == nil {
		return bound
	}
	for slot, role := range e.opts.Slots {
		a, ok := role.Axis()
		if !ok {
			continue
		}
		if slot >= e.opts.Pattern.Slots() {
			e.issue(models.Issue{
				Kind:    models.IssueSlotIgnored,
				Axis:    a,
				Message: fmt.Sprintf("slot %d assigned to %s but the pattern has %d slots", slot, a, e.opts.Pattern.Slots()),
			})
			continue
		}
		bound[a] = append(bound[a], slot)
	}
	return bound
}

func (e *expander) issue(i models.Issue) {
	e.logger.Warn(string(i.Kind), "axis", i.Axis, "message", i.Message)
	e.views.Issues = append(e.views.Issues, i)
}

func (e *expander) add(a models.Axis, id int, ref models.DataSourceRef, detail models.AxisDetail) {
	e.views.IDs[a][id] = e.views.IDs[a][id].Add(ref)
	if _, ok := e.views.Details[a][id]; !ok {
		e.views.Details[a][id] = detail
	}
}

// detailFor picks the detail stored for an ID. Axes without rich metadata
// are described by the ID itself.
func (e *expander) detailFor(a models.Axis, id int, ref models.DataSourceRef) models.AxisDetail {
	if a == models.TimePointAxis || a == models.IlluminationAxis {
		return models.PlainIndex{Index: id}
	}
	d, _ := e.state.Axes[a].Identity(ref)
	return d
}

func (e *expander) byPattern(a models.Axis, slots []int) {
	tuples := make(map[string]int)
	for _, ref := range e.state.Axes[a].All() {
		values, ok := e.opts.Pattern.Match(ref.Path)
		if !ok {
			e.issue(models.Issue{
				Kind:    models.IssuePatternMismatch,
				Axis:    a,
				Sources: []models.DataSourceRef{ref},
				Message: fmt.Sprintf("%s does not match %s, dropped from %s", ref.Path, e.opts.Pattern.Template(), a),
			})
			continue
		}

		var id int
		if len(slots) == 1 {
			id = values[slots[0]]
		} else {
			parts := make([]string, len(slots))
			for i, s := range slots {
				parts[i] = strconv.Itoa(values[s])
			}
			key := strings.Join(parts, ",")
			next, seen := tuples[key]
			if !seen {
				next = len(tuples)
				tuples[key] = next
			}
			id = next
		}
		e.add(a, id, ref, e.detailFor(a, id, ref))
	}
}

func (e *expander) byOrdinal(a models.Axis) {
	for _, ref := range e.state.Axes[a].All() {
		id := detection.Ordinal(a, ref)
		e.add(a, id, ref, e.detailFor(a, id, ref))
	}
}

func (e *expander) byDeclaredTimepoints() {
	for _, ref := range e.state.Axes[models.TimePointAxis].All() {
		n := max(1, e.state.Timepoints[ref])
		for t := 0; t < n; t++ {
			e.add(models.TimePointAxis, t, ref, models.PlainIndex{Index: t})
		}
	}
}

func (e *expander) byIdentity(a models.Axis) {
	acc := e.state.Axes[a]
	for id, d := range acc.Identities() {
		for _, ref := range acc.Refs(d) {
			detail := d
			if a == models.TimePointAxis {
				detail = models.PlainIndex{Index: id}
			}
			e.add(a, id, ref, detail)
		}
	}
}

// collapse maps every source to ID 0. Identities that differ between files
// without a pattern slot to tell them apart are lost here; the first one
// describes the axis.
func (e *expander) collapse(a models.Axis) {
	acc := e.state.Axes[a]
	if acc.Len() > 1 {
		e.logger.Debug("collapsing distinct identities into one", "axis", a, "identities", acc.Len())
	}
	for _, ref := range acc.All() {
		e.add(a, 0, ref, e.detailFor(a, 0, ref))
	}
}
