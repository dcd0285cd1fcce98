package expansion

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"spimviews/internal/models"
	"spimviews/pkg/pattern"
)

type zMember struct {
	ref models.DataSourceRef
	z   []int
	raw []string
}

// GroupZPlanes merges data sources that differ only in the Z slots of the
// filename pattern into one multi-plane source. Members are ordered by their
// numeric Z values; the merged source is named by the pattern with every Z
// slot rendered as a {v1,v2,...} list. Its depth is the sum of the member
// depths, its other dimensions come from the first member.
//
// v is not modified. Without a pattern or Z slots v is returned as is.
// Sources that do not match the pattern are kept unmerged.
func GroupZPlanes(v *Views, p *pattern.Pattern, zSlots []int, logger *slog.Logger) *Views {
	if p == nil || len(zSlots) == 0 {
		return v
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	isZ := make(map[int]bool, len(zSlots))
	for _, s := range zSlots {
		isZ[s] = true
	}

	out := &Views{
		Dimensions: make(map[models.DataSourceRef]models.Dimensions),
		ZGrouped:   true,
		ZGroups:    make(map[models.DataSourceRef][]models.DataSourceRef),
		Issues:     slices.Clone(v.Issues),
	}

	refs := slices.SortedFunc(maps.Keys(v.Dimensions), models.CompareRefs)
	groups := make(map[string][]zMember)
	var order []string
	remap := make(map[models.DataSourceRef]models.DataSourceRef, len(refs))

	for _, ref := range refs {
		captures, ok := p.Captures(ref.Path)
		values, numeric := p.Match(ref.Path)
		if !ok || !numeric {
			out.Issues = append(out.Issues, models.Issue{
				Kind:    models.IssuePatternMismatch,
				Sources: []models.DataSourceRef{ref},
				Message: fmt.Sprintf("%s does not match %s, not grouped along Z", ref.Path, p.Template()),
			})
			remap[ref] = ref
			out.Dimensions[ref] = v.Dimensions[ref]
			continue
		}

		var key strings.Builder
		m := zMember{ref: ref, raw: captures}
		for i, c := range captures {
			if isZ[i] {
				m.z = append(m.z, values[i])
				continue
			}
			key.WriteString(c)
			key.WriteByte('/')
		}
		fmt.Fprintf(&key, "%d/%d", ref.Series, ref.Channel)

		k := key.String()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], m)
	}

	for _, k := range order {
		members := groups[k]
		slices.SortStableFunc(members, func(a, b zMember) int {
			return slices.Compare(a.z, b.z)
		})

		merged := models.DataSourceRef{
			Path:    p.Render(zCaptures(members, isZ)),
			Series:  members[0].ref.Series,
			Channel: members[0].ref.Channel,
		}

		dims := v.Dimensions[members[0].ref]
		dims.Depth = 0
		stack := make([]models.DataSourceRef, len(members))
		for i, m := range members {
			dims.Depth += max(1, v.Dimensions[m.ref].Depth)
			stack[i] = m.ref
			remap[m.ref] = merged
		}
		out.Dimensions[merged] = dims
		out.ZGroups[merged] = stack
		logger.Debug("grouped planes", "source", merged.Path, "planes", len(stack), "depth", dims.Depth)
	}

	for _, a := range models.Axes {
		out.IDs[a] = make(map[int]models.RefSet, len(v.IDs[a]))
		for id, set := range v.IDs[a] {
			mapped := make([]models.DataSourceRef, 0, len(set))
			for _, ref := range set {
				if to, ok := remap[ref]; ok {
					mapped = append(mapped, to)
				} else {
					mapped = append(mapped, ref)
				}
			}
			out.IDs[a][id] = models.NewRefSet(mapped...)
		}
		out.Details[a] = maps.Clone(v.Details[a])
	}
	return out
}

// zCaptures returns the captures of the first member with every Z slot
// replaced by the brace list of the member values in Z order.
func zCaptures(members []zMember, isZ map[int]bool) []string {
	captures := slices.Clone(members[0].raw)
	for slot := range captures {
		if !isZ[slot] {
			continue
		}
		var values []string
		seen := make(map[string]bool)
		for _, m := range members {
			if c := m.raw[slot]; !seen[c] {
				seen[c] = true
				values = append(values, c)
			}
		}
		captures[slot] = "{" + strings.Join(values, ",") + "}"
	}
	return captures
}

// ZSlots returns the pattern slots assigned the Z role.
func ZSlots(roles []models.SlotRole) []int {
	var slots []int
	for i, r := range roles {
		if r == models.SlotZPlane {
			slots = append(slots, i)
		}
	}
	return slots
}
