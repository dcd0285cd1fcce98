package assembly

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"spimviews/internal/models"
	"spimviews/pkg/expansion"
)

type src struct {
	tp, ch, ill, tile, angle int
	copy                     int
}

func (s src) ref() models.DataSourceRef {
	return models.DataSourceRef{Path: fmt.Sprintf("tp%d_c%d_i%d_t%d_a%d_%d.tif", s.tp, s.ch, s.ill, s.tile, s.angle, s.copy)}
}

func buildViews(srcs ...src) *expansion.Views {
	v := &expansion.Views{Dimensions: make(map[models.DataSourceRef]models.Dimensions)}
	for _, a := range models.Axes {
		v.IDs[a] = make(map[int]models.RefSet)
		v.Details[a] = make(map[int]models.AxisDetail)
	}
	for _, s := range srcs {
		r := s.ref()
		ids := [models.NumAxes]int{
			models.TimePointAxis:    s.tp,
			models.ChannelAxis:      s.ch,
			models.IlluminationAxis: s.ill,
			models.AngleAxis:        s.angle,
			models.TileAxis:         s.tile,
		}
		for _, a := range models.Axes {
			v.IDs[a][ids[a]] = v.IDs[a][ids[a]].Add(r)
		}
		v.Details[models.TimePointAxis][s.tp] = models.PlainIndex{Index: s.tp}
		v.Details[models.ChannelAxis][s.ch] = models.ChannelIdentity{Name: fmt.Sprintf("ch%d", s.ch)}
		v.Details[models.IlluminationAxis][s.ill] = models.PlainIndex{Index: s.ill}
		v.Details[models.AngleAxis][s.angle] = models.AngleIdentity{Degrees: float64(45 * s.angle), Present: true}
		v.Details[models.TileAxis][s.tile] = models.TileIdentity{}
		v.Dimensions[r] = models.Dimensions{
			Width: 512, Height: 512, Depth: 50,
			VoxelSize: r3.Vec{X: 0.2, Y: 0.2, Z: 1},
			Unit:      "µm",
		}
	}
	return v
}

func grid(timepoints, angles, tiles int, skip func(tp, angle, tile int) bool) []src {
	var out []src
	for tp := 0; tp < timepoints; tp++ {
		for a := 0; a < angles; a++ {
			for t := 0; t < tiles; t++ {
				if skip != nil && skip(tp, a, t) {
					continue
				}
				out = append(out, src{tp: tp, angle: a, tile: t})
			}
		}
	}
	return out
}

func TestAssembleComplete(t *testing.T) {
	srcs := grid(2, 3, 2, nil)
	res := Assemble(buildViews(srcs...), nil)

	assert.Equal(t, []int{0, 1}, res.TimePoints)
	require.Len(t, res.ViewSetups, 6)
	assert.Empty(t, res.MissingViews)
	assert.Len(t, res.Sources, 12)
	assert.Empty(t, res.Issues)

	for _, s := range srcs {
		setup := s.tile*3 + s.angle
		assert.Equal(t, s.ref(), res.Sources[models.ViewId{TimePoint: s.tp, Setup: setup}])
	}
}

func TestAssembleSetupOrder(t *testing.T) {
	res := Assemble(buildViews(grid(1, 3, 2, nil)...), nil)

	want := []models.SetupKey{
		{Tile: 0, Angle: 0}, {Tile: 0, Angle: 1}, {Tile: 0, Angle: 2},
		{Tile: 1, Angle: 0}, {Tile: 1, Angle: 1}, {Tile: 1, Angle: 2},
	}
	for i, s := range res.ViewSetups {
		assert.Equal(t, i, s.ID)
		assert.Equal(t, want[i], s.Key)
	}
	setup, ok := res.Setup(2)
	require.True(t, ok)
	assert.Equal(t, models.AngleIdentity{Degrees: 90, Present: true}, setup.Angle)
	assert.Equal(t, models.ChannelIdentity{Name: "ch0"}, setup.Channel)
	assert.Equal(t, 50, setup.Size.Depth)
	assert.Equal(t, "µm", setup.Size.Unit)

	_, ok = res.Setup(6)
	assert.False(t, ok)
}

func TestAssembleMissingView(t *testing.T) {
	srcs := grid(2, 3, 2, func(tp, angle, tile int) bool {
		return tp == 1 && angle == 2 && tile == 1
	})
	res := Assemble(buildViews(srcs...), nil)

	require.Len(t, res.ViewSetups, 6)
	missing := models.ViewId{TimePoint: 1, Setup: 5}
	assert.Equal(t, []models.ViewId{missing}, res.MissingViews)
	assert.Equal(t, models.SetupKey{Tile: 1, Angle: 2}, res.ViewSetups[5].Key)
	assert.True(t, res.IsMissing(missing))
	assert.NotContains(t, res.Sources, missing)
	assert.Len(t, res.Sources, 11)
}

func TestAssembleCombinationWithoutDataIsNotASetup(t *testing.T) {
	srcs := grid(1, 3, 2, func(_, angle, tile int) bool {
		return angle == 2 && tile == 1
	})
	res := Assemble(buildViews(srcs...), nil)

	assert.Len(t, res.ViewSetups, 5)
	assert.Empty(t, res.MissingViews)
	for _, s := range res.ViewSetups {
		assert.NotEqual(t, models.SetupKey{Tile: 1, Angle: 2}, s.Key)
	}
}

func TestAssembleMissingBeforeFirstData(t *testing.T) {
	res := Assemble(buildViews(
		src{tp: 0, angle: 0},
		src{tp: 1, angle: 0},
		src{tp: 1, angle: 1},
	), nil)

	require.Len(t, res.ViewSetups, 2)
	assert.Equal(t, models.SetupKey{Angle: 1}, res.ViewSetups[1].Key)
	assert.Equal(t, []models.ViewId{{TimePoint: 0, Setup: 1}}, res.MissingViews)
}

func TestAssembleDuplicates(t *testing.T) {
	res := Assemble(buildViews(
		src{tp: 0, angle: 0},
		src{tp: 0, angle: 1},
		src{tp: 0, angle: 1, copy: 1},
		src{tp: 1, angle: 0},
		src{tp: 1, angle: 1},
	), nil)

	require.Len(t, res.ViewSetups, 2)
	dup := models.ViewId{TimePoint: 0, Setup: 1}
	assert.NotContains(t, res.Sources, dup)
	assert.False(t, res.IsMissing(dup))
	assert.Len(t, res.Duplicates[dup], 2)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, models.IssueStructuralDuplicate, res.Issues[0].Kind)
	assert.Equal(t, &dup, res.Issues[0].View)
	assert.Len(t, res.Sources, 3)
}

func TestAssembleDuplicateWithoutSetup(t *testing.T) {
	res := Assemble(buildViews(
		src{tp: 0, angle: 0},
		src{tp: 0, angle: 1},
		src{tp: 0, angle: 1, copy: 1},
	), nil)

	assert.Len(t, res.ViewSetups, 1)
	assert.Empty(t, res.Duplicates)
	require.Len(t, res.Issues, 1)
	assert.Nil(t, res.Issues[0].View)
}

func TestAssembleSkipsTimepointsWithoutData(t *testing.T) {
	v := buildViews(
		src{tp: 0, angle: 0},
		src{tp: 2, angle: 0},
		src{tp: 2, angle: 0, copy: 1},
	)
	res := Assemble(v, nil)

	assert.Equal(t, []int{0}, res.TimePoints)
	assert.Empty(t, res.MissingViews)
}

func TestAssembleInconsistentVoxelSize(t *testing.T) {
	v := buildViews(src{tp: 0}, src{tp: 1})
	odd := src{tp: 1}.ref()
	dims := v.Dimensions[odd]
	dims.VoxelSize.Z = 2.5
	v.Dimensions[odd] = dims

	res := Assemble(v, nil)

	require.Len(t, res.Issues, 1)
	assert.Equal(t, models.IssueInconsistentSize, res.Issues[0].Kind)
	assert.Equal(t, &models.ViewId{TimePoint: 1, Setup: 0}, res.Issues[0].View)
	assert.Equal(t, 1.0, res.ViewSetups[0].Size.VoxelSize.Z)
}

func TestAssembleDeterministic(t *testing.T) {
	srcs := grid(3, 2, 2, func(tp, angle, tile int) bool { return tp == 2 && angle == 1 })
	first := Assemble(buildViews(srcs...), nil)

	reversed := make([]src, len(srcs))
	for i, s := range srcs {
		reversed[len(srcs)-1-i] = s
	}
	second := Assemble(buildViews(reversed...), nil)

	assert.Equal(t, first.ViewSetups, second.ViewSetups)
	assert.Equal(t, first.MissingViews, second.MissingViews)
	assert.Equal(t, first.Sources, second.Sources)
	assert.Equal(t, first.Views(), second.Views())
}
