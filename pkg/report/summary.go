package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"spimviews/internal/models"
)

var (
	heading = color.New(color.Bold)
	good    = color.New(color.FgGreen)
	bad     = color.New(color.FgRed)
	warn    = color.New(color.FgYellow)
)

// WriteSummary prints counts, view setups, missing views and issues.
func (v *Viewer) WriteSummary(w io.Writer) error {
	res := v.result
	var b strings.Builder

	heading.Fprintln(&b, "Timepoints")
	fmt.Fprintf(&b, "  %d: %v\n", len(res.TimePoints), res.TimePoints)

	heading.Fprintln(&b, "View setups")
	for _, s := range res.ViewSetups {
		fmt.Fprintf(&b, "  %3d  %s | %s | %s | %s | %s\n", s.ID,
			describe(models.ChannelAxis, s.Channel, s.Key.Channel),
			describe(models.IlluminationAxis, s.Illumination, s.Key.Illumination),
			describe(models.TileAxis, s.Tile, s.Key.Tile),
			describe(models.AngleAxis, s.Angle, s.Key.Angle),
			describeSize(s.Size))
	}

	heading.Fprintln(&b, "Views")
	fmt.Fprintf(&b, "  %s assigned, %s missing, %s duplicate\n",
		good.Sprint(len(res.Sources)),
		colorIf(bad, len(res.MissingViews)),
		colorIf(warn, len(res.Duplicates)))
	for _, m := range res.MissingViews {
		fmt.Fprintf(&b, "  missing: timepoint %d, setup %d\n", m.TimePoint, m.Setup)
	}
	if res.ZGrouped {
		fmt.Fprintf(&b, "  %d sources assembled from Z planes\n", len(res.ZGroups))
	}

	if len(res.Issues) > 0 {
		heading.Fprintf(&b, "Issues (%d)\n", len(res.Issues))
		for _, i := range res.Issues {
			fmt.Fprintf(&b, "  %s\n", warn.Sprint(i.String()))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func colorIf(c *color.Color, n int) string {
	if n == 0 {
		return fmt.Sprint(n)
	}
	return c.Sprint(n)
}

// describe labels bare indices with their axis name.
func describe(a models.Axis, d models.AxisDetail, id int) string {
	switch d.(type) {
	case nil, models.PlainIndex:
		return a.String() + " " + models.DescribeDetail(d, id)
	default:
		return models.DescribeDetail(d, id)
	}
}

func describeSize(d models.Dimensions) string {
	unit := d.Unit
	if unit == "" {
		unit = "?"
	}
	return fmt.Sprintf("%dx%dx%d px @ %gx%gx%g %s",
		d.Width, d.Height, d.Depth, d.VoxelSize.X, d.VoxelSize.Y, d.VoxelSize.Z, unit)
}
