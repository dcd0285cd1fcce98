// Package report presents a resolved view set: a text summary for humans, an
// occupancy grid image of timepoints × view setups, and a YAML dump for the
// pixel reading and persistence stages.
package report

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"spimviews/internal/models"
	"spimviews/pkg/assembly"
)

// Cell colours of the occupancy grid.
var (
	PresentColor   = color.RGBA{R: 46, G: 160, B: 67, A: 255}
	MissingColor   = color.RGBA{R: 207, G: 34, B: 46, A: 255}
	DuplicateColor = color.RGBA{R: 219, G: 171, B: 9, A: 255}
	EmptyColor     = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	gridLineColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Largest grid image side accepted by RenderGrid.
const maxGridSide = 1 << 15

// Viewer renders a resolved view set.
type Viewer struct {
	result *assembly.Result
}

// NewViewer creates a viewer over res.
func NewViewer(res *assembly.Result) *Viewer {
	return &Viewer{result: res}
}

// CellState classifies one (timepoint, setup) view.
func (v *Viewer) CellState(view models.ViewId) color.RGBA {
	if _, ok := v.result.Sources[view]; ok {
		return PresentColor
	}
	if _, ok := v.result.Duplicates[view]; ok {
		return DuplicateColor
	}
	if v.result.IsMissing(view) {
		return MissingColor
	}
	return EmptyColor
}

// RenderGrid draws one row per timepoint and one column per view setup,
// each cell a cell×cell square with a one pixel separator.
func (v *Viewer) RenderGrid(cell int) (image.Image, error) {
	if cell < 2 {
		return nil, fmt.Errorf("cell size must be at least 2, got %d", cell)
	}
	rows, cols := len(v.result.TimePoints), len(v.result.ViewSetups)
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("nothing to render: %d timepoints, %d view setups", rows, cols)
	}
	if rows > maxGridSide/cell || cols > maxGridSide/cell {
		return nil, fmt.Errorf("grid of %dx%d cells of %d pixels exceeds %d pixels", cols, rows, cell, maxGridSide)
	}

	img := image.NewRGBA(image.Rect(0, 0, cols*cell, rows*cell))
	for row, tp := range v.result.TimePoints {
		for col, setup := range v.result.ViewSetups {
			c := v.CellState(models.ViewId{TimePoint: tp, Setup: setup.ID})
			for y := 0; y < cell; y++ {
				for x := 0; x < cell; x++ {
					if x == cell-1 || y == cell-1 {
						img.SetRGBA(col*cell+x, row*cell+y, gridLineColor)
						continue
					}
					img.SetRGBA(col*cell+x, row*cell+y, c)
				}
			}
		}
	}
	return img, nil
}

// SaveGrid renders the grid and writes it to filename, as TIFF for .tif and
// .tiff names and as PNG otherwise.
func (v *Viewer) SaveGrid(filename string, cell int) error {
	img, err := v.RenderGrid(cell)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		return tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return png.Encode(file, img)
	}
}
