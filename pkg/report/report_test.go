package report

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	fcolor "github.com/fatih/color"
	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"spimviews/internal/models"
	"spimviews/pkg/assembly"
)

// testResult builds 2 timepoints × 3 setups: setup 2 is missing at
// timepoint 1 and setup 1 has two sources at timepoint 1.
func testResult() *assembly.Result {
	size := models.Dimensions{Width: 512, Height: 512, Depth: 50, VoxelSize: r3.Vec{X: 0.2, Y: 0.2, Z: 1}, Unit: "µm"}
	res := &assembly.Result{
		TimePoints: []int{0, 1},
		ViewSetups: []models.ViewSetup{
			{ID: 0, Key: models.SetupKey{Angle: 0}, Channel: models.ChannelIdentity{Name: "GFP"}, Angle: models.AngleIdentity{Degrees: 0, Present: true}, Size: size},
			{ID: 1, Key: models.SetupKey{Angle: 1}, Channel: models.ChannelIdentity{Name: "GFP"}, Angle: models.AngleIdentity{Degrees: 90, Present: true}, Size: size},
			{ID: 2, Key: models.SetupKey{Angle: 2}, Channel: models.ChannelIdentity{Name: "GFP"}, Angle: models.AngleIdentity{Degrees: 180, Present: true}, Size: size},
		},
		MissingViews: []models.ViewId{{TimePoint: 1, Setup: 2}},
		Sources:      map[models.ViewId]models.DataSourceRef{},
		Duplicates: map[models.ViewId]models.RefSet{
			{TimePoint: 1, Setup: 1}: {{Path: "t1_a1.tif"}, {Path: "t1_a1_copy.tif"}},
		},
	}
	for _, v := range []models.ViewId{{TimePoint: 0, Setup: 0}, {TimePoint: 0, Setup: 1}, {TimePoint: 0, Setup: 2}, {TimePoint: 1, Setup: 0}} {
		res.Sources[v] = models.DataSourceRef{Path: "view.tif", Series: v.TimePoint, Channel: v.Setup}
	}
	res.Issues = []models.Issue{{
		Kind:    models.IssueStructuralDuplicate,
		View:    &models.ViewId{TimePoint: 1, Setup: 1},
		Message: "2 data sources match",
	}}
	return res
}

// TestCellState verifies the classification of views
func TestCellState(t *testing.T) {
	viewer := NewViewer(testResult())

	tests := []struct {
		view models.ViewId
		want color.RGBA
	}{
		{models.ViewId{TimePoint: 0, Setup: 0}, PresentColor},
		{models.ViewId{TimePoint: 1, Setup: 2}, MissingColor},
		{models.ViewId{TimePoint: 1, Setup: 1}, DuplicateColor},
		{models.ViewId{TimePoint: 5, Setup: 0}, EmptyColor},
	}
	for _, tt := range tests {
		if got := viewer.CellState(tt.view); got != tt.want {
			t.Errorf("Expected %v for %+v, got %v", tt.want, tt.view, got)
		}
	}
}

// TestRenderGrid verifies the grid dimensions and cell colours
func TestRenderGrid(t *testing.T) {
	viewer := NewViewer(testResult())

	img, err := viewer.RenderGrid(10)
	if err != nil {
		t.Fatalf("Failed to render grid: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != 30 || bounds.Dy() != 20 {
		t.Errorf("Expected 30x20 grid, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	checks := []struct {
		x, y int
		want color.RGBA
	}{
		{5, 5, PresentColor},
		{25, 15, MissingColor},
		{15, 15, DuplicateColor},
		{9, 5, gridLineColor},
	}
	for _, c := range checks {
		r, g, b, a := img.At(c.x, c.y).RGBA()
		wr, wg, wb, wa := c.want.RGBA()
		if r != wr || g != wg || b != wb || a != wa {
			t.Errorf("Expected %v at (%d,%d), got %v", c.want, c.x, c.y, img.At(c.x, c.y))
		}
	}

	if _, err := viewer.RenderGrid(1); err == nil {
		t.Error("Expected error for cell size 1, got nil")
	}
	if _, err := NewViewer(&assembly.Result{}).RenderGrid(10); err == nil {
		t.Error("Expected error for empty result, got nil")
	}
}

// TestSaveGrid verifies that grids are written as PNG or TIFF
func TestSaveGrid(t *testing.T) {
	tempDir := t.TempDir()
	viewer := NewViewer(testResult())

	pngFile := filepath.Join(tempDir, "out", "grid.png")
	if err := viewer.SaveGrid(pngFile, 4); err != nil {
		t.Fatalf("Failed to save grid: %v", err)
	}
	f, err := os.Open(pngFile)
	if err != nil {
		t.Fatalf("Saved file does not exist: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("Saved file is not a PNG: %v", err)
	}
	if cfg.Width != 12 || cfg.Height != 8 {
		t.Errorf("Expected 12x8 PNG, got %dx%d", cfg.Width, cfg.Height)
	}

	tiffFile := filepath.Join(tempDir, "grid.tif")
	if err := viewer.SaveGrid(tiffFile, 4); err != nil {
		t.Fatalf("Failed to save grid: %v", err)
	}
	tf, err := os.Open(tiffFile)
	if err != nil {
		t.Fatalf("Saved file does not exist: %v", err)
	}
	defer tf.Close()
	if _, err := tiff.DecodeConfig(tf); err != nil {
		t.Errorf("Saved file is not a TIFF: %v", err)
	}
}

// TestWriteSummary verifies the text summary
func TestWriteSummary(t *testing.T) {
	fcolor.NoColor = true
	viewer := NewViewer(testResult())

	var buf bytes.Buffer
	if err := viewer.WriteSummary(&buf); err != nil {
		t.Fatalf("Failed to write summary: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"2: [0 1]",
		"GFP | illumination 0 | tile 0 | 90° around axis 0 | 512x512x50 px @ 0.2x0.2x1 µm",
		"4 assigned, 1 missing, 1 duplicate",
		"missing: timepoint 1, setup 2",
		"Issues (1)",
		"STRUCTURAL_DUPLICATE (tp=1 setup=1): 2 data sources match",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected summary to contain %q, got:\n%s", want, out)
		}
	}
}

// TestWriteYAML verifies the hand-off dump
func TestWriteYAML(t *testing.T) {
	res := testResult()
	merged := models.DataSourceRef{Path: "view.tif", Series: 1, Channel: 0}
	res.ZGrouped = true
	res.ZGroups = map[models.DataSourceRef][]models.DataSourceRef{
		merged: {{Path: "z0.tif"}, {Path: "z1.tif"}},
	}
	viewer := NewViewer(res)

	var buf bytes.Buffer
	if err := viewer.WriteYAML(&buf); err != nil {
		t.Fatalf("Failed to write YAML: %v", err)
	}

	var doc Document
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Failed to parse dump: %v", err)
	}
	if len(doc.ViewSetups) != 3 {
		t.Errorf("Expected 3 view setups, got %d", len(doc.ViewSetups))
	}
	if doc.ViewSetups[2].Angle != "180° around axis 0" {
		t.Errorf("Expected angle description, got %q", doc.ViewSetups[2].Angle)
	}
	if len(doc.Views) != 4 {
		t.Fatalf("Expected 4 views, got %d", len(doc.Views))
	}
	last := doc.Views[3]
	if last.TimePoint != 1 || last.Setup != 0 || len(last.Planes) != 2 || last.Planes[1] != "z1.tif" {
		t.Errorf("Unexpected last view entry: %+v", last)
	}
	if len(doc.MissingViews) != 1 || doc.MissingViews[0] != (models.ViewId{TimePoint: 1, Setup: 2}) {
		t.Errorf("Unexpected missing views: %v", doc.MissingViews)
	}
	if !doc.ZGrouped {
		t.Error("Expected zGrouped to be set")
	}
	if doc.ViewSetups[0].Size.VoxelSize.X != 0.2 {
		t.Errorf("Expected voxel size 0.2, got %v", doc.ViewSetups[0].Size.VoxelSize.X)
	}
}
