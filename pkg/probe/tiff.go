package probe

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/spatial/r3"
)

// TIFFProber reads plain TIFF files. It only sees the first image directory,
// so every file is reported as one series with one channel, one plane and
// one timepoint. Voxel size is unknown and reported as 1 pixel.
type TIFFProber struct {
	fs billy.Filesystem
}

// NewTIFFProber creates a prober reading from fs.
func NewTIFFProber(fs billy.Filesystem) *TIFFProber {
	return &TIFFProber{fs: fs}
}

// Probe implements Prober.
func (p *TIFFProber) Probe(path string) (*FileInfo, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".tif" && ext != ".tiff" {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	f, err := p.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := tiff.DecodeConfig(f)
	if err != nil {
		var unsupported tiff.UnsupportedError
		if errors.As(err, &unsupported) {
			return nil, fmt.Errorf("%s: %v: %w", path, err, ErrUnsupportedFormat)
		}
		return nil, fmt.Errorf("failed to read TIFF header of %s: %w", path, err)
	}

	return normalize(&FileInfo{
		Series: []SeriesInfo{{
			Width:           cfg.Width,
			Height:          cfg.Height,
			Depth:           1,
			VoxelSize:       r3.Vec{X: 1, Y: 1, Z: 1},
			VoxelUnit:       "pixel",
			ChannelCount:    1,
			Timepoints:      1,
			OrderCertain:    true,
			SamplesPerPixel: samplesPerPixel(cfg.ColorModel),
		}},
	}), nil
}

// samplesPerPixel maps the decoded colour model to a component count. Only
// the gray models are single component; paletted images expand to RGB.
func samplesPerPixel(m color.Model) int {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return 1
	default:
		return 3
	}
}
