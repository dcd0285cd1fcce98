// Package probe reads the image metadata the resolver needs from input
// files: series, pixel extents, voxel size, channels, stage positions and
// declared timepoints.
package probe

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrNoMetadata is returned by a prober that has nothing to say about a
	// file, so that the next prober in a Chain can try.
	ErrNoMetadata = errors.New("no metadata for file")

	// ErrUnsupportedFormat is returned when a prober cannot decode a file.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// ChannelInfo is the metadata of one channel.
type ChannelInfo struct {
	Name         string  `yaml:"name,omitempty" msgpack:"name"`
	Fluorophore  string  `yaml:"fluorophore,omitempty" msgpack:"fluorophore"`
	WavelengthNm float64 `yaml:"wavelengthNm,omitempty" msgpack:"wavelength_nm"`
}

// Rotation is the acquisition angle metadata of a series.
type Rotation struct {
	Degrees float64 `yaml:"degrees" msgpack:"degrees"`
	Axis    int     `yaml:"axis" msgpack:"axis"`
}

// SeriesInfo describes one image series inside a file.
type SeriesInfo struct {
	Width  int `yaml:"width" msgpack:"width"`
	Height int `yaml:"height" msgpack:"height"`
	Depth  int `yaml:"depth" msgpack:"depth"`

	VoxelSize r3.Vec `yaml:"voxelSize" msgpack:"voxel_size"`
	VoxelUnit string `yaml:"voxelUnit" msgpack:"voxel_unit"`

	// ChannelCount is the number of raw channels in the series.
	ChannelCount int `yaml:"channelCount" msgpack:"channel_count"`

	// ChannelGroupingStep is the number of consecutive raw channels that are
	// illumination repeats of one true channel. 0 and 1 mean no grouping.
	ChannelGroupingStep int `yaml:"channelGroupingStep,omitempty" msgpack:"channel_grouping_step"`

	// Channels holds per-channel metadata, index aligned with the raw
	// channels. It may be shorter than ChannelCount or empty.
	Channels []ChannelInfo `yaml:"channels,omitempty" msgpack:"channels"`

	StagePosition *r3.Vec   `yaml:"stagePosition,omitempty" msgpack:"stage_position"`
	Rotation      *Rotation `yaml:"rotation,omitempty" msgpack:"rotation"`

	Timepoints   int  `yaml:"timepoints" msgpack:"timepoints"`
	OrderCertain bool `yaml:"orderCertain" msgpack:"order_certain"`

	// SamplesPerPixel is 1 for grayscale data and 3 or 4 for RGB(A).
	SamplesPerPixel int `yaml:"samplesPerPixel,omitempty" msgpack:"samples_per_pixel"`
}

// Channel returns the metadata of raw channel i, or the zero value when the
// file did not report any.
func (s SeriesInfo) Channel(i int) ChannelInfo {
	if i < 0 || i >= len(s.Channels) {
		return ChannelInfo{}
	}
	return s.Channels[i]
}

// GroupingStep returns ChannelGroupingStep normalized to at least 1.
func (s SeriesInfo) GroupingStep() int {
	if s.ChannelGroupingStep < 1 {
		return 1
	}
	return s.ChannelGroupingStep
}

// FileInfo is everything a prober reports about one file.
type FileInfo struct {
	Series []SeriesInfo `yaml:"series" msgpack:"series"`

	// UsedFiles lists all physical files making up this logical file. It is
	// empty, or holds only the probed file, for single-file formats.
	UsedFiles []string `yaml:"usedFiles,omitempty" msgpack:"used_files"`
}

// Grouped reports whether the logical file spans several physical files.
func (f *FileInfo) Grouped() bool {
	return len(f.UsedFiles) > 1
}

// Prober reads the metadata of one file.
type Prober interface {
	Probe(path string) (*FileInfo, error)
}

// Chain asks each prober in turn. A prober answering ErrNoMetadata or
// ErrUnsupportedFormat passes the file on to the next one.
type Chain []Prober

// Probe implements Prober.
func (c Chain) Probe(path string) (*FileInfo, error) {
	for _, p := range c {
		info, err := p.Probe(path)
		if err == nil {
			return info, nil
		}
		if errors.Is(err, ErrNoMetadata) || errors.Is(err, ErrUnsupportedFormat) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

func normalize(info *FileInfo) *FileInfo {
	for i := range info.Series {
		s := &info.Series[i]
		if s.Depth < 1 {
			s.Depth = 1
		}
		if s.ChannelCount < 1 {
			s.ChannelCount = max(1, len(s.Channels))
		}
		if s.Timepoints < 1 {
			s.Timepoints = 1
		}
		if s.SamplesPerPixel < 1 {
			s.SamplesPerPixel = 1
		}
	}
	return info
}
