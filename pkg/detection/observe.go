package detection

import (
	"fmt"
	"strconv"

	"spimviews/internal/models"
	"spimviews/pkg/probe"
)

// Observation is what one probed file contributes to each axis.
type Observation struct {
	Path       string
	Axes       [models.NumAxes]*Accumulation
	Timepoints map[models.DataSourceRef]int
	Dimensions map[models.DataSourceRef]models.Dimensions
	Issues     []models.Issue
}

// Observe turns the metadata of one file into per-axis accumulations. Every
// channel of every series becomes one DataSourceRef.
//
// Raw channel c of a series with grouping step g belongs to channel c/g and
// illumination c%g. Without grouping all raw channels share illumination 0,
// so a multi-channel file without channel metadata is indexed on both
// channel and illumination.
func Observe(path string, info *probe.FileInfo) (*Observation, error) {
	obs := &Observation{
		Path:       path,
		Timepoints: make(map[models.DataSourceRef]int),
		Dimensions: make(map[models.DataSourceRef]models.Dimensions),
	}
	for i := range obs.Axes {
		obs.Axes[i] = NewAccumulation()
	}

	var missingPosition, missingRotation, missingChannel bool
	for s, series := range info.Series {
		if series.SamplesPerPixel > 1 {
			return nil, fmt.Errorf("%s series %d has %d samples per pixel: %w",
				path, s, series.SamplesPerPixel, ErrUnsupportedInput)
		}

		angle := models.AngleIdentity{}
		if series.Rotation != nil {
			angle = models.AngleIdentity{Degrees: series.Rotation.Degrees, RotationAxis: series.Rotation.Axis, Present: true}
		} else {
			missingRotation = true
		}
		tile := models.TileIdentity{}
		if series.StagePosition != nil {
			tile = models.TileIdentity{Position: *series.StagePosition, Present: [3]bool{true, true, true}}
		} else {
			missingPosition = true
		}

		dims := models.Dimensions{
			Width:     series.Width,
			Height:    series.Height,
			Depth:     max(1, series.Depth),
			VoxelSize: series.VoxelSize,
			Unit:      series.VoxelUnit,
		}

		step := series.GroupingStep()
		for c := 0; c < max(1, series.ChannelCount); c++ {
			ref := models.DataSourceRef{Path: path, Series: s, Channel: c}
			if series.ChannelCount > 1 && series.Channel(c-c%step) == (probe.ChannelInfo{}) {
				missingChannel = true
			}

			obs.Axes[models.TimePointAxis].Add(models.PlainIndex{}, ref)
			obs.Axes[models.ChannelAxis].Add(channelIdentity(series, c, step), ref)
			obs.Axes[models.IlluminationAxis].Add(models.PlainIndex{Index: c % step}, ref)
			obs.Axes[models.AngleAxis].Add(angle, ref)
			obs.Axes[models.TileAxis].Add(tile, ref)

			obs.Timepoints[ref] = max(1, series.Timepoints)
			obs.Dimensions[ref] = dims
		}
	}

	if len(info.Series) > 1 {
		if missingRotation {
			obs.metadataAbsent(models.AngleAxis, "%s: %d series without rotation, angles fall back to series index", path, len(info.Series))
		}
		if missingPosition {
			obs.metadataAbsent(models.TileAxis, "%s: %d series without stage position, tiles fall back to series index", path, len(info.Series))
		}
	}
	if missingChannel {
		obs.metadataAbsent(models.ChannelAxis, "%s: channels without name, fluorophore or wavelength fall back to channel index", path)
	}
	return obs, nil
}

func (o *Observation) metadataAbsent(axis models.Axis, format string, args ...any) {
	o.Issues = append(o.Issues, models.Issue{
		Kind:    models.IssueMetadataAbsent,
		Axis:    axis,
		Message: fmt.Sprintf(format, args...),
	})
}

func channelIdentity(series probe.SeriesInfo, c, step int) models.ChannelIdentity {
	meta := series.Channel(c - c%step)
	id := models.ChannelIdentity{Name: meta.Name, Fluorophore: meta.Fluorophore, WavelengthNm: meta.WavelengthNm}
	if step > 1 && id.Empty() {
		// The grouping itself tells the true channels apart.
		id.Name = strconv.Itoa(c / step)
	}
	return id
}

// ClassifyFile judges the multiplicity of every axis within one file.
// TimePoint is indexed as soon as any series declares several timepoints.
func ClassifyFile(obs *Observation) [models.NumAxes]models.Multiplicity {
	var m [models.NumAxes]models.Multiplicity
	for _, a := range models.Axes {
		if a == models.TimePointAxis {
			for _, n := range obs.Timepoints {
				if n > 1 {
					m[a] = models.MultipleIndexed
					break
				}
			}
			continue
		}
		m[a] = obs.Axes[a].multiplicity(a)
	}
	return m
}
