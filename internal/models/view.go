package models

import "cmp"

// SetupKey is the per-axis ID combination a ViewSetup stands for.
type SetupKey struct {
	Channel      int `yaml:"channel"`
	Illumination int `yaml:"illumination"`
	Tile         int `yaml:"tile"`
	Angle        int `yaml:"angle"`
}

// ViewSetup is one concrete (Channel, Illumination, Angle, Tile) combination,
// independent of timepoint.
type ViewSetup struct {
	ID  int
	Key SetupKey

	Channel      AxisDetail
	Illumination AxisDetail
	Angle        AxisDetail
	Tile         AxisDetail

	// Size is taken from the first data source found for the setup.
	Size Dimensions
}

// ViewId identifies one logical view: a ViewSetup at a TimePoint.
type ViewId struct {
	TimePoint int `yaml:"timepoint"`
	Setup     int `yaml:"setup"`
}

// CompareViewIds orders views by timepoint, then setup.
func CompareViewIds(a, b ViewId) int {
	if c := cmp.Compare(a.TimePoint, b.TimePoint); c != 0 {
		return c
	}
	return cmp.Compare(a.Setup, b.Setup)
}
