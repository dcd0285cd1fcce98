package models

import (
	"cmp"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"
)

// DataSourceRef identifies one physical plane-stack: a channel of a series
// inside a file.
type DataSourceRef struct {
	// Path is the file path, or a generated multi-plane template after
	// Z-grouping.
	Path string

	// Series is the index of the image series inside the file.
	Series int

	// Channel is the channel index within the series.
	Channel int
}

func (r DataSourceRef) String() string {
	return fmt.Sprintf("%s[series=%d,channel=%d]", r.Path, r.Series, r.Channel)
}

// CompareRefs orders references by path, then series, then channel.
func CompareRefs(a, b DataSourceRef) int {
	if c := cmp.Compare(a.Path, b.Path); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Series, b.Series); c != 0 {
		return c
	}
	return cmp.Compare(a.Channel, b.Channel)
}

// RefSet is a sorted, duplicate-free list of data source references.
type RefSet []DataSourceRef

// NewRefSet builds a RefSet from refs in any order.
func NewRefSet(refs ...DataSourceRef) RefSet {
	s := slices.Clone(refs)
	slices.SortFunc(s, CompareRefs)
	return RefSet(slices.Compact(s))
}

// Contains reports whether ref is in the set.
func (s RefSet) Contains(ref DataSourceRef) bool {
	_, ok := slices.BinarySearchFunc(s, ref, CompareRefs)
	return ok
}

// Add returns a new set with ref inserted. s is never modified.
func (s RefSet) Add(ref DataSourceRef) RefSet {
	i, ok := slices.BinarySearchFunc(s, ref, CompareRefs)
	if ok {
		return s
	}
	out := make(RefSet, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, ref)
	return append(out, s[i:]...)
}

// Intersect returns the references present in both sets.
func Intersect(a, b RefSet) RefSet {
	var out RefSet
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch c := CompareRefs(a[i], b[j]); {
		case c < 0:
			i++
		case c > 0:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// Dimensions are the pixel extents and physical voxel size of a data source.
type Dimensions struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Depth  int `yaml:"depth"`

	// VoxelSize is the physical size of one voxel along X, Y and Z.
	VoxelSize r3.Vec `yaml:"voxelSize"`

	// Unit is the unit of VoxelSize, e.g. "µm".
	Unit string `yaml:"unit"`
}
