package models

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// AxisDetail is the identity of one instance of an axis. It is a closed
// union: ChannelIdentity, AngleIdentity, TileIdentity or PlainIndex. All
// variants are comparable so they can be used as map keys; two instances are
// the same when their details are structurally equal.
type AxisDetail interface {
	axisDetail()
}

// ChannelIdentity identifies a channel by its metadata.
type ChannelIdentity struct {
	Name         string  `yaml:"name,omitempty"`
	Fluorophore  string  `yaml:"fluorophore,omitempty"`
	WavelengthNm float64 `yaml:"wavelengthNm,omitempty"`
}

// AngleIdentity identifies an acquisition angle. Present is false when the
// file carried no rotation metadata.
type AngleIdentity struct {
	Degrees      float64 `yaml:"degrees"`
	RotationAxis int     `yaml:"rotationAxis"`
	Present      bool    `yaml:"present"`
}

// TileIdentity identifies a tile by its stage position. Present flags which
// of the X, Y and Z coordinates were reported.
type TileIdentity struct {
	Position r3.Vec  `yaml:"position"`
	Present  [3]bool `yaml:"present"`
}

// PlainIndex identifies illuminations and timepoints, which carry no richer
// metadata than an ordinal.
type PlainIndex struct {
	Index int `yaml:"index"`
}

func (ChannelIdentity) axisDetail() {}
func (AngleIdentity) axisDetail()   {}
func (TileIdentity) axisDetail()    {}
func (PlainIndex) axisDetail()      {}

// Empty reports whether the channel carries no identifying metadata.
func (c ChannelIdentity) Empty() bool {
	return c == ChannelIdentity{}
}

// HasPosition reports whether any stage coordinate was reported.
func (t TileIdentity) HasPosition() bool {
	return t.Present[0] || t.Present[1] || t.Present[2]
}

// DescribeDetail renders a detail for logs and reports. id is used as the
// fallback name when the detail has no metadata.
func DescribeDetail(d AxisDetail, id int) string {
	switch v := d.(type) {
	case ChannelIdentity:
		if v.Empty() {
			return fmt.Sprintf("channel %d", id)
		}
		var parts []string
		if v.Name != "" {
			parts = append(parts, v.Name)
		}
		if v.Fluorophore != "" {
			parts = append(parts, v.Fluorophore)
		}
		if v.WavelengthNm > 0 {
			parts = append(parts, fmt.Sprintf("%gnm", v.WavelengthNm))
		}
		return strings.Join(parts, " ")
	case AngleIdentity:
		if !v.Present {
			return fmt.Sprintf("angle %d", id)
		}
		return fmt.Sprintf("%g° around axis %d", v.Degrees, v.RotationAxis)
	case TileIdentity:
		if !v.HasPosition() {
			return fmt.Sprintf("tile %d", id)
		}
		return fmt.Sprintf("tile @ (%g, %g, %g)", v.Position.X, v.Position.Y, v.Position.Z)
	case PlainIndex:
		return fmt.Sprintf("%d", v.Index)
	case nil:
		return fmt.Sprintf("%d", id)
	default:
		panic(fmt.Sprintf("unhandled axis detail %T", d))
	}
}
