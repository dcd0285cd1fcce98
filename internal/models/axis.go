// Package models holds the data types shared by the detection, expansion and
// assembly stages: axes, data source references, axis identities and the
// resolved view model.
package models

import (
	"fmt"
	"strings"
)

// Axis is one of the five orthogonal acquisition dimensions of an experiment.
type Axis int

const (
	TimePointAxis Axis = iota
	ChannelAxis
	IlluminationAxis
	AngleAxis
	TileAxis
)

// NumAxes is the number of Axis values, used to size per-axis arrays.
const NumAxes = 5

// Axes lists every axis in declaration order.
var Axes = [NumAxes]Axis{TimePointAxis, ChannelAxis, IlluminationAxis, AngleAxis, TileAxis}

var axisNames = [NumAxes]string{"timepoint", "channel", "illumination", "angle", "tile"}

func (a Axis) String() string {
	if a < 0 || int(a) >= NumAxes {
		return fmt.Sprintf("axis(%d)", int(a))
	}
	return axisNames[a]
}

// ParseAxis converts a case-insensitive axis name to an Axis.
func ParseAxis(s string) (Axis, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range axisNames {
		if n == name {
			return Axis(i), nil
		}
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// Multiplicity describes how many instances of an axis a file or a dataset
// carries and how they can be told apart.
type Multiplicity int

const (
	// Single means one instance.
	Single Multiplicity = iota
	// MultipleIndexed means several instances distinguishable only by position.
	MultipleIndexed
	// MultipleNamed means several instances distinguishable by metadata.
	MultipleNamed
)

func (m Multiplicity) String() string {
	switch m {
	case Single:
		return "SINGLE"
	case MultipleIndexed:
		return "MULTIPLE_INDEXED"
	case MultipleNamed:
		return "MULTIPLE_NAMED"
	default:
		return fmt.Sprintf("Multiplicity(%d)", int(m))
	}
}

// SlotRole is what the caller decided a filename-pattern slot encodes.
type SlotRole int

const (
	SlotIgnore SlotRole = iota
	SlotTimePoint
	SlotChannel
	SlotIllumination
	SlotAngle
	SlotTile
	SlotZPlane
)

var slotRoleNames = [...]string{"ignore", "timepoint", "channel", "illumination", "angle", "tile", "zplane"}

func (r SlotRole) String() string {
	if r < 0 || int(r) >= len(slotRoleNames) {
		return fmt.Sprintf("SlotRole(%d)", int(r))
	}
	return slotRoleNames[r]
}

// Axis returns the axis a slot is bound to. Ignore and ZPlane slots are not
// bound to any axis.
func (r SlotRole) Axis() (Axis, bool) {
	switch r {
	case SlotTimePoint:
		return TimePointAxis, true
	case SlotChannel:
		return ChannelAxis, true
	case SlotIllumination:
		return IlluminationAxis, true
	case SlotAngle:
		return AngleAxis, true
	case SlotTile:
		return TileAxis, true
	default:
		return 0, false
	}
}

// ParseSlotRole converts a role name ("channel", "zplane", ...) to a SlotRole.
// "z" is accepted as a short form of "zplane" and the empty string as "ignore".
func ParseSlotRole(s string) (SlotRole, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return SlotIgnore, nil
	case "z":
		return SlotZPlane, nil
	}
	for i, n := range slotRoleNames {
		if n == name {
			return SlotRole(i), nil
		}
	}
	return SlotIgnore, fmt.Errorf("unknown slot role %q", s)
}

// ParseSlotRoles parses a list of role names, one per pattern slot.
func ParseSlotRoles(names []string) ([]SlotRole, error) {
	roles := make([]SlotRole, len(names))
	for i, n := range names {
		r, err := ParseSlotRole(n)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		roles[i] = r
	}
	return roles, nil
}
