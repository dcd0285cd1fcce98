package models

import "fmt"

// IssueKind classifies a non-fatal problem found while resolving views.
type IssueKind string

const (
	// IssueMetadataAbsent: an axis lacks identifying metadata and falls back
	// to index or pattern identity.
	IssueMetadataAbsent IssueKind = "METADATA_ABSENT"

	// IssueStructuralDuplicate: more than one data source matches a view.
	IssueStructuralDuplicate IssueKind = "STRUCTURAL_DUPLICATE"

	// IssuePatternMismatch: a source path does not match the filename pattern.
	IssuePatternMismatch IssueKind = "PATTERN_MISMATCH"

	// IssueSlotIgnored: a pattern slot assignment could not be applied.
	IssueSlotIgnored IssueKind = "SLOT_IGNORED"

	// IssueInconsistentSize: the sources of one setup disagree on voxel size.
	IssueInconsistentSize IssueKind = "INCONSISTENT_SIZE"
)

// Issue is one recorded non-fatal problem.
type Issue struct {
	Kind    IssueKind       `yaml:"kind"`
	Axis    Axis            `yaml:"-"`
	View    *ViewId         `yaml:"view,omitempty"`
	Sources []DataSourceRef `yaml:"-"`
	Message string          `yaml:"message"`
}

func (i Issue) String() string {
	if i.View != nil {
		return fmt.Sprintf("%s (tp=%d setup=%d): %s", i.Kind, i.View.TimePoint, i.View.Setup, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Kind, i.Message)
}
