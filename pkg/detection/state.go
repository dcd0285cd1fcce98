// Package detection builds the dataset-wide detection state from probed
// files: per-axis accumulations, per-file and global multiplicity
// classification, and resolution of the channel/illumination and angle/tile
// ambiguities.
package detection

import (
	"spimviews/internal/models"
)

// State is the aggregate detection state. It is filled by Add while files
// are scanned, finalized by Reconcile and Disambiguate, and read-only after
// that.
type State struct {
	// Axes holds the dataset-wide accumulation of every axis.
	Axes [models.NumAxes]*Accumulation

	// Multiplicity is the dataset-wide classification of every axis.
	Multiplicity [models.NumAxes]models.Multiplicity

	// VariesWithinFile is true for axes that some file reported as not
	// SINGLE, unless Disambiguate forced the axis to SINGLE.
	VariesWithinFile [models.NumAxes]bool

	// Ambiguity flags the pairs that needed a caller preference.
	Ambiguity Ambiguity

	// Grouped is true when a logical file spans several physical files.
	Grouped bool

	// Timepoints is the declared timepoint count of every data source.
	Timepoints map[models.DataSourceRef]int

	// Dimensions is the pixel extent and voxel size of every data source.
	Dimensions map[models.DataSourceRef]models.Dimensions

	// Files lists the probed files in scan order.
	Files []string

	Issues []models.Issue

	verdicts [][models.NumAxes]models.Multiplicity
}

// NewState returns an empty state.
func NewState() *State {
	s := &State{
		Timepoints: make(map[models.DataSourceRef]int),
		Dimensions: make(map[models.DataSourceRef]models.Dimensions),
	}
	for i := range s.Axes {
		s.Axes[i] = NewAccumulation()
	}
	return s
}

// Add merges one file's observation and records its per-file verdict.
func (s *State) Add(obs *Observation) [models.NumAxes]models.Multiplicity {
	verdict := ClassifyFile(obs)
	s.verdicts = append(s.verdicts, verdict)
	s.Files = append(s.Files, obs.Path)

	for _, a := range models.Axes {
		s.Axes[a].merge(obs.Axes[a])
	}
	for ref, n := range obs.Timepoints {
		s.Timepoints[ref] = n
	}
	for ref, d := range obs.Dimensions {
		s.Dimensions[ref] = d
	}
	s.Issues = append(s.Issues, obs.Issues...)
	return verdict
}

// Reconcile derives the dataset-wide multiplicities from the per-file
// verdicts. A MULTIPLE_INDEXED file lifts the axis to MULTIPLE_INDEXED unless
// it is already MULTIPLE_NAMED, a MULTIPLE_NAMED file lifts it to
// MULTIPLE_NAMED, and an axis that is SINGLE in every file but shows several
// identities across files is MULTIPLE_NAMED too.
func (s *State) Reconcile() {
	for _, a := range models.Axes {
		m := models.Single
		varies := false
		for _, v := range s.verdicts {
			switch v[a] {
			case models.MultipleIndexed:
				varies = true
				if m != models.MultipleNamed {
					m = models.MultipleIndexed
				}
			case models.MultipleNamed:
				varies = true
				m = models.MultipleNamed
			}
		}
		if m == models.Single && s.Axes[a].Len() > 1 {
			m = models.MultipleNamed
		}
		s.Multiplicity[a] = m
		s.VariesWithinFile[a] = varies
	}
}

// Disambiguate applies ResolveAmbiguity to the reconciled multiplicities
// once for the whole dataset. An axis forced to SINGLE no longer varies
// within files, so a pattern slot can still tell its instances apart. On
// error the state is left unchanged apart from the Ambiguity flags.
func (s *State) Disambiguate(prefs Preferences) error {
	m, amb, err := ResolveAmbiguity(s.Multiplicity, prefs)
	s.Ambiguity = amb
	if err != nil {
		return err
	}
	s.Multiplicity = m
	for _, a := range models.Axes {
		if m[a] == models.Single {
			s.VariesWithinFile[a] = false
		}
	}
	return nil
}
