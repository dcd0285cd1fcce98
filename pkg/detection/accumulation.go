package detection

import (
	"slices"

	"spimviews/internal/models"
)

// Accumulation maps each distinct identity of one axis to the data sources
// showing it. Identities keep their first-seen order, which later becomes
// ID assignment order. A data source belongs to exactly one identity.
type Accumulation struct {
	order []models.AxisDetail
	refs  map[models.AxisDetail][]models.DataSourceRef
	owner map[models.DataSourceRef]models.AxisDetail
}

// NewAccumulation returns an empty accumulation.
func NewAccumulation() *Accumulation {
	return &Accumulation{
		refs:  make(map[models.AxisDetail][]models.DataSourceRef),
		owner: make(map[models.DataSourceRef]models.AxisDetail),
	}
}

// Add records that ref shows identity d. A ref already recorded keeps its
// first identity.
func (a *Accumulation) Add(d models.AxisDetail, ref models.DataSourceRef) {
	if _, ok := a.owner[ref]; ok {
		return
	}
	if _, ok := a.refs[d]; !ok {
		a.order = append(a.order, d)
	}
	a.refs[d] = append(a.refs[d], ref)
	a.owner[ref] = d
}

// Len returns the number of distinct identities.
func (a *Accumulation) Len() int {
	return len(a.order)
}

// Identities returns the distinct identities in first-seen order.
func (a *Accumulation) Identities() []models.AxisDetail {
	return slices.Clone(a.order)
}

// Refs returns the data sources showing identity d.
func (a *Accumulation) Refs(d models.AxisDetail) models.RefSet {
	return models.NewRefSet(a.refs[d]...)
}

// All returns every data source of the axis.
func (a *Accumulation) All() models.RefSet {
	all := make([]models.DataSourceRef, 0, len(a.owner))
	for ref := range a.owner {
		all = append(all, ref)
	}
	return models.NewRefSet(all...)
}

// Identity returns the identity ref was recorded with.
func (a *Accumulation) Identity(ref models.DataSourceRef) (models.AxisDetail, bool) {
	d, ok := a.owner[ref]
	return d, ok
}

func (a *Accumulation) merge(o *Accumulation) {
	for _, d := range o.order {
		for _, ref := range o.refs[d] {
			a.Add(d, ref)
		}
	}
}

// Ordinal returns the physical index that tells instances of an axis apart
// when they carry no metadata: the channel index for channels and
// illuminations, the series index for angles and tiles.
func Ordinal(a models.Axis, ref models.DataSourceRef) int {
	switch a {
	case models.ChannelAxis, models.IlluminationAxis:
		return ref.Channel
	case models.AngleAxis, models.TileAxis:
		return ref.Series
	default:
		return 0
	}
}

// multiplicity applies the per-file rule: several identities are named, one
// identity spread over several ordinals of the axis is indexed.
func (a *Accumulation) multiplicity(axis models.Axis) models.Multiplicity {
	switch len(a.order) {
	case 0:
		return models.Single
	case 1:
		ordinals := make(map[int]struct{})
		for _, ref := range a.refs[a.order[0]] {
			ordinals[Ordinal(axis, ref)] = struct{}{}
		}
		if len(ordinals) > 1 {
			return models.MultipleIndexed
		}
		return models.Single
	default:
		return models.MultipleNamed
	}
}
