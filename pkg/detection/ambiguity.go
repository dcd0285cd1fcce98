package detection

import "spimviews/internal/models"

// Ambiguity flags the axis pairs that are both indexed with no metadata.
type Ambiguity struct {
	ChannelIllumination bool
	AngleTile           bool
}

// Any reports whether any pair is ambiguous.
func (a Ambiguity) Any() bool {
	return a.ChannelIllumination || a.AngleTile
}

// Preferences are the caller's answers to an ambiguity. A nil field means
// no answer.
type Preferences struct {
	PreferChannelOverIllumination *bool
	PreferTileOverAngle           *bool
}

// DetectAmbiguity reports which pairs are both MULTIPLE_INDEXED.
func DetectAmbiguity(m [models.NumAxes]models.Multiplicity) Ambiguity {
	return Ambiguity{
		ChannelIllumination: bothIndexed(m, ChannelIlluminationPair),
		AngleTile:           bothIndexed(m, AngleTilePair),
	}
}

func bothIndexed(m [models.NumAxes]models.Multiplicity, p AxisPair) bool {
	return m[p.A] == models.MultipleIndexed && m[p.B] == models.MultipleIndexed
}

// ResolveAmbiguity applies the pair rule to the dataset multiplicities:
// when one axis of a pair is named and the other indexed, the indexed one is
// spurious and becomes SINGLE; when both are indexed the preferred axis stays
// indexed and the other becomes SINGLE. A missing preference for an ambiguous
// pair yields an *AmbiguityError and m is returned unchanged.
func ResolveAmbiguity(m [models.NumAxes]models.Multiplicity, prefs Preferences) ([models.NumAxes]models.Multiplicity, Ambiguity, error) {
	amb := DetectAmbiguity(m)

	var missing []AxisPair
	if amb.ChannelIllumination && prefs.PreferChannelOverIllumination == nil {
		missing = append(missing, ChannelIlluminationPair)
	}
	if amb.AngleTile && prefs.PreferTileOverAngle == nil {
		missing = append(missing, AngleTilePair)
	}
	if len(missing) > 0 {
		return m, amb, &AmbiguityError{Pairs: missing}
	}

	out := m
	resolvePair(&out, ChannelIlluminationPair, prefs.PreferChannelOverIllumination)
	// Tile is listed second in its pair, so a tile preference keeps B.
	var preferAngle *bool
	if prefs.PreferTileOverAngle != nil {
		v := !*prefs.PreferTileOverAngle
		preferAngle = &v
	}
	resolvePair(&out, AngleTilePair, preferAngle)
	return out, amb, nil
}

// resolvePair forces the spurious or unpreferred axis of p to SINGLE.
// preferA is only consulted when both axes are indexed.
func resolvePair(m *[models.NumAxes]models.Multiplicity, p AxisPair, preferA *bool) {
	a, b := m[p.A], m[p.B]
	switch {
	case a == models.MultipleNamed && b == models.MultipleIndexed:
		m[p.B] = models.Single
	case b == models.MultipleNamed && a == models.MultipleIndexed:
		m[p.A] = models.Single
	case a == models.MultipleIndexed && b == models.MultipleIndexed:
		if *preferA {
			m[p.B] = models.Single
		} else {
			m[p.A] = models.Single
		}
	}
}
