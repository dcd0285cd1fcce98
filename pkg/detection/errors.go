package detection

import (
	"errors"
	"fmt"
	"strings"

	"spimviews/internal/models"
)

var (
	// ErrConfigurationAmbiguity is returned when two axes cannot be told apart
	// and the caller supplied no preference. Re-running with a preference
	// resolves it.
	ErrConfigurationAmbiguity = errors.New("ambiguous axis configuration")

	// ErrUnsupportedInput is returned for input the axis model cannot
	// represent, such as multi-component (RGB) pixels.
	ErrUnsupportedInput = errors.New("unsupported input")
)

// AxisPair is one of the two structurally indistinguishable axis pairs.
type AxisPair struct {
	A, B models.Axis
}

var (
	ChannelIlluminationPair = AxisPair{A: models.ChannelAxis, B: models.IlluminationAxis}
	AngleTilePair           = AxisPair{A: models.AngleAxis, B: models.TileAxis}
)

func (p AxisPair) String() string {
	return p.A.String() + "/" + p.B.String()
}

// AmbiguityError lists the pairs that need a caller preference.
type AmbiguityError struct {
	Pairs []AxisPair
}

func (e *AmbiguityError) Error() string {
	names := make([]string, len(e.Pairs))
	for i, p := range e.Pairs {
		names[i] = fmt.Sprintf("%s vs %s", p.A, p.B)
	}
	return fmt.Sprintf("%s: cannot distinguish %s without a preference", ErrConfigurationAmbiguity, strings.Join(names, ", "))
}

func (e *AmbiguityError) Unwrap() error {
	return ErrConfigurationAmbiguity
}
