package report

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"spimviews/internal/models"
)

// Document is the YAML hand-off of a resolved view set.
type Document struct {
	TimePoints   []int           `yaml:"timepoints"`
	ZGrouped     bool            `yaml:"zGrouped"`
	ViewSetups   []SetupEntry    `yaml:"viewSetups"`
	MissingViews []models.ViewId `yaml:"missingViews"`
	Views        []ViewEntry     `yaml:"views"`
	Issues       []models.Issue  `yaml:"issues,omitempty"`
}

// SetupEntry is one view setup with its identities rendered as text.
type SetupEntry struct {
	ID           int               `yaml:"id"`
	Key          models.SetupKey   `yaml:"key"`
	Channel      string            `yaml:"channel"`
	Illumination string            `yaml:"illumination"`
	Tile         string            `yaml:"tile"`
	Angle        string            `yaml:"angle"`
	Size         models.Dimensions `yaml:"size"`
}

// ViewEntry maps one view to its data source. Planes lists the files of a
// Z-grouped source in Z order.
type ViewEntry struct {
	TimePoint int      `yaml:"timepoint"`
	Setup     int      `yaml:"setup"`
	Path      string   `yaml:"path"`
	Series    int      `yaml:"series"`
	Channel   int      `yaml:"channel"`
	Planes    []string `yaml:"planes,omitempty"`
}

// Document builds the hand-off document.
func (v *Viewer) Document() *Document {
	res := v.result
	doc := &Document{
		TimePoints:   res.TimePoints,
		ZGrouped:     res.ZGrouped,
		MissingViews: res.MissingViews,
		Issues:       res.Issues,
	}
	for _, s := range res.ViewSetups {
		doc.ViewSetups = append(doc.ViewSetups, SetupEntry{
			ID:           s.ID,
			Key:          s.Key,
			Channel:      describe(models.ChannelAxis, s.Channel, s.Key.Channel),
			Illumination: describe(models.IlluminationAxis, s.Illumination, s.Key.Illumination),
			Tile:         describe(models.TileAxis, s.Tile, s.Key.Tile),
			Angle:        describe(models.AngleAxis, s.Angle, s.Key.Angle),
			Size:         s.Size,
		})
	}
	for _, view := range res.Views() {
		ref := res.Sources[view]
		entry := ViewEntry{
			TimePoint: view.TimePoint,
			Setup:     view.Setup,
			Path:      ref.Path,
			Series:    ref.Series,
			Channel:   ref.Channel,
		}
		for _, plane := range res.ZGroups[ref] {
			entry.Planes = append(entry.Planes, plane.Path)
		}
		doc.Views = append(doc.Views, entry)
	}
	return doc
}

// WriteYAML writes the hand-off document to w.
func (v *Viewer) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v.Document()); err != nil {
		return fmt.Errorf("error marshaling view set: %w", err)
	}
	return enc.Close()
}
