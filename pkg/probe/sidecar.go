package probe

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"
)

// SidecarProber reads metadata from a YAML file stored next to the image,
// named after it with a ".yaml" suffix (img.czi -> img.czi.yaml). It answers
// ErrNoMetadata when there is no sidecar.
//
// Sidecars let datasets written by formats this module cannot decode (CZI,
// ND2, LIF, ...) be described once by an external metadata dump.
type SidecarProber struct {
	fs billy.Filesystem
}

// NewSidecarProber creates a prober reading sidecars from fs.
func NewSidecarProber(fs billy.Filesystem) *SidecarProber {
	return &SidecarProber{fs: fs}
}

// SidecarPath returns the sidecar file name for path.
func SidecarPath(path string) string {
	return path + ".yaml"
}

// Probe implements Prober.
func (p *SidecarProber) Probe(path string) (*FileInfo, error) {
	data, err := util.ReadFile(p.fs, SidecarPath(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoMetadata)
		}
		return nil, fmt.Errorf("failed to read sidecar of %s: %w", path, err)
	}

	var info FileInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse sidecar of %s: %w", path, err)
	}
	if len(info.Series) == 0 {
		return nil, fmt.Errorf("sidecar of %s declares no series: %w", path, ErrNoMetadata)
	}
	return normalize(&info), nil
}

// WriteSidecar stores info as the sidecar of path.
func WriteSidecar(fs billy.Filesystem, path string, info *FileInfo) error {
	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("error marshaling sidecar: %w", err)
	}
	return util.WriteFile(fs, SidecarPath(path), data, 0o644)
}
