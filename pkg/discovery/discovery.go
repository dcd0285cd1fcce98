// Package discovery finds the input image files of a dataset.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// ErrNoFiles is returned when no file matched. Resolving an empty dataset is
// pointless, so callers abort on it.
var ErrNoFiles = errors.New("no input files found")

// Find walks root and returns the regular files whose base name matches the
// include glob (path.Match syntax), sorted. Hidden files, probe sidecars and
// directories starting with "." are skipped.
func Find(fs billy.Filesystem, root, include string) ([]string, error) {
	if include == "" {
		include = "*"
	}
	if _, err := path.Match(include, ""); err != nil {
		return nil, fmt.Errorf("invalid include pattern %q: %w", include, err)
	}

	var files []string
	err := util.Walk(fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name := info.Name()
		if info.IsDir() {
			if p != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".yaml") {
			return nil
		}
		if ok, _ := path.Match(include, name); ok {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s matching %q", ErrNoFiles, root, include)
	}

	// Deterministic order regardless of directory enumeration order
	sort.Strings(files)
	return files, nil
}
