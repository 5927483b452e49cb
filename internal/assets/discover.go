// Package assets enumerates the map sources of a working copy.
package assets

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
)

// Discoverer finds assets with a given extension below a subdirectory of a working tree.
type Discoverer struct {
	dir string
	ext string
}

// NewDiscoverer returns a Discoverer for files ending in ext under dir (relative to the root
// passed to Discover).
func NewDiscoverer(dir, ext string) *Discoverer {
	return &Discoverer{dir: dir, ext: ext}
}

// Discover walks <root>/<dir> recursively and returns the sorted absolute paths of every
// matching file. Hidden files and directories are skipped. A missing asset directory yields an
// empty result.
func (d *Discoverer) Discover(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.FileSystemError("failed to resolve working tree root").
			WithCause(err).
			WithContext("path", root).
			Build()
	}
	base := filepath.Join(absRoot, d.dir)

	info, err := os.Stat(base)
	switch {
	case os.IsNotExist(err):
		return []string{}, nil
	case err != nil:
		return nil, errors.FileSystemError("failed to stat asset directory").
			WithCause(err).
			WithContext("path", base).
			Build()
	case !info.IsDir():
		return []string{}, nil
	}

	var found []string
	walkErr := filepath.WalkDir(base, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != base && strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), d.ext) {
			found = append(found, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, errors.FileSystemError("failed to walk asset directory").
			WithCause(walkErr).
			WithContext("path", base).
			Build()
	}

	sort.Strings(found)
	if found == nil {
		found = []string{}
	}
	return found, nil
}
