package build

import (
	"path/filepath"
)

// WorkingCopyPath returns the persistent clone location of a repository.
func WorkingCopyPath(cacheRoot, fullName string) string {
	return filepath.Join(cacheRoot, filepath.FromSlash(fullName))
}

// PublishPath returns the published set location of a repository branch.
func PublishPath(publishRoot, fullName, branch string) string {
	return filepath.Join(publishRoot, filepath.FromSlash(fullName), filepath.FromSlash(branch))
}
