package build

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaths(t *testing.T) {
	require.Equal(t, filepath.Join("cache", "org", "repo"), WorkingCopyPath("cache", "org/repo"))
	require.Equal(t, filepath.Join("pub", "org", "repo", "dev"), PublishPath("pub", "org/repo", "dev"))
}
