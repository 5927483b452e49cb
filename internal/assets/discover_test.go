package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) string {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	return p
}

func TestDiscover_RecursiveSortedAbsolute(t *testing.T) {
	root := t.TempDir()
	b := writeFile(t, root, "maps/z/b.dmm")
	a := writeFile(t, root, "maps/a.dmm")
	c := writeFile(t, root, "maps/away/deep/c.dmm")
	writeFile(t, root, "maps/readme.md")
	writeFile(t, root, "maps/.hidden/skip.dmm")
	writeFile(t, root, "other/x.dmm")

	got, err := NewDiscoverer("maps", ".dmm").Discover(root)
	require.NoError(t, err)
	require.Equal(t, []string{a, c, b}, got)
	for _, p := range got {
		require.True(t, filepath.IsAbs(p))
	}
}

func TestDiscover_MissingDirectoryIsEmpty(t *testing.T) {
	got, err := NewDiscoverer("maps", ".dmm").Discover(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestDiscover_EmptyDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "maps"), 0o750))

	got, err := NewDiscoverer("maps", ".dmm").Discover(root)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDiscover_RelativeRoot(t *testing.T) {
	root := t.TempDir()
	want := writeFile(t, root, "maps/a.dmm")
	t.Chdir(root)

	got, err := NewDiscoverer("maps", ".dmm").Discover(".")
	require.NoError(t, err)
	require.Len(t, got, 1)
	// t.TempDir may sit behind a symlink (macOS /var), compare by base name and abs-ness.
	require.Equal(t, filepath.Base(want), filepath.Base(got[0]))
	require.True(t, filepath.IsAbs(got[0]))
}
