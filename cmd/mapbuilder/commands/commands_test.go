package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mapbuilder/internal/config"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test"}, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return cli, ctx
}

func TestParse_DefaultsToServe(t *testing.T) {
	_, ctx := parse(t)
	require.Equal(t, "serve", ctx.Command())
}

func TestParse_BuildFlags(t *testing.T) {
	cli, ctx := parse(t, "-v", "--config", "x.yaml", "build", "--name", "org/repo", "--remote", "https://example.com/org/repo.git", "--branch", "dev")
	require.Equal(t, "build", ctx.Command())
	require.True(t, cli.Verbose)
	require.Equal(t, "org/repo", cli.Build.Name)
	require.Equal(t, "dev", cli.Build.Branch)
	require.Equal(t, "x.yaml", filepath.Base(cli.Config))
}

func TestNewLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, config.LoggingConfig{Level: config.LogLevelInfo, Format: config.LogFormatJSON}, false).Info("hello")
	require.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	l := newLogger(&buf, config.LoggingConfig{Level: config.LogLevelError}, true)
	l.Debug("dbg")
	require.Contains(t, buf.String(), "msg=dbg")
}

func TestBuildCmd_RequiresRemoteForExplicitName(t *testing.T) {
	t.Setenv(config.EnvSecret, "s")
	t.Chdir(t.TempDir())

	cli := &CLI{Config: filepath.Join(t.TempDir(), "missing.yaml")}
	cmd := &BuildCmd{Name: "org/repo"}
	err := cmd.Run(&Global{}, cli)
	require.Error(t, err)
	require.Contains(t, err.Error(), "--remote")
}

func TestInitCmd_WritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapbuilder.yaml")
	cli := &CLI{Config: path}
	require.NoError(t, (&InitCmd{}).Run(&Global{}, cli))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "GITHUB_SECRET")

	require.Error(t, (&InitCmd{}).Run(&Global{}, cli))
	require.NoError(t, (&InitCmd{Force: true}).Run(&Global{}, cli))
}
