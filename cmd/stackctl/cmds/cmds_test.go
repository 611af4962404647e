package cmds

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/stackctl/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "stackctl", SilenceUsage: true, SilenceErrors: true}
	AddRootFlags(root)
	require.NoError(t, AddCommands(root))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--root", t.TempDir(), "--runtime", "memory"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestPlan_DefaultStack(t *testing.T) {
	out, err := run(t, "plan", "--json")
	require.NoError(t, err)
	var got struct{ Order []string }
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, []string{"db", "api", "workflow", "proxy"}, got.Order)

	out, err = run(t, "plan", "api")
	require.NoError(t, err)
	require.Equal(t, "1. db\n2. api (after db)\n", out)
}

func TestPlan_UnknownTargetIsConfigError(t *testing.T) {
	_, err := run(t, "plan", "ghost")
	require.Error(t, err)
	require.Equal(t, ExitConfig, ExitCode(err))
}

func TestStatus_JSON(t *testing.T) {
	out, err := run(t, "status", "--format", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"unhealthy": 4`)

	_, err = run(t, "health", "--fail-unhealthy")
	require.Error(t, err)
	require.Equal(t, ExitFailure, ExitCode(err))
}

func TestRecover_EmptyWatchListSucceeds(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
services:
  - name: db
    probe: {kind: process}
`), 0o644))

	out, err := run(t, "--config", cfgPath, "recover")
	require.NoError(t, err)
	require.Contains(t, out, "watch-list healthy after 0 cycle(s)")
}

func TestStartAll_InvalidStackFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
services:
  - name: api
    depends_on: [db]
    probe: {kind: process}
`), 0o644))

	_, err := run(t, "--config", cfgPath, "start-all")
	require.Error(t, err)
	require.Equal(t, ExitConfig, ExitCode(err))
}

func TestParseEnvPairs(t *testing.T) {
	require.Equal(t, map[string]string{"A": "1", "B": "x=y"}, parseEnvPairs([]string{"A=1", "B=x=y", "junk", "=v"}))
}
