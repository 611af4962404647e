package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, DefaultConfigFilename)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	p := writeConfig(t, `
project: demo
services:
  - name: db
    probe: {kind: port, port: 5432}
  - name: api
    depends_on: [db]
    startup_timeout_seconds: 5
    probe: {kind: http, port: 8000, path: /health}
recovery:
  watch: [db, api]
  backoff: 1s
`)
	cfg, err := LoadFromFile(p)
	require.NoError(t, err)
	require.Equal(t, "demo", cfg.Project)
	require.Equal(t, RuntimeDocker, cfg.Runtime)
	require.Equal(t, 60*time.Second, cfg.Defaults.StartupTimeout)
	require.Equal(t, 3, cfg.Recovery.MaxAttempts)
	require.Equal(t, time.Second, cfg.Recovery.Backoff)
	require.Equal(t, 5*time.Second, cfg.Services[1].StartupTimeout(cfg.Defaults))
	require.Equal(t, 60*time.Second, cfg.Services[0].StartupTimeout(cfg.Defaults))
}

func TestLoadFromFile_CollectsProblems(t *testing.T) {
	p := writeConfig(t, `
runtime: podman
services:
  - name: api
    depends_on: [db]
    probe: {kind: port}
  - name: api
    probe: {kind: command}
recovery:
  watch: [ghost]
`)
	_, err := LoadFromFile(p)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, p, verr.Path)

	joined := verr.Error()
	require.Contains(t, joined, "Runtime")
	require.Contains(t, joined, `duplicate service "api"`)
	require.Contains(t, joined, `depends on unknown service "db"`)
	require.Contains(t, joined, "port probe needs a port")
	require.Contains(t, joined, "command probe needs a command")
	require.Contains(t, joined, `unknown service "ghost"`)
}

func TestLoadFromFile_BadYAMLIsValidationError(t *testing.T) {
	p := writeConfig(t, "services: [\n")
	_, err := LoadFromFile(p)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestLoadOptional_MissingFileUsesDefault(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Len(t, cfg.Services, 5)
}

func TestEnabledServices_DropsDisabledEdges(t *testing.T) {
	cfg := Default()
	enabled := cfg.EnabledServices()

	names := make([]string, 0, len(enabled))
	for _, s := range enabled {
		names = append(names, s.Name)
		if s.Name == "workflow" {
			require.Equal(t, []string{"db", "api"}, s.DependsOn)
		}
	}
	require.Equal(t, []string{"db", "api", "workflow", "proxy"}, names)
}

func TestWatchList_SkipsDisabled(t *testing.T) {
	cfg := Default()
	cfg.Recovery.Watch = []string{"browser", "db"}
	require.Equal(t, []string{"db"}, cfg.WatchList())
}

func TestValidate_TerminalMustBeEnabled(t *testing.T) {
	cfg := Default()
	cfg.Terminal = "browser"
	err := cfg.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Contains(t, verr.Error(), `terminal service "browser" is disabled`)

	cfg.Terminal = "ghost"
	require.Contains(t, cfg.Validate().Error(), `terminal service "ghost" is not defined`)

	cfg.Terminal = "proxy"
	require.NoError(t, cfg.Validate())
}
