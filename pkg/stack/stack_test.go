package stack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-go-golems/stackctl/pkg/config"
	"github.com/go-go-golems/stackctl/pkg/events"
	"github.com/go-go-golems/stackctl/pkg/graph"
	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/go-go-golems/stackctl/pkg/runtime/docker"
	"github.com/go-go-golems/stackctl/pkg/runtime/memory"
	"github.com/go-go-golems/stackctl/pkg/runtime/process"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultStackOverMemory(t *testing.T) {
	s, err := Load(Options{Root: t.TempDir(), Runtime: RuntimeMemory})
	require.NoError(t, err)
	require.Equal(t, []string{"db", "api", "workflow", "proxy"}, s.Graph.Names())
	require.Equal(t, []string{"db", "api", "workflow", "proxy"}, s.Monitor.Watch())

	term, err := s.Engine.Terminal()
	require.NoError(t, err)
	require.Equal(t, "proxy", term)

	_, ok := s.Runtime.(*memory.Runtime)
	require.True(t, ok)
}

func TestLoad_ProcessRuntimeFromFile(t *testing.T) {
	root := t.TempDir()
	body := `
project: demo
runtime: process
services:
  - name: worker
    command: [bash, -c, "sleep 30"]
    probe: {kind: process}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, config.DefaultConfigFilename), []byte(body), 0o644))

	s, err := Load(Options{Root: root})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, config.DefaultConfigFilename), s.ConfigPath)
	_, ok := s.Runtime.(*process.Runtime)
	require.True(t, ok)
}

func TestLoad_Overrides(t *testing.T) {
	s, err := Load(Options{Root: t.TempDir(), Runtime: config.RuntimeDocker, Project: "other"})
	require.NoError(t, err)
	d, ok := s.Runtime.(*docker.Runtime)
	require.True(t, ok)
	require.Equal(t, "other-db-1", d.ContainerName("db"))

	_, err = Load(Options{Root: t.TempDir(), Runtime: "podman"})
	var verr *config.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestBuild_CycleIsRejected(t *testing.T) {
	cfg := &config.File{Services: []config.Service{
		{Name: "a", DependsOn: []string{"b"}, Probe: config.Probe{Kind: config.ProbeProcess}},
		{Name: "b", DependsOn: []string{"a"}, Probe: config.Probe{Kind: config.ProbeProcess}},
	}}
	cfg.ApplyDefaults()
	_, err := Build(cfg, memory.New(), nil)
	var cerr *graph.CyclicDependencyError
	require.True(t, errors.As(err, &cerr))
}

func TestBuild_StartAllPublishesEvents(t *testing.T) {
	cfg := &config.File{Services: []config.Service{
		{Name: "db", Probe: config.Probe{Kind: config.ProbeProcess}},
		{Name: "api", DependsOn: []string{"db"}, Probe: config.Probe{Kind: config.ProbeProcess}},
	}}
	cfg.ApplyDefaults()
	rt := memory.New()
	rt.StartHealth("db", runtime.HealthHealthy)
	rt.StartHealth("api", runtime.HealthHealthy)
	rec := &events.Recorder{}

	s, err := Build(cfg, rt, rec)
	require.NoError(t, err)
	res, err := s.Engine.StartAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"db", "api"}, res.Started)
	require.Len(t, rec.OfType(events.ServiceHealthy), 2)

	snap, err := s.Reporter.Snapshot(context.Background())
	require.NoError(t, err)
	require.True(t, snap.AllHealthy())
}
