// Package stack assembles a runnable stack from a stack file: graph, runtime,
// health checker, engine, recovery monitor and diagnostics reporter.
package stack

import (
	"path/filepath"

	"github.com/go-go-golems/stackctl/pkg/config"
	"github.com/go-go-golems/stackctl/pkg/diagnostics"
	"github.com/go-go-golems/stackctl/pkg/engine"
	"github.com/go-go-golems/stackctl/pkg/events"
	"github.com/go-go-golems/stackctl/pkg/graph"
	"github.com/go-go-golems/stackctl/pkg/health"
	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/go-go-golems/stackctl/pkg/runtime/docker"
	"github.com/go-go-golems/stackctl/pkg/runtime/memory"
	"github.com/go-go-golems/stackctl/pkg/runtime/process"
	"github.com/go-go-golems/stackctl/pkg/supervise"
	"github.com/pkg/errors"
)

// RuntimeMemory selects the in-memory runtime; only reachable through the
// --runtime flag, never from a stack file.
const RuntimeMemory = "memory"

type Options struct {
	Root       string
	ConfigPath string
	// Runtime and Project override the stack file when set.
	Runtime    string
	Project    string
	StateDir   string
	WrapperExe string
	Publisher  events.Publisher
}

type Stack struct {
	Root       string
	ConfigPath string
	Config     *config.File

	Graph    *graph.Graph
	Runtime  runtime.Runtime
	Checker  *health.Checker
	Engine   *engine.Engine
	Monitor  *supervise.Monitor
	Reporter *diagnostics.Reporter
}

func Load(opts Options) (*Stack, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve root")
	}
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = config.DefaultPath(root)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(root, cfgPath)
	}

	cfg, err := config.LoadOptional(cfgPath)
	if err != nil {
		return nil, err
	}
	if opts.Project != "" {
		cfg.Project = opts.Project
	}
	if opts.StateDir != "" {
		cfg.StateDir = opts.StateDir
	}
	kind := cfg.Runtime
	if opts.Runtime != "" {
		kind = opts.Runtime
	}

	rt, err := NewRuntime(kind, root, cfg, opts.WrapperExe)
	if err != nil {
		return nil, err
	}
	s, err := Build(cfg, rt, opts.Publisher)
	if err != nil {
		return nil, err
	}
	s.Root = root
	s.ConfigPath = cfgPath
	return s, nil
}

// NewRuntime builds the runtime kind names for cfg's enabled services.
func NewRuntime(kind, root string, cfg *config.File, wrapperExe string) (runtime.Runtime, error) {
	switch kind {
	case config.RuntimeDocker, "":
		containers := map[string]string{}
		for _, s := range cfg.Services {
			if s.Container != "" {
				containers[s.Name] = s.Container
			}
		}
		compose := cfg.ComposeFile
		if compose != "" && !filepath.IsAbs(compose) {
			compose = filepath.Join(root, compose)
		}
		return docker.New(docker.Options{Project: cfg.Project, ComposeFile: compose, Containers: containers}), nil
	case config.RuntimeProcess:
		stateDir := cfg.StateDir
		if !filepath.IsAbs(stateDir) {
			stateDir = filepath.Join(root, stateDir)
		}
		specs := map[string]process.Spec{}
		for _, s := range cfg.EnabledServices() {
			specs[s.Name] = process.Spec{Command: s.Command, Cwd: s.Cwd, Env: s.Env}
		}
		return process.New(process.Options{StateDir: stateDir, Root: root, Services: specs, WrapperExe: wrapperExe}), nil
	case RuntimeMemory:
		return memory.New(), nil
	default:
		return nil, &config.ValidationError{Problems: []string{"unknown runtime " + kind}}
	}
}

// Build wires the components for an already-loaded stack file.
func Build(cfg *config.File, rt runtime.Runtime, pub events.Publisher) (*Stack, error) {
	if pub == nil {
		pub = events.Nop{}
	}
	enabled := cfg.EnabledServices()
	services := make([]graph.Service, 0, len(enabled))
	names := make([]string, 0, len(enabled))
	for _, s := range enabled {
		services = append(services, graph.Service{
			Name:           s.Name,
			DependsOn:      s.DependsOn,
			StartupTimeout: s.StartupTimeout(cfg.Defaults),
		})
		names = append(names, s.Name)
	}
	g, err := graph.New(services)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	checker := health.NewChecker(rt, health.Options{})
	for _, s := range enabled {
		p, err := health.FromSpec(s.Probe)
		if err != nil {
			return nil, errors.Wrapf(err, "service %s", s.Name)
		}
		checker.Register(s.Name, p)
	}

	eng := engine.New(g, rt, checker, engine.Options{
		PollInterval:   cfg.Defaults.PollInterval,
		DefaultTimeout: cfg.Defaults.StartupTimeout,
		Terminal:       cfg.Terminal,
		Publisher:      pub,
	})
	mon := supervise.New(rt, checker, eng, supervise.Options{
		Watch:        cfg.WatchList(),
		MaxAttempts:  cfg.Recovery.MaxAttempts,
		Backoff:      cfg.Recovery.Backoff,
		PollInterval: cfg.Defaults.PollInterval,
		Publisher:    pub,
	})

	return &Stack{
		Config:   cfg,
		Graph:    g,
		Runtime:  rt,
		Checker:  checker,
		Engine:   eng,
		Monitor:  mon,
		Reporter: diagnostics.New(rt, checker, names, diagnostics.Options{}),
	}, nil
}
