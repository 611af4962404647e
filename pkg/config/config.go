package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFilename = "stackctl.yaml"

const (
	RuntimeDocker  = "docker"
	RuntimeProcess = "process"
)

const (
	ProbeProcess = "process"
	ProbePort    = "port"
	ProbeHTTP    = "http"
	ProbeCommand = "command"
)

type File struct {
	Project     string    `yaml:"project,omitempty"`
	Runtime     string    `yaml:"runtime,omitempty" validate:"omitempty,oneof=docker process"`
	ComposeFile string    `yaml:"compose_file,omitempty"`
	StateDir    string    `yaml:"state_dir,omitempty"`
	Terminal    string    `yaml:"terminal,omitempty"`
	Defaults    Defaults  `yaml:"defaults,omitempty"`
	Services    []Service `yaml:"services" validate:"required,min=1,dive"`
	Recovery    Recovery  `yaml:"recovery,omitempty"`
}

type Defaults struct {
	StartupTimeout time.Duration `yaml:"startup_timeout,omitempty" validate:"gte=0"`
	PollInterval   time.Duration `yaml:"poll_interval,omitempty" validate:"gte=0"`
}

type Service struct {
	Name                  string            `yaml:"name" validate:"required,excludes=/"`
	Enabled               *bool             `yaml:"enabled,omitempty"`
	DependsOn             []string          `yaml:"depends_on,omitempty"`
	StartupTimeoutSeconds int               `yaml:"startup_timeout_seconds,omitempty" validate:"gte=0"`
	Container             string            `yaml:"container,omitempty"`
	Command               []string          `yaml:"command,omitempty"`
	Cwd                   string            `yaml:"cwd,omitempty"`
	Env                   map[string]string `yaml:"env,omitempty"`
	Probe                 Probe             `yaml:"probe"`
}

// Probe selects exactly one readiness check for a service.
type Probe struct {
	Kind    string   `yaml:"kind" validate:"required,oneof=process port http command"`
	Host    string   `yaml:"host,omitempty"`
	Port    int      `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Path    string   `yaml:"path,omitempty"`
	URL     string   `yaml:"url,omitempty" validate:"omitempty,url"`
	Command []string `yaml:"command,omitempty"`
}

type Recovery struct {
	Watch       []string      `yaml:"watch,omitempty"`
	MaxAttempts int           `yaml:"max_attempts,omitempty" validate:"gte=0"`
	Backoff     time.Duration `yaml:"backoff,omitempty" validate:"gte=0"`
	Interval    time.Duration `yaml:"interval,omitempty" validate:"gte=0"`
}

func (s Service) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// StartupTimeout falls back to the stack default when the service does not set one.
func (s Service) StartupTimeout(d Defaults) time.Duration {
	if s.StartupTimeoutSeconds > 0 {
		return time.Duration(s.StartupTimeoutSeconds) * time.Second
	}
	return d.StartupTimeout
}

func DefaultPath(root string) string {
	return filepath.Join(root, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, &ValidationError{Path: path, Problems: []string{errors.Wrap(err, "parse config yaml").Error()}}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
		}
		return nil, err
	}
	return &cfg, nil
}

// LoadOptional returns the built-in stack when path does not exist.
func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}

func (f *File) ApplyDefaults() {
	if f.Project == "" {
		f.Project = "stack"
	}
	if f.Runtime == "" {
		f.Runtime = RuntimeDocker
	}
	if f.ComposeFile == "" {
		f.ComposeFile = "docker-compose.yml"
	}
	if f.StateDir == "" {
		f.StateDir = ".stackctl"
	}
	if f.Defaults.StartupTimeout <= 0 {
		f.Defaults.StartupTimeout = 60 * time.Second
	}
	if f.Defaults.PollInterval <= 0 {
		f.Defaults.PollInterval = 2 * time.Second
	}
	if f.Recovery.MaxAttempts <= 0 {
		f.Recovery.MaxAttempts = 3
	}
	if f.Recovery.Backoff <= 0 {
		f.Recovery.Backoff = 10 * time.Second
	}
	if f.Recovery.Interval <= 0 {
		f.Recovery.Interval = 30 * time.Second
	}
}

// EnabledServices drops disabled services and every dependency edge that points at one.
func (f *File) EnabledServices() []Service {
	disabled := map[string]bool{}
	for _, s := range f.Services {
		if !s.IsEnabled() {
			disabled[s.Name] = true
		}
	}

	out := make([]Service, 0, len(f.Services))
	for _, s := range f.Services {
		if disabled[s.Name] {
			continue
		}
		deps := make([]string, 0, len(s.DependsOn))
		for _, d := range s.DependsOn {
			if !disabled[d] {
				deps = append(deps, d)
			}
		}
		s.DependsOn = deps
		out = append(out, s)
	}
	return out
}

// WatchList is the enabled subset of the recovery watch-list, in declared order.
func (f *File) WatchList() []string {
	enabled := map[string]bool{}
	for _, s := range f.EnabledServices() {
		enabled[s.Name] = true
	}
	out := make([]string, 0, len(f.Recovery.Watch))
	for _, name := range f.Recovery.Watch {
		if enabled[name] {
			out = append(out, name)
		}
	}
	return out
}
