// Package docker drives services through `docker compose` and reads their
// state back through `docker inspect` JSON instead of scraping table output.
package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Binary      string
	Project     string
	ComposeFile string
	// Containers overrides the container name for a service.
	Containers map[string]string
	Runner     Runner
}

type Runtime struct {
	opts Options
}

var _ runtime.Runtime = (*Runtime)(nil)
var _ runtime.Remover = (*Runtime)(nil)
var _ runtime.Execer = (*Runtime)(nil)

func New(opts Options) *Runtime {
	if opts.Binary == "" {
		opts.Binary = "docker"
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	return &Runtime{opts: opts}
}

// ContainerName is the name compose gives the first replica unless overridden.
func (r *Runtime) ContainerName(service string) string {
	if c := r.opts.Containers[service]; c != "" {
		return c
	}
	return fmt.Sprintf("%s-%s-1", r.opts.Project, service)
}

func (r *Runtime) compose(args ...string) []string {
	out := []string{"compose"}
	if r.opts.Project != "" {
		out = append(out, "-p", r.opts.Project)
	}
	if r.opts.ComposeFile != "" {
		out = append(out, "-f", r.opts.ComposeFile)
	}
	return append(out, args...)
}

func (r *Runtime) run(ctx context.Context, service, op string, args []string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	log.Debug().Str("service", service).Str("op", op).Strs("args", args).Msg("docker call")
	res, err := r.opts.Runner.Run(ctx, r.opts.Binary, args...)
	if err != nil {
		msg := strings.TrimSpace(res.Stderr)
		if msg != "" {
			err = errors.Wrap(err, msg)
		}
		return res, runtime.Wrap(service, op, err)
	}
	return res, nil
}

func (r *Runtime) Start(ctx context.Context, service string) error {
	_, err := r.run(ctx, service, "start", r.compose("up", "-d", "--no-deps", service))
	return err
}

func (r *Runtime) Stop(ctx context.Context, service string) error {
	_, err := r.run(ctx, service, "stop", r.compose("stop", service))
	return err
}

func (r *Runtime) Remove(ctx context.Context, service string) error {
	_, err := r.run(ctx, service, "remove", r.compose("rm", "-f", "-s", service))
	return err
}

func (r *Runtime) IsRunning(ctx context.Context, service string) bool {
	st, err := r.Inspect(ctx, service)
	return err == nil && st.Running
}

type inspectState struct {
	Status    string `json:"Status"`
	Running   bool   `json:"Running"`
	Pid       int    `json:"Pid"`
	ExitCode  int    `json:"ExitCode"`
	StartedAt string `json:"StartedAt"`
	Health    *struct {
		Status string `json:"Status"`
	} `json:"Health,omitempty"`
}

func (r *Runtime) Inspect(ctx context.Context, service string) (runtime.State, error) {
	args := []string{"inspect", "--type", "container", "--format", "{{json .State}}", r.ContainerName(service)}
	res, err := r.run(ctx, service, "inspect", args)
	if err != nil {
		if isNotFound(res.Stderr) {
			return runtime.State{Found: false}, nil
		}
		return runtime.State{}, err
	}
	return parseState(service, res.Stdout)
}

func parseState(service, out string) (runtime.State, error) {
	var is inspectState
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &is); err != nil {
		return runtime.State{}, runtime.Wrap(service, "inspect", errors.Wrap(err, "parse inspect json"))
	}
	st := runtime.State{
		Found:   true,
		Status:  runtime.Status(is.Status),
		Running: is.Running,
		PID:     is.Pid,
	}
	if !is.Running {
		st.ExitCode = runtime.IntPtr(is.ExitCode)
	}
	if is.Health != nil {
		switch is.Health.Status {
		case "healthy":
			st.Health = runtime.HealthHealthy
		case "unhealthy":
			st.Health = runtime.HealthUnhealthy
		case "starting":
			st.Health = runtime.HealthStarting
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, is.StartedAt); err == nil && !t.IsZero() && t.Year() > 1 {
		st.StartedAt = t
	}
	return st, nil
}

func isNotFound(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "no such object") || strings.Contains(s, "no such container")
}

func (r *Runtime) RecentLogs(ctx context.Context, service string, lines int) ([]string, error) {
	if lines <= 0 {
		lines = 50
	}
	res, err := r.run(ctx, service, "logs", []string{"logs", "--tail", fmt.Sprint(lines), r.ContainerName(service)})
	if err != nil {
		return nil, err
	}
	return splitLines(res.Stdout + res.Stderr), nil
}

func (r *Runtime) Exec(ctx context.Context, service string, cmd []string) (int, string, error) {
	if len(cmd) == 0 {
		return -1, "", errors.New("empty command")
	}
	args := append([]string{"exec", r.ContainerName(service)}, cmd...)
	res, err := r.run(ctx, service, "exec", args)
	if err != nil && res.ExitCode <= 0 {
		return -1, res.Stdout + res.Stderr, err
	}
	return res.ExitCode, res.Stdout + res.Stderr, nil
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
