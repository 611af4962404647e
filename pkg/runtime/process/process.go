// Package process runs services as local process groups and tracks them
// through per-service records under the state directory.
package process

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/go-go-golems/stackctl/pkg/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Spec struct {
	Command []string
	Cwd     string
	Env     map[string]string
}

type Options struct {
	StateDir string
	// Root resolves relative Cwd values. Defaults to the current directory.
	Root     string
	Services map[string]Spec
	// WrapperExe, when set, is re-executed as `__wrap-service` so exit codes
	// survive stackctl itself exiting.
	WrapperExe   string
	StopTimeout  time.Duration
	ReadyTimeout time.Duration
}

type Runtime struct {
	opts Options
	mu   sync.Mutex
}

var _ runtime.Runtime = (*Runtime)(nil)
var _ runtime.Remover = (*Runtime)(nil)

func New(opts Options) *Runtime {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 3 * time.Second
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 2 * time.Second
	}
	if opts.Root == "" {
		opts.Root, _ = os.Getwd()
	}
	return &Runtime{opts: opts}
}

func (r *Runtime) Start(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	spec, ok := r.opts.Services[name]
	if !ok || len(spec.Command) == 0 {
		return runtime.Wrap(name, "start", errors.New("no command configured"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, err := state.LoadRecord(r.opts.StateDir, name); err == nil && !rec.Stopped && state.ProcessAlive(rec.PID) {
		return nil
	}

	if err := os.MkdirAll(state.LogsDir(r.opts.StateDir), 0o755); err != nil {
		return runtime.Wrap(name, "start", errors.Wrap(err, "mkdir logs dir"))
	}
	logPath := state.LogPath(r.opts.StateDir, name)
	exitPath := state.ExitInfoPath(r.opts.StateDir, name)
	_ = os.Remove(exitPath)

	cwd := r.opts.Root
	if spec.Cwd != "" {
		if filepath.IsAbs(spec.Cwd) {
			cwd = spec.Cwd
		} else {
			cwd = filepath.Join(r.opts.Root, spec.Cwd)
		}
	}

	var pid int
	var err error
	if r.opts.WrapperExe != "" {
		pid, err = r.startWrapped(name, spec, cwd, logPath, exitPath)
	} else {
		pid, err = r.startDirect(name, spec, cwd, logPath, exitPath)
	}
	if err != nil {
		return runtime.Wrap(name, "start", err)
	}
	log.Info().Str("service", name).Int("pid", pid).Msg("service started")

	rec := &state.ServiceRecord{
		Name:      name,
		PID:       pid,
		Command:   spec.Command,
		Cwd:       cwd,
		Env:       state.SanitizeEnv(spec.Env),
		Log:       logPath,
		ExitInfo:  exitPath,
		StartedAt: time.Now(),
	}
	return runtime.Wrap(name, "start", state.SaveRecord(r.opts.StateDir, rec))
}

func (r *Runtime) startDirect(name string, spec Spec, cwd, logPath, exitPath string) (int, error) {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, errors.Wrap(err, "open log")
	}

	// Not CommandContext: the unit outlives the request that started it.
	// #nosec G204 -- command comes from the stack config.
	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = cwd
	cmd.Env = MergeEnv(os.Environ(), spec.Env)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return 0, errors.Wrap(err, "start process")
	}

	pid := cmd.Process.Pid
	go func() {
		waitErr := cmd.Wait()
		_ = logFile.Close()
		info := state.ExitInfoFromWait(name, pid, waitErr)
		info.LogTail, _ = state.TailLines(logPath, 25, 0)
		_ = state.WriteExitInfo(exitPath, info)
	}()
	return pid, nil
}

func (r *Runtime) startWrapped(name string, spec Spec, cwd, logPath, exitPath string) (int, error) {
	readyPath := filepath.Join(state.LogsDir(r.opts.StateDir), name+".ready")
	_ = os.Remove(readyPath)

	args := []string{
		"__wrap-service",
		"--service", name,
		"--cwd", cwd,
		"--log", logPath,
		"--exit-info", exitPath,
		"--ready-file", readyPath,
	}
	for k, v := range spec.Env {
		args = append(args, "--env", k+"="+v)
	}
	args = append(args, "--")
	args = append(args, spec.Command...)

	// #nosec G204 -- wrapper is our own executable.
	cmd := exec.Command(r.opts.WrapperExe, args...)
	cmd.Dir = cwd
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return 0, errors.Wrap(err, "start wrapper")
	}
	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()

	deadline := time.Now().Add(r.opts.ReadyTimeout)
	for {
		if _, err := os.Stat(readyPath); err == nil {
			return pid, nil
		}
		if _, err := os.Stat(exitPath); err == nil {
			return pid, nil
		}
		if time.Now().After(deadline) {
			_ = terminateGroup(context.Background(), pid, time.Second)
			return 0, errors.New("wrapper did not report child start")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (r *Runtime) Stop(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := state.LoadRecord(r.opts.StateDir, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return runtime.Wrap(name, "stop", err)
	}
	if state.ProcessAlive(rec.PID) {
		if err := terminateGroup(ctx, rec.PID, r.opts.StopTimeout); err != nil {
			return runtime.Wrap(name, "stop", err)
		}
	}
	rec.Stopped = true
	log.Info().Str("service", name).Int("pid", rec.PID).Msg("service stopped")
	return runtime.Wrap(name, "stop", state.SaveRecord(r.opts.StateDir, rec))
}

func (r *Runtime) Remove(ctx context.Context, name string) error {
	if err := r.Stop(ctx, name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = os.Remove(state.ExitInfoPath(r.opts.StateDir, name))
	return runtime.Wrap(name, "remove", state.RemoveRecord(r.opts.StateDir, name))
}

func (r *Runtime) IsRunning(ctx context.Context, name string) bool {
	st, err := r.Inspect(ctx, name)
	return err == nil && st.Running
}

func (r *Runtime) Inspect(ctx context.Context, name string) (runtime.State, error) {
	if err := ctx.Err(); err != nil {
		return runtime.State{}, err
	}
	rec, err := state.LoadRecord(r.opts.StateDir, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return runtime.State{Found: false}, nil
		}
		return runtime.State{}, runtime.Wrap(name, "inspect", err)
	}

	st := runtime.State{Found: true, StartedAt: rec.StartedAt}
	if !rec.Stopped && state.ProcessAlive(rec.PID) {
		st.Running = true
		st.Status = runtime.StatusRunning
		st.PID = rec.PID
		return st, nil
	}
	if rec.Stopped {
		st.Status = runtime.StatusExited
		st.ExitCode = runtime.IntPtr(0)
		return st, nil
	}

	info, err := state.ReadExitInfo(rec.ExitInfo)
	if err != nil || info.ExitCode == nil {
		// Died without anyone recording why.
		st.Status = runtime.StatusDead
		return st, nil
	}
	st.Status = runtime.StatusExited
	st.ExitCode = info.ExitCode
	return st, nil
}

func (r *Runtime) RecentLogs(ctx context.Context, name string, lines int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := state.TailLines(state.LogPath(r.opts.StateDir, name), lines, 2<<20)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, runtime.Wrap(name, "logs", err)
	}
	return out, nil
}

// MergeEnv appends extra to base as KEY=VAL pairs; later entries win in exec.
func MergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := append([]string{}, base...)
	for k, v := range extra {
		out = append(out, k+"="+v)
	}
	return out
}

// terminateGroup sends SIGTERM to the process group, then SIGKILL after timeout.
func terminateGroup(ctx context.Context, pid int, timeout time.Duration) error {
	if pid <= 0 {
		return nil
	}
	pgid, gerr := syscall.Getpgid(pid)
	signal := func(sig syscall.Signal) {
		if gerr == nil {
			_ = syscall.Kill(-pgid, sig)
		} else {
			_ = syscall.Kill(pid, sig)
		}
	}
	signal(syscall.SIGTERM)

	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()

	deadline := time.Now().Add(timeout)
	for state.ProcessAlive(pid) {
		if time.Now().After(deadline) {
			signal(syscall.SIGKILL)
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	killDeadline := time.Now().Add(2 * time.Second)
	for state.ProcessAlive(pid) && time.Now().Before(killDeadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if state.ProcessAlive(pid) {
		return errors.New("failed to stop service")
	}
	return nil
}
