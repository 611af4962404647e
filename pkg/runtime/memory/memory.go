// Package memory is a scripted in-process runtime used by tests and by
// `stackctl --runtime memory` dry runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/pkg/errors"
)

type Call struct {
	Op      string
	Service string
}

type unit struct {
	state       runtime.State
	startErr    error
	stopErr     error
	inspectErr  error
	startHealth runtime.Health
	logs        []string
	execCode    int
	onStart     func(*runtime.State)
}

// Runtime records every call and applies scripted outcomes.
type Runtime struct {
	mu    sync.Mutex
	units map[string]*unit
	calls []Call
	pid   int
}

var _ runtime.Runtime = (*Runtime)(nil)
var _ runtime.Remover = (*Runtime)(nil)
var _ runtime.Execer = (*Runtime)(nil)

func New() *Runtime {
	return &Runtime{units: map[string]*unit{}, pid: 1000}
}

func (r *Runtime) get(name string) *unit {
	u, ok := r.units[name]
	if !ok {
		u = &unit{}
		r.units[name] = u
	}
	return u
}

func (r *Runtime) record(op, name string) {
	r.calls = append(r.calls, Call{Op: op, Service: name})
}

// Set replaces the observed state of a unit.
func (r *Runtime) Set(name string, st runtime.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(name).state = st
}

// SetRunning marks a unit as running with the given runtime health.
func (r *Runtime) SetRunning(name string, h runtime.Health) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pid++
	r.get(name).state = runtime.State{Found: true, Running: true, Status: runtime.StatusRunning, Health: h, PID: r.pid, StartedAt: time.Now()}
}

// SetExited marks a unit as exited with code.
func (r *Runtime) SetExited(name string, code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(name).state = runtime.State{Found: true, Status: runtime.StatusExited, ExitCode: runtime.IntPtr(code)}
}

func (r *Runtime) FailStart(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(name).startErr = err
}

func (r *Runtime) FailStop(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(name).stopErr = err
}

func (r *Runtime) FailInspect(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(name).inspectErr = err
}

// StartHealth is the runtime health a unit reports right after Start.
func (r *Runtime) StartHealth(name string, h runtime.Health) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(name).startHealth = h
}

// OnStart lets a test mutate the state a unit lands in after Start.
func (r *Runtime) OnStart(name string, fn func(*runtime.State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(name).onStart = fn
}

func (r *Runtime) SetLogs(name string, lines []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(name).logs = append([]string(nil), lines...)
}

func (r *Runtime) SetExecCode(name string, code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(name).execCode = code
}

func (r *Runtime) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsFor returns the services passed to op, in call order.
func (r *Runtime) CallsFor(op string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		if c.Op == op {
			out = append(out, c.Service)
		}
	}
	return out
}

func (r *Runtime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Runtime) Start(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("start", name)
	u := r.get(name)
	if u.startErr != nil {
		return runtime.Wrap(name, "start", u.startErr)
	}
	r.pid++
	u.state = runtime.State{
		Found:     true,
		Running:   true,
		Status:    runtime.StatusRunning,
		Health:    u.startHealth,
		PID:       r.pid,
		StartedAt: time.Now(),
	}
	if u.onStart != nil {
		u.onStart(&u.state)
	}
	return nil
}

func (r *Runtime) Stop(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("stop", name)
	u := r.get(name)
	if u.stopErr != nil {
		return runtime.Wrap(name, "stop", u.stopErr)
	}
	if !u.state.Found {
		return nil
	}
	u.state.Running = false
	u.state.Status = runtime.StatusExited
	u.state.ExitCode = runtime.IntPtr(0)
	u.state.Health = runtime.HealthNone
	u.state.PID = 0
	return nil
}

func (r *Runtime) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("remove", name)
	r.get(name).state = runtime.State{}
	return nil
}

func (r *Runtime) IsRunning(ctx context.Context, name string) bool {
	st, err := r.Inspect(ctx, name)
	return err == nil && st.Running
}

func (r *Runtime) Inspect(ctx context.Context, name string) (runtime.State, error) {
	if err := ctx.Err(); err != nil {
		return runtime.State{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.get(name)
	if u.inspectErr != nil {
		return runtime.State{}, runtime.Wrap(name, "inspect", u.inspectErr)
	}
	return u.state, nil
}

func (r *Runtime) RecentLogs(ctx context.Context, name string, lines int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	logs := r.get(name).logs
	if lines > 0 && len(logs) > lines {
		logs = logs[len(logs)-lines:]
	}
	return append([]string(nil), logs...), nil
}

func (r *Runtime) Exec(ctx context.Context, name string, cmd []string) (int, string, error) {
	if err := ctx.Err(); err != nil {
		return -1, "", err
	}
	if len(cmd) == 0 {
		return -1, "", errors.New("empty command")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record("exec", name)
	u := r.get(name)
	if !u.state.Running {
		return -1, "", runtime.Wrap(name, "exec", errors.New("not running"))
	}
	return u.execCode, "", nil
}
