package state

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// ExitInfo is written by whoever reaped the service process.
type ExitInfo struct {
	Service  string    `json:"service"`
	PID      int       `json:"pid"`
	ExitedAt time.Time `json:"exited_at"`
	ExitCode *int      `json:"exit_code,omitempty"`
	Signal   string    `json:"signal,omitempty"`
	Error    string    `json:"error,omitempty"`
	LogTail  []string  `json:"log_tail,omitempty"`
}

func WriteExitInfo(path string, info ExitInfo) error {
	if path == "" {
		return errors.New("missing path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir exit info dir")
	}
	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal exit info")
	}
	return errors.Wrap(os.WriteFile(path, b, 0o644), "write exit info")
}

func ReadExitInfo(path string) (*ExitInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read exit info")
	}
	var info ExitInfo
	if err := json.Unmarshal(b, &info); err != nil {
		return nil, errors.Wrap(err, "unmarshal exit info")
	}
	return &info, nil
}

// ExitInfoFromWait decodes the result of cmd.Wait into an ExitInfo.
func ExitInfoFromWait(service string, pid int, waitErr error) ExitInfo {
	info := ExitInfo{Service: service, PID: pid, ExitedAt: time.Now()}
	if waitErr == nil {
		code := 0
		info.ExitCode = &code
		return info
	}
	info.Error = waitErr.Error()
	var ee *exec.ExitError
	if stderrors.As(waitErr, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				info.Signal = ws.Signal().String()
			}
			if ws.Exited() {
				code := ws.ExitStatus()
				info.ExitCode = &code
			}
		}
	}
	return info
}
