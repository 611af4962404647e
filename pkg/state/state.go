// Package state persists what the process runtime needs to find its units
// again across stackctl invocations: one JSON record per service.
package state

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

const (
	ServicesDirName = "services"
	LogsDirName     = "logs"
)

type ServiceRecord struct {
	Name      string            `json:"name"`
	PID       int               `json:"pid"`
	Command   []string          `json:"command"`
	Cwd       string            `json:"cwd"`
	Env       map[string]string `json:"env,omitempty"`
	Log       string            `json:"log"`
	ExitInfo  string            `json:"exit_info,omitempty"`
	StartedAt time.Time         `json:"started_at"`
	// Stopped is set when stackctl itself stopped the unit, so it reads as a clean exit.
	Stopped bool `json:"stopped,omitempty"`
}

func RecordPath(stateDir, service string) string {
	return filepath.Join(stateDir, ServicesDirName, service+".json")
}

func LogsDir(stateDir string) string {
	return filepath.Join(stateDir, LogsDirName)
}

func LogPath(stateDir, service string) string {
	return filepath.Join(LogsDir(stateDir), service+".log")
}

func ExitInfoPath(stateDir, service string) string {
	return filepath.Join(LogsDir(stateDir), service+".exit.json")
}

// LoadRecord returns os.ErrNotExist (wrapped) when the service was never started.
func LoadRecord(stateDir, service string) (*ServiceRecord, error) {
	b, err := os.ReadFile(RecordPath(stateDir, service))
	if err != nil {
		return nil, errors.Wrap(err, "read service record")
	}
	var rec ServiceRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, errors.Wrap(err, "parse service record")
	}
	return &rec, nil
}

func SaveRecord(stateDir string, rec *ServiceRecord) error {
	if rec == nil || rec.Name == "" {
		return errors.New("record needs a name")
	}
	path := RecordPath(stateDir, rec.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir services dir")
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal service record")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrap(err, "write service record")
	}
	return errors.Wrap(os.Rename(tmp, path), "commit service record")
}

func RemoveRecord(stateDir, service string) error {
	if err := os.Remove(RecordPath(stateDir, service)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove service record")
	}
	return nil
}

// ListRecords returns every stored record sorted by name.
func ListRecords(stateDir string) ([]ServiceRecord, error) {
	entries, err := os.ReadDir(filepath.Join(stateDir, ServicesDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read services dir")
	}
	var out []ServiceRecord
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rec, err := LoadRecord(stateDir, strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func ProcessAlive(pid int) bool {
	if pid <= 0 || isZombie(pid) {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || stderrors.Is(err, syscall.EPERM)
}

func isZombie(pid int) bool {
	b, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	// pid (comm) state ...; comm may contain ')'.
	i := bytes.LastIndexByte(b, ')')
	if i < 0 {
		return false
	}
	fields := bytes.Fields(b[i+1:])
	return len(fields) > 0 && len(fields[0]) > 0 && fields[0][0] == 'Z'
}
