// Package proc reads per-process resource usage from /proc.
package proc

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// clockTicks is USER_HZ, 100 on every Linux we target.
const clockTicks = 100.0

type Stats struct {
	PID        int     `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	MemoryRSS  int64   `json:"memory_rss"`
	MemoryMB   int64   `json:"memory_mb"`
	State      string  `json:"state"`
	Threads    int     `json:"threads"`
}

type procStat struct {
	utime   uint64
	stime   uint64
	state   byte
	threads int
	rss     int64
}

type cpuSample struct {
	total uint64
	at    time.Time
}

// Sampler computes CPU percentages from the delta between two reads of the same PID.
// Safe for concurrent use.
type Sampler struct {
	mu   sync.Mutex
	prev map[int]cpuSample
}

func NewSampler() *Sampler {
	return &Sampler{prev: map[int]cpuSample{}}
}

func (s *Sampler) Sample(pid int) (*Stats, error) {
	if pid <= 0 {
		return nil, errors.New("invalid PID")
	}
	ps, err := readProcStat(pid)
	if err != nil {
		return nil, err
	}

	rss := ps.rss * int64(os.Getpagesize())
	st := &Stats{
		PID:       pid,
		MemoryRSS: rss,
		MemoryMB:  rss / (1024 * 1024),
		State:     string(ps.state),
		Threads:   ps.threads,
	}

	now := time.Now()
	total := ps.utime + ps.stime
	s.mu.Lock()
	if prev, ok := s.prev[pid]; ok {
		if elapsed := now.Sub(prev.at).Seconds(); elapsed > 0 && total >= prev.total {
			st.CPUPercent = float64(total-prev.total) / clockTicks / elapsed * 100.0
		}
	}
	s.prev[pid] = cpuSample{total: total, at: now}
	s.mu.Unlock()
	return st, nil
}

// Forget drops samples for PIDs not in active.
func (s *Sampler) Forget(active []int) {
	keep := make(map[int]bool, len(active))
	for _, pid := range active {
		keep[pid] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for pid := range s.prev {
		if !keep[pid] {
			delete(s.prev, pid)
		}
	}
}

func readProcStat(pid int) (*procStat, error) {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return nil, errors.Wrap(err, "read stat file")
	}
	return parseProcStat(string(data))
}

// parseProcStat reads `pid (comm) state ppid ...`. comm may contain spaces
// and parentheses, so fields are counted from the last ')'.
func parseProcStat(content string) (*procStat, error) {
	closeParen := strings.LastIndex(content, ")")
	if closeParen < 0 {
		return nil, errors.New("malformed stat file: no closing paren")
	}
	fields := strings.Fields(content[closeParen+1:])
	if len(fields) < 22 {
		return nil, errors.Errorf("malformed stat file: expected 22+ fields, got %d", len(fields))
	}

	ps := &procStat{state: fields[0][0]}
	var err error
	if ps.utime, err = strconv.ParseUint(fields[11], 10, 64); err != nil {
		return nil, errors.Wrap(err, "parse utime")
	}
	if ps.stime, err = strconv.ParseUint(fields[12], 10, 64); err != nil {
		return nil, errors.Wrap(err, "parse stime")
	}
	if ps.threads, err = strconv.Atoi(fields[17]); err != nil {
		return nil, errors.Wrap(err, "parse num_threads")
	}
	if ps.rss, err = strconv.ParseInt(fields[21], 10, 64); err != nil {
		return nil, errors.Wrap(err, "parse rss")
	}
	return ps, nil
}
