package engine

import "strings"

// session is the ordered list of services one orchestration call started.
// Only these are ever rolled back.
type session struct {
	id      string
	started []string
}

func (s *session) record(name string) {
	s.started = append(s.started, name)
}

func (s *session) reversed() []string {
	out := make([]string, 0, len(s.started))
	for i := len(s.started) - 1; i >= 0; i-- {
		out = append(out, s.started[i])
	}
	return out
}

func joinNames(names []string) string {
	return strings.Join(names, ",")
}
