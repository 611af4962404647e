package graph

import (
	"fmt"
	"strings"
)

// UnknownServiceError is returned when a name is not part of the graph.
// Referrer is set when the name came from another service's dependency list.
type UnknownServiceError struct {
	Name     string
	Referrer string
}

func (e *UnknownServiceError) Error() string {
	if e.Referrer != "" {
		return fmt.Sprintf("service %q depends on unknown service %q", e.Referrer, e.Name)
	}
	return fmt.Sprintf("unknown service %q", e.Name)
}

// CyclicDependencyError carries the offending path, first and last element equal.
type CyclicDependencyError struct {
	Cycle []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency: %s", strings.Join(e.Cycle, " -> "))
}
