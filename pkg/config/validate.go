package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ValidationError collects every problem found in a stack file.
type ValidationError struct {
	Path     string
	Problems []string
}

func (e *ValidationError) Error() string {
	where := "stack config"
	if e.Path != "" {
		where = e.Path
	}
	return fmt.Sprintf("invalid %s: %s", where, strings.Join(e.Problems, "; "))
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (f *File) Validate() error {
	var problems []string

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return errors.Wrap(err, "validate config")
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
		}
	}

	names := map[string]bool{}
	for _, s := range f.Services {
		if s.Name == "" {
			continue
		}
		if names[s.Name] {
			problems = append(problems, fmt.Sprintf("duplicate service %q", s.Name))
		}
		names[s.Name] = true
	}

	for _, s := range f.Services {
		for _, d := range s.DependsOn {
			if !names[d] {
				problems = append(problems, fmt.Sprintf("service %q depends on unknown service %q", s.Name, d))
			}
		}
		problems = append(problems, probeProblems(s)...)
	}

	for _, w := range f.Recovery.Watch {
		if !names[w] {
			problems = append(problems, fmt.Sprintf("recovery watch-list names unknown service %q", w))
		}
	}
	if f.Terminal != "" {
		switch {
		case !names[f.Terminal]:
			problems = append(problems, fmt.Sprintf("terminal service %q is not defined", f.Terminal))
		case !f.isEnabled(f.Terminal):
			problems = append(problems, fmt.Sprintf("terminal service %q is disabled", f.Terminal))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (f *File) isEnabled(name string) bool {
	for _, s := range f.Services {
		if s.Name == name {
			return s.IsEnabled()
		}
	}
	return false
}

func probeProblems(s Service) []string {
	p := s.Probe
	switch p.Kind {
	case ProbePort:
		if p.Port == 0 {
			return []string{fmt.Sprintf("service %q: port probe needs a port", s.Name)}
		}
	case ProbeHTTP:
		if p.URL == "" && p.Port == 0 {
			return []string{fmt.Sprintf("service %q: http probe needs a url or a port", s.Name)}
		}
	case ProbeCommand:
		if len(p.Command) == 0 {
			return []string{fmt.Sprintf("service %q: command probe needs a command", s.Name)}
		}
	}
	return nil
}
