package graph

import (
	"time"

	"github.com/pkg/errors"
)

type Service struct {
	Name           string
	DependsOn      []string
	StartupTimeout time.Duration
}

// Graph is immutable after New and safe for concurrent reads.
type Graph struct {
	services map[string]Service
	order    []string
}

func New(services []Service) (*Graph, error) {
	g := &Graph{services: make(map[string]Service, len(services))}
	for _, s := range services {
		if s.Name == "" {
			return nil, errors.Errorf("service with empty name")
		}
		if _, ok := g.services[s.Name]; ok {
			return nil, errors.Errorf("duplicate service %q", s.Name)
		}
		s.DependsOn = append([]string(nil), s.DependsOn...)
		g.services[s.Name] = s
		g.order = append(g.order, s.Name)
	}
	for _, name := range g.order {
		for _, dep := range g.services[name].DependsOn {
			if _, ok := g.services[dep]; !ok {
				return nil, &UnknownServiceError{Name: dep, Referrer: name}
			}
		}
	}
	return g, nil
}

func (g *Graph) Service(name string) (Service, bool) {
	s, ok := g.services[name]
	return s, ok
}

func (g *Graph) Has(name string) bool {
	_, ok := g.services[name]
	return ok
}

// Names lists services in declaration order.
func (g *Graph) Names() []string {
	return append([]string(nil), g.order...)
}

func (g *Graph) Dependencies(name string) []string {
	return append([]string(nil), g.services[name].DependsOn...)
}

// Dependents lists the services that declare name as a direct dependency.
func (g *Graph) Dependents(name string) []string {
	var out []string
	for _, n := range g.order {
		for _, d := range g.services[n].DependsOn {
			if d == name {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// Resolve returns target and all of its transitive dependencies, each exactly
// once, dependencies before dependents. Declaration order breaks ties.
func (g *Graph) Resolve(target string) ([]string, error) {
	if !g.Has(target) {
		return nil, &UnknownServiceError{Name: target}
	}
	w := newWalker(g)
	if err := w.visit(target); err != nil {
		return nil, err
	}
	return w.out, nil
}

// Order is the global startup order across every service in the graph.
func (g *Graph) Order() ([]string, error) {
	w := newWalker(g)
	for _, name := range g.order {
		if err := w.visit(name); err != nil {
			return nil, err
		}
	}
	return w.out, nil
}

// Validate reports the first cycle found, if any.
func (g *Graph) Validate() error {
	_, err := g.Order()
	return err
}

// Closure returns the transitive dependencies of name, without name itself.
func (g *Graph) Closure(name string) ([]string, error) {
	order, err := g.Resolve(name)
	if err != nil {
		return nil, err
	}
	return order[:len(order)-1], nil
}

// Terminal picks the service whose dependency closure covers the most of the
// graph. Ties go to the service declared last.
func (g *Graph) Terminal() (string, error) {
	best, bestSize := "", -1
	for _, name := range g.order {
		c, err := g.Closure(name)
		if err != nil {
			return "", err
		}
		if len(c) >= bestSize {
			best, bestSize = name, len(c)
		}
	}
	if best == "" {
		return "", errors.Errorf("empty graph")
	}
	return best, nil
}

type walker struct {
	g        *Graph
	visiting map[string]bool
	visited  map[string]bool
	path     []string
	out      []string
}

func newWalker(g *Graph) *walker {
	return &walker{g: g, visiting: map[string]bool{}, visited: map[string]bool{}}
}

func (w *walker) visit(name string) error {
	if w.visited[name] {
		return nil
	}
	if w.visiting[name] {
		return &CyclicDependencyError{Cycle: w.cycleFrom(name)}
	}
	w.visiting[name] = true
	w.path = append(w.path, name)
	for _, dep := range w.g.services[name].DependsOn {
		if err := w.visit(dep); err != nil {
			return err
		}
	}
	w.path = w.path[:len(w.path)-1]
	delete(w.visiting, name)
	w.visited[name] = true
	w.out = append(w.out, name)
	return nil
}

func (w *walker) cycleFrom(name string) []string {
	for i, n := range w.path {
		if n == name {
			cycle := append([]string(nil), w.path[i:]...)
			return append(cycle, name)
		}
	}
	return []string{name, name}
}
