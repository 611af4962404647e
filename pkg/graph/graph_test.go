package graph

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func exampleGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := New([]Service{
		{Name: "db"},
		{Name: "auth", DependsOn: []string{"db"}},
		{Name: "api", DependsOn: []string{"db", "auth"}},
		{Name: "proxy", DependsOn: []string{"api"}},
	})
	require.NoError(t, err)
	return g
}

func indexOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestResolve_DependenciesFirst(t *testing.T) {
	g := exampleGraph(t)
	order, err := g.Resolve("proxy")
	require.NoError(t, err)
	require.Equal(t, []string{"db", "auth", "api", "proxy"}, order)

	order, err = g.Resolve("auth")
	require.NoError(t, err)
	require.Equal(t, []string{"db", "auth"}, order)
}

func TestResolve_DiamondHasNoDuplicates(t *testing.T) {
	g, err := New([]Service{
		{Name: "base"},
		{Name: "left", DependsOn: []string{"base"}},
		{Name: "right", DependsOn: []string{"base"}},
		{Name: "top", DependsOn: []string{"left", "right"}},
	})
	require.NoError(t, err)

	order, err := g.Resolve("top")
	require.NoError(t, err)
	require.Equal(t, []string{"base", "left", "right", "top"}, order)
}

func TestOrder_RespectsEveryEdge(t *testing.T) {
	g, err := New([]Service{
		{Name: "proxy", DependsOn: []string{"api", "worker"}},
		{Name: "worker", DependsOn: []string{"queue", "db"}},
		{Name: "api", DependsOn: []string{"db", "cache"}},
		{Name: "queue"},
		{Name: "cache"},
		{Name: "db"},
		{Name: "lonely"},
	})
	require.NoError(t, err)

	order, err := g.Order()
	require.NoError(t, err)
	require.Len(t, order, 7)
	for _, name := range g.Names() {
		for _, dep := range g.Dependencies(name) {
			require.Less(t, indexOf(order, dep), indexOf(order, name), "%s before %s", dep, name)
		}
	}
}

func TestResolve_Cycle(t *testing.T) {
	g, err := New([]Service{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"c"}},
		{Name: "c", DependsOn: []string{"a"}},
		{Name: "d"},
	})
	require.NoError(t, err)

	_, err = g.Resolve("a")
	var cerr *CyclicDependencyError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, []string{"a", "b", "c", "a"}, cerr.Cycle)
	require.Contains(t, err.Error(), "a -> b -> c -> a")

	_, err = g.Resolve("d")
	require.NoError(t, err)
	require.Error(t, g.Validate())
}

func TestResolve_SelfLoop(t *testing.T) {
	g, err := New([]Service{{Name: "a", DependsOn: []string{"a"}}})
	require.NoError(t, err)
	_, err = g.Resolve("a")
	var cerr *CyclicDependencyError
	require.True(t, errors.As(err, &cerr))
	require.Equal(t, []string{"a", "a"}, cerr.Cycle)
}

func TestResolve_UnknownTarget(t *testing.T) {
	g := exampleGraph(t)
	_, err := g.Resolve("nope")
	var uerr *UnknownServiceError
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, "nope", uerr.Name)
}

func TestNew_UnknownDependency(t *testing.T) {
	_, err := New([]Service{{Name: "api", DependsOn: []string{"db"}}})
	var uerr *UnknownServiceError
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, "db", uerr.Name)
	require.Equal(t, "api", uerr.Referrer)
}

func TestNew_Duplicate(t *testing.T) {
	_, err := New([]Service{{Name: "db"}, {Name: "db"}})
	require.Error(t, err)
}

func TestTerminal_LargestClosure(t *testing.T) {
	g := exampleGraph(t)
	term, err := g.Terminal()
	require.NoError(t, err)
	require.Equal(t, "proxy", term)
	require.Equal(t, []string{"auth", "api"}, g.Dependents("db"))
}
