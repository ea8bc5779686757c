package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func diamond() *Graph {
	// app -> api -> core, app -> web -> core, cli -> core
	return New(map[string][]string{
		"app": {"api", "web"},
		"api": {"core"},
		"web": {"core", "core"},
		"cli": {"core"},
		"doc": nil,
	})
}

func TestAdjacency(t *testing.T) {
	g := diamond()
	assert.Equal(t, []string{"api", "app", "cli", "core", "doc", "web"}, g.Projects())
	assert.Equal(t, []string{"api", "web"}, g.Dependencies("app"))
	assert.Equal(t, []string{"core"}, g.Dependencies("web"), "duplicates dropped")
	assert.Equal(t, []string{"api", "cli", "web"}, g.Dependents("core"))
	assert.Nil(t, g.Dependents("app"))
	assert.Nil(t, g.Dependencies("missing"))
	assert.True(t, g.Has("doc"))
}

func TestAffectedDiamond(t *testing.T) {
	g := diamond()
	assert.Equal(t, []string{"api", "app", "cli", "core", "web"}, g.Affected([]string{"core"}))
	assert.Equal(t, []string{"app", "web"}, g.Affected([]string{"web"}))
	assert.Equal(t, []string{"doc"}, g.Affected([]string{"doc"}))
}

func TestCascadeExcludesTargetsAndIsBFSOrdered(t *testing.T) {
	g := diamond()
	assert.Equal(t, []string{"api", "cli", "web", "app"}, g.Cascade([]string{"core"}))
	assert.Empty(t, g.Cascade([]string{"app"}))
}

func TestAffectedTerminatesOnCycles(t *testing.T) {
	g := New(map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"d"},
	})
	assert.Equal(t, []string{"a", "b", "c"}, g.Affected([]string{"a"}))
	assert.Equal(t, []string{"d"}, g.Affected([]string{"d"}), "self edges are ignored")
}

func TestAffectedKeepsUnknownTargets(t *testing.T) {
	g := diamond()
	assert.Equal(t, []string{"ghost"}, g.Affected([]string{"ghost"}))
}

func TestOrder(t *testing.T) {
	g := diamond()
	assert.Equal(t,
		[]string{"core", "api", "cli", "web", "app"},
		g.Order([]string{"app", "web", "api", "core", "cli"}))

	assert.Equal(t, []string{"api", "app"}, g.Order([]string{"app", "api"}))

	cyclic := New(map[string][]string{"x": {"y"}, "y": {"x"}, "z": nil})
	assert.Equal(t, []string{"z", "x", "y", "zz"}, cyclic.Order([]string{"x", "y", "z", "zz"}))
}
