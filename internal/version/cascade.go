package version

import (
	"github.com/rohankatakam/monorel/internal/graph"
)

// Targets expands the directly targeted projects with every project that
// depends on one of them when trackDeps is set. The result is ordered with
// dependencies before dependents.
func Targets(g *graph.Graph, direct []string, trackDeps bool) []string {
	if g == nil {
		return append([]string(nil), direct...)
	}
	projects := direct
	if trackDeps {
		projects = g.Affected(direct)
	}
	return g.Order(projects)
}

// ResolveEach runs Resolve independently for every input, in order. Errors are
// collected per project rather than stopping the walk.
func ResolveEach(inputs []Input) ([]Result, map[string]error) {
	results := make([]Result, 0, len(inputs))
	failures := make(map[string]error)

	for _, in := range inputs {
		res, err := Resolve(in)
		if err != nil {
			failures[in.Project] = err
			continue
		}
		results = append(results, res)
	}
	return results, failures
}
