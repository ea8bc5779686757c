package graph

import "sort"

// Graph is a project dependency graph with indexed forward and reverse
// adjacency. It is immutable after construction.
type Graph struct {
	names   []string
	index   map[string]int
	deps    [][]int // deps[i] = projects i depends on
	reverse [][]int // reverse[i] = projects that depend on i
}

// New builds a graph from project -> internal dependency names. Dependencies
// that are not keys themselves are added as leaf nodes; self-edges and
// duplicates are dropped.
func New(dependencies map[string][]string) *Graph {
	seen := make(map[string]bool)
	for name, ds := range dependencies {
		seen[name] = true
		for _, d := range ds {
			seen[d] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	g := &Graph{
		names:   names,
		index:   make(map[string]int, len(names)),
		deps:    make([][]int, len(names)),
		reverse: make([][]int, len(names)),
	}
	for i, name := range names {
		g.index[name] = i
	}

	for _, name := range names {
		from := g.index[name]
		dup := make(map[int]bool)
		for _, d := range dependencies[name] {
			to := g.index[d]
			if to == from || dup[to] {
				continue
			}
			dup[to] = true
			g.deps[from] = append(g.deps[from], to)
			g.reverse[to] = append(g.reverse[to], from)
		}
	}

	for i := range names {
		sort.Ints(g.deps[i])
		sort.Ints(g.reverse[i])
	}
	return g
}

// Projects returns all project names, sorted.
func (g *Graph) Projects() []string {
	return append([]string(nil), g.names...)
}

// Has reports whether the project is in the graph.
func (g *Graph) Has(project string) bool {
	_, ok := g.index[project]
	return ok
}

// Dependencies returns the direct dependencies of project.
func (g *Graph) Dependencies(project string) []string {
	i, ok := g.index[project]
	if !ok {
		return nil
	}
	return g.namesOf(g.deps[i])
}

// Dependents returns the projects that directly depend on project.
func (g *Graph) Dependents(project string) []string {
	i, ok := g.index[project]
	if !ok {
		return nil
	}
	return g.namesOf(g.reverse[i])
}

// Affected returns targets plus every project that transitively depends on
// one of them, sorted. Unknown targets are kept as-is. The walk is an
// iterative BFS over reverse edges with a visited set, so cycles and
// diamonds terminate.
func (g *Graph) Affected(targets []string) []string {
	visited := make(map[string]bool)
	for _, t := range targets {
		visited[t] = true
	}
	for _, name := range g.Cascade(targets) {
		visited[name] = true
	}

	out := make([]string, 0, len(visited))
	for name := range visited {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Cascade returns only the projects reached from targets through reverse
// edges, excluding the targets themselves, in BFS discovery order.
func (g *Graph) Cascade(targets []string) []string {
	visited := make([]bool, len(g.names))
	queue := make([]int, 0, len(targets))

	for _, t := range targets {
		if i, ok := g.index[t]; ok && !visited[i] {
			visited[i] = true
			queue = append(queue, i)
		}
	}

	var added []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, dependent := range g.reverse[current] {
			if visited[dependent] {
				continue
			}
			visited[dependent] = true
			added = append(added, g.names[dependent])
			queue = append(queue, dependent)
		}
	}
	return added
}

// Order returns projects with dependencies before dependents (Kahn's
// algorithm, ties broken by name). Projects on a cycle are appended at the
// end in name order.
func (g *Graph) Order(projects []string) []string {
	want := make(map[int]bool, len(projects))
	var unknown []string
	for _, p := range projects {
		if i, ok := g.index[p]; ok {
			want[i] = true
		} else {
			unknown = append(unknown, p)
		}
	}

	inDegree := make(map[int]int, len(want))
	for i := range want {
		for _, d := range g.deps[i] {
			if want[d] {
				inDegree[i]++
			}
		}
	}

	var ready []int
	for i := range want {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	var order []string
	done := make(map[int]bool, len(want))
	for len(ready) > 0 {
		sort.Ints(ready)
		current := ready[0]
		ready = ready[1:]
		done[current] = true
		order = append(order, g.names[current])

		for _, dependent := range g.reverse[current] {
			if !want[dependent] {
				continue
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	var cyclic []int
	for i := range want {
		if !done[i] {
			cyclic = append(cyclic, i)
		}
	}
	sort.Ints(cyclic)
	order = append(order, g.namesOf(cyclic)...)

	sort.Strings(unknown)
	return append(order, unknown...)
}

func (g *Graph) namesOf(idx []int) []string {
	if len(idx) == 0 {
		return nil
	}
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = g.names[n]
	}
	return out
}
