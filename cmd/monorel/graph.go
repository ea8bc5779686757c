package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/rohankatakam/monorel/internal/errors"
)

var graphAffected []string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the project dependency graph",
	Long: `Print every project in release order (dependencies first) with its
direct dependencies and release group. With --affected, print the projects a
change to the given projects would cascade to.`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringSliceVar(&graphAffected, "affected", nil, "list projects affected by changes to these projects")
}

func runGraph(cmd *cobra.Command, args []string) error {
	g := cfg.Graph()

	if len(graphAffected) > 0 {
		for _, name := range graphAffected {
			if !g.Has(name) {
				return errs.ConfigErrorf("unknown project %q", name).WithContext("project", name)
			}
		}
		for _, name := range g.Affected(graphAffected) {
			fmt.Println(name)
		}
		return nil
	}

	for _, name := range g.Order(g.Projects()) {
		line := name
		if deps := g.Dependencies(name); len(deps) > 0 {
			line += " ← " + strings.Join(deps, ", ")
		}
		if group, rg, ok := cfg.GroupOf(name); ok {
			rel := rg.Relationship
			if rel == "" {
				rel = "independent"
			}
			line += fmt.Sprintf("  [%s, %s]", group, rel)
		}
		fmt.Println(line)
	}
	return nil
}
