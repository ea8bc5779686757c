package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rohankatakam/monorel/internal/version"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Validate checks the workspace configuration for structural problems.
// Registry secrets are not checked here since they may come from the
// keychain at publish time.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(c.Projects) == 0 {
		result.AddWarning("no projects configured")
	}

	for _, name := range c.ProjectNames() {
		p := c.Projects[name]
		if p.Root == "" {
			result.AddError("project %s: missing root", name)
		}
		for _, dep := range p.DependsOn {
			if dep == name {
				result.AddError("project %s: depends on itself", name)
				continue
			}
			if _, ok := c.Projects[dep]; !ok {
				result.AddError("project %s: dependency %q is not a configured project", name, dep)
			}
		}
		if p.Registry != "" {
			if _, ok := c.Registries[p.Registry]; !ok {
				result.AddError("project %s: registry %q is not defined", name, p.Registry)
			}
			if p.Artifact == "" {
				result.AddWarning("project %s: registry set but no artifact, nothing will be published", name)
			}
		}
	}

	c.validateGroups(result)
	c.validateRegistries(result)

	switch c.Ledger.Driver {
	case "", "sqlite", "sqlite3", "postgres", "pgx":
	default:
		result.AddError("ledger: unknown driver %q (want sqlite or postgres)", c.Ledger.Driver)
	}
	if c.Ledger.Driver != "" && c.Ledger.DSN == "" {
		result.AddError("ledger: dsn is required when a driver is set")
	}

	if c.Publish.Concurrency < 1 {
		result.AddError("publish: concurrency must be at least 1")
	}
	if c.GitHub.CreateReleases && c.GitHub.Token == "" {
		result.AddWarning("github: createReleases is on but no token is configured (set GITHUB_TOKEN)")
	}

	return result
}

func (c *Config) validateGroups(result *ValidationResult) {
	owner := make(map[string]string)
	for _, name := range sortedKeys(c.ReleaseGroups) {
		g := c.ReleaseGroups[name]
		if len(g.Projects) == 0 {
			result.AddWarning("release group %s: no projects", name)
		}
		for _, p := range g.Projects {
			if _, ok := c.Projects[p]; !ok {
				result.AddError("release group %s: project %q is not configured", name, p)
			}
			if other, ok := owner[p]; ok {
				result.AddError("project %s belongs to release groups %s and %s", p, other, name)
			}
			owner[p] = name
		}

		switch version.Relationship(g.Relationship) {
		case "", version.Independent:
		case version.Fixed:
			switch version.SyncStrategy(g.Sync.Strategy) {
			case "", version.SyncHighest:
			case version.SyncBump:
				if g.Sync.Primary == "" {
					result.AddError("release group %s: sync strategy bump requires a primary project", name)
				} else if !contains(g.Projects, g.Sync.Primary) {
					result.AddError("release group %s: primary %q is not a member", name, g.Sync.Primary)
				}
			default:
				result.AddError("release group %s: unknown sync strategy %q", name, g.Sync.Strategy)
			}
		default:
			result.AddError("release group %s: unknown relationship %q", name, g.Relationship)
		}

		if g.Sync.Bump != "" {
			if _, err := version.ParseBump(g.Sync.Bump); err != nil {
				result.AddError("release group %s: %v", name, err)
			}
		}
	}
}

func (c *Config) validateRegistries(result *ValidationResult) {
	for _, name := range sortedKeys(c.Registries) {
		r := c.Registries[name]
		switch strings.ToLower(r.Type) {
		case "npm", "nexus", "s3", "custom":
		case "":
			result.AddError("registry %s: missing type", name)
		default:
			result.AddError("registry %s: unknown type %q", name, r.Type)
		}
		if r.Token != "" || r.Password != "" || r.SecretAccessKey != "" {
			result.AddWarning("registry %s: plaintext secret in config, prefer the OS keychain or environment", name)
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
