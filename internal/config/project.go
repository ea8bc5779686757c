package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/rohankatakam/monorel/internal/version"
)

// ProjectFileName is the optional per-project override file inside a
// project's root.
const ProjectFileName = "monorel.project.yaml"

// Defaults applied when no layer sets a value.
var (
	DefaultVersionFiles = []string{"package.json"}
	DefaultChangelog    = "CHANGELOG.md"
)

// ProjectFile mirrors monorel.project.yaml.
type ProjectFile struct {
	VersionFiles []string `yaml:"versionFiles"`
	VersionField string   `yaml:"versionField"`
	TagFormat    string   `yaml:"tagFormat"`
	TagPrefix    string   `yaml:"tagPrefix"`
	TagSuffix    string   `yaml:"tagSuffix"`
	Build        string   `yaml:"build"`
	Artifact     string   `yaml:"artifact"`
	Registry     string   `yaml:"registry"`
	Changelog    string   `yaml:"changelog"`
}

// Overrides are values given explicitly on the command line. They beat every
// file layer.
type Overrides struct {
	VersionFiles []string
	VersionField string
	TagFormat    string
	Build        string
	Artifact     string
	Registry     string
	Changelog    string
}

// Project is the fully resolved, read-only view of one project. Paths are
// absolute or relative to the working directory.
type Project struct {
	Name         string
	Root         string
	DependsOn    []string
	VersionFiles []string
	VersionField string
	TagFormat    string
	// TagPrefix and TagSuffix fill the {prefix} and {suffix} placeholders.
	TagPrefix string
	TagSuffix string
	Build     string
	// Artifact is the path of the built artifact to publish; empty means the
	// project is not published.
	Artifact string
	// Registry names an entry of Config.Registries.
	Registry  string
	Changelog string

	Group        string
	Relationship version.Relationship
	Sync         SyncConfig
}

// TagVars returns the placeholder values for this project's tags.
func (p Project) TagVars(ver string) version.TagVars {
	return version.TagVars{
		ProjectName:      p.Name,
		ReleaseGroupName: p.Group,
		Version:          ver,
		Prefix:           p.TagPrefix,
		Suffix:           p.TagSuffix,
	}
}

// TagName renders the tag for ver.
func (p Project) TagName(ver string) string {
	return version.TagName(p.TagFormat, p.TagVars(ver))
}

// TagMatcher recognizes this project's existing tags.
func (p Project) TagMatcher() *version.TagMatcher {
	return version.NewTagMatcher(p.TagFormat, p.TagVars(""))
}

// LoadProjectFile reads dir/monorel.project.yaml. A missing file returns
// (nil, nil).
func LoadProjectFile(dir string) (*ProjectFile, error) {
	path := filepath.Join(dir, ProjectFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.FileSystemErrorf(err, "read %s", path)
	}
	var pf ProjectFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, errs.ConfigErrorf("%s: %v", path, err).WithContext("file", path)
	}
	return &pf, nil
}

// Resolve builds the project view for name by layering, highest first:
// explicit overrides, the project's monorel.project.yaml, the workspace
// project entry, its release group, then defaults.
func (c *Config) Resolve(name string, o Overrides) (Project, error) {
	pc, ok := c.Projects[name]
	if !ok {
		return Project{}, errs.ConfigErrorf("unknown project %q", name).WithContext("project", name)
	}
	if pc.Root == "" {
		return Project{}, errs.MissingFieldError("project "+name, "root")
	}

	root := c.Path(pc.Root)
	pf, err := LoadProjectFile(root)
	if err != nil {
		return Project{}, err
	}
	if pf == nil {
		pf = &ProjectFile{}
	}

	groupName, group, _ := c.GroupOf(name)
	rel := version.Relationship(group.Relationship)
	if rel == "" {
		rel = version.Independent
	}
	if groupName == "" {
		rel = version.Independent
	}

	p := Project{
		Name:         name,
		Root:         root,
		DependsOn:    append([]string(nil), pc.DependsOn...),
		VersionFiles: firstList(o.VersionFiles, pf.VersionFiles, pc.VersionFiles, group.VersionFiles, DefaultVersionFiles),
		VersionField: first(o.VersionField, pf.VersionField, pc.VersionField, group.VersionField, version.DefaultField),
		TagFormat:    first(o.TagFormat, pf.TagFormat, pc.TagFormat, group.TagFormat, version.DefaultTagFormat(rel, groupName)),
		TagPrefix:    first(pf.TagPrefix, pc.TagPrefix, group.TagPrefix),
		TagSuffix:    first(pf.TagSuffix, pc.TagSuffix, group.TagSuffix),
		Build:        first(o.Build, pf.Build, pc.Build),
		Artifact:     first(o.Artifact, pf.Artifact, pc.Artifact),
		Registry:     first(o.Registry, pf.Registry, pc.Registry, group.Registry),
		Changelog:    first(o.Changelog, pf.Changelog, pc.Changelog, DefaultChangelog),
		Group:        groupName,
		Relationship: rel,
		Sync:         group.Sync,
	}
	if p.Artifact != "" && !filepath.IsAbs(p.Artifact) {
		p.Artifact = filepath.Join(root, p.Artifact)
	}
	if !filepath.IsAbs(p.Changelog) {
		p.Changelog = filepath.Join(root, p.Changelog)
	}
	if p.Registry != "" {
		if _, ok := c.Registries[p.Registry]; !ok {
			return Project{}, errs.ConfigErrorf("project %s: registry %q is not defined", name, p.Registry).
				WithContext("field", "registry")
		}
	}
	return p, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstList(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return append([]string(nil), l...)
		}
	}
	return nil
}
