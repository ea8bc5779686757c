package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rohankatakam/monorel/internal/graph"
)

// FileName is the workspace configuration file name (without extension).
const FileName = "monorel"

// Config holds all workspace configuration settings
type Config struct {
	// Dir is the directory the configuration was loaded from; project roots
	// are relative to it.
	Dir string `mapstructure:"-"`

	Repository RepositoryConfig `mapstructure:"repository"`

	// Projects is keyed by project name
	Projects map[string]ProjectConfig `mapstructure:"projects"`

	// ReleaseGroups is keyed by group name
	ReleaseGroups map[string]ReleaseGroup `mapstructure:"releaseGroups"`

	// Registries is keyed by registry name
	Registries map[string]RegistryConfig `mapstructure:"registries"`

	GitHub  GitHubConfig  `mapstructure:"github"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Publish PublishConfig `mapstructure:"publish"`
}

type RepositoryConfig struct {
	// URL overrides the remote URL used for changelog links
	URL    string `mapstructure:"url"`
	Remote string `mapstructure:"remote"`
	Push   bool   `mapstructure:"push"`
}

type ProjectConfig struct {
	Root         string   `mapstructure:"root"`
	DependsOn    []string `mapstructure:"dependsOn"`
	VersionFiles []string `mapstructure:"versionFiles"`
	VersionField string   `mapstructure:"versionField"`
	TagFormat    string   `mapstructure:"tagFormat"`
	TagPrefix    string   `mapstructure:"tagPrefix"`
	TagSuffix    string   `mapstructure:"tagSuffix"`
	Build        string   `mapstructure:"build"`
	Artifact     string   `mapstructure:"artifact"`
	Registry     string   `mapstructure:"registry"`
	Changelog    string   `mapstructure:"changelog"`
}

type ReleaseGroup struct {
	Projects     []string   `mapstructure:"projects"`
	Relationship string     `mapstructure:"relationship"` // "independent", "fixed"
	VersionFiles []string   `mapstructure:"versionFiles"`
	VersionField string     `mapstructure:"versionField"`
	TagFormat    string     `mapstructure:"tagFormat"`
	TagPrefix    string     `mapstructure:"tagPrefix"`
	TagSuffix    string     `mapstructure:"tagSuffix"`
	Registry     string     `mapstructure:"registry"`
	Sync         SyncConfig `mapstructure:"sync"`
}

type SyncConfig struct {
	Strategy string `mapstructure:"strategy"` // "highest", "bump"
	Primary  string `mapstructure:"primary"`
	Bump     string `mapstructure:"bump"`
}

type GitHubConfig struct {
	Token          string `mapstructure:"token"`
	RateLimit      int    `mapstructure:"rateLimit"` // Requests per second
	CreateReleases bool   `mapstructure:"createReleases"`
}

type LedgerConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite", "postgres", "" (disabled)
	DSN    string `mapstructure:"dsn"`
}

type CacheConfig struct {
	Path string `mapstructure:"path"`
}

type PublishConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	RateLimit   float64       `mapstructure:"rateLimit"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Projects:      map[string]ProjectConfig{},
		ReleaseGroups: map[string]ReleaseGroup{},
		Registries:    map[string]RegistryConfig{},
		Repository: RepositoryConfig{
			Remote: "origin",
		},
		GitHub: GitHubConfig{
			RateLimit: 10, // 10 requests per second
		},
		Cache: CacheConfig{
			Path: filepath.Join(".monorel", "commits.db"),
		},
		Publish: PublishConfig{
			Concurrency: 4,
			RateLimit:   10,
			Timeout:     60 * time.Second,
		},
	}
}

// Load reads the workspace configuration. An explicit path wins; otherwise
// monorel.yaml is searched in .monorel/ and the working directory. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("repository.remote", cfg.Repository.Remote)
	v.SetDefault("github.token", "")
	v.SetDefault("github.rateLimit", cfg.GitHub.RateLimit)
	v.SetDefault("github.createReleases", false)
	v.SetDefault("ledger.driver", "")
	v.SetDefault("ledger.dsn", "")
	v.SetDefault("cache.path", cfg.Cache.Path)
	v.SetDefault("publish.concurrency", cfg.Publish.Concurrency)
	v.SetDefault("publish.rateLimit", cfg.Publish.RateLimit)
	v.SetDefault("publish.timeout", cfg.Publish.Timeout)

	// MONOREL_GITHUB_TOKEN, MONOREL_LEDGER_DSN, ...
	v.SetEnvPrefix("MONOREL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".monorel")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	dir := "."
	if used := v.ConfigFileUsed(); used != "" {
		dir = filepath.Dir(used)
		if filepath.Base(dir) == ".monorel" {
			dir = filepath.Dir(dir)
		}
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	loadEnvFiles(dir)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Dir = dir

	applyEnvOverrides(cfg)
	return cfg, nil
}

// loadEnvFiles loads .env files from the workspace. Variables already set in
// the environment are never overwritten.
func loadEnvFiles(dir string) {
	for _, name := range []string{".env.local", ".env"} {
		file := filepath.Join(dir, name)
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// applyEnvOverrides applies well-known environment variables that don't
// carry the MONOREL prefix
func applyEnvOverrides(cfg *Config) {
	if cfg.GitHub.Token == "" {
		if token := os.Getenv("GITHUB_TOKEN"); token != "" {
			cfg.GitHub.Token = token
		}
	}
	if cfg.GitHub.Token == "" {
		km := NewKeyringManager(nil)
		if km.IsAvailable() {
			if token, err := km.GetGitHubToken(); err == nil && token != "" {
				cfg.GitHub.Token = token
			}
		}
	}
	if cfg.Ledger.Driver == "" {
		if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
			cfg.Ledger.Driver = "postgres"
			cfg.Ledger.DSN = dsn
		}
	}
	cfg.Cache.Path = expandPath(cfg.Cache.Path)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Path resolves p relative to the workspace directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// ProjectNames returns every configured project, sorted.
func (c *Config) ProjectNames() []string {
	return sortedKeys(c.Projects)
}

// Graph builds the dependency graph declared by the projects' dependsOn.
func (c *Config) Graph() *graph.Graph {
	deps := make(map[string][]string, len(c.Projects))
	for name, p := range c.Projects {
		deps[name] = p.DependsOn
	}
	return graph.New(deps)
}

// GroupOf returns the release group containing project, if any.
func (c *Config) GroupOf(project string) (string, ReleaseGroup, bool) {
	for _, name := range sortedKeys(c.ReleaseGroups) {
		g := c.ReleaseGroups[name]
		for _, member := range g.Projects {
			if member == project {
				return name, g, true
			}
		}
	}
	return "", ReleaseGroup{}, false
}

// Save writes the configuration as YAML to path.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("repository", c.Repository)
	v.Set("projects", c.Projects)
	v.Set("releaseGroups", c.ReleaseGroups)
	v.Set("registries", c.Registries)
	v.Set("github", GitHubConfig{RateLimit: c.GitHub.RateLimit, CreateReleases: c.GitHub.CreateReleases})
	v.Set("ledger", c.Ledger)
	v.Set("cache", c.Cache)
	v.Set("publish", c.Publish)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
