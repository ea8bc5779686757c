package publish

import (
	"time"

	errs "github.com/rohankatakam/monorel/internal/errors"
)

// PathStrategy decides where an artifact lands inside a registry.
type PathStrategy string

const (
	// StrategyVersion stores artifacts under {prefix}{version}/{file}.
	StrategyVersion PathStrategy = "version"
	// StrategyHash stores artifacts under {prefix}{sha1}/{file}.
	StrategyHash PathStrategy = "hash"
	// StrategyFlat stores artifacts under {prefix}{file}; the last writer wins.
	StrategyFlat PathStrategy = "flat"
)

// DefaultTimeout bounds every registry call unless a config overrides it.
const DefaultTimeout = 60 * time.Second

// Common holds the settings shared by every registry kind.
type Common struct {
	Prefix   string
	Strategy PathStrategy
	// Force skips the existence probe and always uploads.
	Force   bool
	Timeout time.Duration
}

func (c Common) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c Common) validate(section string) error {
	switch c.Strategy {
	case "", StrategyVersion, StrategyHash, StrategyFlat:
		return nil
	default:
		return errs.ConfigErrorf("%s: unknown path strategy %q (want version, hash or flat)", section, c.Strategy).
			WithContext("field", "strategy")
	}
}

// RegistryConfig is one of NpmConfig, NexusConfig, S3Config or CustomConfig.
type RegistryConfig interface {
	// Kind names the registry type, e.g. "s3".
	Kind() string
	// Validate reports the first missing or malformed required field.
	Validate() error
	settings() Common
}

// NpmConfig publishes a tarball to an npm-compatible registry.
type NpmConfig struct {
	Common
	// Registry is the registry base URL, e.g. https://registry.npmjs.org.
	Registry string
	Package  string
	Token    string
	// Tag is the dist-tag to move; "latest" when empty.
	Tag    string
	Access string
}

func (NpmConfig) Kind() string       { return "npm" }
func (c NpmConfig) settings() Common { return c.Common }

func (c NpmConfig) Validate() error {
	if c.Registry == "" {
		return errs.MissingFieldError("npm registry", "registry")
	}
	if c.Package == "" {
		return errs.MissingFieldError("npm registry", "package")
	}
	if c.Token == "" {
		return errs.MissingFieldError("npm registry", "token")
	}
	return c.Common.validate("npm registry")
}

// NexusConfig uploads to a Nexus raw (hosted) repository.
type NexusConfig struct {
	Common
	URL        string
	Repository string
	Username   string
	Password   string
}

func (NexusConfig) Kind() string       { return "nexus" }
func (c NexusConfig) settings() Common { return c.Common }

func (c NexusConfig) Validate() error {
	switch {
	case c.URL == "":
		return errs.MissingFieldError("nexus registry", "url")
	case c.Repository == "":
		return errs.MissingFieldError("nexus registry", "repository")
	case c.Username == "":
		return errs.MissingFieldError("nexus registry", "username")
	case c.Password == "":
		return errs.MissingFieldError("nexus registry", "password")
	}
	return c.Common.validate("nexus registry")
}

// S3Config uploads to an S3 bucket or an S3-compatible store.
type S3Config struct {
	Common
	Bucket string
	Region string
	// Endpoint overrides the AWS endpoint for S3-compatible stores.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

func (S3Config) Kind() string       { return "s3" }
func (c S3Config) settings() Common { return c.Common }

// Credentials fall back to the default AWS chain when both keys are empty.
func (c S3Config) Validate() error {
	switch {
	case c.Bucket == "":
		return errs.MissingFieldError("s3 registry", "bucket")
	case c.Region == "":
		return errs.MissingFieldError("s3 registry", "region")
	case c.AccessKeyID != "" && c.SecretAccessKey == "":
		return errs.MissingFieldError("s3 registry", "secretAccessKey")
	case c.SecretAccessKey != "" && c.AccessKeyID == "":
		return errs.MissingFieldError("s3 registry", "accessKeyId")
	}
	return c.Common.validate("s3 registry")
}

// CustomConfig uploads with plain HTTP to {URL}/{key}.
type CustomConfig struct {
	Common
	URL string
	// Method defaults to PUT.
	Method  string
	Headers map[string]string
	Token   string
}

func (CustomConfig) Kind() string       { return "custom" }
func (c CustomConfig) settings() Common { return c.Common }

func (c CustomConfig) Validate() error {
	if c.URL == "" {
		return errs.MissingFieldError("custom registry", "url")
	}
	switch c.Method {
	case "", "PUT", "POST":
	default:
		return errs.ConfigErrorf("custom registry: unsupported method %q", c.Method).WithContext("field", "method")
	}
	return c.Common.validate("custom registry")
}
