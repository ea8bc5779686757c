package config

import (
	"strings"
	"time"

	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/rohankatakam/monorel/internal/publish"
)

// RegistryConfig is the on-disk shape of a registry entry. Only the fields
// relevant to Type are read.
type RegistryConfig struct {
	Type     string        `mapstructure:"type"` // "npm", "nexus", "s3", "custom"
	Prefix   string        `mapstructure:"prefix"`
	Strategy string        `mapstructure:"strategy"`
	Force    bool          `mapstructure:"force"`
	Timeout  time.Duration `mapstructure:"timeout"`

	// npm
	Registry string `mapstructure:"registry"`
	Package  string `mapstructure:"package"`
	Tag      string `mapstructure:"tag"`
	Access   string `mapstructure:"access"`

	// nexus, custom
	URL        string            `mapstructure:"url"`
	Repository string            `mapstructure:"repository"`
	Username   string            `mapstructure:"username"`
	Password   string            `mapstructure:"password"`
	Method     string            `mapstructure:"method"`
	Headers    map[string]string `mapstructure:"headers"`

	// npm, custom
	Token string `mapstructure:"token"`

	// s3
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accessKeyId"`
	SecretAccessKey string `mapstructure:"secretAccessKey"`
	UsePathStyle    bool   `mapstructure:"usePathStyle"`
}

// SecretSource looks up registry secrets missing from the config file.
// *KeyringManager satisfies it.
type SecretSource interface {
	GetRegistrySecret(registry, field string) (string, error)
}

// secret fills an empty value from the keychain. Lookup failures leave the
// value empty so that Validate reports the missing field.
func secret(src SecretSource, registry, field, value string) string {
	if value != "" || src == nil {
		return value
	}
	v, err := src.GetRegistrySecret(registry, field)
	if err != nil {
		return ""
	}
	return v
}

// Registry converts the named registry entry into its publisher variant and
// validates it.
func (c *Config) Registry(name string, secrets SecretSource) (publish.RegistryConfig, error) {
	rc, ok := c.Registries[name]
	if !ok {
		return nil, errs.ConfigErrorf("registry %q is not defined", name).WithContext("registry", name)
	}

	common := publish.Common{
		Prefix:   rc.Prefix,
		Strategy: publish.PathStrategy(rc.Strategy),
		Force:    rc.Force,
		Timeout:  rc.Timeout,
	}
	if common.Timeout == 0 {
		common.Timeout = c.Publish.Timeout
	}

	var out publish.RegistryConfig
	switch strings.ToLower(rc.Type) {
	case "npm":
		out = publish.NpmConfig{
			Common:   common,
			Registry: rc.Registry,
			Package:  rc.Package,
			Token:    secret(secrets, name, "token", rc.Token),
			Tag:      rc.Tag,
			Access:   rc.Access,
		}
	case "nexus":
		out = publish.NexusConfig{
			Common:     common,
			URL:        rc.URL,
			Repository: rc.Repository,
			Username:   rc.Username,
			Password:   secret(secrets, name, "password", rc.Password),
		}
	case "s3":
		cfg := publish.S3Config{
			Common:          common,
			Bucket:          rc.Bucket,
			Region:          rc.Region,
			Endpoint:        rc.Endpoint,
			AccessKeyID:     rc.AccessKeyID,
			SecretAccessKey: rc.SecretAccessKey,
			UsePathStyle:    rc.UsePathStyle,
		}
		// Only consult the keychain when a key id is configured; otherwise the
		// default AWS credential chain applies.
		if cfg.AccessKeyID != "" {
			cfg.SecretAccessKey = secret(secrets, name, "secretAccessKey", cfg.SecretAccessKey)
		}
		out = cfg
	case "custom":
		out = publish.CustomConfig{
			Common:  common,
			URL:     rc.URL,
			Method:  strings.ToUpper(rc.Method),
			Headers: rc.Headers,
			Token:   secret(secrets, name, "token", rc.Token),
		}
	case "":
		return nil, errs.MissingFieldError("registry "+name, "type")
	default:
		return nil, errs.ConfigErrorf("registry %s: unknown type %q (want npm, nexus, s3 or custom)", name, rc.Type).
			WithContext("field", "type")
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}
