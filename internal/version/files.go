package version

import (
	"os"
	"path/filepath"

	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// DefaultField is the dot-path of the version field when none is configured.
const DefaultField = "version"

// Source is where a project's version was read from and will be written back to.
type Source struct {
	// Path is the version file. Empty when no candidate file exists.
	Path  string
	Field string
	// Version is the value found at Field; empty when the file has no value.
	Version string
}

// Found reports whether a version value was read.
func (s Source) Found() bool {
	return s.Version != ""
}

// ReadVersion reads candidates in order (relative to dir) and returns the
// first file that exists and holds a value at field. When no file holds a
// value, the returned Source points at the first existing candidate so that
// a first release can still be written.
func ReadVersion(dir string, candidates []string, field string) (Source, error) {
	if field == "" {
		field = DefaultField
	}

	fallback := Source{Field: field}
	for _, name := range candidates {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}

		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return Source{}, errs.FileSystemErrorf(err, "read version file %s", path)
		}

		if fallback.Path == "" {
			fallback.Path = path
		}

		if !gjson.ValidBytes(data) {
			continue
		}
		value := gjson.GetBytes(data, field)
		if value.Exists() && value.String() != "" {
			return Source{Path: path, Field: field, Version: value.String()}, nil
		}
	}

	return fallback, nil
}

// RequireVersion is ReadVersion that fails with a configuration error when no
// candidate yields a version.
func RequireVersion(dir string, candidates []string, field string) (Source, error) {
	src, err := ReadVersion(dir, candidates, field)
	if err != nil {
		return src, err
	}
	if !src.Found() {
		return src, errs.ConfigErrorf("no version found in %v under %s (field %q)", candidates, dir, src.Field).
			WithContext("field", src.Field)
	}
	return src, nil
}

// WriteVersion sets the version at src.Field inside src.Path, leaving the
// rest of the file untouched.
func WriteVersion(src Source, version string) error {
	if src.Path == "" {
		return errs.ConfigError("no version file to write to")
	}
	if !Valid(version) {
		return errs.ConfigErrorf("refusing to write invalid version %q", version)
	}

	info, err := os.Stat(src.Path)
	if err != nil {
		return errs.FileSystemErrorf(err, "stat version file %s", src.Path)
	}
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return errs.FileSystemErrorf(err, "read version file %s", src.Path)
	}

	field := src.Field
	if field == "" {
		field = DefaultField
	}

	updated, err := sjson.SetBytes(data, field, version)
	if err != nil {
		return errs.FileSystemErrorf(err, "update %s in %s", field, src.Path)
	}

	if err := os.WriteFile(src.Path, updated, info.Mode().Perm()); err != nil {
		return errs.FileSystemErrorf(err, "write version file %s", src.Path)
	}
	return nil
}
