package changelog

import (
	"os"
	"path/filepath"
	"strings"

	errs "github.com/rohankatakam/monorel/internal/errors"
)

// DefaultTitle heads a newly created changelog file.
const DefaultTitle = "# Changelog"

// Prepend inserts entry at the top of the changelog at path, below its
// level-one title when there is one. A missing file is created with
// DefaultTitle. An entry already present verbatim is not added twice.
func Prepend(path, entry string) error {
	entry = strings.TrimRight(entry, "\n") + "\n"

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return errs.FileSystemErrorf(err, "read changelog %s", path)
	}

	mode := os.FileMode(0644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	existing := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.Contains(existing, entry) {
		return nil
	}

	var out string
	switch {
	case strings.TrimSpace(existing) == "":
		out = DefaultTitle + "\n\n" + entry
	case strings.HasPrefix(existing, "# "):
		title, rest, _ := strings.Cut(existing, "\n")
		rest = strings.TrimLeft(rest, "\n")
		out = title + "\n\n" + entry
		if rest != "" {
			out += "\n" + rest
		}
	default:
		out = entry + "\n" + existing
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errs.FileSystemErrorf(err, "create changelog directory %s", dir)
		}
	}
	if err := os.WriteFile(path, []byte(out), mode); err != nil {
		return errs.FileSystemErrorf(err, "write changelog %s", path)
	}
	return nil
}
