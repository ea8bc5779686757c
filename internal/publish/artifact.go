package publish

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/rohankatakam/monorel/internal/errors"
)

// artifact is a local file with the digests every backend needs.
type artifact struct {
	Path string
	Name string
	Size int64
	// SHA1 is hex encoded; MD5 and SHA512 are raw.
	SHA1   string
	MD5    []byte
	SHA512 []byte
}

// loadArtifact stats and hashes path in one read.
func loadArtifact(path string) (artifact, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return artifact{}, errs.ConfigErrorf("artifact %s does not exist; run the build step first", path).
			WithContext("artifact", path)
	}
	if err != nil {
		return artifact{}, errs.FileSystemErrorf(err, "stat artifact %s", path)
	}
	if info.IsDir() {
		return artifact{}, errs.ConfigErrorf("artifact %s is a directory", path).WithContext("artifact", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return artifact{}, errs.FileSystemErrorf(err, "open artifact %s", path)
	}
	defer f.Close()

	s1, m5, s512 := sha1.New(), md5.New(), sha512.New()
	if _, err := io.Copy(io.MultiWriter(s1, m5, s512), f); err != nil {
		return artifact{}, errs.FileSystemErrorf(err, "hash artifact %s", path)
	}

	return artifact{
		Path:   path,
		Name:   filepath.Base(path),
		Size:   info.Size(),
		SHA1:   hex.EncodeToString(s1.Sum(nil)),
		MD5:    m5.Sum(nil),
		SHA512: s512.Sum(nil),
	}, nil
}

func (a artifact) md5Base64() string {
	return base64.StdEncoding.EncodeToString(a.MD5)
}

func (a artifact) integrity() string {
	return "sha512-" + base64.StdEncoding.EncodeToString(a.SHA512)
}

// Key derives the storage key of file under strategy.
func Key(strategy PathStrategy, prefix, version, sha1Hex, file string) string {
	switch strategy {
	case StrategyHash:
		return prefix + sha1Hex + "/" + file
	case StrategyFlat:
		return prefix + file
	default:
		return prefix + version + "/" + file
	}
}

// joinURL appends key to base with exactly one slash between them.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
