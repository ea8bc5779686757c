package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// npmBackend speaks the registry's package-document PUT protocol. Keys are
// always name@version, so the path strategy does not apply.
type npmBackend struct {
	cfg    NpmConfig
	client *http.Client
}

type npmDist struct {
	Shasum    string `json:"shasum"`
	Integrity string `json:"integrity"`
	Tarball   string `json:"tarball"`
}

type npmVersion struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	ID      string  `json:"_id"`
	Dist    npmDist `json:"dist"`
}

type npmAttachment struct {
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
	Length      int64  `json:"length"`
}

type npmDocument struct {
	ID          string                   `json:"_id"`
	Name        string                   `json:"name"`
	Access      string                   `json:"access,omitempty"`
	DistTags    map[string]string        `json:"dist-tags"`
	Versions    map[string]npmVersion    `json:"versions"`
	Attachments map[string]npmAttachment `json:"_attachments"`
}

func (b *npmBackend) key(_ artifact, version string) string {
	return b.cfg.Package + "@" + version
}

// packageURL escapes the slash of scoped names as the registry expects.
func (b *npmBackend) packageURL() string {
	return strings.TrimRight(b.cfg.Registry, "/") + "/" + url.PathEscape(b.cfg.Package)
}

func (b *npmBackend) version(key string) string {
	return key[strings.LastIndex(key, "@")+1:]
}

func (b *npmBackend) location(key string) string {
	return b.packageURL() + "/" + b.version(key)
}

func (b *npmBackend) tarballName(version string) string {
	name := b.cfg.Package
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name + "-" + version + ".tgz"
}

func (b *npmBackend) auth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+b.cfg.Token)
}

func (b *npmBackend) exists(ctx context.Context, key string) (bool, error) {
	return headExists(ctx, b.client, http.MethodGet, b.location(key), b.auth)
}

func (b *npmBackend) upload(ctx context.Context, _, version string, a artifact) error {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return err
	}

	tag := b.cfg.Tag
	if tag == "" {
		tag = "latest"
	}
	tarball := b.tarballName(version)

	doc := npmDocument{
		ID:       b.cfg.Package,
		Name:     b.cfg.Package,
		Access:   b.cfg.Access,
		DistTags: map[string]string{tag: version},
		Versions: map[string]npmVersion{
			version: {
				Name:    b.cfg.Package,
				Version: version,
				ID:      b.cfg.Package + "@" + version,
				Dist: npmDist{
					Shasum:    a.SHA1,
					Integrity: a.integrity(),
					Tarball:   b.packageURL() + "/-/" + tarball,
				},
			},
		},
		Attachments: map[string]npmAttachment{
			tarball: {
				ContentType: "application/octet-stream",
				Data:        base64.StdEncoding.EncodeToString(data),
				Length:      int64(len(data)),
			},
		},
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.packageURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	b.auth(req)
	req.Header.Set("Content-Type", "application/json")
	return send(b.client, req)
}
