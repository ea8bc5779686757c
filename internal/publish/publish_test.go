package publish

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/rohankatakam/monorel/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func newTestDispatcher(opts ...Option) *Dispatcher {
	opts = append([]Option{WithRateLimit(1000, 100)}, opts...)
	return NewDispatcher(logging.Discard(), opts...)
}

// rawRepo is an in-memory Nexus-style raw repository.
type rawRepo struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
	heads   int
}

func newRawRepo() *rawRepo {
	return &rawRepo{objects: make(map[string][]byte)}
}

func (r *rawRepo) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, pass, ok := req.BasicAuth()
	if !ok || user != "deploy" || pass != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch req.Method {
	case http.MethodHead:
		r.heads++
		if _, found := r.objects[req.URL.Path]; found {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if req.Header.Get("X-Checksum-Sha1") != sha1Hex(string(body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		r.puts++
		r.objects[req.URL.Path] = body
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func nexusConfig(url string) NexusConfig {
	return NexusConfig{
		Common:     Common{Prefix: "releases/", Strategy: StrategyVersion},
		URL:        url,
		Repository: "raw-hosted",
		Username:   "deploy",
		Password:   "secret",
	}
}

func TestNexusPublishIsIdempotent(t *testing.T) {
	repo := newRawRepo()
	srv := httptest.NewServer(repo)
	defer srv.Close()

	artifact := writeArtifact(t, "api.tar.gz", "payload-v1")
	d := newTestDispatcher()
	cfg := nexusConfig(srv.URL)

	first, err := d.Publish(context.Background(), artifact, "1.3.0", cfg)
	require.NoError(t, err)
	assert.True(t, first.Uploaded)
	assert.False(t, first.Skipped)
	assert.Equal(t, "releases/1.3.0/api.tar.gz", first.Key)
	assert.Equal(t, srv.URL+"/repository/raw-hosted/releases/1.3.0/api.tar.gz", first.URL)
	assert.Equal(t, sha1Hex("payload-v1"), first.SHA1)

	second, err := d.Publish(context.Background(), artifact, "1.3.0", cfg)
	require.NoError(t, err)
	assert.False(t, second.Uploaded)
	assert.True(t, second.Skipped)
	assert.Contains(t, second.Reason, "already exists")

	assert.Equal(t, 1, repo.puts)
	assert.Equal(t, 2, repo.heads)
	assert.Equal(t, []byte("payload-v1"), repo.objects["/repository/raw-hosted/releases/1.3.0/api.tar.gz"])
}

func TestForceSkipsProbe(t *testing.T) {
	repo := newRawRepo()
	srv := httptest.NewServer(repo)
	defer srv.Close()

	cfg := nexusConfig(srv.URL)
	cfg.Force = true
	artifact := writeArtifact(t, "api.tar.gz", "payload")
	d := newTestDispatcher()

	for i := 0; i < 2; i++ {
		res, err := d.Publish(context.Background(), artifact, "1.0.0", cfg)
		require.NoError(t, err)
		assert.True(t, res.Uploaded)
	}
	assert.Equal(t, 0, repo.heads)
	assert.Equal(t, 2, repo.puts)
}

func TestConfigErrorsBeforeNetwork(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	defer srv.Close()

	d := newTestDispatcher()
	artifact := writeArtifact(t, "a.zip", "x")

	cfg := nexusConfig(srv.URL)
	cfg.Password = ""
	_, err := d.Publish(context.Background(), artifact, "1.0.0", cfg)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errs.ErrConfig))
	field, ok := errs.ContextValue(err, "field")
	assert.True(t, ok)
	assert.Equal(t, "password", field)

	_, err = d.Publish(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), "1.0.0", nexusConfig(srv.URL))
	assert.True(t, stderrors.Is(err, errs.ErrConfig))

	_, err = d.Publish(context.Background(), artifact, "", nexusConfig(srv.URL))
	assert.True(t, stderrors.Is(err, errs.ErrConfig))

	_, err = d.Publish(context.Background(), artifact, "1.0.0", nil)
	assert.True(t, stderrors.Is(err, errs.ErrConfig))

	bad := nexusConfig(srv.URL)
	bad.Strategy = "sideways"
	_, err = d.Publish(context.Background(), artifact, "1.0.0", bad)
	assert.True(t, stderrors.Is(err, errs.ErrConfig))

	assert.Equal(t, 0, hits)
}

func TestValidateNamesMissingField(t *testing.T) {
	tests := []struct {
		cfg   RegistryConfig
		field string
	}{
		{NpmConfig{Package: "p", Token: "t"}, "registry"},
		{NpmConfig{Registry: "r", Token: "t"}, "package"},
		{NpmConfig{Registry: "r", Package: "p"}, "token"},
		{NexusConfig{Repository: "r", Username: "u", Password: "p"}, "url"},
		{S3Config{Region: "eu-west-1"}, "bucket"},
		{S3Config{Bucket: "b"}, "region"},
		{S3Config{Bucket: "b", Region: "r", AccessKeyID: "id"}, "secretAccessKey"},
		{CustomConfig{}, "url"},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		require.Error(t, err, tt.cfg.Kind())
		field, _ := errs.ContextValue(err, "field")
		assert.Equal(t, tt.field, field, tt.cfg.Kind())
	}

	assert.NoError(t, S3Config{Bucket: "b", Region: "r"}.Validate())
}

func TestKeyStrategies(t *testing.T) {
	assert.Equal(t, "dist/1.2.0/app.zip", Key(StrategyVersion, "dist/", "1.2.0", "abc", "app.zip"))
	assert.Equal(t, "dist/1.2.0/app.zip", Key("", "dist/", "1.2.0", "abc", "app.zip"))
	assert.Equal(t, "dist/abc/app.zip", Key(StrategyHash, "dist/", "1.2.0", "abc", "app.zip"))
	assert.Equal(t, "dist/app.zip", Key(StrategyFlat, "dist/", "1.2.0", "abc", "app.zip"))
}

func TestCustomProbeFailureFailsOpen(t *testing.T) {
	var puts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		body, _ := io.ReadAll(r.Body)
		sum := md5.Sum(body)
		assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), r.Header.Get("Content-MD5"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "yes", r.Header.Get("X-Team"))
		puts++
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	cfg := CustomConfig{
		Common:  Common{Strategy: StrategyHash},
		URL:     srv.URL + "/artifacts/",
		Token:   "tok",
		Headers: map[string]string{"X-Team": "yes"},
	}
	res, err := newTestDispatcher().Publish(context.Background(), writeArtifact(t, "bundle.js", "code"), "", cfg)
	require.NoError(t, err)
	assert.True(t, res.Uploaded)
	assert.Equal(t, sha1Hex("code")+"/bundle.js", res.Key)
	assert.Equal(t, 1, puts)
}

func TestUploadFailureCarriesDiagnostics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("X-Request-Id", "req-42")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("no write permission"))
	}))
	defer srv.Close()

	_, err := newTestDispatcher().Publish(context.Background(), writeArtifact(t, "a.zip", "x"), "1.0.0",
		CustomConfig{URL: srv.URL})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errs.ErrUpload))
	assert.Contains(t, err.Error(), "no write permission")

	status, _ := errs.ContextValue(err, "status")
	assert.Equal(t, http.StatusForbidden, status)
	reqID, _ := errs.ContextValue(err, "request_id")
	assert.Equal(t, "req-42", reqID)
	class, _ := errs.ContextValue(err, "classification")
	assert.Equal(t, "access denied", class)
}

func TestUnresponsiveRegistryTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := CustomConfig{Common: Common{Timeout: 50 * time.Millisecond}, URL: srv.URL}
	start := time.Now()
	_, err := newTestDispatcher().Publish(context.Background(), writeArtifact(t, "a.zip", "x"), "1.0.0", cfg)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errs.ErrUpload))
	class, _ := errs.ContextValue(err, "classification")
	assert.Equal(t, "timeout", class)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestNpmPublish(t *testing.T) {
	var (
		mu        sync.Mutex
		published map[string]json.RawMessage
		doc       npmDocument
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "Bearer npm-token", r.Header.Get("Authorization"))

		switch r.Method {
		case http.MethodGet:
			if r.URL.Path == "/widget/2.0.0" && published != nil {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(published["2.0.0"])
				return
			}
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			assert.Equal(t, "/widget", r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
			published = map[string]json.RawMessage{"2.0.0": json.RawMessage(`{}`)}
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	cfg := NpmConfig{Registry: srv.URL, Package: "widget", Token: "npm-token", Tag: "next"}
	artifact := writeArtifact(t, "widget-2.0.0.tgz", "tarball-bytes")
	d := newTestDispatcher()

	res, err := d.Publish(context.Background(), artifact, "2.0.0", cfg)
	require.NoError(t, err)
	assert.True(t, res.Uploaded)
	assert.Equal(t, "widget@2.0.0", res.Key)

	assert.Equal(t, "2.0.0", doc.DistTags["next"])
	v := doc.Versions["2.0.0"]
	assert.Equal(t, sha1Hex("tarball-bytes"), v.Dist.Shasum)
	assert.True(t, strings.HasPrefix(v.Dist.Integrity, "sha512-"))
	assert.Equal(t, srv.URL+"/widget/-/widget-2.0.0.tgz", v.Dist.Tarball)
	att := doc.Attachments["widget-2.0.0.tgz"]
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("tarball-bytes")), att.Data)
	assert.EqualValues(t, len("tarball-bytes"), att.Length)

	again, err := d.Publish(context.Background(), artifact, "2.0.0", cfg)
	require.NoError(t, err)
	assert.True(t, again.Skipped)
}

func TestNpmScopedPackageURL(t *testing.T) {
	b := &npmBackend{cfg: NpmConfig{Registry: "https://npm.example.com/", Package: "@acme/widget"}}
	assert.Equal(t, "https://npm.example.com/@acme%2Fwidget", b.packageURL())
	assert.Equal(t, "widget-1.0.0.tgz", b.tarballName("1.0.0"))
	assert.Equal(t, "https://npm.example.com/@acme%2Fwidget/1.0.0", b.location(b.key(artifact{}, "1.0.0")))
}
