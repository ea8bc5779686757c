package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// requestIDHeaders are checked in order for a server-side request identifier.
var requestIDHeaders = []string{"X-Request-Id", "X-Amz-Request-Id", "Npm-Notice-Id", "X-Nexus-Request-Id"}

func requestID(resp *http.Response) string {
	for _, h := range requestIDHeaders {
		if v := resp.Header.Get(h); v != "" {
			return v
		}
	}
	return ""
}

// headExists issues a HEAD (or GET) request and maps 2xx to found and 404 to
// absent. Anything else is an error so the caller can fail open.
func headExists(ctx context.Context, client *http.Client, method, url string, decorate func(*http.Request)) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return false, err
	}
	if decorate != nil {
		decorate(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, responseFailure(resp, nil)
	}
}

// send performs req and converts a non-2xx response into a *failure.
func send(client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return responseFailure(resp, body)
}

func responseFailure(resp *http.Response, body []byte) *failure {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return &failure{
		Status:         resp.StatusCode,
		RequestID:      requestID(resp),
		Classification: classify(resp.StatusCode),
		Err:            fmt.Errorf("%s %s: %s", resp.Request.Method, resp.Request.URL.Redacted(), msg),
	}
}

// fileRequest builds a request that streams the artifact as its body.
func fileRequest(ctx context.Context, method, url string, a artifact) (*http.Request, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	req.ContentLength = a.Size
	req.Header.Set("Content-Type", "application/octet-stream")
	return req, nil
}

type nexusBackend struct {
	cfg    NexusConfig
	client *http.Client
}

func (b *nexusBackend) key(a artifact, version string) string {
	return Key(b.cfg.Strategy, b.cfg.Prefix, version, a.SHA1, a.Name)
}

func (b *nexusBackend) location(key string) string {
	return joinURL(strings.TrimRight(b.cfg.URL, "/")+"/repository/"+b.cfg.Repository, key)
}

func (b *nexusBackend) auth(req *http.Request) {
	req.SetBasicAuth(b.cfg.Username, b.cfg.Password)
}

func (b *nexusBackend) exists(ctx context.Context, key string) (bool, error) {
	return headExists(ctx, b.client, http.MethodHead, b.location(key), b.auth)
}

func (b *nexusBackend) upload(ctx context.Context, key, _ string, a artifact) error {
	req, err := fileRequest(ctx, http.MethodPut, b.location(key), a)
	if err != nil {
		return err
	}
	b.auth(req)
	req.Header.Set("X-Checksum-Sha1", a.SHA1)
	req.Header.Set("X-Checksum-Md5", fmt.Sprintf("%x", a.MD5))
	return send(b.client, req)
}

type customBackend struct {
	cfg    CustomConfig
	client *http.Client
}

func (b *customBackend) key(a artifact, version string) string {
	return Key(b.cfg.Strategy, b.cfg.Prefix, version, a.SHA1, a.Name)
}

func (b *customBackend) location(key string) string {
	return joinURL(b.cfg.URL, key)
}

func (b *customBackend) decorate(req *http.Request) {
	for k, v := range b.cfg.Headers {
		req.Header.Set(k, v)
	}
	if b.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.Token)
	}
}

func (b *customBackend) exists(ctx context.Context, key string) (bool, error) {
	return headExists(ctx, b.client, http.MethodHead, b.location(key), b.decorate)
}

func (b *customBackend) upload(ctx context.Context, key, _ string, a artifact) error {
	method := b.cfg.Method
	if method == "" {
		method = http.MethodPut
	}
	req, err := fileRequest(ctx, method, b.location(key), a)
	if err != nil {
		return err
	}
	b.decorate(req)
	req.Header.Set("Content-MD5", a.md5Base64())
	req.Header.Set("X-Checksum-Sha1", a.SHA1)
	return send(b.client, req)
}
