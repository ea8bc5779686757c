// Package publish uploads built artifacts to npm, Nexus, S3 or plain HTTP
// registries. Every backend runs the same protocol: validate, derive the key,
// probe for an existing upload, then upload with integrity metadata.
package publish

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/rohankatakam/monorel/internal/version"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Result describes one publish call.
type Result struct {
	Uploaded bool
	URL      string
	Skipped  bool
	Reason   string
	Key      string
	SHA1     string
}

// Publisher uploads one artifact for one resolved version.
type Publisher interface {
	Publish(ctx context.Context, artifactPath, version string, cfg RegistryConfig) (Result, error)
}

type backend interface {
	key(a artifact, version string) string
	location(key string) string
	// exists returns false, nil when the key is definitely absent.
	exists(ctx context.Context, key string) (bool, error)
	upload(ctx context.Context, key, version string, a artifact) error
}

// Dispatcher implements Publisher by routing each config to its backend.
type Dispatcher struct {
	logger  logrus.FieldLogger
	client  *http.Client
	limiter *rate.Limiter
	newS3   func(ctx context.Context, cfg S3Config) (s3API, error)
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithHTTPClient replaces the client used by the npm, Nexus and custom backends.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithRateLimit caps registry requests per second across all backends.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(d *Dispatcher) { d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// NewDispatcher returns a Dispatcher with a 10 requests/second limit.
func NewDispatcher(logger logrus.FieldLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger:  logger,
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
		newS3:   newS3Client,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish uploads artifactPath for ver unless an upload already exists at the
// derived key. Configuration problems are returned before any network call.
func (d *Dispatcher) Publish(ctx context.Context, artifactPath, ver string, cfg RegistryConfig) (Result, error) {
	if cfg == nil {
		return Result{}, errs.ConfigError("no registry configured")
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	common := cfg.settings()
	if ver == "" && (common.Strategy == "" || common.Strategy == StrategyVersion || cfg.Kind() == "npm") {
		return Result{}, errs.ConfigErrorf("%s registry: a version is required", cfg.Kind())
	}
	if ver != "" && !version.Valid(ver) {
		return Result{}, errs.ConfigErrorf("%s registry: invalid version %q", cfg.Kind(), ver)
	}

	a, err := loadArtifact(artifactPath)
	if err != nil {
		return Result{}, err
	}

	b, err := d.backendFor(ctx, cfg)
	if err != nil {
		return Result{}, err
	}

	key := b.key(a, ver)
	res := Result{Key: key, SHA1: a.SHA1, URL: b.location(key)}
	log := d.logger.WithFields(logrus.Fields{
		"registry": cfg.Kind(),
		"key":      key,
		"artifact": a.Name,
	})

	if !common.Force {
		found, err := d.probe(ctx, common, b, key)
		switch {
		case err != nil:
			log.WithError(err).Warn("existence check failed; uploading anyway")
		case found:
			res.Skipped = true
			res.Reason = fmt.Sprintf("%s already exists in %s registry", key, cfg.Kind())
			log.Info("artifact already published, skipping upload")
			return res, nil
		}
	}

	if err := d.wait(ctx); err != nil {
		return res, wrapUploadError(cfg.Kind(), key, err)
	}
	callCtx, cancel := context.WithTimeout(ctx, common.timeout())
	defer cancel()

	if err := b.upload(callCtx, key, ver, a); err != nil {
		return res, wrapUploadError(cfg.Kind(), key, err)
	}

	res.Uploaded = true
	log.WithField("url", res.URL).Info("artifact uploaded")
	return res, nil
}

func (d *Dispatcher) probe(ctx context.Context, common Common, b backend, key string) (bool, error) {
	if err := d.wait(ctx); err != nil {
		return false, err
	}
	callCtx, cancel := context.WithTimeout(ctx, common.timeout())
	defer cancel()
	return b.exists(callCtx, key)
}

func (d *Dispatcher) wait(ctx context.Context) error {
	if d.limiter == nil {
		return nil
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (d *Dispatcher) backendFor(ctx context.Context, cfg RegistryConfig) (backend, error) {
	switch c := cfg.(type) {
	case NpmConfig:
		return &npmBackend{cfg: c, client: d.client}, nil
	case NexusConfig:
		return &nexusBackend{cfg: c, client: d.client}, nil
	case CustomConfig:
		return &customBackend{cfg: c, client: d.client}, nil
	case S3Config:
		api, err := d.newS3(ctx, c)
		if err != nil {
			return nil, errs.ConfigErrorf("s3 registry: %v", err)
		}
		return &s3Backend{cfg: c, api: api}, nil
	default:
		return nil, errs.ConfigErrorf("unsupported registry type %T", cfg)
	}
}

// failure carries registry diagnostics from a backend to wrapUploadError.
type failure struct {
	Status         int
	RequestID      string
	Classification string
	Err            error
}

func (f *failure) Error() string {
	msg := f.Err.Error()
	if f.Classification != "" {
		msg = f.Classification + ": " + msg
	}
	if f.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, f.Status)
	}
	return msg
}

func (f *failure) Unwrap() error { return f.Err }

// classify maps an HTTP status to a well-known failure class.
func classify(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "auth failed"
	case http.StatusForbidden:
		return "access denied"
	case http.StatusNotFound:
		return "not found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "payload too large"
	}
	if status >= 500 {
		return "server error"
	}
	return ""
}

func wrapUploadError(kind, key string, err error) error {
	e := errs.UploadErrorf(err, "%s upload of %s failed", kind, key).
		WithContext("registry", kind).
		WithContext("key", key)

	var f *failure
	if stderrors.As(err, &f) {
		if f.Status != 0 {
			e = e.WithContext("status", f.Status)
		}
		if f.RequestID != "" {
			e = e.WithContext("request_id", f.RequestID)
		}
		if f.Classification != "" {
			e = e.WithContext("classification", f.Classification)
		}
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		e = e.WithContext("classification", "timeout")
	}
	return e
}
