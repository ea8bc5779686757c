// Package ghrelease creates GitHub releases for tags pushed by a release run.
package ghrelease

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	errs "github.com/rohankatakam/monorel/internal/errors"
)

// Client wraps the GitHub API client with rate limiting for one repository.
type Client struct {
	client      *github.Client
	rateLimiter *rate.Limiter
	owner       string
	repo        string
	token       string
	logger      logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		if u, err := url.Parse(base); err == nil {
			c.client.BaseURL = u
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		base := c.client.BaseURL
		c.client = github.NewClient(hc).WithAuthToken(c.token)
		c.client.BaseURL = base
	}
}

// NewClient creates a client for owner/repo. rateLimit is in requests per
// second; values below 1 mean 1.
func NewClient(owner, repo, token string, rateLimit int, logger logrus.FieldLogger, opts ...Option) *Client {
	if rateLimit < 1 {
		rateLimit = 1
	}
	c := &Client{
		client:      github.NewClient(nil).WithAuthToken(token),
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		owner:       owner,
		repo:        repo,
		token:       token,
		logger:      logger.WithFields(logrus.Fields{"component": "github", "repo": owner + "/" + repo}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Release describes the GitHub release for one tag.
type Release struct {
	Tag        string
	Name       string
	Body       string
	Prerelease bool
}

// Result reports what EnsureRelease did.
type Result struct {
	URL     string
	Created bool
}

// EnsureRelease creates the release for r.Tag unless one already exists.
// An existing release is left untouched.
func (c *Client) EnsureRelease(ctx context.Context, r Release) (Result, error) {
	if r.Tag == "" {
		return Result{}, errs.ValidationError("release tag is required")
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limiter: %w", err)
	}
	existing, _, err := c.client.Repositories.GetReleaseByTag(ctx, c.owner, c.repo, r.Tag)
	if err == nil {
		c.logger.WithField("tag", r.Tag).Info("github release already exists")
		return Result{URL: existing.GetHTMLURL()}, nil
	}
	if !isNotFound(err) {
		return Result{}, errs.Wrap(err, errs.ErrorTypeUpload, errs.SeverityMedium, "look up github release "+r.Tag)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limiter: %w", err)
	}
	name := r.Name
	if name == "" {
		name = r.Tag
	}
	created, _, err := c.client.Repositories.CreateRelease(ctx, c.owner, c.repo, &github.RepositoryRelease{
		TagName:    github.String(r.Tag),
		Name:       github.String(name),
		Body:       github.String(r.Body),
		Prerelease: github.Bool(r.Prerelease),
	})
	if err != nil {
		return Result{}, errs.Wrap(err, errs.ErrorTypeUpload, errs.SeverityMedium, "create github release "+r.Tag)
	}

	c.logger.WithFields(logrus.Fields{"tag": r.Tag, "url": created.GetHTMLURL()}).Info("created github release")
	return Result{URL: created.GetHTMLURL(), Created: true}, nil
}

func isNotFound(err error) bool {
	var ghErr *github.ErrorResponse
	if stderrors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
