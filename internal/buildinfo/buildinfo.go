// Package buildinfo holds the release version and checks GitHub for newer
// releases at startup.
package buildinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/nulzo/model-registry/internal/httpclient"
	"go.uber.org/zap"
)

// Set with -ldflags "-X github.com/nulzo/model-registry/internal/buildinfo.Version=v1.2.3".
var (
	Version = "v0.0.0"
	Commit  = "unknown"
)

const githubAPI = "https://api.github.com"

type GitHubRelease struct {
	TagName string `json:"tag_name"`
}

// UpdateChecker compares the running version against the latest release of
// a GitHub repository ("owner/name").
type UpdateChecker struct {
	client  *httpclient.Client
	baseURL string
	repo    string
	current string
	logger  *zap.Logger
}

type Option func(*UpdateChecker)

func WithBaseURL(u string) Option {
	return func(c *UpdateChecker) { c.baseURL = u }
}

func WithCurrentVersion(v string) Option {
	return func(c *UpdateChecker) { c.current = v }
}

func NewUpdateChecker(repo string, logger *zap.Logger, opts ...Option) *UpdateChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &UpdateChecker{
		client:  httpclient.New("github", httpclient.WithTimeout(2*time.Second), httpclient.WithLogger(logger)),
		baseURL: githubAPI,
		repo:    repo,
		current: Version,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Latest returns the tag of the newest release and whether it is newer than
// the running version.
func (c *UpdateChecker) Latest(ctx context.Context) (string, bool, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.baseURL, c.repo)

	var release GitHubRelease
	if err := c.client.GetJSON(ctx, url, nil, &release); err != nil {
		return "", false, err
	}

	current, err := version.NewVersion(c.current)
	if err != nil {
		return "", false, fmt.Errorf("parse current version %q: %w", c.current, err)
	}
	latest, err := version.NewVersion(release.TagName)
	if err != nil {
		return "", false, fmt.Errorf("parse release tag %q: %w", release.TagName, err)
	}

	return release.TagName, current.LessThan(latest), nil
}

// Check logs a warning when a newer release exists. Failures are logged at
// debug level only; the check never blocks startup.
func (c *UpdateChecker) Check(ctx context.Context) {
	tag, outdated, err := c.Latest(ctx)
	if err != nil {
		c.logger.Debug("update check failed", zap.Error(err))
		return
	}
	if outdated {
		c.logger.Warn("running an outdated version",
			zap.String("current", c.current),
			zap.String("latest", tag),
		)
	}
}
