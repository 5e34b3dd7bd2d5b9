// Package replicate validates model references against the Replicate API.
package replicate

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/httpclient"
	"github.com/nulzo/model-registry/internal/platform/metrics"
	"go.uber.org/zap"
)

const providerName = "replicate"

type Config struct {
	Timeout time.Duration
	// Defaults to domain.ReplicateModelsURL.
	BaseURL string
	Logger  *zap.Logger
}

type Adapter struct {
	client  *httpclient.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

func NewAdapter(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = domain.ReplicateModelsURL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Adapter{
		client:  httpclient.New(providerName, httpclient.WithTimeout(cfg.Timeout), httpclient.WithLogger(cfg.Logger)),
		baseURL: domain.NormalizeBaseURL(cfg.BaseURL),
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

type modelResponse struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
	// Version lookups return id instead of name.
	ID string `json:"id"`
}

// Validate resolves modelName ("owner/model" or "owner/model:version").
func (a *Adapter) Validate(ctx context.Context, modelName, credential string) (info *domain.RemoteModelInfo, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAdapterCall(providerName, "validate", start, err) }()

	path, err := ResourcePath(modelName)
	if err != nil {
		return nil, err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var resp modelResponse
	err = a.client.Do(ctx, httpclient.Request{
		URL:        a.baseURL + "/" + path,
		AuthScheme: "Token",
		AuthToken:  credential,
	}, &resp)
	if err != nil {
		return nil, mapError(err)
	}

	return &domain.RemoteModelInfo{CanonicalName: resp.Name}, nil
}

// IsVersioned reports whether name pins a version with ":".
func IsVersioned(name string) bool {
	return len(strings.Split(name, ":")) > 1
}

// ResourcePath returns the path below the models endpoint for name.
// Unversioned names are used as-is; versioned names become
// {owner}/{model}/versions/{version}.
func ResourcePath(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.InvalidArgumentError("model_id is required")
	}
	if !IsVersioned(name) {
		return name, nil
	}

	owner, rest, ok := strings.Cut(name, "/")
	if !ok || owner == "" {
		return "", domain.InvalidArgumentError("versioned model must look like owner/model:version")
	}
	model, version, _ := strings.Cut(rest, ":")
	version, _, _ = strings.Cut(version, ":")
	if model == "" || version == "" || strings.Contains(model, "/") {
		return "", domain.InvalidArgumentError("versioned model must look like owner/model:version")
	}

	return owner + "/" + model + "/versions/" + version, nil
}

func mapError(err error) error {
	switch httpclient.StatusCode(err) {
	case http.StatusNotFound:
		return domain.WrapError(domain.KindNotFound, "Model not found", err)
	case http.StatusUnauthorized:
		return domain.WrapError(domain.KindUnauthorized, "Unauthorized", err)
	case http.StatusForbidden:
		return domain.WrapError(domain.KindForbiddenRemote, "Forbidden", err)
	default:
		return domain.UnavailableError("Internal Server Error", err)
	}
}
