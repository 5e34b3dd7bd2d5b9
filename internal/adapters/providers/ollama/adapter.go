// Package ollama discovers models pulled into a local Ollama server.
package ollama

import (
	"context"
	"time"

	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/httpclient"
	"github.com/nulzo/model-registry/internal/platform/metrics"
	"go.uber.org/zap"
)

const providerName = "ollama"

type Config struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

type Adapter struct {
	client  *httpclient.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewAdapter(cfg Config) *Adapter {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Adapter{
		client:  httpclient.New(providerName, httpclient.WithTimeout(cfg.Timeout), httpclient.WithLogger(cfg.Logger)),
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

// Discover lists local tags via GET {base}/api/tags. Ollama ignores the api
// key, so conn.APIKey is not sent.
func (a *Adapter) Discover(ctx context.Context, conn domain.ConnectionConfig) (models []domain.RemoteModel, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAdapterCall(providerName, "discover", start, err) }()

	base := domain.NormalizeBaseURL(conn.BaseURL)
	if base == "" {
		return nil, domain.InvalidArgumentError("ollama_url is required")
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var resp tagsResponse
	if err = a.client.GetJSON(ctx, base+"/api/tags", nil, &resp); err != nil {
		return nil, domain.UnavailableError("failed to list ollama tags", err)
	}

	models = make([]domain.RemoteModel, 0, len(resp.Models))
	for _, m := range resp.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		if name == "" {
			continue
		}
		models = append(models, domain.RemoteModel{ID: name, Label: name})
	}

	a.logger.Debug("discovered models", zap.String("provider", providerName), zap.Int("count", len(models)))
	return models, nil
}
