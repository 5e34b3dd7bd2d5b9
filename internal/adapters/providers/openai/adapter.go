// Package openai discovers models served by OpenAI-compatible endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/httpclient"
	"github.com/nulzo/model-registry/internal/platform/metrics"
	"go.uber.org/zap"
)

const (
	DefaultReferer = "https://dialoqbase.n4ze3m.com/"
	DefaultTitle   = "Dialoqbase"

	providerName = "openai"
)

type Config struct {
	Timeout time.Duration
	// Sent as HTTP-Referer and X-Title on every discovery call.
	Referer string
	Title   string
	Logger  *zap.Logger
}

type Adapter struct {
	client  *httpclient.Client
	timeout time.Duration
	logger  *zap.Logger
}

func NewAdapter(cfg Config) *Adapter {
	if cfg.Referer == "" {
		cfg.Referer = DefaultReferer
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Adapter{
		client: httpclient.New(providerName,
			httpclient.WithTimeout(cfg.Timeout),
			httpclient.WithLogger(cfg.Logger),
			httpclient.WithHeader("HTTP-Referer", cfg.Referer),
			httpclient.WithHeader("X-Title", cfg.Title),
		),
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// modelItem covers the fields different OpenAI-compatible servers use to
// describe a model.
type modelItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

type listEnvelope struct {
	Data []modelItem `json:"data"`
}

// Discover calls GET {base}/models. Servers answer either with a bare array
// or with the {"data": [...]} envelope; both are accepted.
func (a *Adapter) Discover(ctx context.Context, conn domain.ConnectionConfig) (models []domain.RemoteModel, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAdapterCall(providerName, "discover", start, err) }()

	base := domain.NormalizeBaseURL(conn.BaseURL)
	if base == "" {
		return nil, domain.InvalidArgumentError("url is required")
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var raw json.RawMessage
	err = a.client.Do(ctx, httpclient.Request{
		URL:       base + "/models",
		AuthToken: conn.APIKey,
	}, &raw)
	if err != nil {
		return nil, domain.UnavailableError("failed to list models", err)
	}

	items, err := decodeModelList(raw)
	if err != nil {
		return nil, domain.UnavailableError("unexpected model list format", err)
	}

	models = make([]domain.RemoteModel, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		models = append(models, domain.RemoteModel{ID: item.ID, Label: item.label()})
	}

	a.logger.Debug("discovered models", zap.String("provider", providerName), zap.Int("count", len(models)))
	return models, nil
}

func (m modelItem) label() string {
	switch {
	case m.DisplayName != "":
		return m.DisplayName
	case m.Name != "":
		return m.Name
	default:
		return m.ID
	}
}

func decodeModelList(raw json.RawMessage) ([]modelItem, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty body")
	}

	if trimmed[0] == '[' {
		var items []modelItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var env listEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}
