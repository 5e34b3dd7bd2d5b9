// Package factory resolves provider adapters by api type.
package factory

import (
	"time"

	"github.com/nulzo/model-registry/internal/adapters/providers/ollama"
	"github.com/nulzo/model-registry/internal/adapters/providers/openai"
	"github.com/nulzo/model-registry/internal/adapters/providers/replicate"
	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/core/ports"
	"go.uber.org/zap"
)

type Config struct {
	Timeout          time.Duration
	OpenAIReferer    string
	OpenAITitle      string
	ReplicateBaseURL string
	Logger           *zap.Logger
}

// ProviderFactory holds one stateless adapter per backend family.
type ProviderFactory struct {
	openai    *openai.Adapter
	ollama    *ollama.Adapter
	replicate *replicate.Adapter
}

var _ ports.AdapterSet = (*ProviderFactory)(nil)

func NewProviderFactory(cfg Config) *ProviderFactory {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProviderFactory{
		openai: openai.NewAdapter(openai.Config{
			Timeout: cfg.Timeout,
			Referer: cfg.OpenAIReferer,
			Title:   cfg.OpenAITitle,
			Logger:  logger.Named("openai"),
		}),
		ollama: ollama.NewAdapter(ollama.Config{
			Timeout: cfg.Timeout,
			Logger:  logger.Named("ollama"),
		}),
		replicate: replicate.NewAdapter(replicate.Config{
			Timeout: cfg.Timeout,
			BaseURL: cfg.ReplicateBaseURL,
			Logger:  logger.Named("replicate"),
		}),
	}
}

func (f *ProviderFactory) Discoverer(apiType domain.APIType) (ports.Discoverer, error) {
	switch apiType {
	case domain.APITypeOpenAI:
		return f.openai, nil
	case domain.APITypeOllama:
		return f.ollama, nil
	case domain.APITypeReplicate, domain.APITypeTransformer:
		return nil, domain.InvalidArgumentError("model discovery is not supported for api_type " + string(apiType))
	default:
		return nil, domain.InvalidArgumentError("unknown api_type: " + string(apiType))
	}
}

func (f *ProviderFactory) Validator(apiType domain.APIType) (ports.Validator, error) {
	switch apiType {
	case domain.APITypeReplicate:
		return f.replicate, nil
	case domain.APITypeOpenAI, domain.APITypeOllama, domain.APITypeTransformer:
		return nil, domain.InvalidArgumentError("remote validation is not supported for api_type " + string(apiType))
	default:
		return nil, domain.InvalidArgumentError("unknown api_type: " + string(apiType))
	}
}
