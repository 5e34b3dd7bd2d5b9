package domain

import (
	"strings"
	"time"
)

// ModelKind separates the chat and embedding namespaces of the catalog.
type ModelKind string

const (
	ModelKindChat      ModelKind = "chat"
	ModelKindEmbedding ModelKind = "embedding"
)

func (k ModelKind) Valid() bool {
	return k == ModelKindChat || k == ModelKindEmbedding
}

// ProviderKind is the backend family a catalog entry is served by, as stored.
// ProviderLocal is an OpenAI-compatible endpoint.
type ProviderKind string

const (
	ProviderLocal       ProviderKind = "local"
	ProviderOllama      ProviderKind = "ollama"
	ProviderReplicate   ProviderKind = "replicate"
	ProviderTransformer ProviderKind = "transformer"
	ProviderOther       ProviderKind = "other"
)

// APIType is the provider selector accepted from administrators.
type APIType string

const (
	APITypeOpenAI      APIType = "openai"
	APITypeOllama      APIType = "ollama"
	APITypeReplicate   APIType = "replicate"
	APITypeTransformer APIType = "transformer"
)

// ChatProvider maps the api type of a chat registration to the stored provider.
func (t APIType) ChatProvider() (ProviderKind, error) {
	switch t {
	case APITypeOpenAI:
		return ProviderLocal, nil
	case APITypeOllama:
		return ProviderOllama, nil
	case APITypeReplicate:
		return ProviderReplicate, nil
	default:
		return "", InvalidArgumentError("Unsupported api_type for chat model: " + string(t))
	}
}

// EmbeddingProvider maps the api type of an embedding registration.
func (t APIType) EmbeddingProvider() (ProviderKind, error) {
	switch t {
	case APITypeOpenAI:
		return ProviderLocal, nil
	case APITypeOllama:
		return ProviderOllama, nil
	case APITypeTransformer:
		return ProviderTransformer, nil
	default:
		return "", InvalidArgumentError("Unsupported api_type for embedding model: " + string(t))
	}
}

// DefaultProviders are the built-in provider names kept when default models
// are hidden. Mixed-case duplicates match rows written by older releases.
var DefaultProviders = []string{"Local", "local", "ollama", "transformer", "Transformer"}

// ReplicateModelsURL is the base URL stored for every Replicate entry.
const ReplicateModelsURL = "https://api.replicate.com/v1/models/"

// ConnectionConfig holds how to reach a model. APIKey is opaque.
type ConnectionConfig struct {
	BaseURL string `json:"baseURL,omitempty"`
	APIKey  string `json:"apiKey,omitempty"`
}

// ModelEntry is one catalog row.
type ModelEntry struct {
	ID              string           `json:"id"`
	ModelID         string           `json:"model_id"`
	NaturalKey      string           `json:"-"`
	Name            string           `json:"name"`
	Kind            ModelKind        `json:"model_type"`
	Provider        ProviderKind     `json:"model_provider"`
	IsLocal         bool             `json:"local_model"`
	StreamAvailable bool             `json:"stream_available"`
	Config          ConnectionConfig `json:"-"`
	Hidden          bool             `json:"hide"`
	Deleted         bool             `json:"deleted"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// RemoteModel is one model reported by a provider's discovery endpoint.
type RemoteModel struct {
	ID    string `json:"id"`
	Label string `json:"object"`
}

// RemoteModelInfo is the result of validating a single remote model.
type RemoteModelInfo struct {
	CanonicalName string
}

// Caller is the authenticated principal invoking an operation.
type Caller struct {
	ID      string
	IsAdmin bool
}

// Settings are the persisted catalog-wide toggles.
type Settings struct {
	HideDefaultModels bool `json:"hide_default_models"`
}

// CatalogFilter is the store-level view of a listing query.
type CatalogFilter struct {
	// nil means every provider
	ProviderKinds  []string
	ExcludeDeleted bool
	ExcludeHidden  bool
}

// NormalizeBaseURL removes trailing slashes.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
