// Package registry implements the admin operations over the model catalog.
package registry

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/core/ports"
	"github.com/nulzo/model-registry/internal/core/services/catalog"
	"github.com/nulzo/model-registry/internal/identifier"
	"github.com/nulzo/model-registry/internal/platform/logger"
	"github.com/nulzo/model-registry/internal/platform/metrics"
	tracing "github.com/nulzo/model-registry/internal/platform/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheTTL = 5 * time.Minute

	msgAlreadyExists = "Model already exist"
	msgNotFound      = "Model not found"
	msgOnlyLocal     = "Only local model can be deleted"

	msgOllamaUnreachable = "Unable to fetch models from Ollama. Make sure Ollama is running and the url is correct"
	msgOpenAIUnreachable = "Unable to fetch models. Make sure the url is correct and if the model is protected by api key, make sure the api key is correct"
)

// IDGenerator mints namespaced model ids.
type IDGenerator interface {
	Namespace(raw string, kind domain.ModelKind) string
}

// Catalog is the listing returned to administrators.
type Catalog struct {
	Chat      []domain.ModelEntry `json:"data"`
	Embedding []domain.ModelEntry `json:"embedding"`
}

type RegisterChatInput struct {
	APIType         domain.APIType
	ModelID         string
	Name            string
	APIKey          string
	URL             string
	StreamAvailable bool
}

type RegisterEmbeddingInput struct {
	APIType   domain.APIType
	ModelID   string
	ModelName string
	APIKey    string
	URL       string
}

type Service struct {
	store    ports.CatalogStore
	adapters ports.AdapterSet
	ids      IDGenerator
	cache    ports.CacheService
	cacheTTL time.Duration
	group    singleflight.Group
	// bumped on every mutation; scopes shared listing fills
	mutations atomic.Int64
	logger    *zap.Logger
}

type Option func(*Service)

// WithCache enables the listing cache. A nil cache disables it.
func WithCache(c ports.CacheService, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.ids = g
		}
	}
}

func NewService(store ports.CatalogStore, adapters ports.AdapterSet, opts ...Option) *Service {
	s := &Service{
		store:    store,
		adapters: adapters,
		ids:      identifier.New(),
		cacheTTL: defaultCacheTTL,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListCatalog returns every non-deleted entry, hidden ones included, split by
// kind. With hideDefaults only the built-in provider set is listed; providers,
// when given, further restricts the listing to those stored provider names.
func (s *Service) ListCatalog(ctx context.Context, caller domain.Caller, hideDefaults bool, providers ...string) (*Catalog, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	entries, err := s.list(ctx, catalog.Query{
		HideDefaults:  hideDefaults,
		Providers:     providers,
		IncludeHidden: true,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("catalog listed",
		zap.Bool("hide_defaults", hideDefaults),
		zap.Strings("providers", providers),
		zap.Int("count", len(entries)),
		zap.String("actor", caller.ID),
	)

	chat, embedding := catalog.Partition(entries)
	return &Catalog{Chat: chat, Embedding: embedding}, nil
}

// ListVisible is the catalog as non-admin callers see it: hidden rows are
// dropped and the persisted hide_default_models setting applies.
func (s *Service) ListVisible(ctx context.Context, caller domain.Caller) (*Catalog, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	entries, err := s.list(ctx, catalog.Query{HideDefaults: settings.HideDefaultModels})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("visible catalog listed",
		zap.Int("count", len(entries)),
		zap.String("actor", caller.ID),
	)

	chat, embedding := catalog.Partition(entries)
	return &Catalog{Chat: chat, Embedding: embedding}, nil
}

// DiscoverRemote lists the models served by a backend. Unreachable and empty
// backends are both reported as not found.
func (s *Service) DiscoverRemote(ctx context.Context, caller domain.Caller, apiType domain.APIType, conn domain.ConnectionConfig) (_ []domain.RemoteModel, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "registry.DiscoverRemote",
		trace.WithAttributes(attribute.String("api_type", string(apiType))))
	defer func() { endSpan(span, err) }()

	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	d, err := s.adapters.Discoverer(apiType)
	if err != nil {
		return nil, err
	}

	conn.BaseURL = domain.NormalizeBaseURL(conn.BaseURL)

	models, err := d.Discover(ctx, conn)
	if err != nil || len(models) == 0 {
		msg := msgOpenAIUnreachable
		if apiType == domain.APITypeOllama {
			msg = msgOllamaUnreachable
		}
		s.logger.Warn("model discovery failed",
			zap.String("api_type", string(apiType)),
			zap.String("url", conn.BaseURL),
			logger.Secret("api_key", conn.APIKey),
			zap.Int("count", len(models)),
			zap.Error(err),
		)
		return nil, domain.WrapError(domain.KindNotFound, msg, err)
	}

	return models, nil
}

// RegisterChatModel validates Replicate references remotely, then stores a
// new chat entry under a freshly namespaced id.
func (s *Service) RegisterChatModel(ctx context.Context, caller domain.Caller, in RegisterChatInput) (err error) {
	ctx, span := tracing.Tracer().Start(ctx, "registry.RegisterChatModel")
	defer func() {
		metrics.ObserveMutation("register_chat", err)
		endSpan(span, err)
	}()

	if err = requireAdmin(caller); err != nil {
		return err
	}

	key := identifier.NaturalKey(in.ModelID)
	if key == "" {
		return domain.InvalidArgumentError("model_id is required")
	}

	entry := &domain.ModelEntry{
		NaturalKey:      key,
		Kind:            domain.ModelKindChat,
		IsLocal:         true,
		StreamAvailable: in.StreamAvailable,
	}

	if in.APIType == domain.APITypeReplicate {
		v, err := s.adapters.Validator(in.APIType)
		if err != nil {
			return err
		}
		info, err := v.Validate(ctx, in.ModelID, in.APIKey)
		if err != nil {
			return err
		}

		entry.Name = info.CanonicalName
		entry.Provider = domain.ProviderReplicate
		entry.Config = domain.ConnectionConfig{BaseURL: domain.ReplicateModelsURL, APIKey: in.APIKey}
	} else {
		provider, err := in.APIType.ChatProvider()
		if err != nil {
			return err
		}

		entry.Name = in.Name
		entry.Provider = provider
		entry.Config = domain.ConnectionConfig{BaseURL: domain.NormalizeBaseURL(in.URL), APIKey: in.APIKey}
	}

	if strings.TrimSpace(entry.Name) == "" {
		entry.Name = key
	}

	return s.create(ctx, caller, entry)
}

// RegisterEmbeddingModel stores a new embedding entry. Nothing is validated
// remotely.
func (s *Service) RegisterEmbeddingModel(ctx context.Context, caller domain.Caller, in RegisterEmbeddingInput) (err error) {
	ctx, span := tracing.Tracer().Start(ctx, "registry.RegisterEmbeddingModel")
	defer func() {
		metrics.ObserveMutation("register_embedding", err)
		endSpan(span, err)
	}()

	if err = requireAdmin(caller); err != nil {
		return err
	}

	key := identifier.NaturalKey(in.ModelID)
	if key == "" {
		return domain.InvalidArgumentError("model_id is required")
	}

	provider, err := in.APIType.EmbeddingProvider()
	if err != nil {
		return err
	}

	name := in.ModelName
	if strings.TrimSpace(name) == "" {
		name = key
	}

	return s.create(ctx, caller, &domain.ModelEntry{
		NaturalKey: key,
		Name:       name,
		Kind:       domain.ModelKindEmbedding,
		Provider:   provider,
		IsLocal:    true,
		Config:     domain.ConnectionConfig{BaseURL: domain.NormalizeBaseURL(in.URL), APIKey: in.APIKey},
	})
}

// ToggleVisibility flips the hidden flag of an active entry.
func (s *Service) ToggleVisibility(ctx context.Context, caller domain.Caller, id string) (err error) {
	ctx, span := tracing.Tracer().Start(ctx, "registry.ToggleVisibility")
	defer func() {
		metrics.ObserveMutation("toggle_visibility", err)
		endSpan(span, err)
	}()

	if err = requireAdmin(caller); err != nil {
		return err
	}

	entry, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	hidden := !entry.Hidden
	if err = s.store.UpdateHidden(ctx, entry.ID, hidden); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.WrapError(domain.KindAlreadyExists, msgAlreadyExists, err)
		}
		return storeError(err)
	}

	s.invalidate(ctx)
	s.logger.Info("model visibility changed",
		zap.String("id", entry.ID),
		zap.String("model_id", entry.ModelID),
		zap.Bool("hidden", hidden),
		zap.String("actor", caller.ID),
	)
	return nil
}

// Delete removes a local entry for good. Built-in entries cannot be deleted.
func (s *Service) Delete(ctx context.Context, caller domain.Caller, id string) (err error) {
	ctx, span := tracing.Tracer().Start(ctx, "registry.Delete")
	defer func() {
		metrics.ObserveMutation("delete", err)
		endSpan(span, err)
	}()

	if err = requireAdmin(caller); err != nil {
		return err
	}

	entry, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if !entry.IsLocal {
		return domain.InvalidArgumentError(msgOnlyLocal)
	}

	if err = s.store.HardDelete(ctx, entry.ID); err != nil {
		return storeError(err)
	}

	s.invalidate(ctx)
	s.logger.Info("model deleted",
		zap.String("id", entry.ID),
		zap.String("model_id", entry.ModelID),
		zap.String("provider", string(entry.Provider)),
		zap.String("actor", caller.ID),
	)
	return nil
}

func (s *Service) GetSettings(ctx context.Context, caller domain.Caller) (*domain.Settings, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, caller domain.Caller, settings domain.Settings) (err error) {
	ctx, span := tracing.Tracer().Start(ctx, "registry.UpdateSettings")
	defer func() {
		metrics.ObserveMutation("update_settings", err)
		endSpan(span, err)
	}()

	if err = requireAdmin(caller); err != nil {
		return err
	}
	if err = s.store.UpdateSettings(ctx, &settings); err != nil {
		return storeError(err)
	}

	s.logger.Info("settings updated",
		zap.Bool("hide_default_models", settings.HideDefaultModels),
		zap.String("actor", caller.ID),
	)
	return nil
}

func (s *Service) create(ctx context.Context, caller domain.Caller, entry *domain.ModelEntry) error {
	if err := s.ensureUnique(ctx, entry.NaturalKey, entry.Kind); err != nil {
		return err
	}

	entry.ModelID = s.ids.Namespace(entry.NaturalKey, entry.Kind)

	id, err := s.store.Create(ctx, entry)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.WrapError(domain.KindAlreadyExists, msgAlreadyExists, err)
		}
		return storeError(err)
	}
	entry.ID = id

	s.invalidate(ctx)
	s.logger.Info("model registered",
		zap.String("id", id),
		zap.String("model_id", entry.ModelID),
		zap.String("provider", string(entry.Provider)),
		zap.String("kind", string(entry.Kind)),
		zap.String("actor", caller.ID),
	)
	return nil
}

// ensureUnique fails when a visible, non-deleted entry already uses key.
// The store's unique index remains the authority under concurrent writes.
func (s *Service) ensureUnique(ctx context.Context, key string, kind domain.ModelKind) error {
	_, err := s.store.FindByNaturalKeyAndKind(ctx, key, kind, true)
	switch {
	case err == nil:
		return domain.AlreadyExistsError(msgAlreadyExists)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return storeError(err)
	}
}

func (s *Service) find(ctx context.Context, id string) (*domain.ModelEntry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NotFoundError(msgNotFound)
	}
	entry, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.WrapError(domain.KindNotFound, msgNotFound, err)
		}
		return nil, storeError(err)
	}
	return entry, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.MessageOf(err))
		span.SetAttributes(attribute.String("error.kind", string(domain.KindOf(err))))
	}
	span.End()
}

func requireAdmin(caller domain.Caller) error {
	if !caller.IsAdmin {
		return domain.ForbiddenError()
	}
	return nil
}

// storeError keeps tagged store errors and wraps anything else as internal.
func storeError(err error) error {
	var e *domain.Error
	if errors.As(err, &e) {
		return err
	}
	return domain.InternalError("Internal Server Error", err)
}
