package registry

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, entry *domain.ModelEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func (m *MockStore) FindByNaturalKeyAndKind(ctx context.Context, key string, kind domain.ModelKind, visibleOnly bool) (*domain.ModelEntry, error) {
	args := m.Called(ctx, key, kind, visibleOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelEntry), args.Error(1)
}

func (m *MockStore) FindByID(ctx context.Context, id string) (*domain.ModelEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelEntry), args.Error(1)
}

func (m *MockStore) UpdateHidden(ctx context.Context, id string, hidden bool) error {
	return m.Called(ctx, id, hidden).Error(0)
}

func (m *MockStore) HardDelete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore) ListFiltered(ctx context.Context, filter domain.CatalogFilter) ([]domain.ModelEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ModelEntry), args.Error(1)
}

func (m *MockStore) GetSettings(ctx context.Context) (*domain.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Settings), args.Error(1)
}

func (m *MockStore) UpdateSettings(ctx context.Context, settings *domain.Settings) error {
	return m.Called(ctx, settings).Error(0)
}

func (m *MockStore) UpsertBuiltin(ctx context.Context, entries []domain.ModelEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *MockStore) Close() error { return nil }

type MockDiscoverer struct {
	mock.Mock
}

func (m *MockDiscoverer) Discover(ctx context.Context, conn domain.ConnectionConfig) ([]domain.RemoteModel, error) {
	args := m.Called(ctx, conn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RemoteModel), args.Error(1)
}

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(ctx context.Context, modelName, credential string) (*domain.RemoteModelInfo, error) {
	args := m.Called(ctx, modelName, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemoteModelInfo), args.Error(1)
}

// fakeAdapters mirrors the production dispatch table with mocks behind it.
type fakeAdapters struct {
	openai    *MockDiscoverer
	ollama    *MockDiscoverer
	replicate *MockValidator
}

func newFakeAdapters() *fakeAdapters {
	return &fakeAdapters{
		openai:    &MockDiscoverer{},
		ollama:    &MockDiscoverer{},
		replicate: &MockValidator{},
	}
}

func (f *fakeAdapters) Discoverer(apiType domain.APIType) (ports.Discoverer, error) {
	switch apiType {
	case domain.APITypeOpenAI:
		return f.openai, nil
	case domain.APITypeOllama:
		return f.ollama, nil
	default:
		return nil, domain.InvalidArgumentError("unsupported")
	}
}

func (f *fakeAdapters) Validator(apiType domain.APIType) (ports.Validator, error) {
	if apiType == domain.APITypeReplicate {
		return f.replicate, nil
	}
	return nil, domain.InvalidArgumentError("unsupported")
}

type seqIDs struct {
	n atomic.Int64
}

func (s *seqIDs) Namespace(raw string, kind domain.ModelKind) string {
	prefix := ""
	if kind == domain.ModelKindEmbedding {
		prefix = "dialoqbase_eb_"
	}
	return prefix + raw + "_dialoqbase_1700000000000_" + strconv.FormatInt(s.n.Add(1), 10)
}
