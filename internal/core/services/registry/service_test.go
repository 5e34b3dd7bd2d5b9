package registry

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/nulzo/model-registry/internal/adapters/cache/memory"
	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/identifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	admin = domain.Caller{ID: "admin-1", IsAdmin: true}
	user  = domain.Caller{ID: "user-1"}
)

func newTestService(store *MockStore, adapters *fakeAdapters, opts ...Option) *Service {
	opts = append([]Option{WithIDGenerator(&seqIDs{})}, opts...)
	return NewService(store, adapters, opts...)
}

func TestRegisterChatModel_Replicate(t *testing.T) {
	store := &MockStore{}
	adapters := newFakeAdapters()
	svc := NewService(store, adapters)

	adapters.replicate.On("Validate", mock.Anything, "owner/model", "r8-token").
		Return(&domain.RemoteModelInfo{CanonicalName: "Model X"}, nil)
	store.On("FindByNaturalKeyAndKind", mock.Anything, "owner/model", domain.ModelKindChat, true).
		Return(nil, domain.ErrNotFound)

	var created *domain.ModelEntry
	store.On("Create", mock.Anything, mock.AnythingOfType("*domain.ModelEntry")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.ModelEntry) }).
		Return("row-1", nil)

	err := svc.RegisterChatModel(context.Background(), admin, RegisterChatInput{
		APIType:         domain.APITypeReplicate,
		ModelID:         "owner/model",
		Name:            "ignored",
		APIKey:          "r8-token",
		StreamAvailable: true,
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "Model X", created.Name)
	assert.Equal(t, domain.ProviderReplicate, created.Provider)
	assert.Equal(t, "owner/model", created.NaturalKey)
	assert.True(t, created.IsLocal)
	assert.True(t, created.StreamAvailable)
	assert.Equal(t, domain.ModelKindChat, created.Kind)
	assert.Equal(t, domain.ConnectionConfig{BaseURL: "https://api.replicate.com/v1/models/", APIKey: "r8-token"}, created.Config)
	assert.Regexp(t, regexp.MustCompile(`^owner/model_dialoqbase_\d+_[0-9a-z]{16}$`), created.ModelID)
	assert.Equal(t, "row-1", created.ID)
}

func TestRegisterChatModel_ReplicateErrorsPropagate(t *testing.T) {
	for _, remoteErr := range []error{
		domain.NotFoundError("Model not found"),
		domain.NewError(domain.KindUnauthorized, "Unauthorized"),
		domain.NewError(domain.KindForbiddenRemote, "Forbidden"),
		domain.UnavailableError("Internal Server Error", errors.New("502")),
	} {
		store := &MockStore{}
		adapters := newFakeAdapters()
		svc := newTestService(store, adapters)

		adapters.replicate.On("Validate", mock.Anything, "owner/model", "tok").Return(nil, remoteErr)

		err := svc.RegisterChatModel(context.Background(), admin, RegisterChatInput{
			APIType: domain.APITypeReplicate, ModelID: "owner/model", APIKey: "tok",
		})

		assert.Equal(t, domain.KindOf(remoteErr), domain.KindOf(err))
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	}
}

func TestRegisterChatModel_OpenAIAndOllama(t *testing.T) {
	tests := []struct {
		apiType  domain.APIType
		provider domain.ProviderKind
	}{
		{domain.APITypeOpenAI, domain.ProviderLocal},
		{domain.APITypeOllama, domain.ProviderOllama},
	}

	for _, tt := range tests {
		t.Run(string(tt.apiType), func(t *testing.T) {
			store := &MockStore{}
			adapters := newFakeAdapters()
			svc := newTestService(store, adapters)

			store.On("FindByNaturalKeyAndKind", mock.Anything, "llama3", domain.ModelKindChat, true).
				Return(nil, domain.ErrNotFound)
			store.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.ModelEntry) bool {
				return e.Provider == tt.provider &&
					e.Name == "Llama 3" &&
					e.Config.BaseURL == "http://localhost:11434" &&
					e.Config.APIKey == "key" &&
					e.ModelID == "llama3_dialoqbase_1700000000000_1"
			})).Return("row-1", nil)

			err := svc.RegisterChatModel(context.Background(), admin, RegisterChatInput{
				APIType: tt.apiType,
				ModelID: " llama3 ",
				Name:    "Llama 3",
				APIKey:  "key",
				URL:     "http://localhost:11434///",
			})

			require.NoError(t, err)
			store.AssertExpectations(t)
			adapters.openai.AssertNotCalled(t, "Discover", mock.Anything, mock.Anything)
			adapters.ollama.AssertNotCalled(t, "Discover", mock.Anything, mock.Anything)
		})
	}
}

func TestRegisterChatModel_UnsupportedAPIType(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	err := svc.RegisterChatModel(context.Background(), admin, RegisterChatInput{APIType: "transformer", ModelID: "x"})

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterChatModel_EmptyModelID(t *testing.T) {
	svc := newTestService(&MockStore{}, newFakeAdapters())

	err := svc.RegisterChatModel(context.Background(), admin, RegisterChatInput{APIType: domain.APITypeOpenAI, ModelID: "   "})

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

// Second registration of the same natural key and kind is rejected.
func TestRegister_Uniqueness(t *testing.T) {
	store := &MockStore{}
	adapters := newFakeAdapters()
	svc := newTestService(store, adapters)

	store.On("FindByNaturalKeyAndKind", mock.Anything, "gpt-4o", domain.ModelKindChat, true).
		Return(nil, domain.ErrNotFound).Once()
	store.On("Create", mock.Anything, mock.Anything).Return("row-1", nil).Once()
	store.On("FindByNaturalKeyAndKind", mock.Anything, "gpt-4o", domain.ModelKindChat, true).
		Return(&domain.ModelEntry{ID: "row-1"}, nil).Once()

	in := RegisterChatInput{APIType: domain.APITypeOpenAI, ModelID: "gpt-4o", URL: "http://x"}
	require.NoError(t, svc.RegisterChatModel(context.Background(), admin, in))

	err := svc.RegisterChatModel(context.Background(), admin, in)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Equal(t, "Model already exist", domain.MessageOf(err))
	store.AssertNumberOfCalls(t, "Create", 1)
}

// A unique violation raised by the store wins over the pre-check.
func TestRegister_StoreConstraintViolation(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	store.On("FindByNaturalKeyAndKind", mock.Anything, "m", domain.ModelKindChat, true).Return(nil, domain.ErrNotFound)
	store.On("Create", mock.Anything, mock.Anything).Return("", domain.WrapError(domain.KindAlreadyExists, "unique", errors.New("constraint")))

	err := svc.RegisterChatModel(context.Background(), admin, RegisterChatInput{APIType: domain.APITypeOllama, ModelID: "m"})

	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.Equal(t, "Model already exist", domain.MessageOf(err))
}

func TestRegister_StoreFailureIsInternal(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	store.On("FindByNaturalKeyAndKind", mock.Anything, "m", domain.ModelKindChat, true).Return(nil, errors.New("disk I/O error"))

	err := svc.RegisterChatModel(context.Background(), admin, RegisterChatInput{APIType: domain.APITypeOllama, ModelID: "m"})

	assert.ErrorIs(t, err, domain.ErrInternal)
}

// Embedding uniqueness is scoped to the embedding namespace; the same name
// may still be registered as a chat model.
func TestRegisterEmbedding_SeparateNamespace(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	store.On("FindByNaturalKeyAndKind", mock.Anything, "nomic-embed", domain.ModelKindEmbedding, true).
		Return(&domain.ModelEntry{ID: "existing", Kind: domain.ModelKindEmbedding}, nil)
	store.On("FindByNaturalKeyAndKind", mock.Anything, "nomic-embed", domain.ModelKindChat, true).
		Return(nil, domain.ErrNotFound)
	store.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.ModelEntry) bool {
		return e.Kind == domain.ModelKindChat
	})).Return("row-2", nil)

	err := svc.RegisterEmbeddingModel(context.Background(), admin, RegisterEmbeddingInput{
		APIType: domain.APITypeOllama, ModelID: "nomic-embed", ModelName: "Nomic",
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	err = svc.RegisterChatModel(context.Background(), admin, RegisterChatInput{
		APIType: domain.APITypeOllama, ModelID: "nomic-embed",
	})
	assert.NoError(t, err)
	store.AssertNumberOfCalls(t, "Create", 1)
}

func TestRegisterEmbedding_Mapping(t *testing.T) {
	tests := []struct {
		apiType  domain.APIType
		provider domain.ProviderKind
	}{
		{domain.APITypeOpenAI, domain.ProviderLocal},
		{domain.APITypeOllama, domain.ProviderOllama},
		{domain.APITypeTransformer, domain.ProviderTransformer},
	}

	for _, tt := range tests {
		t.Run(string(tt.apiType), func(t *testing.T) {
			store := &MockStore{}
			svc := NewService(store, newFakeAdapters(), WithIDGenerator(identifier.New()))

			store.On("FindByNaturalKeyAndKind", mock.Anything, "bge-small", domain.ModelKindEmbedding, true).Return(nil, domain.ErrNotFound)

			var created *domain.ModelEntry
			store.On("Create", mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { created = args.Get(1).(*domain.ModelEntry) }).
				Return("row-1", nil)

			err := svc.RegisterEmbeddingModel(context.Background(), admin, RegisterEmbeddingInput{
				APIType: tt.apiType, ModelID: "bge-small", ModelName: "BGE",
			})

			require.NoError(t, err)
			assert.Equal(t, tt.provider, created.Provider)
			assert.Equal(t, "", created.Config.BaseURL)
			assert.Regexp(t, `^dialoqbase_eb_bge-small_dialoqbase_\d+_[0-9a-z]{16}$`, created.ModelID)
		})
	}
}

func TestRegisterEmbedding_UnknownAPIType(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	err := svc.RegisterEmbeddingModel(context.Background(), admin, RegisterEmbeddingInput{APIType: domain.APITypeReplicate, ModelID: "x"})

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	store.AssertNotCalled(t, "FindByNaturalKeyAndKind", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Non-admin callers never reach the store or adapters.
func TestNonAdminIsForbidden(t *testing.T) {
	store := &MockStore{}
	adapters := newFakeAdapters()
	svc := newTestService(store, adapters)
	ctx := context.Background()

	calls := map[string]func() error{
		"register chat": func() error {
			return svc.RegisterChatModel(ctx, user, RegisterChatInput{APIType: domain.APITypeReplicate, ModelID: "a/b"})
		},
		"register embedding": func() error {
			return svc.RegisterEmbeddingModel(ctx, user, RegisterEmbeddingInput{APIType: domain.APITypeOllama, ModelID: "a"})
		},
		"toggle": func() error { return svc.ToggleVisibility(ctx, user, "row-1") },
		"delete": func() error { return svc.Delete(ctx, user, "row-1") },
		"list": func() error {
			_, err := svc.ListCatalog(ctx, user, false)
			return err
		},
		"discover": func() error {
			_, err := svc.DiscoverRemote(ctx, user, domain.APITypeOllama, domain.ConnectionConfig{BaseURL: "http://x"})
			return err
		},
		"settings": func() error { return svc.UpdateSettings(ctx, user, domain.Settings{HideDefaultModels: true}) },
	}

	for name, call := range calls {
		err := call()
		assert.ErrorIs(t, err, domain.ErrForbidden, name)
		assert.Equal(t, "Forbidden", domain.MessageOf(err), name)
	}

	assert.Empty(t, store.Calls)
	assert.Empty(t, adapters.replicate.Calls)
	assert.Empty(t, adapters.ollama.Calls)
}

func TestToggleVisibility_Twice(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())
	ctx := context.Background()

	entry := &domain.ModelEntry{ID: "row-1", Hidden: false, IsLocal: true}
	store.On("FindByID", mock.Anything, "row-1").Return(entry, nil)
	store.On("UpdateHidden", mock.Anything, "row-1", mock.AnythingOfType("bool")).
		Run(func(args mock.Arguments) { entry.Hidden = args.Bool(2) }).
		Return(nil)

	require.NoError(t, svc.ToggleVisibility(ctx, admin, "row-1"))
	assert.True(t, entry.Hidden)
	require.NoError(t, svc.ToggleVisibility(ctx, admin, "row-1"))
	assert.False(t, entry.Hidden)
}

func TestToggleVisibility_UnhideCollision(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	store.On("FindByID", mock.Anything, "row-1").Return(&domain.ModelEntry{ID: "row-1", Hidden: true}, nil)
	store.On("UpdateHidden", mock.Anything, "row-1", false).Return(domain.ErrAlreadyExists)

	err := svc.ToggleVisibility(context.Background(), admin, "row-1")

	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestToggleVisibility_NotFound(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	store.On("FindByID", mock.Anything, "gone").Return(nil, domain.ErrNotFound)

	err := svc.ToggleVisibility(context.Background(), admin, "gone")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Model not found", domain.MessageOf(err))
	store.AssertNotCalled(t, "UpdateHidden", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete_NonLocalIsRejected(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	store.On("FindByID", mock.Anything, "builtin").Return(&domain.ModelEntry{ID: "builtin", IsLocal: false}, nil)

	err := svc.Delete(context.Background(), admin, "builtin")

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, "Only local model can be deleted", domain.MessageOf(err))
	store.AssertNotCalled(t, "HardDelete", mock.Anything, mock.Anything)
}

func TestDelete_Local(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	store.On("FindByID", mock.Anything, "row-1").Return(&domain.ModelEntry{ID: "row-1", IsLocal: true}, nil)
	store.On("HardDelete", mock.Anything, "row-1").Return(nil)

	require.NoError(t, svc.Delete(context.Background(), admin, "row-1"))
	store.AssertExpectations(t)
}

func TestDelete_Missing(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	store.On("FindByID", mock.Anything, "row-9").Return(nil, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(context.Background(), admin, "row-9"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), admin, ""), domain.ErrNotFound)
}

func TestDiscoverRemote(t *testing.T) {
	store := &MockStore{}
	adapters := newFakeAdapters()
	svc := newTestService(store, adapters)

	want := []domain.RemoteModel{{ID: "llama3", Label: "llama3"}}
	adapters.ollama.On("Discover", mock.Anything, domain.ConnectionConfig{BaseURL: "http://localhost:11434"}).Return(want, nil)

	got, err := svc.DiscoverRemote(context.Background(), admin, domain.APITypeOllama, domain.ConnectionConfig{BaseURL: "http://localhost:11434/"})

	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDiscoverRemote_OllamaUnreachable(t *testing.T) {
	adapters := newFakeAdapters()
	svc := newTestService(&MockStore{}, adapters)

	cause := domain.UnavailableError("failed to list ollama tags", errors.New("connection refused"))
	adapters.ollama.On("Discover", mock.Anything, mock.Anything).Return(nil, cause)

	_, err := svc.DiscoverRemote(context.Background(), admin, domain.APITypeOllama, domain.ConnectionConfig{BaseURL: "http://127.0.0.1:1"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, domain.MessageOf(err), "Ollama is running")
	assert.ErrorIs(t, errors.Unwrap(err), domain.ErrUnavailable)
}

func TestDiscoverRemote_OpenAIEmpty(t *testing.T) {
	adapters := newFakeAdapters()
	svc := newTestService(&MockStore{}, adapters)

	adapters.openai.On("Discover", mock.Anything, mock.Anything).Return([]domain.RemoteModel{}, nil)

	_, err := svc.DiscoverRemote(context.Background(), admin, domain.APITypeOpenAI, domain.ConnectionConfig{BaseURL: "http://x"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, domain.MessageOf(err), "make sure the api key is correct")
}

func TestDiscoverRemote_Unsupported(t *testing.T) {
	svc := newTestService(&MockStore{}, newFakeAdapters())

	_, err := svc.DiscoverRemote(context.Background(), admin, domain.APITypeReplicate, domain.ConnectionConfig{})

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestListCatalog(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	store.On("ListFiltered", mock.Anything, domain.CatalogFilter{ExcludeDeleted: true}).Return([]domain.ModelEntry{
		{ID: "1", Kind: domain.ModelKindChat, Provider: domain.ProviderReplicate, Config: domain.ConnectionConfig{APIKey: "secret"}},
		{ID: "2", Kind: domain.ModelKindEmbedding, Provider: domain.ProviderOllama},
		{ID: "3", Kind: domain.ModelKindChat, Provider: domain.ProviderLocal, Hidden: true},
	}, nil)

	got, err := svc.ListCatalog(context.Background(), admin, false)

	require.NoError(t, err)
	require.Len(t, got.Chat, 2)
	require.Len(t, got.Embedding, 1)
	assert.True(t, got.Chat[1].Hidden)
	assert.Empty(t, got.Chat[0].Config.APIKey)
}

func TestListCatalog_HideDefaults(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	store.On("ListFiltered", mock.Anything, domain.CatalogFilter{
		ProviderKinds:  domain.DefaultProviders,
		ExcludeDeleted: true,
	}).Return([]domain.ModelEntry{{ID: "1", Provider: domain.ProviderLocal}}, nil)

	got, err := svc.ListCatalog(context.Background(), admin, true)

	require.NoError(t, err)
	assert.Len(t, got.Chat, 1)
	assert.NotNil(t, got.Embedding)
}

func TestListVisible_DropsHidden(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())

	store.On("GetSettings", mock.Anything).Return(&domain.Settings{}, nil)
	store.On("ListFiltered", mock.Anything, domain.CatalogFilter{ExcludeDeleted: true}).Return([]domain.ModelEntry{
		{ID: "1", Kind: domain.ModelKindChat},
		{ID: "2", Kind: domain.ModelKindChat, Hidden: true},
	}, nil)

	got, err := svc.ListVisible(context.Background(), user)

	require.NoError(t, err)
	require.Len(t, got.Chat, 1)
	assert.Equal(t, "1", got.Chat[0].ID)
}

func TestListCatalog_CachedUntilMutation(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters(), WithCache(memory.NewMemoryCache(), 0))
	ctx := context.Background()

	store.On("ListFiltered", mock.Anything, domain.CatalogFilter{ExcludeDeleted: true}).
		Return([]domain.ModelEntry{{ID: "1", Kind: domain.ModelKindChat, IsLocal: true}}, nil)

	_, err := svc.ListCatalog(ctx, admin, false)
	require.NoError(t, err)
	got, err := svc.ListCatalog(ctx, admin, false)
	require.NoError(t, err)
	assert.Len(t, got.Chat, 1)
	store.AssertNumberOfCalls(t, "ListFiltered", 1)

	store.On("FindByID", mock.Anything, "1").Return(&domain.ModelEntry{ID: "1", IsLocal: true}, nil)
	store.On("HardDelete", mock.Anything, "1").Return(nil)
	require.NoError(t, svc.Delete(ctx, admin, "1"))

	_, err = svc.ListCatalog(ctx, admin, false)
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "ListFiltered", 2)
}

func TestSettings(t *testing.T) {
	store := &MockStore{}
	svc := newTestService(store, newFakeAdapters())
	ctx := context.Background()

	store.On("UpdateSettings", mock.Anything, &domain.Settings{HideDefaultModels: true}).Return(nil)
	store.On("GetSettings", mock.Anything).Return(&domain.Settings{HideDefaultModels: true}, nil)

	require.NoError(t, svc.UpdateSettings(ctx, admin, domain.Settings{HideDefaultModels: true}))

	got, err := svc.GetSettings(ctx, admin)
	require.NoError(t, err)
	assert.True(t, got.HideDefaultModels)

	_, err = svc.GetSettings(ctx, user)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
