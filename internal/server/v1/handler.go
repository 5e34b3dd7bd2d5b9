package v1

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/core/services/registry"
	"github.com/nulzo/model-registry/internal/server/middleware"
)

// Registry is the subset of registry.Service the HTTP layer calls.
type Registry interface {
	ListCatalog(ctx context.Context, caller domain.Caller, hideDefaults bool, providers ...string) (*registry.Catalog, error)
	ListVisible(ctx context.Context, caller domain.Caller) (*registry.Catalog, error)
	DiscoverRemote(ctx context.Context, caller domain.Caller, apiType domain.APIType, conn domain.ConnectionConfig) ([]domain.RemoteModel, error)
	RegisterChatModel(ctx context.Context, caller domain.Caller, in registry.RegisterChatInput) error
	RegisterEmbeddingModel(ctx context.Context, caller domain.Caller, in registry.RegisterEmbeddingInput) error
	ToggleVisibility(ctx context.Context, caller domain.Caller, id string) error
	Delete(ctx context.Context, caller domain.Caller, id string) error
	GetSettings(ctx context.Context, caller domain.Caller) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, caller domain.Caller, settings domain.Settings) error
}

var _ Registry = (*registry.Service)(nil)

// success is the acknowledgement body of every mutation.
var success = gin.H{"message": "success"}

func caller(c *gin.Context) domain.Caller {
	caller, _ := middleware.CallerFrom(c.Request.Context())
	return caller
}
