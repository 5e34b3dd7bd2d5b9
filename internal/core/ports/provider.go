package ports

import (
	"context"

	"github.com/nulzo/model-registry/internal/core/domain"
)

// Discoverer lists the models a backend currently serves.
type Discoverer interface {
	Discover(ctx context.Context, conn domain.ConnectionConfig) ([]domain.RemoteModel, error)
}

// Validator checks that a single named model exists on a backend.
type Validator interface {
	Validate(ctx context.Context, modelName, credential string) (*domain.RemoteModelInfo, error)
}

// AdapterSet resolves the adapter serving an api type. Lookups for types
// without the requested capability fail with domain.ErrInvalidArgument.
type AdapterSet interface {
	Discoverer(apiType domain.APIType) (Discoverer, error)
	Validator(apiType domain.APIType) (Validator, error)
}
