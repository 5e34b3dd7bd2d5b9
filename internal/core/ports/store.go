package ports

import (
	"context"

	"github.com/nulzo/model-registry/internal/core/domain"
)

// CatalogStore is the persistence contract of the registry. Each call is
// atomic for a single row. Implementations must enforce uniqueness of
// (natural key, kind) among visible, non-deleted rows and report violations
// as domain.ErrAlreadyExists; missing rows are domain.ErrNotFound.
type CatalogStore interface {
	// Create inserts entry and returns the id assigned by the store.
	Create(ctx context.Context, entry *domain.ModelEntry) (string, error)
	// FindByNaturalKeyAndKind returns a non-deleted row, restricted to
	// non-hidden rows when visibleOnly is set.
	FindByNaturalKeyAndKind(ctx context.Context, key string, kind domain.ModelKind, visibleOnly bool) (*domain.ModelEntry, error)
	// FindByID returns the non-deleted row with id.
	FindByID(ctx context.Context, id string) (*domain.ModelEntry, error)
	UpdateHidden(ctx context.Context, id string, hidden bool) error
	HardDelete(ctx context.Context, id string) error
	ListFiltered(ctx context.Context, filter domain.CatalogFilter) ([]domain.ModelEntry, error)

	GetSettings(ctx context.Context) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, settings *domain.Settings) error
	// UpsertBuiltin writes seeded, non-local rows keyed by model id.
	UpsertBuiltin(ctx context.Context, entries []domain.ModelEntry) error

	Close() error
}
