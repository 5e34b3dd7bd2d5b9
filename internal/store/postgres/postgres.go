// Package postgres is the gorm backed catalog store for multi-instance
// deployments.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/core/ports"
	"github.com/nulzo/model-registry/internal/store/model"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Repository struct {
	db *gorm.DB
}

var _ ports.CatalogStore = (*Repository)(nil)

// Open connects to dsn and migrates the schema, including the partial unique
// index over visible, non-deleted rows.
func Open(dsn string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(
			zap.NewStdLog(logger.Named("gorm")),
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&model.Model{}, &model.Settings{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Repository{db: db}, nil
}

// NewRepository wraps an already migrated connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *Repository) Create(ctx context.Context, entry *domain.ModelEntry) (string, error) {
	row, err := model.FromEntry(entry)
	if err != nil {
		return "", domain.InternalError("Internal Server Error", err)
	}
	row.ID = model.NewID()

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", mapError(err)
	}

	entry.CreatedAt = row.CreatedAt
	entry.UpdatedAt = row.UpdatedAt
	return row.ID, nil
}

func (r *Repository) FindByNaturalKeyAndKind(ctx context.Context, key string, kind domain.ModelKind, visibleOnly bool) (*domain.ModelEntry, error) {
	q := r.db.WithContext(ctx).
		Where("natural_key = ? AND model_type = ? AND deleted = ?", key, string(kind), false)
	if visibleOnly {
		q = q.Where("hide = ?", false)
	}

	var row model.Model
	if err := q.Order("created_at").First(&row).Error; err != nil {
		return nil, mapError(err)
	}
	e := row.ToEntry()
	return &e, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*domain.ModelEntry, error) {
	var row model.Model
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted = ?", id, false).
		First(&row).Error
	if err != nil {
		return nil, mapError(err)
	}
	e := row.ToEntry()
	return &e, nil
}

func (r *Repository) UpdateHidden(ctx context.Context, id string, hidden bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.Model{}).
		Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]any{
			"hide":       hidden,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) HardDelete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Model{})
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) ListFiltered(ctx context.Context, filter domain.CatalogFilter) ([]domain.ModelEntry, error) {
	if filter.ProviderKinds != nil && len(filter.ProviderKinds) == 0 {
		return []domain.ModelEntry{}, nil
	}

	q := r.db.WithContext(ctx).Model(&model.Model{})
	if filter.ExcludeDeleted {
		q = q.Where("deleted = ?", false)
	}
	if filter.ExcludeHidden {
		q = q.Where("hide = ?", false)
	}
	if filter.ProviderKinds != nil {
		q = q.Where("model_provider IN ?", filter.ProviderKinds)
	}

	var rows []model.Model
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, mapError(err)
	}
	return model.ToEntries(rows), nil
}

func (r *Repository) GetSettings(ctx context.Context) (*domain.Settings, error) {
	var row model.Settings
	err := r.db.WithContext(ctx).Where("id = ?", model.SettingsID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.Settings{}, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &domain.Settings{HideDefaultModels: row.HideDefaultModels}, nil
}

func (r *Repository) UpdateSettings(ctx context.Context, settings *domain.Settings) error {
	row := model.Settings{ID: model.SettingsID, HideDefaultModels: settings.HideDefaultModels}
	// Save upserts on the primary key.
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return mapError(err)
	}
	return nil
}

// UpsertBuiltin writes the seeded rows in one transaction, keyed by model id.
// Existing rows keep their hidden flag.
func (r *Repository) UpsertBuiltin(ctx context.Context, entries []domain.ModelEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			row, err := model.FromEntry(&entries[i])
			if err != nil {
				return domain.InternalError("Internal Server Error", err)
			}
			row.LocalModel = false
			row.Deleted = false

			var existing model.Model
			err = tx.Where("model_id = ?", row.ModelID).First(&existing).Error
			switch {
			case err == nil:
				err = tx.Model(&existing).Updates(map[string]any{
					"natural_key":      row.NaturalKey,
					"model_type":       row.ModelType,
					"name":             row.Name,
					"model_provider":   row.ModelProvider,
					"local_model":      false,
					"stream_available": row.StreamAvailable,
					"config":           row.Config,
					"updated_at":       time.Now(),
				}).Error
			case errors.Is(err, gorm.ErrRecordNotFound):
				row.ID = model.NewID()
				err = tx.Create(&row).Error
			}
			if err != nil {
				return fmt.Errorf("upsert %s: %w", row.ModelID, mapError(err))
			}
		}
		return nil
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.WrapError(domain.KindAlreadyExists, "Model already exist", err)
	default:
		return domain.InternalError("Internal Server Error", err)
	}
}
