package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/core/ports"
	"github.com/nulzo/model-registry/internal/store/model"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SqliteRepository implements ports.CatalogStore
type SqliteRepository struct {
	db       *sqlx.DB // Required for starting new transactions
	executor DB       // Used for actual queries (can be *sqlx.DB or *sqlx.Tx)
	now      func() time.Time
}

var _ ports.CatalogStore = (*SqliteRepository)(nil)

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{
		db:       db,
		executor: db,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) WithTx(ctx context.Context, fn func(repo *SqliteRepository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &SqliteRepository{
		db:       r.db,
		executor: tx,
		now:      r.now,
	}

	if err := fn(txRepo); err != nil {
		// attempt rollback, but prioritize original error
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

const insertModel = `
	INSERT INTO models (
		id, model_id, natural_key, model_type, name, model_provider,
		local_model, stream_available, config, hide, deleted, created_at, updated_at
	) VALUES (
		:id, :model_id, :natural_key, :model_type, :name, :model_provider,
		:local_model, :stream_available, :config, :hide, :deleted, :created_at, :updated_at
	)`

func (r *SqliteRepository) Create(ctx context.Context, entry *domain.ModelEntry) (string, error) {
	row, err := model.FromEntry(entry)
	if err != nil {
		return "", domain.InternalError("Internal Server Error", err)
	}

	row.ID = model.NewID()
	row.CreatedAt = r.now()
	row.UpdatedAt = row.CreatedAt

	if _, err := r.executor.NamedExecContext(ctx, insertModel, row); err != nil {
		return "", mapError(err)
	}

	entry.CreatedAt = row.CreatedAt
	entry.UpdatedAt = row.UpdatedAt
	return row.ID, nil
}

func (r *SqliteRepository) FindByNaturalKeyAndKind(ctx context.Context, key string, kind domain.ModelKind, visibleOnly bool) (*domain.ModelEntry, error) {
	query := `SELECT * FROM models WHERE natural_key = ? AND model_type = ? AND deleted = 0`
	if visibleOnly {
		query += ` AND hide = 0`
	}
	query += ` ORDER BY created_at LIMIT 1`

	var row model.Model
	if err := r.executor.GetContext(ctx, &row, query, key, string(kind)); err != nil {
		return nil, mapError(err)
	}
	e := row.ToEntry()
	return &e, nil
}

func (r *SqliteRepository) FindByID(ctx context.Context, id string) (*domain.ModelEntry, error) {
	var row model.Model
	if err := r.executor.GetContext(ctx, &row, `SELECT * FROM models WHERE id = ? AND deleted = 0`, id); err != nil {
		return nil, mapError(err)
	}
	e := row.ToEntry()
	return &e, nil
}

func (r *SqliteRepository) UpdateHidden(ctx context.Context, id string, hidden bool) error {
	res, err := r.executor.ExecContext(ctx,
		`UPDATE models SET hide = ?, updated_at = ? WHERE id = ? AND deleted = 0`,
		hidden, r.now(), id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (r *SqliteRepository) HardDelete(ctx context.Context, id string) error {
	res, err := r.executor.ExecContext(ctx, `DELETE FROM models WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(res)
}

func (r *SqliteRepository) ListFiltered(ctx context.Context, filter domain.CatalogFilter) ([]domain.ModelEntry, error) {
	if filter.ProviderKinds != nil && len(filter.ProviderKinds) == 0 {
		return []domain.ModelEntry{}, nil
	}

	var (
		where []string
		args  []interface{}
	)
	if filter.ExcludeDeleted {
		where = append(where, "deleted = 0")
	}
	if filter.ExcludeHidden {
		where = append(where, "hide = 0")
	}
	if filter.ProviderKinds != nil {
		where = append(where, "model_provider IN (?)")
		args = append(args, filter.ProviderKinds)
	}

	query := `SELECT * FROM models`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	if len(args) > 0 {
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return nil, domain.InternalError("Internal Server Error", err)
		}
		query = r.db.Rebind(query)
	}

	var rows []model.Model
	if err := r.executor.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError(err)
	}
	return model.ToEntries(rows), nil
}

func (r *SqliteRepository) GetSettings(ctx context.Context) (*domain.Settings, error) {
	var row model.Settings
	err := r.executor.GetContext(ctx, &row, `SELECT * FROM settings WHERE id = ?`, model.SettingsID)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.Settings{}, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &domain.Settings{HideDefaultModels: row.HideDefaultModels}, nil
}

func (r *SqliteRepository) UpdateSettings(ctx context.Context, settings *domain.Settings) error {
	_, err := r.executor.ExecContext(ctx, `
		INSERT INTO settings (id, hide_default_models, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			hide_default_models = excluded.hide_default_models,
			updated_at = excluded.updated_at`,
		model.SettingsID, settings.HideDefaultModels, r.now())
	if err != nil {
		return mapError(err)
	}
	return nil
}

const updateBuiltin = `
	UPDATE models SET
		natural_key = :natural_key,
		model_type = :model_type,
		name = :name,
		model_provider = :model_provider,
		local_model = 0,
		stream_available = :stream_available,
		config = :config,
		updated_at = :updated_at
	WHERE id = :id`

// UpsertBuiltin writes the seeded rows in one transaction, keyed by model id.
// Seeded rows are never local. Existing rows keep their hidden flag.
func (r *SqliteRepository) UpsertBuiltin(ctx context.Context, entries []domain.ModelEntry) error {
	return r.WithTx(ctx, func(tx *SqliteRepository) error {
		now := tx.now()
		for i := range entries {
			row, err := model.FromEntry(&entries[i])
			if err != nil {
				return domain.InternalError("Internal Server Error", err)
			}
			row.LocalModel = false
			row.Deleted = false
			row.UpdatedAt = now

			var existing string
			err = tx.executor.GetContext(ctx, &existing, `SELECT id FROM models WHERE model_id = ?`, row.ModelID)
			switch {
			case err == nil:
				row.ID = existing
				_, err = tx.executor.NamedExecContext(ctx, updateBuiltin, row)
			case errors.Is(err, sql.ErrNoRows):
				row.ID = model.NewID()
				row.CreatedAt = now
				_, err = tx.executor.NamedExecContext(ctx, insertModel, row)
			}
			if err != nil {
				return fmt.Errorf("upsert %s: %w", row.ModelID, mapError(err))
			}
		}
		return nil
	})
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.InternalError("Internal Server Error", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// mapError translates driver errors into domain errors.
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return domain.WrapError(domain.KindAlreadyExists, "Model already exist", err)
		}
	}

	return domain.InternalError("Internal Server Error", err)
}
