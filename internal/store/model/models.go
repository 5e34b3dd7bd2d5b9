package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/model-registry/internal/core/domain"
)

// ActiveKeyIndex is the partial unique index over visible, non-deleted rows.
const ActiveKeyIndex = "idx_models_active_key"

// Model is one catalog row as persisted by every store.
type Model struct {
	ID              string    `db:"id" gorm:"primaryKey;type:varchar(36)"`
	ModelID         string    `db:"model_id" gorm:"column:model_id;not null;uniqueIndex"`
	NaturalKey      string    `db:"natural_key" gorm:"column:natural_key;not null;uniqueIndex:idx_models_active_key,where:hide = false AND deleted = false"`
	ModelType       string    `db:"model_type" gorm:"column:model_type;not null;default:chat;uniqueIndex:idx_models_active_key"`
	Name            string    `db:"name" gorm:"column:name;not null"`
	ModelProvider   string    `db:"model_provider" gorm:"column:model_provider;not null;index"`
	LocalModel      bool      `db:"local_model" gorm:"column:local_model;not null;default:false"`
	StreamAvailable bool      `db:"stream_available" gorm:"column:stream_available;not null;default:false"`
	Config          string    `db:"config" gorm:"column:config;type:text;not null;default:'{}'"` // JSON object
	Hide            bool      `db:"hide" gorm:"column:hide;not null;default:false"`
	Deleted         bool      `db:"deleted" gorm:"column:deleted;not null;default:false"`
	CreatedAt       time.Time `db:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time `db:"updated_at" gorm:"column:updated_at"`
}

func (Model) TableName() string { return "models" }

// Settings is the single settings row (id = 1).
type Settings struct {
	ID                int       `db:"id" gorm:"primaryKey;autoIncrement:false"`
	HideDefaultModels bool      `db:"hide_default_models" gorm:"column:hide_default_models;not null;default:false"`
	UpdatedAt         time.Time `db:"updated_at" gorm:"column:updated_at"`
}

func (Settings) TableName() string { return "settings" }

const SettingsID = 1

// NewID returns a fresh row id.
func NewID() string {
	return uuid.NewString()
}

// FromEntry converts e to a row. The connection config is encoded as JSON.
func FromEntry(e *domain.ModelEntry) (Model, error) {
	cfg, err := json.Marshal(e.Config)
	if err != nil {
		return Model{}, fmt.Errorf("failed to encode config: %w", err)
	}

	kind := e.Kind
	if kind == "" {
		kind = domain.ModelKindChat
	}

	return Model{
		ID:              e.ID,
		ModelID:         e.ModelID,
		NaturalKey:      e.NaturalKey,
		ModelType:       string(kind),
		Name:            e.Name,
		ModelProvider:   string(e.Provider),
		LocalModel:      e.IsLocal,
		StreamAvailable: e.StreamAvailable,
		Config:          string(cfg),
		Hide:            e.Hidden,
		Deleted:         e.Deleted,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}, nil
}

// ToEntry converts the row back. An unreadable config yields an empty one.
func (m Model) ToEntry() domain.ModelEntry {
	var cfg domain.ConnectionConfig
	if m.Config != "" {
		_ = json.Unmarshal([]byte(m.Config), &cfg)
	}

	return domain.ModelEntry{
		ID:              m.ID,
		ModelID:         m.ModelID,
		NaturalKey:      m.NaturalKey,
		Name:            m.Name,
		Kind:            domain.ModelKind(m.ModelType),
		Provider:        domain.ProviderKind(m.ModelProvider),
		IsLocal:         m.LocalModel,
		StreamAvailable: m.StreamAvailable,
		Config:          cfg,
		Hidden:          m.Hide,
		Deleted:         m.Deleted,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func ToEntries(rows []Model) []domain.ModelEntry {
	out := make([]domain.ModelEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToEntry())
	}
	return out
}
