package model

import (
	"testing"
	"time"

	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEntry_EncodesConfig(t *testing.T) {
	row, err := FromEntry(&domain.ModelEntry{
		ModelID:  "m_dialoqbase_1",
		Provider: domain.ProviderReplicate,
		Config:   domain.ConnectionConfig{BaseURL: domain.ReplicateModelsURL, APIKey: "tok"},
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"baseURL":"https://api.replicate.com/v1/models/","apiKey":"tok"}`, row.Config)
	assert.Equal(t, "chat", row.ModelType)
}

func TestToEntry(t *testing.T) {
	now := time.Now().UTC()
	row := Model{
		ID:         "id-1",
		ModelID:    "dialoqbase_eb_x_dialoqbase_1",
		NaturalKey: "x",
		ModelType:  "embedding",
		Name:       "X",
		Config:     `{"baseURL":"http://localhost:11434"}`,
		Hide:       true,
		CreatedAt:  now,
	}

	e := row.ToEntry()

	assert.Equal(t, domain.ModelKindEmbedding, e.Kind)
	assert.Equal(t, "http://localhost:11434", e.Config.BaseURL)
	assert.Empty(t, e.Config.APIKey)
	assert.True(t, e.Hidden)
	assert.Equal(t, now, e.CreatedAt)
}

func TestToEntry_BadConfig(t *testing.T) {
	e := Model{Config: "not json"}.ToEntry()
	assert.Equal(t, domain.ConnectionConfig{}, e.Config)
}
