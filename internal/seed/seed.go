// Package seed loads the built-in (non-local) catalog models from YAML.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/core/ports"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type File struct {
	Models []BuiltinModel `yaml:"models"`
}

type BuiltinModel struct {
	ModelID         string `yaml:"model_id"`
	Name            string `yaml:"name"`
	Type            string `yaml:"model_type"`
	Provider        string `yaml:"model_provider"`
	StreamAvailable bool   `yaml:"stream_available"`
	Hidden          bool   `yaml:"hide"`
}

// Load reads and validates the seed file at path.
func Load(path string) ([]domain.ModelEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes a seed document. Built-in models are never local, so they
// can be hidden but not deleted.
func Parse(r io.Reader) ([]domain.ModelEntry, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Models))
	entries := make([]domain.ModelEntry, 0, len(file.Models))
	for i, m := range file.Models {
		id := strings.TrimSpace(m.ModelID)
		if id == "" {
			return nil, fmt.Errorf("models[%d]: model_id is required", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("models[%d]: duplicate model_id %q", i, id)
		}
		seen[id] = struct{}{}

		kind := domain.ModelKind(strings.ToLower(strings.TrimSpace(m.Type)))
		if kind == "" {
			kind = domain.ModelKindChat
		}
		if !kind.Valid() {
			return nil, fmt.Errorf("models[%d]: unknown model_type %q", i, m.Type)
		}

		provider := strings.TrimSpace(m.Provider)
		if provider == "" {
			return nil, fmt.Errorf("models[%d]: model_provider is required", i)
		}

		name := m.Name
		if name == "" {
			name = id
		}

		entries = append(entries, domain.ModelEntry{
			ModelID:         id,
			NaturalKey:      id,
			Name:            name,
			Kind:            kind,
			Provider:        domain.ProviderKind(provider),
			IsLocal:         false,
			StreamAvailable: m.StreamAvailable,
			Hidden:          m.Hidden,
		})
	}

	return entries, nil
}

// Apply loads path and upserts its models into store.
func Apply(ctx context.Context, store ports.CatalogStore, path string, logger *zap.Logger) (int, error) {
	entries, err := Load(path)
	if err != nil {
		return 0, err
	}
	if err := store.UpsertBuiltin(ctx, entries); err != nil {
		return 0, fmt.Errorf("seed built-in models: %w", err)
	}

	if logger != nil {
		logger.Info("built-in models seeded", zap.String("file", path), zap.Int("count", len(entries)))
	}
	return len(entries), nil
}
