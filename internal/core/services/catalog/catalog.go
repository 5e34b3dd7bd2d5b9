// Package catalog translates listing requests into store filters and shapes
// the result for callers.
package catalog

import (
	"slices"
	"strings"

	"github.com/nulzo/model-registry/internal/core/domain"
)

// Query is a listing request as the registry sees it.
type Query struct {
	// Keep only the built-in provider set (domain.DefaultProviders).
	HideDefaults bool
	// Restrict to these stored provider names. Empty means no restriction.
	Providers []string
	// Admin listings keep hidden rows so they can be un-hidden.
	IncludeHidden bool
}

// Filter builds the store filter for q. Deleted rows are always excluded.
func (q Query) Filter() domain.CatalogFilter {
	f := domain.CatalogFilter{
		ExcludeDeleted: true,
		ExcludeHidden:  !q.IncludeHidden,
	}

	switch {
	case q.HideDefaults && len(q.Providers) > 0:
		f.ProviderKinds = intersect(domain.DefaultProviders, q.Providers)
	case q.HideDefaults:
		f.ProviderKinds = append([]string(nil), domain.DefaultProviders...)
	case len(q.Providers) > 0:
		f.ProviderKinds = append([]string(nil), q.Providers...)
	}

	return f
}

// CacheKey identifies the result set of f.
func CacheKey(f domain.CatalogFilter) string {
	var b strings.Builder
	b.WriteString("catalog:")
	if f.ProviderKinds == nil {
		b.WriteString("all")
	} else {
		b.WriteString("p=")
		b.WriteString(strings.Join(f.ProviderKinds, ","))
	}
	if f.ExcludeHidden {
		b.WriteString(":visible")
	}
	if !f.ExcludeDeleted {
		b.WriteString(":with-deleted")
	}
	return b.String()
}

// Matches reports whether e passes f.
func Matches(e domain.ModelEntry, f domain.CatalogFilter) bool {
	if f.ExcludeDeleted && e.Deleted {
		return false
	}
	if f.ExcludeHidden && e.Hidden {
		return false
	}
	if f.ProviderKinds != nil && !slices.Contains(f.ProviderKinds, string(e.Provider)) {
		return false
	}
	return true
}

// Apply returns the entries of list that pass f, in order.
func Apply(list []domain.ModelEntry, f domain.CatalogFilter) []domain.ModelEntry {
	out := make([]domain.ModelEntry, 0, len(list))
	for _, e := range list {
		if Matches(e, f) {
			out = append(out, e)
		}
	}
	return out
}

// Partition splits entries by kind. Anything that is not an embedding model
// is listed with the chat models. Both slices are non-nil.
func Partition(entries []domain.ModelEntry) (chat, embedding []domain.ModelEntry) {
	chat = make([]domain.ModelEntry, 0, len(entries))
	embedding = make([]domain.ModelEntry, 0)
	for _, e := range entries {
		if e.Kind == domain.ModelKindEmbedding {
			embedding = append(embedding, e)
			continue
		}
		chat = append(chat, e)
	}
	return chat, embedding
}

func intersect(a, b []string) []string {
	out := make([]string, 0, len(b))
	for _, v := range b {
		if slices.Contains(a, v) && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
