package catalog

import (
	"testing"

	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestQuery_Filter(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want domain.CatalogFilter
	}{
		{
			name: "admin, all providers",
			q:    Query{IncludeHidden: true},
			want: domain.CatalogFilter{ExcludeDeleted: true},
		},
		{
			name: "admin, hide defaults",
			q:    Query{HideDefaults: true, IncludeHidden: true},
			want: domain.CatalogFilter{
				ProviderKinds:  []string{"Local", "local", "ollama", "transformer", "Transformer"},
				ExcludeDeleted: true,
			},
		},
		{
			name: "public",
			q:    Query{},
			want: domain.CatalogFilter{ExcludeDeleted: true, ExcludeHidden: true},
		},
		{
			name: "explicit providers intersect with defaults",
			q:    Query{HideDefaults: true, Providers: []string{"replicate", "ollama"}},
			want: domain.CatalogFilter{ProviderKinds: []string{"ollama"}, ExcludeDeleted: true, ExcludeHidden: true},
		},
		{
			name: "no overlap matches nothing",
			q:    Query{HideDefaults: true, Providers: []string{"replicate"}},
			want: domain.CatalogFilter{ProviderKinds: []string{}, ExcludeDeleted: true, ExcludeHidden: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.q.Filter())
		})
	}
}

func TestFilter_DoesNotAliasDefaults(t *testing.T) {
	f := Query{HideDefaults: true}.Filter()
	f.ProviderKinds[0] = "mutated"

	assert.Equal(t, "Local", domain.DefaultProviders[0])
}

func TestApply(t *testing.T) {
	entries := []domain.ModelEntry{
		{ID: "1", Provider: domain.ProviderLocal},
		{ID: "2", Provider: domain.ProviderReplicate},
		{ID: "3", Provider: domain.ProviderOllama, Hidden: true},
		{ID: "4", Provider: domain.ProviderOther, Deleted: true},
		{ID: "5", Provider: "openai"},
	}

	hideDefaults := Apply(entries, Query{HideDefaults: true, IncludeHidden: true}.Filter())
	assert.Equal(t, []string{"1", "3"}, ids(hideDefaults))

	public := Apply(entries, Query{}.Filter())
	assert.Equal(t, []string{"1", "2", "5"}, ids(public))

	none := Apply(entries, domain.CatalogFilter{ProviderKinds: []string{}})
	assert.Empty(t, none)
}

func TestPartition(t *testing.T) {
	chat, embedding := Partition([]domain.ModelEntry{
		{ID: "a", Kind: domain.ModelKindChat},
		{ID: "b", Kind: domain.ModelKindEmbedding},
		{ID: "c", Kind: ""},
	})

	assert.Equal(t, []string{"a", "c"}, ids(chat))
	assert.Equal(t, []string{"b"}, ids(embedding))

	chat, embedding = Partition(nil)
	assert.NotNil(t, chat)
	assert.NotNil(t, embedding)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "catalog:all", CacheKey(Query{IncludeHidden: true}.Filter()))
	assert.Equal(t, "catalog:all:visible", CacheKey(Query{}.Filter()))
	assert.Equal(t, "catalog:p=Local,local,ollama,transformer,Transformer", CacheKey(Query{HideDefaults: true, IncludeHidden: true}.Filter()))
}

func ids(list []domain.ModelEntry) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.ID)
	}
	return out
}
