package embedded

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

func projectSpec(t *testing.T) domain.CategorySpec {
	t.Helper()
	spec, ok := domain.LookupCategorySpec("hub_", domain.CategoryProjects)
	require.True(t, ok)
	return spec
}

func projectDoc(spec domain.CategorySpec, id, name, description string, tags ...string) driven.BulkAction {
	doc := domain.IndexDocument{
		ID:       id,
		Index:    spec.Index,
		Category: spec.Category,
		Name:     name,
		TextFields: map[string]string{
			"name":        name,
			"description": description,
		},
		SuggestFields: map[string][]string{
			"name": domain.SuggestTokens(name),
		},
		Source: json.RawMessage(`{"id":"` + id + `"}`),
	}
	if len(tags) > 0 {
		doc.KeywordFields = map[string][]string{"tags": tags}
		doc.SuggestFields["tags"] = tags
	}
	return driven.BulkAction{Op: driven.BulkUpsert, Index: spec.Index, ID: id, Doc: doc.Body()}
}

func seededCluster(t *testing.T) (*Cluster, domain.CategorySpec) {
	t.Helper()
	c, err := New("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	spec := projectSpec(t)
	require.NoError(t, c.EnsureIndex(context.Background(), spec))

	res, err := c.Bulk(context.Background(), []driven.BulkAction{
		projectDoc(spec, "p1", "Storage Lab", "decentralized file systems like IPFS"),
		projectDoc(spec, "p2", "IPFS", "content addressed storage", "p2p"),
		projectDoc(spec, "p3", "Gardening Club", "plants and soil"),
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.Succeeded)
	require.Empty(t, res.Failed)
	return c, spec
}

func hitIDs(hits []driven.SearchHit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

func TestEnsureIndex_Idempotent(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	defer c.Close()

	spec := projectSpec(t)
	require.NoError(t, c.EnsureIndex(context.Background(), spec))
	require.NoError(t, c.EnsureIndex(context.Background(), spec))
}

func TestSearch_MissingIndex(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Search(context.Background(), driven.SearchRequest{
		Index: "hub_projects",
		Query: domain.MultiMatch{Query: "x", Fields: []string{"name"}},
		Size:  5,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIndexNotFound))
}

func TestSearch_LooseFindsTextMention(t *testing.T) {
	c, spec := seededCluster(t)

	hits, err := c.Search(context.Background(), driven.SearchRequest{
		Index: spec.Index,
		Query: domain.LooseQuery(spec, "IPFS"),
		Size:  10,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, hitIDs(hits))
}

func TestSearch_StrictRanksExactKeywordFirst(t *testing.T) {
	c, spec := seededCluster(t)

	hits, err := c.Search(context.Background(), driven.SearchRequest{
		Index: spec.Index,
		Query: domain.StrictQuery(spec, "IPFS"),
		Size:  10,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "p2", hits[0].ID)
	assert.Equal(t, "p1", hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearch_StrictKeywordOnlyField(t *testing.T) {
	c, spec := seededCluster(t)

	hits, err := c.Search(context.Background(), driven.SearchRequest{
		Index: spec.Index,
		Query: domain.StrictQuery(spec, "P2P"),
		Size:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, hitIDs(hits))
}

func TestSearch_SourceAndHighlight(t *testing.T) {
	c, spec := seededCluster(t)

	hits, err := c.Search(context.Background(), driven.SearchRequest{
		Index:           spec.Index,
		Query:           domain.LooseQuery(spec, "decentralized"),
		Size:            10,
		HighlightFields: spec.TextFields(),
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	var src map[string]any
	require.NoError(t, json.Unmarshal(hits[0].Source, &src))
	assert.Equal(t, "p1", src["uid"])
	assert.Equal(t, "Storage Lab", src["name"])
	assert.Equal(t, map[string]any{"id": "p1"}, src["source"])

	require.NotEmpty(t, hits[0].Highlight["description"])
	assert.Contains(t, hits[0].Highlight["description"][0], "decentralized")
}

func TestSearch_Pagination(t *testing.T) {
	c, spec := seededCluster(t)

	all, err := c.Search(context.Background(), driven.SearchRequest{
		Index: spec.Index,
		Query: domain.LooseQuery(spec, "IPFS"),
		Size:  10,
	})
	require.NoError(t, err)
	require.Len(t, all, 2)

	page, err := c.Search(context.Background(), driven.SearchRequest{
		Index: spec.Index,
		Query: domain.LooseQuery(spec, "IPFS"),
		Size:  1,
		From:  1,
	})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, all[1].ID, page[0].ID)
}

func TestBulk_DeleteAndMultiGet(t *testing.T) {
	c, spec := seededCluster(t)
	ctx := context.Background()

	docs, err := c.MultiGet(ctx, spec.Index, []string{"p1", "p2", "missing"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Contains(t, string(docs["p1"]), `"uid":"p1"`)

	res, err := c.Bulk(ctx, []driven.BulkAction{
		{Op: driven.BulkDelete, Index: spec.Index, ID: "p1"},
		{Op: driven.BulkDelete, Index: spec.Index, ID: "never-indexed"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)

	docs, err = c.MultiGet(ctx, spec.Index, []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Contains(t, docs, "p2")
}

func TestBulk_UpsertIsIdempotent(t *testing.T) {
	c, spec := seededCluster(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Bulk(ctx, []driven.BulkAction{
			projectDoc(spec, "p3", "Gardening Guild", "plants and soil"),
		})
		require.NoError(t, err)
	}

	hits, err := c.Search(ctx, driven.SearchRequest{
		Index: spec.Index,
		Query: domain.LooseQuery(spec, "plants"),
		Size:  10,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, string(hits[0].Source), "Gardening Guild")
}

func TestBulk_UnknownIndex(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	defer c.Close()

	res, err := c.Bulk(context.Background(), []driven.BulkAction{
		{Op: driven.BulkUpsert, Index: "nowhere", ID: "x", Doc: map[string]any{"name": "x"}},
	})
	require.NoError(t, err)
	assert.Zero(t, res.Succeeded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "x", res.Failed[0].ID)
}

func TestBulk_CancelledContext(t *testing.T) {
	c, spec := seededCluster(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Bulk(ctx, []driven.BulkAction{projectDoc(spec, "p9", "X", "y")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSuggest(t *testing.T) {
	c, spec := seededCluster(t)
	ctx := context.Background()

	opts, err := c.Suggest(ctx, driven.SuggestRequest{
		Index:  spec.Index,
		Field:  domain.SuggestField("name"),
		Prefix: "STO",
		Size:   5,
	})
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "p1", opts[0].ID)
	assert.Equal(t, "Storage Lab", opts[0].Text)

	opts, err = c.Suggest(ctx, driven.SuggestRequest{
		Index:  spec.Index,
		Field:  domain.SuggestField("name"),
		Prefix: "lab",
		Size:   5,
	})
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, "Lab", opts[0].Text)

	opts, err = c.Suggest(ctx, driven.SuggestRequest{
		Index:  spec.Index,
		Field:  domain.SuggestField("name"),
		Prefix: "  ",
		Size:   5,
	})
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestCluster_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	spec := projectSpec(t)
	ctx := context.Background()

	c, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, c.EnsureIndex(ctx, spec))
	_, err = c.Bulk(ctx, []driven.BulkAction{projectDoc(spec, "p1", "Storage Lab", "IPFS")})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := New(dir)
	require.NoError(t, err)
	defer reopened.Close()

	hits, err := reopened.Search(ctx, driven.SearchRequest{
		Index: spec.Index,
		Query: domain.LooseQuery(spec, "storage"),
		Size:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, hitIDs(hits))
}

func TestTranslate_Unsupported(t *testing.T) {
	_, err := translate(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedType))
}

func TestMatchingValue(t *testing.T) {
	tests := []struct {
		name   string
		stored any
		prefix string
		want   string
		ok     bool
	}{
		{name: "single string", stored: "Storage Lab", prefix: "sto", want: "Storage Lab", ok: true},
		{name: "array picks first match", stored: []interface{}{"Storage Lab", "Storage", "Lab"}, prefix: "lab", want: "Lab", ok: true},
		{name: "no match", stored: "Storage", prefix: "x"},
		{name: "nil", stored: nil, prefix: "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchingValue(tt.stored, tt.prefix)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
