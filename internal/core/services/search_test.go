package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

func memberSource(uid, name string) map[string]any {
	return map[string]any{"uid": uid, "name": name, "image": nil, "kind": "member"}
}

func TestSearchService_MergesByScore(t *testing.T) {
	defer goleak.VerifyNone(t)

	cluster := newMockCluster()
	cluster.hits["members"] = []driven.SearchHit{hitJSON("m1", 12, memberSource("m1", "Ada"))}
	cluster.hits["projects"] = []driven.SearchHit{
		hitJSON("p1", 9, map[string]any{"uid": "p1", "name": "IPFS", "image": "logo.png", "kind": "project"}),
	}
	svc := NewSearchService(cluster, QueryConfig{})

	result, err := svc.Search(context.Background(), domain.QueryRequest{Text: "ipfs"})
	require.NoError(t, err)

	require.Len(t, result.Top, 2)
	assert.Equal(t, "m1", result.Top[0].UID)
	assert.Equal(t, domain.CategoryMembers, result.Top[0].Category)
	assert.Equal(t, "p1", result.Top[1].UID)
	assert.Equal(t, "logo.png", result.Top[1].Image)
	assert.Len(t, result.ByCategory[domain.CategoryMembers], 1)
	assert.Len(t, result.ByCategory[domain.CategoryProjects], 1)
	assert.Empty(t, result.ByCategory[domain.CategoryEvents])
	assert.Len(t, cluster.searchReqs, len(domain.Categories()))
}

func TestSearchService_FailedCategoryIsEmpty(t *testing.T) {
	defer goleak.VerifyNone(t)

	cluster := newMockCluster()
	cluster.hits["members"] = []driven.SearchHit{hitJSON("m1", 2, memberSource("m1", "Ada"))}
	cluster.hits["events"] = []driven.SearchHit{hitJSON("e1", 5, map[string]any{"uid": "e1"})}
	cluster.searchErr["events"] = errors.New("index_not_found_exception")
	cluster.panicOn = "teams"
	svc := NewSearchService(cluster, QueryConfig{})

	result, err := svc.Search(context.Background(), domain.QueryRequest{Text: "ada"})
	require.NoError(t, err)

	assert.NotNil(t, result.ByCategory[domain.CategoryEvents])
	assert.Empty(t, result.ByCategory[domain.CategoryEvents])
	assert.Empty(t, result.ByCategory[domain.CategoryTeams])
	require.Len(t, result.Top, 1)
	assert.Equal(t, "m1", result.Top[0].UID)
}

func TestSearchService_CategoryFilter(t *testing.T) {
	defer goleak.VerifyNone(t)

	cluster := newMockCluster()
	cluster.hits["members"] = []driven.SearchHit{hitJSON("m1", 12, memberSource("m1", "Ada"))}
	cluster.hits["teams"] = []driven.SearchHit{hitJSON("t1", 3, map[string]any{"uid": "t1", "name": "Ada Lab"})}
	cluster.hits["projects"] = []driven.SearchHit{hitJSON("p1", 9, map[string]any{"uid": "p1", "name": "Ada"})}
	svc := NewSearchService(cluster, QueryConfig{})

	result, err := svc.Search(context.Background(), domain.QueryRequest{
		Text:       "ada",
		Categories: []domain.Category{domain.CategoryTeams, domain.CategoryMembers, domain.CategoryTeams},
	})
	require.NoError(t, err)

	assert.Len(t, cluster.searchReqs, 2)
	assert.Len(t, result.ByCategory[domain.CategoryMembers], 1)
	assert.Len(t, result.ByCategory[domain.CategoryTeams], 1)
	assert.Empty(t, result.ByCategory[domain.CategoryProjects])
	require.Len(t, result.Top, 2)
	assert.Equal(t, "m1", result.Top[0].UID)
}

func TestSearchService_UnknownCategory(t *testing.T) {
	svc := NewSearchService(newMockCluster(), QueryConfig{})

	_, err := svc.Search(context.Background(), domain.QueryRequest{
		Text:       "ada",
		Categories: []domain.Category{"widgets"},
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestSearchService_InvalidMode(t *testing.T) {
	svc := NewSearchService(newMockCluster(), QueryConfig{})

	_, err := svc.Search(context.Background(), domain.QueryRequest{Text: "x", Mode: "fuzzy"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearchService_EmptyText(t *testing.T) {
	cluster := newMockCluster()
	svc := NewSearchService(cluster, QueryConfig{})

	result, err := svc.Search(context.Background(), domain.QueryRequest{Text: "   "})
	require.NoError(t, err)
	assert.NotNil(t, result.Top)
	assert.Empty(t, result.Top)
	assert.Len(t, result.ByCategory, len(domain.Categories()))
	assert.Empty(t, cluster.searchReqs)
}

func TestSearchService_ModeSelectsQuery(t *testing.T) {
	cluster := newMockCluster()
	svc := NewSearchService(cluster, QueryConfig{})
	ctx := context.Background()

	_, err := svc.Search(ctx, domain.QueryRequest{Text: "ipfs", Mode: domain.ModeStrict})
	require.NoError(t, err)
	for _, req := range cluster.searchReqs {
		_, ok := req.Query.(domain.Bool)
		assert.True(t, ok, "strict query for %s", req.Index)
		assert.Equal(t, domain.DefaultPerIndexLimit, req.Size)
		assert.NotEmpty(t, req.HighlightFields)
	}

	cluster.searchReqs = nil
	_, err = svc.Search(ctx, domain.QueryRequest{Text: "ipfs"})
	require.NoError(t, err)
	for _, req := range cluster.searchReqs {
		mm, ok := req.Query.(domain.MultiMatch)
		require.True(t, ok)
		assert.Equal(t, "ipfs", mm.Query)
	}
}

func TestSearchService_Pagination(t *testing.T) {
	cluster := newMockCluster()
	cluster.hits["members"] = []driven.SearchHit{
		hitJSON("m1", 10, memberSource("m1", "a")),
		hitJSON("m2", 8, memberSource("m2", "b")),
		hitJSON("m3", 6, memberSource("m3", "c")),
	}
	cluster.hits["teams"] = []driven.SearchHit{
		hitJSON("t1", 9, map[string]any{"uid": "t1"}),
		hitJSON("t2", 7, map[string]any{"uid": "t2"}),
	}
	svc := NewSearchService(cluster, QueryConfig{})

	result, err := svc.Search(context.Background(), domain.QueryRequest{Text: "x", Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Top, 2)
	assert.Equal(t, "m2", result.Top[0].UID)
	assert.Equal(t, "t2", result.Top[1].UID)

	result, err = svc.Search(context.Background(), domain.QueryRequest{Text: "x", Page: 4, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, result.Top)
}

func TestSearchService_DeepPageRaisesPerIndexSize(t *testing.T) {
	cluster := newMockCluster()
	svc := NewSearchService(cluster, QueryConfig{})

	_, err := svc.Search(context.Background(), domain.QueryRequest{Text: "x", Page: 3, PageSize: 10})
	require.NoError(t, err)
	for _, req := range cluster.searchReqs {
		assert.Equal(t, 30, req.Size)
	}
}

func TestSearchService_TopNTruncates(t *testing.T) {
	cluster := newMockCluster()
	for _, id := range []string{"m1", "m2", "m3"} {
		cluster.hits["members"] = append(cluster.hits["members"], hitJSON(id, 1, memberSource(id, id)))
	}
	svc := NewSearchService(cluster, QueryConfig{TopN: 2})

	result, err := svc.Search(context.Background(), domain.QueryRequest{Text: "x"})
	require.NoError(t, err)
	assert.Len(t, result.Top, 2)
	assert.Len(t, result.ByCategory[domain.CategoryMembers], 3)
}

func TestSearchService_HighlightsAndForumFields(t *testing.T) {
	cluster := newMockCluster()
	hit := hitJSON("105", 3, map[string]any{
		"uid": "105", "name": "[Roadmap] reply", "kind": "comment", "isComment": true,
	})
	hit.Highlight = map[string][]string{
		"content": {"an <em>ipfs</em> node", "more <em>ipfs</em>"},
		"name":    {"<em>Roadmap</em>"},
	}
	cluster.hits["forum_posts"] = []driven.SearchHit{hit}
	svc := NewSearchService(cluster, QueryConfig{})

	result, err := svc.Search(context.Background(), domain.QueryRequest{Text: "ipfs"})
	require.NoError(t, err)

	posts := result.ByCategory[domain.CategoryForumPosts]
	require.Len(t, posts, 1)
	assert.Equal(t, "comment", posts[0].Kind)
	require.NotNil(t, posts[0].IsComment)
	assert.True(t, *posts[0].IsComment)
	assert.Equal(t, []domain.Match{
		{Field: "name", Content: "<em>Roadmap</em>"},
		{Field: "content", Content: "an <em>ipfs</em> node ... more <em>ipfs</em>"},
	}, posts[0].Matches)
}

func TestHitFromSource_Undecodable(t *testing.T) {
	hit := hitFromSource(domain.CategoryTeams, "t9", []byte("not json"))
	assert.Equal(t, "t9", hit.UID)
	assert.Equal(t, domain.CategoryTeams, hit.Category)
	assert.Empty(t, hit.Name)
}
