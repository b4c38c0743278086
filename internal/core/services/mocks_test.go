package services

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

// ==================== Relational source ====================

// mockRelationalSource serves records changed strictly after the window start.
type mockRelationalSource struct {
	mu         sync.Mutex
	records    map[domain.EntityType][]domain.SourceRecord
	errs       map[domain.EntityType]error
	ineligible map[domain.EntityType][]string
	ineligErr  error
	since      map[domain.EntityType][]time.Time
}

func newMockRelationalSource() *mockRelationalSource {
	return &mockRelationalSource{
		records:    make(map[domain.EntityType][]domain.SourceRecord),
		errs:       make(map[domain.EntityType]error),
		ineligible: make(map[domain.EntityType][]string),
		since:      make(map[domain.EntityType][]time.Time),
	}
}

func (m *mockRelationalSource) add(recs ...domain.SourceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.records[r.Entity()] = append(m.records[r.Entity()], r)
	}
}

func (m *mockRelationalSource) setErr(entity domain.EntityType, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[entity] = err
}

func (m *mockRelationalSource) windows(entity domain.EntityType) []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.since[entity]...)
}

func (m *mockRelationalSource) Changed(
	_ context.Context, entity domain.EntityType, since time.Time,
) ([]domain.SourceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.since[entity] = append(m.since[entity], since)
	if err := m.errs[entity]; err != nil {
		return nil, err
	}
	var out []domain.SourceRecord
	for _, r := range m.records[entity] {
		if ts, ok := r.ChangedAt(); !ok || ts.After(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRelationalSource) IneligibleIDs(_ context.Context, entity domain.EntityType) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ineligErr != nil {
		return nil, m.ineligErr
	}
	return m.ineligible[entity], nil
}

// ==================== Forum source ====================

type mockForumSource struct {
	mu            sync.Mutex
	topics        []domain.ForumTopic
	posts         []domain.ForumPost
	firstPIDs     map[int64]int64
	firstErr      error
	topicsErr     error
	postsErr      error
	deletedTopics []string
	deletedPosts  []string
}

func (m *mockForumSource) ChangedTopics(_ context.Context, since time.Time) ([]domain.ForumTopic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.topicsErr != nil {
		return nil, m.topicsErr
	}
	var out []domain.ForumTopic
	for _, t := range m.topics {
		if ts, ok := t.ChangedAt(); !ok || ts.After(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockForumSource) ChangedPosts(_ context.Context, since time.Time) ([]domain.ForumPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postsErr != nil {
		return nil, m.postsErr
	}
	var out []domain.ForumPost
	for _, p := range m.posts {
		if ts, ok := p.ChangedAt(); !ok || ts.After(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockForumSource) Topics(_ context.Context, tids []int64) (map[int64]domain.ForumTopic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]domain.ForumTopic)
	for _, tid := range tids {
		for _, t := range m.topics {
			if t.TID == tid {
				out[tid] = t
			}
		}
	}
	return out, nil
}

func (m *mockForumSource) FirstPostIDs(_ context.Context, tids []int64) (map[int64]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.firstErr != nil {
		return nil, m.firstErr
	}
	out := make(map[int64]int64)
	for _, tid := range tids {
		if pid, ok := m.firstPIDs[tid]; ok {
			out[tid] = pid
		}
	}
	return out, nil
}

func (m *mockForumSource) DeletedTopicIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletedTopics, nil
}

// DeletedPostIDs returns deletedPosts plus every seeded post that is
// deleted or sits in a deleted topic.
func (m *mockForumSource) DeletedPostIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deletedTopic := make(map[int64]bool)
	for _, t := range m.topics {
		if t.Deleted {
			deletedTopic[t.TID] = true
		}
	}
	out := append([]string(nil), m.deletedPosts...)
	for _, p := range m.posts {
		if p.Deleted || deletedTopic[p.TopicID] {
			out = append(out, strconv.FormatInt(p.PID, 10))
		}
	}
	return out, nil
}

// ==================== Search cluster ====================

// mockCluster stores bulk bodies per index and serves scripted search
// and suggest responses.
type mockCluster struct {
	mu sync.Mutex

	docs      map[string]map[string]map[string]any
	ensured   []string
	bulkCalls int
	bulkSizes []int
	bulkErr   error
	failIDs   map[string]bool

	hits       map[string][]driven.SearchHit
	searchErr  map[string]error
	searchReqs []driven.SearchRequest
	panicOn    string

	suggestions map[string][]driven.SuggestOption
	suggestErr  map[string]error
	mgetErr     error
	mgetIDs     map[string][]string
}

func newMockCluster() *mockCluster {
	return &mockCluster{
		docs:        make(map[string]map[string]map[string]any),
		failIDs:     make(map[string]bool),
		hits:        make(map[string][]driven.SearchHit),
		searchErr:   make(map[string]error),
		suggestions: make(map[string][]driven.SuggestOption),
		suggestErr:  make(map[string]error),
		mgetIDs:     make(map[string][]string),
	}
}

var _ driven.SearchCluster = (*mockCluster)(nil)

func (c *mockCluster) EnsureIndex(_ context.Context, spec domain.CategorySpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensured = append(c.ensured, spec.Index)
	return nil
}

func (c *mockCluster) Bulk(_ context.Context, actions []driven.BulkAction) (driven.BulkResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bulkCalls++
	c.bulkSizes = append(c.bulkSizes, len(actions))
	if c.bulkErr != nil {
		return driven.BulkResult{}, c.bulkErr
	}

	var res driven.BulkResult
	for _, a := range actions {
		if c.failIDs[a.ID] {
			res.Failed = append(res.Failed, driven.BulkItemError{
				Index: a.Index, ID: a.ID, Status: 400, Reason: "mapper_parsing_exception",
			})
			continue
		}
		idx := c.docs[a.Index]
		if idx == nil {
			idx = make(map[string]map[string]any)
			c.docs[a.Index] = idx
		}
		switch a.Op {
		case driven.BulkUpsert:
			idx[a.ID] = a.Doc
			res.Succeeded++
		case driven.BulkDelete:
			if _, ok := idx[a.ID]; !ok {
				res.Failed = append(res.Failed, driven.BulkItemError{
					Index: a.Index, ID: a.ID, Status: 404, NotFound: true,
				})
				continue
			}
			delete(idx, a.ID)
			res.Succeeded++
		}
	}
	return res, nil
}

func (c *mockCluster) doc(index, id string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.docs[index][id]
	return d, ok
}

func (c *mockCluster) count(index string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs[index])
}

func (c *mockCluster) Search(_ context.Context, req driven.SearchRequest) ([]driven.SearchHit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchReqs = append(c.searchReqs, req)
	if req.Index == c.panicOn {
		panic("boom")
	}
	if err := c.searchErr[req.Index]; err != nil {
		return nil, err
	}
	hits := c.hits[req.Index]
	if req.Size > 0 && len(hits) > req.Size {
		hits = hits[:req.Size]
	}
	return hits, nil
}

func (c *mockCluster) MultiGet(_ context.Context, index string, ids []string) (map[string]json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mgetIDs[index] = append([]string(nil), ids...)
	if c.mgetErr != nil {
		return nil, c.mgetErr
	}
	out := make(map[string]json.RawMessage)
	for _, id := range ids {
		d, ok := c.docs[index][id]
		if !ok {
			continue
		}
		data, err := json.Marshal(d)
		if err != nil {
			return nil, err
		}
		out[id] = data
	}
	return out, nil
}

func (c *mockCluster) Suggest(_ context.Context, req driven.SuggestRequest) ([]driven.SuggestOption, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.suggestErr[req.Index]; err != nil {
		return nil, err
	}
	return c.suggestions[req.Index+"/"+req.Field], nil
}

func (c *mockCluster) Close() error { return nil }

// putDoc seeds a stored document directly.
func (c *mockCluster) putDoc(index, id string, doc map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.docs[index] == nil {
		c.docs[index] = make(map[string]map[string]any)
	}
	c.docs[index][id] = doc
}

// hitJSON renders a stored-source search hit.
func hitJSON(id string, score float64, src map[string]any) driven.SearchHit {
	data, _ := json.Marshal(src)
	return driven.SearchHit{ID: id, Score: score, Source: data}
}
