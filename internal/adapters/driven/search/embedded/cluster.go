// Package embedded implements the search cluster port on bleve indices
// held in process. It backs local development and single-host setups
// that run without an Elasticsearch cluster.
package embedded

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

// sourceField holds the stored JSON body of every document.
const sourceField = "source__json"

// Ensure Cluster implements the interface.
var _ driven.SearchCluster = (*Cluster)(nil)

// Cluster is a set of bleve indices keyed by index name.
type Cluster struct {
	dir string

	mu      sync.RWMutex
	indices map[string]bleve.Index
}

// New creates a cluster storing indices under dir.
// An empty dir keeps every index in memory.
func New(dir string) (*Cluster, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}
	return &Cluster{
		dir:     dir,
		indices: make(map[string]bleve.Index),
	}, nil
}

// EnsureIndex opens the category's index, creating it with its mapping
// if it does not exist.
func (c *Cluster) EnsureIndex(_ context.Context, spec domain.CategorySpec) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.indices[spec.Index]; ok {
		return nil
	}
	if idx, err := c.openExisting(spec.Index); err != nil {
		return err
	} else if idx != nil {
		c.indices[spec.Index] = idx
		return nil
	}

	m, err := indexMapping(spec)
	if err != nil {
		return err
	}

	var idx bleve.Index
	if c.dir == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		idx, err = bleve.New(filepath.Join(c.dir, spec.Index), m)
	}
	if err != nil {
		return fmt.Errorf("creating index %s: %w", spec.Index, err)
	}
	logger.Info("Created index %s", spec.Index)
	c.indices[spec.Index] = idx
	return nil
}

// openExisting opens an on-disk index. It returns nil when there is none.
// Callers hold c.mu.
func (c *Cluster) openExisting(name string) (bleve.Index, error) {
	if c.dir == "" {
		return nil, nil
	}
	path := filepath.Join(c.dir, name)
	st, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("cannot open index %s: %w", name, err)
	case !st.IsDir():
		return nil, fmt.Errorf("index path %s should be a directory", path)
	}
	logger.Debug("Opening existing index %s", path)
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open index %s: %w", name, err)
	}
	return idx, nil
}

// index returns a loaded index, opening it from disk on first use.
func (c *Cluster) index(name string) (bleve.Index, error) {
	c.mu.RLock()
	idx, ok := c.indices[name]
	c.mu.RUnlock()
	if ok {
		return idx, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.indices[name]; ok {
		return idx, nil
	}
	idx, err := c.openExisting(name)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, name)
	}
	c.indices[name] = idx
	return idx, nil
}

// Bulk applies the actions grouped into one batch per index.
func (c *Cluster) Bulk(ctx context.Context, actions []driven.BulkAction) (driven.BulkResult, error) {
	var res driven.BulkResult
	if err := ctx.Err(); err != nil {
		return res, err
	}

	var order []string
	batches := make(map[string]*bleve.Batch)
	counts := make(map[string]int)

	for _, a := range actions {
		idx, err := c.index(a.Index)
		if err != nil {
			res.Failed = append(res.Failed, driven.BulkItemError{
				Index: a.Index, ID: a.ID, Status: 404, Reason: err.Error(),
			})
			continue
		}
		b, ok := batches[a.Index]
		if !ok {
			b = idx.NewBatch()
			batches[a.Index] = b
			order = append(order, a.Index)
		}

		switch a.Op {
		case driven.BulkUpsert:
			doc, err := indexableDoc(a.Doc)
			if err == nil {
				err = b.Index(a.ID, doc)
			}
			if err != nil {
				res.Failed = append(res.Failed, driven.BulkItemError{
					Index: a.Index, ID: a.ID, Status: 400, Reason: err.Error(),
				})
				continue
			}
		case driven.BulkDelete:
			b.Delete(a.ID)
		default:
			res.Failed = append(res.Failed, driven.BulkItemError{
				Index: a.Index, ID: a.ID, Status: 400, Reason: fmt.Sprintf("unknown action %q", a.Op),
			})
			continue
		}
		counts[a.Index]++
	}

	for _, name := range order {
		idx, err := c.index(name)
		if err != nil {
			return res, err
		}
		if err := idx.Batch(batches[name]); err != nil {
			return res, fmt.Errorf("index error %s: %w", name, err)
		}
		res.Succeeded += counts[name]
	}
	return res, nil
}

// indexableDoc flattens a document body into plain JSON values and keeps
// the full body as a stored string.
func indexableDoc(body map[string]any) (map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("cannot encode document: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cannot decode document: %w", err)
	}
	delete(doc, "source")
	for k, v := range doc {
		if v == nil {
			delete(doc, k)
		}
	}
	doc[sourceField] = string(data)
	return doc, nil
}

// Close closes every loaded index.
func (c *Cluster) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, idx := range c.indices {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing index %s: %w", name, err))
		}
		delete(c.indices, name)
	}
	return errors.Join(errs...)
}
