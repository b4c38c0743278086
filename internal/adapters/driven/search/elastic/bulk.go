package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/elastic/go-elasticsearch/v7/esutil"

	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
)

// bulkCollector gathers per-item outcomes reported by the bulk indexer.
type bulkCollector struct {
	mu     sync.Mutex
	result driven.BulkResult
	fatal  []error
}

func (c *bulkCollector) onSuccess(_ context.Context, _ esutil.BulkIndexerItem, _ esutil.BulkIndexerResponseItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result.Succeeded++
}

func (c *bulkCollector) onFailure(
	_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error,
) {
	c.mu.Lock()
	defer c.mu.Unlock()

	failure := driven.BulkItemError{
		Index:  item.Index,
		ID:     item.DocumentID,
		Status: res.Status,
	}
	switch {
	case err != nil:
		failure.Reason = err.Error()
	case res.Error.Reason != "":
		failure.Reason = fmt.Sprintf("%s: %s", res.Error.Type, res.Error.Reason)
	default:
		failure.Reason = res.Result
	}
	failure.NotFound = item.Action == string(driven.BulkDelete) && res.Status == http.StatusNotFound
	c.result.Failed = append(c.result.Failed, failure)
}

func (c *bulkCollector) onError(_ context.Context, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fatal = append(c.fatal, err)
}

// Bulk applies the actions in a single flush of a dedicated bulk indexer.
// Transport and whole-request failures are returned as the error.
func (c *Cluster) Bulk(ctx context.Context, actions []driven.BulkAction) (driven.BulkResult, error) {
	if len(actions) == 0 {
		return driven.BulkResult{}, nil
	}

	collector := &bulkCollector{}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     c.client,
		NumWorkers: 1,
		FlushBytes: 50 << 20,
		OnError:    collector.onError,
	})
	if err != nil {
		return driven.BulkResult{}, fmt.Errorf("creating bulk indexer: %w", err)
	}

	var addErrs []error
	for _, a := range actions {
		item := esutil.BulkIndexerItem{
			Index:      a.Index,
			Action:     string(a.Op),
			DocumentID: a.ID,
			OnSuccess:  collector.onSuccess,
			OnFailure:  collector.onFailure,
		}
		if a.Op == driven.BulkUpsert {
			data, err := json.Marshal(a.Doc)
			if err != nil {
				collector.onFailure(ctx, item, esutil.BulkIndexerResponseItem{},
					fmt.Errorf("cannot encode document %s: %w", a.ID, err))
				continue
			}
			item.Body = bytes.NewReader(data)
		}
		if err := bi.Add(ctx, item); err != nil {
			addErrs = append(addErrs, fmt.Errorf("adding %s/%s: %w", a.Index, a.ID, err))
			break
		}
	}

	if err := bi.Close(ctx); err != nil {
		addErrs = append(addErrs, fmt.Errorf("flushing bulk indexer: %w", err))
	}

	collector.mu.Lock()
	defer collector.mu.Unlock()
	if err := errors.Join(append(collector.fatal, addErrs...)...); err != nil {
		return collector.result, err
	}
	return collector.result, nil
}
