// Package elastic implements the search cluster port on Elasticsearch 7.
//
// Each category lives in its own index. Writes go through the esutil bulk
// indexer; reads use the search, mget and completion-suggest APIs.
package elastic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/elastic/go-elasticsearch/v7/esutil"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
	"github.com/custodia-labs/hubsearch/internal/logger"
)

// Ensure Cluster implements the interface.
var _ driven.SearchCluster = (*Cluster)(nil)

// Config holds connection settings.
type Config struct {
	// URL is the cluster endpoint.
	URL string

	// Secret is "basic:user:pass" or "token:<api key>". Empty means anonymous.
	Secret string

	// Transport overrides the HTTP transport. Used by tests.
	Transport http.RoundTripper
}

// Cluster is an Elasticsearch-backed search cluster.
type Cluster struct {
	client *elasticsearch.Client
}

// New creates a cluster client. No request is sent until first use.
func New(cfg Config) (*Cluster, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: elastic url is not set", domain.ErrInvalidConfig)
	}

	// The product header is verified on the first successful response
	// instead of through a separate GET / before the first request.
	esCfg := elasticsearch.Config{
		Addresses:            []string{cfg.URL},
		Transport:            cfg.Transport,
		UseResponseCheckOnly: true,
	}
	if cfg.Secret != "" {
		if err := parseSecret(cfg.Secret, &esCfg); err != nil {
			return nil, err
		}
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("creating elastic client: %w", err)
	}
	return &Cluster{client: client}, nil
}

// parseSecret fills the credentials of cfg from a prefixed secret.
func parseSecret(secret string, cfg *elasticsearch.Config) error {
	switch {
	case strings.HasPrefix(secret, "basic:"):
		userpass := strings.SplitN(strings.TrimPrefix(secret, "basic:"), ":", 2)
		if len(userpass) != 2 || userpass[0] == "" {
			return fmt.Errorf("%w: secret for basic auth should have format 'basic:user:pass'", domain.ErrInvalidConfig)
		}
		cfg.Username, cfg.Password = userpass[0], userpass[1]
		return nil
	case strings.HasPrefix(secret, "token:"):
		cfg.APIKey = strings.TrimPrefix(secret, "token:")
		if cfg.APIKey == "" {
			return fmt.Errorf("%w: empty api key", domain.ErrInvalidConfig)
		}
		return nil
	}
	return fmt.Errorf("%w: secret should start with one of prefixes: [basic: token:]", domain.ErrInvalidConfig)
}

// EnsureIndex creates the category's index with its mappings if missing.
func (c *Cluster) EnsureIndex(ctx context.Context, spec domain.CategorySpec) error {
	res, err := c.client.Indices.Exists(
		[]string{spec.Index},
		c.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("checking index %s: %w", spec.Index, err)
	}
	closeBody(res)

	switch res.StatusCode {
	case http.StatusOK:
		logger.Debug("Index %s exists, skipping", spec.Index)
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("checking index %s: unexpected status %d", spec.Index, res.StatusCode)
	}

	res, err = c.client.Indices.Create(
		spec.Index,
		c.client.Indices.Create.WithBody(esutil.NewJSONReader(indexSettings(spec))),
		c.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", spec.Index, err)
	}
	defer closeBody(res)

	if err := checkResponse(res); err != nil {
		// Another process may have created it in between.
		if strings.Contains(err.Error(), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("creating index %s: %w", spec.Index, err)
	}
	logger.Info("Created index %s", spec.Index)
	return nil
}

// Close releases resources. The underlying client holds no open state.
func (c *Cluster) Close() error {
	return nil
}

// checkResponse turns an error response into an error carrying its body.
// A missing index maps to domain.ErrIndexNotFound.
func checkResponse(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading error response: %w", err)
	}
	if res.StatusCode == http.StatusNotFound && strings.Contains(string(body), "index_not_found_exception") {
		return fmt.Errorf("%w: %s", domain.ErrIndexNotFound, string(body))
	}
	return fmt.Errorf("elastic responded %d: %s", res.StatusCode, string(body))
}

func closeBody(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	if err := res.Body.Close(); err != nil {
		logger.Warn("Failed to close response body: %v", err)
	}
}
