package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hubsearch/internal/adapters/driven/config/file"
	"github.com/custodia-labs/hubsearch/internal/adapters/driven/search/elastic"
	"github.com/custodia-labs/hubsearch/internal/adapters/driven/search/embedded"
	mongosource "github.com/custodia-labs/hubsearch/internal/adapters/driven/source/mongo"
	"github.com/custodia-labs/hubsearch/internal/adapters/driven/source/postgres"
	"github.com/custodia-labs/hubsearch/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/hubsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/hubsearch/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/hubsearch/internal/core/ports/driven"
	"github.com/custodia-labs/hubsearch/internal/core/services"
	"github.com/custodia-labs/hubsearch/internal/logger"
	"github.com/custodia-labs/hubsearch/internal/normalisers/html"
	"github.com/custodia-labs/hubsearch/internal/normalisers/markdown"
)

// wireFromConfig loads the config file and builds the services for cmd.
// Configuration errors abort before any source is read.
func wireFromConfig(cmd *cobra.Command) error {
	c, err := file.Load(configPath)
	if err != nil {
		return err
	}
	cfg = c
	configureLogging(c.Log)

	withSources := cmd.Annotations[annotationServices] != servicesQuery
	return wire(cmd.Context(), c, withSources)
}

func configureLogging(c file.LogConfig) {
	if c.Verbose {
		logger.SetVerbose(true)
	}
	logger.SetFile(logger.FileConfig{
		Path:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	})
}

// wire builds every service from c. Sources are connected only when
// withSources is set; an unreachable source disables its stream for
// this process and is logged.
func wire(ctx context.Context, c *file.Config, withSources bool) error {
	checkpoints, scheduler, err := openStateStores(c.Checkpoint)
	if err != nil {
		return err
	}
	schedulerStore = scheduler

	cluster, err := openCluster(c.Search)
	if err != nil {
		return err
	}
	closers = append(closers, cluster.Close)

	searchService = services.NewSearchService(cluster, services.QueryConfig{
		IndexPrefix:   c.Search.IndexPrefix,
		PerIndexLimit: c.Query.PerIndexLimit,
		TopN:          c.Query.TopN,
		SuggestSize:   c.Query.SuggestSize,
		ExcerptLength: c.Query.ExcerptLength,
	})
	checkpointService = services.NewCheckpointAdvancer(checkpoints)

	var relational driven.RelationalSource
	var forum driven.ForumSource
	if withSources {
		relational, forum = openSources(ctx, c)
	}

	syncOrchestrator = services.NewSyncOrchestrator(
		services.SyncConfig{
			IndexPrefix:      c.Search.IndexPrefix,
			BatchSize:        c.Sync.BatchSize,
			BatchesPerSecond: c.Sync.BatchesPerSecond,
		},
		checkpoints,
		cluster,
		relational,
		forum,
		html.New(),
		markdown.New(),
	)
	return nil
}

// openStateStores opens the checkpoint store and the scheduler store.
// Only the SQLite backend persists scheduler state.
func openStateStores(c file.CheckpointConfig) (driven.CheckpointStore, driven.SchedulerStore, error) {
	switch c.Backend {
	case file.CheckpointSQLite:
		store, err := sqlite.NewStore(c.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		closers = append(closers, store.Close)
		logger.Debug("Checkpoints in %s", store.Path())
		return store.CheckpointStore(), store.SchedulerStore(), nil
	case file.CheckpointBolt:
		store, err := bolt.NewCheckpointStore(c.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening bolt store: %w", err)
		}
		closers = append(closers, store.Close)
		return store, memory.NewSchedulerStore(), nil
	case file.CheckpointMemory:
		logger.Warn("Checkpoints are kept in memory; every run starts from the epoch")
		return memory.NewCheckpointStore(), memory.NewSchedulerStore(), nil
	default:
		return nil, nil, fmt.Errorf("unknown checkpoint backend %q", c.Backend)
	}
}

func openCluster(c file.SearchConfig) (driven.SearchCluster, error) {
	switch c.Backend {
	case file.BackendElastic:
		return elastic.New(elastic.Config{URL: c.ElasticURL, Secret: c.ElasticSecret})
	case file.BackendBleve:
		return embedded.New(c.BleveDir)
	default:
		return nil, fmt.Errorf("unknown search backend %q", c.Backend)
	}
}

func openSources(ctx context.Context, c *file.Config) (driven.RelationalSource, driven.ForumSource) {
	var relational driven.RelationalSource
	var forum driven.ForumSource

	if c.Sync.RelationalEnabled {
		pg, err := postgres.Open(ctx, c.Postgres.DSN)
		if err != nil {
			logger.Error("Relational stream disabled: %v", err)
		} else {
			closers = append(closers, pg.Close)
			relational = pg
		}
	}

	if c.Sync.ForumEnabled {
		mg, err := mongosource.Connect(ctx, c.Mongo.URI, c.Mongo.Database, c.Mongo.Collection)
		if err != nil {
			logger.Error("Forum stream disabled: %v", err)
		} else {
			closers = append(closers, func() error { return mg.Close(context.Background()) })
			forum = mg
		}
	}
	return relational, forum
}
