package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/hubsearch/internal/core/domain"
)

// DefaultPath is the config file used when none is given.
const DefaultPath = "hubsearch.toml"

// Environment variables that override file values.
const (
	EnvPostgresDSN   = "HUBSEARCH_POSTGRES_DSN"
	EnvMongoURI      = "HUBSEARCH_MONGO_URI"
	EnvElasticURL    = "HUBSEARCH_ELASTIC_URL"
	EnvElasticSecret = "HUBSEARCH_ELASTIC_SECRET"
)

// Search backends.
const (
	BackendElastic = "elastic"
	BackendBleve   = "bleve"
)

// Checkpoint backends.
const (
	CheckpointSQLite = "sqlite"
	CheckpointBolt   = "bolt"
	CheckpointMemory = "memory"
)

// Config is the full process configuration.
type Config struct {
	Postgres   PostgresConfig   `toml:"postgres"`
	Mongo      MongoConfig      `toml:"mongo"`
	Search     SearchConfig     `toml:"search"`
	Checkpoint CheckpointConfig `toml:"checkpoint"`
	Sync       SyncConfig       `toml:"sync"`
	Query      QueryConfig      `toml:"query"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
	Log        LogConfig        `toml:"log"`
}

// PostgresConfig locates the relational source.
type PostgresConfig struct {
	DSN string `toml:"dsn"`
}

// MongoConfig locates the forum source.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// SearchConfig selects and locates the search cluster.
type SearchConfig struct {
	Backend       string `toml:"backend"`
	IndexPrefix   string `toml:"index_prefix"`
	ElasticURL    string `toml:"elastic_url"`
	ElasticSecret string `toml:"elastic_secret"`
	BleveDir      string `toml:"bleve_dir"`
}

// CheckpointConfig selects the watermark store.
type CheckpointConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// SyncConfig tunes sync passes.
type SyncConfig struct {
	BatchSize         int     `toml:"batch_size"`
	BatchesPerSecond  float64 `toml:"batches_per_second"`
	RelationalEnabled bool    `toml:"relational_enabled"`
	ForumEnabled      bool    `toml:"forum_enabled"`
}

// QueryConfig tunes search and autocomplete.
type QueryConfig struct {
	PerIndexLimit     int     `toml:"per_index_limit"`
	TopN              int     `toml:"top_n"`
	SuggestSize       int     `toml:"suggest_size"`
	ExcerptLength     int     `toml:"excerpt_length"`
	MinScoreThreshold float64 `toml:"min_score_threshold"`
}

// SchedulerConfig controls the daemon's sync loop.
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"`
}

// LogConfig controls process logging.
type LogConfig struct {
	Verbose    bool   `toml:"verbose"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Mongo: MongoConfig{
			Database:   "nodebb",
			Collection: "objects",
		},
		Search: SearchConfig{
			Backend:    BackendElastic,
			ElasticURL: "http://localhost:9200",
			BleveDir:   filepath.Join("data", "index"),
		},
		Checkpoint: CheckpointConfig{
			Backend: CheckpointSQLite,
			Path:    "data",
		},
		Sync: SyncConfig{
			BatchSize:         500,
			RelationalEnabled: true,
			ForumEnabled:      true,
		},
		Query: QueryConfig{
			PerIndexLimit:     domain.DefaultPerIndexLimit,
			TopN:              domain.DefaultTopN,
			SuggestSize:       domain.DefaultSuggestSize,
			ExcerptLength:     domain.DefaultExcerptLength,
			MinScoreThreshold: domain.DefaultScoreThreshold,
		},
		Scheduler: SchedulerConfig{
			Enabled:  true,
			Interval: "15m",
		},
		Log: LogConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load resolves the configuration from defaults, the file at path and the
// environment, then validates it. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrInvalidConfig, path, err)
		}
	case os.IsNotExist(err):
		// Defaults and environment only.
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays connection settings from the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPostgresDSN); ok {
		c.Postgres.DSN = v
	}
	if v, ok := lookup(EnvMongoURI); ok {
		c.Mongo.URI = v
	}
	if v, ok := lookup(EnvElasticURL); ok {
		c.Search.ElasticURL = v
	}
	if v, ok := lookup(EnvElasticSecret); ok {
		c.Search.ElasticSecret = v
	}
}

// Validate reports every invalid setting, each wrapping domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidConfig}, args...)...))
	}

	switch c.Search.Backend {
	case BackendElastic:
		if c.Search.ElasticURL == "" {
			invalid("search.elastic_url is required for the elastic backend")
		}
		if s := c.Search.ElasticSecret; s != "" &&
			!strings.HasPrefix(s, "basic:") && !strings.HasPrefix(s, "token:") {
			invalid("search.elastic_secret should start with basic: or token:")
		}
	case BackendBleve:
	default:
		invalid("unknown search.backend %q", c.Search.Backend)
	}

	switch c.Checkpoint.Backend {
	case CheckpointSQLite, CheckpointBolt:
		if c.Checkpoint.Path == "" {
			invalid("checkpoint.path is required for the %s backend", c.Checkpoint.Backend)
		}
	case CheckpointMemory:
	default:
		invalid("unknown checkpoint.backend %q", c.Checkpoint.Backend)
	}

	if c.Sync.BatchSize <= 0 {
		invalid("sync.batch_size must be positive")
	}
	if c.Sync.BatchesPerSecond < 0 {
		invalid("sync.batches_per_second must not be negative")
	}
	if c.Sync.RelationalEnabled && c.Postgres.DSN == "" {
		invalid("postgres.dsn is required when sync.relational_enabled is set")
	}
	if c.Sync.ForumEnabled && (c.Mongo.URI == "" || c.Mongo.Database == "") {
		invalid("mongo.uri and mongo.database are required when sync.forum_enabled is set")
	}

	if c.Query.PerIndexLimit <= 0 || c.Query.TopN <= 0 || c.Query.SuggestSize <= 0 || c.Query.ExcerptLength <= 0 {
		invalid("query limits must be positive")
	}
	if c.Query.MinScoreThreshold < 0 {
		invalid("query.min_score_threshold must not be negative")
	}

	if c.Scheduler.Enabled {
		d, err := time.ParseDuration(c.Scheduler.Interval)
		switch {
		case err != nil || d <= 0:
			invalid("scheduler.interval %q is not a positive duration", c.Scheduler.Interval)
		case d < domain.MinTaskInterval:
			invalid("scheduler.interval %q is shorter than %s", c.Scheduler.Interval, domain.MinTaskInterval)
		}
	}

	return errors.Join(errs...)
}

// SchedulerSettings maps the scheduler section onto the domain config.
func (c *Config) SchedulerSettings() domain.SchedulerConfig {
	interval, err := time.ParseDuration(c.Scheduler.Interval)
	if err != nil {
		interval = 0
	}
	return domain.SchedulerConfig{
		Enabled: c.Scheduler.Enabled,
		TaskConfigs: map[string]domain.TaskConfig{
			domain.TaskIDIndexSync: {
				Enabled:  c.Scheduler.Enabled,
				Interval: interval,
			},
		},
	}
}

// Save writes the configuration as TOML with restricted permissions.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0600)
}

// Redacted returns a copy safe to print: credentials are masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Postgres.DSN = mask(out.Postgres.DSN)
	out.Mongo.URI = mask(out.Mongo.URI)
	out.Search.ElasticSecret = mask(out.Search.ElasticSecret)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
