// Package config loads HelixDB's on-disk configuration.
//
// The spec's documented format is `config.hx.json` (spec §6), a flat object
// of the keys below. This loader accepts that same key set from either JSON
// or YAML, since every repo in the corpus that reads a config file from disk
// reaches for yaml.v3 and decodes into the same struct it would for JSON —
// the two formats share a key set here, so one Config type serves both.
// Defaults can also be overridden from the environment, in the teacher's
// NEO4J_*/NORNICDB_*-prefixed style, generalized to HELIXDB_ prefixes.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every key from the spec's configuration table (§6).
type Config struct {
	// DBMaxSizeGB is the informational map-size cap passed to kv.Options
	// (clamped to 9998 GB by pkg/kv itself).
	DBMaxSizeGB int `yaml:"db_max_size_gb" json:"db_max_size_gb"`

	// SecondaryIndices lists `Label.field` pairs from the secondary_indices
	// key (or HELIXDB_SECONDARY_INDICES). It is only decoded here: no other
	// package reads it, so secondary indices come solely from the INDEX
	// fields the schema declares.
	SecondaryIndices []string `yaml:"secondary_indices" json:"secondary_indices"`

	// Vector tunes every declared V:: label's HNSW index unless a
	// per-label override is supplied elsewhere (hql.OpenOptions.VectorTunes).
	Vector VectorConfig `yaml:"vector" json:"vector"`

	// BM25 toggles full-text indexing on. The labels that get an index
	// (hql.OpenOptions.BM25Labels, not part of the on-disk key table) are
	// not read from this file: cmd/helixdb derives them from the labels the
	// source's SEARCH_BM25 steps name.
	BM25 bool `yaml:"bm25" json:"bm25"`

	// Schema is the path to the schema/query source tree. Opaque to this
	// package; pkg/hql.Load reads whatever it points to.
	Schema string `yaml:"schema" json:"schema"`

	// GraphvisNodeLabel names the property used to label nodes in graph
	// visualization tooling (out of scope here, passed through opaquely).
	GraphvisNodeLabel string `yaml:"graphvis_node_label" json:"graphvis_node_label"`

	// EmbeddingModel names the model pkg/embed.Config should request.
	EmbeddingModel string `yaml:"embedding_model" json:"embedding_model"`

	// DataDir is the on-disk directory pkg/kv.Options.Path is set to.
	// Not part of the spec's key table; every repo in the corpus needs
	// somewhere to point its storage engine, so this is the ambient
	// equivalent of the teacher's NEO4J_dbms_directories_data.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Logging holds the log level from the logging key (or
	// HELIXDB_LOG_LEVEL). No other package reads it: pkg/kv's badger.Logger
	// adapter always prints errors and warnings and drops info/debug lines.
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// VectorConfig mirrors spec §6's `vector.*` keys.
type VectorConfig struct {
	M              int `yaml:"m" json:"m"`
	EfConstruction int `yaml:"ef_construction" json:"ef_construction"`
	EfSearch       int `yaml:"ef_search" json:"ef_search"`
}

// LoggingConfig holds the ambient logging settings every package in the
// corpus carries regardless of what a spec's Non-goals exclude.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// DefaultConfig returns the spec-mandated defaults (spec §4.3: M=16,
// ef_construct=128, ef_search=768; §4.1: 9998 GB map-size cap).
func DefaultConfig() *Config {
	return &Config{
		DBMaxSizeGB: 9998,
		Vector: VectorConfig{
			M:              16,
			EfConstruction: 128,
			EfSearch:       768,
		},
		BM25:    false,
		Schema:  "./schema.hx",
		DataDir: "./data",
		Logging: LoggingConfig{Level: "INFO"},
	}
}

// Load reads a YAML or JSON config file at path, falling back to
// DefaultConfig for any key the file omits.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv starts from DefaultConfig and overrides whichever keys have a
// corresponding HELIXDB_ environment variable set, in the teacher's
// env-var-first configuration idiom.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.DBMaxSizeGB = getEnvInt("HELIXDB_DB_MAX_SIZE_GB", cfg.DBMaxSizeGB)
	cfg.SecondaryIndices = getEnvStringSlice("HELIXDB_SECONDARY_INDICES", cfg.SecondaryIndices)
	cfg.Vector.M = getEnvInt("HELIXDB_VECTOR_M", cfg.Vector.M)
	cfg.Vector.EfConstruction = getEnvInt("HELIXDB_VECTOR_EF_CONSTRUCTION", cfg.Vector.EfConstruction)
	cfg.Vector.EfSearch = getEnvInt("HELIXDB_VECTOR_EF_SEARCH", cfg.Vector.EfSearch)
	cfg.BM25 = getEnvBool("HELIXDB_BM25", cfg.BM25)
	cfg.Schema = getEnv("HELIXDB_SCHEMA", cfg.Schema)
	cfg.GraphvisNodeLabel = getEnv("HELIXDB_GRAPHVIS_NODE_LABEL", cfg.GraphvisNodeLabel)
	cfg.EmbeddingModel = getEnv("HELIXDB_EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.DataDir = getEnv("HELIXDB_DATA_DIR", cfg.DataDir)
	cfg.Logging.Level = getEnv("HELIXDB_LOG_LEVEL", cfg.Logging.Level)

	return cfg
}

// Validate checks the configuration for values pkg/vector and pkg/kv would
// otherwise have to reject lazily at Open time.
func (c *Config) Validate() error {
	if c.DBMaxSizeGB <= 0 {
		return fmt.Errorf("db_max_size_gb must be positive, got %d", c.DBMaxSizeGB)
	}
	if c.Vector.M <= 0 {
		return fmt.Errorf("vector.m must be positive, got %d", c.Vector.M)
	}
	if c.Vector.EfConstruction <= 0 {
		return fmt.Errorf("vector.ef_construction must be positive, got %d", c.Vector.EfConstruction)
	}
	if c.Vector.EfSearch <= 0 {
		return fmt.Errorf("vector.ef_search must be positive, got %d", c.Vector.EfSearch)
	}
	if c.Schema == "" {
		return fmt.Errorf("schema path must not be empty")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultVal
}
