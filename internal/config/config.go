// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (ALEXANDRIA_* prefix, runtime override)
//  2. Config file (~/.alexandria/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: model tiers, temperature, embedder model
//   - Retrieval: chunking and similarity-search defaults
//   - Storage: PostgreSQL connection
//   - Search: web search (Tavily) settings
//
// Security: sensitive values (passwords, API keys) are masked in MarshalJSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates a model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidChunking indicates chunk size/overlap values are out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidRetrieval indicates retrieval defaults are out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval configuration")

	// ErrInvalidPostgres indicates the PostgreSQL configuration is invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")
)

const (
	// DefaultSmallModel routes, greets, extracts filters and folds history.
	// Kept cheap: every request pays for at least one routing call.
	DefaultSmallModel = "gemini-2.5-flash-lite"

	// DefaultBigModel grades documents and writes the final answers.
	DefaultBigModel = "gemini-2.5-flash"

	// DefaultEmbedderModel is the embedding model for both collections.
	DefaultEmbedderModel = "text-embedding-004"

	// DefaultChunkSize and DefaultChunkOverlap mirror the splitter defaults
	// used when indexing book text.
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 150

	// DefaultTopK is the number of chunks retrieved per query.
	DefaultTopK = 4

	// DefaultChunkThreshold is the minimum cosine similarity for full-text
	// chunk matches. Summary matching is stricter because summaries are
	// short and noisy.
	DefaultChunkThreshold   = 0.30
	DefaultSummaryThreshold = 0.50

	// DefaultHistoryWindow is the number of prior messages summarized into
	// the query-rewrite context.
	DefaultHistoryWindow = 10

	// DefaultSearchMaxResults bounds web search snippets per query.
	DefaultSearchMaxResults = 2
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON.
type Config struct {
	// AI model configuration
	SmallModel    string  `mapstructure:"small_model" json:"small_model"`
	BigModel      string  `mapstructure:"big_model" json:"big_model"`
	EmbedderModel string  `mapstructure:"embedder_model" json:"embedder_model"`
	Temperature   float32 `mapstructure:"temperature" json:"temperature"`

	// Chunking configuration
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Retrieval configuration
	TopK             int     `mapstructure:"top_k" json:"top_k"`
	ChunkThreshold   float32 `mapstructure:"chunk_threshold" json:"chunk_threshold"`
	SummaryThreshold float32 `mapstructure:"summary_threshold" json:"summary_threshold"`
	HistoryWindow    int     `mapstructure:"history_window" json:"history_window"`

	// Web search configuration
	TavilyAPIKey     string `mapstructure:"tavily_api_key" json:"tavily_api_key"` // SENSITIVE
	SearchMaxResults int    `mapstructure:"search_max_results" json:"search_max_results"`

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Data directory for ingestion lock files.
	DataDir string `mapstructure:"data_dir" json:"data_dir"`

	// HTTP server address for serve mode.
	HTTPAddr string `mapstructure:"http_addr" json:"http_addr"`

	// Tracing (OTLP HTTP exporter endpoint; empty disables tracing).
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
}

// Load reads configuration from file and environment.
//
// The config file is optional; defaults plus environment variables are enough
// for a working setup. Environment variables use the ALEXANDRIA_ prefix
// (e.g. ALEXANDRIA_POSTGRES_PASSWORD).
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ALEXANDRIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configDir, err := Dir()
	if err == nil {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			// Missing file is fine; defaults + env apply.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(configDir, "data")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Dir returns the configuration directory (~/.alexandria), creating it with
// restrictive permissions if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	dir := filepath.Join(home, ".alexandria")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("small_model", DefaultSmallModel)
	v.SetDefault("big_model", DefaultBigModel)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("temperature", 0.1)

	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)

	v.SetDefault("top_k", DefaultTopK)
	v.SetDefault("chunk_threshold", DefaultChunkThreshold)
	v.SetDefault("summary_threshold", DefaultSummaryThreshold)
	v.SetDefault("history_window", DefaultHistoryWindow)

	v.SetDefault("search_max_results", DefaultSearchMaxResults)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "alexandria")
	v.SetDefault("postgres_db_name", "alexandria")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("http_addr", "127.0.0.1:3400")
	v.SetDefault("service_name", "alexandria")
}

// PostgresURL returns the postgres:// URL used for migrations and pool setup.
// The password is URL-escaped.
func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.PostgresUser),
		url.QueryEscape(c.PostgresPassword),
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresDBName,
		c.PostgresSSLMode,
	)
}

// MarshalJSON masks sensitive fields. When adding new secrets to Config,
// update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "********"
	}
	if masked.TavilyAPIKey != "" {
		masked.TavilyAPIKey = "********"
	}
	return json.Marshal(masked)
}
