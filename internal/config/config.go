package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ragline/ragline/internal/domain"
)

// Config holds the ragline pipeline configuration. Immutable after Load.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Cache    CacheConfig    `yaml:"cache"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	Indexing IndexingConfig `yaml:"indexing"`
	Source   SourceConfig   `yaml:"source"`
	Logging  LoggingConfig  `yaml:"logging"`

	registry *Registry
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds query API server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	APIKeys         []string `yaml:"api_keys"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds the local embedding cache settings.
type CacheConfig struct {
	Enabled          *bool    `yaml:"enabled"` // default true
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// OpenAIConfig holds embedding and chat provider settings.
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	TimeoutSec     int    `yaml:"timeout_sec"`
}

// QdrantConfig holds vector store settings.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
	VectorSize int    `yaml:"vector_size"`
	Distance   string `yaml:"distance"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// IndexingConfig holds pipeline tuning knobs.
type IndexingConfig struct {
	BatchSize        int `yaml:"batch_size"`
	ChunkSize        int `yaml:"chunk_size"`
	MinContentLength int `yaml:"min_content_length"`
	EmbedDelayMs     int `yaml:"embed_delay_ms"`
}

// SourceConfig holds content source settings.
type SourceConfig struct {
	BaseURL    string `yaml:"base_url"`
	PerPage    int    `yaml:"per_page"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (*Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.registry = NewRegistry()
	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) *Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Cache.Enabled == nil {
		enabled := true
		c.Cache.Enabled = &enabled
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "ragline:emb:"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.OpenAI.TimeoutSec <= 0 {
		c.OpenAI.TimeoutSec = 30
	}
	if c.Qdrant.VectorSize <= 0 {
		c.Qdrant.VectorSize = 1536
	}
	if c.Qdrant.Distance == "" {
		c.Qdrant.Distance = "Cosine"
	}
	if c.Qdrant.TimeoutSec <= 0 {
		c.Qdrant.TimeoutSec = 60
	}
	if c.Indexing.BatchSize <= 0 {
		c.Indexing.BatchSize = 50
	}
	if c.Indexing.ChunkSize <= 0 {
		c.Indexing.ChunkSize = 3000
	}
	if c.Indexing.MinContentLength <= 0 {
		c.Indexing.MinContentLength = 100
	}
	if c.Indexing.EmbedDelayMs <= 0 {
		c.Indexing.EmbedDelayMs = 250
	}
	if c.Source.PerPage <= 0 {
		c.Source.PerPage = 100
	}
	if c.Source.TimeoutSec <= 0 {
		c.Source.TimeoutSec = 30
	}
}

// Validate checks the configuration for correctness. Fails fast: a pipeline
// with a missing key would only discover it mid-run otherwise.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("%w: openai.api_key is required", domain.ErrConfiguration)
	}
	if c.Qdrant.URL == "" {
		return fmt.Errorf("%w: qdrant.url is required", domain.ErrConfiguration)
	}
	if c.Qdrant.APIKey == "" {
		return fmt.Errorf("%w: qdrant.api_key is required", domain.ErrConfiguration)
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("%w: qdrant.collection is required", domain.ErrConfiguration)
	}
	switch c.Qdrant.Distance {
	case "Cosine", "Euclid", "Dot", "Manhattan":
		// ok
	default:
		return fmt.Errorf("%w: qdrant.distance must be one of Cosine, Euclid, Dot, Manhattan, got %q",
			domain.ErrConfiguration, c.Qdrant.Distance)
	}
	if c.HTTP.Port > 65535 {
		return fmt.Errorf("%w: http.port must be between 1 and 65535, got %d",
			domain.ErrConfiguration, c.HTTP.Port)
	}
	if cacheEnabled(c) && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("%w: cache.addrs is required when cache is enabled", domain.ErrConfiguration)
	}
	return nil
}

// CacheEnabled reports whether the local embedding cache is on.
func (c *Config) CacheEnabled() bool {
	return cacheEnabled(c)
}

func cacheEnabled(c *Config) bool {
	return c.Cache.Enabled == nil || *c.Cache.Enabled
}

// Registry returns the content-type registry. Lazily created so that
// zero-value configs built in tests still work.
func (c *Config) Registry() *Registry {
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	return c.registry
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
