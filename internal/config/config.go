// Package config loads wikivec configuration from YAML files and
// environment variables. Credentials are only ever read from the
// environment, never from files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	wverrors "github.com/wikivec/wikivec/internal/errors"
)

// Environment variables holding credentials and connection settings.
const (
	EnvAstraToken      = "ASTRA_DB_APPLICATION_TOKEN"
	EnvAstraEndpoint   = "ASTRA_DB_API_ENDPOINT"
	EnvAstraKeyspace   = "ASTRA_DB_KEYSPACE"
	EnvAstraCollection = "ASTRA_DB_COLLECTION"
	EnvJinaAPIKey      = "JINA_API_KEY"
)

// Config represents the complete wikivec configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Languages  LanguagesConfig  `yaml:"languages" json:"languages"`
	Wikidata   WikidataConfig   `yaml:"wikidata" json:"wikidata"`
	LogLevel   string           `yaml:"log_level" json:"log_level"`
}

// StoreConfig configures the Astra DB vector store connection.
// Token and endpoint come from the environment only.
type StoreConfig struct {
	Endpoint   string `yaml:"-" json:"-"`
	Token      string `yaml:"-" json:"-"`
	Keyspace   string `yaml:"keyspace" json:"keyspace"`
	Collection string `yaml:"collection" json:"collection"`

	// Timeout is the per-request timeout as a duration string ("100s").
	Timeout string `yaml:"timeout" json:"timeout"`
}

// TimeoutDuration parses the store timeout, falling back to 100s.
func (s StoreConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return 100 * time.Second
	}
	return d
}

// EmbeddingsConfig configures the Jina embedding and rerank provider.
type EmbeddingsConfig struct {
	APIKey      string `yaml:"-" json:"-"`
	BaseURL     string `yaml:"base_url" json:"base_url"`
	Model       string `yaml:"model" json:"model"`
	RerankModel string `yaml:"rerank_model" json:"rerank_model"`
	Dimensions  int    `yaml:"dimensions" json:"dimensions"`
	CacheSize   int    `yaml:"cache_size" json:"cache_size"`
}

// SearchConfig configures retrieval and fusion parameters.
type SearchConfig struct {
	// RRFConstant is the RRF fusion smoothing parameter (k).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	// MaxResults is the default result count per query.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// KeywordEndpoint is the CirrusSearch dump endpoint.
	KeywordEndpoint string `yaml:"keyword_endpoint" json:"keyword_endpoint"`
}

// LanguagesConfig configures the translation router.
type LanguagesConfig struct {
	// Native are the languages embedded in the vector store.
	Native []string `yaml:"native" json:"native"`

	// Dest is the language foreign queries are translated to.
	Dest string `yaml:"dest" json:"dest"`

	// TranslateEndpoint is the MinT service base URL.
	TranslateEndpoint string `yaml:"translate_endpoint" json:"translate_endpoint"`
}

// WikidataConfig configures the knowledge-base action API client.
type WikidataConfig struct {
	APIEndpoint string `yaml:"api_endpoint" json:"api_endpoint"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Store: StoreConfig{
			Keyspace:   "default_keyspace",
			Collection: "wikidata",
			Timeout:    "100s",
		},
		Embeddings: EmbeddingsConfig{
			BaseURL:     "https://api.jina.ai",
			Model:       "jina-embeddings-v3",
			RerankModel: "jina-reranker-v2-base-multilingual",
			Dimensions:  1024,
			CacheSize:   4096,
		},
		Search: SearchConfig{
			RRFConstant:     50,
			MaxResults:      50,
			KeywordEndpoint: "https://www.wikidata.org/w/index.php",
		},
		Languages: LanguagesConfig{
			Native: []string{"en", "fr", "ar"},
			Dest:   "en",
		},
		Wikidata: WikidataConfig{
			APIEndpoint: "https://www.wikidata.org/w/api.php",
		},
		LogLevel: "info",
	}
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/wikivec/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/wikivec/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wikivec", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "wikivec", "config.yaml")
	}
	return filepath.Join(home, ".config", "wikivec", "config.yaml")
}

// Load loads configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/wikivec/config.yaml)
//  3. Project config (.wikivec.yaml in dir)
//  4. Environment variables
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userPath := GetUserConfigPath()
	if fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromDir attempts to load .wikivec.yaml or .wikivec.yml from dir.
func (c *Config) loadFromDir(dir string) error {
	for _, name := range []string{".wikivec.yaml", ".wikivec.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return wverrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return wverrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Store.Keyspace != "" {
		c.Store.Keyspace = other.Store.Keyspace
	}
	if other.Store.Collection != "" {
		c.Store.Collection = other.Store.Collection
	}
	if other.Store.Timeout != "" {
		c.Store.Timeout = other.Store.Timeout
	}

	if other.Embeddings.BaseURL != "" {
		c.Embeddings.BaseURL = other.Embeddings.BaseURL
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.RerankModel != "" {
		c.Embeddings.RerankModel = other.Embeddings.RerankModel
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.KeywordEndpoint != "" {
		c.Search.KeywordEndpoint = other.Search.KeywordEndpoint
	}

	if len(other.Languages.Native) > 0 {
		c.Languages.Native = other.Languages.Native
	}
	if other.Languages.Dest != "" {
		c.Languages.Dest = other.Languages.Dest
	}
	if other.Languages.TranslateEndpoint != "" {
		c.Languages.TranslateEndpoint = other.Languages.TranslateEndpoint
	}

	if other.Wikidata.APIEndpoint != "" {
		c.Wikidata.APIEndpoint = other.Wikidata.APIEndpoint
	}

	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

// applyEnvOverrides applies environment variable overrides.
// Credentials are available through the environment only.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvAstraToken); v != "" {
		c.Store.Token = v
	}
	if v := os.Getenv(EnvAstraEndpoint); v != "" {
		c.Store.Endpoint = v
	}
	if v := os.Getenv(EnvAstraKeyspace); v != "" {
		c.Store.Keyspace = v
	}
	if v := os.Getenv(EnvAstraCollection); v != "" {
		c.Store.Collection = v
	}
	if v := os.Getenv(EnvJinaAPIKey); v != "" {
		c.Embeddings.APIKey = v
	}

	if v := os.Getenv("WIKIVEC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("WIKIVEC_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("WIKIVEC_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("WIKIVEC_DEST_LANG"); v != "" {
		c.Languages.Dest = v
	}
}

// Validate checks configuration consistency. Credentials are checked
// separately by ValidateCredentials so offline commands still work.
func (c *Config) Validate() error {
	if c.Search.RRFConstant <= 0 {
		return wverrors.ConfigError("search.rrf_constant must be positive", nil)
	}
	if c.Search.MaxResults <= 0 {
		return wverrors.ConfigError("search.max_results must be positive", nil)
	}
	if c.Embeddings.Dimensions <= 0 {
		return wverrors.ConfigError("embeddings.dimensions must be positive", nil)
	}
	if len(c.Languages.Native) == 0 {
		return wverrors.ConfigError("languages.native must not be empty", nil)
	}
	if c.Languages.Dest == "" {
		return wverrors.ConfigError("languages.dest must be set", nil)
	}
	return nil
}

// ValidateCredentials checks that every credential needed for search
// is present in the environment.
func (c *Config) ValidateCredentials() error {
	missing := ""
	switch {
	case c.Store.Token == "":
		missing = EnvAstraToken
	case c.Store.Endpoint == "":
		missing = EnvAstraEndpoint
	case c.Embeddings.APIKey == "":
		missing = EnvJinaAPIKey
	}
	if missing != "" {
		return wverrors.New(wverrors.ErrCodeCredentialMissing,
			fmt.Sprintf("%s is not set", missing), nil).
			WithSuggestion(fmt.Sprintf("export %s before running search commands", missing))
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return wverrors.ConfigError("failed to marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return wverrors.ConfigError("failed to create config directory", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
