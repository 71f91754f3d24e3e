package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	NLP       NLPConfig
	Groq      GroqConfig
	Catalog   CatalogConfig
	List      ListConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// NLPConfig holds command-understanding pipeline configuration
type NLPConfig struct {
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	FallbackTimeout     time.Duration `mapstructure:"fallback_timeout"`
}

// GroqConfig holds Groq LLM API configuration. The API key is optional:
// without it the pipeline runs rules-only and suggestions skip LLM padding.
type GroqConfig struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	Model             string `mapstructure:"model"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// CatalogConfig holds catalog data locations and resolver tuning
type CatalogConfig struct {
	Path                 string  `mapstructure:"path"`
	DataDir              string  `mapstructure:"data_dir"`
	LooseCutoff          float64 `mapstructure:"loose_cutoff"`
	AutoCorrectThreshold float64 `mapstructure:"auto_correct_threshold"`
	MaxSuggestions       int     `mapstructure:"max_suggestions"`
}

// ListConfig holds shopping list storage configuration
type ListConfig struct {
	DBPath         string  `mapstructure:"db_path"`
	FuzzyThreshold float64 `mapstructure:"fuzzy_threshold"`
	DefaultUser    string  `mapstructure:"default_user"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	SuggestionsTTL time.Duration `mapstructure:"suggestions_ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cartvoice/")

	// Environment variable settings
	v.SetEnvPrefix("CARTVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a local .env file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load()
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	// NLP defaults
	v.SetDefault("nlp.confidence_threshold", 0.85)
	v.SetDefault("nlp.fallback_timeout", "3s")

	// Groq defaults (api_key registered so the env override is picked up)
	v.SetDefault("groq.api_key", "")
	v.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("groq.model", "llama-3.1-8b-instant")
	v.SetDefault("groq.requests_per_minute", 30)

	// Catalog defaults
	v.SetDefault("catalog.path", "./data/item_catalog.json")
	v.SetDefault("catalog.data_dir", "./data")
	v.SetDefault("catalog.loose_cutoff", 0.60)
	v.SetDefault("catalog.auto_correct_threshold", 0.80)
	v.SetDefault("catalog.max_suggestions", 5)

	// List defaults
	v.SetDefault("list.db_path", "./data/shopping.db")
	v.SetDefault("list.fuzzy_threshold", 0.70)
	v.SetDefault("list.default_user", "default_user")

	// Cache defaults
	v.SetDefault("cache.suggestions_ttl", "5m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.NLP.ConfidenceThreshold <= 0 || config.NLP.ConfidenceThreshold > 1 {
		return fmt.Errorf("NLP confidence threshold must be in (0, 1], got: %v", config.NLP.ConfidenceThreshold)
	}

	if config.NLP.FallbackTimeout <= 0 {
		return fmt.Errorf("NLP fallback timeout must be positive, got: %v", config.NLP.FallbackTimeout)
	}

	if config.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required (set CARTVOICE_CATALOG_PATH)")
	}

	if config.Catalog.DataDir == "" {
		return fmt.Errorf("catalog data dir is required (set CARTVOICE_CATALOG_DATA_DIR)")
	}

	if config.Catalog.LooseCutoff <= 0 || config.Catalog.LooseCutoff > 1 {
		return fmt.Errorf("catalog loose cutoff must be in (0, 1], got: %v", config.Catalog.LooseCutoff)
	}

	if config.Catalog.AutoCorrectThreshold < config.Catalog.LooseCutoff || config.Catalog.AutoCorrectThreshold > 1 {
		return fmt.Errorf("catalog auto-correct threshold must be in [loose cutoff, 1], got: %v", config.Catalog.AutoCorrectThreshold)
	}

	if config.Catalog.MaxSuggestions <= 0 {
		return fmt.Errorf("catalog max suggestions must be positive, got: %d", config.Catalog.MaxSuggestions)
	}

	if config.List.DBPath == "" {
		return fmt.Errorf("list db path is required (set CARTVOICE_LIST_DB_PATH)")
	}

	if config.List.FuzzyThreshold <= 0 || config.List.FuzzyThreshold > 1 {
		return fmt.Errorf("list fuzzy threshold must be in (0, 1], got: %v", config.List.FuzzyThreshold)
	}

	if config.List.DefaultUser == "" {
		return fmt.Errorf("list default user is required (set CARTVOICE_LIST_DEFAULT_USER)")
	}

	if config.Cache.SuggestionsTTL <= 0 {
		return fmt.Errorf("cache suggestions TTL must be positive, got: %v", config.Cache.SuggestionsTTL)
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("per-IP rate limit must be positive, got: %d", config.RateLimit.PerIP)
	}

	if config.Groq.RequestsPerMinute <= 0 {
		return fmt.Errorf("groq requests per minute must be positive, got: %d", config.Groq.RequestsPerMinute)
	}

	return nil
}
