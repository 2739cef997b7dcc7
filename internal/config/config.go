package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config holds every setting read from the environment.
type Config struct {
	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	DatabaseURL       string        `envconfig:"DATABASE_URL" required:"true"`
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`

	LLMProvider  string        `envconfig:"LLM_PROVIDER" default:"openai"`
	LLMBaseURL   string        `envconfig:"LLM_BASE_URL"`
	LLMModel     string        `envconfig:"LLM_MODEL" default:"gpt-3.5-turbo"`
	OpenAIAPIKey string        `envconfig:"OPENAI_API_KEY"`
	LLMTimeout   time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`

	// Completion cache, disabled when RedisAddr is empty.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"24h"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment bool   `envconfig:"LOG_DEVELOPMENT" default:"false"`

	ReplaceEnrichments bool `envconfig:"REPLACE_ENRICHMENTS" default:"false"`
}

// Load reads API.env and .env when present, then the process environment.
// Variables already set in the environment win over both files.
func Load() (*Config, error) {
	for _, f := range []string{"API.env", ".env"} {
		_ = godotenv.Load(f)
	}
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("config: OPENAI_API_KEY is required for provider %q", c.LLMProvider)
		}
		if c.LLMBaseURL == "" {
			c.LLMBaseURL = "https://api.openai.com/v1"
		}
	case ProviderOllama:
		if c.LLMBaseURL == "" {
			c.LLMBaseURL = "http://localhost:11434"
		}
	default:
		return fmt.Errorf("config: unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.DBMaxIdleConns > c.DBMaxOpenConns {
		c.DBMaxIdleConns = c.DBMaxOpenConns
	}
	return nil
}
