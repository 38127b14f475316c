package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the elasticbot processes.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Broker     BrokerConfig
	Worker     WorkerConfig
	Elasticity ElasticityConfig
	RateLimit  RateLimitConfig
	Market     MarketConfig
	AI         AIConfig
}

type ServerConfig struct {
	Port     int
	Env      string
	LogLevel string
	// RequesterHashKey keys the BLAKE2b hash applied to client addresses.
	RequesterHashKey string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

type RedisConfig struct {
	URL string
}

// BrokerConfig selects the async dispatch transport. When AsyncEnabled is
// false every task runs synchronously inside the submitting process.
type BrokerConfig struct {
	AsyncEnabled bool
	Kind         string
	AMQPURL      string
	QueuePrefix  string
}

type WorkerConfig struct {
	Concurrency       int
	ClaimTimeout      time.Duration
	ProcessingTimeout time.Duration
	ReapInterval      time.Duration
}

type ElasticityConfig struct {
	MaxSpan          time.Duration
	MinQualityScore  float64
	ExecutionTimeout time.Duration
	RecentWindow     time.Duration
}

type RateLimitConfig struct {
	Enabled          bool
	CalculatePerHour int
	InterpretPerHour int
}

type MarketConfig struct {
	BinanceURL         string
	BCBURL             string
	Timeout            time.Duration
	MinCollectInterval time.Duration
	RetentionPeriod    time.Duration
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	CacheTTL         time.Duration
	Ollama           OllamaConfig
	VLLM             VLLMConfig
	OpenAI           OpenAIConfig
	Anthropic        AnthropicConfig
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type VLLMConfig struct {
	BaseURL string
	Model   string
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type AnthropicConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

var validProviders = map[string]bool{
	"mock":      true,
	"ollama":    true,
	"vllm":      true,
	"openai":    true,
	"anthropic": true,
}

var validBrokers = map[string]bool{
	"redis":    true,
	"rabbitmq": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory is applied first when present; variables
// already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:             envInt("ELASTICBOT_PORT", 8080),
			Env:              envString("ELASTICBOT_ENV", "development"),
			LogLevel:         envString("LOG_LEVEL", "info"),
			RequesterHashKey: os.Getenv("REQUESTER_HASH_KEY"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   envString("DATABASE_MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Broker: BrokerConfig{
			AsyncEnabled: envBool("ELASTICITY_ASYNC_ENABLED", false),
			Kind:         envString("BROKER", "redis"),
			AMQPURL:      os.Getenv("AMQP_URL"),
			QueuePrefix:  envString("BROKER_QUEUE_PREFIX", "elasticbot"),
		},
		Worker: WorkerConfig{
			Concurrency:       envInt("WORKER_CONCURRENCY", 4),
			ClaimTimeout:      envDuration("WORKER_CLAIM_TIMEOUT", 5*time.Second),
			ProcessingTimeout: envDuration("WORKER_PROCESSING_TIMEOUT", 10*time.Minute),
			ReapInterval:      envDuration("WORKER_REAP_INTERVAL", time.Minute),
		},
		Elasticity: ElasticityConfig{
			MaxSpan:          envDuration("ELASTICITY_MAX_SPAN", 90*24*time.Hour),
			MinQualityScore:  envFloat("ELASTICITY_MIN_QUALITY", 0.95),
			ExecutionTimeout: envDurationSecs("ELASTICITY_TIMEOUT_SECS", 120*time.Second),
			RecentWindow:     envDuration("ELASTICITY_RECENT_WINDOW", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:          envBool("RATE_LIMITING_ENABLED", true),
			CalculatePerHour: envInt("RATE_LIMIT_CALCULATE_PER_HOUR", 10),
			InterpretPerHour: envInt("RATE_LIMIT_INTERPRET_PER_HOUR", 5),
		},
		Market: MarketConfig{
			BinanceURL:         envString("BINANCE_P2P_URL", "https://p2p.binance.com/bapi/c2c/v2/friendly/c2c/adv/search"),
			BCBURL:             envString("BCB_URL", "https://www.bcb.gob.bo/librerias/indicadores/otras/ultimo.php"),
			Timeout:            envDuration("MARKET_HTTP_TIMEOUT", 10*time.Second),
			MinCollectInterval: envDuration("MARKET_MIN_COLLECT_INTERVAL", 15*time.Minute),
			RetentionPeriod:    envDuration("MARKET_RETENTION", 90*24*time.Hour),
		},
		AI: AIConfig{
			Provider:         envString("AI_PROVIDER", "mock"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			CacheTTL:         envDuration("AI_CACHE_TTL", 24*time.Hour),
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
			VLLM: VLLMConfig{
				BaseURL: envString("VLLM_BASE_URL", "http://localhost:8000"),
				Model:   envString("VLLM_MODEL", ""),
			},
			OpenAI: OpenAIConfig{
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com"),
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
			Anthropic: AnthropicConfig{
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				Model:   envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validBrokers[c.Broker.Kind] {
		return fmt.Errorf("BROKER must be one of redis, rabbitmq; got %q", c.Broker.Kind)
	}
	if c.Broker.Kind == "rabbitmq" && c.Broker.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is required when BROKER is rabbitmq")
	}
	if c.Broker.Kind == "rabbitmq" && !strings.HasPrefix(c.Broker.AMQPURL, "amqp://") && !strings.HasPrefix(c.Broker.AMQPURL, "amqps://") {
		return fmt.Errorf("AMQP_URL must start with amqp:// or amqps://, got %q", c.Broker.AMQPURL)
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.Worker.Concurrency)
	}
	if c.Worker.ClaimTimeout <= 0 {
		return fmt.Errorf("WORKER_CLAIM_TIMEOUT must be positive, got %s", c.Worker.ClaimTimeout)
	}
	if c.Worker.ReapInterval <= 0 {
		return fmt.Errorf("WORKER_REAP_INTERVAL must be positive, got %s", c.Worker.ReapInterval)
	}
	if c.Elasticity.ExecutionTimeout <= 0 {
		return fmt.Errorf("ELASTICITY_TIMEOUT_SECS must be positive, got %s", c.Elasticity.ExecutionTimeout)
	}
	// A job still inside its execution timeout must never be reaped.
	if c.Worker.ProcessingTimeout <= c.Elasticity.ExecutionTimeout {
		return fmt.Errorf("WORKER_PROCESSING_TIMEOUT (%s) must exceed ELASTICITY_TIMEOUT_SECS (%s)",
			c.Worker.ProcessingTimeout, c.Elasticity.ExecutionTimeout)
	}

	if c.Elasticity.MaxSpan <= 0 {
		return fmt.Errorf("ELASTICITY_MAX_SPAN must be positive")
	}
	if c.Elasticity.MinQualityScore < 0 || c.Elasticity.MinQualityScore > 1 {
		return fmt.Errorf("ELASTICITY_MIN_QUALITY must be between 0 and 1, got %v", c.Elasticity.MinQualityScore)
	}

	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of mock, ollama, vllm, openai, anthropic; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.Provider == "anthropic" && c.AI.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
	}
	if c.AI.Provider == "vllm" && c.AI.VLLM.Model == "" {
		return fmt.Errorf("VLLM_MODEL is required when AI_PROVIDER is vllm")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
