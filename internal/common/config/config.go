package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// webhookSecretPattern is the character set Telegram accepts for secret_token.
var webhookSecretPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,256}$`)

type Config struct {
	Debug       bool   `env:"DEBUG" envDefault:"false"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"chart-analyst-bot"`
	LogLevel    string `env:"LOG_LEVEL"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"console"`

	Server struct {
		Port            int           `env:"PORT" envDefault:"8080"`
		CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
		MetricsEnabled  bool          `env:"METRICS_ENABLED" envDefault:"true"`
	}

	Telegram struct {
		BotToken      string        `env:"BOT_TOKEN,required,notEmpty"`
		AdminIDs      []string      `env:"ADMIN_IDS" envSeparator:","`
		WebhookURL    string        `env:"WEBHOOK_URL"`
		WebhookSecret string        `env:"WEBHOOK_SECRET"`
		Timeout       time.Duration `env:"TELEGRAM_TIMEOUT" envDefault:"30s"`
		InitDataTTL   time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
	}

	Storage struct {
		Backend  string `env:"STORAGE_BACKEND" envDefault:"memory"`
		ImageDir string `env:"IMAGE_DIR" envDefault:"images"`
	}

	Redis struct {
		Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Provider struct {
		APIKey  string        `env:"PROVIDER_API_KEY"`
		BaseURL string        `env:"PROVIDER_BASE_URL" envDefault:"https://api.openai.com/v1"`
		Model   string        `env:"PROVIDER_MODEL" envDefault:"gpt-4o-mini"`
		Timeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"60s"`
	}

	Workers struct {
		Count     int `env:"WORKER_COUNT" envDefault:"4"`
		QueueSize int `env:"WORKER_QUEUE_SIZE" envDefault:"64"`
	}

	Access struct {
		DefaultDays int `env:"ACTIVATION_DEFAULT_DAYS" envDefault:"30"`
	}
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal in production, variables come from the environment.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q: want %s or %s", c.Storage.Backend, StorageMemory, StorageRedis)
	}
	if _, err := c.AdminIDSet(); err != nil {
		return err
	}
	if c.Telegram.WebhookURL != "" && c.Telegram.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	if c.Telegram.WebhookSecret != "" && !webhookSecretPattern.MatchString(c.Telegram.WebhookSecret) {
		return fmt.Errorf("WEBHOOK_SECRET must be 1-256 characters of A-Z, a-z, 0-9, _ or -")
	}
	if c.Workers.Count <= 0 {
		return fmt.Errorf("WORKER_COUNT must be positive, got %d", c.Workers.Count)
	}
	if c.Workers.QueueSize < 0 {
		return fmt.Errorf("WORKER_QUEUE_SIZE must not be negative, got %d", c.Workers.QueueSize)
	}
	if c.Access.DefaultDays <= 0 {
		return fmt.Errorf("ACTIVATION_DEFAULT_DAYS must be positive, got %d", c.Access.DefaultDays)
	}
	return nil
}

// AdminIDSet parses ADMIN_IDS. Blank entries are skipped.
func (c *Config) AdminIDSet() ([]int64, error) {
	ids := make([]int64, 0, len(c.Telegram.AdminIDs))
	for _, raw := range c.Telegram.AdminIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_IDS entry %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
