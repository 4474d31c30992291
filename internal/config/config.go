package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Config holds the service configuration. Every field is read from the environment,
// optionally seeded from a .env file.
type Config struct {
	Port        string   `env:"PORT" envDefault:"5000"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	JWTSecret   string   `env:"JWT_SECRET,required,notEmpty"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	Storage string `env:"STORAGE" envDefault:"mongo"`
	Mongo   MongoConfig
	// SeedFile is a JSON file of users and habits loaded into the memory store at startup.
	SeedFile string `env:"SEED_FILE"`

	// RedisURL enables the cross-instance real-time relay when set.
	RedisURL     string `env:"REDIS_URL"`
	RedisChannel string `env:"REDIS_CHANNEL" envDefault:"habit-tracker:notifications"`

	Email EmailConfig

	Scheduler SchedulerConfig
}

// MongoConfig configures the document store.
type MongoConfig struct {
	URI            string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	Database       string        `env:"MONGODB_DATABASE" envDefault:"habit_tracker"`
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize    uint64        `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	RetryAttempts  int           `env:"MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}

// EmailConfig selects and configures the outbound email provider.
type EmailConfig struct {
	Provider     string `env:"EMAIL_PROVIDER" envDefault:"dev"`
	SenderEmail  string `env:"SENDER_EMAIL" envDefault:"no-reply@habit-tracker.local"`
	SupportEmail string `env:"SUPPORT_EMAIL"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`

	ResendAPIKey string `env:"RESEND_API_KEY"`

	// DevDir is where the dev provider writes emails instead of sending them.
	DevDir string `env:"EMAIL_DEV_DIR" envDefault:"tmp/emails"`
}

// SchedulerConfig holds the cron specs of the habit reminder windows.
type SchedulerConfig struct {
	Enabled       bool   `env:"SCHEDULER_ENABLED" envDefault:"true"`
	MorningSpec   string `env:"REMINDER_MORNING_CRON" envDefault:"0 8 * * *"`
	AfternoonSpec string `env:"REMINDER_AFTERNOON_CRON" envDefault:"0 13 * * *"`
	EveningSpec   string `env:"REMINDER_EVENING_CRON" envDefault:"0 18 * * *"`
}

// LoadConfig reads .env (when present) and parses the environment.
func LoadConfig() (*Config, error) {
	// The .env file is optional; real deployments use the process environment.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMongo, StorageMemory:
	default:
		return fmt.Errorf("invalid STORAGE %q: want %q or %q", c.Storage, StorageMongo, StorageMemory)
	}
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	return nil
}
