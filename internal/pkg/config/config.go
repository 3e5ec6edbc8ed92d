package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=30m"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=15s"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Usage     UsageConfig
	Bootstrap BootstrapConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=services_portal"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,       default=0"`
	PoolSize int           `env:"REDIS_POOL_SIZE, default=20"`
	LockTTL  time.Duration `env:"LOCK_TTL,       default=10s"`
	LockWait time.Duration `env:"LOCK_WAIT,      default=3s"`
}

type UsageConfig struct {
	Workers int `env:"USAGE_WORKERS, default=8"`
}

// BootstrapConfig seeds the first portal administrator. Nothing is created
// when Username is empty.
type BootstrapConfig struct {
	Username string `env:"BOOTSTRAP_ADMIN_USERNAME"`
	Password string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
	Email    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
}

// IsDevelopment reports whether the service runs locally.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.Usage.Workers <= 0 {
		return fmt.Errorf("USAGE_WORKERS must be positive, got %d", c.Usage.Workers)
	}
	if c.Bootstrap.Username != "" && c.Bootstrap.Password == "" {
		return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD is required when BOOTSTRAP_ADMIN_USERNAME is set")
	}
	return nil
}
