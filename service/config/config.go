package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "GTI"

// Config is the service environment, every field can be set with a GTI_ prefixed variable
type Config struct {
	Addr             string        `envconfig:"ADDR" default:":8080"`
	DatabaseURL      string        `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns int32         `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMinConns int32         `envconfig:"DATABASE_MIN_CONNS" default:"2"`
	RedisAddr        string        `envconfig:"REDIS_ADDR"`
	RedisDB          int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL         time.Duration `envconfig:"CACHE_TTL" default:"15m"`
	WeightsPath      string        `envconfig:"WEIGHTS_PATH" default:"config/weights.csv"`
	SettingsPath     string        `envconfig:"SETTINGS_PATH" default:"config/settings.yaml"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	ScenarioWorkers  int           `envconfig:"SCENARIO_WORKERS" default:"4"`
	AllowedOrigins   []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ReadTimeout      time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout     time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// LoadEnvFiles loads .env style files into the environment. Missing files are not an error,
// existing variables are never overwritten.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error loading env file %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the GTI_ environment into a Config and checks it
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.ScenarioWorkers < 1 {
		return fmt.Errorf("scenario workers must be at least 1, got %d", c.ScenarioWorkers)
	}
	if c.DatabaseMinConns < 0 || c.DatabaseMaxConns < 1 || c.DatabaseMinConns > c.DatabaseMaxConns {
		return fmt.Errorf("database connections must satisfy 0 <= min <= max and max >= 1, got min %d max %d", c.DatabaseMinConns, c.DatabaseMaxConns)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %v", c.CacheTTL)
	}
	return nil
}

// CacheEnabled is false when no redis address is configured
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}
