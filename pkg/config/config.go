package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Logging struct {
	JSONFormat bool `yaml:"json_format" env:"SHARELINKS_LOG_JSON"`
	// panic, fatal, error, warn, info, debug, trace
	Level string `yaml:"level" env:"SHARELINKS_LOG_LEVEL" env-default:"info"`
}

type Prometheus struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password" env:"SHARELINKS_PROMETHEUS_PASSWORD"`
}

type API struct {
	Enabled bool `yaml:"enabled" env:"SHARELINKS_API_ENABLED"`
	Port    int  `yaml:"port" env:"SHARELINKS_API_PORT" env-default:"3333"`

	// Public prefix used when rendering share URLs, e.g. https://snip.example.com
	BaseURL string `yaml:"base_url" env:"SHARELINKS_BASE_URL" env-default:"http://localhost:3333"`

	HealthCheckFailFile    string `yaml:"healthcheck_fail_file"`
	FreeSpaceRequiredBytes int64  `yaml:"free_space_required_bytes"`
	DataDirectory          string `yaml:"data_directory"`
}

type Database struct {
	Type     string         `yaml:"type" env:"SHARELINKS_DATABASE_TYPE" env-default:"memory"`
	Settings map[string]any `yaml:"settings"`
}

type Cache struct {
	Type     string         `yaml:"type" env-default:"memory"`
	Settings map[string]any `yaml:"settings"`
}

type RateLimit struct {
	MaxAttempts int           `yaml:"max_attempts" env-default:"20"`
	Window      time.Duration `yaml:"window" env-default:"1m"`
}

type Sharing struct {
	TokenAttempts  int           `yaml:"token_attempts" env-default:"3"`
	BcryptCost     int           `yaml:"bcrypt_cost" env-default:"10"`
	StorageTimeout time.Duration `yaml:"storage_timeout" env-default:"5s"`
	StatsBucket    time.Duration `yaml:"stats_bucket" env-default:"1h"`

	// Report every denial to anonymous callers as not found instead of
	// disclosing expired/revoked/limit-reached.
	UniformDenials bool `yaml:"uniform_denials"`

	MaxDescriptionLength int `yaml:"max_description_length" env-default:"500"`
}

type CryptoConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"SHARELINKS_JWT_SECRET"`
}

type ShareLinksConfig struct {
	Logging    Logging      `yaml:"logging"`
	API        API          `yaml:"api"`
	Database   Database     `yaml:"database"`
	Cache      Cache        `yaml:"cache"`
	RateLimit  RateLimit    `yaml:"rate_limit"`
	Sharing    Sharing      `yaml:"sharing"`
	Crypto     CryptoConfig `yaml:"crypto"`
	Prometheus Prometheus   `yaml:"prometheus"`
}

// Load reads the yaml file at filePath, applies environment overrides and
// defaults, and validates the result.
func Load(filePath string) (ShareLinksConfig, error) {
	var c ShareLinksConfig
	if err := cleanenv.ReadConfig(filePath, &c); err != nil {
		return ShareLinksConfig{}, fmt.Errorf("config.Load: %w", err)
	}

	if err := c.Validate(); err != nil {
		return ShareLinksConfig{}, fmt.Errorf("config.Load: %w", err)
	}
	return c, nil
}

func (c ShareLinksConfig) Validate() error {
	if c.Crypto.JWTSecret == "" {
		return fmt.Errorf("crypto.jwt_secret is required")
	}
	if c.RateLimit.MaxAttempts <= 0 {
		return fmt.Errorf("rate_limit.max_attempts must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive")
	}
	if c.Sharing.TokenAttempts <= 0 {
		return fmt.Errorf("sharing.token_attempts must be positive")
	}
	if c.Sharing.StorageTimeout <= 0 {
		return fmt.Errorf("sharing.storage_timeout must be positive")
	}
	return nil
}
