package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Log        LogConfig        `yaml:"log"`
	Membership MembershipConfig `yaml:"membership"`
}

type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         string   `yaml:"port"`
	Mode         string   `yaml:"mode"` // debug, release, test
	AllowOrigins []string `yaml:"allow_origins"`

	// Per-IP limit on the login, registration and activation endpoints.
	AuthRateLimit float64 `yaml:"auth_rate_limit"`
	AuthBurst     int     `yaml:"auth_burst"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpireHour int    `yaml:"expire_hour"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// MembershipConfig holds the lifecycle and reporting knobs.
type MembershipConfig struct {
	Timezone                    string        `yaml:"timezone"`
	SweepCron                   string        `yaml:"sweep_cron"`
	SummaryCacheTTL             time.Duration `yaml:"summary_cache_ttl"`
	AllowAnnualSelfRegistration bool          `yaml:"allow_annual_self_registration"`
	DefaultAdminPassword        string        `yaml:"default_admin_password"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		// Unmarshal over the defaults so partial files keep sane values.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.overrideFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          "8080",
			Mode:          "debug",
			AllowOrigins:  []string{"*"},
			AuthRateLimit: 1,
			AuthBurst:     5,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "gymdesk.db?_foreign_keys=on",
		},
		JWT: JWTConfig{
			Secret:     "gymdesk-secret-key-change-in-production",
			ExpireHour: 24,
		},
		Log: LogConfig{
			Level: "info",
		},
		Membership: MembershipConfig{
			Timezone:             "Asia/Manila",
			SweepCron:            "@every 1h",
			SummaryCacheTTL:      10 * time.Second,
			DefaultAdminPassword: "admin123",
		},
	}
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if _, err := time.LoadLocation(c.Membership.Timezone); err != nil {
		return fmt.Errorf("invalid membership timezone %q: %w", c.Membership.Timezone, err)
	}
	if c.Membership.SummaryCacheTTL <= 0 {
		return fmt.Errorf("summary_cache_ttl must be positive, got %s", c.Membership.SummaryCacheTTL)
	}
	return nil
}

// Location returns the organizational timezone. Validate guarantees it loads.
func (c *MembershipConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
		c.Membership.Timezone = tz
	}
	if spec := os.Getenv("SWEEP_CRON"); spec != "" {
		c.Membership.SweepCron = spec
	}
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		c.Membership.DefaultAdminPassword = password
	}
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
