package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/orgdesk/orgdesk/internal/rbac"
)

// Config is the full application configuration, loaded from orgdesk.yaml
// and ORGDESK_* environment variables.
type Config struct {
	Server    ServerConfig        `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig          `yaml:"auth" mapstructure:"auth"`
	Database  DatabaseConfig      `yaml:"database" mapstructure:"database"`
	RoleNames *rbac.RoleNameTable `yaml:"role_names" mapstructure:"role_names"`
	Logging   LoggingConfig       `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	CORSOrigins     []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	RateLimit       int           `yaml:"rate_limit" mapstructure:"rate_limit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// AuthConfig holds session settings. JWTSecret must be set in production;
// the dev fallback is only applied by the serve command.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// DatabaseConfig selects the storage backend. Driver is one of "sqlite",
// "pgx", or "mysql". For sqlite an empty DSN stores the database under
// DataDir.
type DatabaseConfig struct {
	Driver  string `yaml:"driver" mapstructure:"driver"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			CORSOrigins:     []string{"*"},
			RateLimit:       300,
			ShutdownTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load merges viper's current state (config file, env, bound flags) over the
// defaults.
func Load() (Config, error) {
	cfg := Default()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.RoleNames == nil {
		cfg.RoleNames = rbac.DefaultRoleNameTable()
	}
	return cfg, nil
}
