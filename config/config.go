/*
Package config loads runtime configuration.

SOURCES (later wins):
  1. Defaults below
  2. Config file (YAML/TOML/JSON), given explicitly or found as budget.* in
     the working directory or $HOME/.config/budget
  3. .env file in the working directory (loaded into the environment)
  4. BUDGET_* environment variables, e.g. BUDGET_DATABASE_PATH
  5. Flags bound onto the viper instance by the caller

KEYS:
  server.port, server.read_timeout, server.write_timeout,
  server.idle_timeout, server.shutdown_timeout
  database.path
  log.level, log.format
  cors.allowed_origins
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "BUDGET"

// New returns a viper instance with defaults and environment binding set up.
// Callers may bind flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("database.path", "./data/budget.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:8080"})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and returns the validated config.
// An empty path searches the default locations; a missing file there is not
// an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("budget")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "budget"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate returns every problem found, not just the first.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Server.Port))
	}
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"read_timeout", c.Server.ReadTimeout},
		{"write_timeout", c.Server.WriteTimeout},
		{"idle_timeout", c.Server.IdleTimeout},
		{"shutdown_timeout", c.Server.ShutdownTimeout},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			problems = append(problems, fmt.Sprintf("server.%s must be positive", t.name))
		}
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		problems = append(problems, "database path cannot be empty")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format %q", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
