// Package config loads runtime settings from a YAML file, a .env file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. TRADELINE_DATABASE_PATH.
const EnvPrefix = "TRADELINE"

// Config aggregates application configuration values.
type Config struct {
	Logging  LoggingConfig
	Database DatabaseConfig
	Server   ServerConfig
	Pipeline PipelineConfig
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string
	Format string // text|json
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string
}

// ServerConfig governs the HTTP API.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
	ReportsDir      string
}

// PipelineConfig tunes extraction.
type PipelineConfig struct {
	Timeout        time.Duration
	MinBlockLength int
	TiePolicy      string
	Workers        int
	RulesFile      string
	OCR            bool
}

const (
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
	defaultDatabasePath    = "tradelines.db"
	defaultServerAddr      = ":8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultTimeout         = 30 * time.Second
	defaultMinBlockLength  = 40
	defaultTiePolicy       = "first"
	defaultWorkers         = 4
)

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", defaultLoggingLevel)
	v.SetDefault("logging.format", defaultLoggingFormat)
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("server.addr", defaultServerAddr)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.reports_dir", "")
	v.SetDefault("pipeline.timeout", defaultTimeout)
	v.SetDefault("pipeline.min_block_length", defaultMinBlockLength)
	v.SetDefault("pipeline.tie_policy", defaultTiePolicy)
	v.SetDefault("pipeline.workers", defaultWorkers)
	v.SetDefault("pipeline.rules_file", "")
	v.SetDefault("pipeline.ocr", false)
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"db":         "database.path",
	"addr":       "server.addr",
	"reports":    "server.reports_dir",
	"timeout":    "pipeline.timeout",
	"min-block":  "pipeline.min_block_length",
	"tie-policy": "pipeline.tie_policy",
	"workers":    "pipeline.workers",
	"rules":      "pipeline.rules_file",
	"ocr":        "pipeline.ocr",
}

// Load reads configuration. path names an explicit config file; when empty,
// config.yaml is searched for in the working directory and
// $HOME/.config/tradelines. A missing file is not an error. flags may be nil;
// any of its flags named in flagKeys override the file and environment.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/tradelines")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("failed to bind flag %q: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			ReportsDir:      v.GetString("server.reports_dir"),
		},
		Pipeline: PipelineConfig{
			Timeout:        v.GetDuration("pipeline.timeout"),
			MinBlockLength: v.GetInt("pipeline.min_block_length"),
			TiePolicy:      strings.ToLower(strings.TrimSpace(v.GetString("pipeline.tie_policy"))),
			Workers:        v.GetInt("pipeline.workers"),
			RulesFile:      v.GetString("pipeline.rules_file"),
			OCR:            v.GetBool("pipeline.ocr"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "console", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	switch c.Pipeline.TiePolicy {
	case "first", "best":
	default:
		return fmt.Errorf("invalid tie policy %q: want first or best", c.Pipeline.TiePolicy)
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.MinBlockLength <= 0 {
		return fmt.Errorf("pipeline.min_block_length must be positive, got %d", c.Pipeline.MinBlockLength)
	}
	if c.Pipeline.Timeout < 0 {
		return fmt.Errorf("pipeline.timeout must not be negative, got %s", c.Pipeline.Timeout)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	return nil
}

// loadDotEnv loads .env from the working directory, then its parent.
// Variables already set in the environment win.
func loadDotEnv() error {
	for _, p := range []string{".env", "../.env"} {
		err := godotenv.Load(p)
		if err == nil {
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}
