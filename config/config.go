package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envPrefix prefixes every environment override, e.g. PRICELENS_DATABASE_DSN
const envPrefix = "PRICELENS"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Analysis  AnalysisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Ingest    IngestConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // "postgres" or "sqlite"
	DSN             string `mapstructure:"dsn"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
	ConnectAttempts int    `mapstructure:"connect_attempts"`
}

// AnalysisConfig holds report defaults
type AnalysisConfig struct {
	DefaultThreshold float64 `mapstructure:"default_threshold"`
}

// CacheConfig holds report cache configuration
type CacheConfig struct {
	TTL             time.Duration `mapstructure:"ttl"` // 0 disables caching
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// IngestConfig holds CSV ingestion configuration
type IngestConfig struct {
	DefaultFile string `mapstructure:"default_file"`
	WatchDir    string `mapstructure:"watch_dir"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// BindFlags registers the flags shared by every command
func BindFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "path to a config file (overrides "+envPrefix+"_CONFIG)")
}

// Load loads configuration from an optional file, environment variables and
// defaults. The file comes from the --config flag on fs, then PRICELENS_CONFIG,
// then config.yaml in the working directory or ./config.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	configFile := os.Getenv(envPrefix + "_CONFIG")
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			configFile = f.Value.String()
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// no config file; environment variables and defaults apply
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:pricelens.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.connect_attempts", 5)

	v.SetDefault("analysis.default_threshold", 1.1)

	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.cleanup_interval", "10m")

	v.SetDefault("ratelimit.per_ip", 120)

	v.SetDefault("ingest.default_file", "pricing_data.csv")
	v.SetDefault("ingest.watch_dir", "")

	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Database.Driver != "postgres" && config.Database.Driver != "sqlite" {
		return fmt.Errorf("database driver must be 'postgres' or 'sqlite', got: %s", config.Database.Driver)
	}

	if config.Database.DSN == "" {
		return fmt.Errorf("database DSN is required (set %s_DATABASE_DSN)", envPrefix)
	}

	if config.Analysis.DefaultThreshold <= 0 {
		return fmt.Errorf("analysis default threshold must be positive, got: %v", config.Analysis.DefaultThreshold)
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("rate limit per IP must not be negative, got: %d", config.RateLimit.PerIP)
	}

	if config.Cache.TTL < 0 {
		return fmt.Errorf("cache TTL must not be negative, got: %s", config.Cache.TTL)
	}

	switch strings.ToLower(config.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got: %s", config.Log.Level)
	}

	return nil
}
