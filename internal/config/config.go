// Package config loads the server and syncer configuration from an optional
// YAML file overlaid with GITJOBS_-prefixed environment variables, where "__"
// separates nested keys (e.g. GITJOBS_DB__HOST maps to db.host).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Log formats accepted by log.format.
const (
	LogFormatJSON   = "json"
	LogFormatPretty = "pretty"
)

// Config holds all application configuration.
type Config struct {
	DB     DBConfig     `mapstructure:"db"`
	Email  EmailConfig  `mapstructure:"email"`
	Log    LogConfig    `mapstructure:"log"`
	Server ServerConfig `mapstructure:"server"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DBName   string `mapstructure:"dbname"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ConnString returns the keyword/value connection string for the pool.
func (c DBConfig) ConnString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "host=%s port=%d dbname=%s user=%s", c.Host, c.Port, c.DBName, c.User)
	if c.Password != "" {
		fmt.Fprintf(&sb, " password=%s", c.Password)
	}
	if c.MaxConns > 0 {
		fmt.Fprintf(&sb, " pool_max_conns=%d", c.MaxConns)
	}
	return sb.String()
}

// EmailConfig holds outbound email settings.
type EmailConfig struct {
	FromAddress string     `mapstructure:"from_address"`
	FromName    string     `mapstructure:"from_name"`
	Workers     int        `mapstructure:"workers"`
	SMTP        SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig holds SMTP server settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	BaseURL string `mapstructure:"base_url"`
}

// Load reads configuration from the given YAML file (if any) and the
// environment, returning the merged Config.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults. Every key is registered here so environment overrides are
	// picked up even when no config file is present.
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.dbname", "gitjobs")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.max_conns", 0)
	v.SetDefault("email.from_address", "")
	v.SetDefault("email.from_name", "")
	v.SetDefault("email.workers", 1)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("log.format", LogFormatJSON)
	v.SetDefault("server.addr", "127.0.0.1:9000")
	v.SetDefault("server.base_url", "http://localhost:9000")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("GITJOBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration shared by all binaries. It returns an
// error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	if c.DB.Host == "" {
		errs = append(errs, errors.New("db.host is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("db.port must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.DBName == "" {
		errs = append(errs, errors.New("db.dbname is required"))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("db.user is required"))
	}
	if c.Log.Format != LogFormatJSON && c.Log.Format != LogFormatPretty {
		errs = append(errs, fmt.Errorf("log.format must be %q or %q, got %q",
			LogFormatJSON, LogFormatPretty, c.Log.Format))
	}

	return errors.Join(errs...)
}

// Validate checks the settings required to send email. Only the server
// binary calls this; the syncer does not send email.
func (e EmailConfig) Validate() error {
	var errs []error

	if e.FromAddress == "" {
		errs = append(errs, errors.New("email.from_address is required"))
	}
	if e.FromName == "" {
		errs = append(errs, errors.New("email.from_name is required"))
	}
	if e.Workers < 1 {
		errs = append(errs, fmt.Errorf("email.workers must be at least 1, got %d", e.Workers))
	}
	if e.SMTP.Host == "" {
		errs = append(errs, errors.New("email.smtp.host is required"))
	}
	if e.SMTP.Port <= 0 || e.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("email.smtp.port must be a valid port, got %d", e.SMTP.Port))
	}

	return errors.Join(errs...)
}
