// Package config loads server settings from flags, TASKBOARD_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"taskboard/internal/util"
)

const envPrefix = "TASKBOARD"

// Config is the resolved server configuration.
type Config struct {
	Addr     string
	DBDriver string
	DBDSN    string
	LogLevel slog.Level

	GoogleClientID string
	JWTSecret      string
	TokenTTL       time.Duration
	AdminEmails    []string
}

var defaults = map[string]any{
	"addr":                  ":8080",
	"db.driver":             "sqlite3",
	"db.dsn":                "data/taskboard.db",
	"log.level":             "info",
	"auth.google_client_id": "",
	"auth.jwt_secret":       "",
	"auth.token_ttl":        "24h",
	"auth.admin_emails":     []string{},
}

// flag name -> config key
var flagKeys = map[string]string{
	"addr":      "addr",
	"db-driver": "db.driver",
	"db-dsn":    "db.dsn",
	"log-level": "log.level",
}

// RegisterFlags adds the server flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file (env TASKBOARD_CONFIG)")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("db-driver", "sqlite3", "Database driver: sqlite3 or pgx")
	fs.String("db-dsn", "data/taskboard.db", "SQLite file path or Postgres connection string")
	fs.String("log-level", "info", "Log level: debug, info, warn or error")
}

// Load resolves the configuration. Flags only override when set explicitly.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := util.EnvOrDefault(envPrefix+"_CONFIG", "")
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Addr:           v.GetString("addr"),
		DBDriver:       v.GetString("db.driver"),
		DBDSN:          v.GetString("db.dsn"),
		GoogleClientID: v.GetString("auth.google_client_id"),
		JWTSecret:      v.GetString("auth.jwt_secret"),
		TokenTTL:       v.GetDuration("auth.token_ttl"),
		AdminEmails:    splitList(v.GetStringSlice("auth.admin_emails")),
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log.level"))); err != nil {
		return Config{}, fmt.Errorf("log.level: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("db.driver must be sqlite3 or pgx, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("db.dsn is required")
	}
	if c.GoogleClientID == "" {
		return fmt.Errorf("auth.google_client_id is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	return nil
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
