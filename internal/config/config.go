// Package config loads cartctl settings from a YAML file and CARTCTL_*
// environment variables. Environment values override the file, and the
// merged result is validated before use.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cartengine/internal/cart"
	"github.com/roach88/cartengine/internal/notify"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CARTCTL_"

var validate = validator.New()

// Config holds all cartctl configuration.
type Config struct {
	Storage string       `yaml:"storage" validate:"required,oneof=memory sqlite redis"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
	Redis   RedisConfig  `yaml:"redis"`

	// Catalog is the path of the product catalog YAML file.
	Catalog      string `yaml:"catalog" validate:"required"`
	WatchCatalog bool   `yaml:"watch_catalog"`

	ToastDuration time.Duration `yaml:"toast_duration" validate:"min=4s,max=6s"`
	BundleRate    string        `yaml:"bundle_rate" validate:"required,numeric"`
	StockPolicy   string        `yaml:"stock_policy" validate:"oneof=informational reject"`
	LogLevel      string        `yaml:"log_level" validate:"oneof=debug info warn error"`
}

// SQLiteConfig configures the sqlite backend.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db" validate:"min=0,max=15"`
	Namespace string `yaml:"namespace"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage:       StorageSQLite,
		SQLite:        SQLiteConfig{Path: "cartctl.db"},
		Redis:         RedisConfig{Addr: "localhost:6379", Namespace: "cartctl"},
		Catalog:       "catalog.yaml",
		ToastDuration: notify.DefaultDuration,
		BundleRate:    "0.15",
		StockPolicy:   cart.StockInformational.String(),
		LogLevel:      "info",
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decode overlays a YAML document on cfg. Unknown keys are rejected.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overlays CARTCTL_* variables on cfg.
func applyEnv(cfg *Config) error {
	cfg.Storage = getEnv("STORAGE", cfg.Storage)
	cfg.SQLite.Path = getEnv("SQLITE_PATH", cfg.SQLite.Path)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.Namespace = getEnv("REDIS_NAMESPACE", cfg.Redis.Namespace)
	cfg.Catalog = getEnv("CATALOG", cfg.Catalog)
	cfg.BundleRate = getEnv("BUNDLE_RATE", cfg.BundleRate)
	cfg.StockPolicy = getEnv("STOCK_POLICY", cfg.StockPolicy)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.WatchCatalog = getEnvBool("WATCH_CATALOG", cfg.WatchCatalog)

	if v := os.Getenv(EnvPrefix + "REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREDIS_DB: %q is not an integer", EnvPrefix, v)
		}
		cfg.Redis.DB = n
	}
	if v := os.Getenv(EnvPrefix + "TOAST_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTOAST_DURATION: %w", EnvPrefix, err)
		}
		cfg.ToastDuration = d
	}
	return nil
}

// Validate checks field constraints and backend-specific requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	var problems []string
	switch c.Storage {
	case StorageSQLite:
		if c.SQLite.Path == "" {
			problems = append(problems, "sqlite.path is required when storage is sqlite")
		}
	case StorageRedis:
		if c.Redis.Addr == "" {
			problems = append(problems, "redis.addr is required when storage is redis")
		}
	}
	if r, err := decimal.NewFromString(c.BundleRate); err == nil {
		if r.IsNegative() || r.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			problems = append(problems, fmt.Sprintf("bundle_rate %s must be in [0, 1)", c.BundleRate))
		}
	}
	if len(problems) > 0 {
		return errors.New("invalid config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Rate returns the bundle discount rate. Only meaningful on a validated
// config.
func (c Config) Rate() decimal.Decimal {
	return decimal.RequireFromString(c.BundleRate)
}

// Policy returns the cart stock policy. Only meaningful on a validated
// config.
func (c Config) Policy() cart.StockPolicy {
	p, _ := cart.ParseStockPolicy(c.StockPolicy)
	return p
}

// formatValidationError turns validator errors into one readable message.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return errors.New("invalid config: " + strings.Join(msgs, "; "))
}

// formatFieldError formats a single field validation error.
func formatFieldError(e validator.FieldError) string {
	field := fieldName(e)

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "numeric":
		return fmt.Sprintf("%s must be a number", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// fieldName renders the namespaced field as its YAML path, e.g.
// "Config.Redis.DB" becomes "redis.db".
func fieldName(e validator.FieldError) string {
	parts := strings.Split(e.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = yamlName(p)
	}
	return strings.Join(parts, ".")
}

var yamlNames = map[string]string{
	"SQLite":        "sqlite",
	"ToastDuration": "toast_duration",
	"BundleRate":    "bundle_rate",
	"StockPolicy":   "stock_policy",
	"LogLevel":      "log_level",
	"WatchCatalog":  "watch_catalog",
}

func yamlName(field string) string {
	if n, ok := yamlNames[field]; ok {
		return n
	}
	return strings.ToLower(field)
}

// getEnv gets a CARTCTL_ environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean CARTCTL_ environment variable with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}
