package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/nikolayk812/storefront/internal/domain"
	"golang.org/x/text/currency"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string

	Currency currency.Unit

	Contentful Contentful
	Store      Store
}

type Contentful struct {
	SpaceID       string
	AccessToken   string
	ContentTypeID string
	Environment   string
	BaseURL       string
	Timeout       time.Duration
}

type Store struct {
	Backend     string
	Dir         string
	Scope       uuid.UUID
	RedisAddr   string
	DatabaseURL string
}

// Load reads the configuration from the environment, seeded from the given
// dotenv files (".env" when none are given). Missing files are ignored.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("godotenv.Load: %w", err)
	}

	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which has the signature of os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		AppEnv:   get("APP_ENV", "dev"),
		LogLevel: get("LOG_LEVEL", "info"),
		HTTPAddr: get("HTTP_ADDR", ":8080"),
		Currency: domain.DefaultCurrency,
		Contentful: Contentful{
			SpaceID:       get("SPACE_ID", ""),
			AccessToken:   get("API_KEY", ""),
			ContentTypeID: get("CONTENT_TYPE_ID", ""),
			Environment:   get("CONTENTFUL_ENVIRONMENT", "master"),
			BaseURL:       strings.TrimRight(get("CONTENTFUL_BASE_URL", "https://cdn.contentful.com"), "/"),
			Timeout:       10 * time.Second,
		},
		Store: Store{
			Backend:     strings.ToLower(get("STORE_BACKEND", BackendFile)),
			Dir:         get("STORE_DIR", "./data"),
			Scope:       uuid.Nil,
			RedisAddr:   get("REDIS_ADDR", ""),
			DatabaseURL: get("DATABASE_URL", ""),
		},
	}

	var missing []string
	for key, value := range map[string]string{
		"SPACE_ID":        cfg.Contentful.SpaceID,
		"API_KEY":         cfg.Contentful.AccessToken,
		"CONTENT_TYPE_ID": cfg.Contentful.ContentTypeID,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}

	switch cfg.Store.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if cfg.Store.RedisAddr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	case BackendPostgres:
		if cfg.Store.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return Config{}, &domain.ConfigError{Reason: fmt.Sprintf("STORE_BACKEND[%s] is not supported", cfg.Store.Backend)}
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		return Config{}, &domain.ConfigError{Missing: missing}
	}

	if v := get("FETCH_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, &domain.ConfigError{Reason: fmt.Sprintf("FETCH_TIMEOUT[%s] is not a positive duration", v)}
		}
		cfg.Contentful.Timeout = d
	}

	if v := get("STORE_SCOPE", ""); v != "" {
		scope, err := uuid.Parse(v)
		if err != nil {
			return Config{}, &domain.ConfigError{Reason: fmt.Sprintf("STORE_SCOPE[%s] is not a UUID: %v", v, err)}
		}
		cfg.Store.Scope = scope
	}

	if v := get("SHOP_CURRENCY", ""); v != "" {
		unit, err := currency.ParseISO(v)
		if err != nil {
			return Config{}, &domain.ConfigError{Reason: fmt.Sprintf("SHOP_CURRENCY[%s] is not valid: %v", v, err)}
		}
		cfg.Currency = unit
	}

	return cfg, nil
}
