package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv          string        `yaml:"app_env"`
	LogLevel        string        `yaml:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	HTTPAddr        string        `yaml:"http_addr" validate:"required"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	ReviewsAPIURL   string        `yaml:"reviews_api_url" validate:"required,url"`
	ReviewSource    string        `yaml:"review_source" validate:"oneof=http mysql"`
	MySQLDSN        string        `yaml:"mysql_dsn" validate:"required_if=ReviewSource mysql"`
	ReviewsTable    string        `yaml:"reviews_table"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisDB         int           `yaml:"redis_db" validate:"min=0"`
	RedisPass       string        `yaml:"redis_password"`
	MirrorEnabled   bool          `yaml:"mirror_enabled"`
	FetchRPS        int           `yaml:"fetch_rps" validate:"min=1"`
	FetchTimeout    time.Duration `yaml:"-"`
	CacheTTL        time.Duration `yaml:"-"`
	RefreshSchedule string        `yaml:"refresh_schedule"`

	// seconds in the YAML file
	FetchTimeoutSec int `yaml:"fetch_timeout_seconds" validate:"min=1"`
	CacheTTLSec     int `yaml:"cache_ttl_seconds" validate:"min=0"`
}

func defaults() Config {
	return Config{
		AppEnv:          "prod",
		LogLevel:        "info",
		HTTPAddr:        ":8080",
		ReviewsAPIURL:   "http://localhost:8000/api",
		ReviewSource:    "http",
		MySQLDSN:        "",
		ReviewsTable:    "api_review",
		RedisAddr:       "localhost:6379",
		MirrorEnabled:   true,
		FetchRPS:        5,
		FetchTimeoutSec: 20,
		CacheTTLSec:     900,
		RefreshSchedule: "* * * * *",
	}
}

var validate = validator.New()

// Load builds the config from defaults, then the YAML file at CONFIG_PATH
// (default config.yaml, optional), then environment variables.
func Load() (Config, error) {
	c := defaults()

	path := env("CONFIG_PATH", "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		log.Info().Str("path", path).Msg("loaded config file")
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	c.AppEnv = env("APP_ENV", c.AppEnv)
	c.LogLevel = strings.ToLower(env("LOG_LEVEL", c.LogLevel))
	c.HTTPAddr = env("HTTP_ADDR", c.HTTPAddr)
	c.MetricsAddr = env("METRICS_ADDR", c.MetricsAddr)
	c.ReviewsAPIURL = env("REVIEWS_API_URL", c.ReviewsAPIURL)
	c.ReviewSource = strings.ToLower(env("REVIEW_SOURCE", c.ReviewSource))
	c.MySQLDSN = env("MYSQL_DSN", c.MySQLDSN)
	c.ReviewsTable = env("REVIEWS_TABLE", c.ReviewsTable)
	c.RedisAddr = env("REDIS_ADDR", c.RedisAddr)
	c.RedisPass = env("REDIS_PASSWORD", c.RedisPass)
	c.RedisDB = atoi("REDIS_DB", c.RedisDB)
	c.MirrorEnabled = boolean("MIRROR_ENABLED", c.MirrorEnabled)
	c.FetchRPS = atoi("FETCH_RPS", c.FetchRPS)
	c.FetchTimeoutSec = atoi("FETCH_TIMEOUT_SECONDS", c.FetchTimeoutSec)
	c.CacheTTLSec = atoi("CACHE_TTL_SECONDS", c.CacheTTLSec)
	// an explicitly empty REFRESH_SCHEDULE disables scheduled refresh
	if v, ok := os.LookupEnv("REFRESH_SCHEDULE"); ok {
		c.RefreshSchedule = strings.TrimSpace(v)
	}

	c.FetchTimeout = time.Duration(c.FetchTimeoutSec) * time.Second
	c.CacheTTL = time.Duration(c.CacheTTLSec) * time.Second

	if err := validate.Struct(c); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if c.MirrorEnabled && c.RedisAddr == "" {
		log.Warn().Msg("MIRROR_ENABLED without REDIS_ADDR; mirror disabled")
		c.MirrorEnabled = false
	}
	return c, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer env value")
	}
	return def
}

func boolean(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-boolean env value")
	}
	return def
}
