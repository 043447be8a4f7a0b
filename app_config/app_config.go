package app_config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ProviderMode string

const (
	// Live queries the RapidAPI twitter241 endpoints.
	ProviderModeLive ProviderMode = "live"
	// Mock generates clearly labeled synthetic posts for offline and demo runs.
	ProviderModeMock ProviderMode = "mock"
	// Scraper reads public timelines through twitter-scraper, no credential.
	ProviderModeScraper ProviderMode = "scraper"
	// Rss reads a per-handle RSS feed, e.g. from a nitter instance.
	ProviderModeRss ProviderMode = "rss"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSqlite   = "sqlite"

	// RapidAPI keys are long opaque tokens, anything shorter is a placeholder.
	minRapidApiKeyLength = 20
)

// AppConfig is the process level configuration. All values come from the
// environment (optionally populated from .env files by utils/dotenv).
type AppConfig struct {
	ProviderMode ProviderMode
	RapidApiKey  string
	RapidApiHost string
	RssBaseUrl   string

	RefreshInterval time.Duration
	PageSize        int
	ProviderTimeout time.Duration
	StoreTimeout    time.Duration
	// Upper bound of a single pipeline run.
	RunTimeout time.Duration
	// How long shutdown waits for in-flight runs before cancelling them.
	ShutdownGracePeriod time.Duration

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPass     string
	DBName     string
	SqlitePath string

	RedisHost   string
	RedisPort   string
	RedisPasswd string

	StatsdAddr      string
	SlackWebhookUrl string

	ApiHost     string
	ApiPort     string
	FrontendUrl string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("RAPIDAPI_HOST", "twitter241.p.rapidapi.com")
	v.SetDefault("RSS_BASE_URL", "https://nitter.net")
	v.SetDefault("REFRESH_INTERVAL_HOURS", 1)
	v.SetDefault("FETCH_PAGE_SIZE", 10)
	v.SetDefault("PROVIDER_TIMEOUT_SECONDS", 15)
	v.SetDefault("STORE_TIMEOUT_SECONDS", 15)
	v.SetDefault("RUN_TIMEOUT_MINUTES", 10)
	v.SetDefault("SHUTDOWN_GRACE_SECONDS", 30)
	v.SetDefault("DB_DRIVER", DBDriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "postwall")
	v.SetDefault("SQLITE_PATH", "./data/postwall.db")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("API_HOST", "0.0.0.0")
	v.SetDefault("API_PORT", "8000")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	return v
}

// Load reads the configuration from the environment and validates it.
func Load() (*AppConfig, error) {
	v := newViper()

	cfg := &AppConfig{
		RapidApiKey:         strings.TrimSpace(v.GetString("RAPIDAPI_KEY")),
		RapidApiHost:        v.GetString("RAPIDAPI_HOST"),
		RssBaseUrl:          strings.TrimRight(v.GetString("RSS_BASE_URL"), "/"),
		RefreshInterval:     time.Duration(v.GetInt("REFRESH_INTERVAL_HOURS")) * time.Hour,
		PageSize:            v.GetInt("FETCH_PAGE_SIZE"),
		ProviderTimeout:     time.Duration(v.GetInt("PROVIDER_TIMEOUT_SECONDS")) * time.Second,
		StoreTimeout:        time.Duration(v.GetInt("STORE_TIMEOUT_SECONDS")) * time.Second,
		RunTimeout:          time.Duration(v.GetInt("RUN_TIMEOUT_MINUTES")) * time.Minute,
		ShutdownGracePeriod: time.Duration(v.GetInt("SHUTDOWN_GRACE_SECONDS")) * time.Second,
		DBDriver:            strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:              v.GetString("DB_HOST"),
		DBPort:              v.GetString("DB_PORT"),
		DBUser:              v.GetString("DB_USER"),
		DBPass:              v.GetString("DB_PASS"),
		DBName:              v.GetString("DB_NAME"),
		SqlitePath:          v.GetString("SQLITE_PATH"),
		RedisHost:           v.GetString("REDIS_HOST"),
		RedisPort:           v.GetString("REDIS_PORT"),
		RedisPasswd:         v.GetString("REDIS_PASSWD"),
		StatsdAddr:          v.GetString("STATSD_ADDR"),
		SlackWebhookUrl:     v.GetString("SLACK_WEBHOOK_URL"),
		ApiHost:             v.GetString("API_HOST"),
		ApiPort:             v.GetString("API_PORT"),
		FrontendUrl:         v.GetString("FRONTEND_URL"),
	}
	cfg.ProviderMode = resolveProviderMode(v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PROVIDER_MODE wins. Otherwise the legacy USE_MOCK_DATA switch picks between
// mock (default) and live.
func resolveProviderMode(v *viper.Viper) ProviderMode {
	if mode := strings.ToLower(strings.TrimSpace(v.GetString("PROVIDER_MODE"))); mode != "" {
		return ProviderMode(mode)
	}
	if v.IsSet("USE_MOCK_DATA") && !v.GetBool("USE_MOCK_DATA") {
		return ProviderModeLive
	}
	return ProviderModeMock
}

func (c *AppConfig) Validate() error {
	switch c.ProviderMode {
	case ProviderModeLive, ProviderModeMock, ProviderModeScraper, ProviderModeRss:
	default:
		return fmt.Errorf("unknown PROVIDER_MODE %q", c.ProviderMode)
	}
	switch c.DBDriver {
	case DBDriverPostgres, DBDriverSqlite:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL_HOURS must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("FETCH_PAGE_SIZE must be positive")
	}
	if c.ProviderTimeout <= 0 || c.StoreTimeout <= 0 || c.RunTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// HasUsableRapidApiKey reports whether the configured credential looks real.
func (c *AppConfig) HasUsableRapidApiKey() bool {
	return len(c.RapidApiKey) > minRapidApiKeyLength
}

func (c *AppConfig) ApiAddr() string {
	return c.ApiHost + ":" + c.ApiPort
}

func (c *AppConfig) RedisEnabled() bool {
	return c.RedisHost != ""
}
