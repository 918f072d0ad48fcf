// Package config handles configuration loading for Oakdash.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Providers ProvidersConfig `mapstructure:"providers" yaml:"providers"`
	Cache     CacheConfig     `mapstructure:"cache"     yaml:"cache"`
	Limiter   LimiterConfig   `mapstructure:"limiter"   yaml:"limiter"`
	HTTP      HTTPConfig      `mapstructure:"http"      yaml:"http"`
	Watchlist WatchlistConfig `mapstructure:"watchlist" yaml:"watchlist"`
	Dividend  DividendConfig  `mapstructure:"dividend"  yaml:"dividend"`
	Refresh   RefreshConfig   `mapstructure:"refresh"   yaml:"refresh"`
	News      NewsConfig      `mapstructure:"news"      yaml:"news"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// ProvidersConfig holds the two market-data provider endpoints and keys.
type ProvidersConfig struct {
	Finnhub ProviderConfig `mapstructure:"finnhub" yaml:"finnhub"`
	FMP     ProviderConfig `mapstructure:"fmp"     yaml:"fmp"`
}

// ProviderConfig is one provider's base URL and API key.
type ProviderConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Key     string `mapstructure:"key"      yaml:"key"`
}

// CacheConfig holds per-category freshness timeouts and the backing store.
type CacheConfig struct {
	RedisURL       string        `mapstructure:"redis_url"       yaml:"redis_url"`
	PriceTTL       time.Duration `mapstructure:"price_ttl"       yaml:"price_ttl"`
	ProfileTTL     time.Duration `mapstructure:"profile_ttl"     yaml:"profile_ttl"`
	HistoricalTTL  time.Duration `mapstructure:"historical_ttl"  yaml:"historical_ttl"`
	FeaturedTTL    time.Duration `mapstructure:"featured_ttl"    yaml:"featured_ttl"`
	FundamentalTTL time.Duration `mapstructure:"fundamental_ttl" yaml:"fundamental_ttl"`
	PreScreenTTL   time.Duration `mapstructure:"prescreen_ttl"   yaml:"prescreen_ttl"`
	NewsTTL        time.Duration `mapstructure:"news_ttl"        yaml:"news_ttl"`
	// Retention bounds total growth: entries older than this are swept
	// regardless of category.
	Retention     time.Duration `mapstructure:"retention"      yaml:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// LimiterConfig holds the outbound call budget for the screening pipeline and
// the stagger used by batch fetches.
type LimiterConfig struct {
	CallsPerMinute int           `mapstructure:"calls_per_minute" yaml:"calls_per_minute"`
	MinSpacing     time.Duration `mapstructure:"min_spacing"      yaml:"min_spacing"`
	BatchStagger   time.Duration `mapstructure:"batch_stagger"    yaml:"batch_stagger"`
}

// HTTPConfig holds outbound HTTP client settings.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// WatchlistConfig holds the featured watchlist and index symbol lists.
type WatchlistConfig struct {
	FeaturedSymbols []string `mapstructure:"featured_symbols" yaml:"featured_symbols"`
	IndexSymbols    []string `mapstructure:"index_symbols"    yaml:"index_symbols"`
}

// DividendConfig holds screening pipeline policy knobs.
type DividendConfig struct {
	PortfolioSize int `mapstructure:"portfolio_size" yaml:"portfolio_size"`
	MaxCandidates int `mapstructure:"max_candidates" yaml:"max_candidates"`
}

// RefreshConfig holds the periodic background refresh intervals.
type RefreshConfig struct {
	Featured time.Duration `mapstructure:"featured" yaml:"featured"`
	Indices  time.Duration `mapstructure:"indices"  yaml:"indices"`
}

// NewsConfig lists the market news RSS feeds.
type NewsConfig struct {
	Feeds []NewsFeed `mapstructure:"feeds" yaml:"feeds"`
}

// NewsFeed is one RSS source.
type NewsFeed struct {
	Name string `mapstructure:"name" yaml:"name"`
	URL  string `mapstructure:"url"  yaml:"url"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.oakdash/config.yaml (home directory)
//  3. /etc/oakdash/config.yaml (system)
//
// Environment variables override config file values.
// Format: OAKDASH_<SECTION>_<KEY>, e.g., OAKDASH_PROVIDERS_FINNHUB_KEY.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".oakdash"))
	v.AddConfigPath("/etc/oakdash")

	v.SetEnvPrefix("OAKDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("OAKDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values. The cache, limiter,
// and watchlist literals are product policy inherited from the dashboard, kept
// as defaults rather than hardcoded.
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Provider defaults (keys come from env)
	v.SetDefault("providers.finnhub.base_url", "https://finnhub.io/api/v1")
	v.SetDefault("providers.fmp.base_url", "https://financialmodelingprep.com/api/v3")

	// Cache defaults
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.price_ttl", "60s")
	v.SetDefault("cache.profile_ttl", "1h")
	v.SetDefault("cache.historical_ttl", "24h")
	v.SetDefault("cache.featured_ttl", "60m")
	v.SetDefault("cache.fundamental_ttl", "24h")
	v.SetDefault("cache.prescreen_ttl", "1h")
	v.SetDefault("cache.news_ttl", "10m")
	v.SetDefault("cache.retention", "168h") // 7 days
	v.SetDefault("cache.sweep_interval", "1h")

	// Limiter defaults
	v.SetDefault("limiter.calls_per_minute", 60)
	v.SetDefault("limiter.min_spacing", "1s")
	v.SetDefault("limiter.batch_stagger", "100ms")

	// Outbound HTTP defaults
	v.SetDefault("http.timeout", "10s")

	// Watchlist defaults: market leaders plus the four broad index ETFs.
	v.SetDefault("watchlist.featured_symbols", []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA"})
	v.SetDefault("watchlist.index_symbols", []string{"SPY", "QQQ", "DIA", "IWM"})

	// Dividend pipeline defaults
	v.SetDefault("dividend.portfolio_size", 5)
	v.SetDefault("dividend.max_candidates", 30)

	// Background refresh defaults
	v.SetDefault("refresh.featured", "60m")
	v.SetDefault("refresh.indices", "5m")

	// News defaults
	v.SetDefault("news.feeds", []map[string]any{
		{"name": "MarketWatch", "url": "https://feeds.content.dowjones.io/public/rss/mw_topstories"},
		{"name": "CNBC Markets", "url": "https://www.cnbc.com/id/20910258/device/rss/rss.html"},
	})
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("OAKDASH_PROVIDERS_FINNHUB_KEY"); key != "" {
		cfg.Providers.Finnhub.Key = key
	}
	if key := os.Getenv("OAKDASH_PROVIDERS_FMP_KEY"); key != "" {
		cfg.Providers.FMP.Key = key
	}
	if url := os.Getenv("OAKDASH_CACHE_REDIS_URL"); url != "" {
		cfg.Cache.RedisURL = url
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
