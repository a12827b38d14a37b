// Package config loads and validates malcrawl configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/malcrawl/internal/crawl"
)

// EnvPrefix namespaces environment overrides, e.g. MALCRAWL_CRAWL_DELAY_SECONDS=4.
const EnvPrefix = "MALCRAWL"

// Cache backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Jikan    JikanConfig    `mapstructure:"jikan"`
	AniList  AniListConfig  `mapstructure:"anilist"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Status   StatusConfig   `mapstructure:"status"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// CrawlConfig selects the id range and the output file.
type CrawlConfig struct {
	Complete     bool    `mapstructure:"complete"`
	Range        []int   `mapstructure:"range"`
	DelaySeconds float64 `mapstructure:"delay_seconds"`
	Append       bool    `mapstructure:"append"`
	Output       string  `mapstructure:"output"`
	Persist      bool    `mapstructure:"persist"`
}

// CacheConfig selects and configures the popularity cache store.
type CacheConfig struct {
	Backend    string      `mapstructure:"backend"`
	SQLitePath string      `mapstructure:"sqlite_path"`
	Redis      RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the shared cache backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// JikanConfig configures the catalog transport.
type JikanConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// AniListConfig configures the enrichment pass.
type AniListConfig struct {
	URL         string  `mapstructure:"url"`
	WaitSeconds float64 `mapstructure:"wait_seconds"`
	Input       string  `mapstructure:"input"`
	Output      string  `mapstructure:"output"`
}

// LoggingConfig toggles logger presets.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// StatusConfig enables the status server when Addr is set.
type StatusConfig struct {
	Addr string `mapstructure:"addr"`
}

// PostgresConfig enables the row mirror when DSN is set.
type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// TracingConfig selects where crawl spans are exported.
type TracingConfig struct {
	Exporter string `mapstructure:"exporter"`
	Output   string `mapstructure:"output"`
}

// ErrInvalidRange reports an unusable combination of range settings.
var ErrInvalidRange = crawl.ErrInvalidRange

// ErrConflictingCache reports a persist request paired with the in-memory cache.
var ErrConflictingCache = errors.New("conflicting cache settings")

// New returns a Viper instance with defaults and environment overrides applied.
// Callers may bind flags to it before passing it to Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the optional config file at path into v and decodes it.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = New()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.complete", false)
	v.SetDefault("crawl.range", []int{})
	v.SetDefault("crawl.delay_seconds", 4)
	v.SetDefault("crawl.append", false)
	v.SetDefault("crawl.output", "data/data.csv")
	v.SetDefault("crawl.persist", false)
	v.SetDefault("cache.backend", "")
	v.SetDefault("cache.sqlite_path", "MALCache.db")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.prefix", "malcrawl:popularity:")
	v.SetDefault("jikan.base_url", "https://api.jikan.moe/v4")
	v.SetDefault("jikan.timeout_seconds", 30)
	v.SetDefault("jikan.user_agent", "malcrawl/1.0")
	v.SetDefault("anilist.url", "https://graphql.anilist.co")
	v.SetDefault("anilist.wait_seconds", 0.7)
	v.SetDefault("anilist.input", "data/data.csv")
	v.SetDefault("anilist.output", "data/dataMod.csv")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("status.addr", "")
	v.SetDefault("postgres.table", "characters")
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.output", "")
}

// Validate enforces required values and reasonable limits. Range selection is
// checked separately by CrawlRange since the enrich command never needs it.
func (c Config) Validate() error {
	if c.Crawl.DelaySeconds < 0 {
		return errors.New("crawl.delay_seconds must be >= 0")
	}
	if c.AniList.WaitSeconds < 0 {
		return errors.New("anilist.wait_seconds must be >= 0")
	}
	if c.Jikan.TimeoutSeconds <= 0 {
		return errors.New("jikan.timeout_seconds must be > 0")
	}
	switch c.CacheBackend() {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			return errors.New("cache.redis.addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}
	if c.Crawl.Persist && c.CacheBackend() == BackendMemory {
		return fmt.Errorf("%w: crawl.persist needs a durable cache.backend, got %q", ErrConflictingCache, c.Cache.Backend)
	}
	switch strings.ToLower(strings.TrimSpace(c.Tracing.Exporter)) {
	case "", "none", "stdout":
	default:
		return fmt.Errorf("unknown tracing.exporter %q", c.Tracing.Exporter)
	}
	return nil
}

// CrawlRange resolves the complete flag and explicit bounds into a Range.
// Exactly one of them must be supplied.
func (c Config) CrawlRange() (crawl.Range, error) {
	hasRange := len(c.Crawl.Range) > 0
	switch {
	case c.Crawl.Complete && hasRange:
		return crawl.Range{}, fmt.Errorf("%w: use either complete or range, not both", ErrInvalidRange)
	case c.Crawl.Complete:
		return crawl.Complete(), nil
	case !hasRange:
		return crawl.Range{}, fmt.Errorf("%w: one of complete or range is required", ErrInvalidRange)
	case len(c.Crawl.Range) != 2:
		return crawl.Range{}, fmt.Errorf("%w: range takes exactly two ids, got %d", ErrInvalidRange, len(c.Crawl.Range))
	}
	return crawl.NewRange(c.Crawl.Range[0], c.Crawl.Range[1])
}

// CacheBackend reports the effective cache backend. Without an explicit
// backend, persist selects sqlite and otherwise the cache lives in memory.
func (c Config) CacheBackend() string {
	backend := strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if backend != "" {
		return backend
	}
	if c.Crawl.Persist {
		return BackendSQLite
	}
	return BackendMemory
}

// Delay converts the crawl delay to a duration.
func (c Config) Delay() time.Duration {
	return seconds(c.Crawl.DelaySeconds)
}

// AniListWait converts the enrichment delay to a duration.
func (c Config) AniListWait() time.Duration {
	return seconds(c.AniList.WaitSeconds)
}

// JikanTimeout converts the request timeout to a duration.
func (c Config) JikanTimeout() time.Duration {
	return time.Duration(c.Jikan.TimeoutSeconds) * time.Second
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
