package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/malcrawl/internal/crawl"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	require.Equal(t, "data/data.csv", cfg.Crawl.Output)
	require.Equal(t, 4*time.Second, cfg.Delay())
	require.Equal(t, 700*time.Millisecond, cfg.AniListWait())
	require.Equal(t, "https://graphql.anilist.co", cfg.AniList.URL)
	require.Equal(t, "data/dataMod.csv", cfg.AniList.Output)
	require.Equal(t, "MALCache.db", cfg.Cache.SQLitePath)
	require.Equal(t, BackendMemory, cfg.CacheBackend())
	require.Equal(t, 30*time.Second, cfg.JikanTimeout())
	require.Empty(t, cfg.Status.Addr)
	require.Empty(t, cfg.Postgres.DSN)
	require.Equal(t, "none", cfg.Tracing.Exporter)
}

func TestLoadWithFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
crawl:
  range: [100, 50]
  delay_seconds: 0.5
  append: true
  output: out/chars.csv
cache:
  backend: redis
  redis:
    addr: cache:6379
    db: 2
status:
  addr: ":9090"
postgres:
  dsn: postgres://localhost/mal
`), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, cfg.Delay())
	require.True(t, cfg.Crawl.Append)
	require.Equal(t, "out/chars.csv", cfg.Crawl.Output)
	require.Equal(t, BackendRedis, cfg.CacheBackend())
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, ":9090", cfg.Status.Addr)
	require.Equal(t, "characters", cfg.Postgres.Table)

	r, err := cfg.CrawlRange()
	require.NoError(t, err)
	require.Equal(t, crawl.Range{Lower: 50, Upper: 100}, r)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MALCRAWL_CRAWL_DELAY_SECONDS", "2")
	t.Setenv("MALCRAWL_CRAWL_PERSIST", "true")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.Delay())
	require.Equal(t, BackendSQLite, cfg.CacheBackend())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg, err := Load(New(), "")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Crawl.DelaySeconds = -1
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Cache.Backend = "bolt"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Cache.Backend = BackendRedis
	cfg.Cache.Redis.Addr = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Jikan.TimeoutSeconds = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Tracing.Exporter = "jaeger"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Tracing.Exporter = "stdout"
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsPersistWithMemoryCache(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	cfg.Crawl.Persist = true
	cfg.Cache.Backend = BackendMemory
	require.ErrorIs(t, cfg.Validate(), ErrConflictingCache)

	cfg.Cache.Backend = BackendRedis
	require.NoError(t, cfg.Validate())

	cfg.Cache.Backend = ""
	require.NoError(t, cfg.Validate())
	require.Equal(t, BackendSQLite, cfg.CacheBackend())
}

func TestCrawlRange(t *testing.T) {
	tests := []struct {
		name     string
		complete bool
		bounds   []int
		want     crawl.Range
		wantErr  bool
	}{
		{name: "complete", complete: true, want: crawl.Range{Lower: 1, Upper: 200000}},
		{name: "explicit", bounds: []int{1, 3}, want: crawl.Range{Lower: 1, Upper: 3}},
		{name: "reversed", bounds: []int{9, 4}, want: crawl.Range{Lower: 4, Upper: 9}},
		{name: "both", complete: true, bounds: []int{1, 3}, wantErr: true},
		{name: "neither", wantErr: true},
		{name: "one bound", bounds: []int{3}, wantErr: true},
		{name: "zero bound", bounds: []int{0, 3}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Crawl: CrawlConfig{Complete: tt.complete, Range: tt.bounds}}
			got, err := cfg.CrawlRange()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRange)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
