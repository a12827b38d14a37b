// Package app builds the crawl and enrichment pipelines from configuration and
// owns the lifecycle of every long-lived dependency they use.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/malcrawl/internal/api"
	"github.com/JakeFAU/malcrawl/internal/cache"
	"github.com/JakeFAU/malcrawl/internal/cache/memory"
	rediscache "github.com/JakeFAU/malcrawl/internal/cache/redis"
	"github.com/JakeFAU/malcrawl/internal/cache/sqlite"
	"github.com/JakeFAU/malcrawl/internal/catalog/jikan"
	"github.com/JakeFAU/malcrawl/internal/clock/system"
	"github.com/JakeFAU/malcrawl/internal/config"
	"github.com/JakeFAU/malcrawl/internal/crawl"
	"github.com/JakeFAU/malcrawl/internal/enrich"
	collyfetcher "github.com/JakeFAU/malcrawl/internal/fetcher/colly"
	"github.com/JakeFAU/malcrawl/internal/id/uuid"
	"github.com/JakeFAU/malcrawl/internal/logging"
	"github.com/JakeFAU/malcrawl/internal/output"
	"github.com/JakeFAU/malcrawl/internal/progress"
	progresssinks "github.com/JakeFAU/malcrawl/internal/progress/sinks"
	"github.com/JakeFAU/malcrawl/internal/ratelimit"
	"github.com/JakeFAU/malcrawl/internal/resolve"
	"github.com/JakeFAU/malcrawl/internal/stats"
	pgstore "github.com/JakeFAU/malcrawl/internal/storage/postgres"
	"github.com/JakeFAU/malcrawl/internal/telemetry"
)

const serviceName = "malcrawl"

// App contains the application's process-wide dependencies.
type App struct {
	cfg            config.Config
	logger         *zap.Logger
	out            io.Writer
	tracerProvider *sdktrace.TracerProvider
	traceOut       io.Closer
	registerer     prometheus.Registerer
}

// Build creates the logger and tracer shared by every command. Human-readable
// progress and summaries are written to out.
func Build(ctx context.Context, cfg config.Config, out io.Writer) (*App, error) {
	logger, err := logging.New(logging.Options{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	exporter, traceOut, err := telemetry.NewExporter(cfg.Tracing.Exporter, cfg.Tracing.Output)
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	tp, err := telemetry.InitTracerProvider(ctx, serviceName, exporter)
	if err != nil {
		_ = traceOut.Close()
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	if out == nil {
		out = io.Discard
	}
	return &App{
		cfg:            cfg,
		logger:         logger,
		out:            out,
		tracerProvider: tp,
		traceOut:       traceOut,
		registerer:     prometheus.DefaultRegisterer,
	}, nil
}

// Logger returns the process logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Close flushes the tracer and logger.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if a.traceOut != nil {
		if err := a.traceOut.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close trace output: %w", err))
		}
	}
	// Sync on a terminal returns EINVAL; nothing useful to report.
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// Crawl runs the configured crawl. The summary is valid even when err is not nil.
// Every opened resource is closed before Crawl returns.
func (a *App) Crawl(ctx context.Context) (summary stats.Summary, err error) {
	r, err := a.cfg.CrawlRange()
	if err != nil {
		return summary, err
	}
	runID, err := uuid.New().NewID()
	if err != nil {
		return summary, fmt.Errorf("generate run id: %w", err)
	}
	logger := a.logger.With(zap.String("run_id", runID))

	store, err := a.openStore(ctx)
	if err != nil {
		return summary, err
	}
	popularity := cache.New(store)
	defer a.closeInto(&err, "popularity cache", func(context.Context) error { return popularity.Close() })

	mode := output.ModeTruncate
	if a.cfg.Crawl.Append {
		mode = output.ModeAppend
	}
	writer, err := output.Open(a.cfg.Crawl.Output, mode)
	if err != nil {
		return summary, err
	}
	defer a.closeInto(&err, "output", func(context.Context) error { return writer.Close() })
	rowSinks := []crawl.RowSink{writer}

	if a.cfg.Postgres.DSN != "" {
		pg, pgErr := pgstore.NewCharacterStore(ctx, pgstore.CharacterStoreConfig{
			DSN:   a.cfg.Postgres.DSN,
			Table: a.cfg.Postgres.Table,
			RunID: runID,
		})
		if pgErr != nil {
			return summary, fmt.Errorf("init postgres mirror: %w", pgErr)
		}
		defer a.closeInto(&err, "postgres mirror", func(context.Context) error { return pg.Close() })
		rowSinks = append(rowSinks, pg)
	}

	promSink, err := progresssinks.NewPrometheusSink(a.registerer)
	if err != nil {
		return summary, err
	}
	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		progresssinks.NewLogSink(logger.Named("progress")),
		promSink,
		progresssinks.NewConsoleSink(a.out),
	)
	// Also closed right after Run so progress lines precede the caller's summary.
	defer a.closeInto(&err, "progress hub", hub.Close)

	snapshot := &stats.Snapshot{}
	if a.cfg.Status.Addr != "" {
		stop := a.startStatusServer(ctx, snapshot, logger)
		defer stop()
	}

	client := jikan.New(a.cfg.Jikan.BaseURL, a.newFetcher(), logger.Named("jikan"))
	limiter := ratelimit.New(a.cfg.Delay())
	orch, err := crawl.New(crawl.Dependencies{
		Client:   client,
		Resolver: resolve.New(client, popularity, limiter, logger.Named("resolve")),
		Limiter:  limiter,
		Sinks:    rowSinks,
		Clock:    system.New(),
		RunID:    runID,
		Progress: hub,
		Snapshot: snapshot,
		Tracer:   a.tracerProvider.Tracer("github.com/JakeFAU/malcrawl/internal/crawl"),
		Logger:   logger.Named("crawl"),
	})
	if err != nil {
		return summary, err
	}

	fmt.Fprintf(a.out, "Runtime estimate: %g seconds.\n", orch.Estimate(r).Seconds())
	summary, err = orch.Run(ctx, r)
	if closeErr := hub.Close(context.Background()); closeErr != nil {
		logger.Warn("progress hub close failed", zap.Error(closeErr))
	}
	return summary, err
}

// Enrich runs the AniList enrichment pass over the configured files.
func (a *App) Enrich(ctx context.Context) (enrich.Result, error) {
	profiles := enrich.NewAniList(a.cfg.AniList.URL, a.newFetcher(), a.logger.Named("anilist"))
	enricher := enrich.New(profiles, ratelimit.New(a.cfg.AniListWait()), system.New(), a.logger.Named("enrich"))
	return enricher.RunFiles(ctx, a.cfg.AniList.Input, a.cfg.AniList.Output)
}

func (a *App) newFetcher() *collyfetcher.Fetcher {
	return collyfetcher.New(collyfetcher.Config{
		UserAgent: a.cfg.Jikan.UserAgent,
		Timeout:   a.cfg.JikanTimeout(),
	})
}

func (a *App) openStore(ctx context.Context) (cache.KeyValueStore, error) {
	switch backend := a.cfg.CacheBackend(); backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, sqlite.Config{Path: a.cfg.Cache.SQLitePath})
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		a.logger.Info("using persistent cache", zap.String("path", a.cfg.Cache.SQLitePath))
		return store, nil
	case config.BackendRedis:
		redisCfg := a.cfg.Cache.Redis
		store, err := rediscache.Open(ctx, rediscache.Config{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
			Prefix:   redisCfg.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		a.logger.Info("using shared cache", zap.String("addr", redisCfg.Addr))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// startStatusServer serves the snapshot until the returned stop func is called.
func (a *App) startStatusServer(ctx context.Context, snapshot *stats.Snapshot, logger *zap.Logger) func() {
	srvCtx, cancel := context.WithCancel(ctx)
	server := api.NewServer(snapshot, logger.Named("status"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(srvCtx, a.cfg.Status.Addr); err != nil {
			logger.Warn("status server stopped", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (a *App) closeInto(dst *error, name string, fn func(context.Context) error) {
	if err := fn(context.Background()); err != nil {
		a.logger.Warn("close failed", zap.String("resource", name), zap.Error(err))
		*dst = errors.Join(*dst, fmt.Errorf("close %s: %w", name, err))
	}
}
