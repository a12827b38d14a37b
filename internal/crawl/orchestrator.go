package crawl

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/malcrawl/internal/catalog"
	"github.com/JakeFAU/malcrawl/internal/metrics"
	"github.com/JakeFAU/malcrawl/internal/output"
	"github.com/JakeFAU/malcrawl/internal/progress"
	"github.com/JakeFAU/malcrawl/internal/resolve"
	"github.com/JakeFAU/malcrawl/internal/stats"
)

// Dependencies wires an Orchestrator.
type Dependencies struct {
	Client   catalog.Client
	Resolver *resolve.Resolver
	Limiter  Limiter
	Sinks    []RowSink
	Clock    Clock
	// RunID names the run; when empty one is drawn from IDs.
	RunID string
	IDs   IDGenerator
	// Progress is optional.
	Progress progress.Emitter
	// Snapshot is optional; it is refreshed after every id.
	Snapshot *stats.Snapshot
	// Tracer defaults to the global provider.
	Tracer trace.Tracer
	Logger *zap.Logger
}

// Orchestrator drives a single-goroutine crawl over a Range.
type Orchestrator struct {
	client   catalog.Client
	resolver *resolve.Resolver
	limiter  Limiter
	sinks    []RowSink
	clock    Clock
	runID    string
	ids      IDGenerator
	progress progress.Emitter
	snapshot *stats.Snapshot
	tracer   trace.Tracer
	logger   *zap.Logger
}

// New constructs an Orchestrator.
func New(deps Dependencies) (*Orchestrator, error) {
	switch {
	case deps.Client == nil:
		return nil, errors.New("catalog client is required")
	case deps.Resolver == nil:
		return nil, errors.New("resolver is required")
	case deps.Limiter == nil:
		return nil, errors.New("limiter is required")
	case deps.Clock == nil:
		return nil, errors.New("clock is required")
	case deps.RunID == "" && deps.IDs == nil:
		return nil, errors.New("run id or id generator is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	emitter := deps.Progress
	if emitter == nil {
		emitter = progress.EmitterFunc(func(progress.Event) {})
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/JakeFAU/malcrawl/internal/crawl")
	}
	return &Orchestrator{
		client:   deps.Client,
		resolver: deps.Resolver,
		limiter:  deps.Limiter,
		sinks:    append([]RowSink(nil), deps.Sinks...),
		clock:    deps.Clock,
		runID:    deps.RunID,
		ids:      deps.IDs,
		progress: emitter,
		snapshot: deps.Snapshot,
		tracer:   tracer,
		logger:   logger,
	}, nil
}

// Estimate is the worst-case runtime of r assuming two requests per id.
func (o *Orchestrator) Estimate(r Range) time.Duration {
	return 2 * o.limiter.Delay() * time.Duration(r.Span())
}

// Run crawls r. Characters the catalog rejects are skipped; store, sink, and
// context failures abort the run. The returned Summary is valid on every path.
func (o *Orchestrator) Run(ctx context.Context, r Range) (stats.Summary, error) {
	var summary stats.Summary
	if err := r.Validate(); err != nil {
		return summary, err
	}
	runID := o.runID
	if runID == "" {
		id, err := o.ids.NewID()
		if err != nil {
			return summary, fmt.Errorf("generate run id: %w", err)
		}
		runID = id
	}
	summary.RunID = runID
	logger := o.logger.With(zap.String("run_id", runID))

	start := o.clock.Now()
	cpuStart := o.clock.CPUTime()
	estimate := o.Estimate(r)
	logger.Info("starting crawl",
		zap.Int("lower", r.Lower),
		zap.Int("upper", r.Upper),
		zap.Float64("estimated_seconds", estimate.Seconds()),
	)
	o.emit(summary, progress.StageRunStart, start, 0, 0, "")

	runErr := r.Each(func(id int) error {
		if pct, ok := r.Progress(id); ok {
			o.emit(summary, progress.StageProgress, start, id, pct, "")
			o.publish(summary, start, cpuStart, id, pct, false)
		}
		if err := o.crawlOne(ctx, id, &summary, logger); err != nil {
			return err
		}
		o.publish(summary, start, cpuStart, id, -1, false)
		return nil
	})

	summary.Wall = o.clock.Now().Sub(start)
	summary.CPU = o.clock.CPUTime() - cpuStart
	if o.snapshot != nil {
		o.snapshot.Update(summary, r.Upper, -1, true)
	}
	if runErr != nil {
		o.emit(summary, progress.StageRunError, start, 0, 0, runErr.Error())
		logger.Error("crawl aborted", zap.Error(runErr), zap.Int("rows", summary.RowsWritten))
		return summary, runErr
	}
	o.emit(summary, progress.StageRunDone, start, r.Upper, 100, "")
	logger.Info("crawl finished",
		zap.Int("requests", summary.Counters.Total),
		zap.Int("cache_hits", summary.Counters.CacheHits),
		zap.Int("rows", summary.RowsWritten),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("wall", summary.Wall),
		zap.Duration("cpu", summary.CPU),
	)
	return summary, nil
}

func (o *Orchestrator) crawlOne(ctx context.Context, id int, summary *stats.Summary, logger *zap.Logger) (err error) {
	ctx, span := o.tracer.Start(ctx, "crawl.character", trace.WithAttributes(attribute.Int("character.id", id)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	if sc := span.SpanContext(); sc.HasTraceID() {
		logger = logger.With(zap.String("trace_id", sc.TraceID().String()))
	}

	if err := o.limiter.WaitTurn(ctx); err != nil {
		return fmt.Errorf("wait before character %d: %w", id, err)
	}
	summary.Counters.CharacterRequest()
	character, err := o.client.Character(ctx, id)
	if err != nil {
		return o.skipOrFail(ctx, id, err, summary, logger)
	}

	resolved, ok, err := o.resolver.Resolve(ctx, character.Anime, character.Manga, &summary.Counters)
	if err != nil {
		return o.skipOrFail(ctx, id, err, summary, logger)
	}

	row := output.Row{
		ID:        character.ID,
		Name:      character.Name,
		URL:       character.URL,
		Favorites: character.Favorites,
	}
	if ok {
		row.MostPopularEntry = resolved.Title
		row.MPEURL = resolved.Ref.URL
		row.MPEMembers = strconv.Itoa(resolved.Popularity)
		row.MPEType = resolved.Category
		row.MPESource = resolved.Provenance
	}
	for _, sink := range o.sinks {
		if err := sink.WriteRow(ctx, row); err != nil {
			return fmt.Errorf("write character %d: %w", id, err)
		}
	}
	summary.RowsWritten++
	metrics.ObserveRow()
	return nil
}

func (o *Orchestrator) skipOrFail(
	ctx context.Context,
	id int,
	err error,
	summary *stats.Summary,
	logger *zap.Logger,
) error {
	if !catalog.IsUpstream(err) || ctx.Err() != nil {
		return fmt.Errorf("character %d: %w", id, err)
	}
	summary.Skipped++
	metrics.ObserveSkip()
	trace.SpanFromContext(ctx).AddEvent("skipped",
		trace.WithAttributes(attribute.String("upstream.class", catalog.KindOf(err).String())))
	logger.Debug("skipping character",
		zap.Int("id", id),
		zap.String("kind", catalog.KindOf(err).String()),
		zap.Error(err),
	)
	return nil
}

func (o *Orchestrator) emit(summary stats.Summary, stage progress.Stage, start time.Time, id, pct int, note string) {
	now := o.clock.Now()
	o.progress.Emit(progress.Event{
		RunID:       summary.RunID,
		TS:          now,
		Stage:       stage,
		CharacterID: id,
		Percent:     pct,
		Requests:    summary.Counters.Total,
		Dur:         now.Sub(start),
		Note:        note,
	})
}

func (o *Orchestrator) publish(summary stats.Summary, start time.Time, cpuStart time.Duration, id, pct int, done bool) {
	if o.snapshot == nil {
		return
	}
	summary.Wall = o.clock.Now().Sub(start)
	summary.CPU = o.clock.CPUTime() - cpuStart
	o.snapshot.Update(summary, id, pct, done)
}
