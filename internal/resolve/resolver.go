// Package resolve picks the most popular related work of a character.
package resolve

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/malcrawl/internal/cache"
	"github.com/JakeFAU/malcrawl/internal/catalog"
	"github.com/JakeFAU/malcrawl/internal/stats"
)

// Waiter blocks before each outbound request.
type Waiter interface {
	WaitTurn(ctx context.Context) error
}

// Resolved is the winning related work with its display fields.
type Resolved struct {
	Ref        catalog.RelatedWorkRef
	Popularity int
	Title      string
	Category   string
	Provenance string
}

// Resolver scans a character's related works, consulting and filling the popularity cache.
type Resolver struct {
	client  catalog.Client
	cache   *cache.PopularityCache
	limiter Waiter
	logger  *zap.Logger
}

// New creates a Resolver.
func New(client catalog.Client, popularity *cache.PopularityCache, limiter Waiter, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		client:  client,
		cache:   popularity,
		limiter: limiter,
		logger:  logger,
	}
}

// Resolve returns the related work with the strictly greatest popularity, scanning anime
// before manga in upstream order. The first maximum seen wins ties. The bool is false when
// no related work has a positive popularity.
//
// Upstream failures are returned as-is so the caller can skip the character; cache store
// failures wrap cache.ErrStore.
func (r *Resolver) Resolve(
	ctx context.Context,
	anime, manga []catalog.RelatedWorkRef,
	counters *stats.Counters,
) (Resolved, bool, error) {
	var (
		winner     catalog.RelatedWorkRef
		winnerPop  int
		haveWinner bool
	)
	for _, list := range [][]catalog.RelatedWorkRef{anime, manga} {
		for _, ref := range list {
			pop, err := r.popularity(ctx, ref, counters)
			if err != nil {
				return Resolved{}, false, err
			}
			if pop > winnerPop {
				winner, winnerPop, haveWinner = ref, pop, true
			}
		}
	}
	if !haveWinner {
		return Resolved{}, false, nil
	}

	resolved, err := r.detail(ctx, winner, winnerPop, counters)
	if err != nil {
		return Resolved{}, false, err
	}
	return resolved, true, nil
}

func (r *Resolver) popularity(ctx context.Context, ref catalog.RelatedWorkRef, counters *stats.Counters) (int, error) {
	entry, ok, err := r.cache.Get(ctx, ref.URL)
	if err != nil {
		return 0, err
	}
	if ok {
		counters.CacheHit()
		return entry.Popularity, nil
	}

	if err := r.limiter.WaitTurn(ctx); err != nil {
		return 0, err
	}
	counters.WorkRequest(ref.Kind)
	pop, err := r.client.Popularity(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("popularity of %s: %w", ref.URL, err)
	}
	if err := r.cache.PutPartial(ctx, ref.URL, pop); err != nil {
		return 0, err
	}
	return pop, nil
}

func (r *Resolver) detail(
	ctx context.Context,
	winner catalog.RelatedWorkRef,
	winnerPop int,
	counters *stats.Counters,
) (Resolved, error) {
	entry, ok, err := r.cache.Get(ctx, winner.URL)
	if err != nil {
		return Resolved{}, err
	}
	if d, full := entry.Detail(); ok && full {
		counters.CacheHit()
		return Resolved{
			Ref:        winner,
			Popularity: entry.Popularity,
			Title:      d.Title,
			Category:   d.Category,
			Provenance: d.Provenance,
		}, nil
	}

	if err := r.limiter.WaitTurn(ctx); err != nil {
		return Resolved{}, err
	}
	counters.WorkRequest(winner.Kind)
	detail, err := r.client.Detail(ctx, winner)
	if err != nil {
		return Resolved{}, fmt.Errorf("detail of %s: %w", winner.URL, err)
	}

	provenance := ""
	if winner.Kind == catalog.KindAnime {
		provenance = detail.Source
	}
	full := cache.Detail{Title: detail.Title, Category: detail.Type, Provenance: provenance}
	// Cache the scan metric, not the detail members.
	if err := r.cache.PutFull(ctx, winner.URL, winnerPop, full); err != nil {
		return Resolved{}, err
	}
	r.logger.Debug("resolved most popular entry",
		zap.String("url", winner.URL),
		zap.Int("popularity", winnerPop),
		zap.Int("detail_members", detail.Members),
	)
	return Resolved{
		Ref:        winner,
		Popularity: winnerPop,
		Title:      full.Title,
		Category:   full.Category,
		Provenance: full.Provenance,
	}, nil
}
