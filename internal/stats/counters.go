// Package stats holds the per-run request counters reported at the end of a crawl.
package stats

import (
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/malcrawl/internal/catalog"
	"github.com/JakeFAU/malcrawl/internal/metrics"
)

// Counters tallies the requests of one run. Totals exclude cache hits.
type Counters struct {
	Character int `json:"character"`
	Anime     int `json:"anime"`
	Manga     int `json:"manga"`
	Total     int `json:"total"`
	CacheHits int `json:"cache_hits"`
}

// CharacterRequest counts one character fetch.
func (c *Counters) CharacterRequest() {
	c.Character++
	c.Total++
	metrics.ObserveRequest(metrics.KindCharacter)
}

// WorkRequest counts one popularity or detail fetch of the given kind.
func (c *Counters) WorkRequest(kind catalog.Kind) {
	switch kind {
	case catalog.KindAnime:
		c.Anime++
	case catalog.KindManga:
		c.Manga++
	}
	c.Total++
	metrics.ObserveRequest(kind.String())
}

// CacheHit counts one consultation served from the popularity cache.
func (c *Counters) CacheHit() {
	c.CacheHits++
	metrics.ObserveCacheHit()
}

// String renders the counters in the summary line format.
func (c Counters) String() string {
	return fmt.Sprintf("%d requests: %d character, %d anime, and %d manga. %d cached requests.",
		c.Total, c.Character, c.Anime, c.Manga, c.CacheHits)
}

// Summary is the outcome of a finished (or aborted) crawl.
type Summary struct {
	RunID       string        `json:"run_id"`
	Counters    Counters      `json:"counters"`
	RowsWritten int           `json:"rows_written"`
	Skipped     int           `json:"skipped"`
	Wall        time.Duration `json:"wall"`
	CPU         time.Duration `json:"cpu"`
}

// Timing renders elapsed wall and CPU time.
func (s Summary) Timing() string {
	return fmt.Sprintf("perf counter: %.3f seconds, process time: %.3f seconds.", s.Wall.Seconds(), s.CPU.Seconds())
}

// Snapshot is a mutex-guarded copy of a run's progress for readers outside the crawl loop.
type Snapshot struct {
	mu      sync.RWMutex
	summary Summary
	percent int
	current int
	done    bool
}

// Update replaces the published state.
func (s *Snapshot) Update(summary Summary, currentID, percent int, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = summary
	s.current = currentID
	if percent >= 0 {
		s.percent = percent
	}
	s.done = done
}

// Status is the read-only view handed out by Snapshot.Read.
type Status struct {
	Summary   Summary `json:"summary"`
	CurrentID int     `json:"current_id"`
	Percent   int     `json:"percent"`
	Done      bool    `json:"done"`
}

// Read returns the latest published state.
func (s *Snapshot) Read() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{Summary: s.summary, CurrentID: s.current, Percent: s.percent, Done: s.done}
}
