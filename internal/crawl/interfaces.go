package crawl

import (
	"context"
	"time"

	"github.com/JakeFAU/malcrawl/internal/output"
)

// Limiter gates every outbound request behind a fixed delay.
type Limiter interface {
	WaitTurn(ctx context.Context) error
	Delay() time.Duration
}

// RowSink receives finished rows. A failing sink aborts the run.
type RowSink interface {
	WriteRow(ctx context.Context, row output.Row) error
}

// Clock reports wall and process CPU time (useful for testing).
type Clock interface {
	Now() time.Time
	CPUTime() time.Duration
}

// IDGenerator produces run ids.
type IDGenerator interface {
	NewID() (string, error)
}
