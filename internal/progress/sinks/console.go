package sinks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/JakeFAU/malcrawl/internal/progress"
)

// ConsoleSink prints "N% done." lines for progress events.
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSink writes progress lines to out.
func NewConsoleSink(out io.Writer) *ConsoleSink {
	return &ConsoleSink{out: out}
}

// Consume prints progress events and ignores the rest.
func (s *ConsoleSink) Consume(_ context.Context, evt progress.Event) error {
	if evt.Stage != progress.StageProgress || s.out == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.out, "%d%% done.\n", evt.Percent); err != nil {
		return fmt.Errorf("print progress: %w", err)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *ConsoleSink) Close(context.Context) error {
	return nil
}
