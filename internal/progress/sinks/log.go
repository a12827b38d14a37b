package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/malcrawl/internal/progress"
)

// LogSink reports progress events as structured log lines.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs evt.
func (s *LogSink) Consume(_ context.Context, evt progress.Event) error {
	fields := []zap.Field{
		zap.String("run_id", evt.RunID),
		zap.String("stage", string(evt.Stage)),
		zap.Int("requests", evt.Requests),
		zap.Duration("elapsed", evt.Dur),
	}
	switch evt.Stage {
	case progress.StageProgress:
		s.logger.Info("crawl progress",
			append(fields, zap.Int("percent", evt.Percent), zap.Int("character_id", evt.CharacterID))...)
	case progress.StageRunError:
		s.logger.Error("crawl aborted", append(fields, zap.String("note", evt.Note))...)
	default:
		s.logger.Info("crawl milestone", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
