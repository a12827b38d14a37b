package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingPauser struct {
	delays []time.Duration
}

func (p *recordingPauser) Pause(_ context.Context, delay time.Duration) error {
	p.delays = append(p.delays, delay)
	return nil
}

func TestWaitTurnUsesFixedDelay(t *testing.T) {
	t.Parallel()

	pauser := &recordingPauser{}
	l := NewWithPauser(4*time.Second, pauser)

	for i := 0; i < 3; i++ {
		require.NoError(t, l.WaitTurn(context.Background()))
	}
	require.Equal(t, []time.Duration{4 * time.Second, 4 * time.Second, 4 * time.Second}, pauser.delays)
}

func TestWaitTurnZeroDelaySkipsPause(t *testing.T) {
	t.Parallel()

	pauser := &recordingPauser{}
	l := NewWithPauser(-time.Second, pauser)

	require.NoError(t, l.WaitTurn(context.Background()))
	require.Empty(t, pauser.delays)
	require.Equal(t, time.Duration(0), l.Delay())
}

func TestWaitTurnBlocksForDelay(t *testing.T) {
	t.Parallel()

	l := New(50 * time.Millisecond)
	start := time.Now()
	require.NoError(t, l.WaitTurn(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestWaitTurnHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := New(5 * time.Second)
	start := time.Now()
	err := l.WaitTurn(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}
