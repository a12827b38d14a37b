package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindForStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   ErrorKind
	}{
		{404, ErrKindNotFound},
		{429, ErrKindRateLimited},
		{500, ErrKindRejected},
		{403, ErrKindRejected},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, KindForStatus(tc.status), "status %d", tc.status)
	}
}

func TestUpstreamErrorMatching(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := fmt.Errorf("resolve: %w", &UpstreamError{
		Kind: ErrKindTransport,
		Op:   "anime statistics",
		ID:   21,
		Err:  cause,
	})

	require.True(t, IsUpstream(err))
	require.Equal(t, ErrKindTransport, KindOf(err))
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "anime statistics 21: transport")
}

func TestUpstreamErrorMessageIncludesStatus(t *testing.T) {
	t.Parallel()

	err := &UpstreamError{Kind: ErrKindNotFound, Op: "character", ID: 3, Status: 404}
	require.Equal(t, "character 3: not_found (status 404)", err.Error())
	require.False(t, IsUpstream(errors.New("plain")))
	require.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
}

func TestKindString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "anime", KindAnime.String())
	require.Equal(t, "manga", KindManga.String())
}
