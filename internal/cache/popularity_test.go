package cache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/malcrawl/internal/cache"
	"github.com/JakeFAU/malcrawl/internal/cache/memory"
)

const workURL = "https://myanimelist.net/anime/1/Cowboy_Bebop"

func TestPutPartialNeverOverwrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.New(memory.New())

	require.NoError(t, c.PutPartial(ctx, workURL, 100))
	require.NoError(t, c.PutPartial(ctx, workURL, 999))

	entry, ok, err := c.Get(ctx, workURL)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 100, entry.Popularity)
	require.False(t, entry.IsFull())
}

func TestPutFullUpgradesAndIsNeverDowngraded(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.New(memory.New())
	detail := cache.Detail{Title: "Cowboy Bebop", Category: "TV", Provenance: "Original"}

	require.NoError(t, c.PutPartial(ctx, workURL, 100))
	full, err := c.IsFull(ctx, workURL)
	require.NoError(t, err)
	require.False(t, full)

	require.NoError(t, c.PutFull(ctx, workURL, 120, detail))
	require.NoError(t, c.PutPartial(ctx, workURL, 1))

	entry, ok, err := c.Get(ctx, workURL)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 120, entry.Popularity)
	got, isFull := entry.Detail()
	require.True(t, isFull)
	require.Equal(t, detail, got)
}

func TestFullEntryWithEmptyFieldsStaysFull(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := cache.New(memory.New())
	require.NoError(t, c.PutFull(ctx, workURL, 5, cache.Detail{}))

	full, err := c.IsFull(ctx, workURL)
	require.NoError(t, err)
	require.True(t, full)
}

func TestMissingEntry(t *testing.T) {
	t.Parallel()

	c := cache.New(memory.New())
	_, ok, err := c.Get(context.Background(), workURL)
	require.NoError(t, err)
	require.False(t, ok)

	full, err := c.IsFull(context.Background(), workURL)
	require.NoError(t, err)
	require.False(t, full)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk I/O error")
}

func (brokenStore) Put(context.Context, string, []byte) error {
	return errors.New("disk I/O error")
}

func (brokenStore) Close() error {
	return errors.New("disk I/O error")
}

func TestStoreErrorsAreMarked(t *testing.T) {
	t.Parallel()

	c := cache.New(brokenStore{})
	_, _, err := c.Get(context.Background(), workURL)
	require.ErrorIs(t, err, cache.ErrStore)
	require.ErrorIs(t, c.PutPartial(context.Background(), workURL, 1), cache.ErrStore)
	require.ErrorIs(t, c.Close(), cache.ErrStore)
}

func TestCorruptEntryIsStoreError(t *testing.T) {
	t.Parallel()

	store := memory.New()
	require.NoError(t, store.Put(context.Background(), workURL, []byte("{")))

	_, _, err := cache.New(store).Get(context.Background(), workURL)
	require.ErrorIs(t, err, cache.ErrStore)
}
