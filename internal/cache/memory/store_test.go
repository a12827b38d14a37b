package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorePutCopiesData(t *testing.T) {
	t.Parallel()

	store := New()
	payload := []byte(`{"members":1}`)
	require.NoError(t, store.Put(context.Background(), "k", payload))
	payload[0] = 'X'

	got, ok, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"members":1}`, string(got))
}

func TestStoreCloseForgetsEntries(t *testing.T) {
	t.Parallel()

	store := New()
	require.NoError(t, store.Put(context.Background(), "k", []byte("v")))
	require.Equal(t, 1, store.Len())
	require.NoError(t, store.Close())

	_, ok, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.False(t, ok)
}
