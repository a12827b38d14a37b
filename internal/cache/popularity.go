package cache

import (
	"context"
	"fmt"
)

// PopularityCache maps a related work's canonical URL to its Entry.
// It is not safe for concurrent use; the crawl loop is its only caller.
type PopularityCache struct {
	store KeyValueStore
}

// New wraps store in a PopularityCache.
func New(store KeyValueStore) *PopularityCache {
	return &PopularityCache{store: store}
}

// Get returns the entry stored for url.
func (c *PopularityCache) Get(ctx context.Context, url string) (Entry, bool, error) {
	raw, ok, err := c.store.Get(ctx, url)
	if err != nil {
		return Entry{}, false, fmt.Errorf("%w: get %s: %v", ErrStore, url, err)
	}
	if !ok {
		return Entry{}, false, nil
	}
	entry, err := decodeEntry(raw)
	if err != nil {
		return Entry{}, false, fmt.Errorf("%w: %s: %v", ErrStore, url, err)
	}
	return entry, true, nil
}

// PutPartial records popularity for url unless an entry already exists.
// An existing entry, partial or full, is never modified.
func (c *PopularityCache) PutPartial(ctx context.Context, url string, popularity int) error {
	_, ok, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return c.put(ctx, url, Partial(popularity))
}

// PutFull stores a full entry for url, replacing whatever was there.
func (c *PopularityCache) PutFull(ctx context.Context, url string, popularity int, detail Detail) error {
	existing, _, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	return c.put(ctx, url, existing.Upgrade(popularity, detail))
}

// IsFull reports whether url has a full entry.
func (c *PopularityCache) IsFull(ctx context.Context, url string) (bool, error) {
	entry, ok, err := c.Get(ctx, url)
	if err != nil {
		return false, err
	}
	return ok && entry.IsFull(), nil
}

// Close closes the backing store.
func (c *PopularityCache) Close() error {
	if err := c.store.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrStore, err)
	}
	return nil
}

func (c *PopularityCache) put(ctx context.Context, url string, entry Entry) error {
	raw, err := encodeEntry(entry)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := c.store.Put(ctx, url, raw); err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrStore, url, err)
	}
	return nil
}
