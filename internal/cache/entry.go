// Package cache holds the popularity cache shared by every character of a run,
// and across runs when backed by a durable store.
package cache

import (
	"encoding/json"
	"fmt"
)

// Detail carries the display fields of a related work selected as most popular.
type Detail struct {
	Title      string
	Category   string
	Provenance string
}

// Entry is either partial (popularity only) or full (popularity plus Detail).
type Entry struct {
	Popularity int
	detail     *Detail
}

// Partial builds an entry holding only a popularity metric.
func Partial(popularity int) Entry {
	return Entry{Popularity: popularity}
}

// Full builds an entry holding popularity and display fields.
func Full(popularity int, detail Detail) Entry {
	d := detail
	return Entry{Popularity: popularity, detail: &d}
}

// IsFull reports whether the entry carries display fields.
func (e Entry) IsFull() bool {
	return e.detail != nil
}

// Detail returns the display fields and whether the entry is full.
func (e Entry) Detail() (Detail, bool) {
	if e.detail == nil {
		return Detail{}, false
	}
	return *e.detail, true
}

// Upgrade returns a full entry with the given popularity and display fields.
func (e Entry) Upgrade(popularity int, detail Detail) Entry {
	return Full(popularity, detail)
}

type wireEntry struct {
	Members int         `json:"members"`
	Full    *wireDetail `json:"full,omitempty"`
}

type wireDetail struct {
	Title  string `json:"title"`
	Type   string `json:"type"`
	Source string `json:"source"`
}

func encodeEntry(e Entry) ([]byte, error) {
	w := wireEntry{Members: e.Popularity}
	if d, ok := e.Detail(); ok {
		w.Full = &wireDetail{Title: d.Title, Type: d.Category, Source: d.Provenance}
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return data, nil
}

func decodeEntry(data []byte) (Entry, error) {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return Entry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	if w.Full == nil {
		return Partial(w.Members), nil
	}
	return Full(w.Members, Detail{Title: w.Full.Title, Category: w.Full.Type, Provenance: w.Full.Source}), nil
}
