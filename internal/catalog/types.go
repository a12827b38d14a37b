// Package catalog defines the character and related-work types consumed from the upstream catalog.
package catalog

import "fmt"

// Kind tags which of the two related-work lists a reference came from.
type Kind int

// Related-work kinds. Anime is scanned before manga.
const (
	KindAnime Kind = iota
	KindManga
)

// String returns the catalog path segment for the kind.
func (k Kind) String() string {
	switch k {
	case KindAnime:
		return "anime"
	case KindManga:
		return "manga"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RelatedWorkRef points at an anime or manga a character appears in.
// URL is the cache key: ids and names collide across the two kinds.
type RelatedWorkRef struct {
	ID   int
	URL  string
	Kind Kind
}

// Character is one catalog character with its ordered related-work lists.
type Character struct {
	ID        int
	Name      string
	URL       string
	Favorites int
	Anime     []RelatedWorkRef
	Manga     []RelatedWorkRef
}

// WorkDetail is the heavy detail record of a related work.
// Source is only reported for anime.
type WorkDetail struct {
	Title   string
	Type    string
	Source  string
	Members int
}
