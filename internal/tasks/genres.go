package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/chapi192/SpotifyMatcher/internal/services"
)

// GenreCache memoizes artist genre lookups for one sync run.
//
// Only ids absent from the cache are sent to the library, in batches of at most
// [services.MaxArtistsPerCall]. Artists the library does not return are cached with no genres
// so they are never requested again.
type GenreCache struct {
	library   services.Library
	batchSize int
	genres    map[string][]string
	calls     int
}

// NewGenreCache creates an empty cache. batchSize is clamped to the provider limit.
func NewGenreCache(library services.Library, batchSize int) *GenreCache {
	if batchSize <= 0 || batchSize > services.MaxArtistsPerCall {
		batchSize = services.MaxArtistsPerCall
	}
	return &GenreCache{
		library:   library,
		batchSize: batchSize,
		genres:    make(map[string][]string),
	}
}

// Resolve returns the lowercased genres of every requested artist, fetching uncached ids first.
// Empty ids are ignored.
func (c *GenreCache) Resolve(ctx context.Context, ids []string) (map[string][]string, error) {
	missing := c.missing(ids)

	for start := 0; start < len(missing); start += c.batchSize {
		batch := missing[start:min(start+c.batchSize, len(missing))]

		c.calls++
		artists, err := c.library.Artists(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve genres: %w", err)
		}

		for _, id := range batch {
			c.genres[id] = []string{}
		}
		for _, a := range artists {
			genres := make([]string, 0, len(a.Genres))
			for _, g := range a.Genres {
				genres = append(genres, strings.ToLower(g))
			}
			c.genres[a.ID] = genres
		}
	}

	resolved := make(map[string][]string, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		resolved[id] = c.Genres(id)
	}
	return resolved, nil
}

// Genres returns a copy of the cached genres for id, or an empty list.
func (c *GenreCache) Genres(id string) []string {
	return append([]string{}, c.genres[id]...)
}

// Len returns the number of cached artists.
func (c *GenreCache) Len() int {
	return len(c.genres)
}

// Calls returns how many lookups were sent to the library.
func (c *GenreCache) Calls() int {
	return c.calls
}

// missing returns the unique uncached ids in first-seen order.
func (c *GenreCache) missing(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var missing []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := c.genres[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		missing = append(missing, id)
	}
	return missing
}
