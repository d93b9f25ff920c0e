package modgraph

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the cache bound used when none is given.
const DefaultCacheSize = 128

// Cache memoizes built graphs by entry path. Concurrent callers missing on
// the same entry may both build it; the last write wins and both get a
// correct graph. Entries are never invalidated when files change on disk,
// so callers that need freshness create a new Cache or call Purge.
type Cache struct {
	builder *Builder
	graphs  *lru.Cache[string, *Graph]
}

// NewCache creates a cache in front of builder. size <= 0 selects
// DefaultCacheSize.
func NewCache(builder *Builder, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	graphs, err := lru.New[string, *Graph](size)
	if err != nil {
		return nil, fmt.Errorf("modgraph: create cache: %w", err)
	}
	return &Cache{
		builder: builder,
		graphs:  graphs,
	}, nil
}

// Graph returns the graph for entry, building and storing it on a miss.
func (c *Cache) Graph(ctx context.Context, entry string) (*Graph, error) {
	key := filepath.ToSlash(entry)
	if g, ok := c.graphs.Get(key); ok {
		slog.Debug("graph cache hit", "entry", key)
		return g, nil
	}

	g, err := c.builder.Build(ctx, entry)
	if err != nil {
		return nil, err
	}
	c.graphs.Add(key, g)
	return g, nil
}

// Purge drops every cached graph.
func (c *Cache) Purge() {
	c.graphs.Purge()
}

// Len returns the number of cached graphs.
func (c *Cache) Len() int {
	return c.graphs.Len()
}
