package services

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"freshiesAPI/internal/achievement"
)

const (
	catalogCacheSize = 16
	activeCatalogKey = "catalog:active"
)

type CatalogSource interface {
	ListActiveAchievements(ctx context.Context) ([]*achievement.Achievement, error)
}

type cachedCatalog struct {
	entries   []*achievement.Achievement
	fetchedAt time.Time
}

// CachedCatalog keeps the active catalog in memory for ttl. The catalog only
// changes through migrations, so a short ttl is enough.
type CachedCatalog struct {
	source CatalogSource
	cache  *lru.Cache
	ttl    time.Duration
}

func NewCachedCatalog(source CatalogSource, ttl time.Duration) *CachedCatalog {
	cache, _ := lru.New(catalogCacheSize)
	return &CachedCatalog{source: source, cache: cache, ttl: ttl}
}

// Active returns the active catalog, ordered by tier then requirement value.
func (c *CachedCatalog) Active(ctx context.Context) ([]*achievement.Achievement, error) {
	if cached, ok := c.cache.Get(activeCatalogKey); ok {
		if entry, ok := cached.(cachedCatalog); ok && time.Since(entry.fetchedAt) < c.ttl {
			return entry.entries, nil
		}
	}

	entries, err := c.source.ListActiveAchievements(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(activeCatalogKey, cachedCatalog{entries: entries, fetchedAt: time.Now()})
	return entries, nil
}

func (c *CachedCatalog) Purge() {
	c.cache.Purge()
}
