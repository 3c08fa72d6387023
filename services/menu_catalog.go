package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/kendall-kelly/bakery-orders-api/apperrors"
	"github.com/kendall-kelly/bakery-orders-api/models"
	"gorm.io/gorm"
)

// MenuCatalog looks up menu items by id. Unknown ids return an apperrors NotFound error.
type MenuCatalog interface {
	Lookup(ctx context.Context, id uint) (models.MenuItem, error)
}

// DBMenuCatalog reads menu items from the menu_items table
type DBMenuCatalog struct {
	db *gorm.DB
}

// NewDBMenuCatalog creates a catalog backed by the database
func NewDBMenuCatalog(db *gorm.DB) *DBMenuCatalog {
	return &DBMenuCatalog{db: db}
}

// Lookup fetches a single menu item
func (c *DBMenuCatalog) Lookup(ctx context.Context, id uint) (models.MenuItem, error) {
	var item models.MenuItem
	if err := c.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MenuItem{}, apperrors.NotFound("menu item", strconv.FormatUint(uint64(id), 10))
		}
		return models.MenuItem{}, fmt.Errorf("failed to load menu item %d: %w", id, err)
	}
	return item, nil
}

// CachedMenuCatalog keeps recently looked-up menu items for a short time.
// Prices may be stale for at most the configured TTL.
type CachedMenuCatalog struct {
	next  MenuCatalog
	cache *expirable.LRU[uint, models.MenuItem]
}

// NewCachedMenuCatalog wraps next with an expiring LRU cache
func NewCachedMenuCatalog(next MenuCatalog, size int, ttl time.Duration) *CachedMenuCatalog {
	if size <= 0 {
		size = 512
	}
	return &CachedMenuCatalog{
		next:  next,
		cache: expirable.NewLRU[uint, models.MenuItem](size, nil, ttl),
	}
}

// Lookup returns the cached item or loads it from the wrapped catalog.
// Misses are not cached.
func (c *CachedMenuCatalog) Lookup(ctx context.Context, id uint) (models.MenuItem, error) {
	if item, ok := c.cache.Get(id); ok {
		return item, nil
	}
	item, err := c.next.Lookup(ctx, id)
	if err != nil {
		return models.MenuItem{}, err
	}
	c.cache.Add(id, item)
	return item, nil
}

// Invalidate drops a cached item, e.g. after its price changed
func (c *CachedMenuCatalog) Invalidate(id uint) {
	c.cache.Remove(id)
}
