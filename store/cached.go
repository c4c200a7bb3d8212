package store

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-catalog-sync/models"
)

// CachedStore fronts a Backend with a bounded title lookup cache.
// Only committed values enter the cache; writes made outside this process are not observed
// until the entry is evicted. A CachedStore is not safe for concurrent use; the crawl pass is its
// only writer.
type CachedStore struct {
	Backend

	cache   *lru.Cache[string, models.Book]
	pending map[string]models.Book
	hits    int
	misses  int
}

// NewCachedStore wraps backend with an LRU cache holding up to size records.
func NewCachedStore(backend Backend, size int) (*CachedStore, error) {
	cache, err := lru.New[string, models.Book](size)
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}
	return &CachedStore{
		Backend: backend,
		cache:   cache,
		pending: make(map[string]models.Book),
	}, nil
}

// GetByTitle serves staged and cached records before asking the backend.
func (c *CachedStore) GetByTitle(ctx context.Context, title string) (*models.Book, bool, error) {
	if book, ok := c.pending[title]; ok {
		return &book, true, nil
	}
	if book, ok := c.cache.Get(title); ok {
		c.hits++
		return &book, true, nil
	}
	c.misses++

	book, found, err := c.Backend.GetByTitle(ctx, title)
	if err != nil || !found {
		return book, found, err
	}
	c.cache.Add(title, *book)
	return book, true, nil
}

// Upsert stages the write in the backend and remembers it until commit.
func (c *CachedStore) Upsert(ctx context.Context, book *models.Book) error {
	if err := c.Backend.Upsert(ctx, book); err != nil {
		return err
	}
	c.pending[book.Title] = *book
	return nil
}

// Commit commits the backend and promotes staged records into the cache.
func (c *CachedStore) Commit(ctx context.Context) error {
	if err := c.Backend.Commit(ctx); err != nil {
		c.discard()
		return err
	}
	for title, book := range c.pending {
		c.cache.Add(title, book)
	}
	clear(c.pending)
	return nil
}

// Rollback rolls the backend back and forgets staged records.
func (c *CachedStore) Rollback(ctx context.Context) error {
	c.discard()
	return c.Backend.Rollback(ctx)
}

// Stats reports cache hits and misses since construction.
func (c *CachedStore) Stats() (hits, misses int) {
	return c.hits, c.misses
}

func (c *CachedStore) discard() {
	for title := range c.pending {
		c.cache.Remove(title)
	}
	clear(c.pending)
}
