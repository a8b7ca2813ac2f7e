package projectstore

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached keeps recently read projects in memory in front of another Store.
// Writes go through to the backend first and then refresh the cache.
type Cached struct {
	Store
	cache *lru.Cache[string, *Project]
}

// NewCached wraps s with an LRU cache holding up to size projects.
func NewCached(s Store, size int) (*Cached, error) {
	cache, err := lru.New[string, *Project](size)
	if err != nil {
		return nil, fmt.Errorf("creating project cache: %w", err)
	}
	return &Cached{Store: s, cache: cache}, nil
}

func (c *Cached) Create(ctx context.Context, in Input) (*Project, error) {
	p, err := c.Store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	c.cache.Add(p.ID, p.clone())
	return p, nil
}

func (c *Cached) Update(ctx context.Context, id string, in Input) (*Project, error) {
	p, err := c.Store.Update(ctx, id, in)
	if err != nil {
		c.cache.Remove(id)
		return nil, err
	}
	c.cache.Add(p.ID, p.clone())
	return p, nil
}

func (c *Cached) Get(ctx context.Context, id string) (*Project, error) {
	if p, ok := c.cache.Get(id); ok {
		return p.clone(), nil
	}
	p, err := c.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, p.clone())
	return p, nil
}

func (c *Cached) Delete(ctx context.Context, id string) error {
	c.cache.Remove(id)
	return c.Store.Delete(ctx, id)
}

// Len reports how many projects are cached.
func (c *Cached) Len() int {
	return c.cache.Len()
}
