package tts

import (
	"container/list"
	"context"
	"sync"
)

// Cache memoizes synthesized phrases. Alert phrases repeat ("person
// found"), so the cloud round-trip is paid once per label.
type Cache struct {
	provider Provider
	size     int

	mu    sync.Mutex
	order *list.List // front is most recent
	items map[string]*list.Element
}

type cacheEntry struct {
	text   string
	result *AudioResult
}

// NewCache wraps p, keeping at most size phrases.
func NewCache(p Provider, size int) *Cache {
	if size <= 0 {
		size = 32
	}
	return &Cache{
		provider: p,
		size:     size,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Name implements Provider.
func (c *Cache) Name() string { return "cache(" + c.provider.Name() + ")" }

// Synthesize returns the cached result for text, synthesizing on a miss.
// Failures are not cached.
func (c *Cache) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	c.mu.Lock()
	if el, ok := c.items[text]; ok {
		c.order.MoveToFront(el)
		result := el.Value.(*cacheEntry).result
		c.mu.Unlock()
		return result, nil
	}
	c.mu.Unlock()

	result, err := c.provider.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[text]; ok {
		c.order.MoveToFront(el)
		return el.Value.(*cacheEntry).result, nil
	}
	c.items[text] = c.order.PushFront(&cacheEntry{text: text, result: result})
	for c.order.Len() > c.size {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).text)
	}
	return result, nil
}

// Len returns the number of cached phrases.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Close closes the wrapped provider.
func (c *Cache) Close() error {
	return c.provider.Close()
}

var _ Provider = (*Cache)(nil)
