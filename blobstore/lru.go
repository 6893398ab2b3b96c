package blobstore

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// blockKey identifies one cached block of one blob.
type blockKey struct {
	name  string
	block int64
}

// BlockCache caches fixed-size blocks of blob data.
type BlockCache interface {
	Get(key blockKey) ([]byte, bool)
	Set(key blockKey, data []byte)
	Invalidate(predicate func(key blockKey) bool)
}

// LRUBlockCache is a byte-bounded LRU BlockCache. Safe for concurrent use.
type LRUBlockCache struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[blockKey]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry struct {
	key   blockKey
	value []byte
}

// NewLRUBlockCache creates an LRU block cache with the given capacity in bytes.
func NewLRUBlockCache(capacity int64) *LRUBlockCache {
	return &LRUBlockCache{
		capacity:  capacity,
		items:     make(map[blockKey]*list.Element),
		evictList: list.New(),
	}
}

// Get returns a cached block.
func (c *LRUBlockCache) Get(key blockKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*lruEntry).value, true
	}

	c.misses.Add(1)
	return nil, false
}

// Set caches a block, evicting least-recently-used blocks as needed.
// Blocks larger than the capacity are not cached.
func (c *LRUBlockCache) Set(key blockKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	itemSize := int64(len(data))
	if itemSize > c.capacity {
		return
	}

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		e := ent.Value.(*lruEntry)
		c.size += itemSize - int64(len(e.value))
		e.value = data
		c.evict()
		return
	}

	for c.size+itemSize > c.capacity {
		back := c.evictList.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
	}

	element := c.evictList.PushFront(&lruEntry{key: key, value: data})
	c.items[key] = element
	c.size += itemSize
}

// Invalidate removes all entries matching the predicate.
func (c *LRUBlockCache) Invalidate(predicate func(key blockKey) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for key, element := range c.items {
		if predicate(key) {
			toRemove = append(toRemove, element)
		}
	}
	for _, e := range toRemove {
		c.removeElement(e)
	}
}

// Size returns the current cache size in bytes.
func (c *LRUBlockCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns hit and miss counters.
func (c *LRUBlockCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *LRUBlockCache) evict() {
	for c.size > c.capacity {
		back := c.evictList.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
	}
}

func (c *LRUBlockCache) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	ent := e.Value.(*lruEntry)
	delete(c.items, ent.key)
	c.size -= int64(len(ent.value))
}
