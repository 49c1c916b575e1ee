package cache

import "sync"

type entry struct {
	pot  float64
	live bool
}

// MemCache is the in-process sparse potential cache: a plain map keyed by
// normalized region-ID pair, plus a reverse index from region ID to the
// keys it participates in so a retirement's tombstone pass doesn't have to
// scan the whole map.
type MemCache struct {
	mu      sync.Mutex
	entries map[Key]entry
	byID    map[int]map[Key]struct{}
}

// NewMemCache returns an empty in-memory cache.
func NewMemCache() *MemCache {
	return &MemCache{
		entries: make(map[Key]entry),
		byID:    make(map[int]map[Key]struct{}),
	}
}

func (c *MemCache) index(k Key) {
	for _, id := range [2]int{k.Lo, k.Hi} {
		s, ok := c.byID[id]
		if !ok {
			s = make(map[Key]struct{})
			c.byID[id] = s
		}
		s[k] = struct{}{}
	}
}

func (c *MemCache) Get(a, b int) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[NewKey(a, b)]
	if !ok || !e.live {
		return 0, false
	}
	return e.pot, true
}

func (c *MemCache) Set(a, b int, pot float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := NewKey(a, b)
	c.entries[k] = entry{pot: pot, live: true}
	c.index(k)
}

func (c *MemCache) Tombstone(a, b int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := NewKey(a, b)
	if e, ok := c.entries[k]; ok {
		e.live = false
		c.entries[k] = e
	}
}

func (c *MemCache) TombstoneAllWith(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.byID[id] {
		if e, ok := c.entries[k]; ok {
			e.live = false
			c.entries[k] = e
		}
	}
	delete(c.byID, id)
}

func (c *MemCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.live {
			n++
		}
	}
	return n
}
