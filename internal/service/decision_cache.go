package service

import "sync"

// cacheNode is a doubly-linked list node for the LRU decision cache.
type cacheNode struct {
	key     uint64
	allowed bool
	prev    *cacheNode
	next    *cacheNode
}

// decisionCache is a bounded LRU cache for access decisions, keyed by an
// xxhash digest of the full decision input. Thread-safe with a mutex; both
// Get and Put mutate LRU order.
type decisionCache struct {
	mu      sync.Mutex
	entries map[uint64]*cacheNode
	head    *cacheNode // most recently used
	tail    *cacheNode // least recently used
	maxSize int
}

func newDecisionCache(maxSize int) *decisionCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &decisionCache{
		entries: make(map[uint64]*cacheNode, maxSize),
		maxSize: maxSize,
	}
}

// Get retrieves a cached decision, promoting the entry on hit.
func (c *decisionCache) Get(key uint64) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.entries[key]; ok {
		c.moveToHeadLocked(n)
		return n.allowed, true
	}
	return false, false
}

// Put stores a decision, evicting the least recently used entry at capacity.
func (c *decisionCache) Put(key uint64, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		n.allowed = allowed
		c.moveToHeadLocked(n)
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictTailLocked()
	}
	n := &cacheNode{key: key, allowed: allowed}
	c.entries[key] = n
	c.pushHeadLocked(n)
}

// Clear empties the cache. Called on policy reload.
func (c *decisionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*cacheNode, c.maxSize)
	c.head = nil
	c.tail = nil
}

// Size returns the current entry count.
func (c *decisionCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *decisionCache) moveToHeadLocked(n *cacheNode) {
	if c.head == n {
		return
	}
	c.unlinkLocked(n)
	c.pushHeadLocked(n)
}

func (c *decisionCache) pushHeadLocked(n *cacheNode) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *decisionCache) unlinkLocked(n *cacheNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev = nil
	n.next = nil
}

func (c *decisionCache) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}
