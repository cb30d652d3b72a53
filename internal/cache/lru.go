// Experimentus - A/B Experimentation Engine for Generated Content
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/experimentus

package cache

import (
	"sync"
	"time"
)

// lruEntry is a node in the LRU cache's doubly-linked list.
type lruEntry struct {
	key       string
	prev      *lruEntry
	next      *lruEntry
	expiresAt time.Time
}

// LRUCache is a thread-safe least-recently-used set with TTL, used to
// deduplicate event idempotency keys under at-least-once delivery.
// All operations are O(1); eviction drops the least recently seen key
// when capacity is reached.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruEntry

	// head.next is most recently used, tail.prev least recently used.
	head *lruEntry
	tail *lruEntry
}

// NewLRUCache creates an LRU cache with the given capacity and TTL.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	c := &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// IsDuplicate records the key and reports whether it was already
// present and unexpired. The first call for a key returns false; later
// calls within the TTL return true.
func (c *LRUCache) IsDuplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if entry, exists := c.items[key]; exists {
		if now.Before(entry.expiresAt) {
			entry.expiresAt = now.Add(c.ttl)
			c.moveToFront(entry)
			return true
		}
		// Expired: treat as first occurrence.
		entry.expiresAt = now.Add(c.ttl)
		c.moveToFront(entry)
		return false
	}

	entry := &lruEntry{key: key, expiresAt: now.Add(c.ttl)}
	c.items[key] = entry
	c.pushFront(entry)

	if len(c.items) > c.capacity {
		c.evictOldest()
	}
	return false
}

// Contains reports whether a key is present and unexpired without
// refreshing it.
func (c *LRUCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	return exists && time.Now().Before(entry.expiresAt)
}

// Len returns the number of keys currently held.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache) pushFront(entry *lruEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRUCache) moveToFront(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.pushFront(entry)
}

func (c *LRUCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	oldest.prev.next = c.tail
	c.tail.prev = oldest.prev
	delete(c.items, oldest.key)
}
