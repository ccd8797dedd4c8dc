package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type entry[T any] struct {
	key        string
	value      T
	insertedAt time.Time
}

// TTL is an in-memory Store with a fixed capacity and time-to-live. Entries
// are kept in recency order: writes append, hits move the entry to the back,
// and a full cache evicts from the front. A hit does not extend the entry's
// lifetime.
type TTL[T any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	order    *list.List
	items    map[string]*list.Element
	now      func() time.Time
}

func NewTTL[T any](capacity int, ttl time.Duration) *TTL[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &TTL[T]{
		ttl:      ttl,
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
}

func (c *TTL[T]) Get(_ context.Context, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*entry[T])
	if c.now().Sub(ent.insertedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.items, key)
		return zero, false
	}
	c.order.MoveToBack(el)
	return ent.value, true
}

// Set replaces any previous value for key and restarts its lifetime.
func (c *TTL[T]) Set(_ context.Context, key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
	if c.order.Len() >= c.capacity {
		if oldest := c.order.Front(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[T]).key)
		}
	}
	c.items[key] = c.order.PushBack(&entry[T]{key: key, value: value, insertedAt: c.now()})
}

// Len counts stored entries, expired ones included until they are read.
func (c *TTL[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
