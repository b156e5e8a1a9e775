// Package memcache 进程内 TTL 快照缓存,单机部署的默认后端。
package memcache

import (
	"context"
	"sync"
	"time"

	"tradewind/internal/market"
)

const defaultTTL = 15 * time.Minute

type entry struct {
	snap      market.Snapshot
	expiresAt time.Time
}

// Cache 带过期时间的内存 map,读写都做深拷贝,
// 调用方拿到的快照与缓存内部互不影响。
type Cache struct {
	ttl time.Duration

	mu      sync.RWMutex
	entries map[string]entry

	nowFn func() time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]entry),
		nowFn:   time.Now,
	}
}

func (c *Cache) Get(ctx context.Context, symbol string) (market.Snapshot, bool) {
	key := market.NormalizeSymbol(symbol)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return market.Snapshot{}, false
	}
	if c.nowFn().After(e.expiresAt) {
		// 过期条目顺手清掉,避免长时间驻留。
		c.mu.Lock()
		if cur, still := c.entries[key]; still && c.nowFn().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return market.Snapshot{}, false
	}
	return e.snap.Clone(), true
}

func (c *Cache) Put(ctx context.Context, symbol string, snap market.Snapshot) {
	key := market.NormalizeSymbol(symbol)
	if key == "" {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{snap: snap.Clone(), expiresAt: c.nowFn().Add(c.ttl)}
	c.mu.Unlock()
}

// Len 返回未过滤过期的条目数,仅用于测试与调试。
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ market.SnapshotCache = (*Cache)(nil)
