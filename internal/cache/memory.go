package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore 进程内缓存,过期条目在读取时删除
type MemoryStore struct {
	cache *sync.Map
	now   func() time.Time
}

// cacheEntry 缓存条目
type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore 创建进程内缓存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: &sync.Map{},
		now:   time.Now,
	}
}

// Get 获取缓存
func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	val, found := c.cache.Load(key)
	if !found {
		return nil, ErrCacheMiss
	}

	entry := val.(*cacheEntry)
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		// 已过期，删除
		c.cache.Delete(key)
		return nil, ErrCacheMiss
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set 设置缓存,ttl <= 0 表示不过期
func (c *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := &cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.cache.Store(key, entry)
	return nil
}

// Delete 删除缓存
func (c *MemoryStore) Delete(_ context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

// Purge 清理所有过期条目
func (c *MemoryStore) Purge() int {
	removed := 0
	now := c.now()
	c.cache.Range(func(key, value interface{}) bool {
		entry := value.(*cacheEntry)
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			c.cache.Delete(key)
			removed++
		}
		return true
	})
	return removed
}
