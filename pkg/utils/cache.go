// Package utils 缓存工具
package utils

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache 带过期时间的本地缓存
type Cache struct {
	c *cache.Cache
}

// NewCache 创建缓存，清理间隔为过期时间的两倍
func NewCache(ttl time.Duration) *Cache {
	return &Cache{c: cache.New(ttl, 2*ttl)}
}

// Get 获取缓存
func (c *Cache) Get(key string) (interface{}, bool) {
	return c.c.Get(key)
}

// Set 设置缓存，使用默认过期时间
func (c *Cache) Set(key string, value interface{}) {
	c.c.SetDefault(key, value)
}

// Delete 删除缓存
func (c *Cache) Delete(key string) {
	c.c.Delete(key)
}

// GetOrSet 获取或设置缓存，fn 出错时不写入
func (c *Cache) GetOrSet(key string, fn func() (interface{}, error)) (interface{}, error) {
	if val, found := c.c.Get(key); found {
		return val, nil
	}

	val, err := fn()
	if err != nil {
		return nil, err
	}

	c.c.SetDefault(key, val)
	return val, nil
}
