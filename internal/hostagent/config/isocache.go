package config

import (
	"context"
	"os"
	"sync"
)

// ISOCache 缓存系统虚拟机 ISO 的本地路径
// GetOrCompute 在持锁状态下计算，并发调用最多触发一次下载
type ISOCache struct {
	mu   sync.Mutex
	path string
}

// NewISOCache 创建缓存，initial 可以为空
func NewISOCache(initial string) *ISOCache {
	return &ISOCache{path: initial}
}

// GetOrCompute 缓存的文件仍然存在时直接返回，否则调用 compute 并缓存结果
func (c *ISOCache) GetOrCompute(ctx context.Context, compute func(context.Context) (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path != "" {
		if _, err := os.Stat(c.path); err == nil {
			return c.path, nil
		}
	}

	path, err := compute(ctx)
	if err != nil {
		return "", err
	}
	c.path = path
	return path, nil
}

// Path 当前缓存的路径
func (c *ISOCache) Path() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}
