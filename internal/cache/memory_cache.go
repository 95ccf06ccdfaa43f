package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultMemoryTTL     = 24 * time.Hour
	defaultMemoryCleanup = 10 * time.Minute
)

// MemoryCache 进程内缓存，单机部署时保存搜索结果和关键词分析
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache 创建内存缓存，未配置的过期时间和清理间隔取默认值
func NewMemoryCache(config Config) (Cache, error) {
	ttl, cleanup := config.DefaultTTL, config.CleanupInterval
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}
	if cleanup <= 0 {
		cleanup = defaultMemoryCleanup
	}
	return &MemoryCache{items: gocache.New(ttl, cleanup)}, nil
}

func (m *MemoryCache) Get(key string) (string, bool, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	return s, ok, nil
}

// Set ttl为0时使用创建时的默认过期时间
func (m *MemoryCache) Set(key string, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	m.items.Set(key, value, ttl)
	return nil
}

func (m *MemoryCache) Delete(key string) error {
	m.items.Delete(key)
	return nil
}

// DeletePrefix 重新索引后用于清掉某一类结果，例如全部搜索缓存
func (m *MemoryCache) DeletePrefix(prefix string) error {
	if prefix == "" {
		return m.Clear()
	}
	for key := range m.items.Items() {
		if strings.HasPrefix(key, prefix) {
			m.items.Delete(key)
		}
	}
	return nil
}

func (m *MemoryCache) Clear() error {
	m.items.Flush()
	return nil
}

func init() {
	RegisterCache("memory", NewMemoryCache)
}
