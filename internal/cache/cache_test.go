package cache

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCacheBasics 两种缓存共用的行为测试
func testCacheBasics(t *testing.T, cache Cache) {
	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, cache.Set("key1", "인공지능", 0))

		val, found, err := cache.Get("key1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "인공지능", val)
	})

	t.Run("missing key", func(t *testing.T) {
		val, found, err := cache.Get("non-existent")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, val)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, cache.Set("to-delete", "delete-me", 0))
		require.NoError(t, cache.Delete("to-delete"))

		_, found, err := cache.Get("to-delete")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete prefix", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, cache.Set(fmt.Sprintf("search:q%d", i), "hits", 0))
		}
		require.NoError(t, cache.Set("keywords:q0", "terms", 0))

		require.NoError(t, cache.DeletePrefix("search:"))

		for i := 0; i < 5; i++ {
			_, found, err := cache.Get(fmt.Sprintf("search:q%d", i))
			require.NoError(t, err)
			assert.False(t, found)
		}
		_, found, err := cache.Get("keywords:q0")
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, cache.Set("key2", "value2", 0))
		require.NoError(t, cache.Clear())

		_, found, err := cache.Get("key2")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

// TestMemoryCache 测试内存缓存的基本功能
func TestMemoryCache(t *testing.T) {
	config := Config{
		Type:            "memory",
		DefaultTTL:      time.Second * 2,
		CleanupInterval: time.Second,
	}
	cache, err := NewMemoryCache(config)
	require.NoError(t, err)

	testCacheBasics(t, cache)

	t.Run("expiration", func(t *testing.T) {
		require.NoError(t, cache.Set("expire-soon", "temp-value", time.Millisecond*100))
		time.Sleep(time.Millisecond * 300)

		_, found, err := cache.Get("expire-soon")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

// TestRedisCache 使用miniredis测试Redis缓存
func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	config := Config{
		Type:      "redis",
		RedisAddr: mr.Addr(),
		KeyPrefix: "test:",
	}
	cache, err := NewRedisCache(config)
	require.NoError(t, err)
	defer cache.(*RedisCache).Close()

	testCacheBasics(t, cache)

	t.Run("keys are prefixed", func(t *testing.T) {
		require.NoError(t, cache.Set("prefixed", "v", 0))
		assert.True(t, mr.Exists("test:prefixed"))
		assert.False(t, mr.Exists("prefixed"))
	})

	t.Run("expiration", func(t *testing.T) {
		require.NoError(t, cache.Set("expire-soon", "temp-value", time.Second))
		mr.FastForward(2 * time.Second)

		_, found, err := cache.Get("expire-soon")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("clear keeps foreign keys", func(t *testing.T) {
		require.NoError(t, mr.Set("other:key", "keep"))
		for i := 0; i < scanBatch+10; i++ {
			require.NoError(t, cache.Set(fmt.Sprintf("bulk:%d", i), "v", 0))
		}

		require.NoError(t, cache.Clear())

		for _, key := range mr.Keys() {
			assert.False(t, strings.HasPrefix(key, "test:"), key)
		}
		assert.True(t, mr.Exists("other:key"))
	})

	t.Run("delete prefix across scan batches", func(t *testing.T) {
		total := scanBatch*3 + 7
		for i := 0; i < total; i++ {
			require.NoError(t, cache.Set(fmt.Sprintf("search:%d", i), "v", 0))
		}
		require.NoError(t, cache.Set("searchable", "keep", 0))
		require.NoError(t, cache.Set("analysis:1", "keep", 0))

		require.NoError(t, cache.DeletePrefix("search:"))

		var left []string
		for _, key := range mr.Keys() {
			if strings.HasPrefix(key, "test:search:") {
				left = append(left, key)
			}
		}
		assert.Empty(t, left)
		assert.True(t, mr.Exists("test:searchable"))
		assert.True(t, mr.Exists("test:analysis:1"))
	})
}

func TestRedisCacheUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(Config{RedisAddr: addr})
	assert.Error(t, err)
}

// TestCacheFactory 测试缓存工厂函数
func TestCacheFactory(t *testing.T) {
	memCache, err := NewCache(DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, memCache)

	mr := miniredis.RunT(t)
	redisCache, err := NewCache(Config{Type: "redis", RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, redisCache)

	// 未知类型回退到内存缓存
	unknownCache, err := NewCache(Config{Type: "unknown-type"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, unknownCache)
}

// TestGenerateCacheKey 测试缓存键生成
func TestGenerateCacheKey(t *testing.T) {
	assert.Equal(t, "prefix", GenerateCacheKey("prefix"))
	assert.Equal(t, "prefix:5:part1", GenerateCacheKey("prefix", "part1"))
	assert.Equal(t, "search:12:인공지능:2:10:0:", GenerateCacheKey("search", "인공지능", "10", ""))

	t.Run("colons inside parts", func(t *testing.T) {
		assert.NotEqual(t,
			GenerateCacheKey("search", "a:10", "5", ""),
			GenerateCacheKey("search", "a", "10", "5:"))
		assert.NotEqual(t,
			GenerateCacheKey("search", "a:b"),
			GenerateCacheKey("search", "a", "b"))
	})

	long := strings.Repeat("가", 100)
	key := GenerateCacheKey("search", long)
	assert.Len(t, key, len("search:")+64)
	assert.Equal(t, key, GenerateCacheKey("search", long))
}
