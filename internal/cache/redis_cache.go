package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch 每次SCAN返回的建议数量
const scanBatch = 200

// RedisCache 基于Redis实现的缓存
// 所有键都带有KeyPrefix，Clear只删除本前缀下的键
type RedisCache struct {
	client *redis.Client
	prefix string
	ctx    context.Context
}

// NewRedisCache 创建一个新的Redis缓存
func NewRedisCache(config Config) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	// 测试连接
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisCache{
		client: client,
		prefix: config.KeyPrefix,
		ctx:    ctx,
	}, nil
}

// Get 获取缓存内容
func (r *RedisCache) Get(key string) (string, bool, error) {
	value, err := r.client.Get(r.ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}

	return value, true, nil
}

// Set 设置缓存内容
func (r *RedisCache) Set(key string, value string, ttl time.Duration) error {
	return r.client.Set(r.ctx, r.prefix+key, value, ttl).Err()
}

// Delete 删除缓存项
func (r *RedisCache) Delete(key string) error {
	return r.client.Del(r.ctx, r.prefix+key).Err()
}

// DeletePrefix 先用SCAN收集全部匹配的键，遍历结束后再分批删除
// 边遍历边删除会移动游标，导致部分键被跳过
func (r *RedisCache) DeletePrefix(prefix string) error {
	iter := r.client.Scan(r.ctx, 0, r.prefix+prefix+"*", scanBatch).Iterator()

	var keys []string
	for iter.Next(r.ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}

	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		if err := r.client.Del(r.ctx, keys[start:end]...).Err(); err != nil {
			return err
		}
	}
	return nil
}

// Clear 清空本前缀下的所有缓存
// 未设置前缀时会删除整个数据库中的键
func (r *RedisCache) Clear() error {
	return r.DeletePrefix("")
}

// Close 关闭Redis连接
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// 在包初始化时注册Redis缓存
func init() {
	RegisterCache("redis", NewRedisCache)
}
