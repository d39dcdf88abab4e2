// Package cache 提供 Redis 缓存操作的封装
// 处理登录失败计数、设备凭证撤销名单、访问事件广播等需要快速访问的数据
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gate-control/internal/config"
)

// AccessEventChannel 访问事件广播频道
const AccessEventChannel = "gate:events"

// RedisCache 封装 Redis 客户端，提供业务相关的缓存操作
type RedisCache struct {
	client *redis.Client // Redis 客户端实例
}

// NewRedisCache 创建 RedisCache 实例
// 参数:
//   - cfg: 应用配置（包含 Redis 连接信息）
//
// 返回:
//   - *RedisCache: 缓存实例
//   - error: 连接错误
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheWithClient 使用已有客户端创建 RedisCache
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close 关闭 Redis 连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping 检查 Redis 连接
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ==================== 登录保护 ====================
// 按客户端 IP 统计登录失败次数，超限后封禁一段时间

func loginFailKey(ip string) string  { return fmt.Sprintf("login:fail:%s", ip) }
func loginBlockKey(ip string) string { return fmt.Sprintf("login:block:%s", ip) }

// IsLoginBlocked 检查 IP 是否处于登录封禁期
// 参数:
//   - ctx: 上下文
//   - ip: 客户端 IP
//
// 返回:
//   - time.Duration: 剩余封禁时间，未封禁时为 0
//   - error: Redis 操作错误
func (c *RedisCache) IsLoginBlocked(ctx context.Context, ip string) (time.Duration, error) {
	ttl, err := c.client.TTL(ctx, loginBlockKey(ip)).Result()
	if err != nil {
		return 0, err
	}
	// Key 不存在时 TTL 返回负值
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// RecordLoginFailure 记录一次登录失败
// 窗口内失败次数达到 limit 时设置封禁 Key，并清空计数
// 参数:
//   - ctx: 上下文
//   - ip: 客户端 IP
//   - limit: 允许的失败次数
//   - window: 计数窗口
//   - block: 封禁时长
//
// 返回:
//   - bool: 本次失败是否触发了封禁
//   - error: Redis 操作错误
func (c *RedisCache) RecordLoginFailure(ctx context.Context, ip string, limit int, window, block time.Duration) (bool, error) {
	count, err := c.client.Incr(ctx, loginFailKey(ip)).Result()
	if err != nil {
		return false, err
	}

	// 只在第一次失败时设置窗口，后续失败不延长
	if count == 1 {
		if err := c.client.Expire(ctx, loginFailKey(ip), window).Err(); err != nil {
			return false, err
		}
	}

	if count < int64(limit) {
		return false, nil
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, loginBlockKey(ip), "1", block)
	pipe.Del(ctx, loginFailKey(ip))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ClearLoginFailures 登录成功后清空失败计数
func (c *RedisCache) ClearLoginFailures(ctx context.Context, ip string) error {
	return c.client.Del(ctx, loginFailKey(ip)).Err()
}

// ==================== 设备凭证撤销名单 ====================

// RevokeDeviceToken 将设备凭证加入撤销名单
// TTL 设置为凭证的剩余有效期，过期后 Key 自动删除（凭证本身也已失效）
// 参数:
//   - ctx: 上下文
//   - tokenID: 凭证标识（jti）
//   - expireAt: 凭证的原始过期时间
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) RevokeDeviceToken(ctx context.Context, tokenID string, expireAt time.Time) error {
	ttl := time.Until(expireAt)
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, fmt.Sprintf("device:revoked:%s", tokenID), "1", ttl).Err()
}

// IsDeviceTokenRevoked 检查设备凭证是否已撤销
func (c *RedisCache) IsDeviceTokenRevoked(ctx context.Context, tokenID string) bool {
	return c.client.Exists(ctx, fmt.Sprintf("device:revoked:%s", tokenID)).Val() > 0
}

// ==================== Pub/Sub ====================
// 访问事件广播，多实例部署时每个实例的 WebSocket Hub 都能收到

// PublishAccessEvent 发布访问事件
// 参数:
//   - ctx: 上下文
//   - event: 事件内容（会被 JSON 序列化）
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) PublishAccessEvent(ctx context.Context, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, AccessEventChannel, data).Err()
}

// SubscribeAccessEvents 订阅访问事件
// 调用方负责关闭返回的 PubSub
func (c *RedisCache) SubscribeAccessEvents(ctx context.Context) *redis.PubSub {
	return c.client.Subscribe(ctx, AccessEventChannel)
}
