// Package rediscache go-redis 快照缓存后端,多实例部署时共享命中。
// 任何 Redis 故障都降级为 miss,绝不把缓存层错误抛给流水线。
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"tradewind/internal/logger"
	"tradewind/internal/market"
)

const (
	keyPrefix = "twind:snap:"
	opTimeout = 2 * time.Second
)

type Cache struct {
	cli *redis.Client
	ttl time.Duration
}

func New(addr, password string, db int, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{
		cli: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

// Ping 启动时探活,失败直接让进程拒绝启动而不是运行期静默降级。
func (c *Cache) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return c.cli.Ping(ctx).Err()
}

func (c *Cache) Get(ctx context.Context, symbol string) (market.Snapshot, bool) {
	key := keyPrefix + market.NormalizeSymbol(symbol)
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := c.cli.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnf("[缓存] redis get %s 失败,按 miss 处理: %v", key, err)
		}
		return market.Snapshot{}, false
	}

	var snap market.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		logger.Warnf("[缓存] redis %s 反序列化失败,按 miss 处理并清除: %v", key, err)
		_ = c.cli.Del(ctx, key).Err()
		return market.Snapshot{}, false
	}
	return snap, true
}

func (c *Cache) Put(ctx context.Context, symbol string, snap market.Snapshot) {
	key := keyPrefix + market.NormalizeSymbol(symbol)
	raw, err := json.Marshal(snap)
	if err != nil {
		logger.Warnf("[缓存] %s 序列化失败,跳过写入: %v", key, err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.cli.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Warnf("[缓存] redis set %s 失败,跳过写入: %v", key, err)
	}
}

func (c *Cache) Close() error {
	return c.cli.Close()
}

var _ market.SnapshotCache = (*Cache)(nil)
