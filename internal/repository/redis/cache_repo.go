package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jchangwan/campus-closet-share/internal/cfg"
	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/pkg/clients"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const keyPrefix = "recommend:neighbors:"

// neighborsRedisModel — закэшированный результат k-NN. Key хранится внутри значения,
// чтобы отбрасывать записи, попавшие не под свой ключ.
type neighborsRedisModel struct {
	Key       string            `json:"key"`
	Neighbors []domain.Neighbor `json:"neighbors"`
}

// CacheRepo кэширует результаты поиска соседей в Redis.
// Все ошибки Redis только логируются: кэш не должен ломать запрос.
type CacheRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// GetNeighbors возвращает закэшированных соседей. Промах, битое значение или ошибка Redis дают false.
func (c *CacheRepo) GetNeighbors(ctx context.Context, key string) ([]domain.Neighbor, bool) {
	redisKey := neighborsKey(key)

	data, err := c.client.Client.Get(ctx, redisKey).Bytes()
	if err != nil {
		if !errors.Is(err, r.Nil) {
			c.logger.Warnf("Redis GET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false
	}

	var model neighborsRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return nil, false
	}

	if model.Key != key {
		c.logger.Warnf("Cache key mismatch: key: %s, model_key: %s", key, model.Key)
		if err := c.client.Client.Del(ctx, redisKey).Err(); err != nil {
			c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false
	}

	return model.Neighbors, true
}

// SetNeighbors сохраняет соседей с TTL из конфигурации.
func (c *CacheRepo) SetNeighbors(ctx context.Context, key string, neighbors []domain.Neighbor) {
	data, err := json.Marshal(neighborsRedisModel{Key: key, Neighbors: neighbors})
	if err != nil {
		c.logger.Warnf("Failed to marshal neighbors for caching: %v", e.Wrap(whereami.WhereAmI(), err))
		return
	}

	if err := c.client.Client.Set(ctx, neighborsKey(key), data, c.cfg.ResultTTL).Err(); err != nil {
		c.logger.Warnf("Redis SET failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}
}

// neighborsKey возвращает Redis-ключ для результата поиска
func neighborsKey(key string) string {
	return keyPrefix + key
}
