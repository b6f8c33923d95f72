package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/skalibog/medallion/internal/config"
	"github.com/skalibog/medallion/internal/exchange"
	"github.com/skalibog/medallion/internal/metrics"
	"github.com/skalibog/medallion/pkg/logger"
	"github.com/skalibog/medallion/pkg/models"
)

// RedisSource кэширует свечи другого источника в Redis.
// Недоступный Redis не мешает работе: запрос уходит в источник.
type RedisSource struct {
	next    exchange.Source
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewRedisSource подключается к Redis и оборачивает источник
func NewRedisSource(cfg config.CacheConfig, next exchange.Source, m *metrics.Metrics) (*RedisSource, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis %s: %w", cfg.Addr, err)
	}

	return newRedisSource(client, next, cfg.TTL(), m), nil
}

func newRedisSource(client *redis.Client, next exchange.Source, ttl time.Duration, m *metrics.Metrics) *RedisSource {
	return &RedisSource{next: next, client: client, ttl: ttl, metrics: m}
}

// Name имя исходного источника
func (c *RedisSource) Name() string { return c.next.Name() }

// Close закрывает соединение с Redis
func (c *RedisSource) Close() error {
	return c.client.Close()
}

func barsKey(source, symbol, interval string, limit int) string {
	return fmt.Sprintf("bars:%s:%s:%s:%d", source, symbol, interval, limit)
}

// GetBars отдает свечи из кэша или из источника с последующей записью в кэш
func (c *RedisSource) GetBars(ctx context.Context, symbol, interval string, limit int) (models.Series, error) {
	key := barsKey(c.next.Name(), symbol, interval, limit)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var series models.Series
		if jsonErr := json.Unmarshal(data, &series); jsonErr == nil {
			c.metrics.CacheResult("hit")
			return series, nil
		}
		logger.Warn("CACHE: поврежденная запись, читаем из источника", zap.String("key", key))
		c.metrics.CacheResult("error")
	case errors.Is(err, redis.Nil):
		c.metrics.CacheResult("miss")
	default:
		logger.Warn("CACHE: Redis недоступен", zap.String("key", key), zap.Error(err))
		c.metrics.CacheResult("error")
	}

	series, err := c.next.GetBars(ctx, symbol, interval, limit)
	if err != nil {
		return models.Series{}, err
	}

	data, err = json.Marshal(series)
	if err != nil {
		return series, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("CACHE: не удалось сохранить свечи", zap.String("key", key), zap.Error(err))
	}
	return series, nil
}
