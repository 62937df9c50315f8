package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/saxenasajal03/ConnectX/pkg/config"
	"go.uber.org/zap"
)

const (
	keyPrefix = "connectx:ratelimit:"
	opTimeout = 2 * time.Second
	scanBatch = 100
)

var _ fiber.Storage = (*RedisStorage)(nil)

// RedisStorage backs fiber's limiter with Redis so that every instance
// shares the same counters.
type RedisStorage struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisStorage(cfg config.RedisConfig, logger *zap.Logger) *RedisStorage {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  opTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})
	return &RedisStorage{client: client, logger: logger}
}

func key(k string) string {
	return keyPrefix + k
}

func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStorage) Get(k string) ([]byte, error) {
	if k == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (s *RedisStorage) Set(k string, val []byte, exp time.Duration) error {
	if k == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, key(k), val, exp).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStorage) Delete(k string) error {
	if k == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, key(k)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Reset removes every limiter key, leaving the rest of the database alone.
func (s *RedisStorage) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*opTimeout)
	defer cancel()

	iter := s.client.Scan(ctx, 0, keyPrefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis reset: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis reset: %w", err)
	}
	if len(batch) > 0 {
		if err := s.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis reset: %w", err)
		}
	}
	return nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}

// New returns a Redis-backed storage when an address is configured, or nil
// so the limiter keeps its in-memory default.
func New(cfg config.RedisConfig, logger *zap.Logger) fiber.Storage {
	if cfg.Addr == "" {
		return nil
	}
	logger.Info("Rate limiter using Redis storage", zap.String("addr", cfg.Addr))
	return NewRedisStorage(cfg, logger)
}
