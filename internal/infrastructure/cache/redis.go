package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wekeepgrowing/semo-keyhub/internal/config"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/repository"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// RedisRepository is the go-redis implementation of CacheRepository.
type RedisRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisClient Redis 클라이언트를 만들고 PING으로 연결을 확인합니다.
func NewRedisClient(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	fields := []zap.Field{zap.String("addr", cfg.Addr()), zap.Int("db", cfg.DB)}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Redis 연결 실패", append(fields, zap.Error(err))...)
		_ = client.Close()
		return nil, fmt.Errorf("redis %s db=%d: %w", cfg.Addr(), cfg.DB, err)
	}

	logger.Info("Redis 연결 성공", fields...)
	return client, nil
}

// NewRedisRepository wraps client. name tags log lines ("management" or "customer").
func NewRedisRepository(client *redis.Client, logger *zap.Logger, name string) repository.CacheRepository {
	return &RedisRepository{
		client: client,
		logger: logger.With(zap.String("cache", name)),
	}
}

// fail redis.Nil은 조회 결과일 뿐이므로 로그 없이 돌려줍니다.
func (r *RedisRepository) fail(op string, err error, fields ...zap.Field) error {
	if err == nil || errors.Is(err, redis.Nil) {
		return err
	}
	r.logger.Error("Redis "+op+" 실패", append(fields, zap.Error(err))...)
	return err
}

func (r *RedisRepository) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return r.fail("SET", r.client.Set(ctx, key, value, expiration).Err(), zap.String("key", key))
}

// Get 키가 없으면 redis.Nil을 그대로 반환합니다. IsNotFound로 구분합니다.
func (r *RedisRepository) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", r.fail("GET", err, zap.String("key", key))
	}
	return value, nil
}

func (r *RedisRepository) Delete(ctx context.Context, key string) error {
	return r.fail("DEL", r.client.Del(ctx, key).Err(), zap.String("key", key))
}

// SetMulti MULTI/EXEC 파이프라인 한 번으로 모든 키를 같은 TTL로 씁니다.
func (r *RedisRepository) SetMulti(ctx context.Context, items map[string]string, expiration time.Duration) error {
	if len(items) == 0 {
		return nil
	}

	keys := make([]string, 0, len(items))
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range items {
			pipe.Set(ctx, key, value, expiration)
			keys = append(keys, key)
		}
		return nil
	})
	return r.fail("SET(multi)", err, zap.Strings("keys", keys))
}

func (r *RedisRepository) DeleteMulti(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.fail("DEL(multi)", r.client.Del(ctx, keys...).Err(), zap.Strings("keys", keys))
}

func (r *RedisRepository) IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
