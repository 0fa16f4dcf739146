package clients

import (
	"context"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/cfg"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/jitter"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const (
	pingAttempts   = 3
	pingBackoff    = 200 * time.Millisecond
	pingMaxBackoff = 2 * time.Second
)

// RedisClient оборачивает go-redis клиент кэша каталога.
type RedisClient struct {
	Client *r.Client
}

func NewRedisClient(cfg *cfg.RedisCfg) *RedisClient {
	client := r.NewClient(&r.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		// кэш не должен задерживать запрос: при исчерпании пула сразу идём в БД
		PoolTimeout: cfg.Timeout,
	})

	return &RedisClient{
		Client: client,
	}
}

// Ping проверяет соединение, повторяя попытки с backoff, пока жив ctx.
func (r *RedisClient) Ping(ctx context.Context) error {
	err := jitter.Retry(ctx, pingAttempts, pingBackoff, pingMaxBackoff, func(ctx context.Context) error {
		return r.Client.Ping(ctx).Err()
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Close закрывает пул соединений. Сигнатура совместима с closer.Func.
func (r *RedisClient) Close(_ context.Context) error {
	return r.Client.Close()
}
