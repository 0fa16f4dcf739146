package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/cfg"
	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/inventory-backend/pkg/clients"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

const (
	categoriesKey    = "categories"
	categoriesGenKey = "categories:gen"

	// счётчик поколения нужен только на время одного чтения из БД
	genTTL = time.Hour
)

var errStaleVersion = errors.New("cache entry version changed")

// CacheRepo — кэш чтения каталога в Redis. Ошибки Redis не должны ломать запросы:
// вызывающий слой трактует их как промах.
type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ProductConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.ProductConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// GetProduct возвращает товар из кэша. Промах: (nil, false, nil).
func (c *CacheRepo) GetProduct(ctx context.Context, id int64) (*domain.Product, bool, error) {
	key := c.productKey(id)

	data, err := c.client.Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return nil, false, nil
		}
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.ProductRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		c.drop(ctx, key)
		return nil, false, nil
	}

	if model.ID != id {
		c.logger.Warnf("Cache ID mismatch: key_id: %d, model_id: %d", id, model.ID)
		c.drop(ctx, key)
		return nil, false, nil
	}

	return c.conv.ToEntity(&model), true, nil
}

// ProductVersion возвращает текущее поколение записи товара. Его читают до запроса в БД
// и передают в SetProduct.
func (c *CacheRepo) ProductVersion(ctx context.Context, id int64) (int64, error) {
	return c.version(ctx, c.productGenKey(id))
}

// SetProduct кэширует товар на ProductTTL, если с момента чтения version запись не инвалидировали.
func (c *CacheRepo) SetProduct(ctx context.Context, product *domain.Product, version int64) error {
	data, err := json.Marshal(c.conv.ToRedisModel(product))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return c.setIfVersion(ctx, c.productKey(product.ID), c.productGenKey(product.ID), version, data, c.cfg.ProductTTL)
}

// DeleteProducts удаляет товары из кэша по ID и сдвигает их поколение.
func (c *CacheRepo) DeleteProducts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := c.client.Client.TxPipelined(ctx, func(pipe r.Pipeliner) error {
		for _, id := range ids {
			c.invalidate(ctx, pipe, c.productKey(id), c.productGenKey(id))
		}
		return nil
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (c *CacheRepo) GetCategories(ctx context.Context) ([]string, bool, error) {
	data, err := c.client.Client.Get(ctx, categoriesKey).Bytes()
	if err != nil {
		if errors.Is(err, r.Nil) {
			return nil, false, nil
		}
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	var categories []string
	if err := json.Unmarshal(data, &categories); err != nil {
		c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		c.drop(ctx, categoriesKey)
		return nil, false, nil
	}

	return categories, true, nil
}

func (c *CacheRepo) CategoriesVersion(ctx context.Context) (int64, error) {
	return c.version(ctx, categoriesGenKey)
}

func (c *CacheRepo) SetCategories(ctx context.Context, categories []string, version int64) error {
	if categories == nil {
		categories = []string{}
	}

	data, err := json.Marshal(categories)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return c.setIfVersion(ctx, categoriesKey, categoriesGenKey, version, data, c.cfg.CategoriesTTL)
}

func (c *CacheRepo) DeleteCategories(ctx context.Context) error {
	_, err := c.client.Client.TxPipelined(ctx, func(pipe r.Pipeliner) error {
		c.invalidate(ctx, pipe, categoriesKey, categoriesGenKey)
		return nil
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (c *CacheRepo) version(ctx context.Context, genKey string) (int64, error) {
	gen, err := c.client.Client.Get(ctx, genKey).Int64()
	if err != nil && !errors.Is(err, r.Nil) {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return gen, nil
}

// setIfVersion пишет значение под WATCH на счётчик поколения. Если поколение успело
// измениться, запись пропускается без ошибки.
func (c *CacheRepo) setIfVersion(ctx context.Context, key, genKey string, version int64, data []byte, ttl time.Duration) error {
	err := c.client.Client.Watch(ctx, func(tx *r.Tx) error {
		gen, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, r.Nil) {
			return err
		}
		if gen != version {
			return errStaleVersion
		}

		_, err = tx.TxPipelined(ctx, func(pipe r.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errStaleVersion), errors.Is(err, r.TxFailedErr):
		c.logger.Debugf("Skip caching %s: invalidated while loading", key)
		return nil
	default:
		return e.Wrap(whereami.WhereAmI(), err)
	}
}

// invalidate удаляет значение и сдвигает поколение, чтобы отбросить параллельные записи.
func (c *CacheRepo) invalidate(ctx context.Context, pipe r.Pipeliner, key, genKey string) {
	pipe.Del(ctx, key)
	pipe.Incr(ctx, genKey)
	pipe.Expire(ctx, genKey, genTTL)
}

// drop удаляет повреждённую запись, ошибку только логирует
func (c *CacheRepo) drop(ctx context.Context, key string) {
	if err := c.client.Client.Del(ctx, key).Err(); err != nil {
		c.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}
}

// productKey возвращает Redis-ключ для одного товара
func (c *CacheRepo) productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *CacheRepo) productGenKey(id int64) string {
	return fmt.Sprintf("product:%d:gen", id)
}
