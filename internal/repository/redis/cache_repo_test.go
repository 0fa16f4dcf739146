package redis

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/cfg"
	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/inventory-backend/pkg/clients"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*CacheRepo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	redisCfg := &cfg.RedisCfg{
		Enabled:       true,
		Addr:          mr.Addr(),
		DialTimeout:   time.Second,
		Timeout:       time.Second,
		ProductTTL:    time.Minute,
		CategoriesTTL: 30 * time.Second,
	}

	client := clients.NewRedisClient(redisCfg)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	log := logger.NewSlogLogger(logger.WithWriter(io.Discard))
	return NewCacheRepo(client, converter.NewProductConverterImpl(), redisCfg, log), mr
}

func TestCacheRepoProductRoundTrip(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	desc := "Leche entera 1L"
	exp := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	product := &domain.Product{
		ID:             1,
		Name:           "Leche",
		Description:    &desc,
		Price:          decimal.RequireFromString("1.25"),
		MinStock:       5,
		CurrentStock:   3,
		ExpirationDate: &exp,
		Category:       "Lacteos",
	}
	require.NoError(t, cache.SetProduct(ctx, product, 0))
	assert.Equal(t, time.Minute, mr.TTL("product:1"))

	got, ok, err := cache.GetProduct(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Leche", got.Name)
	assert.True(t, got.Price.Equal(product.Price))
	assert.Equal(t, "1.25", got.Price.StringFixed(domain.PriceScale))
	require.NotNil(t, got.ExpirationDate)
	assert.True(t, got.ExpirationDate.Equal(exp))
	assert.Nil(t, got.ImageURL)

	require.NoError(t, cache.DeleteProducts(ctx, []int64{1, 2}))
	_, ok, err = cache.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRepoCorruptedEntryIsMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("product:7", "{not json"))

	_, ok, err := cache.GetProduct(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("product:7"))

	require.NoError(t, mr.Set("product:8", `{"id":9,"name":"x","price":"1"}`))
	_, ok, err = cache.GetProduct(ctx, 8)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRepoCategories(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := cache.GetCategories(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.SetCategories(ctx, nil, 0))
	got, ok, err := cache.GetCategories(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)

	require.NoError(t, cache.SetCategories(ctx, []string{"Bebidas", "Lacteos"}, 0))
	assert.Equal(t, 30*time.Second, mr.TTL(categoriesKey))

	got, ok, err = cache.GetCategories(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"Bebidas", "Lacteos"}, got)

	require.NoError(t, cache.DeleteCategories(ctx))
	_, ok, err = cache.GetCategories(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRepoSkipsWriteAfterInvalidation(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	version, err := cache.ProductVersion(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, version)

	// запись инвалидирована, пока читатель ходил в БД
	require.NoError(t, cache.DeleteProducts(ctx, []int64{3}))
	require.NoError(t, cache.SetProduct(ctx, &domain.Product{ID: 3, Name: "old", Price: decimal.NewFromInt(1)}, version))
	assert.False(t, mr.Exists("product:3"))
	assert.True(t, mr.Exists("product:3:gen"))
	assert.True(t, mr.TTL("product:3:gen") > 0)

	version, err = cache.ProductVersion(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	require.NoError(t, cache.SetProduct(ctx, &domain.Product{ID: 3, Name: "new", Price: decimal.NewFromInt(1)}, version))

	got, ok, err := cache.GetProduct(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.Name)
}

func TestCacheRepoCategoriesSkipStaleWrite(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	version, err := cache.CategoriesVersion(ctx)
	require.NoError(t, err)

	require.NoError(t, cache.DeleteCategories(ctx))
	require.NoError(t, cache.SetCategories(ctx, []string{"Lacteos"}, version))
	assert.False(t, mr.Exists(categoriesKey))

	version, err = cache.CategoriesVersion(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.SetCategories(ctx, []string{"Bebidas", "Lacteos"}, version))

	got, ok, err := cache.GetCategories(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"Bebidas", "Lacteos"}, got)
}

func TestCacheRepoUnavailable(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	_, _, err := cache.GetProduct(context.Background(), 1)
	assert.Error(t, err)
}
