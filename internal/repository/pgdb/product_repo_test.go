package pgdb

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectProducts = `SELECT id, name, description, price, min_stock, current_stock, expiration_date, category, image_url, created_at, updated_at FROM products`

var productCols = []string{
	"id", "name", "description", "price", "min_stock", "current_stock",
	"expiration_date", "category", "image_url", "created_at", "updated_at",
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})

	return mock
}

func productRow(rows *pgxmock.Rows, id int64, name string) *pgxmock.Rows {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return rows.AddRow(id, name, nil, decimal.RequireFromString("1.20"), int32(5), int32(3),
		nil, "Lacteos", nil, created, created)
}

func TestProductRepoList(t *testing.T) {
	tests := []struct {
		name      string
		filter    usecase.ProductFilter
		where     string
		whereArgs []any
		pageArgs  string
	}{
		{
			name:     "no filters",
			filter:   usecase.ProductFilter{Limit: 2, Offset: 0},
			pageArgs: " LIMIT $1 OFFSET $2",
		},
		{
			name:      "category only",
			filter:    usecase.ProductFilter{Category: "Lacteos", Limit: 2, Offset: 0},
			where:     " WHERE category = $1",
			whereArgs: []any{"Lacteos"},
			pageArgs:  " LIMIT $2 OFFSET $3",
		},
		{
			name:      "search only",
			filter:    usecase.ProductFilter{Search: "lec", Limit: 2, Offset: 0},
			where:     " WHERE (name ILIKE $1 OR description ILIKE $1)",
			whereArgs: []any{"%lec%"},
			pageArgs:  " LIMIT $2 OFFSET $3",
		},
		{
			name:      "category and search",
			filter:    usecase.ProductFilter{Category: "Lacteos", Search: "lec", Limit: 2, Offset: 0},
			where:     " WHERE category = $1 AND (name ILIKE $2 OR description ILIKE $2)",
			whereArgs: []any{"Lacteos", "%lec%"},
			pageArgs:  " LIMIT $3 OFFSET $4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			repo := NewProductRepo(mock, converter.NewProductConverterImpl())

			mock.ExpectQuery(`SELECT COUNT(*) FROM products` + tt.where).
				WithArgs(tt.whereArgs...).
				WillReturnRows(mock.NewRows([]string{"count"}).AddRow(7))

			pageArgs := append(append([]any{}, tt.whereArgs...), 2, 0)
			rows := mock.NewRows(productCols)
			productRow(rows, 1, "Leche")
			productRow(rows, 2, "Leche deslactosada")
			mock.ExpectQuery(selectProducts + tt.where + " ORDER BY id ASC" + tt.pageArgs).
				WithArgs(pageArgs...).
				WillReturnRows(rows)

			products, total, err := repo.List(context.Background(), &tt.filter)
			require.NoError(t, err)
			assert.Equal(t, 7, total)
			require.Len(t, products, 2)
			assert.Equal(t, int64(1), products[0].ID)
			assert.Equal(t, "Leche deslactosada", products[1].Name)
			assert.Equal(t, 3, products[1].CurrentStock)
			assert.True(t, decimal.RequireFromString("1.20").Equal(products[0].Price))
		})
	}
}

func TestProductRepoListOffsetPastTotal(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProductRepo(mock, converter.NewProductConverterImpl())

	mock.ExpectQuery(`SELECT COUNT(*) FROM products WHERE category = $1`).
		WithArgs("Bebidas").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(3))

	// страница за пределами выборки не запрашивается
	products, total, err := repo.List(context.Background(), &usecase.ProductFilter{Category: "Bebidas", Limit: 10, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestProductRepoListEmpty(t *testing.T) {
	mock := newMockPool(t)
	repo := NewProductRepo(mock, converter.NewProductConverterImpl())

	mock.ExpectQuery(`SELECT COUNT(*) FROM products`).
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(0))

	products, total, err := repo.List(context.Background(), &usecase.ProductFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, products)
}

func TestCategoryRepoList(t *testing.T) {
	mock := newMockPool(t)
	repo := NewCategoryRepo(mock)

	mock.ExpectQuery(`SELECT DISTINCT category FROM products WHERE category <> '' ORDER BY category`).
		WillReturnRows(mock.NewRows([]string{"category"}).AddRow("Bebidas").AddRow("Lacteos"))

	categories, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Bebidas", "Lacteos"}, categories)
}
