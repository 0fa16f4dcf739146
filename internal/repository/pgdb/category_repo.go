package pgdb

import (
	"context"

	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
)

// CategoryRepo читает категории каталога. Категория хранится строкой в products.category.
type CategoryRepo struct {
	pool tr.Querier
}

func NewCategoryRepo(pool tr.Querier) *CategoryRepo {
	return &CategoryRepo{pool: pool}
}

// List возвращает уникальные непустые категории в алфавитном порядке.
func (c *CategoryRepo) List(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT category FROM products
		WHERE category <> ''
		ORDER BY category
	`

	rows, err := tr.Conn(ctx, c.pool).Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return categories, nil
}
