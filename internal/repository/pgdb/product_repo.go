package pgdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, description, price, min_stock, current_stock,
	expiration_date, category, image_url, created_at, updated_at`

// ProductRepo реализует репозиторий товаров поверх PostgreSQL.
// Все методы работают в транзакции из контекста, если она открыта.
type ProductRepo struct {
	pool tr.Querier
	conv converter.ProductConverter
}

func NewProductRepo(pool tr.Querier, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		pool: pool,
		conv: conv,
	}
}

func (p *ProductRepo) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	m := p.conv.ToModel(product)
	query := `
		INSERT INTO products (name, description, price, min_stock, current_stock, expiration_date, category, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + productColumns

	model, err := scanProduct(tr.Conn(ctx, p.pool).QueryRow(ctx, query,
		m.Name, m.Description, m.Price, m.MinStock, m.CurrentStock, m.ExpirationDate, m.Category, m.ImageURL,
	))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(model), nil
}

func (p *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return p.getByID(ctx, id, false)
}

// GetForUpdate читает товар с блокировкой строки (SELECT ... FOR UPDATE).
func (p *ProductRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return p.getByID(ctx, id, true)
}

func (p *ProductRepo) getByID(ctx context.Context, id int64, lock bool) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	model, err := scanProduct(tr.Conn(ctx, p.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(model), nil
}

// Update перезаписывает все изменяемые поля товара.
func (p *ProductRepo) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	m := p.conv.ToModel(product)
	query := `
		UPDATE products SET
			name = $2,
			description = $3,
			price = $4,
			min_stock = $5,
			current_stock = $6,
			expiration_date = $7,
			category = $8,
			image_url = $9,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + productColumns

	model, err := scanProduct(tr.Conn(ctx, p.pool).QueryRow(ctx, query,
		m.ID, m.Name, m.Description, m.Price, m.MinStock, m.CurrentStock, m.ExpirationDate, m.Category, m.ImageURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(model), nil
}

func (p *ProductRepo) Delete(ctx context.Context, id int64) error {
	tag, err := tr.Conn(ctx, p.pool).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
	}

	return nil
}

// List возвращает страницу товаров, упорядоченную по id, и общее число товаров под фильтром.
func (p *ProductRepo) List(ctx context.Context, filter *usecase.ProductFilter) ([]domain.Product, int, error) {
	conn := tr.Conn(ctx, p.pool)
	where, args := buildListWhere(filter)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, e.Wrap(whereami.WhereAmI(), err)
	}

	if total == 0 || filter.Offset >= total {
		return []domain.Product{}, total, nil
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY id ASC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args))

	products, err := p.queryProducts(ctx, query, args...)
	if err != nil {
		return nil, 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return products, total, nil
}

func (p *ProductRepo) ListAll(ctx context.Context) ([]domain.Product, error) {
	products, err := p.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY id ASC`)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return products, nil
}

// ImageURLs возвращает все ссылки на изображения, которые используют товары.
func (p *ProductRepo) ImageURLs(ctx context.Context) ([]string, error) {
	rows, err := tr.Conn(ctx, p.pool).Query(ctx, `SELECT image_url FROM products WHERE image_url IS NOT NULL`)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	urls, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return urls, nil
}

func (p *ProductRepo) Count(ctx context.Context) (int, error) {
	var total int
	if err := tr.Conn(ctx, p.pool).QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return total, nil
}

// LowStock возвращает товары, у которых текущий остаток ниже минимального.
func (p *ProductRepo) LowStock(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE current_stock < min_stock
		ORDER BY current_stock ASC, id ASC`

	products, err := p.queryProducts(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return products, nil
}

// Summary считает сводку одним запросом. expiresBefore — граница срока годности (включительно).
func (p *ProductRepo) Summary(ctx context.Context, expiresBefore time.Time) (*usecase.StatsSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE current_stock < min_stock),
			COUNT(*) FILTER (WHERE expiration_date IS NOT NULL AND expiration_date <= $1),
			COALESCE(SUM(price * current_stock), 0)
		FROM products
	`

	var (
		summary usecase.StatsSummary
		value   decimal.Decimal
	)
	if err := tr.Conn(ctx, p.pool).QueryRow(ctx, query, expiresBefore).Scan(
		&summary.TotalProducts, &summary.LowStock, &summary.ExpiringSoon, &value,
	); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	summary.InventoryValue = value

	return &summary, nil
}

func (p *ProductRepo) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := tr.Conn(ctx, p.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	models := make([]converter.ProductModel, 0)
	for rows.Next() {
		model, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, *model)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return p.conv.ToArrEntity(models), nil
}

func scanProduct(row pgx.Row) (*converter.ProductModel, error) {
	var m converter.ProductModel
	if err := row.Scan(
		&m.ID, &m.Name, &m.Description, &m.Price, &m.MinStock, &m.CurrentStock,
		&m.ExpirationDate, &m.Category, &m.ImageURL, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &m, nil
}
