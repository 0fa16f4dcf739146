package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxNameLength        = 150
	MaxDescriptionLength = 255
	MaxCategoryLength    = 100
	// PriceScale — количество знаков после запятой в цене
	PriceScale = 2
)

// Product описывает товар в каталоге
type Product struct {
	ID             int64
	Name           string
	Description    *string
	Price          decimal.Decimal
	MinStock       int
	CurrentStock   int
	ExpirationDate *time.Time // только дата, время обнулено
	Category       string
	ImageURL       *string // публичный путь к изображению, nil если фото нет
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewProduct(name string, price decimal.Decimal, category string) *Product {
	return &Product{
		Name:     name,
		Price:    price,
		Category: NormalizeCategory(category),
	}
}

// IsLowStock сообщает, что текущий остаток ниже порога.
func (p *Product) IsLowStock() bool {
	return p.CurrentStock < p.MinStock
}

// ExpiresWithin сообщает, что срок годности истекает не позже чем через days дней от now.
// Просроченные товары тоже попадают в выборку.
func (p *Product) ExpiresWithin(now time.Time, days int) bool {
	if p.ExpirationDate == nil {
		return false
	}

	limit := TruncateDate(now).AddDate(0, 0, days)
	return !p.ExpirationDate.After(limit)
}

// InventoryValue — стоимость остатка товара.
func (p *Product) InventoryValue() decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(p.CurrentStock)))
}

// TruncateDate отбрасывает время суток.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
