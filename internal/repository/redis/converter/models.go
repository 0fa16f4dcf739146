package converter

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductRedisModel — представление товара в кэше. Цена хранится строкой,
// чтобы не терять точность decimal.
type ProductRedisModel struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Description    *string         `json:"description,omitempty"`
	Price          decimal.Decimal `json:"price"`
	MinStock       int             `json:"min_stock"`
	CurrentStock   int             `json:"current_stock"`
	ExpirationDate *time.Time      `json:"expiration_date,omitempty"`
	Category       string          `json:"category"`
	ImageURL       *string         `json:"image_url,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
