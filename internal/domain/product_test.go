package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, DefaultCategory, NormalizeCategory("   "))
	assert.Equal(t, "Lacteos", NormalizeCategory(" Lacteos "))
}

func TestIsAnyCategory(t *testing.T) {
	for _, v := range []string{"", "todos", "TODAS", " all "} {
		assert.True(t, IsAnyCategory(v), v)
	}
	assert.False(t, IsAnyCategory("Bebidas"))
}

func TestProductStock(t *testing.T) {
	p := &Product{Price: decimal.RequireFromString("2.50"), CurrentStock: 4, MinStock: 5}
	assert.True(t, p.IsLowStock())
	assert.True(t, decimal.RequireFromString("10").Equal(p.InventoryValue()))

	p.CurrentStock = 5
	assert.False(t, p.IsLowStock())
}

func TestExpiresWithin(t *testing.T) {
	now := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	at := func(day int) *Product {
		d := time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC)
		return &Product{ExpirationDate: &d}
	}

	assert.True(t, at(1).ExpiresWithin(now, 7), "already expired")
	assert.True(t, at(17).ExpiresWithin(now, 7), "boundary day")
	assert.False(t, at(18).ExpiresWithin(now, 7))
	assert.False(t, (&Product{}).ExpiresWithin(now, 7))
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole("")
	assert.True(t, ok)
	assert.Equal(t, RoleCashier, role)

	role, ok = ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, role)

	_, ok = ParseRole("Admin")
	assert.False(t, ok)
}

func TestImageHelpers(t *testing.T) {
	assert.Equal(t, "jpg", ImageExt("Foto.JPG"))
	assert.Equal(t, "", ImageExt("noext"))
	assert.Equal(t, "image/webp", ContentTypeByExt("webp"))
	assert.Equal(t, "application/octet-stream", ContentTypeByExt("exe"))
}
