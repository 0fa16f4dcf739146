package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsSummary(t *testing.T) {
	now := time.Date(2025, 3, 10, 18, 45, 0, 0, time.UTC)

	expired := product("Yogur", "0.80", "Lacteos", 10, 2)
	expired.ExpirationDate = ptr(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	soon := product("Leche", "1.20", "Lacteos", 1, 5)
	soon.ExpirationDate = ptr(time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC))
	later := product("Queso", "4.50", "Lacteos", 2, 0)
	later.ExpirationDate = ptr(time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC))

	repo := newFakeProductRepo(expired, soon, later, product("Sal", "0.30", "Condimentos", 0, 0))
	uc := NewStatsUC(repo, 7, discardLogger())
	uc.now = func() time.Time { return now }

	summary, err := uc.Summary(context.Background(), cashier)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), repo.summaryAt)
	assert.Equal(t, 4, summary.TotalProducts)
	assert.Equal(t, 1, summary.LowStock)
	assert.Equal(t, 2, summary.ExpiringSoon)
	// 0.80*10 + 1.20*1 + 4.50*2
	assert.True(t, decimal.RequireFromString("18.20").Equal(summary.InventoryValue), summary.InventoryValue.String())
	assert.Equal(t, now, summary.UpdatedAt)
}

func TestStatsRequireAuthentication(t *testing.T) {
	uc := NewStatsUC(newFakeProductRepo(), 7, discardLogger())
	ctx := context.Background()

	_, err := uc.TotalProducts(ctx, nil)
	assert.ErrorIs(t, err, e.ErrMissingToken)
	_, err = uc.LowStock(ctx, nil)
	assert.ErrorIs(t, err, e.ErrMissingToken)
	_, err = uc.Summary(ctx, nil)
	assert.ErrorIs(t, err, e.ErrUnauthenticated)
}

func TestStatsTotalsAndLowStock(t *testing.T) {
	repo := newFakeProductRepo(
		product("A", "1", "X", 1, 5),
		product("B", "1", "X", 5, 5),
		product("C", "1", "X", 0, 1),
	)
	uc := NewStatsUC(repo, 7, discardLogger())
	ctx := context.Background()

	total, err := uc.TotalProducts(ctx, cashier)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	low, err := uc.LowStock(ctx, admin)
	require.NoError(t, err)
	names := make([]string, 0, len(low))
	for _, p := range low {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"A", "C"}, names)

	require.NoError(t, uc.ReportLowStock(ctx))
}

func TestExport(t *testing.T) {
	uc := NewExportUC(newFakeProductRepo(product("A", "1", "X", 1, 0)), fakeExporter{})
	uc.now = func() time.Time { return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	res, err := uc.Export(ctx, admin, "")
	require.NoError(t, err)
	assert.Equal(t, "productos_20250310.xlsx", res.Filename)
	assert.Equal(t, []byte("xlsx"), res.Data)

	res, err = uc.Export(ctx, admin, " CSV ")
	require.NoError(t, err)
	assert.Equal(t, "productos_20250310.csv", res.Filename)
	assert.Contains(t, res.ContentType, "text/csv")

	_, err = uc.Export(ctx, admin, "pdf")
	assert.ErrorIs(t, err, e.ErrUnsupportedExportFormat)

	_, err = uc.Export(ctx, cashier, "csv")
	assert.ErrorIs(t, err, e.ErrForbidden)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthCheck(t *testing.T) {
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errBoom })

	res := NewHealthUC(ok, &fakeImages{}).Check(context.Background())
	assert.True(t, res.Healthy)
	assert.Equal(t, "connected", res.Database)
	assert.Equal(t, "connected", res.ImageStorage)

	res = NewHealthUC(down, &fakeImages{}).Check(context.Background())
	assert.False(t, res.Healthy)
	assert.Equal(t, "error: boom", res.Database)
	assert.Equal(t, "connected", res.ImageStorage)
}

func TestPrincipalRoles(t *testing.T) {
	assert.True(t, admin.IsAdmin())
	assert.False(t, cashier.IsAdmin())
	assert.False(t, (*domain.Principal)(nil).IsAdmin())
}
