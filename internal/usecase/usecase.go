package usecase

import (
	"context"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
)

type ProductUC interface {
	ListProducts(ctx context.Context, req *ListProductsReq) (*ListProductsRes, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, principal *domain.Principal, req *CreateProductReq) (*domain.Product, error)
	UpdateProduct(ctx context.Context, principal *domain.Principal, req *UpdateProductReq) (*domain.Product, error)
	DeleteProduct(ctx context.Context, principal *domain.Principal, id int64) error
	OpenImage(ctx context.Context, name string) (*ImageObject, error)
}

type AuthUC interface {
	Register(ctx context.Context, req *RegisterReq) (*domain.User, error)
	Login(ctx context.Context, req *LoginReq) (*LoginRes, error)
	Authenticate(ctx context.Context, token string) (*domain.Principal, error)
}

type StatsUC interface {
	TotalProducts(ctx context.Context, principal *domain.Principal) (int, error)
	LowStock(ctx context.Context, principal *domain.Principal) ([]domain.Product, error)
	Summary(ctx context.Context, principal *domain.Principal) (*StatsSummary, error)
}

type ExportUC interface {
	Export(ctx context.Context, principal *domain.Principal, format string) (*ExportRes, error)
}

type HealthUC interface {
	Check(ctx context.Context) *HealthRes
}

// requireAdmin пропускает только администратора.
func requireAdmin(principal *domain.Principal) error {
	if principal == nil {
		return e.ErrMissingToken
	}
	if !principal.IsAdmin() {
		return e.ErrAdminRequired
	}

	return nil
}

// requireAuthenticated пропускает любую роль.
func requireAuthenticated(principal *domain.Principal) error {
	if principal == nil {
		return e.ErrMissingToken
	}

	return nil
}
