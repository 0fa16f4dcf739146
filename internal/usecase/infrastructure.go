package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
)

// TxManager выполняет fn в транзакции, откатывая её при ошибке.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type ImagesInfra interface {
	Validate(image *ProductImage) error
	StoreImage(ctx context.Context, image *ProductImage) (string, error)
	RemoveImage(ctx context.Context, url string) error
	CleanupImages(urls []string)
	OpenImage(ctx context.Context, name string) (*ImageObject, error)
	SweepOrphans(ctx context.Context, referenced []string, olderThan time.Duration) (int, error)
	Ping(ctx context.Context) error
}

type TokenManager interface {
	Issue(user *domain.User) (string, error)
	Parse(token string) (*domain.Principal, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type EventEncoder interface {
	Encode(event *ProductEvent) ([]byte, error)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

type Exporter interface {
	XLSX(products []domain.Product) ([]byte, error)
	CSV(products []domain.Product) ([]byte, error)
}
