package usecase

import (
	"context"
	"io"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
)

type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	// GetForUpdate блокирует строку до конца текущей транзакции.
	GetForUpdate(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter *ProductFilter) ([]domain.Product, int, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
	ImageURLs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	LowStock(ctx context.Context) ([]domain.Product, error)
	Summary(ctx context.Context, expiresBefore time.Time) (*StatsSummary, error)
}

// CategoryRepository возвращает категории, встречающиеся в каталоге.
type CategoryRepository interface {
	List(ctx context.Context) ([]string, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type ImageRepository interface {
	Upload(ctx context.Context, image *domain.Image) (string, error)
	Delete(ctx context.Context, key string) error
	Open(ctx context.Context, key string) (io.ReadSeekCloser, *domain.Image, error)
	List(ctx context.Context) ([]domain.Image, error)
	Ping(ctx context.Context) error
}

// CacheRepository — кэш чтения каталога. Промах возвращает (nil, false, nil).
// Set* принимает поколение, прочитанное через *Version до запроса в БД: если запись
// за это время инвалидировали, значение не сохраняется.
type CacheRepository interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, bool, error)
	ProductVersion(ctx context.Context, id int64) (int64, error)
	SetProduct(ctx context.Context, product *domain.Product, version int64) error
	DeleteProducts(ctx context.Context, ids []int64) error
	GetCategories(ctx context.Context) ([]string, bool, error)
	CategoriesVersion(ctx context.Context) (int64, error)
	SetCategories(ctx context.Context, categories []string, version int64) error
	DeleteCategories(ctx context.Context) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	MarkAsPending(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64) error
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// DBPinger проверяет доступность базы данных.
type DBPinger interface {
	Ping(ctx context.Context) error
}
