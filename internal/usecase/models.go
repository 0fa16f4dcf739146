package usecase

import (
	"io"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// PRODUCT USECASE

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ProductFields — значения полей товара из запроса. nil означает «поле не передано».
type ProductFields struct {
	Name           *string
	Description    *string
	Price          *decimal.Decimal
	MinStock       *int
	CurrentStock   *int
	ExpirationDate *time.Time
	Category       *string
}

// ProductImage представляет изображение, загруженное через multipart/form-data.
type ProductImage struct {
	Data     []byte // байты изображения
	Filename string // оригинальное имя файла, по нему определяется расширение
	Size     int64
}

// CreateProductReq — запрос на создание товара.
type CreateProductReq struct {
	Fields ProductFields
	Image  *ProductImage
}

// UpdateProductReq — запрос на частичное обновление товара.
type UpdateProductReq struct {
	ID     int64
	Fields ProductFields
	Image  *ProductImage
}

// ListProductsReq — фильтры и пагинация каталога.
type ListProductsReq struct {
	Category string
	Search   string
	Page     int
	PageSize int
}

// ListProductsRes — страница каталога.
type ListProductsRes struct {
	Products   []domain.Product
	Total      int
	Pages      int
	Page       int
	PageSize   int
	Categories []string
}

// ProductFilter — нормализованный фильтр для репозитория.
type ProductFilter struct {
	Category string // пусто — без фильтра
	Search   string // пусто — без фильтра
	Limit    int
	Offset   int
}

// ImageObject — открытый файл изображения для отдачи клиенту.
type ImageObject struct {
	Body        io.ReadSeekCloser
	Name        string
	ContentType string
	Size        int64
	ModTime     time.Time
}

// AUTH USECASE

type RegisterReq struct {
	Username string
	Password string
	Role     string
}

type LoginReq struct {
	Username string
	Password string
}

type LoginRes struct {
	AccessToken string
	Role        domain.Role
}

// STATS USECASE

// StatsSummary — сводка по складу.
type StatsSummary struct {
	TotalProducts  int
	LowStock       int
	ExpiringSoon   int
	InventoryValue decimal.Decimal
	UpdatedAt      time.Time
}

// EXPORT USECASE

type ExportFormat string

const (
	ExportXLSX ExportFormat = "xlsx"
	ExportCSV  ExportFormat = "csv"
)

type ExportRes struct {
	Filename    string
	ContentType string
	Data        []byte
}

// HEALTH USECASE

type HealthRes struct {
	Healthy      bool
	Database     string
	ImageStorage string
	CheckedAt    time.Time
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
	Failed     OutboxStatus = "failed" // брокер отверг сообщение, повтор не поможет
)

type OutboxEventType string

const (
	ProductCreated OutboxEventType = "product.created"
	ProductUpdated OutboxEventType = "product.updated"
	ProductDeleted OutboxEventType = "product.deleted"
)

// OutboxEvent — событие об изменении товара, ожидающее публикации в Kafka.
type OutboxEvent struct {
	ID                  int64
	EventID             string
	EventType           OutboxEventType
	ProductID           int64
	Payload             []byte
	Status              OutboxStatus
	CreatedAt           time.Time
	ProcessingStartedAt *time.Time
	ProcessedAt         *time.Time
}

// ProductEvent — содержимое события до сериализации.
type ProductEvent struct {
	EventID    string
	Type       OutboxEventType
	OccurredAt time.Time
	Product    *domain.Product
}

// WriteRawMessageReq — уже сериализованное сообщение для Kafka.
type WriteRawMessageReq struct {
	ProductID int64
	Payload   []byte
}

// MAPPERS

func NewOutboxEvent(event *ProductEvent, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		EventID:   event.EventID,
		EventType: event.Type,
		ProductID: event.Product.ID,
		Payload:   payload,
		Status:    Pending,
		CreatedAt: event.OccurredAt,
	}
}

func NewWriteRawMessageReq(productID int64, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		ProductID: productID,
		Payload:   payload,
	}
}

func NewProductImage(data []byte, filename string) *ProductImage {
	return &ProductImage{
		Data:     data,
		Filename: filename,
		Size:     int64(len(data)),
	}
}
