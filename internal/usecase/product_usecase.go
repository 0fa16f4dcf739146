package usecase

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// maxPrice — верхняя граница NUMERIC(10,2)
var maxPrice = decimal.New(1, 8)

// ProductUseCase реализует бизнес-логику каталога товаров.
type ProductUseCase struct {
	productRepo  ProductRepository
	categoryRepo CategoryRepository
	trManager    TxManager
	imagesInfra  ImagesInfra
	cacheRepo    CacheRepository  // nil, если Redis выключен
	outboxRepo   OutboxRepository // nil, если Kafka выключена
	encoder      EventEncoder
	logger       logger.Logger
	now          func() time.Time
}

func NewProductUC(
	productRepo ProductRepository,
	categoryRepo CategoryRepository,
	trManager TxManager,
	imagesInfra ImagesInfra,
	cacheRepo CacheRepository,
	outboxRepo OutboxRepository,
	encoder EventEncoder,
	logger logger.Logger,
) *ProductUseCase {
	return &ProductUseCase{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		trManager:    trManager,
		imagesInfra:  imagesInfra,
		cacheRepo:    cacheRepo,
		outboxRepo:   outboxRepo,
		encoder:      encoder,
		logger:       logger,
		now:          time.Now,
	}
}

// ListProducts возвращает страницу каталога с учётом фильтров и список всех категорий.
func (p *ProductUseCase) ListProducts(ctx context.Context, req *ListProductsReq) (*ListProductsRes, error) {
	const op = "ProductUseCase.ListProducts"

	page, pageSize, err := normalizePaging(req.Page, req.PageSize)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	filter := &ProductFilter{
		Search: strings.TrimSpace(req.Search),
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if !domain.IsAnyCategory(req.Category) {
		filter.Category = strings.TrimSpace(req.Category)
	}

	products, total, err := p.productRepo.List(ctx, filter)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	categories, err := p.categories(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &ListProductsRes{
		Products:   products,
		Total:      total,
		Pages:      (total + pageSize - 1) / pageSize,
		Page:       page,
		PageSize:   pageSize,
		Categories: categories,
	}, nil
}

// GetProduct возвращает товар по ID, сначала заглядывая в кэш.
func (p *ProductUseCase) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	const op = "ProductUseCase.GetProduct"

	cacheable := false
	var version int64
	if p.cacheRepo != nil {
		cached, ok, err := p.cacheRepo.GetProduct(ctx, id)
		if err != nil {
			p.logger.Warnf("Failed to read product %d from cache: %v", id, e.Wrap(op, err))
		} else if ok {
			return cached, nil
		}

		if version, err = p.cacheRepo.ProductVersion(ctx, id); err != nil {
			p.logger.Warnf("Failed to read product %d cache version: %v", id, e.Wrap(op, err))
		} else {
			cacheable = true
		}
	}

	product, err := p.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if cacheable {
		if err := p.cacheRepo.SetProduct(ctx, product, version); err != nil {
			p.logger.Warnf("Failed to cache product %d: %v", id, e.Wrap(op, err))
		}
	}

	return product, nil
}

// CreateProduct создаёт товар. Изображение сохраняется до вставки строки,
// при неудачной транзакции файл уходит на фоновую очистку.
func (p *ProductUseCase) CreateProduct(ctx context.Context, principal *domain.Principal, req *CreateProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.CreateProduct"

	if err := requireAdmin(principal); err != nil {
		return nil, e.Wrap(op, err)
	}

	product, err := newProductFromFields(&req.Fields)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if req.Image != nil {
		if err := p.imagesInfra.Validate(req.Image); err != nil {
			return nil, e.Wrap(op, err)
		}

		url, err := p.imagesInfra.StoreImage(ctx, req.Image)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		product.ImageURL = &url
	}

	var created *domain.Product
	err = p.trManager.Do(ctx, func(ctx context.Context) error {
		var err error
		created, err = p.productRepo.Create(ctx, product)
		if err != nil {
			return err
		}

		return p.writeEvent(ctx, ProductCreated, created)
	})
	if err != nil {
		if product.ImageURL != nil {
			p.logger.Warnf(
				"Cleaning up orphaned image after transaction failure. product_name: %s, error: %v",
				product.Name,
				e.Wrap(op, err),
			)
			p.imagesInfra.CleanupImages([]string{*product.ImageURL})
		}

		return nil, e.Wrap(op, err)
	}

	p.invalidateCache(ctx, created.ID)
	p.logger.Infof("Product created: id=%d name=%q user=%d", created.ID, created.Name, principal.UserID)

	return created, nil
}

// UpdateProduct частично обновляет товар. Новое изображение сохраняется внутри транзакции,
// старое удаляется только после коммита.
func (p *ProductUseCase) UpdateProduct(ctx context.Context, principal *domain.Principal, req *UpdateProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.UpdateProduct"

	if err := requireAdmin(principal); err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := validateFields(&req.Fields); err != nil {
		return nil, e.Wrap(op, err)
	}

	if req.Image != nil {
		if err := p.imagesInfra.Validate(req.Image); err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	var (
		updated  *domain.Product
		oldImage string
		newImage string
	)
	err := p.trManager.Do(ctx, func(ctx context.Context) error {
		current, err := p.productRepo.GetForUpdate(ctx, req.ID)
		if err != nil {
			return err
		}

		applyFields(current, &req.Fields)

		if req.Image != nil {
			url, err := p.imagesInfra.StoreImage(ctx, req.Image)
			if err != nil {
				return err
			}
			newImage = url

			if current.ImageURL != nil {
				oldImage = *current.ImageURL
			}
			current.ImageURL = &url
		}

		updated, err = p.productRepo.Update(ctx, current)
		if err != nil {
			return err
		}

		return p.writeEvent(ctx, ProductUpdated, updated)
	})
	if err != nil {
		if newImage != "" {
			p.imagesInfra.CleanupImages([]string{newImage})
		}

		return nil, e.Wrap(op, err)
	}

	if oldImage != "" && oldImage != newImage {
		p.releaseImage(ctx, oldImage)
	}

	p.invalidateCache(ctx, updated.ID)
	p.logger.Infof("Product updated: id=%d user=%d", updated.ID, principal.UserID)

	return updated, nil
}

// DeleteProduct удаляет товар и, после коммита, его изображение.
func (p *ProductUseCase) DeleteProduct(ctx context.Context, principal *domain.Principal, id int64) error {
	const op = "ProductUseCase.DeleteProduct"

	if err := requireAdmin(principal); err != nil {
		return e.Wrap(op, err)
	}

	var imageURL *string
	err := p.trManager.Do(ctx, func(ctx context.Context) error {
		current, err := p.productRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := p.productRepo.Delete(ctx, id); err != nil {
			return err
		}
		imageURL = current.ImageURL

		return p.writeEvent(ctx, ProductDeleted, current)
	})
	if err != nil {
		return e.Wrap(op, err)
	}

	if imageURL != nil {
		p.releaseImage(ctx, *imageURL)
	}

	p.invalidateCache(ctx, id)
	p.logger.Infof("Product deleted: id=%d user=%d", id, principal.UserID)

	return nil
}

// OpenImage открывает сохранённое изображение по имени файла.
func (p *ProductUseCase) OpenImage(ctx context.Context, name string) (*ImageObject, error) {
	const op = "ProductUseCase.OpenImage"

	obj, err := p.imagesInfra.OpenImage(ctx, name)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return obj, nil
}

// SweepOrphanImages удаляет файлы старше olderThan, на которые не ссылается ни один товар.
func (p *ProductUseCase) SweepOrphanImages(ctx context.Context, olderThan time.Duration) (int, error) {
	const op = "ProductUseCase.SweepOrphanImages"

	referenced, err := p.productRepo.ImageURLs(ctx)
	if err != nil {
		return 0, e.Wrap(op, err)
	}

	removed, err := p.imagesInfra.SweepOrphans(ctx, referenced, olderThan)
	if err != nil {
		return removed, e.Wrap(op, err)
	}

	return removed, nil
}

// categories возвращает список категорий из кэша или из БД.
func (p *ProductUseCase) categories(ctx context.Context) ([]string, error) {
	const op = "ProductUseCase.categories"

	cacheable := false
	var version int64
	if p.cacheRepo != nil {
		cached, ok, err := p.cacheRepo.GetCategories(ctx)
		if err != nil {
			p.logger.Warnf("Failed to read categories from cache: %v", e.Wrap(op, err))
		} else if ok {
			return cached, nil
		}

		if version, err = p.cacheRepo.CategoriesVersion(ctx); err != nil {
			p.logger.Warnf("Failed to read categories cache version: %v", e.Wrap(op, err))
		} else {
			cacheable = true
		}
	}

	categories, err := p.categoryRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := p.cacheRepo.SetCategories(ctx, categories, version); err != nil {
			p.logger.Warnf("Failed to cache categories: %v", e.Wrap(op, err))
		}
	}

	return categories, nil
}

// writeEvent пишет событие в outbox в рамках текущей транзакции.
func (p *ProductUseCase) writeEvent(ctx context.Context, eventType OutboxEventType, product *domain.Product) error {
	if p.outboxRepo == nil {
		return nil
	}

	event := &ProductEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Product:    product,
	}

	payload, err := p.encoder.Encode(event)
	if err != nil {
		return err
	}

	_, err = p.outboxRepo.Create(ctx, NewOutboxEvent(event, payload))
	return err
}

// releaseImage удаляет файл, отвязанный от товара. Ошибка не отменяет операцию.
func (p *ProductUseCase) releaseImage(ctx context.Context, url string) {
	if err := p.imagesInfra.RemoveImage(ctx, url); err != nil {
		p.logger.Warnf("Failed to remove image %s, scheduling cleanup: %v", url, err)
		p.imagesInfra.CleanupImages([]string{url})
	}
}

// invalidateCache сбрасывает закэшированные товары и список категорий.
func (p *ProductUseCase) invalidateCache(ctx context.Context, ids ...int64) {
	if p.cacheRepo == nil {
		return
	}

	if err := p.cacheRepo.DeleteProducts(ctx, ids); err != nil {
		p.logger.Warnf("Failed to delete products from cache: %v", err)
	}
	if err := p.cacheRepo.DeleteCategories(ctx); err != nil {
		p.logger.Warnf("Failed to delete categories from cache: %v", err)
	}
}

// normalizePaging приводит номер страницы к >= 1 и проверяет размер страницы.
func normalizePaging(page, pageSize int) (int, int, error) {
	if pageSize <= 0 {
		return 0, 0, e.ErrInvalidPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	if page < 1 {
		page = DefaultPage
	}
	// ограничение не даёт переполниться смещению
	if maxPage := math.MaxInt32 / pageSize; page > maxPage {
		page = maxPage
	}

	return page, pageSize, nil
}

// newProductFromFields собирает новый товар. Название и цена обязательны.
func newProductFromFields(f *ProductFields) (*domain.Product, error) {
	if f.Name == nil || strings.TrimSpace(*f.Name) == "" || f.Price == nil {
		return nil, e.ErrMissingFields
	}

	if err := validateFields(f); err != nil {
		return nil, err
	}

	product := domain.NewProduct(strings.TrimSpace(*f.Name), *f.Price, "")
	applyFields(product, f)

	return product, nil
}

// validateFields проверяет только переданные поля.
func validateFields(f *ProductFields) error {
	if f.Name != nil {
		name := strings.TrimSpace(*f.Name)
		if name == "" {
			return e.ErrProductNameRequired
		}
		if utf8.RuneCountInString(name) > domain.MaxNameLength {
			return e.ErrFieldTooLong
		}
	}

	if f.Description != nil && utf8.RuneCountInString(strings.TrimSpace(*f.Description)) > domain.MaxDescriptionLength {
		return e.ErrFieldTooLong
	}

	if f.Category != nil && utf8.RuneCountInString(strings.TrimSpace(*f.Category)) > domain.MaxCategoryLength {
		return e.ErrFieldTooLong
	}

	if f.Price != nil {
		if f.Price.IsNegative() || f.Price.GreaterThanOrEqual(maxPrice) {
			return e.ErrInvalidPrice
		}
		if !f.Price.Equal(f.Price.Round(domain.PriceScale)) {
			return e.ErrPricePrecision
		}
	}

	for _, stock := range []*int{f.MinStock, f.CurrentStock} {
		if stock == nil {
			continue
		}
		if *stock < 0 {
			return e.ErrNegativeStock
		}
		if *stock > math.MaxInt32 {
			return e.ErrInvalidNumber
		}
	}

	return nil
}

// applyFields переносит переданные поля в товар.
func applyFields(product *domain.Product, f *ProductFields) {
	if f.Name != nil {
		product.Name = strings.TrimSpace(*f.Name)
	}
	if f.Description != nil {
		if d := strings.TrimSpace(*f.Description); d != "" {
			product.Description = &d
		} else {
			product.Description = nil
		}
	}
	if f.Price != nil {
		product.Price = *f.Price
	}
	if f.MinStock != nil {
		product.MinStock = *f.MinStock
	}
	if f.CurrentStock != nil {
		product.CurrentStock = *f.CurrentStock
	}
	if f.ExpirationDate != nil {
		d := domain.TruncateDate(*f.ExpirationDate)
		product.ExpirationDate = &d
	}
	if f.Category != nil {
		product.Category = domain.NormalizeCategory(*f.Category)
	}
}
