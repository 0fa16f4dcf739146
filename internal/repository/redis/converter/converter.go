package converter

import (
	"github.com/DRSN-tech/inventory-backend/internal/domain"
)

// ProductConverter преобразует товар между domain и моделью кэша.
type ProductConverter interface {
	ToRedisModel(entity *domain.Product) *ProductRedisModel
	ToEntity(model *ProductRedisModel) *domain.Product
}

type ProductConverterImpl struct{}

func NewProductConverterImpl() *ProductConverterImpl {
	return &ProductConverterImpl{}
}

func (c *ProductConverterImpl) ToRedisModel(entity *domain.Product) *ProductRedisModel {
	if entity == nil {
		return nil
	}

	return &ProductRedisModel{
		ID:             entity.ID,
		Name:           entity.Name,
		Description:    entity.Description,
		Price:          entity.Price,
		MinStock:       entity.MinStock,
		CurrentStock:   entity.CurrentStock,
		ExpirationDate: entity.ExpirationDate,
		Category:       entity.Category,
		ImageURL:       entity.ImageURL,
		CreatedAt:      entity.CreatedAt,
		UpdatedAt:      entity.UpdatedAt,
	}
}

func (c *ProductConverterImpl) ToEntity(model *ProductRedisModel) *domain.Product {
	if model == nil {
		return nil
	}

	return &domain.Product{
		ID:             model.ID,
		Name:           model.Name,
		Description:    model.Description,
		Price:          model.Price,
		MinStock:       model.MinStock,
		CurrentStock:   model.CurrentStock,
		ExpirationDate: model.ExpirationDate,
		Category:       model.Category,
		ImageURL:       model.ImageURL,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}
