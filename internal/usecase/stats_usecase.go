package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
)

// StatsUseCase считает агрегаты по складу.
type StatsUseCase struct {
	productRepo       ProductRepository
	expiryWarningDays int
	logger            logger.Logger
	now               func() time.Time
}

func NewStatsUC(productRepo ProductRepository, expiryWarningDays int, logger logger.Logger) *StatsUseCase {
	return &StatsUseCase{
		productRepo:       productRepo,
		expiryWarningDays: expiryWarningDays,
		logger:            logger,
		now:               time.Now,
	}
}

func (s *StatsUseCase) TotalProducts(ctx context.Context, principal *domain.Principal) (int, error) {
	const op = "StatsUseCase.TotalProducts"

	if err := requireAuthenticated(principal); err != nil {
		return 0, e.Wrap(op, err)
	}

	total, err := s.productRepo.Count(ctx)
	if err != nil {
		return 0, e.Wrap(op, err)
	}

	return total, nil
}

// LowStock возвращает товары, остаток которых ниже их минимального запаса.
func (s *StatsUseCase) LowStock(ctx context.Context, principal *domain.Principal) ([]domain.Product, error) {
	const op = "StatsUseCase.LowStock"

	if err := requireAuthenticated(principal); err != nil {
		return nil, e.Wrap(op, err)
	}

	products, err := s.productRepo.LowStock(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return products, nil
}

func (s *StatsUseCase) Summary(ctx context.Context, principal *domain.Principal) (*StatsSummary, error) {
	const op = "StatsUseCase.Summary"

	if err := requireAuthenticated(principal); err != nil {
		return nil, e.Wrap(op, err)
	}

	now := s.now()
	summary, err := s.productRepo.Summary(ctx, domain.TruncateDate(now).AddDate(0, 0, s.expiryWarningDays))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	summary.UpdatedAt = now

	return summary, nil
}

// ReportLowStock пишет в лог товары с низким остатком. Вызывается планировщиком.
func (s *StatsUseCase) ReportLowStock(ctx context.Context) error {
	const op = "StatsUseCase.ReportLowStock"

	products, err := s.productRepo.LowStock(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	if len(products) == 0 {
		s.logger.Infof("Low stock report: all products above minimum")
		return nil
	}

	for _, p := range products {
		s.logger.Warnf("Low stock: id=%d name=%q current=%d min=%d", p.ID, p.Name, p.CurrentStock, p.MinStock)
	}
	s.logger.Infof("Low stock report: %d product(s) below minimum", len(products))

	return nil
}
