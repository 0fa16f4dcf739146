package http

import (
	"net/http"

	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
)

type StatsHandler struct {
	statsUsecase usecase.StatsUC
	logger       logger.Logger
}

func NewStatsHandler(statsUsecase usecase.StatsUC, logger logger.Logger) *StatsHandler {
	return &StatsHandler{statsUsecase: statsUsecase, logger: logger}
}

// totalProducts
//
//	@Summary	Количество товаров
//	@Tags		estadisticas
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	TotalResponse
//	@Failure	401	{object}	ErrorResponse
//	@Router		/estadisticas/productos [get]
func (s *StatsHandler) totalProducts(w http.ResponseWriter, r *http.Request) {
	total, err := s.statsUsecase.TotalProducts(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		logFailure(s.logger, "totalProducts", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, &TotalResponse{Total: total})
}

// lowStock
//
//	@Summary		Товары с низким остатком
//	@Description	current_stock < min_stock
//	@Tags			estadisticas
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	LowStockResponse
//	@Failure		401	{object}	ErrorResponse
//	@Router			/estadisticas/stock-bajo [get]
func (s *StatsHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	products, err := s.statsUsecase.LowStock(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		logFailure(s.logger, "lowStock", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toLowStockResponse(products))
}

// summary
//
//	@Summary	Сводка по складу
//	@Tags		estadisticas
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	SummaryResponse
//	@Failure	401	{object}	ErrorResponse
//	@Router		/estadisticas/resumen [get]
func (s *StatsHandler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.statsUsecase.Summary(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		logFailure(s.logger, "summary", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSummaryResponse(summary))
}
