package http

import (
	"net/http"

	"github.com/DRSN-tech/inventory-backend/internal/usecase"
)

const serviceVersion = "1.0.0"

type HealthHandler struct {
	healthUsecase usecase.HealthUC
	environment   string
}

func NewHealthHandler(healthUsecase usecase.HealthUC, environment string) *HealthHandler {
	return &HealthHandler{healthUsecase: healthUsecase, environment: environment}
}

// health
//
//	@Summary		Состояние сервиса
//	@Description	Проверяет базу данных и хранилище изображений
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/health [get]
func (h *HealthHandler) health(w http.ResponseWriter, r *http.Request) {
	res := h.healthUsecase.Check(r.Context())

	status, code := "healthy", http.StatusOK
	if !res.Healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	WriteSuccess(w, code, &HealthResponse{
		Status:       status,
		Timestamp:    res.CheckedAt,
		Database:     res.Database,
		ImageStorage: res.ImageStorage,
		Environment:  h.environment,
	})
}

func (h *HealthHandler) index(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, http.StatusOK, map[string]any{
		"status":      "success",
		"message":     "Backend del sistema de supermercado funcionando correctamente",
		"version":     serviceVersion,
		"environment": h.environment,
		"endpoints": map[string]string{
			"health":       "/api/health",
			"auth":         "/api/auth/",
			"productos":    "/api/productos/",
			"estadisticas": "/api/estadisticas/",
			"uploads":      "/uploads/",
			"swagger":      "/swagger/index.html",
		},
	})
}
