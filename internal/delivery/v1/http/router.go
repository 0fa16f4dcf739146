package http

import (
	"net/http"
	"time"

	_ "github.com/DRSN-tech/inventory-backend/docs" // регистрация swagger-спецификации
	"github.com/DRSN-tech/inventory-backend/internal/cfg"
	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Usecases — зависимости слоя доставки.
type Usecases struct {
	Product usecase.ProductUC
	Auth    usecase.AuthUC
	Stats   usecase.StatsUC
	Export  usecase.ExportUC
	Health  usecase.HealthUC
}

type Router struct {
	router *chi.Mux
	cfg    *cfg.Config
	logger logger.Logger
}

func NewRouter(router *chi.Mux, cfg *cfg.Config, logger logger.Logger) *Router {
	return &Router{router: router, cfg: cfg, logger: logger}
}

func (r *Router) Init(uc *Usecases) http.Handler {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.RealIP)
	r.router.Use(AccessLog(r.logger))
	r.router.Use(middleware.Recoverer)
	r.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.cfg.Cors.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}))

	prHandler := NewProductHandler(uc.Product, uc.Export, r.cfg.Images.MaxSize, r.logger)
	authHandler := NewAuthHandler(uc.Auth, r.logger)
	statsHandler := NewStatsHandler(uc.Stats, r.logger)
	healthHandler := NewHealthHandler(uc.Health, r.cfg.Environment)
	requireAuth := RequireAuth(uc.Auth, r.logger)

	r.router.Get("/", healthHandler.index)
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.router.Get(r.cfg.Images.PublicPrefix+"/{filename}", prHandler.serveImage)

	r.router.Route("/api", func(api chi.Router) {
		api.Get("/health", healthHandler.health)
		registerAuthRoutes(api, authHandler)
		registerProductRoutes(api, prHandler, requireAuth)
		registerStatsRoutes(api, statsHandler, requireAuth)
	})

	return r.router
}

func registerAuthRoutes(router chi.Router, h *AuthHandler) {
	router.Route("/auth", func(auth chi.Router) {
		auth.Post("/register", h.register)
		auth.Post("/login", h.login)
	})
}

func registerProductRoutes(router chi.Router, h *ProductHandler, requireAuth func(http.Handler) http.Handler) {
	router.Route("/productos", func(pr chi.Router) {
		pr.Get("/", h.listProducts)
		pr.Get("/{id}", h.getProduct)

		pr.Group(func(admin chi.Router) {
			admin.Use(requireAuth)
			admin.Get("/export", h.exportProducts)
			admin.Post("/", h.createProduct)
			admin.Put("/{id}", h.updateProduct)
			admin.Delete("/{id}", h.deleteProduct)
		})
	})
}

func registerStatsRoutes(router chi.Router, h *StatsHandler, requireAuth func(http.Handler) http.Handler) {
	router.Route("/estadisticas", func(st chi.Router) {
		st.Use(requireAuth)
		st.Get("/productos", h.totalProducts)
		st.Get("/stock-bajo", h.lowStock)
		st.Get("/resumen", h.summary)
	})
}
