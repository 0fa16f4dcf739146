package http

import (
	"encoding/json"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/internal/usecase"
)

// ProductResponse — товар в формате API. Цена — число с двумя знаками.
type ProductResponse struct {
	ID               int64       `json:"id"`
	Nombre           string      `json:"nombre"`
	Descripcion      *string     `json:"descripcion"`
	Precio           json.Number `json:"precio" swaggertype:"number"`
	StockMinimo      int         `json:"stock_minimo"`
	StockActual      int         `json:"stock_actual"`
	FechaVencimiento *string     `json:"fecha_vencimiento"`
	Categoria        string      `json:"categoria"`
	ImagenURL        *string     `json:"imagen_url"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type ListProductsResponse struct {
	Productos   []ProductResponse `json:"productos"`
	Total       int               `json:"total"`
	Pages       int               `json:"pages"`
	CurrentPage int               `json:"current_page"`
	PerPage     int               `json:"per_page"`
	Categorias  []string          `json:"categorias"`
}

type ProductMutationResponse struct {
	Message  string          `json:"message"`
	Producto ProductResponse `json:"producto"`
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Rol      string `json:"rol"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Rol      string `json:"rol"`
}

type RegisterResponse struct {
	Mensaje string       `json:"mensaje"`
	Usuario UserResponse `json:"usuario"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Rol         string `json:"rol"`
}

type TotalResponse struct {
	Total int `json:"total"`
}

type LowStockItem struct {
	ID          int64  `json:"id"`
	Nombre      string `json:"nombre"`
	StockActual int    `json:"stock_actual"`
	StockMinimo int    `json:"stock_minimo"`
}

type LowStockResponse struct {
	Total     int            `json:"total"`
	Productos []LowStockItem `json:"productos"`
}

type SummaryResponse struct {
	TotalProductos     int         `json:"total_productos"`
	StockBajo          int         `json:"stock_bajo"`
	PorVencer          int         `json:"por_vencer"`
	ValorInventario    json.Number `json:"valor_inventario" swaggertype:"number"`
	FechaActualizacion time.Time   `json:"fecha_actualizacion"`
}

type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Database     string    `json:"database"`
	ImageStorage string    `json:"image_storage"`
	Environment  string    `json:"environment"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	res := ProductResponse{
		ID:          p.ID,
		Nombre:      p.Name,
		Descripcion: p.Description,
		Precio:      json.Number(p.Price.StringFixed(domain.PriceScale)),
		StockMinimo: p.MinStock,
		StockActual: p.CurrentStock,
		Categoria:   p.Category,
		ImagenURL:   p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.ExpirationDate != nil {
		date := p.ExpirationDate.Format(dateLayout)
		res.FechaVencimiento = &date
	}

	return res
}

func toProductsResponse(products []domain.Product) []ProductResponse {
	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}

	return res
}

func toListProductsResponse(list *usecase.ListProductsRes) *ListProductsResponse {
	categories := list.Categories
	if categories == nil {
		categories = []string{}
	}

	return &ListProductsResponse{
		Productos:   toProductsResponse(list.Products),
		Total:       list.Total,
		Pages:       list.Pages,
		CurrentPage: list.Page,
		PerPage:     list.PageSize,
		Categorias:  categories,
	}
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Rol:      string(u.Role),
	}
}

func toLowStockResponse(products []domain.Product) *LowStockResponse {
	items := make([]LowStockItem, 0, len(products))
	for _, p := range products {
		items = append(items, LowStockItem{
			ID:          p.ID,
			Nombre:      p.Name,
			StockActual: p.CurrentStock,
			StockMinimo: p.MinStock,
		})
	}

	return &LowStockResponse{Total: len(items), Productos: items}
}

func toSummaryResponse(s *usecase.StatsSummary) *SummaryResponse {
	return &SummaryResponse{
		TotalProductos:     s.TotalProducts,
		StockBajo:          s.LowStock,
		PorVencer:          s.ExpiringSoon,
		ValorInventario:    json.Number(s.InventoryValue.StringFixed(domain.PriceScale)),
		FechaActualizacion: s.UpdatedAt,
	}
}
