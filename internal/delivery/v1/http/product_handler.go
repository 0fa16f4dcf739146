package http

import (
	"net/http"
	"strconv"

	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const (
	maxMemory = 32 << 20
	// запас на поля формы сверх лимита файла
	formOverhead = 1 << 20
)

type ProductHandler struct {
	productUsecase usecase.ProductUC
	exportUsecase  usecase.ExportUC
	maxUploadSize  int64
	logger         logger.Logger
}

func NewProductHandler(productUsecase usecase.ProductUC, exportUsecase usecase.ExportUC, maxUploadSize int64, logger logger.Logger) *ProductHandler {
	return &ProductHandler{
		productUsecase: productUsecase,
		exportUsecase:  exportUsecase,
		maxUploadSize:  maxUploadSize,
		logger:         logger,
	}
}

// listProducts
//
//	@Summary		Список товаров
//	@Description	Фильтрация по категории и поиску, пагинация по id
//	@Tags			productos
//	@Produce		json
//	@Param			categoria	query		string	false	"Категория (all/todos — без фильтра)"
//	@Param			busqueda	query		string	false	"Подстрока в названии или описании"
//	@Param			page		query		int		false	"Номер страницы"	default(1)
//	@Param			per_page	query		int		false	"Размер страницы"	default(10)
//	@Success		200			{object}	ListProductsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Router			/productos [get]
func (p *ProductHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, usecase.DefaultPage, e.ErrInvalidPage, "page")
	if err != nil {
		WriteError(w, err)
		return
	}

	pageSize, err := queryInt(r, usecase.DefaultPageSize, e.ErrInvalidPageSize, "per_page", "pageSize", "page_size")
	if err != nil {
		WriteError(w, err)
		return
	}

	res, err := p.productUsecase.ListProducts(r.Context(), &usecase.ListProductsReq{
		Category: queryValue(r, "categoria", "category"),
		Search:   queryValue(r, "busqueda", "search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		logFailure(p.logger, "listProducts", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toListProductsResponse(res))
}

// getProduct
//
//	@Summary	Товар по id
//	@Tags		productos
//	@Produce	json
//	@Param		id	path		int	true	"ID товара"
//	@Success	200	{object}	ProductResponse
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/productos/{id} [get]
func (p *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	product, err := p.productUsecase.GetProduct(r.Context(), id)
	if err != nil {
		logFailure(p.logger, "getProduct", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductResponse(product))
}

// createProduct
//
//	@Summary		Создание товара
//	@Description	Только для администратора. Изображение необязательно.
//	@Tags			productos
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			nombre				formData	string	true	"Название"
//	@Param			precio				formData	number	true	"Цена"
//	@Param			descripcion			formData	string	false	"Описание"
//	@Param			stock_minimo		formData	int		false	"Минимальный остаток"
//	@Param			stock_actual		formData	int		false	"Текущий остаток"
//	@Param			fecha_vencimiento	formData	string	false	"Срок годности YYYY-MM-DD"
//	@Param			categoria			formData	string	false	"Категория"
//	@Param			imagen				formData	file	false	"Изображение"
//	@Success		201					{object}	ProductMutationResponse
//	@Failure		400					{object}	ErrorResponse
//	@Failure		401					{object}	ErrorResponse
//	@Failure		403					{object}	ErrorResponse
//	@Router			/productos [post]
func (p *ProductHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	fields, image, err := p.parseMutation(w, r)
	if err != nil {
		WriteError(w, err)
		return
	}

	product, err := p.productUsecase.CreateProduct(r.Context(), PrincipalFromContext(r.Context()), &usecase.CreateProductReq{
		Fields: *fields,
		Image:  image,
	})
	if err != nil {
		logFailure(p.logger, "createProduct", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, &ProductMutationResponse{
		Message:  "Producto creado exitosamente",
		Producto: toProductResponse(product),
	})
}

// updateProduct
//
//	@Summary		Частичное обновление товара
//	@Description	Меняются только переданные поля. Новое изображение заменяет старое.
//	@Tags			productos
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id					path		int		true	"ID товара"
//	@Param			nombre				formData	string	false	"Название"
//	@Param			precio				formData	number	false	"Цена"
//	@Param			descripcion			formData	string	false	"Описание"
//	@Param			stock_minimo		formData	int		false	"Минимальный остаток"
//	@Param			stock_actual		formData	int		false	"Текущий остаток"
//	@Param			fecha_vencimiento	formData	string	false	"Срок годности YYYY-MM-DD"
//	@Param			categoria			formData	string	false	"Категория"
//	@Param			imagen				formData	file	false	"Изображение"
//	@Success		200					{object}	ProductMutationResponse
//	@Failure		400					{object}	ErrorResponse
//	@Failure		401					{object}	ErrorResponse
//	@Failure		403					{object}	ErrorResponse
//	@Failure		404					{object}	ErrorResponse
//	@Router			/productos/{id} [put]
func (p *ProductHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	fields, image, err := p.parseMutation(w, r)
	if err != nil {
		WriteError(w, err)
		return
	}

	product, err := p.productUsecase.UpdateProduct(r.Context(), PrincipalFromContext(r.Context()), &usecase.UpdateProductReq{
		ID:     id,
		Fields: *fields,
		Image:  image,
	})
	if err != nil {
		logFailure(p.logger, "updateProduct", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, &ProductMutationResponse{
		Message:  "Producto actualizado exitosamente",
		Producto: toProductResponse(product),
	})
}

// deleteProduct
//
//	@Summary	Удаление товара
//	@Tags		productos
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id	path		int	true	"ID товара"
//	@Success	200	{object}	MessageResponse
//	@Failure	401	{object}	ErrorResponse
//	@Failure	403	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/productos/{id} [delete]
func (p *ProductHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := p.productUsecase.DeleteProduct(r.Context(), PrincipalFromContext(r.Context()), id); err != nil {
		logFailure(p.logger, "deleteProduct", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, &MessageResponse{Message: "Producto eliminado exitosamente"})
}

// exportProducts
//
//	@Summary	Выгрузка каталога
//	@Tags		productos
//	@Produce	application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Produce	text/csv
//	@Security	BearerAuth
//	@Param		format	query		string	false	"xlsx или csv"	default(xlsx)
//	@Success	200		{file}		file
//	@Failure	400		{object}	ErrorResponse
//	@Failure	403		{object}	ErrorResponse
//	@Router		/productos/export [get]
func (p *ProductHandler) exportProducts(w http.ResponseWriter, r *http.Request) {
	res, err := p.exportUsecase.Export(r.Context(), PrincipalFromContext(r.Context()), r.URL.Query().Get("format"))
	if err != nil {
		logFailure(p.logger, "exportProducts", err)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

// serveImage
//
//	@Summary	Изображение товара
//	@Tags		uploads
//	@Produce	image/png
//	@Produce	image/jpeg
//	@Param		filename	path	string	true	"Имя файла"
//	@Success	200			{file}	file
//	@Failure	404			{object}	ErrorResponse
//	@Router		/uploads/{filename} [get]
func (p *ProductHandler) serveImage(w http.ResponseWriter, r *http.Request) {
	img, err := p.productUsecase.OpenImage(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		logFailure(p.logger, "serveImage", err)
		WriteError(w, err)
		return
	}
	defer img.Body.Close()

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, img.Name, img.ModTime, img.Body)
}

// parseMutation читает форму создания/обновления. Размер тела ограничен лимитом изображения.
func (p *ProductHandler) parseMutation(w http.ResponseWriter, r *http.Request) (*usecase.ProductFields, *usecase.ProductImage, error) {
	if p.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, p.maxUploadSize+formOverhead)
	}

	if err := ensureMultipartForm(r, maxMemory); err != nil {
		return nil, nil, err
	}
	defer r.MultipartForm.RemoveAll()

	fields, err := parseProductForm(r.MultipartForm)
	if err != nil {
		return nil, nil, err
	}

	image, err := readImage(r.MultipartForm, p.maxUploadSize)
	if err != nil {
		return nil, nil, err
	}

	return fields, image, nil
}
