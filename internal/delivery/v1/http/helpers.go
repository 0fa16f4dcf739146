package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Имена полей формы товара
const (
	formName           = "nombre"
	formDescription    = "descripcion"
	formPrice          = "precio"
	formMinStock       = "stock_minimo"
	formCurrentStock   = "stock_actual"
	formExpirationDate = "fecha_vencimiento"
	formCategory       = "categoria"
	formImage          = "imagen"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{Error: message}
}

// ToHTTPResponse выбирает статус по классу ошибки. Текст внутренних ошибок клиенту не отдаётся.
func ToHTTPResponse(err error) (int, string) {
	var code int
	switch {
	case errors.Is(err, e.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, e.ErrUnauthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, e.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, e.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, e.ErrConflict):
		code = http.StatusConflict
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}

	msg, ok := e.Message(err)
	if !ok {
		msg = http.StatusText(code)
	}

	return code, msg
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	WriteSuccess(w, code, NewErrorResponse(msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parseID читает положительный идентификатор из пути.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, e.ErrInvalidID
	}

	return id, nil
}

// queryInt читает целое из первого непустого параметра; def — значение по умолчанию.
func queryInt(r *http.Request, def int, invalid error, names ...string) (int, error) {
	raw := queryValue(r, names...)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid
	}

	return n, nil
}

// queryValue возвращает первый непустой параметр запроса из перечисленных синонимов.
func queryValue(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v
		}
	}

	return ""
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return e.Wrap(whereami.WhereAmI(), e.ErrFileTooLarge)
		}
		return e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrExpectedMultipart, err))
	}

	return nil
}

// parseProductForm разбирает поля товара. Отсутствующее поле остаётся nil;
// пустые числовые поля и пустая дата считаются непереданными.
func parseProductForm(form *multipart.Form) (*usecase.ProductFields, error) {
	var fields usecase.ProductFields

	if v, ok := formValue(form, formName); ok {
		fields.Name = &v
	}
	if v, ok := formValue(form, formDescription); ok {
		fields.Description = &v
	}
	if v, ok := formValue(form, formCategory); ok {
		fields.Category = &v
	}

	if v, ok := formValue(form, formPrice); ok && strings.TrimSpace(v) != "" {
		price, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, e.ErrInvalidPrice
		}
		fields.Price = &price
	}

	var err error
	if fields.MinStock, err = formInt(form, formMinStock); err != nil {
		return nil, err
	}
	if fields.CurrentStock, err = formInt(form, formCurrentStock); err != nil {
		return nil, err
	}

	if v, ok := formValue(form, formExpirationDate); ok && strings.TrimSpace(v) != "" {
		date, err := time.Parse(dateLayout, strings.TrimSpace(v))
		if err != nil {
			return nil, e.ErrInvalidDate
		}
		fields.ExpirationDate = &date
	}

	return &fields, nil
}

func formValue(form *multipart.Form, name string) (string, bool) {
	values, ok := form.Value[name]
	if !ok || len(values) == 0 {
		return "", false
	}

	return values[0], true
}

func formInt(form *multipart.Form, name string) (*int, error) {
	v, ok := formValue(form, name)
	if !ok || strings.TrimSpace(v) == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil, e.ErrInvalidNumber
	}

	return &n, nil
}

// readImage читает необязательный файл изображения. Файл с пустым именем игнорируется.
func readImage(form *multipart.Form, maxSize int64) (*usecase.ProductImage, error) {
	files := form.File[formImage]
	if len(files) == 0 || files[0].Filename == "" {
		return nil, nil
	}

	fh := files[0]
	if maxSize > 0 && fh.Size > maxSize {
		return nil, e.Wrap(fh.Filename, e.ErrFileTooLarge)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return usecase.NewProductImage(data, fh.Filename), nil
}
