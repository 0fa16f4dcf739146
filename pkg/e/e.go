package e

import (
	"errors"
	"fmt"
)

// Классы ошибок. Конкретные ошибки ссылаются на класс через Unwrap,
// по классу слой доставки выбирает HTTP-статус.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrConflict        = errors.New("conflict")
)

var (
	// Внутренние ошибки
	ErrTransactionNotFound  = fmt.Errorf("transaction not found")
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect env variable")
	ErrInternalServerError  = fmt.Errorf("internal server error")

	// 400 Bad Request
	ErrMissingFields           = New(ErrValidation, "name and price are required")
	ErrProductNameRequired     = New(ErrValidation, "name must not be empty")
	ErrInvalidPrice            = New(ErrValidation, "invalid price")
	ErrPricePrecision          = New(ErrValidation, "price must have at most 2 decimal places")
	ErrNegativeStock           = New(ErrValidation, "stock values must not be negative")
	ErrInvalidNumber           = New(ErrValidation, "invalid numeric field")
	ErrInvalidDate             = New(ErrValidation, "invalid date, expected YYYY-MM-DD")
	ErrFieldTooLong            = New(ErrValidation, "field is too long")
	ErrUnsupportedImage        = New(ErrValidation, "unsupported image format")
	ErrFileTooLarge            = New(ErrValidation, "file too large")
	ErrExpectedMultipart       = New(ErrValidation, "expected multipart/form-data")
	ErrInvalidPage             = New(ErrValidation, "invalid page")
	ErrInvalidPageSize         = New(ErrValidation, "page size must be a positive integer")
	ErrInvalidID               = New(ErrValidation, "invalid id")
	ErrInvalidJSON             = New(ErrValidation, "invalid JSON body")
	ErrCredentialsRequired     = New(ErrValidation, "username and password are required")
	ErrUnknownRole             = New(ErrValidation, "unknown role")
	ErrUnsupportedExportFormat = New(ErrValidation, "unsupported export format")

	// 401 Unauthorized
	ErrMissingToken       = New(ErrUnauthenticated, "missing authorization token")
	ErrInvalidToken       = New(ErrUnauthenticated, "invalid or expired token")
	ErrInvalidCredentials = New(ErrUnauthenticated, "invalid credentials")

	// 403 Forbidden
	ErrAdminRequired     = New(ErrForbidden, "admin role required")
	ErrAdminRegistration = New(ErrForbidden, "cannot register as admin")

	// 404 Not Found
	ErrProductNotFound = New(ErrNotFound, "product not found")
	ErrImageNotFound   = New(ErrNotFound, "image not found")
	ErrUserNotFound    = New(ErrNotFound, "user not found")

	// 409 Conflict
	ErrUserExists = New(ErrConflict, "user already exists")
)

// Error — ошибка с классом и сообщением для клиента.
type Error struct {
	Kind error
	Msg  string
}

func (err *Error) Error() string {
	return err.Msg
}

func (err *Error) Unwrap() error {
	return err.Kind
}

// New создаёт ошибку класса kind.
func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Message возвращает сообщение ближайшей *Error в цепочке.
func Message(err error) (string, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target.Msg, true
	}

	return "", false
}

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
