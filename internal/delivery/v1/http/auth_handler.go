package http

import (
	"encoding/json"
	"net/http"

	"github.com/DRSN-tech/inventory-backend/internal/usecase"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
)

const maxJSONBody = 1 << 20

type AuthHandler struct {
	authUsecase usecase.AuthUC
	logger      logger.Logger
}

func NewAuthHandler(authUsecase usecase.AuthUC, logger logger.Logger) *AuthHandler {
	return &AuthHandler{authUsecase: authUsecase, logger: logger}
}

// register
//
//	@Summary		Регистрация пользователя
//	@Description	Роль по умолчанию — cajero. Регистрация администратора запрещена.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RegisterRequest	true	"Учётные данные"
//	@Success		201		{object}	RegisterResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/auth/register [post]
func (a *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	user, err := a.authUsecase.Register(r.Context(), &usecase.RegisterReq{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Rol,
	})
	if err != nil {
		logFailure(a.logger, "register", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, &RegisterResponse{
		Mensaje: "Usuario creado",
		Usuario: toUserResponse(user),
	})
}

// login
//
//	@Summary	Вход
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		LoginRequest	true	"Учётные данные"
//	@Success	200		{object}	LoginResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	401		{object}	ErrorResponse
//	@Router		/auth/login [post]
func (a *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	res, err := a.authUsecase.Login(r.Context(), &usecase.LoginReq{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		logFailure(a.logger, "login", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, &LoginResponse{
		AccessToken: res.AccessToken,
		Rol:         string(res.Role),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return e.ErrInvalidJSON
	}

	return nil
}
