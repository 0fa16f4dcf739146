package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
)

// AuthUseCase реализует регистрацию, вход и проверку токенов.
type AuthUseCase struct {
	userRepo UserRepository
	hasher   PasswordHasher
	tokens   TokenManager
	logger   logger.Logger
}

func NewAuthUC(userRepo UserRepository, hasher PasswordHasher, tokens TokenManager, logger logger.Logger) *AuthUseCase {
	return &AuthUseCase{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger,
	}
}

// Register создаёт учётную запись кассира. Регистрация администратора запрещена.
func (a *AuthUseCase) Register(ctx context.Context, req *RegisterReq) (*domain.User, error) {
	const op = "AuthUseCase.Register"

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, e.Wrap(op, e.ErrCredentialsRequired)
	}

	if domain.Role(req.Role) == domain.RoleAdmin {
		return nil, e.Wrap(op, e.ErrAdminRegistration)
	}

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return nil, e.Wrap(op, e.ErrUnknownRole)
	}

	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	user, err := a.userRepo.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	a.logger.Infof("User registered: id=%d username=%q role=%s", user.ID, user.Username, user.Role)
	return user, nil
}

// Login проверяет пароль и выдаёт токен доступа.
func (a *AuthUseCase) Login(ctx context.Context, req *LoginReq) (*LoginRes, error) {
	const op = "AuthUseCase.Login"

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, e.Wrap(op, e.ErrCredentialsRequired)
	}

	user, err := a.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, e.ErrUserNotFound) {
			return nil, e.Wrap(op, e.ErrInvalidCredentials)
		}
		return nil, e.Wrap(op, err)
	}

	if err := a.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, e.Wrap(op, e.ErrInvalidCredentials)
	}

	token, err := a.tokens.Issue(user)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &LoginRes{AccessToken: token, Role: user.Role}, nil
}

// Authenticate разбирает bearer-токен в Principal.
func (a *AuthUseCase) Authenticate(_ context.Context, token string) (*domain.Principal, error) {
	const op = "AuthUseCase.Authenticate"

	if token == "" {
		return nil, e.Wrap(op, e.ErrMissingToken)
	}

	principal, err := a.tokens.Parse(token)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return principal, nil
}

// EnsureAdmin создаёт администратора при первом запуске.
func (a *AuthUseCase) EnsureAdmin(ctx context.Context, username, password string) error {
	const op = "AuthUseCase.EnsureAdmin"

	existing, err := a.userRepo.GetByUsername(ctx, username)
	if err == nil {
		if existing.Role != domain.RoleAdmin {
			a.logger.Warnf("User %q exists but has role %s, admin was not seeded", username, existing.Role)
		}
		return nil
	}
	if !errors.Is(err, e.ErrUserNotFound) {
		return e.Wrap(op, err)
	}

	hash, err := a.hasher.Hash(password)
	if err != nil {
		return e.Wrap(op, err)
	}

	if _, err := a.userRepo.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
	}); err != nil {
		// параллельный запуск мог создать пользователя раньше
		if errors.Is(err, e.ErrUserExists) {
			return nil
		}
		return e.Wrap(op, err)
	}

	a.logger.Infof("Default admin %q created", username)
	return nil
}
