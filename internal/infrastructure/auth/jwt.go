package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/cfg"
	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jimlawless/whereami"
)

// Claims — полезная нагрузка access-токена. sub хранит ID пользователя.
type Claims struct {
	Role string `json:"rol"`
	jwt.RegisteredClaims
}

// JWTManager выпускает и проверяет токены HS256.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTManager(cfg *cfg.AuthCfg) *JWTManager {
	return &JWTManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.AccessTTL,
		now:    time.Now,
	}
}

func (j *JWTManager) Issue(user *domain.User) (string, error) {
	now := j.now()
	claims := &Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return token, nil
}

// Parse проверяет подпись и срок действия. Любая ошибка даёт ErrInvalidToken.
func (j *JWTManager) Parse(token string) (*domain.Principal, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrInvalidToken, err))
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrInvalidToken)
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok || claims.Role == "" {
		return nil, e.Wrap(whereami.WhereAmI(), e.ErrInvalidToken)
	}

	return &domain.Principal{UserID: id, Role: role}, nil
}
